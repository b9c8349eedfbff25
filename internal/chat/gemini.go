package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const systemPrompt = `You are HealthLens AI, a helpful, empathetic health assistant.

CRITICAL RULES:
1. You are NOT a doctor. NEVER provide medical diagnoses.
2. ALWAYS remind users that AI insights are not a substitute for professional medical advice.
3. When a user describes symptoms, use the analyze_symptoms tool.
4. When a user asks about disease risk, use the appropriate risk prediction tool.
5. When discussing diet or lifestyle, use the get_nutrition_plan tool.
6. If the situation sounds like an emergency, tell the user to CALL EMERGENCY SERVICES IMMEDIATELY.
7. Be warm, clear and supportive. Avoid medical jargon when possible.
8. Respect user privacy. Never ask for unnecessary personal information.
9. Include the disclaimer "This is not a medical diagnosis" in relevant responses.
10. If you are uncertain, say so honestly and recommend seeing a healthcare professional.`

// maxToolRounds bounds how many function-call exchanges one reply may take.
const maxToolRounds = 3

const emptyReply = "I'm sorry, I couldn't generate a response."

type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	// Backoff is the first Fibonacci retry delay. Zero means one second.
	Backoff time.Duration
}

// Gemini answers through the generateContent REST endpoint and lets the
// model call the toolbox.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
	tools  *Toolbox
	log    *slog.Logger
}

func NewGemini(cfg GeminiConfig, tools *Toolbox, log *slog.Logger) *Gemini {
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		tools:  tools,
		log:    log,
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Respond sends the conversation, running any requested tools, and returns
// the model's final text. history must end with the user's message.
func (g *Gemini) Respond(ctx context.Context, history []Message) (Reply, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          make([]geminiContent, 0, len(history)),
		Tools:             []geminiTool{{FunctionDeclarations: g.tools.Declarations()}},
	}
	for _, msg := range history {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}

	var used []ToolUse
	for round := 0; ; round++ {
		content, err := g.generate(ctx, req)
		if err != nil {
			return Reply{}, err
		}

		var calls []geminiFunctionCall
		var text strings.Builder
		for _, part := range content.Parts {
			if part.FunctionCall != nil {
				calls = append(calls, *part.FunctionCall)
				continue
			}
			text.WriteString(part.Text)
		}

		if len(calls) == 0 {
			reply := strings.TrimSpace(text.String())
			if reply == "" {
				reply = emptyReply
			}
			return Reply{Role: RoleAssistant, Content: reply, ToolCalls: used}, nil
		}
		if round == maxToolRounds {
			return Reply{}, fmt.Errorf("gemini requested tools for more than %d rounds", maxToolRounds)
		}

		content.Role = "model"
		req.Contents = append(req.Contents, content)
		responses := geminiContent{Role: "user"}
		for _, call := range calls {
			name := ToolName(call.Name)
			used = append(used, ToolUse{Name: name})
			out, err := g.tools.Call(ctx, ToolCall{Name: name, Args: call.Args})
			response := map[string]any{"result": out}
			if err != nil {
				g.log.Warn("chat tool failed", "tool", call.Name, "error", err)
				response = map[string]any{"error": err.Error()}
			}
			responses.Parts = append(responses.Parts, geminiPart{
				FunctionResponse: &geminiFunctionResponse{Name: call.Name, Response: response},
			})
		}
		req.Contents = append(req.Contents, responses)
	}
}

// generate posts one request, retrying transport failures, 429 and 5xx.
func (g *Gemini) generate(ctx context.Context, body geminiRequest) (geminiContent, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return geminiContent{}, fmt.Errorf("marshal gemini request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.cfg.BaseURL, g.cfg.Model)

	var out geminiResponse
	b := retry.WithMaxRetries(g.cfg.MaxRetries, retry.NewFibonacci(g.cfg.Backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create gemini request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.cfg.APIKey)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("gemini request failed: %w", err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read gemini response: %w", err))
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("gemini api error (status %d): %s", resp.StatusCode, truncate(string(data), 300))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				g.log.Warn("gemini call failed, retrying", "status", resp.StatusCode)
				return retry.RetryableError(err)
			}
			return err
		}

		out = geminiResponse{}
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal gemini response: %w", err)
		}
		return nil
	})
	if err != nil {
		return geminiContent{}, err
	}

	if out.Error != nil {
		return geminiContent{}, fmt.Errorf("gemini api returned error: %s", out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return geminiContent{}, errors.New("no candidates returned from gemini")
	}
	return out.Candidates[0].Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
