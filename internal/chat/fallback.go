package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
)

// Fallback answers from keyword rules when no model is configured or the
// model call fails. Rules are checked in order and the first match wins.
type Fallback struct {
	tools *Toolbox
}

func NewFallback(tools *Toolbox) *Fallback {
	return &Fallback{tools: tools}
}

var (
	emergencyTriggers = []string{"chest pain", "can't breathe", "heart attack", "stroke", "unconscious", "bleeding heavily"}
	symptomTriggers   = []string{"headache", "pain", "fever", "nausea", "tired", "fatigue", "cough", "sore", "ache", "dizzy", "symptom", "feeling sick", "not feeling well", "hurt"}
	diabetesTriggers  = []string{"diabetes", "blood sugar", "glucose", "insulin"}
	heartTriggers     = []string{"heart", "cardiac", "cholesterol", "cardiovascular"}
	nutritionTriggers = []string{"diet", "nutrition", "meal", "eat", "food", "healthy eating"}
	greetingTriggers  = []string{"hello", "hi", "hey", "morning", "evening"}
)

const (
	emergencyReply = "**EMERGENCY**: Based on what you've described, this sounds like a medical emergency. " +
		"Please **CALL 911 (or your local emergency number) IMMEDIATELY**.\n\n" +
		"While waiting for help:\n" +
		"• Stay calm and try to remain still\n" +
		"• If someone is with you, let them know\n" +
		"• Do not drive yourself to the hospital\n\n" +
		"This is not a medical diagnosis. When in doubt, always call emergency services."

	diabetesReply = "I'd be happy to help assess your diabetes risk!\n\n" +
		"To provide an accurate assessment, I'll need some health metrics:\n" +
		"• **Age**\n• **BMI** (or height and weight)\n• **Fasting glucose** (mg/dL)\n" +
		"• **Blood pressure** (systolic/diastolic)\n\n" +
		"You can also use the **Risk Assessment** page in the sidebar for a comprehensive analysis.\n\n" +
		"This is not a medical diagnosis."

	heartReply = "Let's look at your heart health!\n\n" +
		"For a heart disease risk assessment, I'll need:\n" +
		"• **Age**\n• **BMI**\n• **Cholesterol** levels\n" +
		"• **Blood pressure**\n• **Smoking status**\n\n" +
		"Head to the **Risk Assessment** page for a detailed analysis.\n\n" +
		"This is not a medical diagnosis."

	nutritionReply = "Great question about nutrition!\n\n" +
		"I can create a personalized nutrition plan based on your health profile. " +
		"Visit the **Nutrition Plan** page to get customized meal plans and dietary recommendations " +
		"tailored to your risk factors.\n\n" +
		"Key tips for everyone:\n" +
		"• Eat plenty of fruits and vegetables\n" +
		"• Choose whole grains over refined grains\n" +
		"• Limit added sugars and sodium\n" +
		"• Stay hydrated (aim for 8 glasses of water)\n\n" +
		"For specific dietary needs, consult a registered dietitian."

	greetingReply = "Hello! I'm HealthLens AI, your personal health assistant.\n\n" +
		"I can help you with:\n" +
		"• **Symptom Analysis**: describe what you're feeling\n" +
		"• **Risk Assessment**: check your disease risk\n" +
		"• **Nutrition Plans**: get dietary advice\n\n" +
		"How can I help you today?\n\n" +
		"Remember: I'm an AI assistant, not a doctor."

	defaultReply = "Thank you for your message!\n\n" +
		"I can help with:\n" +
		"• **Symptom analysis**: tell me how you're feeling\n" +
		"• **Disease risk prediction**: diabetes, heart disease\n" +
		"• **Nutrition advice**: personalized meal plans\n\n" +
		"Could you share more about what you'd like help with?\n\n" +
		"This is not a medical diagnosis. Always consult a healthcare provider for medical decisions."
)

// Respond answers the last message in history.
func (f *Fallback) Respond(ctx context.Context, history []Message) (Reply, error) {
	var message string
	if len(history) > 0 {
		message = history[len(history)-1].Content
	}
	text := strings.ToLower(message)
	reply := func(content string) (Reply, error) {
		return Reply{Role: RoleAssistant, Content: content}, nil
	}

	switch {
	case containsAny(text, emergencyTriggers):
		return reply(emergencyReply)
	case containsAny(text, symptomTriggers):
		args, err := json.Marshal(symptomArgs{Description: message})
		if err != nil {
			return Reply{}, err
		}
		out, err := f.tools.Call(ctx, ToolCall{Name: ToolAnalyzeSymptoms, Args: args})
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Role:      RoleAssistant,
			Content:   formatSymptomAnalysis(out.(clinical.SymptomAnalysis)),
			ToolCalls: []ToolUse{{Name: ToolAnalyzeSymptoms}},
		}, nil
	case containsAny(text, diabetesTriggers):
		return reply(diabetesReply)
	case containsAny(text, heartTriggers):
		return reply(heartReply)
	case containsAny(text, nutritionTriggers):
		return reply(nutritionReply)
	case containsAny(text, greetingTriggers):
		return reply(greetingReply)
	}
	return reply(defaultReply)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func formatSymptomAnalysis(a clinical.SymptomAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Urgency Level: %s**\n\n", strings.ToUpper(string(a.UrgencyLevel)))

	if len(a.ClassifiedSymptoms) > 0 {
		b.WriteString("**Symptoms identified:**\n")
		for _, s := range a.ClassifiedSymptoms {
			fmt.Fprintf(&b, "• %s\n", s)
		}
		b.WriteString("\n")
	}

	if len(a.PossibleConditions) > 0 {
		b.WriteString("**Possible conditions:**\n")
		for _, c := range a.PossibleConditions {
			fmt.Fprintf(&b, "• %s (%.0f%% match)\n", c.Name, c.Probability*100)
		}
		b.WriteString("\n")
	}

	if len(a.Recommendations) > 0 {
		b.WriteString("**Recommendations:**\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}

	b.WriteString("\n**This is not a medical diagnosis.** Please consult a healthcare professional for proper evaluation.")
	return b.String()
}
