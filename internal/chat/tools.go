package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
)

var ErrUnknownTool = errors.New("chat: unknown tool")

type ToolName string

const (
	ToolAnalyzeSymptoms  ToolName = "analyze_symptoms"
	ToolDiabetesRisk     ToolName = "get_diabetes_risk"
	ToolHeartDiseaseRisk ToolName = "get_heart_disease_risk"
	ToolNutritionPlan    ToolName = "get_nutrition_plan"
)

// ToolCall is a function call requested by the model. Args is the raw JSON
// object of arguments.
type ToolCall struct {
	Name ToolName        `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionDeclaration describes a tool to the model. Parameters is an
// OpenAPI-style schema object.
type FunctionDeclaration struct {
	Name        ToolName       `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Toolbox runs the scoring core on behalf of the chat assistant.
type Toolbox struct {
	matcher *clinical.SymptomMatcher
	scorer  *clinical.RiskScorer
}

func NewToolbox(matcher *clinical.SymptomMatcher, scorer *clinical.RiskScorer) *Toolbox {
	return &Toolbox{matcher: matcher, scorer: scorer}
}

type symptomArgs struct {
	Description string `json:"description"`
}

type nutritionArgs struct {
	RiskPredictions []clinical.RiskSnapshot `json:"risk_predictions"`
}

// Call decodes the arguments for call.Name and returns the tool's result.
func (t *Toolbox) Call(ctx context.Context, call ToolCall) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch call.Name {
	case ToolAnalyzeSymptoms:
		var args symptomArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return nil, fmt.Errorf("%s: %w", call.Name, err)
		}
		if strings.TrimSpace(args.Description) == "" {
			return nil, fmt.Errorf("%s: description is required", call.Name)
		}
		return t.matcher.Analyze(args.Description), nil

	case ToolDiabetesRisk, ToolHeartDiseaseRisk:
		var raw map[string]any
		if err := decodeArgs(call.Args, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", call.Name, err)
		}
		metrics, err := clinical.MetricsFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", call.Name, err)
		}
		disease := clinical.Diabetes
		if call.Name == ToolHeartDiseaseRisk {
			disease = clinical.HeartDisease
		}
		return t.scorer.Predict(disease, metrics)

	case ToolNutritionPlan:
		var args nutritionArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return nil, fmt.Errorf("%s: %w", call.Name, err)
		}
		for _, r := range args.RiskPredictions {
			if !r.RiskCategory.Valid() {
				return nil, fmt.Errorf("%s: invalid risk category %q", call.Name, r.RiskCategory)
			}
		}
		return clinical.PlanNutrition(args.RiskPredictions), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

// Declarations lists every tool for the model's function-calling config.
func (t *Toolbox) Declarations() []FunctionDeclaration {
	number := map[string]any{"type": "number"}
	boolean := map[string]any{"type": "boolean"}
	return []FunctionDeclaration{
		{
			Name:        ToolAnalyzeSymptoms,
			Description: "Analyze user-described symptoms and return possible conditions with urgency level.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string", "description": "User's symptom description in natural language."},
				},
				"required": []string{"description"},
			},
		},
		{
			Name:        ToolDiabetesRisk,
			Description: "Predict diabetes risk based on health metrics.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"age": number, "bmi": number, "glucose": number,
					"blood_pressure_systolic": number, "blood_pressure_diastolic": number,
					"insulin": number, "smoking": boolean,
				},
				"required": []string{"age", "bmi", "glucose", "blood_pressure_systolic", "blood_pressure_diastolic"},
			},
		},
		{
			Name:        ToolHeartDiseaseRisk,
			Description: "Predict heart disease risk based on health metrics.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"age": number, "bmi": number, "cholesterol": number,
					"blood_pressure_systolic": number, "blood_pressure_diastolic": number,
					"smoking": boolean,
				},
				"required": []string{"age", "bmi", "blood_pressure_systolic", "blood_pressure_diastolic"},
			},
		},
		{
			Name:        ToolNutritionPlan,
			Description: "Generate personalized nutrition and lifestyle recommendations.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"risk_predictions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"disease_type":  map[string]any{"type": "string", "enum": []string{string(clinical.Diabetes), string(clinical.HeartDisease)}},
								"risk_category": map[string]any{"type": "string", "enum": []string{string(clinical.RiskLow), string(clinical.RiskModerate), string(clinical.RiskHigh)}},
							},
						},
					},
				},
				"required": []string{"risk_predictions"},
			},
		},
	}
}
