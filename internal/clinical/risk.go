package clinical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Intercept biases every linear score toward low risk.
const Intercept = -3.5

// FeatureWeight is one signed coefficient of a WeightTable.
type FeatureWeight struct {
	Feature string
	Weight  float64
}

// WeightTable is the fixed linear model for one disease. The feature order
// is the tie-break order for importance ranking.
type WeightTable struct {
	disease  DiseaseType
	features []FeatureWeight
}

func NewWeightTable(disease DiseaseType, features ...FeatureWeight) *WeightTable {
	return &WeightTable{disease: disease, features: append([]FeatureWeight(nil), features...)}
}

func (t *WeightTable) Disease() DiseaseType { return t.disease }

func (t *WeightTable) Features() []FeatureWeight {
	return append([]FeatureWeight(nil), t.features...)
}

// Illustrative constants, not a validated clinical model.
var (
	diabetesWeights = NewWeightTable(Diabetes,
		FeatureWeight{"age", 0.03},
		FeatureWeight{"bmi", 0.08},
		FeatureWeight{"glucose", 0.04},
		FeatureWeight{"blood_pressure_systolic", 0.015},
		FeatureWeight{"blood_pressure_diastolic", 0.01},
		FeatureWeight{"insulin", 0.005},
		FeatureWeight{"skin_thickness", 0.002},
		FeatureWeight{"pregnancies", 0.02},
		FeatureWeight{"smoking", 0.15},
		FeatureWeight{"alcohol", 0.1},
	)
	heartDiseaseWeights = NewWeightTable(HeartDisease,
		FeatureWeight{"age", 0.04},
		FeatureWeight{"bmi", 0.05},
		FeatureWeight{"cholesterol", 0.03},
		FeatureWeight{"blood_pressure_systolic", 0.025},
		FeatureWeight{"blood_pressure_diastolic", 0.02},
		FeatureWeight{"smoking", 0.25},
		FeatureWeight{"alcohol", 0.08},
		FeatureWeight{"glucose", 0.02},
	)
)

// Metrics maps a feature name to its numeric value. Absent features are
// skipped by the scorer.
type Metrics map[string]float64

// RiskInput is the typed shape of a risk request. Nil numeric fields are
// absent.
type RiskInput struct {
	Age                    *float64 `json:"age" binding:"required,gte=0,lte=130"`
	BMI                    *float64 `json:"bmi" binding:"required,gt=0,lte=100"`
	Glucose                *float64 `json:"glucose,omitempty" binding:"omitempty,gte=0"`
	Cholesterol            *float64 `json:"cholesterol,omitempty" binding:"omitempty,gte=0"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic" binding:"required,gt=0,lte=300"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic" binding:"required,gt=0,lte=200"`
	Insulin                *float64 `json:"insulin,omitempty" binding:"omitempty,gte=0"`
	SkinThickness          *float64 `json:"skin_thickness,omitempty" binding:"omitempty,gte=0"`
	Pregnancies            *float64 `json:"pregnancies,omitempty" binding:"omitempty,gte=0"`
	Smoking                *bool    `json:"smoking,omitempty"`
	Alcohol                *bool    `json:"alcohol,omitempty"`
}

// Metrics converts the input, mapping booleans to 1 and 0. Smoking and
// alcohol default to false, so they are always present.
func (in RiskInput) Metrics() Metrics {
	m := Metrics{}
	put := func(name string, v *float64) {
		if v != nil {
			m[name] = *v
		}
	}
	putBool := func(name string, v *bool) {
		m[name] = boolValue(v != nil && *v)
	}
	put("age", in.Age)
	put("bmi", in.BMI)
	put("glucose", in.Glucose)
	put("cholesterol", in.Cholesterol)
	put("blood_pressure_systolic", in.BloodPressureSystolic)
	put("blood_pressure_diastolic", in.BloodPressureDiastolic)
	put("insulin", in.Insulin)
	put("skin_thickness", in.SkinThickness)
	put("pregnancies", in.Pregnancies)
	putBool("smoking", in.Smoking)
	putBool("alcohol", in.Alcohol)
	return m
}

// MetricsFromMap converts loosely typed values such as decoded JSON tool
// arguments. Nil values are treated as absent.
func MetricsFromMap(values map[string]any) (Metrics, error) {
	m := make(Metrics, len(values))
	for k, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case bool:
			m[k] = boolValue(x)
		case float64:
			m[k] = x
		case float32:
			m[k] = float64(x)
		case int:
			m[k] = float64(x)
		case int64:
			m[k] = float64(x)
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", k, err)
			}
			m[k] = f
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, fmt.Errorf("feature %q: not numeric: %q", k, x)
			}
			m[k] = f
		default:
			return nil, fmt.Errorf("feature %q: unsupported value type %T", k, v)
		}
	}
	return m, nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FeatureImportance is a feature's share of the total absolute contribution.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// Importances is ranked by descending importance. It encodes as a JSON
// object whose key order follows the ranking.
type Importances []FeatureImportance

func (im Importances) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fi := range im {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fi.Feature)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(fi.Importance, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores the ranking, which storage such as JSONB does not
// preserve.
func (im *Importances) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*im = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("feature importance: expected object, got %v", tok)
	}
	out := Importances{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("feature importance %q: %w", key, err)
		}
		out = append(out, FeatureImportance{Feature: key, Importance: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	*im = out
	return nil
}

// Get returns the importance of a feature and whether it contributed.
func (im Importances) Get(feature string) (float64, bool) {
	for _, fi := range im {
		if fi.Feature == feature {
			return fi.Importance, true
		}
	}
	return 0, false
}

type RiskResult struct {
	DiseaseType       DiseaseType  `json:"disease_type"`
	RiskScore         float64      `json:"risk_score"`
	RiskCategory      RiskCategory `json:"risk_category"`
	FeatureImportance Importances  `json:"feature_importance"`
	Explanation       string       `json:"explanation"`
}

// RiskScorer applies a fixed logistic model per disease.
type RiskScorer struct {
	tables map[DiseaseType]*WeightTable
}

// NewRiskScorer uses the built-in diabetes and heart disease tables when no
// tables are given.
func NewRiskScorer(tables ...*WeightTable) *RiskScorer {
	if len(tables) == 0 {
		tables = []*WeightTable{diabetesWeights, heartDiseaseWeights}
	}
	s := &RiskScorer{tables: make(map[DiseaseType]*WeightTable, len(tables))}
	for _, t := range tables {
		s.tables[t.disease] = t
	}
	return s
}

// Predict scores metrics against the disease's table. Features missing from
// metrics contribute neither score nor importance.
func (s *RiskScorer) Predict(disease DiseaseType, metrics Metrics) (RiskResult, error) {
	table, ok := s.tables[disease]
	if !ok {
		return RiskResult{}, fmt.Errorf("%w: %q", ErrUnknownDisease, disease)
	}

	z := Intercept
	contributions := make(Importances, 0, len(table.features))
	var total float64
	for _, fw := range table.features {
		v, ok := metrics[fw.Feature]
		if !ok {
			continue
		}
		c := v * fw.Weight
		z += c
		abs := round(math.Abs(c), 4)
		total += abs
		contributions = append(contributions, FeatureImportance{Feature: fw.Feature, Importance: abs})
	}

	// Rank on the absolute contributions; normalized values can tie after rounding.
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].Importance > contributions[j].Importance
	})
	if total == 0 {
		total = 1
	}
	for i := range contributions {
		contributions[i].Importance = round(contributions[i].Importance/total, 3)
	}

	score := round(sigmoid(z), 4)
	category := Categorize(score)
	return RiskResult{
		DiseaseType:       disease,
		RiskScore:         score,
		RiskCategory:      category,
		FeatureImportance: contributions,
		Explanation:       explain(disease, score, category, contributions),
	}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

const riskDisclaimer = "\n\nDISCLAIMER: This is an AI-generated risk estimate and NOT a medical diagnosis. " +
	"Please consult a healthcare professional for proper evaluation."

func explain(disease DiseaseType, score float64, category RiskCategory, importance Importances) string {
	top := make([]string, 0, 3)
	for i := 0; i < len(importance) && i < 3; i++ {
		top = append(top, importance[i].Feature)
	}
	factors := "general health indicators"
	if len(top) > 0 {
		factors = strings.Join(top, ", ")
	}
	pct := fmt.Sprintf("%.0f%%", score*100)
	name := disease.DisplayName()

	switch category {
	case RiskLow:
		return fmt.Sprintf("Your estimated %s risk is LOW (%s). The main contributing factors are: %s. "+
			"Keep maintaining your current healthy lifestyle.%s", name, pct, factors, riskDisclaimer)
	case RiskModerate:
		return fmt.Sprintf("Your estimated %s risk is MODERATE (%s). Key contributing factors: %s. "+
			"Consider consulting a doctor for a detailed check-up and adopting preventive measures.%s", name, pct, factors, riskDisclaimer)
	default:
		return fmt.Sprintf("Your estimated %s risk is HIGH (%s). The top risk factors are: %s. "+
			"We strongly recommend scheduling a medical appointment for further evaluation.%s", name, pct, factors, riskDisclaimer)
	}
}
