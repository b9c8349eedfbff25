// Package clinical holds the rule-based scoring core: the symptom matcher,
// the weighted-feature risk scorer and the nutrition advisor. Everything here
// is a pure function over process-wide read-only tables, so a single value
// can be shared by every request goroutine without locking.
package clinical

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownDisease is returned for a disease type without a weight table.
var ErrUnknownDisease = errors.New("unknown disease type")

type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyModerate  Urgency = "moderate"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

var urgencyPriority = map[Urgency]int{
	UrgencyLow:       1,
	UrgencyModerate:  2,
	UrgencyHigh:      3,
	UrgencyEmergency: 4,
}

// Priority orders urgencies low < moderate < high < emergency. Unknown
// values rank below low.
func (u Urgency) Priority() int {
	return urgencyPriority[u]
}

func (u Urgency) Valid() bool {
	_, ok := urgencyPriority[u]
	return ok
}

type DiseaseType string

const (
	Diabetes     DiseaseType = "diabetes"
	HeartDisease DiseaseType = "heart_disease"
)

// ParseDiseaseType accepts the canonical names plus the hyphenated spelling
// used in URLs.
func ParseDiseaseType(s string) (DiseaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "diabetes":
		return Diabetes, nil
	case "heart_disease", "heart-disease":
		return HeartDisease, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDisease, s)
	}
}

// DisplayName is the wording used in explanations.
func (d DiseaseType) DisplayName() string {
	return strings.ReplaceAll(string(d), "_", " ")
}

type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskModerate RiskCategory = "moderate"
	RiskHigh     RiskCategory = "high"
)

func (c RiskCategory) Valid() bool {
	switch c {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

// elevated reports whether the category triggers targeted advice.
func (c RiskCategory) elevated() bool {
	return c == RiskModerate || c == RiskHigh
}

// Categorize bands a risk score. Each band includes its lower bound.
func Categorize(score float64) RiskCategory {
	switch {
	case score < 0.3:
		return RiskLow
	case score < 0.6:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// HealthScore turns the latest risk score per disease into a 0-100 score.
// With nothing assessed yet it reports 85.
func HealthScore(latest []float64) int {
	if len(latest) == 0 {
		return 85
	}
	var sum float64
	for _, s := range latest {
		sum += s
	}
	score := int((1 - sum/float64(len(latest))) * 100)
	return max(0, min(100, score))
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
