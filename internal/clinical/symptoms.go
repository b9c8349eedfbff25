package clinical

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	maxConditions  = 3
	maxProbability = 0.95
	minProbability = 0.01
)

// Condition is one entry of the symptom catalog.
type Condition struct {
	Name        string
	Keywords    []string
	Urgency     Urgency
	Description string
}

// Catalog is an immutable set of conditions. Build it with NewCatalog.
type Catalog struct {
	conditions []Condition
	keywords   []string
}

// NewCatalog validates and copies conditions. Keywords are lower-cased and
// de-duplicated per condition.
func NewCatalog(conditions []Condition) (*Catalog, error) {
	c := &Catalog{conditions: make([]Condition, 0, len(conditions))}
	seen := make(map[string]bool)
	for _, cond := range conditions {
		if cond.Name == "" {
			return nil, fmt.Errorf("condition without a name")
		}
		if !cond.Urgency.Valid() {
			return nil, fmt.Errorf("condition %q: invalid urgency %q", cond.Name, cond.Urgency)
		}
		kws := make([]string, 0, len(cond.Keywords))
		own := make(map[string]bool)
		for _, kw := range cond.Keywords {
			kw = normalize(kw)
			if kw == "" || own[kw] {
				continue
			}
			own[kw] = true
			kws = append(kws, kw)
			if !seen[kw] {
				seen[kw] = true
				c.keywords = append(c.keywords, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("condition %q has no keywords", cond.Name)
		}
		cond.Keywords = kws
		c.conditions = append(c.conditions, cond)
	}
	return c, nil
}

func mustCatalog(conditions []Condition) *Catalog {
	c, err := NewCatalog(conditions)
	if err != nil {
		panic(err)
	}
	return c
}

// Conditions returns a copy of the catalog entries in catalog order.
func (c *Catalog) Conditions() []Condition {
	out := make([]Condition, len(c.conditions))
	for i, cond := range c.conditions {
		cond.Keywords = append([]string(nil), cond.Keywords...)
		out[i] = cond
	}
	return out
}

// Keywords returns every distinct keyword in first-appearance order.
func (c *Catalog) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

var defaultCatalog = mustCatalog([]Condition{
	{
		Name:        "Common Cold",
		Keywords:    []string{"cough", "runny nose", "sneeze", "sore throat", "congestion", "mild fever"},
		Urgency:     UrgencyLow,
		Description: "Viral upper respiratory tract infection. Usually resolves within 7-10 days.",
	},
	{
		Name:        "Influenza (Flu)",
		Keywords:    []string{"fever", "body ache", "chills", "fatigue", "cough", "headache", "muscle pain"},
		Urgency:     UrgencyModerate,
		Description: "Viral infection that can cause severe symptoms. Rest and fluids are essential.",
	},
	{
		Name:        "Migraine",
		Keywords:    []string{"headache", "nausea", "light sensitivity", "throbbing", "aura", "vision"},
		Urgency:     UrgencyModerate,
		Description: "Recurrent headache disorder. May require prescription medication.",
	},
	{
		Name:        "Gastroenteritis",
		Keywords:    []string{"diarrhea", "vomiting", "nausea", "stomach", "abdominal pain", "cramp"},
		Urgency:     UrgencyModerate,
		Description: "Inflammation of the stomach and intestines. Stay hydrated.",
	},
	{
		Name:        "Allergic Reaction",
		Keywords:    []string{"rash", "itching", "hives", "swelling", "watery eyes", "sneeze"},
		Urgency:     UrgencyModerate,
		Description: "Immune system response to an allergen. May range from mild to severe.",
	},
	{
		Name:        "Urinary Tract Infection",
		Keywords:    []string{"burning urination", "frequent urination", "pelvic pain", "cloudy urine", "urgency"},
		Urgency:     UrgencyModerate,
		Description: "Bacterial infection of the urinary system. Requires antibiotic treatment.",
	},
	{
		Name:        "Pneumonia",
		Keywords:    []string{"chest pain", "breathing difficulty", "high fever", "productive cough", "shortness of breath"},
		Urgency:     UrgencyHigh,
		Description: "Lung infection that can be serious. Seek medical attention.",
	},
	{
		Name:        "Heart Attack Warning Signs",
		Keywords:    []string{"chest pain", "left arm pain", "jaw pain", "shortness of breath", "sweating", "nausea"},
		Urgency:     UrgencyEmergency,
		Description: "Potential cardiac emergency. Call emergency services immediately.",
	},
	{
		Name:        "Stroke Warning Signs",
		Keywords:    []string{"sudden numbness", "confusion", "trouble speaking", "vision loss", "severe headache", "dizziness", "face drooping"},
		Urgency:     UrgencyEmergency,
		Description: "Potential neurological emergency. Call emergency services immediately.",
	},
	{
		Name:        "Type 2 Diabetes Symptoms",
		Keywords:    []string{"frequent urination", "excessive thirst", "blurred vision", "fatigue", "slow healing", "tingling"},
		Urgency:     UrgencyModerate,
		Description: "Metabolic disorder affecting blood sugar regulation. Requires medical evaluation.",
	},
})

// DefaultCatalog returns the built-in condition catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// ConditionMatch is a catalog condition that matched the described symptoms.
type ConditionMatch struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	Description string  `json:"description"`
	Urgency     Urgency `json:"urgency"`
}

type SymptomAnalysis struct {
	ClassifiedSymptoms []string         `json:"classified_symptoms"`
	PossibleConditions []ConditionMatch `json:"possible_conditions"`
	UrgencyLevel       Urgency          `json:"urgency_level"`
	Recommendations    []string         `json:"recommendations"`
}

const disclaimer = "DISCLAIMER: This is an AI-based assessment and NOT a medical diagnosis. " +
	"Always consult a qualified healthcare professional."

var urgencyAdvice = map[Urgency][]string{
	UrgencyEmergency: {
		"SEEK IMMEDIATE MEDICAL ATTENTION: call emergency services (911 / local emergency number) NOW.",
		"Do not drive yourself. Ask someone to take you or call an ambulance.",
	},
	UrgencyHigh: {
		"Schedule an urgent appointment with your doctor as soon as possible.",
		"If symptoms worsen rapidly, go to the nearest emergency room.",
	},
	UrgencyModerate: {
		"Consider booking a doctor's appointment within the next few days.",
		"Monitor your symptoms and note any changes.",
	},
	UrgencyLow: {
		"Your symptoms appear mild. Rest, stay hydrated, and monitor for changes.",
	},
}

// SymptomMatcher maps free-text symptom descriptions onto a catalog.
type SymptomMatcher struct {
	catalog *Catalog
}

// NewSymptomMatcher uses the default catalog when c is nil.
func NewSymptomMatcher(c *Catalog) *SymptomMatcher {
	if c == nil {
		c = defaultCatalog
	}
	return &SymptomMatcher{catalog: c}
}

// Analyze never fails: text that matches nothing yields a low-urgency result.
func (m *SymptomMatcher) Analyze(description string) SymptomAnalysis {
	found := m.extract(description)
	conditions := m.match(found)
	urgency := highestUrgency(conditions)

	symptoms := make([]string, 0, len(found))
	for _, kw := range m.catalog.keywords {
		if found[kw] {
			symptoms = append(symptoms, kw)
		}
	}

	return SymptomAnalysis{
		ClassifiedSymptoms: symptoms,
		PossibleConditions: conditions,
		UrgencyLevel:       urgency,
		Recommendations:    Recommendations(urgency),
	}
}

func (m *SymptomMatcher) extract(text string) map[string]bool {
	text = normalize(text)
	found := make(map[string]bool)
	if text == "" {
		return found
	}
	for _, kw := range m.catalog.keywords {
		if strings.Contains(text, kw) {
			found[kw] = true
		}
	}
	return found
}

func (m *SymptomMatcher) match(found map[string]bool) []ConditionMatch {
	matches := []ConditionMatch{}
	if len(found) == 0 {
		return matches
	}
	for _, cond := range m.catalog.conditions {
		hits := 0
		for _, kw := range cond.Keywords {
			if found[kw] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		p := round(min(float64(hits)/float64(len(cond.Keywords)), maxProbability), 2)
		matches = append(matches, ConditionMatch{
			Name:        cond.Name,
			Probability: max(p, minProbability),
			Description: cond.Description,
			Urgency:     cond.Urgency,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Probability > matches[j].Probability
	})
	if len(matches) > maxConditions {
		matches = matches[:maxConditions]
	}
	return matches
}

func highestUrgency(conditions []ConditionMatch) Urgency {
	urgency := UrgencyLow
	for _, c := range conditions {
		if c.Urgency.Priority() > urgency.Priority() {
			urgency = c.Urgency
		}
	}
	return urgency
}

// Recommendations returns the advice block for an urgency followed by the
// disclaimer, which is always last.
func Recommendations(u Urgency) []string {
	advice, ok := urgencyAdvice[u]
	if !ok {
		advice = urgencyAdvice[UrgencyLow]
	}
	out := make([]string, 0, len(advice)+1)
	out = append(out, advice...)
	return append(out, disclaimer)
}

// normalize folds compatibility forms and case. Matching runs on the folded
// text, so a classified keyword is a substring of the folded input and not
// always of the raw one (full-width letters fold to ASCII). A Caser keeps
// state, so each call gets its own.
func normalize(s string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(norm.NFKC.String(s)))
}
