package clinical

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestAnalyze_MigraineDescription(t *testing.T) {
	m := NewSymptomMatcher(nil)
	result := m.Analyze("I have a severe headache, nausea, and sensitivity to light")

	want := []string{"headache", "nausea", "severe headache"}
	if !reflect.DeepEqual(result.ClassifiedSymptoms, want) {
		t.Fatalf("expected symptoms %v, got %v", want, result.ClassifiedSymptoms)
	}
	if len(result.PossibleConditions) != 3 {
		t.Fatalf("expected 3 conditions, got %+v", result.PossibleConditions)
	}
	top := result.PossibleConditions[0]
	if top.Name != "Migraine" || top.Probability != 0.33 {
		t.Fatalf("expected Migraine at 0.33 on top, got %+v", top)
	}
	// nausea also ties Gastroenteritis and the cardiac entry at 1/6; catalog
	// order keeps both in the top three and the cardiac entry sets urgency.
	if result.PossibleConditions[1].Name != "Gastroenteritis" || result.PossibleConditions[2].Name != "Heart Attack Warning Signs" {
		t.Fatalf("unexpected ranking: %+v", result.PossibleConditions)
	}
	if result.UrgencyLevel != UrgencyEmergency {
		t.Fatalf("expected emergency urgency, got %s", result.UrgencyLevel)
	}
}

func TestAnalyze_CardiacEmergency(t *testing.T) {
	m := NewSymptomMatcher(nil)
	result := m.Analyze("chest pain and shortness of breath and sweating")

	if len(result.PossibleConditions) == 0 {
		t.Fatal("expected matched conditions")
	}
	top := result.PossibleConditions[0]
	if top.Name != "Heart Attack Warning Signs" || top.Urgency != UrgencyEmergency || top.Probability != 0.5 {
		t.Fatalf("unexpected top condition %+v", top)
	}
	if result.PossibleConditions[1].Name != "Pneumonia" || result.PossibleConditions[1].Probability != 0.4 {
		t.Fatalf("expected Pneumonia second, got %+v", result.PossibleConditions[1])
	}
	if result.UrgencyLevel != UrgencyEmergency {
		t.Fatalf("expected emergency, got %s", result.UrgencyLevel)
	}
	if !strings.Contains(result.Recommendations[0], "emergency services") {
		t.Fatalf("first recommendation should direct to emergency services, got %q", result.Recommendations[0])
	}
}

func TestAnalyze_EmptyAndUnmatched(t *testing.T) {
	m := NewSymptomMatcher(nil)
	for _, input := range []string{"", "   ", "all good today, thanks"} {
		result := m.Analyze(input)
		if len(result.ClassifiedSymptoms) != 0 || len(result.PossibleConditions) != 0 {
			t.Fatalf("%q: expected no matches, got %+v", input, result)
		}
		if result.UrgencyLevel != UrgencyLow {
			t.Fatalf("%q: expected low urgency, got %s", input, result.UrgencyLevel)
		}
		if len(result.Recommendations) != 2 || result.Recommendations[1] != disclaimer {
			t.Fatalf("%q: unexpected recommendations %v", input, result.Recommendations)
		}
	}
}

func TestAnalyze_FoldsCompatibilityForms(t *testing.T) {
	raw := "ＨＥＡＤＡＣＨＥ since this morning"
	result := NewSymptomMatcher(nil).Analyze(raw)

	want := []string{"headache"}
	if !reflect.DeepEqual(result.ClassifiedSymptoms, want) {
		t.Fatalf("expected symptoms %v, got %v", want, result.ClassifiedSymptoms)
	}
	// The keyword is reported in folded form.
	if strings.Contains(strings.ToLower(raw), "headache") {
		t.Fatal("raw input should not contain the ASCII keyword")
	}
}

func TestAnalyze_UrgencyIsHighestAmongMatches(t *testing.T) {
	m := NewSymptomMatcher(nil)
	result := m.Analyze("Dry COUGH since Monday")

	if result.PossibleConditions[0].Name != "Common Cold" {
		t.Fatalf("expected Common Cold first, got %+v", result.PossibleConditions)
	}
	if result.UrgencyLevel != UrgencyModerate {
		t.Fatalf("influenza match should raise urgency to moderate, got %s", result.UrgencyLevel)
	}
}

func TestAnalyze_ProbabilityBounds(t *testing.T) {
	single, err := NewCatalog([]Condition{{Name: "Hives", Keywords: []string{"Hives"}, Urgency: UrgencyLow}})
	if err != nil {
		t.Fatal(err)
	}
	result := NewSymptomMatcher(single).Analyze("hives everywhere")
	if got := result.PossibleConditions[0].Probability; got != maxProbability {
		t.Fatalf("full match must cap at %.2f, got %v", maxProbability, got)
	}

	kws := make([]string, 250)
	for i := range kws {
		kws[i] = fmt.Sprintf("marker-%03d", i)
	}
	wide, err := NewCatalog([]Condition{{Name: "Wide", Keywords: kws, Urgency: UrgencyLow}})
	if err != nil {
		t.Fatal(err)
	}
	result = NewSymptomMatcher(wide).Analyze("marker-007")
	if got := result.PossibleConditions[0].Probability; got <= 0 {
		t.Fatalf("a matched condition must keep a positive probability, got %v", got)
	}
}

func TestNewCatalogValidation(t *testing.T) {
	cases := []struct {
		name string
		cond Condition
	}{
		{"no keywords", Condition{Name: "A", Urgency: UrgencyLow}},
		{"blank keywords", Condition{Name: "A", Keywords: []string{" ", ""}, Urgency: UrgencyLow}},
		{"bad urgency", Condition{Name: "A", Keywords: []string{"x"}, Urgency: "critical"}},
		{"no name", Condition{Keywords: []string{"x"}, Urgency: UrgencyLow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalog([]Condition{tc.cond}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCatalogIsImmutable(t *testing.T) {
	conds := DefaultCatalog().Conditions()
	conds[0].Keywords[0] = "mutated"
	conds[0].Name = "mutated"

	again := DefaultCatalog().Conditions()
	if again[0].Name != "Common Cold" || again[0].Keywords[0] != "cough" {
		t.Fatalf("catalog changed through a returned copy: %+v", again[0])
	}
}

func TestRecommendationsPerUrgency(t *testing.T) {
	cases := map[Urgency]string{
		UrgencyEmergency: "emergency services",
		UrgencyHigh:      "urgent appointment",
		UrgencyModerate:  "within the next few days",
		UrgencyLow:       "appear mild",
	}
	for urgency, phrase := range cases {
		recs := Recommendations(urgency)
		if !strings.Contains(recs[0], phrase) {
			t.Errorf("%s: expected %q in %q", urgency, phrase, recs[0])
		}
		if recs[len(recs)-1] != disclaimer {
			t.Errorf("%s: disclaimer must be last, got %q", urgency, recs[len(recs)-1])
		}
	}
}

// Random descriptions assembled from catalog keywords and filler words must
// always produce a well-formed analysis.
func TestAnalyze_Invariants(t *testing.T) {
	m := NewSymptomMatcher(nil)
	kws := DefaultCatalog().Keywords()
	filler := []string{"and", "since", "yesterday", "very", "I", "feel", "MY", "pain", "light"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		var words []string
		for n := rng.Intn(8); n > 0; n-- {
			if rng.Intn(2) == 0 {
				words = append(words, strings.ToUpper(kws[rng.Intn(len(kws))]))
			} else {
				words = append(words, filler[rng.Intn(len(filler))])
			}
		}
		input := strings.Join(words, " ")
		result := m.Analyze(input)

		seen := map[string]bool{}
		for _, s := range result.ClassifiedSymptoms {
			if seen[s] {
				t.Fatalf("%q: duplicate symptom %q", input, s)
			}
			seen[s] = true
			if !strings.Contains(strings.ToLower(input), s) {
				t.Fatalf("%q: symptom %q is not in the input", input, s)
			}
		}
		if len(result.PossibleConditions) > maxConditions {
			t.Fatalf("%q: too many conditions: %d", input, len(result.PossibleConditions))
		}
		for j, c := range result.PossibleConditions {
			if c.Probability <= 0 || c.Probability > maxProbability {
				t.Fatalf("%q: probability out of range: %+v", input, c)
			}
			if j > 0 && c.Probability > result.PossibleConditions[j-1].Probability {
				t.Fatalf("%q: conditions not sorted: %+v", input, result.PossibleConditions)
			}
		}
		if !result.UrgencyLevel.Valid() {
			t.Fatalf("%q: invalid urgency %q", input, result.UrgencyLevel)
		}
		if len(result.PossibleConditions) == 0 && result.UrgencyLevel != UrgencyLow {
			t.Fatalf("%q: expected low urgency without matches", input)
		}
	}
}
