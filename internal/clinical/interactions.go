package clinical

import (
	"sort"
	"strings"
)

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

var severityWeight = map[Severity]int{
	SeverityHigh:   40,
	SeverityMedium: 20,
	SeverityLow:    10,
}

type drugClass struct {
	label   string
	members []string
}

var (
	pde5Inhibitors   = drugClass{"PDE5 inhibitors", []string{"sildenafil", "tadalafil", "vardenafil", "avanafil"}}
	nitrates         = drugClass{"Nitrates", []string{"nitroglycerin", "isosorbide"}}
	alphaBlockers    = drugClass{"Alpha-blockers", []string{"tamsulosin", "doxazosin", "terazosin", "alfuzosin"}}
	cyp3a4Inhibitors = drugClass{"Strong CYP3A4 inhibitors", []string{"ketoconazole", "itraconazole", "ritonavir", "cobicistat", "clarithromycin"}}
	anticoagulants   = drugClass{"Anticoagulants", []string{"warfarin", "apixaban", "rivaroxaban", "dabigatran"}}
	nsaids           = drugClass{"NSAIDs", []string{"ibuprofen", "naproxen", "aspirin", "diclofenac"}}
	aceInhibitors    = drugClass{"ACE inhibitors", []string{"lisinopril", "enalapril", "ramipril", "captopril"}}
	potassiumSparing = drugClass{"Potassium-sparing diuretics", []string{"spironolactone", "eplerenone", "amiloride"}}
	statins          = drugClass{"Statins", []string{"simvastatin", "atorvastatin", "lovastatin"}}
)

type interactionRule struct {
	a, b     drugClass
	severity Severity
	note     string
}

var interactionRules = []interactionRule{
	{nitrates, pde5Inhibitors, SeverityHigh, "Risk of profound hypotension; avoid co-administration."},
	{alphaBlockers, pde5Inhibitors, SeverityMedium, "Additive hypotension; separate dosing and start low."},
	{cyp3a4Inhibitors, pde5Inhibitors, SeverityMedium, "Higher PDE5i levels; use lowest dose and monitor."},
	{anticoagulants, nsaids, SeverityHigh, "Increased bleeding risk; avoid unless a clinician has approved it."},
	{aceInhibitors, potassiumSparing, SeverityMedium, "Risk of high potassium; monitor blood levels."},
	{cyp3a4Inhibitors, statins, SeverityMedium, "Raised statin levels and muscle injury risk; review the dose."},
}

// Interaction is a rule that matched two of the listed medications.
type Interaction struct {
	Pair        string   `json:"pair"`
	Severity    Severity `json:"severity"`
	Note        string   `json:"note"`
	Medications []string `json:"medications"`
}

type InteractionReport struct {
	Interactions []Interaction `json:"interactions"`
	RiskScore    int           `json:"risk_score"`
	RiskLevel    Severity      `json:"risk_level"`
}

// CheckInteractions screens medication names against the interaction rules.
// Names match a drug class when they contain one of its members, so
// "Nitroglycerin 0.4mg" counts as a nitrate. Findings are ordered by
// severity, then rule order.
func CheckInteractions(medications []string) InteractionReport {
	var listed, names []string
	for _, m := range medications {
		if m = strings.TrimSpace(m); m != "" {
			listed = append(listed, m)
			names = append(names, strings.ToLower(m))
		}
	}

	report := InteractionReport{Interactions: []Interaction{}, RiskLevel: SeverityLow}
	for _, rule := range interactionRules {
		aMeds := classMembers(listed, names, rule.a)
		bMeds := classMembers(listed, names, rule.b)
		if len(aMeds) == 0 || len(bMeds) == 0 {
			continue
		}
		report.Interactions = append(report.Interactions, Interaction{
			Pair:        rule.a.label + " + " + rule.b.label,
			Severity:    rule.severity,
			Note:        rule.note,
			Medications: append(aMeds, bMeds...),
		})
		report.RiskScore += severityWeight[rule.severity]
	}
	sort.SliceStable(report.Interactions, func(i, j int) bool {
		return severityWeight[report.Interactions[i].Severity] > severityWeight[report.Interactions[j].Severity]
	})

	report.RiskScore = min(report.RiskScore, 100)
	switch {
	case hasSeverity(report.Interactions, SeverityHigh) || report.RiskScore >= 60:
		report.RiskLevel = SeverityHigh
	case hasSeverity(report.Interactions, SeverityMedium) || report.RiskScore >= 30:
		report.RiskLevel = SeverityMedium
	}
	return report
}

// classMembers returns the original spelling of every medication in class.
func classMembers(original, normalized []string, class drugClass) []string {
	var out []string
	for i, n := range normalized {
		for _, drug := range class.members {
			if strings.Contains(n, drug) {
				out = append(out, original[i])
				break
			}
		}
	}
	return out
}

func hasSeverity(items []Interaction, severity Severity) bool {
	for _, i := range items {
		if i.Severity == severity {
			return true
		}
	}
	return false
}
