package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
	"github.com/sujith-mp/healthlens-ai/internal/store"
)

const riskBody = `{"age":30,"bmi":22,"glucose":90,"blood_pressure_systolic":110,"blood_pressure_diastolic":70,"smoking":true}`

func TestSymptomAnalyzeAndHistory(t *testing.T) {
	router := newTestRouter(Options{})

	w := do(router, "POST", "/api/v1/symptoms/analyze", `{"description":"I have chest pain and shortness of breath"}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	rec := decode[store.SymptomLog](t, w)
	if rec.ID == uuid.Nil || rec.UrgencyLevel != clinical.UrgencyEmergency || rec.RawInput == "" {
		t.Fatalf("unexpected symptom log %+v", rec)
	}

	w = do(router, "POST", "/api/v1/symptoms/analyze", `{}`, "u1")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing description, got %d", w.Code)
	}

	w = do(router, "POST", "/api/v1/symptoms/analyze", `{"description":""}`, "u3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty description, got %d %s", w.Code, w.Body.String())
	}
	empty := decode[store.SymptomLog](t, w)
	if empty.UrgencyLevel != clinical.UrgencyLow || len(empty.PossibleConditions) != 0 || len(empty.ClassifiedSymptoms) != 0 {
		t.Fatalf("expected low urgency with no matches, got %+v", empty)
	}

	long := `{"description":"` + strings.Repeat("fever ", 2000) + `"}`
	if w = do(router, "POST", "/api/v1/symptoms/analyze", long, "u3"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a long description, got %d", w.Code)
	}

	history := decode[[]store.SymptomLog](t, do(router, "GET", "/api/v1/symptoms/history", "", "u1"))
	if len(history) != 1 || history[0].ID != rec.ID {
		t.Fatalf("unexpected history %+v", history)
	}
	other := decode[[]store.SymptomLog](t, do(router, "GET", "/api/v1/symptoms/history", "", "u2"))
	if len(other) != 0 {
		t.Fatalf("history leaked across users: %+v", other)
	}
}

func TestPredictRisk(t *testing.T) {
	router := newTestRouter(Options{})

	for _, path := range []string{"/api/v1/risk/diabetes", "/api/v1/risk/heart-disease", "/api/v1/risk/heart_disease"} {
		w := do(router, "POST", path, riskBody, "u1")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d %s", path, w.Code, w.Body.String())
		}
		rec := decode[store.RiskPrediction](t, w)
		if !rec.RiskCategory.Valid() || rec.RiskScore <= 0 || rec.RiskScore >= 1 {
			t.Fatalf("%s: unexpected result %+v", path, rec)
		}
		if rec.InputData["smoking"] != 1 || rec.InputData["glucose"] != 90 {
			t.Fatalf("%s: input metrics not stored: %v", path, rec.InputData)
		}
	}

	w := do(router, "POST", "/api/v1/risk/cancer", riskBody, "u1")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown disease, got %d", w.Code)
	}

	history := decode[[]store.RiskPrediction](t, do(router, "GET", "/api/v1/risk/history?limit=2", "", "u1"))
	if len(history) != 2 || history[0].DiseaseType != clinical.HeartDisease {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestNutritionPlan(t *testing.T) {
	router := newTestRouter(Options{})

	w := do(router, "GET", "/api/v1/nutrition/latest", "", "u1")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any plan, got %d", w.Code)
	}

	w = do(router, "POST", "/api/v1/nutrition/plan", `[{"disease_type":"diabetes","risk_category":"extreme"}]`, "u1")
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "risk_category must be one of") {
		t.Fatalf("expected 422 for bad category, got %d %s", w.Code, w.Body.String())
	}

	w = do(router, "POST", "/api/v1/nutrition/plan", `[{"disease_type":"diabetes","risk_category":"high"}]`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	plan := decode[store.NutritionPlanRecord](t, w)
	if plan.RiskContext[clinical.Diabetes] != clinical.RiskHigh || len(plan.Diet.FoodsToLimit) == 0 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	latest := decode[store.NutritionPlanRecord](t, do(router, "GET", "/api/v1/nutrition/latest", "", "u1"))
	if latest.ID != plan.ID {
		t.Fatalf("expected latest plan %s, got %s", plan.ID, latest.ID)
	}

	w = do(router, "POST", "/api/v1/nutrition/plan", `[]`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected a general plan for no risks, got %d", w.Code)
	}
}

func TestChatRoutes(t *testing.T) {
	router := newTestRouter(Options{})

	w := do(router, "POST", "/api/v1/chat/message", `{"message":"hello"}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	reply := decode[map[string]any](t, w)
	if reply["role"] != "assistant" || !strings.Contains(reply["content"].(string), "HealthLens AI") {
		t.Fatalf("unexpected reply %v", reply)
	}
	if calls, ok := reply["tool_calls"].([]any); !ok || len(calls) != 0 {
		t.Fatalf("expected an empty tool_calls list, got %v", reply["tool_calls"])
	}

	w = do(router, "POST", "/api/v1/chat/message", `{"message":""}`, "u1")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty message, got %d", w.Code)
	}

	w = do(router, "DELETE", "/api/v1/chat/history", "", "u1")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "cleared") {
		t.Fatalf("unexpected clear response %d %s", w.Code, w.Body.String())
	}
}

func TestVitals(t *testing.T) {
	router := newTestRouter(Options{})

	w := do(router, "GET", "/api/v1/vitals/latest", "", "u1")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "No vitals recorded yet.") {
		t.Fatalf("unexpected empty latest %d %s", w.Code, w.Body.String())
	}

	for _, hr := range []int{70, 75, 80} {
		w := do(router, "POST", "/api/v1/vitals", fmt.Sprintf(`{"heart_rate":%d,"steps":4000}`, hr), "u1")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
		}
		if rec := decode[store.VitalRecord](t, w); rec.Source != "manual" {
			t.Fatalf("expected default source, got %q", rec.Source)
		}
	}

	w = do(router, "POST", "/api/v1/vitals", `{"source":"fitbit"}`, "u1")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown source, got %d", w.Code)
	}

	list := decode[[]store.VitalRecord](t, do(router, "GET", "/api/v1/vitals?limit=2", "", "u1"))
	if len(list) != 2 || *list[0].HeartRate != 80 {
		t.Fatalf("unexpected vitals %+v", list)
	}
	latest := decode[store.VitalRecord](t, do(router, "GET", "/api/v1/vitals/latest", "", "u1"))
	if latest.HeartRate == nil || *latest.HeartRate != 80 || latest.SleepHours != nil {
		t.Fatalf("unexpected latest %+v", latest)
	}

	if w := do(router, "GET", "/api/v1/vitals?limit=0", "", "u1"); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for limit=0, got %d", w.Code)
	}
}

func TestMedications(t *testing.T) {
	router := newTestRouter(Options{})

	type addResponse struct {
		Medication       store.Medication           `json:"medication"`
		InteractionCheck clinical.InteractionReport `json:"interaction_check"`
	}

	w := do(router, "POST", "/api/v1/medications", `{"name":"Nitroglycerin","dosage":"0.4mg","frequency":"as needed"}`, "u1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	nitro := decode[addResponse](t, w)
	if !nitro.Medication.Active || nitro.InteractionCheck.RiskLevel != clinical.SeverityLow {
		t.Fatalf("unexpected first medication response %+v", nitro)
	}

	w = do(router, "POST", "/api/v1/medications", `{"name":"Sildenafil","dosage":"50mg","frequency":"once daily"}`, "u1")
	second := decode[addResponse](t, w)
	if second.InteractionCheck.RiskLevel != clinical.SeverityHigh || len(second.InteractionCheck.Interactions) != 1 {
		t.Fatalf("expected a high interaction, got %+v", second.InteractionCheck)
	}

	if w := do(router, "POST", "/api/v1/medications", `{"name":"Aspirin"}`, "u1"); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing dosage, got %d", w.Code)
	}

	meds := decode[[]store.Medication](t, do(router, "GET", "/api/v1/medications", "", "u1"))
	if len(meds) != 2 || meds[0].Name != "Nitroglycerin" {
		t.Fatalf("expected medications ordered by name, got %+v", meds)
	}

	logBody := fmt.Sprintf(`{"medication_id":%q}`, nitro.Medication.ID)
	w = do(router, "POST", "/api/v1/medications/log", logBody, "u1")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"taken":true`) {
		t.Fatalf("unexpected log response %d %s", w.Code, w.Body.String())
	}
	if w := do(router, "POST", "/api/v1/medications/log", logBody, "u2"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when logging another user's medication, got %d", w.Code)
	}
	if w := do(router, "POST", "/api/v1/medications/log", `{"medication_id":"nope"}`, "u1"); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a malformed id, got %d", w.Code)
	}

	logs := decode[[]store.MedicationLog](t, do(router, "GET", "/api/v1/medications/history", "", "u1"))
	if len(logs) != 1 || logs[0].MedicationID != nitro.Medication.ID {
		t.Fatalf("unexpected medication history %+v", logs)
	}

	if w := do(router, "DELETE", "/api/v1/medications/"+second.Medication.ID.String(), "", "u2"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's medication, got %d", w.Code)
	}
	if w := do(router, "DELETE", "/api/v1/medications/not-a-uuid", "", "u1"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a malformed id, got %d", w.Code)
	}
	if w := do(router, "DELETE", "/api/v1/medications/"+second.Medication.ID.String(), "", "u1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	report := decode[clinical.InteractionReport](t, do(router, "GET", "/api/v1/medications/interactions", "", "u1"))
	if report.RiskLevel != clinical.SeverityLow || len(report.Interactions) != 0 {
		t.Fatalf("deactivated medication should not be screened, got %+v", report)
	}
}

func TestDashboardSummary(t *testing.T) {
	router := newTestRouter(Options{})

	empty := decode[dashboardSummary](t, do(router, "GET", "/api/v1/dashboard/summary", "", "u1"))
	if empty.HealthScore != 85 || len(empty.LatestRisks) != 0 || len(empty.RecentActivity) != 0 {
		t.Fatalf("unexpected empty summary %+v", empty)
	}

	risk := decode[store.RiskPrediction](t, do(router, "POST", "/api/v1/risk/diabetes", riskBody, "u1"))
	do(router, "POST", "/api/v1/symptoms/analyze", `{"description":"mild headache"}`, "u1")

	summary := decode[dashboardSummary](t, do(router, "GET", "/api/v1/dashboard/summary", "", "u1"))
	if summary.TotalAssessments != 1 || summary.TotalSymptomChecks != 1 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if got := summary.LatestRisks[clinical.Diabetes]; got.RiskScore != risk.RiskScore {
		t.Fatalf("unexpected latest risk %+v", got)
	}
	if want := int((1 - risk.RiskScore) * 100); summary.HealthScore != want {
		t.Fatalf("expected health score %d, got %d", want, summary.HealthScore)
	}
	if len(summary.RecentActivity) != 2 || summary.RecentActivity[0].Type != "symptom" {
		t.Fatalf("expected newest activity first, got %+v", summary.RecentActivity)
	}
}

func TestSummarizeRecentActivity(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	scores := []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	var risks []store.RiskPrediction
	for i, score := range scores {
		disease := clinical.Diabetes
		if i%2 == 1 {
			disease = clinical.HeartDisease
		}
		risks = append(risks, store.RiskPrediction{
			RiskResult: clinical.RiskResult{DiseaseType: disease, RiskScore: score, RiskCategory: clinical.RiskLow},
			CreatedAt:  base.Add(-time.Duration(i) * time.Hour),
		})
	}
	symptoms := []store.SymptomLog{
		{SymptomAnalysis: clinical.SymptomAnalysis{UrgencyLevel: clinical.UrgencyHigh}, CreatedAt: base.Add(-90 * time.Minute)},
		{SymptomAnalysis: clinical.SymptomAnalysis{UrgencyLevel: clinical.UrgencyLow}, CreatedAt: base.Add(-10 * time.Hour)},
	}

	out := summarize(risks, symptoms, 6, 2)

	if len(out.RiskTrend) != 6 || len(out.LatestRisks) != 2 {
		t.Fatalf("unexpected trend %d / latest %d", len(out.RiskTrend), len(out.LatestRisks))
	}
	if out.LatestRisks[clinical.HeartDisease].RiskScore != 0.3 {
		t.Fatalf("expected the newest heart score, got %+v", out.LatestRisks[clinical.HeartDisease])
	}
	if out.HealthScore != clinical.HealthScore([]float64{0.2, 0.3}) {
		t.Fatalf("unexpected health score %d", out.HealthScore)
	}

	if len(out.RecentActivity) != 5 {
		t.Fatalf("expected 5 activities, got %d", len(out.RecentActivity))
	}
	wantTypes := []string{"risk", "risk", "symptom", "risk", "symptom"}
	for i, a := range out.RecentActivity {
		if a.Type != wantTypes[i] {
			t.Fatalf("activity %d: expected %s, got %+v", i, wantTypes[i], out.RecentActivity)
		}
	}
	if out.RecentActivity[0].Title != "Diabetes Risk" || out.RecentActivity[1].Title != "Heart Disease Risk" {
		t.Fatalf("unexpected titles %+v", out.RecentActivity)
	}
	if out.RecentActivity[0].Desc != "Risk: 20% (low)" {
		t.Fatalf("unexpected desc %q", out.RecentActivity[0].Desc)
	}
}
