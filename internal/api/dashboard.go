package api

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
	"github.com/sujith-mp/healthlens-ai/internal/store"
)

const (
	trendSize          = 10
	recentRisks        = 3
	recentSymptomLogs  = 2
	recentActivityKeep = 5
)

type riskSummary struct {
	DiseaseType  clinical.DiseaseType  `json:"disease_type"`
	RiskScore    float64               `json:"risk_score"`
	RiskCategory clinical.RiskCategory `json:"risk_category"`
	CreatedAt    time.Time             `json:"created_at"`
}

type trendPoint struct {
	DiseaseType clinical.DiseaseType `json:"disease_type"`
	RiskScore   float64              `json:"risk_score"`
	CreatedAt   time.Time            `json:"created_at"`
}

type activity struct {
	Type  string    `json:"type"`
	Title string    `json:"title"`
	Desc  string    `json:"desc"`
	Time  time.Time `json:"time"`
}

type dashboardSummary struct {
	HealthScore        int                                  `json:"health_score"`
	LatestRisks        map[clinical.DiseaseType]riskSummary `json:"latest_risks"`
	RiskTrend          []trendPoint                         `json:"risk_trend"`
	TotalAssessments   int                                  `json:"total_assessments"`
	TotalSymptomChecks int                                  `json:"total_symptom_checks"`
	RecentActivity     []activity                           `json:"recent_activity"`
}

// dashboardSummary aggregates the user's recent assessments. The store
// queries are independent and run concurrently.
func (h *Handler) dashboardSummary(c *gin.Context) {
	userID := currentUser(c)
	g, ctx := errgroup.WithContext(c.Request.Context())

	var (
		risks        []store.RiskPrediction
		symptoms     []store.SymptomLog
		riskCount    int
		symptomCount int
	)
	g.Go(func() (err error) {
		risks, err = h.store.ListRiskPredictions(ctx, userID, trendSize)
		return err
	})
	g.Go(func() (err error) {
		symptoms, err = h.store.ListSymptomLogs(ctx, userID, recentSymptomLogs)
		return err
	})
	g.Go(func() (err error) {
		riskCount, err = h.store.CountRiskPredictions(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		symptomCount, err = h.store.CountSymptomLogs(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.internalError(c, "dashboard summary", err)
		return
	}

	c.JSON(http.StatusOK, summarize(risks, symptoms, riskCount, symptomCount))
}

// summarize expects risks and symptoms newest first.
func summarize(risks []store.RiskPrediction, symptoms []store.SymptomLog, riskCount, symptomCount int) dashboardSummary {
	out := dashboardSummary{
		LatestRisks:        map[clinical.DiseaseType]riskSummary{},
		RiskTrend:          make([]trendPoint, 0, len(risks)),
		TotalAssessments:   riskCount,
		TotalSymptomChecks: symptomCount,
		RecentActivity:     []activity{},
	}

	var latestScores []float64
	for _, r := range risks {
		out.RiskTrend = append(out.RiskTrend, trendPoint{r.DiseaseType, r.RiskScore, r.CreatedAt})
		if _, seen := out.LatestRisks[r.DiseaseType]; !seen {
			out.LatestRisks[r.DiseaseType] = riskSummary{r.DiseaseType, r.RiskScore, r.RiskCategory, r.CreatedAt}
			latestScores = append(latestScores, r.RiskScore)
		}
	}
	out.HealthScore = clinical.HealthScore(latestScores)

	title := cases.Title(language.English)
	for _, r := range risks[:min(recentRisks, len(risks))] {
		out.RecentActivity = append(out.RecentActivity, activity{
			Type:  "risk",
			Title: title.String(r.DiseaseType.DisplayName()) + " Risk",
			Desc:  fmt.Sprintf("Risk: %.0f%% (%s)", r.RiskScore*100, r.RiskCategory),
			Time:  r.CreatedAt,
		})
	}
	for _, s := range symptoms {
		out.RecentActivity = append(out.RecentActivity, activity{
			Type:  "symptom",
			Title: "Symptom Check",
			Desc:  fmt.Sprintf("Urgency: %s", s.UrgencyLevel),
			Time:  s.CreatedAt,
		})
	}
	sort.SliceStable(out.RecentActivity, func(i, j int) bool {
		return out.RecentActivity[i].Time.After(out.RecentActivity[j].Time)
	})
	if len(out.RecentActivity) > recentActivityKeep {
		out.RecentActivity = out.RecentActivity[:recentActivityKeep]
	}
	return out
}
