package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
	"github.com/sujith-mp/healthlens-ai/internal/store"
)

const historyLimit = 20

// Any description is analyzed, including an empty one; only a missing field
// is rejected. The body size limit bounds its length.
type symptomRequest struct {
	Description *string `json:"description" binding:"required"`
}

func (h *Handler) analyzeSymptoms(c *gin.Context) {
	var req symptomRequest
	if !bindJSON(c, &req) {
		return
	}

	rec := store.SymptomLog{
		UserID:          currentUser(c),
		RawInput:        *req.Description,
		SymptomAnalysis: h.matcher.Analyze(*req.Description),
	}
	if err := h.store.SaveSymptomLog(c.Request.Context(), &rec); err != nil {
		h.internalError(c, "save symptom log", err)
		return
	}
	h.log.Info("symptom check", "user_id", rec.UserID, "urgency", rec.UrgencyLevel)
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) symptomHistory(c *gin.Context) {
	limit, ok := limitParam(c, historyLimit, 100)
	if !ok {
		return
	}
	logs, err := h.store.ListSymptomLogs(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		h.internalError(c, "list symptom logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) predictRisk(c *gin.Context) {
	disease, err := clinical.ParseDiseaseType(c.Param("disease"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown disease type"})
		return
	}
	var in clinical.RiskInput
	if !bindJSON(c, &in) {
		return
	}

	metrics := in.Metrics()
	result, err := h.scorer.Predict(disease, metrics)
	if err != nil {
		h.internalError(c, "predict risk", err)
		return
	}
	rec := store.RiskPrediction{
		UserID:     currentUser(c),
		InputData:  metrics,
		RiskResult: result,
	}
	if err := h.store.SaveRiskPrediction(c.Request.Context(), &rec); err != nil {
		h.internalError(c, "save risk prediction", err)
		return
	}
	h.log.Info("risk prediction", "user_id", rec.UserID, "disease", disease, "category", result.RiskCategory)
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) riskHistory(c *gin.Context) {
	limit, ok := limitParam(c, historyLimit, 100)
	if !ok {
		return
	}
	preds, err := h.store.ListRiskPredictions(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		h.internalError(c, "list risk predictions", err)
		return
	}
	c.JSON(http.StatusOK, preds)
}

// nutritionPlan accepts the risk results to plan around as a JSON array.
func (h *Handler) nutritionPlan(c *gin.Context) {
	var risks []clinical.RiskSnapshot
	if !bindJSON(c, &risks) {
		return
	}

	rec := store.NutritionPlanRecord{
		UserID:        currentUser(c),
		NutritionPlan: clinical.PlanNutrition(risks),
	}
	if err := h.store.SaveNutritionPlan(c.Request.Context(), &rec); err != nil {
		h.internalError(c, "save nutrition plan", err)
		return
	}
	h.log.Info("nutrition plan", "user_id", rec.UserID, "risks", len(risks))
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) latestNutritionPlan(c *gin.Context) {
	rec, err := h.store.LatestNutritionPlan(c.Request.Context(), currentUser(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no nutrition plan yet"})
		return
	}
	if err != nil {
		h.internalError(c, "latest nutrition plan", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
