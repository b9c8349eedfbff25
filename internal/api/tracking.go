package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
	"github.com/sujith-mp/healthlens-ai/internal/store"
)

func (h *Handler) recordVitals(c *gin.Context) {
	var in store.Vitals
	if !bindJSON(c, &in) {
		return
	}

	rec := store.VitalRecord{UserID: currentUser(c), Vitals: in}
	if err := h.store.SaveVital(c.Request.Context(), &rec); err != nil {
		h.internalError(c, "save vitals", err)
		return
	}
	h.log.Info("vitals recorded", "user_id", rec.UserID, "source", rec.Source)
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) listVitals(c *gin.Context) {
	limit, ok := limitParam(c, 30, 500)
	if !ok {
		return
	}
	vitals, err := h.store.ListVitals(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		h.internalError(c, "list vitals", err)
		return
	}
	c.JSON(http.StatusOK, vitals)
}

func (h *Handler) latestVitals(c *gin.Context) {
	rec, err := h.store.LatestVital(c.Request.Context(), currentUser(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"message": "No vitals recorded yet."})
		return
	}
	if err != nil {
		h.internalError(c, "latest vitals", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type medicationRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	Dosage    string `json:"dosage" binding:"required,max=100"`
	Frequency string `json:"frequency" binding:"required,max=100"`
	Notes     string `json:"notes" binding:"max=1000"`
}

type medicationLogRequest struct {
	MedicationID string `json:"medication_id" binding:"required,uuid"`
	// Taken defaults to true when omitted.
	Taken *bool  `json:"taken"`
	Notes string `json:"notes" binding:"max=1000"`
}

func (h *Handler) listMedications(c *gin.Context) {
	meds, err := h.store.ListMedications(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internalError(c, "list medications", err)
		return
	}
	c.JSON(http.StatusOK, meds)
}

// addMedication stores the medication and screens it against the user's
// other active medications.
func (h *Handler) addMedication(c *gin.Context) {
	var req medicationRequest
	if !bindJSON(c, &req) {
		return
	}

	med := store.Medication{
		UserID:    currentUser(c),
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		Notes:     req.Notes,
	}
	ctx := c.Request.Context()
	if err := h.store.AddMedication(ctx, &med); err != nil {
		h.internalError(c, "add medication", err)
		return
	}
	report, err := h.interactions(ctx, med.UserID)
	if err != nil {
		h.internalError(c, "check interactions", err)
		return
	}
	if report.RiskLevel != clinical.SeverityLow {
		h.log.Warn("medication interactions found", "user_id", med.UserID, "level", report.RiskLevel, "count", len(report.Interactions))
	}
	c.JSON(http.StatusOK, gin.H{"medication": med, "interaction_check": report})
}

func (h *Handler) removeMedication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "medication not found"})
		return
	}
	err = h.store.DeactivateMedication(c.Request.Context(), currentUser(c), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "medication not found"})
		return
	}
	if err != nil {
		h.internalError(c, "deactivate medication", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medication deactivated."})
}

func (h *Handler) logMedication(c *gin.Context) {
	var req medicationLogRequest
	if !bindJSON(c, &req) {
		return
	}

	entry := store.MedicationLog{
		MedicationID: uuid.MustParse(req.MedicationID),
		UserID:       currentUser(c),
		Taken:        req.Taken == nil || *req.Taken,
		Notes:        req.Notes,
	}
	err := h.store.LogMedication(c.Request.Context(), &entry)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "medication not found"})
		return
	}
	if err != nil {
		h.internalError(c, "log medication", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Medication logged.", "taken": entry.Taken})
}

func (h *Handler) medicationHistory(c *gin.Context) {
	logs, err := h.store.ListMedicationLogs(c.Request.Context(), currentUser(c), 50)
	if err != nil {
		h.internalError(c, "list medication logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) medicationInteractions(c *gin.Context) {
	report, err := h.interactions(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internalError(c, "check interactions", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// interactions screens the user's active medications.
func (h *Handler) interactions(ctx context.Context, userID string) (clinical.InteractionReport, error) {
	meds, err := h.store.ListMedications(ctx, userID)
	if err != nil {
		return clinical.InteractionReport{}, err
	}
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		if m.Active {
			names = append(names, m.Name)
		}
	}
	return clinical.CheckInteractions(names), nil
}
