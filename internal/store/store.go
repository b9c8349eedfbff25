// Package store persists assessment results and tracking records per user.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sujith-mp/healthlens-ai/internal/clinical"
)

// ErrNotFound is returned for missing records and for records owned by
// another user.
var ErrNotFound = errors.New("store: not found")

type SymptomLog struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"-"`
	RawInput string    `json:"raw_input"`
	clinical.SymptomAnalysis
	CreatedAt time.Time `json:"created_at"`
}

type RiskPrediction struct {
	ID        uuid.UUID        `json:"id"`
	UserID    string           `json:"-"`
	InputData clinical.Metrics `json:"input_data"`
	clinical.RiskResult
	CreatedAt time.Time `json:"created_at"`
}

type NutritionPlanRecord struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"-"`
	clinical.NutritionPlan
	CreatedAt time.Time `json:"created_at"`
}

// Vitals is one set of readings. Nil fields were not measured.
type Vitals struct {
	Source                 string   `json:"source" binding:"omitempty,oneof=manual googlefit"`
	HeartRate              *float64 `json:"heart_rate" binding:"omitempty,gt=0,lte=300"`
	Steps                  *int     `json:"steps" binding:"omitempty,gte=0"`
	SleepHours             *float64 `json:"sleep_hours" binding:"omitempty,gte=0,lte=24"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic" binding:"omitempty,gt=0,lte=300"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic" binding:"omitempty,gt=0,lte=200"`
	BloodGlucose           *float64 `json:"blood_glucose" binding:"omitempty,gte=0"`
	WeightKg               *float64 `json:"weight_kg" binding:"omitempty,gt=0,lte=700"`
	Temperature            *float64 `json:"temperature" binding:"omitempty,gt=0,lte=50"`
	OxygenSaturation       *float64 `json:"oxygen_saturation" binding:"omitempty,gte=0,lte=100"`
}

type VitalRecord struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"-"`
	Vitals
	RecordedAt time.Time `json:"recorded_at"`
}

type Medication struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type MedicationLog struct {
	ID           uuid.UUID `json:"id"`
	MedicationID uuid.UUID `json:"medication_id"`
	UserID       string    `json:"-"`
	Taken        bool      `json:"taken"`
	Notes        string    `json:"notes,omitempty"`
	LoggedAt     time.Time `json:"logged_at"`
}

// Store is implemented by Postgres and Memory. Save methods assign the id
// and timestamp when they are zero. List methods return newest first; a
// limit of zero or less means no limit.
type Store interface {
	SaveSymptomLog(ctx context.Context, rec *SymptomLog) error
	ListSymptomLogs(ctx context.Context, userID string, limit int) ([]SymptomLog, error)
	CountSymptomLogs(ctx context.Context, userID string) (int, error)

	SaveRiskPrediction(ctx context.Context, rec *RiskPrediction) error
	ListRiskPredictions(ctx context.Context, userID string, limit int) ([]RiskPrediction, error)
	CountRiskPredictions(ctx context.Context, userID string) (int, error)

	SaveNutritionPlan(ctx context.Context, rec *NutritionPlanRecord) error
	LatestNutritionPlan(ctx context.Context, userID string) (NutritionPlanRecord, error)

	SaveVital(ctx context.Context, rec *VitalRecord) error
	ListVitals(ctx context.Context, userID string, limit int) ([]VitalRecord, error)
	LatestVital(ctx context.Context, userID string) (VitalRecord, error)

	AddMedication(ctx context.Context, med *Medication) error
	// ListMedications orders by name.
	ListMedications(ctx context.Context, userID string) ([]Medication, error)
	DeactivateMedication(ctx context.Context, userID string, id uuid.UUID) error
	// LogMedication fails with ErrNotFound unless the medication belongs to
	// the log's user.
	LogMedication(ctx context.Context, entry *MedicationLog) error
	ListMedicationLogs(ctx context.Context, userID string, limit int) ([]MedicationLog, error)

	Ping(ctx context.Context) error
	Close()
}

func stamp(id *uuid.UUID, at *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if at.IsZero() {
		*at = time.Now().UTC()
	}
}
