package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps records in process memory. It is used when the database is
// disabled and in tests; contents are lost on restart.
type Memory struct {
	mu             sync.RWMutex
	symptomLogs    []SymptomLog
	predictions    []RiskPrediction
	nutritionPlans []NutritionPlanRecord
	vitals         []VitalRecord
	medications    []Medication
	medicationLogs []MedicationLog
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveSymptomLog(_ context.Context, rec *SymptomLog) error {
	stamp(&rec.ID, &rec.CreatedAt)
	m.mu.Lock()
	m.symptomLogs = append(m.symptomLogs, *rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListSymptomLogs(_ context.Context, userID string, limit int) ([]SymptomLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.symptomLogs, userID, limit, func(r SymptomLog) string { return r.UserID }), nil
}

func (m *Memory) CountSymptomLogs(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return count(m.symptomLogs, userID, func(r SymptomLog) string { return r.UserID }), nil
}

func (m *Memory) SaveRiskPrediction(_ context.Context, rec *RiskPrediction) error {
	stamp(&rec.ID, &rec.CreatedAt)
	m.mu.Lock()
	m.predictions = append(m.predictions, *rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListRiskPredictions(_ context.Context, userID string, limit int) ([]RiskPrediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.predictions, userID, limit, func(r RiskPrediction) string { return r.UserID }), nil
}

func (m *Memory) CountRiskPredictions(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return count(m.predictions, userID, func(r RiskPrediction) string { return r.UserID }), nil
}

func (m *Memory) SaveNutritionPlan(_ context.Context, rec *NutritionPlanRecord) error {
	stamp(&rec.ID, &rec.CreatedAt)
	m.mu.Lock()
	m.nutritionPlans = append(m.nutritionPlans, *rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) LatestNutritionPlan(_ context.Context, userID string) (NutritionPlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plans := newestFirst(m.nutritionPlans, userID, 1, func(r NutritionPlanRecord) string { return r.UserID })
	if len(plans) == 0 {
		return NutritionPlanRecord{}, ErrNotFound
	}
	return plans[0], nil
}

func (m *Memory) SaveVital(_ context.Context, rec *VitalRecord) error {
	stamp(&rec.ID, &rec.RecordedAt)
	if rec.Source == "" {
		rec.Source = "manual"
	}
	m.mu.Lock()
	m.vitals = append(m.vitals, *rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListVitals(_ context.Context, userID string, limit int) ([]VitalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.vitals, userID, limit, func(r VitalRecord) string { return r.UserID }), nil
}

func (m *Memory) LatestVital(ctx context.Context, userID string) (VitalRecord, error) {
	vitals, _ := m.ListVitals(ctx, userID, 1)
	if len(vitals) == 0 {
		return VitalRecord{}, ErrNotFound
	}
	return vitals[0], nil
}

func (m *Memory) AddMedication(_ context.Context, med *Medication) error {
	stamp(&med.ID, &med.CreatedAt)
	med.Active = true
	m.mu.Lock()
	m.medications = append(m.medications, *med)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListMedications(_ context.Context, userID string) ([]Medication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Medication, 0)
	for _, med := range m.medications {
		if med.UserID == userID {
			out = append(out, med)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeactivateMedication(_ context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.medicationIndex(userID, id)
	if i < 0 {
		return ErrNotFound
	}
	m.medications[i].Active = false
	return nil
}

func (m *Memory) LogMedication(_ context.Context, entry *MedicationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.medicationIndex(entry.UserID, entry.MedicationID) < 0 {
		return ErrNotFound
	}
	stamp(&entry.ID, &entry.LoggedAt)
	m.medicationLogs = append(m.medicationLogs, *entry)
	return nil
}

func (m *Memory) ListMedicationLogs(_ context.Context, userID string, limit int) ([]MedicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.medicationLogs, userID, limit, func(r MedicationLog) string { return r.UserID }), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

// medicationIndex expects m.mu to be held.
func (m *Memory) medicationIndex(userID string, id uuid.UUID) int {
	for i, med := range m.medications {
		if med.ID == id && med.UserID == userID {
			return i
		}
	}
	return -1
}

// newestFirst walks records backwards since they are appended in save order.
func newestFirst[T any](records []T, userID string, limit int, owner func(T) string) []T {
	out := make([]T, 0)
	for i := len(records) - 1; i >= 0; i-- {
		if owner(records[i]) != userID {
			continue
		}
		out = append(out, records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func count[T any](records []T, userID string, owner func(T) string) int {
	n := 0
	for _, r := range records {
		if owner(r) == userID {
			n++
		}
	}
	return n
}
