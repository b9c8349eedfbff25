package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Postgres stores records in PostgreSQL. Structured results are JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// Connect opens a pool and pings it before returning.
func Connect(ctx context.Context, url string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate creates missing tables and indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) SaveSymptomLog(ctx context.Context, rec *SymptomLog) error {
	stamp(&rec.ID, &rec.CreatedAt)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO symptom_logs (id, user_id, raw_input, classified_symptoms, possible_conditions, urgency_level, recommendations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.RawInput, rec.ClassifiedSymptoms, rec.PossibleConditions,
		string(rec.UrgencyLevel), rec.Recommendations, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert symptom log: %w", err)
	}
	return nil
}

func (p *Postgres) ListSymptomLogs(ctx context.Context, userID string, limit int) ([]SymptomLog, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, raw_input, classified_symptoms, possible_conditions, urgency_level, recommendations, created_at
		FROM symptom_logs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("query symptom logs: %w", err)
	}
	return collect(rows, func(row pgx.Row) (SymptomLog, error) {
		var rec SymptomLog
		err := row.Scan(&rec.ID, &rec.UserID, &rec.RawInput, &rec.ClassifiedSymptoms,
			&rec.PossibleConditions, &rec.UrgencyLevel, &rec.Recommendations, &rec.CreatedAt)
		return rec, err
	})
}

func (p *Postgres) CountSymptomLogs(ctx context.Context, userID string) (int, error) {
	return p.count(ctx, "symptom_logs", userID)
}

func (p *Postgres) SaveRiskPrediction(ctx context.Context, rec *RiskPrediction) error {
	stamp(&rec.ID, &rec.CreatedAt)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO risk_predictions (id, user_id, disease_type, risk_score, risk_category, input_data, feature_importance, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.UserID, string(rec.DiseaseType), rec.RiskScore, string(rec.RiskCategory),
		rec.InputData, rec.FeatureImportance, rec.Explanation, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert risk prediction: %w", err)
	}
	return nil
}

func (p *Postgres) ListRiskPredictions(ctx context.Context, userID string, limit int) ([]RiskPrediction, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, disease_type, risk_score, risk_category, input_data, feature_importance, explanation, created_at
		FROM risk_predictions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("query risk predictions: %w", err)
	}
	return collect(rows, func(row pgx.Row) (RiskPrediction, error) {
		var rec RiskPrediction
		err := row.Scan(&rec.ID, &rec.UserID, &rec.DiseaseType, &rec.RiskScore, &rec.RiskCategory,
			&rec.InputData, &rec.FeatureImportance, &rec.Explanation, &rec.CreatedAt)
		return rec, err
	})
}

func (p *Postgres) CountRiskPredictions(ctx context.Context, userID string) (int, error) {
	return p.count(ctx, "risk_predictions", userID)
}

func (p *Postgres) SaveNutritionPlan(ctx context.Context, rec *NutritionPlanRecord) error {
	stamp(&rec.ID, &rec.CreatedAt)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO nutrition_plans (id, user_id, risk_context, diet_recommendations, lifestyle_recommendations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserID, rec.RiskContext, rec.Diet, rec.Lifestyle, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert nutrition plan: %w", err)
	}
	return nil
}

func (p *Postgres) LatestNutritionPlan(ctx context.Context, userID string) (NutritionPlanRecord, error) {
	var rec NutritionPlanRecord
	err := p.pool.QueryRow(ctx, `
		SELECT id, user_id, risk_context, diet_recommendations, lifestyle_recommendations, created_at
		FROM nutrition_plans WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 1`, userID).
		Scan(&rec.ID, &rec.UserID, &rec.RiskContext, &rec.Diet, &rec.Lifestyle, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return NutritionPlanRecord{}, ErrNotFound
	}
	if err != nil {
		return NutritionPlanRecord{}, fmt.Errorf("query nutrition plan: %w", err)
	}
	return rec, nil
}

const vitalColumns = `id, user_id, source, heart_rate, steps, sleep_hours, blood_pressure_systolic,
	blood_pressure_diastolic, blood_glucose, weight_kg, temperature, oxygen_saturation, recorded_at`

func (p *Postgres) SaveVital(ctx context.Context, rec *VitalRecord) error {
	stamp(&rec.ID, &rec.RecordedAt)
	if rec.Source == "" {
		rec.Source = "manual"
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO vital_records (`+vitalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.UserID, rec.Source, rec.HeartRate, rec.Steps, rec.SleepHours,
		rec.BloodPressureSystolic, rec.BloodPressureDiastolic, rec.BloodGlucose,
		rec.WeightKg, rec.Temperature, rec.OxygenSaturation, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert vital record: %w", err)
	}
	return nil
}

func (p *Postgres) ListVitals(ctx context.Context, userID string, limit int) ([]VitalRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+vitalColumns+`
		FROM vital_records WHERE user_id = $1
		ORDER BY recorded_at DESC LIMIT $2`, userID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("query vitals: %w", err)
	}
	return collect(rows, scanVital)
}

func (p *Postgres) LatestVital(ctx context.Context, userID string) (VitalRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+vitalColumns+`
		FROM vital_records WHERE user_id = $1
		ORDER BY recorded_at DESC LIMIT 1`, userID)
	rec, err := scanVital(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return VitalRecord{}, ErrNotFound
	}
	if err != nil {
		return VitalRecord{}, fmt.Errorf("query latest vital: %w", err)
	}
	return rec, nil
}

func scanVital(row pgx.Row) (VitalRecord, error) {
	var rec VitalRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Source, &rec.HeartRate, &rec.Steps, &rec.SleepHours,
		&rec.BloodPressureSystolic, &rec.BloodPressureDiastolic, &rec.BloodGlucose,
		&rec.WeightKg, &rec.Temperature, &rec.OxygenSaturation, &rec.RecordedAt)
	return rec, err
}

func (p *Postgres) AddMedication(ctx context.Context, med *Medication) error {
	stamp(&med.ID, &med.CreatedAt)
	med.Active = true
	_, err := p.pool.Exec(ctx, `
		INSERT INTO medications (id, user_id, name, dosage, frequency, notes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		med.ID, med.UserID, med.Name, med.Dosage, med.Frequency, med.Notes, med.Active, med.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

func (p *Postgres) ListMedications(ctx context.Context, userID string) ([]Medication, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, name, dosage, frequency, notes, is_active, created_at
		FROM medications WHERE user_id = $1
		ORDER BY name, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query medications: %w", err)
	}
	return collect(rows, func(row pgx.Row) (Medication, error) {
		var med Medication
		err := row.Scan(&med.ID, &med.UserID, &med.Name, &med.Dosage, &med.Frequency,
			&med.Notes, &med.Active, &med.CreatedAt)
		return med, err
	})
}

func (p *Postgres) DeactivateMedication(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `UPDATE medications SET is_active = FALSE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivate medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) LogMedication(ctx context.Context, entry *MedicationLog) error {
	stamp(&entry.ID, &entry.LoggedAt)
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO medication_logs (id, medication_id, user_id, taken, notes, logged_at)
		SELECT $1, m.id, m.user_id, $4, $5, $6 FROM medications m
		WHERE m.id = $2 AND m.user_id = $3`,
		entry.ID, entry.MedicationID, entry.UserID, entry.Taken, entry.Notes, entry.LoggedAt)
	if err != nil {
		return fmt.Errorf("insert medication log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListMedicationLogs(ctx context.Context, userID string, limit int) ([]MedicationLog, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, medication_id, user_id, taken, notes, logged_at
		FROM medication_logs WHERE user_id = $1
		ORDER BY logged_at DESC LIMIT $2`, userID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("query medication logs: %w", err)
	}
	return collect(rows, func(row pgx.Row) (MedicationLog, error) {
		var entry MedicationLog
		err := row.Scan(&entry.ID, &entry.MedicationID, &entry.UserID, &entry.Taken, &entry.Notes, &entry.LoggedAt)
		return entry, err
	})
}

// count is only called with fixed table names.
func (p *Postgres) count(ctx context.Context, table, userID string) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// limitArg maps "no limit" to NULL, which LIMIT treats as unbounded.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
