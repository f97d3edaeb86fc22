package screening

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Store persists screening records in Postgres.
type Store struct {
	conn *pgx.Conn
}

// NewStore connects and makes sure the schema exists.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS screenings (
			id             TEXT PRIMARY KEY,
			session_id     TEXT NOT NULL,
			provenance     TEXT NOT NULL,
			quality_score  DOUBLE PRECISION NOT NULL,
			class          TEXT NOT NULL,
			confidence     DOUBLE PRECISION NOT NULL,
			heart_rate     DOUBLE PRECISION,
			oxygen_level   DOUBLE PRECISION,
			recommendation JSONB NOT NULL,
			image_url      TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating screenings table: %w", err)
	}
	return nil
}

// Insert writes one record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	recJSON, err := json.Marshal(rec.Recommendation)
	if err != nil {
		return fmt.Errorf("encoding recommendation: %w", err)
	}

	var hr, spo2 *float64
	if rec.Vitals != nil {
		hr, spo2 = &rec.Vitals.HeartRate, &rec.Vitals.OxygenLevel
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO screenings
			(id, session_id, provenance, quality_score, class, confidence,
			 heart_rate, oxygen_level, recommendation, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.SessionID, rec.Provenance, rec.QualityScore,
		rec.Classification.Class, rec.Classification.Confidence,
		hr, spo2, recJSON, rec.ImageURL, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting screening %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, session_id, provenance, quality_score, class, confidence,
		       heart_rate, oxygen_level, recommendation, image_url, created_at
		FROM screenings
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying screenings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			hr      *float64
			spo2    *float64
			recJSON []byte
			img     *string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Provenance,
			&rec.QualityScore, &rec.Classification.Class, &rec.Classification.Confidence,
			&hr, &spo2, &recJSON, &img, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning screening row: %w", err)
		}
		if hr != nil && spo2 != nil {
			rec.Vitals = &VitalSigns{HeartRate: *hr, OxygenLevel: *spo2, Status: vitalsStatus(*hr, *spo2)}
		}
		if img != nil {
			rec.ImageURL = *img
		}
		if err := json.Unmarshal(recJSON, &rec.Recommendation); err != nil {
			return nil, fmt.Errorf("decoding recommendation for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
