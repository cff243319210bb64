package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schemagate/internal/errors"
	"schemagate/internal/evolution"
)

// SchemaRecord is one stored schema document
type SchemaRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Subject     string    `json:"subject"`
	Version     string    `json:"version"`
	Document    []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CheckRecord is one stored gate verdict
type CheckRecord struct {
	ID          string                       `json:"id"`
	Subject     string                       `json:"subject"`
	FromVersion string                       `json:"fromVersion"`
	ToVersion   string                       `json:"toVersion"`
	Level       evolution.CompatibilityLevel `json:"level"`
	Compatible  bool                         `json:"compatible"`
	Breaking    int                          `json:"breaking"`
	Risk        evolution.RiskLevel          `json:"risk"`
	Changes     []evolution.Change           `json:"changes"`
	CreatedAt   time.Time                    `json:"createdAt"`
}

// NewCheckRecord builds a record from an analysis verdict.
func NewCheckRecord(subject, from, to string, level evolution.CompatibilityLevel, a *evolution.EvolutionAnalysis) CheckRecord {
	return CheckRecord{
		Subject:     subject,
		FromVersion: from,
		ToVersion:   to,
		Level:       level,
		Compatible:  evolution.CheckCompatibilityLevel(a.Changes, level),
		Breaking:    a.RiskAssessment.BreakingChanges,
		Risk:        a.RiskAssessment.OverallRisk,
		Changes:     a.Changes,
	}
}

// PutSchema stores a document under its fingerprint. Storing the same
// fingerprint again keeps the first row.
func (db *DB) PutSchema(ctx context.Context, rec SchemaRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	doc, compressed := rec.Document, 0
	if db.compress {
		doc, compressed = db.enc.EncodeAll(rec.Document, nil), 1
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO schemas (fingerprint, subject, version, document, compressed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, rec.Fingerprint, rec.Subject, rec.Version, doc, compressed, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to store schema %s: %w", rec.Fingerprint, err)
	}

	db.logger.Debug("Stored schema",
		"fingerprint", rec.Fingerprint,
		"subject", rec.Subject,
		"version", rec.Version,
		"bytes", len(doc),
	)
	return nil
}

// GetSchema loads a document by fingerprint.
func (db *DB) GetSchema(ctx context.Context, fingerprint string) (*SchemaRecord, error) {
	var (
		rec        SchemaRecord
		doc        []byte
		compressed int
		createdAt  string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT fingerprint, subject, version, document, compressed, created_at
		FROM schemas WHERE fingerprint = ?
	`, fingerprint).Scan(&rec.Fingerprint, &rec.Subject, &rec.Version, &doc, &compressed, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewSchemaGateError(errors.SchemaNotFound, fmt.Sprintf("no stored schema with fingerprint %s", fingerprint), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", fingerprint, err)
	}

	if compressed != 0 {
		doc, err = db.dec.DecodeAll(doc, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress schema %s: %w", fingerprint, err)
		}
	}
	rec.Document = doc
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// RecordCheck stores a verdict and returns it with its ID and timestamp set.
func (db *DB) RecordCheck(ctx context.Context, rec CheckRecord) (CheckRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Changes == nil {
		rec.Changes = []evolution.Change{}
	}

	changesJSON, err := json.Marshal(rec.Changes)
	if err != nil {
		return rec, fmt.Errorf("failed to encode changes: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO checks (id, subject, from_version, to_version, level, compatible, breaking, risk, changes_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Subject, rec.FromVersion, rec.ToVersion, string(rec.Level), boolToInt(rec.Compatible),
		rec.Breaking, string(rec.Risk), string(changesJSON), formatTime(rec.CreatedAt))
	if err != nil {
		return rec, fmt.Errorf("failed to record check: %w", err)
	}

	db.logger.Debug("Recorded check",
		"id", rec.ID,
		"subject", rec.Subject,
		"from", rec.FromVersion,
		"to", rec.ToVersion,
		"compatible", rec.Compatible,
	)
	return rec, nil
}

// ListChecks returns up to limit verdicts for subject, newest first. An
// empty subject lists every subject; limit <= 0 means no limit.
func (db *DB) ListChecks(ctx context.Context, subject string, limit int) ([]CheckRecord, error) {
	query := `
		SELECT id, subject, from_version, to_version, level, compatible, breaking, risk, changes_json, created_at
		FROM checks`
	var args []any
	if subject != "" {
		query += " WHERE subject = ?"
		args = append(args, subject)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	out := []CheckRecord{}
	for rows.Next() {
		rec, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	return out, nil
}

// LatestCheck returns the newest verdict for subject, or nil when none exists.
func (db *DB) LatestCheck(ctx context.Context, subject string) (*CheckRecord, error) {
	recs, err := db.ListChecks(ctx, subject, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func scanCheck(rows *sql.Rows) (CheckRecord, error) {
	var (
		rec         CheckRecord
		level, risk string
		compatible  int
		changesJSON string
		createdAt   string
	)
	if err := rows.Scan(&rec.ID, &rec.Subject, &rec.FromVersion, &rec.ToVersion, &level,
		&compatible, &rec.Breaking, &risk, &changesJSON, &createdAt); err != nil {
		return rec, fmt.Errorf("failed to scan check: %w", err)
	}
	if err := json.Unmarshal([]byte(changesJSON), &rec.Changes); err != nil {
		return rec, fmt.Errorf("failed to decode changes of check %s: %w", rec.ID, err)
	}
	rec.Level = evolution.CompatibilityLevel(level)
	rec.Risk = evolution.RiskLevel(risk)
	rec.Compatible = compatible != 0
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
