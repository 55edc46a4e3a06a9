// Package sqlitestore keeps a local append-only audit trail of dispatch
// decisions in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
)

// Store wraps SQLite access for the decision audit table.
// It implements pipeline.Auditor.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and applies migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			triggered_rule TEXT NOT NULL,
			case_name TEXT,
			zone_id TEXT,
			time_delta_min REAL,
			decision_json TEXT NOT NULL,
			decided_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_mode ON decisions(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// Append inserts one decision row. Decisions are immutable; a duplicate ID is
// an error.
func (s *Store) Append(ctx context.Context, decision domain.DispatchDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("serialize dispatch decision: %w", err)
	}

	var caseName, zoneID string
	if decision.Case != nil {
		caseName = decision.Case.Name
	}
	if decision.Zone != nil {
		zoneID = decision.Zone.Zone.ID
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions(id, mode, triggered_rule, case_name, zone_id, time_delta_min, decision_json, decided_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		decision.ID, string(decision.Mode), decision.TriggeredRule, caseName, zoneID,
		decision.TimeDeltaMin, string(payload), decision.DecidedAt)
	if err != nil {
		return fmt.Errorf("append decision %s: %w", decision.ID, err)
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.DispatchDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT decision_json FROM decisions ORDER BY decided_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []domain.DispatchDecision
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var d domain.DispatchDecision
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, fmt.Errorf("decode stored decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// CountByMode returns decision counts grouped by response mode.
func (s *Store) CountByMode(ctx context.Context) (map[domain.Mode]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM decisions GROUP BY mode`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Mode]int)
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			return nil, err
		}
		counts[domain.Mode(mode)] = n
	}
	return counts, rows.Err()
}
