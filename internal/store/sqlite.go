// Package store persists evaluation verdicts to a local SQLite audit log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// SQLiteStore records evaluations using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id           TEXT PRIMARY KEY,
	district     TEXT NOT NULL,
	neighborhood TEXT NOT NULL,
	lot_main     TEXT NOT NULL,
	lot_sub      TEXT NOT NULL,
	code         INTEGER NOT NULL,
	disqualified INTEGER NOT NULL,
	house_type   TEXT,
	structure    TEXT,
	age_years    REAL,
	total_units  INTEGER,
	checks       TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_code ON evaluations(code);
CREATE INDEX IF NOT EXISTS idx_evaluations_key
	ON evaluations(district, neighborhood, lot_main, lot_sub);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Evaluation is a persisted verdict row.
type Evaluation struct {
	ID           string              `json:"id"`
	Key          bldrgst.LotKey      `json:"key"`
	Code         model.OutcomeCode   `json:"code"`
	Disqualified bool                `json:"disqualified"`
	HouseType    string              `json:"house_type"`
	Structure    string              `json:"structure"`
	AgeYears     *float64            `json:"age_years"`
	TotalUnits   *int                `json:"total_units"`
	Checks       []model.RuleOutcome `json:"checks"`
	CreatedAt    time.Time           `json:"created_at"`
}

// SaveVerdict appends one evaluation to the audit log.
func (s *SQLiteStore) SaveVerdict(ctx context.Context, key bldrgst.LotKey, v *model.Verdict) error {
	checksJSON, err := json.Marshal(v.Checks)
	if err != nil {
		return eris.Wrap(err, "store: marshal checks")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations
			(id, district, neighborhood, lot_main, lot_sub, code, disqualified,
			 house_type, structure, age_years, total_units, checks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		key.District, key.Neighborhood, key.LotMain, key.LotSub,
		int(v.Code), boolToInt(v.Disqualified),
		v.HouseType, v.Structure,
		nullFloat(v.AgeYears), nullInt(v.TotalUnits),
		string(checksJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "store: insert evaluation")
}

// ListByCode returns the most recent evaluations with the given code.
func (s *SQLiteStore) ListByCode(ctx context.Context, code model.OutcomeCode, limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, district, neighborhood, lot_main, lot_sub, code, disqualified,
		        house_type, structure, age_years, total_units, checks, created_at
		 FROM evaluations WHERE code = ? ORDER BY created_at DESC LIMIT ?`,
		int(code), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query evaluations")
	}
	defer rows.Close() //nolint:errcheck

	var out []Evaluation
	for rows.Next() {
		var e Evaluation
		var disq int
		var age sql.NullFloat64
		var units sql.NullInt64
		var checksJSON string
		if err := rows.Scan(&e.ID, &e.Key.District, &e.Key.Neighborhood,
			&e.Key.LotMain, &e.Key.LotSub, &e.Code, &disq,
			&e.HouseType, &e.Structure, &age, &units, &checksJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan evaluation")
		}
		e.Disqualified = disq != 0
		if age.Valid {
			e.AgeYears = &age.Float64
		}
		if units.Valid {
			n := int(units.Int64)
			e.TotalUnits = &n
		}
		if err := json.Unmarshal([]byte(checksJSON), &e.Checks); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal checks")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate evaluations")
}

// CountByCode returns evaluation counts grouped by outcome code.
func (s *SQLiteStore) CountByCode(ctx context.Context) (map[model.OutcomeCode]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, COUNT(*) FROM evaluations GROUP BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "store: count by code")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[model.OutcomeCode]int)
	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan count")
		}
		counts[model.OutcomeCode(code)] = n
	}
	return counts, eris.Wrap(rows.Err(), "store: iterate counts")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
