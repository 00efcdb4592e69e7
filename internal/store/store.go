// Package store persists organizations, assessments, responses and domain
// scores in SQLite.
//
// Domain scores are derived data: the service recomputes them inside the
// same transaction that writes the responses they come from.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/aismm/internal/scoring"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the database filename inside the data directory.
const DBFile = "aismm.db"

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// Organization is the subject of assessments.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry,omitempty"`
	Size      string    `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Assessment is one questionnaire run for an organization. Totals is nil
// until the assessment is completed.
type Assessment struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Status         scoring.Status  `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Totals         *scoring.Totals `json:"totals,omitempty"`
}

// Snapshot pairs the assessment with its domain scores.
func (a Assessment) Snapshot(scores []scoring.DomainScore) scoring.Snapshot {
	s := scoring.Snapshot{
		AssessmentID: a.ID,
		Status:       a.Status,
		StartedAt:    a.StartedAt,
		CompletedAt:  a.CompletedAt,
		DomainScores: scores,
	}
	if a.Totals != nil {
		s.Totals = *a.Totals
	}
	return s
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".aismm")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database under cfg.DataDir and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// foreign_keys and busy_timeout are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS organizations (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			industry   TEXT NOT NULL DEFAULT '',
			size       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS assessments (
			id               TEXT PRIMARY KEY,
			organization_id  TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'in_progress',
			started_at       TEXT NOT NULL,
			completed_at     TEXT,
			total_score      REAL,
			maturity_level   INTEGER,
			score_percent    REAL,
			domains_assessed INTEGER,
			domains_total    INTEGER,
			FOREIGN KEY (organization_id) REFERENCES organizations(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_assess_org ON assessments(organization_id, started_at);

		CREATE TABLE IF NOT EXISTS responses (
			assessment_id    TEXT NOT NULL,
			domain_id        TEXT NOT NULL,
			question_id      TEXT NOT NULL,
			response_index   INTEGER,
			response_value   REAL,
			response_bool    INTEGER,
			response_text    TEXT NOT NULL DEFAULT '',
			selected_options TEXT NOT NULL DEFAULT '[]',
			score            INTEGER,
			answered_at      TEXT NOT NULL,
			UNIQUE (assessment_id, question_id),
			FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_resp_domain ON responses(assessment_id, domain_id);

		CREATE TABLE IF NOT EXISTS domain_scores (
			assessment_id      TEXT    NOT NULL,
			domain_id          TEXT    NOT NULL,
			pillar_id          TEXT    NOT NULL,
			raw_score          REAL    NOT NULL DEFAULT 0,
			weighted_score     REAL    NOT NULL DEFAULT 0,
			maturity_level     INTEGER NOT NULL DEFAULT 0,
			questions_answered INTEGER NOT NULL DEFAULT 0,
			questions_scored   INTEGER NOT NULL DEFAULT 0,
			questions_total    INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (assessment_id, domain_id),
			FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Transactions ────────────────────────────────────────────────────────────

// Tx is a unit of work over the store. Use Store.WithTx to obtain one.
// The store holds a single connection, so code running inside WithTx must
// go through the Tx and never back through the Store.
type Tx struct {
	q querier
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Tx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// ─── Organizations ───────────────────────────────────────────────────────────

// CreateOrganization inserts a new organization with a generated id.
func (s *Store) CreateOrganization(ctx context.Context, name, industry, size string, now time.Time) (*Organization, error) {
	org := &Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Industry:  industry,
		Size:      size,
		CreatedAt: now.UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, industry, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Industry, org.Size, formatTime(org.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("store: create organization: %w", err)
	}
	return org, nil
}

// GetOrganization returns the organization with the given id.
func (s *Store) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, industry, size, created_at FROM organizations WHERE id = ?`, id,
	)
	var org Organization
	var created string
	if err := row.Scan(&org.ID, &org.Name, &org.Industry, &org.Size, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	org.CreatedAt = t
	return &org, nil
}

// ListOrganizations returns every organization ordered by name.
func (s *Store) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, industry, size, created_at FROM organizations ORDER BY name, id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Organization
	for rows.Next() {
		var org Organization
		var created string
		if err := rows.Scan(&org.ID, &org.Name, &org.Industry, &org.Size, &created); err != nil {
			return nil, err
		}
		if org.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// ─── Assessments ─────────────────────────────────────────────────────────────

// CreateAssessment starts a new in-progress assessment and seeds one
// unassessed score row per domain so partial data stays observable.
func (s *Store) CreateAssessment(ctx context.Context, orgID string, startedAt time.Time, seed []scoring.DomainScore) (*Assessment, error) {
	a := &Assessment{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Status:         scoring.StatusInProgress,
		StartedAt:      startedAt.UTC(),
	}
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := getOrganizationID(ctx, tx.q, orgID); err != nil {
			return err
		}
		_, err := tx.q.ExecContext(ctx,
			`INSERT INTO assessments (id, organization_id, status, started_at) VALUES (?, ?, ?, ?)`,
			a.ID, a.OrganizationID, string(a.Status), formatTime(a.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("store: create assessment: %w", err)
		}
		for _, ds := range seed {
			if err := tx.PutDomainScore(ctx, a.ID, ds); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssessment returns the assessment with the given id.
func (s *Store) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	return getAssessment(ctx, s.db, id)
}

// GetAssessment returns the assessment with the given id inside the tx.
func (tx *Tx) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	return getAssessment(ctx, tx.q, id)
}

// ListAssessments returns the assessments of an organization ordered by
// started_at, then id.
func (s *Store) ListAssessments(ctx context.Context, orgID string) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, assessmentSelect+` WHERE organization_id = ? ORDER BY started_at, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// DeleteAssessment removes an assessment together with its responses and
// domain scores.
func (s *Store) DeleteAssessment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete assessment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	return nil
}

// Complete stores the completion timestamp and totals of an assessment.
func (tx *Tx) Complete(ctx context.Context, id string, completedAt time.Time, t scoring.Totals) error {
	_, err := tx.q.ExecContext(ctx,
		`UPDATE assessments
		 SET status = ?, completed_at = ?, total_score = ?, maturity_level = ?,
		     score_percent = ?, domains_assessed = ?, domains_total = ?
		 WHERE id = ?`,
		string(scoring.StatusCompleted), formatTime(completedAt.UTC()),
		t.TotalScore, t.MaturityLevel, t.ScorePercent, t.DomainsAssessed, t.DomainsTotal, id,
	)
	if err != nil {
		return fmt.Errorf("store: complete assessment: %w", err)
	}
	return nil
}

// SetStatus changes the lifecycle state of an assessment. Transition rules
// are enforced by the caller.
func (tx *Tx) SetStatus(ctx context.Context, id string, status scoring.Status) error {
	_, err := tx.q.ExecContext(ctx, `UPDATE assessments SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("store: set status: %w", err)
	}
	return nil
}

// Snapshots loads every assessment of an organization with its domain
// scores.
func (s *Store) Snapshots(ctx context.Context, orgID string) ([]scoring.Snapshot, error) {
	assessments, err := s.ListAssessments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]scoring.Snapshot, 0, len(assessments))
	for _, a := range assessments {
		scores, err := s.DomainScores(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, a.Snapshot(scores))
	}
	return out, nil
}

// ─── Responses ───────────────────────────────────────────────────────────────

// UpsertResponse stores a scored response. A second answer to the same
// question replaces the first.
func (tx *Tx) UpsertResponse(ctx context.Context, r scoring.ScoredResponse, answeredAt time.Time) error {
	selected := r.Selected
	if selected == nil {
		selected = []string{}
	}
	sel, err := json.Marshal(selected)
	if err != nil {
		return fmt.Errorf("store: encode selected options: %w", err)
	}
	var score *int
	if r.Scored {
		score = &r.Score
	}
	var b *int
	if r.Bool != nil {
		v := 0
		if *r.Bool {
			v = 1
		}
		b = &v
	}

	_, err = tx.q.ExecContext(ctx,
		`INSERT INTO responses (assessment_id, domain_id, question_id, response_index, response_value,
		                        response_bool, response_text, selected_options, score, answered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (assessment_id, question_id) DO UPDATE SET
		   domain_id = excluded.domain_id,
		   response_index = excluded.response_index,
		   response_value = excluded.response_value,
		   response_bool = excluded.response_bool,
		   response_text = excluded.response_text,
		   selected_options = excluded.selected_options,
		   score = excluded.score,
		   answered_at = excluded.answered_at`,
		r.AssessmentID, r.DomainID, r.QuestionID, r.Index, r.Value,
		b, r.Text, string(sel), score, formatTime(answeredAt.UTC()),
	)
	if err != nil {
		return fmt.Errorf("store: upsert response %s: %w", r.QuestionID, err)
	}
	return nil
}

// DomainResponses returns the stored responses of one domain ordered by
// question id.
func (tx *Tx) DomainResponses(ctx context.Context, assessmentID, domainID string) ([]scoring.ScoredResponse, error) {
	return queryResponses(ctx, tx.q, responseSelect+` WHERE assessment_id = ? AND domain_id = ? ORDER BY question_id`,
		assessmentID, domainID)
}

// Responses returns every stored response of an assessment ordered by
// domain, then question id.
func (s *Store) Responses(ctx context.Context, assessmentID string) ([]scoring.ScoredResponse, error) {
	return queryResponses(ctx, s.db, responseSelect+responsesByAssessment, assessmentID)
}

// Responses returns every stored response of an assessment inside the tx.
func (tx *Tx) Responses(ctx context.Context, assessmentID string) ([]scoring.ScoredResponse, error) {
	return queryResponses(ctx, tx.q, responseSelect+responsesByAssessment, assessmentID)
}

// ─── Domain scores ───────────────────────────────────────────────────────────

// PutDomainScore inserts or replaces the score row of one domain.
func (tx *Tx) PutDomainScore(ctx context.Context, assessmentID string, ds scoring.DomainScore) error {
	_, err := tx.q.ExecContext(ctx,
		`INSERT OR REPLACE INTO domain_scores (assessment_id, domain_id, pillar_id, raw_score, weighted_score,
		                                      maturity_level, questions_answered, questions_scored, questions_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assessmentID, ds.DomainID, ds.PillarID, ds.RawScore, ds.WeightedScore,
		ds.MaturityLevel, ds.QuestionsAnswered, ds.QuestionsScored, ds.QuestionsTotal,
	)
	if err != nil {
		return fmt.Errorf("store: put domain score %s: %w", ds.DomainID, err)
	}
	return nil
}

// DomainScores returns the score rows of an assessment ordered by domain id.
func (s *Store) DomainScores(ctx context.Context, assessmentID string) ([]scoring.DomainScore, error) {
	return domainScores(ctx, s.db, assessmentID)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

const assessmentSelect = `
	SELECT id, organization_id, status, started_at, completed_at, total_score, maturity_level,
	       score_percent, domains_assessed, domains_total
	FROM assessments`

const responseSelect = `
	SELECT assessment_id, domain_id, question_id, response_index, response_value, response_bool,
	       response_text, selected_options, score
	FROM responses`

const responsesByAssessment = ` WHERE assessment_id = ? ORDER BY domain_id, question_id`

type scanner interface {
	Scan(dest ...any) error
}

func getOrganizationID(ctx context.Context, q querier, id string) (string, error) {
	var got string
	err := q.QueryRowContext(ctx, `SELECT id FROM organizations WHERE id = ?`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	return got, err
}

func getAssessment(ctx context.Context, q querier, id string) (*Assessment, error) {
	a, err := scanAssessment(q.QueryRowContext(ctx, assessmentSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	return a, err
}

func scanAssessment(row scanner) (*Assessment, error) {
	var (
		a                         Assessment
		status, started           string
		completed                 sql.NullString
		total, percent            sql.NullFloat64
		level, assessed, domTotal sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.OrganizationID, &status, &started, &completed,
		&total, &level, &percent, &assessed, &domTotal); err != nil {
		return nil, err
	}
	a.Status = scoring.Status(status)

	var err error
	if a.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		a.CompletedAt = &t
	}
	if total.Valid {
		a.Totals = &scoring.Totals{
			TotalScore:      total.Float64,
			MaturityLevel:   int(level.Int64),
			ScorePercent:    percent.Float64,
			DomainsAssessed: int(assessed.Int64),
			DomainsTotal:    int(domTotal.Int64),
		}
	}
	return &a, nil
}

func queryResponses(ctx context.Context, q querier, query string, args ...any) ([]scoring.ScoredResponse, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []scoring.ScoredResponse
	for rows.Next() {
		var (
			r     scoring.ScoredResponse
			idx   sql.NullInt64
			val   sql.NullFloat64
			b     sql.NullInt64
			sel   string
			score sql.NullInt64
		)
		if err := rows.Scan(&r.AssessmentID, &r.DomainID, &r.QuestionID, &idx, &val, &b,
			&r.Text, &sel, &score); err != nil {
			return nil, err
		}
		if idx.Valid {
			v := int(idx.Int64)
			r.Index = &v
		}
		if val.Valid {
			v := val.Float64
			r.Value = &v
		}
		if b.Valid {
			v := b.Int64 != 0
			r.Bool = &v
		}
		if err := json.Unmarshal([]byte(sel), &r.Selected); err != nil {
			return nil, fmt.Errorf("store: decode selected options of %s: %w", r.QuestionID, err)
		}
		if len(r.Selected) == 0 {
			r.Selected = nil
		}
		if score.Valid {
			r.Score = int(score.Int64)
			r.Scored = true
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func domainScores(ctx context.Context, q querier, assessmentID string) ([]scoring.DomainScore, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT domain_id, pillar_id, raw_score, weighted_score, maturity_level,
		        questions_answered, questions_scored, questions_total
		 FROM domain_scores WHERE assessment_id = ? ORDER BY domain_id`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []scoring.DomainScore
	for rows.Next() {
		var ds scoring.DomainScore
		if err := rows.Scan(&ds.DomainID, &ds.PillarID, &ds.RawScore, &ds.WeightedScore, &ds.MaturityLevel,
			&ds.QuestionsAnswered, &ds.QuestionsScored, &ds.QuestionsTotal); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse time %q: %w", s, err)
	}
	return t, nil
}
