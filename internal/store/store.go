package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
)

// ErrNotFound is returned when a row refers to a parent that does not exist
var ErrNotFound = errors.New("not found")

// RowCounts holds the number of rows per table, used for run metrics
type RowCounts struct {
	Elections   int
	Posts       int
	Ballots     int
	Cancelled   int
	People      int
	Candidacies int
}

// Repository is the persistence boundary used by the import pipeline and the read API.
// Get* methods return nil, nil when nothing matches.
type Repository interface {
	// InTx runs fn against a Repository bound to one transaction. Nested calls join the outer transaction.
	InTx(ctx context.Context, fn func(Repository) error) error

	GetElectionBySlug(ctx context.Context, slug string) (*model.Election, error)
	SaveElection(ctx context.Context, e *model.Election) error
	ListElections(ctx context.Context, currentOnly bool) ([]model.Election, error)
	MarkAnyNonByElections(ctx context.Context) (int64, error)
	DeleteElectionsBySlug(ctx context.Context, slugs []string) (int64, error)
	SaveVotingSystem(ctx context.Context, vs *model.VotingSystem) error

	GetPost(ctx context.Context, ynrID string) (*model.Post, error)
	SavePost(ctx context.Context, p *model.Post) error
	DeleteOrphanPosts(ctx context.Context) (int64, error)

	GetBallot(ctx context.Context, ballotPaperID string) (*model.Ballot, error)
	GetBallotByID(ctx context.Context, id int) (*model.Ballot, error)
	SaveBallot(ctx context.Context, b *model.Ballot) error
	ListCancelledBallots(ctx context.Context, currentOnly bool) ([]model.Ballot, error)
	ListBallotsForElection(ctx context.Context, electionID int) ([]model.Ballot, error)
	MaxBallotYNRModified(ctx context.Context) (*time.Time, error)
	DeleteBallotsByPaperID(ctx context.Context, ids []string) (int64, error)
	GetBallotDetail(ctx context.Context, ballotPaperID string) (*model.BallotDetail, error)

	SavePerson(ctx context.Context, p *model.Person) error
	GetParty(ctx context.Context, partyID string) (*model.Party, error)
	SaveParty(ctx context.Context, p *model.Party) error
	DeleteCandidaciesForBallot(ctx context.Context, ballotID int) (int64, error)
	CreateCandidacy(ctx context.Context, c *model.Candidacy, previousPartyIDs []string) error

	CountRows(ctx context.Context) (*RowCounts, error)
	RecordMetric(ctx context.Context, name, value string) error
	LatestMetrics(ctx context.Context) (map[string]string, error)
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the Postgres Repository
type Store struct {
	db   *sql.DB
	q    querier
	inTx bool
}

var _ Repository = (*Store)(nil)

// New creates a new Store
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// InTx runs fn inside a database transaction, committing only if fn returns nil
func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountRows returns per-table row counts
func (s *Store) CountRows(ctx context.Context) (*RowCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM elections),
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM ballots),
			(SELECT COUNT(*) FROM ballots WHERE cancelled),
			(SELECT COUNT(*) FROM people),
			(SELECT COUNT(*) FROM candidacies)
	`

	var c RowCounts
	err := s.q.QueryRowContext(ctx, query).Scan(
		&c.Elections,
		&c.Posts,
		&c.Ballots,
		&c.Cancelled,
		&c.People,
		&c.Candidacies,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	return &c, nil
}

// RecordMetric stores a single metric value
func (s *Store) RecordMetric(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO metrics (metric_name, metric_value, calculated_at)
		VALUES ($1, $2, $3)
	`

	if _, err := s.q.ExecContext(ctx, query, name, value, time.Now()); err != nil {
		return fmt.Errorf("failed to store metric %s: %w", name, err)
	}
	return nil
}

// LatestMetrics retrieves the most recent value of every metric
func (s *Store) LatestMetrics(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT DISTINCT ON (metric_name) metric_name, metric_value
		FROM metrics
		ORDER BY metric_name, calculated_at DESC
	`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[name] = value
	}

	return metrics, rows.Err()
}

// jsonArg converts a metadata blob to a driver value, storing NULL for an empty blob
func jsonArg(m []byte) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}
