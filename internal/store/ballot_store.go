package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/lib/pq"
)

const ballotColumns = `
	b.id, b.ballot_paper_id, b.post_id, b.election_id, b.winner_count, b.contested, b.locked,
	b.cancelled, b.replaced_by_id, b.metadata, b.voting_system_slug, b.ynr_modified, b.updated_at
`

func scanBallot(row interface{ Scan(...any) error }, b *model.Ballot, extra ...any) error {
	dest := []any{
		&b.ID,
		&b.BallotPaperID,
		&b.PostID,
		&b.ElectionID,
		&b.WinnerCount,
		&b.Contested,
		&b.Locked,
		&b.Cancelled,
		&b.ReplacedByID,
		(*[]byte)(&b.Metadata),
		&b.VotingSystemSlug,
		&b.YNRModified,
		&b.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (s *Store) getBallot(ctx context.Context, where string, arg any) (*model.Ballot, error) {
	query := `SELECT ` + ballotColumns + ` FROM ballots b WHERE ` + where

	var b model.Ballot
	err := scanBallot(s.q.QueryRowContext(ctx, query, arg), &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ballot %v: %w", arg, err)
	}

	return &b, nil
}

// GetBallot retrieves a ballot by its ballot paper id
func (s *Store) GetBallot(ctx context.Context, ballotPaperID string) (*model.Ballot, error) {
	return s.getBallot(ctx, `b.ballot_paper_id = $1`, ballotPaperID)
}

// GetBallotByID retrieves a ballot by its row id
func (s *Store) GetBallotByID(ctx context.Context, id int) (*model.Ballot, error) {
	return s.getBallot(ctx, `b.id = $1`, id)
}

// SaveBallot inserts or updates a ballot keyed by ballot paper id and sets its ID
func (s *Store) SaveBallot(ctx context.Context, b *model.Ballot) error {
	query := `
		INSERT INTO ballots (ballot_paper_id, post_id, election_id, winner_count, contested, locked,
		                     cancelled, replaced_by_id, metadata, voting_system_slug, ynr_modified,
		                     updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ballot_paper_id) DO UPDATE SET
			post_id = EXCLUDED.post_id,
			election_id = EXCLUDED.election_id,
			winner_count = EXCLUDED.winner_count,
			contested = EXCLUDED.contested,
			locked = EXCLUDED.locked,
			cancelled = EXCLUDED.cancelled,
			replaced_by_id = EXCLUDED.replaced_by_id,
			metadata = EXCLUDED.metadata,
			voting_system_slug = EXCLUDED.voting_system_slug,
			ynr_modified = EXCLUDED.ynr_modified,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	b.UpdatedAt = time.Now()
	err := s.q.QueryRowContext(ctx, query,
		b.BallotPaperID,
		b.PostID,
		b.ElectionID,
		b.WinnerCount,
		b.Contested,
		b.Locked,
		b.Cancelled,
		b.ReplacedByID,
		jsonArg(b.Metadata),
		b.VotingSystemSlug,
		b.YNRModified,
		b.UpdatedAt,
	).Scan(&b.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert ballot %s: %w", b.BallotPaperID, err)
	}

	return nil
}

func (s *Store) listBallots(ctx context.Context, query string, args ...any) ([]model.Ballot, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ballots: %w", err)
	}
	defer rows.Close()

	var ballots []model.Ballot
	for rows.Next() {
		var b model.Ballot
		if err := scanBallot(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, b)
	}

	return ballots, rows.Err()
}

// ListCancelledBallots retrieves cancelled ballots, optionally only those in current elections
func (s *Store) ListCancelledBallots(ctx context.Context, currentOnly bool) ([]model.Ballot, error) {
	query := `
		SELECT ` + ballotColumns + `
		FROM ballots b
		JOIN elections e ON e.id = b.election_id
		WHERE b.cancelled
	`
	if currentOnly {
		query += ` AND e.current`
	}
	query += ` ORDER BY b.ballot_paper_id`

	return s.listBallots(ctx, query)
}

// ListBallotsForElection retrieves the ballots of one election
func (s *Store) ListBallotsForElection(ctx context.Context, electionID int) ([]model.Ballot, error) {
	query := `
		SELECT ` + ballotColumns + `
		FROM ballots b
		WHERE b.election_id = $1
		ORDER BY b.ballot_paper_id
	`
	return s.listBallots(ctx, query, electionID)
}

// MaxBallotYNRModified returns the newest upstream modification time stored, or nil if none is set
func (s *Store) MaxBallotYNRModified(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	if err := s.q.QueryRowContext(ctx, `SELECT MAX(ynr_modified) FROM ballots`).Scan(&t); err != nil {
		return nil, fmt.Errorf("failed to get last modified ballot: %w", err)
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

// DeleteBallotsByPaperID deletes the named ballots and, by cascade, their candidacies
func (s *Store) DeleteBallotsByPaperID(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM ballots WHERE ballot_paper_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete ballots: %w", err)
	}
	return res.RowsAffected()
}

// GetBallotDetail retrieves a ballot with its post, election, replacement and candidacies
func (s *Store) GetBallotDetail(ctx context.Context, ballotPaperID string) (*model.BallotDetail, error) {
	query := `
		SELECT ` + ballotColumns + `, r.ballot_paper_id,
		       p.ynr_id, p.label, p.territory, p.organisation_type, p.division_type, p.updated_at
		FROM ballots b
		JOIN posts p ON p.ynr_id = b.post_id
		LEFT JOIN ballots r ON r.id = b.replaced_by_id
		WHERE b.ballot_paper_id = $1
	`

	var d model.BallotDetail
	err := scanBallot(s.q.QueryRowContext(ctx, query, ballotPaperID), &d.Ballot,
		&d.ReplacedByPaperID,
		&d.Post.YNRID,
		&d.Post.Label,
		&d.Post.Territory,
		&d.Post.OrganisationType,
		&d.Post.DivisionType,
		&d.Post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ballot detail %s: %w", ballotPaperID, err)
	}

	electionQuery := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	if err := scanElection(s.q.QueryRowContext(ctx, electionQuery, d.ElectionID), &d.Election); err != nil {
		return nil, fmt.Errorf("failed to get election for ballot %s: %w", ballotPaperID, err)
	}

	candidacies, err := s.listCandidacyDetails(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.Candidacies = candidacies

	return &d, nil
}
