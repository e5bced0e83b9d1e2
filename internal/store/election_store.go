package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/lib/pq"
)

const electionColumns = `
	id, slug, name, election_date, election_type, current, description, election_weight,
	uses_lists, voting_system_slug, metadata, any_non_by_elections, updated_at
`

func scanElection(row interface{ Scan(...any) error }, e *model.Election) error {
	return row.Scan(
		&e.ID,
		&e.Slug,
		&e.Name,
		&e.ElectionDate,
		&e.ElectionType,
		&e.Current,
		&e.Description,
		&e.ElectionWeight,
		&e.UsesLists,
		&e.VotingSystemSlug,
		(*[]byte)(&e.Metadata),
		&e.AnyNonByElections,
		&e.UpdatedAt,
	)
}

// GetElectionBySlug retrieves an election by its slug
func (s *Store) GetElectionBySlug(ctx context.Context, slug string) (*model.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE slug = $1`

	var e model.Election
	err := scanElection(s.q.QueryRowContext(ctx, query, slug), &e)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get election %s: %w", slug, err)
	}

	return &e, nil
}

// SaveElection inserts or updates an election keyed by slug and sets its ID
func (s *Store) SaveElection(ctx context.Context, e *model.Election) error {
	query := `
		INSERT INTO elections (slug, name, election_date, election_type, current, description,
		                       election_weight, uses_lists, voting_system_slug, metadata,
		                       any_non_by_elections, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			election_date = EXCLUDED.election_date,
			election_type = EXCLUDED.election_type,
			current = EXCLUDED.current,
			description = EXCLUDED.description,
			election_weight = EXCLUDED.election_weight,
			uses_lists = EXCLUDED.uses_lists,
			voting_system_slug = EXCLUDED.voting_system_slug,
			metadata = EXCLUDED.metadata,
			any_non_by_elections = EXCLUDED.any_non_by_elections,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	e.UpdatedAt = time.Now()
	err := s.q.QueryRowContext(ctx, query,
		e.Slug,
		e.Name,
		e.ElectionDate,
		string(e.ElectionType),
		e.Current,
		e.Description,
		e.ElectionWeight,
		e.UsesLists,
		e.VotingSystemSlug,
		jsonArg(e.Metadata),
		e.AnyNonByElections,
		e.UpdatedAt,
	).Scan(&e.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert election %s: %w", e.Slug, err)
	}

	return nil
}

// ListElections retrieves elections newest first, heaviest first within a date
func (s *Store) ListElections(ctx context.Context, currentOnly bool) ([]model.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections`
	if currentOnly {
		query += ` WHERE current`
	}
	query += ` ORDER BY election_date DESC, election_weight DESC, slug`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get elections: %w", err)
	}
	defer rows.Close()

	var elections []model.Election
	for rows.Next() {
		var e model.Election
		if err := scanElection(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}

	return elections, rows.Err()
}

// MarkAnyNonByElections flags current elections that have at least one ballot that is not a by-election
func (s *Store) MarkAnyNonByElections(ctx context.Context) (int64, error) {
	query := `
		UPDATE elections e
		SET any_non_by_elections = TRUE, updated_at = $1
		WHERE e.current
		  AND EXISTS (
			SELECT 1 FROM ballots b
			WHERE b.election_id = e.id AND b.ballot_paper_id NOT LIKE '%.by.%'
		  )
	`

	res, err := s.q.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark non by-elections: %w", err)
	}
	return res.RowsAffected()
}

// DeleteElectionsBySlug deletes the named elections and, by cascade, their ballots
func (s *Store) DeleteElectionsBySlug(ctx context.Context, slugs []string) (int64, error) {
	if len(slugs) == 0 {
		return 0, nil
	}

	res, err := s.q.ExecContext(ctx, `DELETE FROM elections WHERE slug = ANY($1)`, pq.Array(slugs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete elections: %w", err)
	}
	return res.RowsAffected()
}

// SaveVotingSystem inserts a voting system or updates its name
func (s *Store) SaveVotingSystem(ctx context.Context, vs *model.VotingSystem) error {
	query := `
		INSERT INTO voting_systems (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
	`

	if _, err := s.q.ExecContext(ctx, query, vs.Slug, vs.Name); err != nil {
		return fmt.Errorf("failed to upsert voting system %s: %w", vs.Slug, err)
	}
	return nil
}
