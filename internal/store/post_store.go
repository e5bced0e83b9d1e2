package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
)

// GetPost retrieves a post by its registry id
func (s *Store) GetPost(ctx context.Context, ynrID string) (*model.Post, error) {
	query := `
		SELECT ynr_id, label, territory, organisation_type, division_type, updated_at
		FROM posts
		WHERE ynr_id = $1
	`

	var p model.Post
	err := s.q.QueryRowContext(ctx, query, ynrID).Scan(
		&p.YNRID,
		&p.Label,
		&p.Territory,
		&p.OrganisationType,
		&p.DivisionType,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", ynrID, err)
	}

	return &p, nil
}

// SavePost validates and upserts a post
func (s *Store) SavePost(ctx context.Context, p *model.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO posts (ynr_id, label, territory, organisation_type, division_type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ynr_id) DO UPDATE SET
			label = EXCLUDED.label,
			territory = EXCLUDED.territory,
			organisation_type = EXCLUDED.organisation_type,
			division_type = EXCLUDED.division_type,
			updated_at = EXCLUDED.updated_at
	`

	p.UpdatedAt = time.Now()
	_, err := s.q.ExecContext(ctx, query,
		p.YNRID,
		p.Label,
		p.Territory,
		p.OrganisationType,
		string(p.DivisionType),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post %s: %w", p.YNRID, err)
	}

	return nil
}

// DeleteOrphanPosts deletes every post that has no ballot
func (s *Store) DeleteOrphanPosts(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM posts p
		WHERE NOT EXISTS (SELECT 1 FROM ballots b WHERE b.post_id = p.ynr_id)
	`

	res, err := s.q.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan posts: %w", err)
	}
	return res.RowsAffected()
}
