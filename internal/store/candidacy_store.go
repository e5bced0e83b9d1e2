package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/lib/pq"
)

// SavePerson inserts or renames a person keyed by registry id and sets its ID
func (s *Store) SavePerson(ctx context.Context, p *model.Person) error {
	query := `
		INSERT INTO people (ynr_id, name)
		VALUES ($1, $2)
		ON CONFLICT (ynr_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	if err := s.q.QueryRowContext(ctx, query, p.YNRID, p.Name).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to upsert person %s: %w", p.YNRID, err)
	}
	return nil
}

// GetParty retrieves a party by its party id
func (s *Store) GetParty(ctx context.Context, partyID string) (*model.Party, error) {
	var p model.Party
	err := s.q.QueryRowContext(ctx, `SELECT party_id, name FROM parties WHERE party_id = $1`, partyID).Scan(
		&p.PartyID,
		&p.Name,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party %s: %w", partyID, err)
	}
	return &p, nil
}

// SaveParty inserts a party or updates its name
func (s *Store) SaveParty(ctx context.Context, p *model.Party) error {
	query := `
		INSERT INTO parties (party_id, name)
		VALUES ($1, $2)
		ON CONFLICT (party_id) DO UPDATE SET name = EXCLUDED.name
	`

	if _, err := s.q.ExecContext(ctx, query, p.PartyID, p.Name); err != nil {
		return fmt.Errorf("failed to upsert party %s: %w", p.PartyID, err)
	}
	return nil
}

// DeleteCandidaciesForBallot removes every candidacy on a ballot
func (s *Store) DeleteCandidaciesForBallot(ctx context.Context, ballotID int) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM candidacies WHERE ballot_id = $1`, ballotID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete candidacies for ballot %d: %w", ballotID, err)
	}
	return res.RowsAffected()
}

// CreateCandidacy inserts a candidacy and links its previous parties
func (s *Store) CreateCandidacy(ctx context.Context, c *model.Candidacy, previousPartyIDs []string) error {
	query := `
		INSERT INTO candidacies (person_id, post_id, election_id, ballot_id, party_id, party_name,
		                         party_description_text, list_position, elected, votes_cast)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := s.q.QueryRowContext(ctx, query,
		c.PersonID,
		c.PostID,
		c.ElectionID,
		c.BallotID,
		c.PartyID,
		c.PartyName,
		c.PartyDescriptionText,
		c.ListPosition,
		c.Elected,
		c.VotesCast,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create candidacy for person %d: %w", c.PersonID, err)
	}

	for _, partyID := range previousPartyIDs {
		linkQuery := `
			INSERT INTO candidacy_previous_parties (candidacy_id, party_id)
			VALUES ($1, $2)
			ON CONFLICT (candidacy_id, party_id) DO NOTHING
		`
		if _, err := s.q.ExecContext(ctx, linkQuery, c.ID, partyID); err != nil {
			return fmt.Errorf("failed to link candidacy %d to party %s: %w", c.ID, partyID, err)
		}
	}

	return nil
}

func (s *Store) listCandidacyDetails(ctx context.Context, ballotID int) ([]model.CandidacyDetail, error) {
	query := `
		SELECT c.id, c.person_id, c.post_id, c.election_id, c.ballot_id, c.party_id, c.party_name,
		       c.party_description_text, c.list_position, c.elected, c.votes_cast,
		       p.name, p.ynr_id,
		       COALESCE(ARRAY(
		           SELECT cp.party_id FROM candidacy_previous_parties cp
		           WHERE cp.candidacy_id = c.id ORDER BY cp.party_id
		       ), '{}')
		FROM candidacies c
		JOIN people p ON p.id = c.person_id
		WHERE c.ballot_id = $1
		ORDER BY c.list_position NULLS LAST, p.name
	`

	rows, err := s.q.QueryContext(ctx, query, ballotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidacies for ballot %d: %w", ballotID, err)
	}
	defer rows.Close()

	var out []model.CandidacyDetail
	for rows.Next() {
		var d model.CandidacyDetail
		err := rows.Scan(
			&d.ID,
			&d.PersonID,
			&d.PostID,
			&d.ElectionID,
			&d.BallotID,
			&d.PartyID,
			&d.PartyName,
			&d.PartyDescriptionText,
			&d.ListPosition,
			&d.Elected,
			&d.VotesCast,
			&d.PersonName,
			&d.PersonYNRID,
			pq.Array(&d.PreviousPartyIDs),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidacy: %w", err)
		}
		out = append(out, d)
	}

	return out, rows.Err()
}
