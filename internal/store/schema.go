package store

import (
	"context"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS voting_systems (
		slug TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS elections (
		id SERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		election_date DATE NOT NULL,
		election_type TEXT NOT NULL DEFAULT '',
		current BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL DEFAULT '',
		election_weight INTEGER NOT NULL DEFAULT 10,
		uses_lists BOOLEAN NOT NULL DEFAULT FALSE,
		voting_system_slug TEXT REFERENCES voting_systems (slug) ON DELETE SET NULL,
		metadata JSONB,
		any_non_by_elections BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		ynr_id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		territory TEXT NOT NULL DEFAULT '',
		organisation_type TEXT NOT NULL DEFAULT '',
		division_type TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ballots (
		id SERIAL PRIMARY KEY,
		ballot_paper_id TEXT NOT NULL UNIQUE,
		post_id TEXT NOT NULL REFERENCES posts (ynr_id) ON DELETE CASCADE,
		election_id INTEGER NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
		winner_count INTEGER,
		contested BOOLEAN NOT NULL DEFAULT TRUE,
		locked BOOLEAN NOT NULL DEFAULT FALSE,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		replaced_by_id INTEGER REFERENCES ballots (id) ON DELETE SET NULL,
		metadata JSONB,
		voting_system_slug TEXT REFERENCES voting_systems (slug) ON DELETE SET NULL,
		ynr_modified TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ballots_election ON ballots (election_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ballots_post ON ballots (post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ballots_cancelled ON ballots (cancelled) WHERE cancelled`,
	`CREATE TABLE IF NOT EXISTS people (
		id SERIAL PRIMARY KEY,
		ynr_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS parties (
		party_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS candidacies (
		id SERIAL PRIMARY KEY,
		person_id INTEGER NOT NULL REFERENCES people (id) ON DELETE CASCADE,
		post_id TEXT NOT NULL,
		election_id INTEGER NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
		ballot_id INTEGER NOT NULL REFERENCES ballots (id) ON DELETE CASCADE,
		party_id TEXT NOT NULL DEFAULT '',
		party_name TEXT NOT NULL DEFAULT '',
		party_description_text TEXT NOT NULL DEFAULT '',
		list_position INTEGER,
		elected BOOLEAN,
		votes_cast INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_candidacies_ballot ON candidacies (ballot_id)`,
	`CREATE TABLE IF NOT EXISTS candidacy_previous_parties (
		candidacy_id INTEGER NOT NULL REFERENCES candidacies (id) ON DELETE CASCADE,
		party_id TEXT NOT NULL REFERENCES parties (party_id) ON DELETE CASCADE,
		PRIMARY KEY (candidacy_id, party_id)
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id SERIAL PRIMARY KEY,
		metric_name TEXT NOT NULL,
		metric_value TEXT NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_name ON metrics (metric_name, calculated_at DESC)`,
}

// Migrate creates any missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	return s.InTx(ctx, func(r Repository) error {
		tx := r.(*Store)
		for _, stmt := range schema {
			if _, err := tx.q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}
