package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to WCIVF_TEST_DATABASE_URL and truncates every table
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("WCIVF_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WCIVF_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db)
	require.NoError(t, s.Migrate(ctx))
	_, err = db.ExecContext(ctx, `TRUNCATE metrics, candidacy_previous_parties, candidacies, people, parties,
		ballots, posts, elections, voting_systems RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveVotingSystem(ctx, &model.VotingSystem{Slug: "FPTP", Name: "First-past-the-post"}))

	e := &model.Election{
		Slug:             "local.sheffield.2021-05-06",
		Name:             "Sheffield local election",
		ElectionDate:     time.Date(2021, 5, 6, 0, 0, 0, 0, time.UTC),
		ElectionType:     model.ElectionTypeLocal,
		Current:          true,
		ElectionWeight:   40,
		VotingSystemSlug: sql.NullString{String: "FPTP", Valid: true},
		Metadata:         json.RawMessage(`{"foo": "bar"}`),
	}
	require.NoError(t, s.SaveElection(ctx, e))
	require.NotZero(t, e.ID)

	got, err := s.GetElectionBySlug(ctx, e.Slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, 40, got.ElectionWeight)
	assert.JSONEq(t, `{"foo": "bar"}`, string(got.Metadata))

	require.NoError(t, s.SavePost(ctx, &model.Post{YNRID: "XXX:fulwood", Label: "Fulwood", DivisionType: "MTW"}))
	b := &model.Ballot{
		BallotPaperID: "local.sheffield.fulwood.2021-05-06",
		PostID:        "XXX:fulwood",
		ElectionID:    e.ID,
		WinnerCount:   sql.NullInt64{Int64: 1, Valid: true},
	}
	require.NoError(t, s.SaveBallot(ctx, b))

	err = s.InTx(ctx, func(r Repository) error {
		p := &model.Person{YNRID: "9876", Name: "Joe Bloggs"}
		if err := r.SavePerson(ctx, p); err != nil {
			return err
		}
		if err := r.SaveParty(ctx, &model.Party{PartyID: "party:53", Name: "Labour Party"}); err != nil {
			return err
		}
		return r.CreateCandidacy(ctx, &model.Candidacy{
			PersonID:   p.ID,
			PostID:     b.PostID,
			ElectionID: e.ID,
			BallotID:   b.ID,
			PartyID:    "party:53",
		}, []string{"party:53"})
	})
	require.NoError(t, err)

	d, err := s.GetBallotDetail(ctx, b.BallotPaperID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Fulwood", d.Post.Label)
	assert.Equal(t, e.Slug, d.Election.Slug)
	require.Len(t, d.Candidacies, 1)
	assert.Equal(t, []string{"party:53"}, d.Candidacies[0].PreviousPartyIDs)

	n, err := s.DeleteOrphanPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.DeleteElectionsBySlug(ctx, []string{e.Slug})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Ballots)
	assert.Equal(t, 0, counts.Candidacies)
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, err := s.GetElectionBySlug(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, e)

	b, err := s.GetBallot(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, b)

	latest, err := s.MaxBallotYNRModified(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}
