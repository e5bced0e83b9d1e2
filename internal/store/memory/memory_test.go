package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBallot(t *testing.T, s *Store, electionSlug, postID, ballotPaperID string) *model.Ballot {
	t.Helper()
	ctx := context.Background()

	e, err := s.GetElectionBySlug(ctx, electionSlug)
	require.NoError(t, err)
	if e == nil {
		e = &model.Election{Slug: electionSlug, Name: electionSlug, Current: true}
		require.NoError(t, s.SaveElection(ctx, e))
	}
	require.NoError(t, s.SavePost(ctx, &model.Post{YNRID: postID, Label: postID}))

	b := &model.Ballot{BallotPaperID: ballotPaperID, PostID: postID, ElectionID: e.ID}
	require.NoError(t, s.SaveBallot(ctx, b))
	return b
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.w1.2021-05-06")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(r store.Repository) error {
		require.NoError(t, r.SavePost(ctx, &model.Post{YNRID: "p2"}))
		_, err := r.DeleteBallotsByPaperID(ctx, []string{"local.a.w1.2021-05-06"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.GetPost(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, p)

	b, err := s.GetBallot(ctx, "local.a.w1.2021-05-06")
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(r store.Repository) error {
		return r.InTx(ctx, func(inner store.Repository) error {
			return inner.SavePost(ctx, &model.Post{YNRID: "p1", Label: "One"})
		})
	})
	require.NoError(t, err)

	p, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "One", p.Label)
}

func TestSaveBallotIsKeyedByPaperID(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.w1.2021-05-06")
	second := seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.w1.2021-05-06")

	assert.Equal(t, first.ID, second.ID)
	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Ballots)
	assert.Equal(t, 1, counts.Elections)
}

func TestSaveBallotRequiresParents(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.SaveBallot(ctx, &model.Ballot{BallotPaperID: "x", PostID: "missing", ElectionID: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBallotClearsReplacementAndCandidacies(t *testing.T) {
	ctx := context.Background()
	s := New()
	old := seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.w1.2021-05-06")
	repl := seedBallot(t, s, "local.a.2021-06-06", "p1", "local.a.w1.2021-06-06")

	old.ReplacedByID = sql.NullInt64{Int64: int64(repl.ID), Valid: true}
	require.NoError(t, s.SaveBallot(ctx, old))

	person := &model.Person{YNRID: "1", Name: "Jo"}
	require.NoError(t, s.SavePerson(ctx, person))
	require.NoError(t, s.CreateCandidacy(ctx, &model.Candidacy{PersonID: person.ID, BallotID: repl.ID, ElectionID: repl.ElectionID}, nil))

	n, err := s.DeleteBallotsByPaperID(ctx, []string{repl.BallotPaperID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetBallot(ctx, old.BallotPaperID)
	require.NoError(t, err)
	assert.False(t, got.ReplacedByID.Valid)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Candidacies)
}

func TestDeleteOrphanPosts(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBallot(t, s, "local.a.2021-05-06", "used", "local.a.used.2021-05-06")
	require.NoError(t, s.SavePost(ctx, &model.Post{YNRID: "orphan"}))

	n, err := s.DeleteOrphanPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, _ := s.GetPost(ctx, "orphan")
	assert.Nil(t, p)
	p, _ = s.GetPost(ctx, "used")
	assert.NotNil(t, p)
}

func TestMarkAnyNonByElections(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.by.w1.2021-05-06")
	seedBallot(t, s, "local.b.2021-05-06", "p2", "local.b.w2.2021-05-06")

	n, err := s.MarkAnyNonByElections(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	a, _ := s.GetElectionBySlug(ctx, "local.a.2021-05-06")
	b, _ := s.GetElectionBySlug(ctx, "local.b.2021-05-06")
	assert.False(t, a.AnyNonByElections)
	assert.True(t, b.AnyNonByElections)
}

func TestMaxBallotYNRModified(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.MaxBallotYNRModified(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	b := seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.w1.2021-05-06")
	when := time.Date(2021, 10, 12, 9, 0, 0, 0, time.UTC)
	b.YNRModified = sql.NullTime{Time: when, Valid: true}
	require.NoError(t, s.SaveBallot(ctx, b))

	got, err = s.MaxBallotYNRModified(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, when.Equal(*got))
}

func TestCreateCandidacyNeedsKnownPreviousParties(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := seedBallot(t, s, "local.a.2021-05-06", "p1", "local.a.w1.2021-05-06")
	person := &model.Person{YNRID: "1", Name: "Jo"}
	require.NoError(t, s.SavePerson(ctx, person))

	err := s.CreateCandidacy(ctx, &model.Candidacy{PersonID: person.ID, BallotID: b.ID}, []string{"party:1"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SaveParty(ctx, &model.Party{PartyID: "party:1"}))
	require.NoError(t, s.CreateCandidacy(ctx, &model.Candidacy{PersonID: person.ID, BallotID: b.ID}, []string{"party:1", "party:1"}))

	d, err := s.GetBallotDetail(ctx, b.BallotPaperID)
	require.NoError(t, err)
	require.Len(t, d.Candidacies, 1)
	assert.Equal(t, []string{"party:1"}, d.Candidacies[0].PreviousPartyIDs)
	assert.Equal(t, "Jo", d.Candidacies[0].PersonName)
}
