// Package memory provides an in-process Repository with the same semantics as the Postgres store.
// It backs unit tests and dry runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
)

type metric struct {
	name  string
	value string
	at    time.Time
}

type state struct {
	votingSystems map[string]model.VotingSystem
	elections     map[int]model.Election
	posts         map[string]model.Post
	ballots       map[int]model.Ballot
	people        map[int]model.Person
	parties       map[string]model.Party
	candidacies   map[int]model.Candidacy
	previous      map[int][]string
	metrics       []metric
	nextID        int
}

func newState() *state {
	return &state{
		votingSystems: map[string]model.VotingSystem{},
		elections:     map[int]model.Election{},
		posts:         map[string]model.Post{},
		ballots:       map[int]model.Ballot{},
		people:        map[int]model.Person{},
		parties:       map[string]model.Party{},
		candidacies:   map[int]model.Candidacy{},
		previous:      map[int][]string{},
	}
}

func (s *state) clone() *state {
	c := &state{
		votingSystems: maps.Clone(s.votingSystems),
		elections:     maps.Clone(s.elections),
		posts:         maps.Clone(s.posts),
		ballots:       maps.Clone(s.ballots),
		people:        maps.Clone(s.people),
		parties:       maps.Clone(s.parties),
		candidacies:   maps.Clone(s.candidacies),
		previous:      make(map[int][]string, len(s.previous)),
		metrics:       slices.Clone(s.metrics),
		nextID:        s.nextID,
	}
	for k, v := range s.previous {
		c.previous[k] = slices.Clone(v)
	}
	return c
}

func (s *state) id() int {
	s.nextID++
	return s.nextID
}

// Store is an in-memory store.Repository
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ store.Repository = (*Store)(nil)

// New creates an empty Store
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

// InTx runs fn against a snapshot and keeps its writes only if fn succeeds
func (s *Store) InTx(ctx context.Context, fn func(store.Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	tx := &Store{mu: &sync.Mutex{}, st: snapshot, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = tx.st
	s.mu.Unlock()
	return nil
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneJSON(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	return slices.Clone(m)
}

// GetElectionBySlug returns the election with the given slug
func (s *Store) GetElectionBySlug(_ context.Context, slug string) (*model.Election, error) {
	defer s.lock()()
	for _, e := range s.st.elections {
		if e.Slug == slug {
			e.Metadata = cloneJSON(e.Metadata)
			return &e, nil
		}
	}
	return nil, nil
}

// SaveElection upserts an election keyed by slug
func (s *Store) SaveElection(_ context.Context, e *model.Election) error {
	defer s.lock()()
	if e.VotingSystemSlug.Valid {
		if _, ok := s.st.votingSystems[e.VotingSystemSlug.String]; !ok {
			return fmt.Errorf("election %s: voting system %s: %w", e.Slug, e.VotingSystemSlug.String, store.ErrNotFound)
		}
	}

	e.ID = 0
	for id, existing := range s.st.elections {
		if existing.Slug == e.Slug {
			e.ID = id
			break
		}
	}
	if e.ID == 0 {
		e.ID = s.st.id()
	}
	e.UpdatedAt = time.Now()

	saved := *e
	saved.Metadata = cloneJSON(e.Metadata)
	s.st.elections[e.ID] = saved
	return nil
}

// ListElections returns elections newest first, heaviest first within a date
func (s *Store) ListElections(_ context.Context, currentOnly bool) ([]model.Election, error) {
	defer s.lock()()
	var out []model.Election
	for _, e := range s.st.elections {
		if currentOnly && !e.Current {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ElectionDate.Equal(out[j].ElectionDate) {
			return out[i].ElectionDate.After(out[j].ElectionDate)
		}
		if out[i].ElectionWeight != out[j].ElectionWeight {
			return out[i].ElectionWeight > out[j].ElectionWeight
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// MarkAnyNonByElections flags current elections with at least one ballot that is not a by-election
func (s *Store) MarkAnyNonByElections(_ context.Context) (int64, error) {
	defer s.lock()()
	var n int64
	for id, e := range s.st.elections {
		if !e.Current {
			continue
		}
		for _, b := range s.st.ballots {
			if b.ElectionID == id && !model.IsByElection(b.BallotPaperID) {
				e.AnyNonByElections = true
				e.UpdatedAt = time.Now()
				s.st.elections[id] = e
				n++
				break
			}
		}
	}
	return n, nil
}

// DeleteElectionsBySlug deletes elections and cascades to their ballots
func (s *Store) DeleteElectionsBySlug(_ context.Context, slugs []string) (int64, error) {
	defer s.lock()()
	var n int64
	for id, e := range s.st.elections {
		if !slices.Contains(slugs, e.Slug) {
			continue
		}
		for bid, b := range s.st.ballots {
			if b.ElectionID == id {
				s.st.deleteBallot(bid)
			}
		}
		for cid, c := range s.st.candidacies {
			if c.ElectionID == id {
				s.st.deleteCandidacy(cid)
			}
		}
		delete(s.st.elections, id)
		n++
	}
	return n, nil
}

// SaveVotingSystem upserts a voting system
func (s *Store) SaveVotingSystem(_ context.Context, vs *model.VotingSystem) error {
	defer s.lock()()
	s.st.votingSystems[vs.Slug] = *vs
	return nil
}

// GetPost returns the post with the given registry id
func (s *Store) GetPost(_ context.Context, ynrID string) (*model.Post, error) {
	defer s.lock()()
	p, ok := s.st.posts[ynrID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SavePost validates and upserts a post
func (s *Store) SavePost(_ context.Context, p *model.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	defer s.lock()()
	p.UpdatedAt = time.Now()
	s.st.posts[p.YNRID] = *p
	return nil
}

// DeleteOrphanPosts deletes posts without ballots
func (s *Store) DeleteOrphanPosts(_ context.Context) (int64, error) {
	defer s.lock()()
	used := map[string]bool{}
	for _, b := range s.st.ballots {
		used[b.PostID] = true
	}
	var n int64
	for id := range s.st.posts {
		if !used[id] {
			delete(s.st.posts, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) findBallot(match func(model.Ballot) bool) *model.Ballot {
	for _, b := range s.st.ballots {
		if match(b) {
			b.Metadata = cloneJSON(b.Metadata)
			return &b
		}
	}
	return nil
}

// GetBallot returns the ballot with the given ballot paper id
func (s *Store) GetBallot(_ context.Context, ballotPaperID string) (*model.Ballot, error) {
	defer s.lock()()
	return s.findBallot(func(b model.Ballot) bool { return b.BallotPaperID == ballotPaperID }), nil
}

// GetBallotByID returns the ballot with the given row id
func (s *Store) GetBallotByID(_ context.Context, id int) (*model.Ballot, error) {
	defer s.lock()()
	b, ok := s.st.ballots[id]
	if !ok {
		return nil, nil
	}
	b.Metadata = cloneJSON(b.Metadata)
	return &b, nil
}

// SaveBallot upserts a ballot keyed by ballot paper id
func (s *Store) SaveBallot(_ context.Context, b *model.Ballot) error {
	defer s.lock()()
	if _, ok := s.st.posts[b.PostID]; !ok {
		return fmt.Errorf("ballot %s: post %s: %w", b.BallotPaperID, b.PostID, store.ErrNotFound)
	}
	if _, ok := s.st.elections[b.ElectionID]; !ok {
		return fmt.Errorf("ballot %s: election %d: %w", b.BallotPaperID, b.ElectionID, store.ErrNotFound)
	}
	if b.ReplacedByID.Valid {
		if _, ok := s.st.ballots[int(b.ReplacedByID.Int64)]; !ok {
			return fmt.Errorf("ballot %s: replacement %d: %w", b.BallotPaperID, b.ReplacedByID.Int64, store.ErrNotFound)
		}
	}

	b.ID = 0
	for id, existing := range s.st.ballots {
		if existing.BallotPaperID == b.BallotPaperID {
			b.ID = id
			break
		}
	}
	if b.ID == 0 {
		b.ID = s.st.id()
	}
	b.UpdatedAt = time.Now()

	saved := *b
	saved.Metadata = cloneJSON(b.Metadata)
	s.st.ballots[b.ID] = saved
	return nil
}

func (s *Store) sortedBallots(match func(model.Ballot) bool) []model.Ballot {
	var out []model.Ballot
	for _, b := range s.st.ballots {
		if match(b) {
			b.Metadata = cloneJSON(b.Metadata)
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BallotPaperID < out[j].BallotPaperID })
	return out
}

// ListCancelledBallots returns cancelled ballots, optionally only those in current elections
func (s *Store) ListCancelledBallots(_ context.Context, currentOnly bool) ([]model.Ballot, error) {
	defer s.lock()()
	return s.sortedBallots(func(b model.Ballot) bool {
		if !b.Cancelled {
			return false
		}
		return !currentOnly || s.st.elections[b.ElectionID].Current
	}), nil
}

// ListBallotsForElection returns the ballots of one election
func (s *Store) ListBallotsForElection(_ context.Context, electionID int) ([]model.Ballot, error) {
	defer s.lock()()
	return s.sortedBallots(func(b model.Ballot) bool { return b.ElectionID == electionID }), nil
}

// MaxBallotYNRModified returns the newest upstream modification time, or nil if none is set
func (s *Store) MaxBallotYNRModified(_ context.Context) (*time.Time, error) {
	defer s.lock()()
	var latest *time.Time
	for _, b := range s.st.ballots {
		if !b.YNRModified.Valid {
			continue
		}
		if latest == nil || b.YNRModified.Time.After(*latest) {
			t := b.YNRModified.Time
			latest = &t
		}
	}
	return latest, nil
}

// DeleteBallotsByPaperID deletes ballots and cascades to their candidacies
func (s *Store) DeleteBallotsByPaperID(_ context.Context, ids []string) (int64, error) {
	defer s.lock()()
	var n int64
	for id, b := range s.st.ballots {
		if slices.Contains(ids, b.BallotPaperID) {
			s.st.deleteBallot(id)
			n++
		}
	}
	return n, nil
}

func (s *state) deleteBallot(id int) {
	delete(s.ballots, id)
	for bid, b := range s.ballots {
		if b.ReplacedByID.Valid && int(b.ReplacedByID.Int64) == id {
			b.ReplacedByID.Valid = false
			b.ReplacedByID.Int64 = 0
			s.ballots[bid] = b
		}
	}
	for cid, c := range s.candidacies {
		if c.BallotID == id {
			s.deleteCandidacy(cid)
		}
	}
}

func (s *state) deleteCandidacy(id int) {
	delete(s.candidacies, id)
	delete(s.previous, id)
}

// GetBallotDetail returns a ballot with its post, election, replacement and candidacies
func (s *Store) GetBallotDetail(_ context.Context, ballotPaperID string) (*model.BallotDetail, error) {
	defer s.lock()()
	b := s.findBallot(func(b model.Ballot) bool { return b.BallotPaperID == ballotPaperID })
	if b == nil {
		return nil, nil
	}

	d := &model.BallotDetail{
		Ballot:   *b,
		Post:     s.st.posts[b.PostID],
		Election: s.st.elections[b.ElectionID],
	}
	if b.ReplacedByID.Valid {
		if r, ok := s.st.ballots[int(b.ReplacedByID.Int64)]; ok {
			d.ReplacedByPaperID.String = r.BallotPaperID
			d.ReplacedByPaperID.Valid = true
		}
	}

	for id, c := range s.st.candidacies {
		if c.BallotID != b.ID {
			continue
		}
		person := s.st.people[c.PersonID]
		prev := slices.Clone(s.st.previous[id])
		slices.Sort(prev)
		d.Candidacies = append(d.Candidacies, model.CandidacyDetail{
			Candidacy:        c,
			PersonName:       person.Name,
			PersonYNRID:      person.YNRID,
			PreviousPartyIDs: prev,
		})
	}
	sort.Slice(d.Candidacies, func(i, j int) bool {
		a, c := d.Candidacies[i], d.Candidacies[j]
		if a.ListPosition.Valid != c.ListPosition.Valid {
			return a.ListPosition.Valid
		}
		if a.ListPosition.Int64 != c.ListPosition.Int64 {
			return a.ListPosition.Int64 < c.ListPosition.Int64
		}
		return strings.Compare(a.PersonName, c.PersonName) < 0
	})

	return d, nil
}

// SavePerson upserts a person keyed by registry id
func (s *Store) SavePerson(_ context.Context, p *model.Person) error {
	defer s.lock()()
	p.ID = 0
	for id, existing := range s.st.people {
		if existing.YNRID == p.YNRID {
			p.ID = id
			break
		}
	}
	if p.ID == 0 {
		p.ID = s.st.id()
	}
	s.st.people[p.ID] = *p
	return nil
}

// GetParty returns the party with the given id
func (s *Store) GetParty(_ context.Context, partyID string) (*model.Party, error) {
	defer s.lock()()
	p, ok := s.st.parties[partyID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveParty upserts a party
func (s *Store) SaveParty(_ context.Context, p *model.Party) error {
	defer s.lock()()
	s.st.parties[p.PartyID] = *p
	return nil
}

// DeleteCandidaciesForBallot removes every candidacy on a ballot
func (s *Store) DeleteCandidaciesForBallot(_ context.Context, ballotID int) (int64, error) {
	defer s.lock()()
	var n int64
	for id, c := range s.st.candidacies {
		if c.BallotID == ballotID {
			s.st.deleteCandidacy(id)
			n++
		}
	}
	return n, nil
}

// CreateCandidacy inserts a candidacy and links its previous parties
func (s *Store) CreateCandidacy(_ context.Context, c *model.Candidacy, previousPartyIDs []string) error {
	defer s.lock()()
	if _, ok := s.st.people[c.PersonID]; !ok {
		return fmt.Errorf("candidacy: person %d: %w", c.PersonID, store.ErrNotFound)
	}
	if _, ok := s.st.ballots[c.BallotID]; !ok {
		return fmt.Errorf("candidacy: ballot %d: %w", c.BallotID, store.ErrNotFound)
	}
	for _, partyID := range previousPartyIDs {
		if _, ok := s.st.parties[partyID]; !ok {
			return fmt.Errorf("candidacy: previous party %s: %w", partyID, store.ErrNotFound)
		}
	}

	c.ID = s.st.id()
	s.st.candidacies[c.ID] = *c
	var prev []string
	for _, partyID := range previousPartyIDs {
		if !slices.Contains(prev, partyID) {
			prev = append(prev, partyID)
		}
	}
	if len(prev) > 0 {
		s.st.previous[c.ID] = prev
	}
	return nil
}

// CountRows returns per-table row counts
func (s *Store) CountRows(_ context.Context) (*store.RowCounts, error) {
	defer s.lock()()
	c := &store.RowCounts{
		Elections:   len(s.st.elections),
		Posts:       len(s.st.posts),
		Ballots:     len(s.st.ballots),
		People:      len(s.st.people),
		Candidacies: len(s.st.candidacies),
	}
	for _, b := range s.st.ballots {
		if b.Cancelled {
			c.Cancelled++
		}
	}
	return c, nil
}

// RecordMetric appends a metric value
func (s *Store) RecordMetric(_ context.Context, name, value string) error {
	defer s.lock()()
	s.st.metrics = append(s.st.metrics, metric{name: name, value: value, at: time.Now()})
	return nil
}

// LatestMetrics returns the last recorded value of every metric
func (s *Store) LatestMetrics(_ context.Context) (map[string]string, error) {
	defer s.lock()()
	out := map[string]string{}
	for _, m := range s.st.metrics {
		out[m.name] = m.value
	}
	return out, nil
}
