package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jjenkins/wcivf/internal/logging"
	"github.com/jjenkins/wcivf/internal/store/memory"
	"github.com/stretchr/testify/require"
)

// upstream fakes both the candidates registry and the boundary service
type upstream struct {
	mu sync.Mutex

	ynr *httptest.Server
	ee  *httptest.Server

	ballots   []json.RawMessage
	ynrStatus int
	ynrURLs   []string

	listing  []json.RawMessage
	byID     map[string]json.RawMessage
	eeStatus map[string]int
	eeHits   map[string]int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		byID:     make(map[string]json.RawMessage),
		eeStatus: make(map[string]int),
		eeHits:   make(map[string]int),
	}
	u.ynr = httptest.NewServer(http.HandlerFunc(u.serveYNR))
	u.ee = httptest.NewServer(http.HandlerFunc(u.serveEE))
	t.Cleanup(u.ynr.Close)
	t.Cleanup(u.ee.Close)
	return u
}

func (u *upstream) setBallots(ballots ...string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ballots = nil
	for _, b := range ballots {
		u.ballots = append(u.ballots, json.RawMessage(b))
	}
}

// setMetadata serves data both from the listing and from the per-id endpoint
func (u *upstream) setMetadata(id, data string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.byID[id] = json.RawMessage(data)
	u.listing = append(u.listing, json.RawMessage(data))
}

func (u *upstream) requestedURLs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.ynrURLs...)
}

func (u *upstream) hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.eeHits[path]
}

func (u *upstream) serveYNR(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ynrURLs = append(u.ynrURLs, r.URL.RequestURI())

	if u.ynrStatus != 0 {
		w.WriteHeader(u.ynrStatus)
		return
	}
	writePage(w, u.ballots)
}

func (u *upstream) serveEE(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.eeHits[r.URL.Path]++

	if r.URL.Path == "/api/elections/" {
		if r.URL.Query().Get("deleted") == "1" {
			writePage(w, nil)
			return
		}
		writePage(w, u.listing)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/elections/"), "/")
	if status, ok := u.eeStatus[id]; ok {
		w.WriteHeader(status)
		return
	}
	data, ok := u.byID[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func writePage(w http.ResponseWriter, results []json.RawMessage) {
	if results == nil {
		results = []json.RawMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":   len(results),
		"next":    nil,
		"results": results,
	})
}

// newImporter builds an importer for one run against the fake upstream
func (u *upstream) newImporter(t *testing.T, repo *memory.Store, opts ImportOptions) *BallotImporter {
	t.Helper()
	opts.BaseURL = u.ynr.URL
	client := NewClient(0)
	ee := NewEEHelper(client, u.ee.URL, logging.Discard())
	importer, err := NewBallotImporter(opts, repo, client, ee, logging.Discard())
	require.NoError(t, err)
	return importer
}

const fulwoodBallot = `{
	"ballot_paper_id": "local.sheffield.fulwood.2021-05-06",
	"election": {
		"election_id": "local.sheffield.2021-05-06",
		"name": "Sheffield local election",
		"election_date": "2021-05-06",
		"current": true,
		"party_lists_in_use": false
	},
	"post": {"id": "XXX:fulwood", "slug": "fulwood", "label": "Fulwood"},
	"winner_count": 1,
	"cancelled": false,
	"candidates_locked": false,
	"candidacies": []
}`
