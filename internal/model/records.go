package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedRecord is returned when an upstream record is missing a required field
var ErrMalformedRecord = errors.New("malformed upstream record")

// Page is one page of a paginated upstream listing
type Page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// FlexibleID decodes an identifier that upstream publishes as either a JSON number or a string
type FlexibleID string

// UnmarshalJSON accepts "123", 123 and null
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

// BallotRecord represents a ballot in the candidates registry API
type BallotRecord struct {
	BallotPaperID    string            `json:"ballot_paper_id"`
	Election         ElectionRecord    `json:"election"`
	Post             PostRecord        `json:"post"`
	WinnerCount      *int              `json:"winner_count"`
	Cancelled        bool              `json:"cancelled"`
	CandidatesLocked bool              `json:"candidates_locked"`
	Replaces         string            `json:"replaces"`
	LastUpdated      *time.Time        `json:"last_updated"`
	Candidacies      []CandidacyRecord `json:"candidacies"`
}

// ElectionRecord is the election nested in every ballot record
type ElectionRecord struct {
	ElectionID      string `json:"election_id"`
	Name            string `json:"name"`
	ElectionDate    string `json:"election_date"`
	Current         bool   `json:"current"`
	PartyListsInUse bool   `json:"party_lists_in_use"`
}

// PostRecord is the post nested in every ballot record
type PostRecord struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// CandidacyRecord represents one candidacy on a ballot record
type CandidacyRecord struct {
	Person                    PersonRecord  `json:"person"`
	Result                    *ResultRecord `json:"result"`
	Elected                   *bool         `json:"elected"`
	Party                     PartyRecord   `json:"party"`
	PartyName                 string        `json:"party_name"`
	PartyDescriptionText      string        `json:"party_description_text"`
	PartyListPosition         *int          `json:"party_list_position"`
	PreviousPartyAffiliations []PartyRecord `json:"previous_party_affiliations"`
}

// PersonRecord is the person nested in a candidacy
type PersonRecord struct {
	ID   FlexibleID `json:"id"`
	Name string     `json:"name"`
}

// ResultRecord is the published result for a candidacy, null until results are in
type ResultRecord struct {
	Elected    *bool `json:"elected"`
	NumBallots *int  `json:"num_ballots"`
}

// PartyRecord is a party reference in a candidacy
type PartyRecord struct {
	LegacySlug string `json:"legacy_slug"`
	ECID       string `json:"ec_id"`
	Name       string `json:"name"`
}

// Validate checks the fields the importer cannot work without
func (b *BallotRecord) Validate() error {
	if strings.TrimSpace(b.BallotPaperID) == "" {
		return fmt.Errorf("%w: ballot without ballot_paper_id", ErrMalformedRecord)
	}
	if strings.TrimSpace(b.Election.ElectionID) == "" {
		return fmt.Errorf("%w: ballot %s has no election_id", ErrMalformedRecord, b.BallotPaperID)
	}
	if _, err := b.Election.Date(); err != nil {
		return fmt.Errorf("%w: ballot %s: %v", ErrMalformedRecord, b.BallotPaperID, err)
	}
	return nil
}

// Date parses the election date
func (e ElectionRecord) Date() (time.Time, error) {
	d, err := time.Parse("2006-01-02", e.ElectionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid election_date %q", e.ElectionDate)
	}
	return d, nil
}

// ResolvedID returns the post id, falling back to the slug for provisional posts
func (p PostRecord) ResolvedID() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Slug
}

// IsElected prefers the published result and falls back to the candidacy's own flag
func (c CandidacyRecord) IsElected() *bool {
	if c.Result != nil && c.Result.Elected != nil {
		return c.Result.Elected
	}
	return c.Elected
}

// VotesCast returns the number of votes if results have been published
func (c CandidacyRecord) VotesCast() *int {
	if c.Result == nil {
		return nil
	}
	return c.Result.NumBallots
}
