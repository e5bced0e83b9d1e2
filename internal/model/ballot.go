package model

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// Ballot represents a single contest for one post at one election
type Ballot struct {
	ID               int
	BallotPaperID    string
	PostID           string
	ElectionID       int
	WinnerCount      sql.NullInt64
	Contested        bool
	Locked           bool
	Cancelled        bool
	ReplacedByID     sql.NullInt64
	Metadata         json.RawMessage
	VotingSystemSlug sql.NullString
	YNRModified      sql.NullTime
	UpdatedAt        time.Time
}

// IsByElection reports whether the ballot paper id carries the by-election marker
func IsByElection(ballotPaperID string) bool {
	return strings.Contains(ballotPaperID, ".by.")
}

// BallotDetail is a ballot joined with its post, election and candidacies for read access
type BallotDetail struct {
	Ballot
	Post              Post
	Election          Election
	ReplacedByPaperID sql.NullString
	Candidacies       []CandidacyDetail
}
