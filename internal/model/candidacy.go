package model

import "database/sql"

// Person represents someone standing for election, keyed by the registry's person id
type Person struct {
	ID    int
	YNRID string
	Name  string
}

// Party represents a registered political party
type Party struct {
	PartyID string
	Name    string
}

// Candidacy represents a person standing on a ballot for a party
type Candidacy struct {
	ID                   int
	PersonID             int
	PostID               string
	ElectionID           int
	BallotID             int
	PartyID              string
	PartyName            string
	PartyDescriptionText string
	ListPosition         sql.NullInt64
	Elected              sql.NullBool
	VotesCast            sql.NullInt64
}

// CandidacyDetail is a candidacy with the person's name and previous parties for read access
type CandidacyDetail struct {
	Candidacy
	PersonName       string
	PersonYNRID      string
	PreviousPartyIDs []string
}
