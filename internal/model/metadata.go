package model

import "encoding/json"

// ElectionMetadata represents an election or ballot in the boundary/metadata service
type ElectionMetadata struct {
	ElectionID   string              `json:"election_id"`
	PollOpenDate string              `json:"poll_open_date"`
	Current      bool                `json:"current"`
	Metadata     json.RawMessage     `json:"metadata"`
	Explanation  string              `json:"explanation"`
	VotingSystem *VotingSystemRecord `json:"voting_system"`
	Organisation *OrganisationRecord `json:"organisation"`
	Division     *DivisionRecord     `json:"division"`
	ReplacedBy   string              `json:"replaced_by"`
	Cancelled    bool                `json:"cancelled"`
}

// VotingSystemRecord is the voting system nested in election metadata
type VotingSystemRecord struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// OrganisationRecord is the organisation nested in election metadata
type OrganisationRecord struct {
	TerritoryCode    string `json:"territory_code"`
	OrganisationType string `json:"organisation_type"`
}

// DivisionRecord is the division nested in ballot metadata
type DivisionRecord struct {
	DivisionType string `json:"division_type"`
}
