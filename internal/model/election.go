package model

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// ElectionType is the first segment of an election slug, e.g. "local" in local.sheffield.2021-05-06
type ElectionType string

const (
	ElectionTypeReferendum    ElectionType = "ref"
	ElectionTypeParliamentary ElectionType = "parl"
	ElectionTypeEuropean      ElectionType = "europarl"
	ElectionTypeMayor         ElectionType = "mayor"
	ElectionTypePCC           ElectionType = "pcc"
	ElectionTypeNIAssembly    ElectionType = "nia"
	ElectionTypeGLA           ElectionType = "gla"
	ElectionTypeWelshAssembly ElectionType = "naw"
	ElectionTypeSenedd        ElectionType = "senedd"
	ElectionTypeScottishParl  ElectionType = "sp"
	ElectionTypeLocal         ElectionType = "local"
)

// ElectionTypeFromID returns the election type encoded in an election or ballot paper id
func ElectionTypeFromID(id string) ElectionType {
	t, _, _ := strings.Cut(id, ".")
	return ElectionType(t)
}

// Election represents one contest type on one date, e.g. local.sheffield.2021-05-06
type Election struct {
	ID                int
	Slug              string
	Name              string
	ElectionDate      time.Time
	ElectionType      ElectionType
	Current           bool
	Description       string
	ElectionWeight    int
	UsesLists         bool
	VotingSystemSlug  sql.NullString
	Metadata          json.RawMessage
	AnyNonByElections bool
	UpdatedAt         time.Time
}

// VotingSystem represents an electoral system such as FPTP or AMS
type VotingSystem struct {
	Slug string
	Name string
}

// HasMetadata reports whether a metadata blob holds a non-null JSON value
func HasMetadata(m json.RawMessage) bool {
	s := strings.TrimSpace(string(m))
	return s != "" && s != "null" && s != "{}"
}
