package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDivisionType is returned when a division type is not one of the legal codes
var ErrInvalidDivisionType = errors.New("invalid division type")

// Territory codes as published by the boundary service
const (
	TerritoryEngland         = "ENG"
	TerritoryWales           = "WLS"
	TerritoryScotland        = "SCT"
	TerritoryNorthernIreland = "NIR"
	TerritoryUnknown         = "-"
)

// DivisionType is a legally defined category of electoral division
type DivisionType string

// divisionTypes maps each division type code to its description
var divisionTypes = map[DivisionType]string{
	"CED": "County Electoral Division",
	"COP": "Isles of Scilly Parish",
	"DIW": "District Ward",
	"EUR": "European Parliament Region",
	"LAC": "London Assembly Constituency",
	"LBW": "London Borough Ward",
	"LGE": "NI Electoral Area",
	"MTW": "Metropolitan District Ward",
	"NIE": "NI Assembly Constituency",
	"SPC": "Scottish Parliament Constituency",
	"SPE": "Scottish Parliament Region",
	"UTE": "Unitary Authority Electoral Division",
	"UTW": "Unitary Authority Ward",
	"WAC": "Welsh Assembly Constituency",
	"WAE": "Welsh Assembly Region",
	"WMC": "Westminster Parliamentary Constituency",
}

// Validate returns ErrInvalidDivisionType for anything other than a known code or blank
func (d DivisionType) Validate() error {
	if d == "" {
		return nil
	}
	if _, ok := divisionTypes[d]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDivisionType, string(d))
	}
	return nil
}

// Description returns the human readable name of the division type
func (d DivisionType) Description() string {
	return divisionTypes[d]
}

// Post represents an electoral division or seat
type Post struct {
	YNRID            string
	Label            string
	Territory        string
	OrganisationType string
	DivisionType     DivisionType
	UpdatedAt        time.Time
}

// Validate checks enumerated fields before the post is saved
func (p *Post) Validate() error {
	if err := p.DivisionType.Validate(); err != nil {
		return fmt.Errorf("post %s: %w", p.YNRID, err)
	}
	return nil
}
