package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
)

const otherElectionWeight = 30

// electionWeights ranks election types for display. The values are a fixed contract.
var electionWeights = map[model.ElectionType]map[string]int{
	model.ElectionTypeReferendum:    {"default": 100},
	model.ElectionTypeParliamentary: {"default": 90},
	model.ElectionTypeEuropean:      {"default": 80},
	model.ElectionTypeMayor:         {"default": 70, "local-authority": 65},
	model.ElectionTypeNIAssembly:    {"default": 60},
	model.ElectionTypeGLA:           {"default": 60, "a": 55},
	model.ElectionTypeWelshAssembly: {"default": 60, "r": 55},
	model.ElectionTypeSenedd:        {"default": 60, "r": 65, "c": 60},
	model.ElectionTypeScottishParl:  {"default": 60, "r": 55},
	model.ElectionTypePCC:           {"default": 70},
	model.ElectionTypeLocal:         {"default": 40},
}

var subtypePattern = regexp.MustCompile(`^[^.]+\.([ar])\.`)

// BallotOrder returns the display weight of the election a ballot belongs to.
// By-elections rank one below the scheduled election of the same type.
func BallotOrder(ballotPaperID string) int {
	electionType := model.ElectionTypeFromID(ballotPaperID)

	weights, ok := electionWeights[electionType]
	if !ok {
		weights = map[string]int{"default": otherElectionWeight}
	}

	weight, ok := weights[string(electionType)]
	if !ok {
		weight = weights["default"]
	}

	if m := subtypePattern.FindStringSubmatch(ballotPaperID); m != nil {
		if w, ok := weights[m[1]]; ok {
			weight = w
		}
	}

	if model.IsByElection(ballotPaperID) {
		weight--
	}

	return weight
}

// ElectionImporter creates or updates elections from ballot records, once per slug per run
type ElectionImporter struct {
	ee    MetadataSource
	cache map[string]*model.Election
}

// NewElectionImporter creates a new ElectionImporter
func NewElectionImporter(ee MetadataSource) *ElectionImporter {
	return &ElectionImporter{
		ee:    ee,
		cache: make(map[string]*model.Election),
	}
}

// UpdateOrCreateFromBallot returns the election for a ballot record, saving it on first sighting
func (i *ElectionImporter) UpdateOrCreateFromBallot(ctx context.Context, repo store.Repository, rec *model.BallotRecord) (*model.Election, error) {
	slug := rec.Election.ElectionID
	if e, ok := i.cache[slug]; ok {
		return e, nil
	}

	date, err := rec.Election.Date()
	if err != nil {
		return nil, fmt.Errorf("%w: election %s: %v", model.ErrMalformedRecord, slug, err)
	}

	e, err := repo.GetElectionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &model.Election{Slug: slug}
	}

	e.ElectionType = model.ElectionTypeFromID(slug)
	e.Name = strings.TrimSpace(rec.Election.Name)
	e.ElectionDate = date
	e.Current = rec.Election.Current
	e.ElectionWeight = BallotOrder(rec.BallotPaperID)
	e.UsesLists = rec.Election.PartyListsInUse

	if err := repo.SaveElection(ctx, e); err != nil {
		return nil, err
	}

	if err := i.importMetadata(ctx, repo, e); err != nil {
		return nil, err
	}

	i.cache[slug] = e
	return e, nil
}

// importMetadata copies metadata, description and voting system from the boundary service
func (i *ElectionImporter) importMetadata(ctx context.Context, repo store.Repository, e *model.Election) error {
	data, err := i.ee.GetData(ctx, e.Slug)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	updated := false
	if model.HasMetadata(data.Metadata) {
		e.Metadata = data.Metadata
		updated = true
	}

	if data.Explanation != "" {
		e.Description = data.Explanation
		updated = true
	}

	if data.VotingSystem != nil && data.VotingSystem.Slug != "" {
		vs := &model.VotingSystem{Slug: data.VotingSystem.Slug, Name: data.VotingSystem.Name}
		if err := repo.SaveVotingSystem(ctx, vs); err != nil {
			return err
		}
		e.VotingSystemSlug = sql.NullString{String: vs.Slug, Valid: true}
		updated = true
	}

	if !updated {
		return nil
	}
	return repo.SaveElection(ctx, e)
}
