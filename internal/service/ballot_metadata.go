package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
)

// importMetadataFromEE enriches a ballot and its post with what the boundary service knows about the ballot id
func (i *BallotImporter) importMetadataFromEE(ctx context.Context, repo store.Repository, ballot *model.Ballot, post *model.Post) error {
	data, err := i.ee.GetData(ctx, ballot.BallotPaperID)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	i.setTerritory(post, data)
	i.setOrganisationType(post, data)
	if err := i.setDivisionType(post, data); err != nil {
		return err
	}
	if err := repo.SavePost(ctx, post); err != nil {
		return err
	}

	if err := i.setVotingSystem(ctx, repo, ballot, data); err != nil {
		return err
	}
	i.setMetadata(ballot, data)

	return repo.SaveBallot(ctx, ballot)
}

// Each setter below leaves a populated field alone unless the run forces an update.

func (i *BallotImporter) setTerritory(post *model.Post, data *model.ElectionMetadata) {
	if post.Territory != "" && !i.opts.ForceUpdate {
		return
	}
	territory := model.TerritoryUnknown
	if data.Organisation != nil && data.Organisation.TerritoryCode != "" {
		territory = data.Organisation.TerritoryCode
	}
	post.Territory = territory
}

func (i *BallotImporter) setOrganisationType(post *model.Post, data *model.ElectionMetadata) {
	if post.OrganisationType != "" && !i.opts.ForceUpdate {
		return
	}
	if data.Organisation == nil {
		return
	}
	post.OrganisationType = data.Organisation.OrganisationType
}

func (i *BallotImporter) setDivisionType(post *model.Post, data *model.ElectionMetadata) error {
	if post.DivisionType != "" && !i.opts.ForceUpdate {
		return nil
	}
	if data.Division == nil {
		return nil
	}
	dt := model.DivisionType(data.Division.DivisionType)
	if err := dt.Validate(); err != nil {
		return fmt.Errorf("post %s: %w", post.YNRID, err)
	}
	post.DivisionType = dt
	return nil
}

// setVotingSystem upserts each voting system at most once per run
func (i *BallotImporter) setVotingSystem(ctx context.Context, repo store.Repository, ballot *model.Ballot, data *model.ElectionMetadata) error {
	if ballot.VotingSystemSlug.Valid && !i.opts.ForceUpdate {
		return nil
	}
	if data.VotingSystem == nil || data.VotingSystem.Slug == "" {
		return nil
	}
	slug := data.VotingSystem.Slug
	if !i.votingSystems[slug] {
		vs := &model.VotingSystem{Slug: slug, Name: data.VotingSystem.Name}
		if err := repo.SaveVotingSystem(ctx, vs); err != nil {
			return err
		}
		i.votingSystems[slug] = true
	}
	ballot.VotingSystemSlug = sql.NullString{String: slug, Valid: true}
	return nil
}

// setMetadata keeps existing ballot metadata unless the run forces a refresh
func (i *BallotImporter) setMetadata(ballot *model.Ballot, data *model.ElectionMetadata) {
	if model.HasMetadata(ballot.Metadata) && !i.opts.ForceCurrentMetadata && !i.opts.ForceUpdate {
		return
	}
	ballot.Metadata = json.RawMessage(nil)
	if model.HasMetadata(data.Metadata) {
		ballot.Metadata = data.Metadata
	}
}
