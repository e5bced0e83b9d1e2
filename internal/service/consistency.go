package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
)

// AddReplacedBallot points the ballot named by replacedID at ballot.
// It reports whether a link was made; an unknown or empty replacedID is not an error.
func (i *BallotImporter) AddReplacedBallot(ctx context.Context, repo store.Repository, ballot *model.Ballot, replacedID string) (bool, error) {
	if replacedID == "" {
		return false, nil
	}

	replaced, err := repo.GetBallot(ctx, replacedID)
	if err != nil {
		return false, err
	}
	if replaced == nil {
		i.log.WithField("replaces", replacedID).Warn("Replaced ballot not found")
		return false, nil
	}

	replaced.ReplacedByID = sql.NullInt64{Int64: int64(ballot.ID), Valid: true}
	if err := repo.SaveBallot(ctx, replaced); err != nil {
		return false, fmt.Errorf("failed to link %s to %s: %w", replacedID, ballot.BallotPaperID, err)
	}
	return true, nil
}

// AttachCancelledBallotInfo refreshes the replacement link and metadata of every cancelled ballot
func (i *BallotImporter) AttachCancelledBallotInfo(ctx context.Context) error {
	ballots, err := i.repo.ListCancelledBallots(ctx, i.opts.CurrentOnly)
	if err != nil {
		return fmt.Errorf("failed to list cancelled ballots: %w", err)
	}

	return i.repo.InTx(ctx, func(tx store.Repository) error {
		for idx := range ballots {
			if err := i.attachCancelledBallot(ctx, tx, &ballots[idx]); err != nil {
				return err
			}
			i.stats.CancelledProcessed++
		}
		return nil
	})
}

func (i *BallotImporter) attachCancelledBallot(ctx context.Context, repo store.Repository, ballot *model.Ballot) error {
	data, err := i.ee.GetData(ctx, ballot.BallotPaperID)
	if err != nil {
		return err
	}

	ballot.ReplacedByID = sql.NullInt64{}
	if data != nil && data.ReplacedBy != "" {
		replacement, err := repo.GetBallot(ctx, data.ReplacedBy)
		if err != nil {
			return err
		}
		if replacement != nil {
			ballot.ReplacedByID = sql.NullInt64{Int64: int64(replacement.ID), Valid: true}
		}
	}

	if data != nil {
		ballot.Metadata = nil
		if model.HasMetadata(data.Metadata) {
			ballot.Metadata = data.Metadata
		}
	}

	if err := repo.SaveBallot(ctx, ballot); err != nil {
		return fmt.Errorf("failed to update cancelled ballot %s: %w", ballot.BallotPaperID, err)
	}
	return nil
}

// DeleteOrphanPosts removes posts no ballot refers to
func (i *BallotImporter) DeleteOrphanPosts(ctx context.Context) (int64, error) {
	deleted, err := i.repo.DeleteOrphanPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan posts: %w", err)
	}
	if deleted > 0 {
		i.log.Infof("Deleted %d orphan posts", deleted)
	}
	return deleted, nil
}

// PopulateAnyNonByElections flags current elections that have at least one scheduled (non by-election) ballot
func PopulateAnyNonByElections(ctx context.Context, repo store.Repository) (int64, error) {
	n, err := repo.MarkAnyNonByElections(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to populate any_non_by_elections: %w", err)
	}
	return n, nil
}
