package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jjenkins/wcivf/internal/model"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/jjenkins/wcivf/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RunStats tracks import statistics
type RunStats struct {
	RunID              string
	Pages              int
	Ballots            int
	Created            int
	Skipped            int
	Candidacies        int
	ReplacementsLinked int
	CancelledProcessed int
	OrphanPostsDeleted int64
}

// BallotImporter reconciles local elections, posts, ballots and candidacies with the registry
type BallotImporter struct {
	opts      ImportOptions
	repo      store.Repository
	client    *Client
	ee        *EEHelper
	elections *ElectionImporter
	posts     *PostImporter

	votingSystems map[string]bool
	stats         *RunStats

	baseLog logrus.FieldLogger
	log     logrus.FieldLogger
	tracer  trace.Tracer

	ballotsCounter     metric.Int64Counter
	skippedCounter     metric.Int64Counter
	candidaciesCounter metric.Int64Counter
}

// NewBallotImporter creates a new BallotImporter
func NewBallotImporter(opts ImportOptions, repo store.Repository, client *Client, ee *EEHelper, log logrus.FieldLogger) (*BallotImporter, error) {
	meter := telemetry.Meter()

	ballots, err := meter.Int64Counter("wcivf.import.ballots",
		metric.WithDescription("Ballots imported from the registry"))
	if err != nil {
		return nil, fmt.Errorf("failed to create ballots counter: %w", err)
	}
	skipped, err := meter.Int64Counter("wcivf.import.skipped",
		metric.WithDescription("Ballots skipped because no post could be resolved"))
	if err != nil {
		return nil, fmt.Errorf("failed to create skipped counter: %w", err)
	}
	candidacies, err := meter.Int64Counter("wcivf.import.candidacies",
		metric.WithDescription("Candidacies recreated from the registry"))
	if err != nil {
		return nil, fmt.Errorf("failed to create candidacies counter: %w", err)
	}

	return &BallotImporter{
		opts:               opts,
		repo:               repo,
		client:             client,
		ee:                 ee,
		elections:          NewElectionImporter(ee),
		posts:              NewPostImporter(),
		votingSystems:      make(map[string]bool),
		stats:              &RunStats{},
		baseLog:            log,
		log:                log,
		tracer:             telemetry.Tracer(),
		ballotsCounter:     ballots,
		skippedCounter:     skipped,
		candidaciesCounter: candidacies,
	}, nil
}

// Run performs one import: plan, prewarm, page through ballots, then the consistency pass and orphan cleanup
func (i *BallotImporter) Run(ctx context.Context) (*RunStats, error) {
	i.stats = &RunStats{RunID: uuid.NewString()}
	i.log = i.baseLog.WithField("run_id", i.stats.RunID)

	ctx, span := i.tracer.Start(ctx, "import.run", trace.WithAttributes(
		attribute.String("import.run_id", i.stats.RunID),
		attribute.Bool("import.current_only", i.opts.CurrentOnly),
		attribute.Bool("import.recently_updated", i.opts.RecentlyUpdated),
	))
	defer span.End()

	stats, err := i.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return stats, err
}

func (i *BallotImporter) run(ctx context.Context) (*RunStats, error) {
	lastUpdated := DefaultLastUpdated
	if i.opts.RecentlyUpdated {
		latest, err := i.repo.MaxBallotYNRModified(ctx)
		if err != nil {
			return i.stats, err
		}
		if latest != nil {
			lastUpdated = *latest
		}
	}

	plan := PlanImport(i.opts, lastUpdated)
	i.log.WithFields(logrus.Fields{
		"url":         plan.URL,
		"full_import": plan.FullImport,
	}).Info("Starting ballot import")

	if plan.PrewarmMetadata {
		if err := i.ee.PrewarmCache(ctx, plan.PrewarmCurrentOnly); err != nil {
			return i.stats, err
		}
	}

	pages := NewPaginator[model.BallotRecord](i.client, plan.URL, i.log)
	for page, err := range pages.Pages(ctx) {
		if err != nil {
			return i.stats, fmt.Errorf("failed to fetch ballots: %w", err)
		}
		if err := i.AddBallots(ctx, page); err != nil {
			return i.stats, err
		}
	}

	if plan.RunPostImportTasks {
		if err := i.AttachCancelledBallotInfo(ctx); err != nil {
			return i.stats, err
		}
	}

	deleted, err := i.DeleteOrphanPosts(ctx)
	if err != nil {
		return i.stats, err
	}
	i.stats.OrphanPostsDeleted = deleted

	return i.stats, nil
}

// AddBallots writes one page of ballot records in a single transaction
func (i *BallotImporter) AddBallots(ctx context.Context, page *model.Page[model.BallotRecord]) error {
	ctx, span := i.tracer.Start(ctx, "import.page", trace.WithAttributes(
		attribute.Int("import.page.results", len(page.Results)),
	))
	defer span.End()

	i.stats.Pages++
	err := i.repo.InTx(ctx, func(tx store.Repository) error {
		for idx := range page.Results {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := i.addBallot(ctx, tx, &page.Results[idx]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (i *BallotImporter) addBallot(ctx context.Context, repo store.Repository, rec *model.BallotRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	i.log.Info(rec.BallotPaperID)

	election, err := i.elections.UpdateOrCreateFromBallot(ctx, repo, rec)
	if err != nil {
		return fmt.Errorf("failed to import election for %s: %w", rec.BallotPaperID, err)
	}

	post, err := i.posts.UpdateOrCreateFromBallot(ctx, repo, rec)
	if err != nil {
		return fmt.Errorf("failed to import post for %s: %w", rec.BallotPaperID, err)
	}
	if post == nil {
		i.log.WithField("ballot", rec.BallotPaperID).Warn("Skipping ballot without a post")
		i.stats.Skipped++
		i.skippedCounter.Add(ctx, 1)
		return nil
	}

	ballot, err := repo.GetBallot(ctx, rec.BallotPaperID)
	if err != nil {
		return err
	}
	created := ballot == nil
	if created {
		ballot = &model.Ballot{BallotPaperID: rec.BallotPaperID, Contested: true}
	}

	ballot.ElectionID = election.ID
	ballot.PostID = post.YNRID
	ballot.WinnerCount = nullInt64(rec.WinnerCount)
	ballot.Cancelled = rec.Cancelled
	ballot.Locked = rec.CandidatesLocked

	// otherwise derived from candidacy timestamps and too coarse to store
	if i.opts.RecentlyUpdated {
		ballot.YNRModified = sql.NullTime{}
		if rec.LastUpdated != nil {
			ballot.YNRModified = sql.NullTime{Time: *rec.LastUpdated, Valid: true}
		}
	}

	if err := repo.SaveBallot(ctx, ballot); err != nil {
		return err
	}

	if i.opts.RecentlyUpdated {
		linked, err := i.AddReplacedBallot(ctx, repo, ballot, rec.Replaces)
		if err != nil {
			return err
		}
		if linked {
			i.stats.ReplacementsLinked++
		}
	}

	if election.Current || i.opts.ForceMetadata {
		if err := i.importMetadataFromEE(ctx, repo, ballot, post); err != nil {
			return fmt.Errorf("failed to import metadata for %s: %w", rec.BallotPaperID, err)
		}
	}

	if !i.opts.ExcludeCandidacies {
		if err := i.importCandidacies(ctx, repo, ballot, rec); err != nil {
			return fmt.Errorf("failed to import candidacies for %s: %w", rec.BallotPaperID, err)
		}
	}

	i.stats.Ballots++
	i.ballotsCounter.Add(ctx, 1)
	if created {
		i.stats.Created++
		i.log.Infof("Added new ballot: %s", ballot.BallotPaperID)
	}

	return nil
}

// importCandidacies replaces the ballot's candidacies with those in the record
func (i *BallotImporter) importCandidacies(ctx context.Context, repo store.Repository, ballot *model.Ballot, rec *model.BallotRecord) error {
	if _, err := repo.DeleteCandidaciesForBallot(ctx, ballot.ID); err != nil {
		return err
	}

	for _, c := range rec.Candidacies {
		if c.Person.ID == "" {
			return fmt.Errorf("%w: candidacy without person id on %s", model.ErrMalformedRecord, rec.BallotPaperID)
		}

		person := &model.Person{YNRID: string(c.Person.ID), Name: c.Person.Name}
		if err := repo.SavePerson(ctx, person); err != nil {
			return err
		}

		if c.Party.LegacySlug != "" {
			name := c.Party.Name
			if name == "" {
				name = c.PartyName
			}
			if err := repo.SaveParty(ctx, &model.Party{PartyID: c.Party.LegacySlug, Name: name}); err != nil {
				return err
			}
		}

		var previous []string
		for _, affiliation := range c.PreviousPartyAffiliations {
			party, err := repo.GetParty(ctx, affiliation.LegacySlug)
			if err != nil {
				return err
			}
			if party != nil {
				previous = append(previous, party.PartyID)
			}
		}

		candidacy := &model.Candidacy{
			PersonID:             person.ID,
			PostID:               ballot.PostID,
			ElectionID:           ballot.ElectionID,
			BallotID:             ballot.ID,
			PartyID:              c.Party.LegacySlug,
			PartyName:            c.PartyName,
			PartyDescriptionText: c.PartyDescriptionText,
			ListPosition:         nullInt64(c.PartyListPosition),
			Elected:              nullBool(c.IsElected()),
			VotesCast:            nullInt64(c.VotesCast()),
		}
		if err := repo.CreateCandidacy(ctx, candidacy, previous); err != nil {
			return err
		}

		i.stats.Candidacies++
		i.candidaciesCounter.Add(ctx, 1)
	}

	return nil
}

// LogSummary writes the run statistics
func (s *RunStats) LogSummary(log logrus.FieldLogger) {
	log.Info("")
	log.Info("=== Import Summary ===")
	log.Infof("Run:                   %s", s.RunID)
	log.Infof("Pages:                 %s", humanize.Comma(int64(s.Pages)))
	log.Infof("Ballots:               %s", humanize.Comma(int64(s.Ballots)))
	log.Infof("New ballots:           %s", humanize.Comma(int64(s.Created)))
	log.Infof("Skipped (no post):     %s", humanize.Comma(int64(s.Skipped)))
	log.Infof("Candidacies:           %s", humanize.Comma(int64(s.Candidacies)))
	log.Infof("Replacements linked:   %s", humanize.Comma(int64(s.ReplacementsLinked)))
	log.Infof("Cancelled processed:   %s", humanize.Comma(int64(s.CancelledProcessed)))
	log.Infof("Orphan posts deleted:  %s", humanize.Comma(s.OrphanPostsDeleted))
}

func nullInt64(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
