package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jjenkins/wcivf/internal/service"
	"github.com/spf13/cobra"
)

var importOpts struct {
	current              bool
	forceAllMetadata     bool
	forceCurrentMetadata bool
	recentlyUpdated      bool
	excludeCandidacies   bool
	forceUpdate          bool
	params               []string
	baseURL              string
}

var importCmd = &cobra.Command{
	Use:   "import-ballots",
	Short: "Import ballots, elections, posts and candidacies from the candidates registry",
	Long: `Import brings the local database in line with the candidates registry.

With no flags it reads the bulk snapshot of every ballot. Any filter switches
to the paginated query API. After paging it attaches replacement and metadata
information to cancelled ballots, deletes orphan posts, flags elections with
scheduled ballots and removes elections deleted upstream.

Examples:
  # Full import
  wcivf import-ballots

  # Only current elections
  wcivf import-ballots --current

  # Ballots changed since the last import
  wcivf import-ballots --recently-updated

  # An explicit query
  wcivf import-ballots --param election_date=2021-05-06`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	f := importCmd.Flags()
	f.BoolVar(&importOpts.current, "current", false, "Only import ballots for current elections")
	f.BoolVar(&importOpts.forceAllMetadata, "force-all-metadata", false, "Import metadata for every ballot, not only current ones")
	f.BoolVar(&importOpts.forceCurrentMetadata, "force-current-metadata", false, "Overwrite existing ballot metadata")
	f.BoolVar(&importOpts.recentlyUpdated, "recently-updated", false, "Only import ballots changed since the newest one stored")
	f.BoolVar(&importOpts.excludeCandidacies, "exclude-candidacies", false, "Leave candidacies untouched")
	f.BoolVar(&importOpts.forceUpdate, "force-update", false, "Refresh fields that are already populated")
	f.StringArrayVar(&importOpts.params, "param", nil, "Extra registry query parameter as key=value (repeatable)")
	f.StringVar(&importOpts.baseURL, "base-url", "", "Candidates registry base URL (overrides ynr.base_url)")
}

func parseParams(raw []string) (url.Values, error) {
	params := url.Values{}
	for _, p := range raw {
		k, val, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		params.Add(k, val)
	}
	return params, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	params, err := parseParams(importOpts.params)
	if err != nil {
		return err
	}

	baseURL := cfg.YNRBaseURL
	if importOpts.baseURL != "" {
		baseURL = strings.TrimRight(importOpts.baseURL, "/")
	}

	opts := service.ImportOptions{
		CurrentOnly:          importOpts.current,
		ExcludeCandidacies:   importOpts.excludeCandidacies,
		ForceMetadata:        importOpts.forceAllMetadata,
		ForceCurrentMetadata: importOpts.forceCurrentMetadata,
		RecentlyUpdated:      importOpts.recentlyUpdated,
		ForceUpdate:          importOpts.forceUpdate,
		Params:               params,
		BaseURL:              baseURL,
		PageSize:             cfg.PageSize,
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, repo, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	client := service.NewClient(cfg.HTTPTimeout)
	ee := service.NewEEHelper(client, cfg.EEBaseURL, log)
	importer, err := service.NewBallotImporter(opts, repo, client, ee, log)
	if err != nil {
		return err
	}

	stats, err := importer.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Import cancelled")
		}
		return fmt.Errorf("import failed: %w", err)
	}
	stats.LogSummary(log)

	flagged, err := service.PopulateAnyNonByElections(ctx, repo)
	if err != nil {
		return err
	}
	log.Infof("Flagged %s elections with scheduled ballots", humanize.Comma(flagged))

	elections, ballots, err := ee.DeleteDeletedElections(ctx, repo)
	if err != nil {
		return err
	}
	log.Infof("Deleted %d Election objects", elections)
	log.Infof("Deleted %d PostElection objects", ballots)

	log.Info("Calculating system metrics...")
	metrics, err := service.NewMetricsService(repo).CalculateAndStore(ctx, stats)
	if err != nil {
		log.WithError(err).Warn("Failed to calculate metrics")
		return nil
	}

	log.Info("")
	log.Info("=== System Metrics ===")
	log.Infof("Elections:    %s", humanize.Comma(int64(metrics.Counts.Elections)))
	log.Infof("Posts:        %s", humanize.Comma(int64(metrics.Counts.Posts)))
	log.Infof("Ballots:      %s (%s cancelled)", humanize.Comma(int64(metrics.Counts.Ballots)), humanize.Comma(int64(metrics.Counts.Cancelled)))
	log.Infof("People:       %s", humanize.Comma(int64(metrics.Counts.People)))
	log.Infof("Candidacies:  %s", humanize.Comma(int64(metrics.Counts.Candidacies)))

	return nil
}
