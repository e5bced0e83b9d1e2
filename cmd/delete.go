package cmd

import (
	"github.com/jjenkins/wcivf/internal/service"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete-deleted-elections",
	Short: "Remove elections and ballots the boundary service reports as deleted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		db, repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		ee := service.NewEEHelper(service.NewClient(cfg.HTTPTimeout), cfg.EEBaseURL, log)
		elections, ballots, err := ee.DeleteDeletedElections(ctx, repo)
		if err != nil {
			return err
		}

		log.Infof("Deleted %d Election objects", elections)
		log.Infof("Deleted %d PostElection objects", ballots)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
