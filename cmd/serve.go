package cmd

import (
	"github.com/jjenkins/wcivf/internal/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only JSON API",
	Long:  `Start a web server exposing elections, ballots and candidacies from the local database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		db, repo, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		app := handlers.NewApp(repo, log, true)

		go func() {
			<-ctx.Done()
			_ = app.Shutdown()
		}()

		log.Infof("Starting server on :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to run the server on")
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
