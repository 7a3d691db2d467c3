package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evalify/evalify-sub003/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the import HTTP API",
	Long: `The serve command exposes upload, review, confirm and abandon endpoints under
/api/imports, plus Prometheus metrics. Validated imports wait for confirmation
for server.session_ttl before they are dropped.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		catalog, closeCatalog, err := openCatalog(ctx, cfg.Catalog, logger)
		if err != nil {
			return err
		}
		defer closeCatalog()

		sessions := server.NewSessions(cfg.Server.SessionTTL)
		go sessions.RunSweeper(ctx, cfg.Server.SessionTTL/2)

		srv := server.New(newEngine(cfg, catalog, logger), sessions, server.Options{
			Addr:           cfg.Server.Addr,
			MetricsPath:    cfg.Server.MetricsPath,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Decode:         decodeOptions(cfg),
			Logger:         logger,
		})
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
