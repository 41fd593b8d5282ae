package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"authorship/internal/api"
	"authorship/internal/ledger"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run history, artifact inventory, and predictions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			addr := strings.TrimSpace(bind)
			if addr == "" {
				addr = cfg.Server.Bind
			}
			if !strings.EqualFold(cfg.Logging.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}
			return ctx.withLedger(func(db *ledger.Store) error {
				mgr, store, err := ctx.newManager(db)
				if err != nil {
					return err
				}
				opts := api.Options{Store: store, Predictors: mgr, Logger: logger}
				if db != nil {
					opts.History = db
				}
				return api.New(opts).Serve(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}
