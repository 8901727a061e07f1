package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"price-scout/api"
	"price-scout/utils"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, err := rootOpts.engine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if eng.Config.Environment == "production" {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = eng.Config.HTTPAddr
			}

			utils.Section("price-scout API")
			srv := api.NewServer(api.Deps{
				Config:      eng.Config,
				Comparer:    eng.Comparer,
				Rates:       eng.Rates,
				Preferences: eng.Preferences,
				Renderer:    eng.Renderer,
			})
			err = srv.Run(ctx, addr)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			utils.Info("HTTP server stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured HTTP address)")
	return cmd
}
