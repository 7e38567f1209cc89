package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/truthlayer/internal/api"
	"github.com/ppiankov/truthlayer/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Serve exposes the verification pipeline over HTTP:

  POST /v1/verify   {"report": "..."} or a text/* body; returns the trust report
  GET  /healthz     liveness probe

Example:
  truthlayer serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireCredentials(cfg); err != nil {
		return err
	}

	if !cfg.Output.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	p, err := pipeline.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "TruthLayer API listening on %s\n", cfg.Server.Addr)
	return api.NewServer(p, cfg.Server, Version).ListenAndServe(ctx)
}
