package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kirubel/essence-mirror/internal/awsboot"
	"github.com/kirubel/essence-mirror/internal/config"
	"github.com/kirubel/essence-mirror/internal/httpapi"
	"github.com/kirubel/essence-mirror/internal/logging"
)

// CLI flags
var (
	configFlag string
	portFlag   int
)

var rootCmd = &cobra.Command{
	Use:   "mirror-web",
	Short: "HTTP API for EssenceMirror style sessions",
	Long: `Mirror Web serves the EssenceMirror API: image analysis, recommendations,
collages, style reels, narration and voice conversations, one session per
visitor. Prometheus metrics are exposed at /metrics.

Configuration comes from defaults, an optional config file and ESSENCE_*
environment variables, in that order.

Examples:
  mirror-web
  mirror-web --port 9090
  mirror-web --config essence.yaml`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVar(&configFlag, "config", logging.EnvOrDefault("ESSENCE_CONFIG_FILE", ""), "Path to a YAML, JSON or TOML config file")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides server.port)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := awsboot.InitAWS(ctx, cfg.AWS.Region)
	if err != nil {
		return err
	}
	if err := awsboot.ResolveAgentIdentity(ctx, clients.SSM, &cfg.Agent); err != nil {
		return err
	}
	studio := awsboot.BuildStudio(cfg, clients)

	handler := httpapi.NewRouter(studio, httpapi.Options{
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		UploadSource:       cfg.Storage.UploadSource,
		DefaultVoice:       cfg.Voice.DefaultVoice,
		CORSOrigins:        cfg.Server.CORSOrigins,
		OriginVerifySecret: cfg.Server.OriginVerifySecret,
		ServeMetrics:       true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	awsboot.StartupLog("mirror-web", cfg, initStart).
		CommitHash(commitHash).
		Config("buildTime", buildTime).
		Config("port", fmt.Sprint(cfg.Server.Port)).
		Log()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
