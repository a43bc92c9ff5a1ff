package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirubel/essence-mirror/internal/awsboot"
	"github.com/kirubel/essence-mirror/internal/cli"
	"github.com/kirubel/essence-mirror/internal/config"
	"github.com/kirubel/essence-mirror/internal/logging"
	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/mirror"
)

// Persistent flags
var (
	configFlag  string
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mirror-cli",
	Short: "Run EssenceMirror style sessions from the terminal",
	Long: `Mirror CLI runs the EssenceMirror flow against the configured AWS account:
analyze a photo, generate recommendations and collages, start and poll style
reels, narrate the results, or talk to the stylist by voice.

Examples:
  mirror-cli analyze ./me.jpg
  mirror-cli recommend --image ./me.jpg --focus travel
  mirror-cli reel start --image ./me.jpg --focus wardrobe
  mirror-cli reel poll <jobId> --session <sessionId>
  mirror-cli narrate --image ./me.jpg --voice amy --out ./narration
  mirror-cli voice --image ./me.jpg`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a YAML, JSON or TOML config file")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 5*time.Minute, "Overall deadline for remote calls")

	rootCmd.AddCommand(analyzeCmd, recommendCmd, collageCmd, reelCmd, narrateCmd, voiceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the per-invocation wiring.
type app struct {
	cfg     *config.Config
	clients awsboot.Clients
	studio  *mirror.Studio
	session *mirror.Session
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	clients, err := awsboot.InitAWS(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	if err := awsboot.ResolveAgentIdentity(ctx, clients.SSM, &cfg.Agent); err != nil {
		return nil, err
	}
	studio := awsboot.BuildStudio(cfg, clients)
	return &app{cfg: cfg, clients: clients, studio: studio, session: studio.Sessions().Create()}, nil
}

// analyzeFile uploads and analyzes the image at path in the app's session.
func (a *app) analyzeFile(ctx context.Context, path string) (mirror.AnalysisResult, error) {
	resolved, err := cli.ResolveImagePath(path)
	if err != nil {
		return mirror.AnalysisResult{}, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return mirror.AnalysisResult{}, fmt.Errorf("read image: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Analyzing %s...\n", resolved)
	return a.studio.Analyze(ctx, a.session, media.Upload{
		Data:     data,
		Filename: filepath.Base(resolved),
		Source:   "cli",
	})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeoutFlag)
}
