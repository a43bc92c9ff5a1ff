package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kirubel/essence-mirror/internal/awsboot"
	"github.com/kirubel/essence-mirror/internal/cli"
	"github.com/kirubel/essence-mirror/internal/mirror"
	"github.com/kirubel/essence-mirror/internal/reel"
)

// Subcommand flags
var (
	imageFlag    string
	focusFlag    string
	colorFlag    string
	durationFlag int
	waitFlag     bool
	intervalFlag time.Duration
	sessionFlag  string
	voiceFlag    string
	outFlag      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Upload a photo and print its style profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		res, err := a.analyzeFile(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Print(cli.FormatProfile(res.Profile))
		fmt.Printf("Source:            %s\n", res.Source)
		if res.Profile.Narrative != "" {
			fmt.Printf("\n%s\n", res.Profile.Narrative)
		}
		return nil
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate recommendations, from a photo or a lifestyle focus alone",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if imageFlag != "" {
			if _, err := a.analyzeFile(ctx, imageFlag); err != nil {
				return err
			}
		}
		set, err := a.studio.Recommend(ctx, a.session, focusFlag)
		if err != nil {
			return err
		}
		fmt.Print(cli.FormatRecommendations(set))
		return nil
	},
}

var collageCmd = &cobra.Command{
	Use:   "collage",
	Short: "Generate a style collage and save it when returned inline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if imageFlag != "" {
			if _, err := a.analyzeFile(ctx, imageFlag); err != nil {
				return err
			}
			if _, err := a.studio.Recommend(ctx, a.session, focusFlag); err != nil {
				log.Warn().Err(err).Msg("Recommendations failed, generating the collage without them")
			}
		}
		c, err := a.studio.Collage(ctx, a.session, mirror.CollageOptions{StyleFocus: focusFlag, ColorPreference: colorFlag})
		if err != nil {
			return err
		}
		if c.URL != "" {
			fmt.Printf("Collage: %s\n", c.URL)
		}
		if c.Base64 != "" {
			img, err := c.Image()
			if err != nil {
				return err
			}
			path := outFlag
			if path == "" {
				path = "collage.png"
			}
			if err := os.WriteFile(path, img, 0o644); err != nil {
				return fmt.Errorf("write collage: %w", err)
			}
			fmt.Printf("Collage saved to %s (%d bytes)\n", path, len(img))
		}
		return nil
	},
}

var reelCmd = &cobra.Command{
	Use:   "reel",
	Short: "Start or poll style reel video generations",
}

var reelStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Submit a style reel generation from a photo",
	RunE: func(cmd *cobra.Command, args []string) error {
		if imageFlag == "" {
			return fmt.Errorf("--image is required")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if _, err := a.analyzeFile(ctx, imageFlag); err != nil {
			return err
		}
		job, err := a.studio.StartReel(ctx, a.session, mirror.ReelOptions{StyleFocus: focusFlag, DurationSeconds: durationFlag})
		if err != nil {
			return err
		}
		printJob(job)
		if !waitFlag {
			if a.cfg.Reel.JobsTable == "" {
				fmt.Fprintln(os.Stderr, "Note: reel.jobs_table is not set, so this job can only be polled with --wait.")
			}
			fmt.Printf("Poll with: mirror-cli reel poll %s --session %s\n", job.ID, a.session.ID())
			return nil
		}
		return waitForJob(ctx, func(ctx context.Context) (*reel.Job, error) {
			return a.studio.PollReel(ctx, a.session, job.ID)
		})
	},
}

var reelPollCmd = &cobra.Command{
	Use:   "poll <jobId>",
	Short: "Check a reel job started by an earlier invocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionFlag == "" {
			return fmt.Errorf("--session is required")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		gateway := awsboot.NewGateway(a.cfg, a.clients)
		tracker := awsboot.BuildTracker(a.cfg, a.clients, gateway)
		poll := func(ctx context.Context) (*reel.Job, error) {
			return tracker.Poll(ctx, sessionFlag, args[0])
		}
		if waitFlag {
			return waitForJob(ctx, poll)
		}
		job, err := poll(ctx)
		if err != nil {
			return err
		}
		printJob(job)
		return nil
	},
}

func printJob(job *reel.Job) {
	fmt.Printf("Job:    %s\nStatus: %s\n", job.ID, job.Status)
	if job.PlaybackURL != "" {
		fmt.Printf("Watch:  %s\n", job.PlaybackURL)
	} else if job.ResultURL != "" {
		fmt.Printf("Result: %s\n", job.ResultURL)
	}
	if job.Error != "" {
		fmt.Printf("Error:  %s\n", job.Error)
	}
}

// waitForJob polls until the job is terminal or ctx ends.
func waitForJob(ctx context.Context, poll func(context.Context) (*reel.Job, error)) error {
	start := time.Now()
	interval := intervalFlag
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := poll(ctx)
		if err != nil {
			return err
		}
		if job.Terminal() {
			fmt.Printf("Finished after %s\n", cli.FormatDurationShort(time.Since(start)))
			printJob(job)
			return nil
		}
		fmt.Fprintf(os.Stderr, "  %s elapsed, status %s\n", cli.FormatDurationShort(time.Since(start)), job.Status)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

var narrateCmd = &cobra.Command{
	Use:   "narrate",
	Short: "Narrate a photo's profile and recommendations as mp3 files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if imageFlag == "" {
			return fmt.Errorf("--image is required")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		if _, err := a.analyzeFile(ctx, imageFlag); err != nil {
			return err
		}
		if _, err := a.studio.Recommend(ctx, a.session, focusFlag); err != nil {
			log.Warn().Err(err).Msg("Recommendations failed, narrating the profile only")
		}
		sections, err := a.studio.Narrate(ctx, a.session, voiceFlag)
		if err != nil {
			return err
		}

		dir := outFlag
		if dir == "" {
			dir = "narration"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		for i, s := range sections {
			path := filepath.Join(dir, fmt.Sprintf("%02d-%s.mp3", i+1, s.Name))
			if err := os.WriteFile(path, s.Audio, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			d := time.Duration(s.DurationSeconds * float64(time.Second))
			fmt.Printf("%-18s %5s  %s\n", s.Name, cli.FormatDurationShort(d), path)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().StringVar(&imageFlag, "image", "", "Photo to analyze first")
	recommendCmd.Flags().StringVar(&focusFlag, "focus", "", "Lifestyle focus, e.g. travel or wardrobe")

	collageCmd.Flags().StringVar(&imageFlag, "image", "", "Photo to analyze first")
	collageCmd.Flags().StringVar(&focusFlag, "focus", "", "Style focus")
	collageCmd.Flags().StringVar(&colorFlag, "color", "", "Color preference")
	collageCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Where to save an inline collage (default collage.png)")

	reelStartCmd.Flags().StringVar(&imageFlag, "image", "", "Photo to transform")
	reelStartCmd.Flags().StringVar(&focusFlag, "focus", "", "wardrobe, interior, travel or lifestyle")
	reelStartCmd.Flags().IntVar(&durationFlag, "duration", reel.DefaultDurationSeconds, "Video length in seconds")
	reelStartCmd.Flags().BoolVar(&waitFlag, "wait", false, "Poll until the video is ready")
	reelStartCmd.Flags().DurationVar(&intervalFlag, "interval", 15*time.Second, "Polling interval with --wait")

	reelPollCmd.Flags().StringVar(&sessionFlag, "session", "", "Session ID printed by reel start")
	reelPollCmd.Flags().BoolVar(&waitFlag, "wait", false, "Poll until the video is ready")
	reelPollCmd.Flags().DurationVar(&intervalFlag, "interval", 15*time.Second, "Polling interval with --wait")
	reelCmd.AddCommand(reelStartCmd, reelPollCmd)

	narrateCmd.Flags().StringVar(&imageFlag, "image", "", "Photo to analyze")
	narrateCmd.Flags().StringVar(&focusFlag, "focus", "", "Lifestyle focus for the recommendations")
	narrateCmd.Flags().StringVar(&voiceFlag, "voice", "", "joanna, matthew, amy, brian, emma or olivia")
	narrateCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output directory (default ./narration)")
}
