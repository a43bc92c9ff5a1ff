package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kirubel/essence-mirror/internal/cli"
	"github.com/kirubel/essence-mirror/internal/voice"
)

var (
	replyWaitFlag time.Duration
	exportFlag    string
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Talk to the stylist in a typed voice session",
	Long: `Opens a speech session with the stylist. Each line you type is sent as a
user turn; the spoken reply is printed as text. Type /quit to end.
With --export the conversation, including reply audio, is saved as a zip.`,
	RunE: runVoice,
}

func init() {
	voiceCmd.Flags().StringVar(&imageFlag, "image", "", "Photo to analyze first so the stylist knows your profile")
	voiceCmd.Flags().StringVar(&voiceFlag, "voice", "", "Joanna, Matthew, Amy or Brian (prompted when empty)")
	voiceCmd.Flags().DurationVar(&replyWaitFlag, "reply-wait", 10*time.Second, "How long to wait for the first reply text")
	voiceCmd.Flags().StringVar(&exportFlag, "export", "", "Write the conversation zip here on exit")
}

func runVoice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	setupCtx, cancel := commandContext(cmd)
	defer cancel()

	a, err := bootstrap(setupCtx)
	if err != nil {
		return err
	}
	if imageFlag != "" {
		res, err := a.analyzeFile(setupCtx, imageFlag)
		if err != nil {
			return err
		}
		fmt.Print(cli.FormatProfile(res.Profile))
	}

	prompter := cli.NewPrompter(os.Stdin, os.Stdout)
	voiceID := voiceFlag
	if voiceID == "" {
		def := a.cfg.Voice.DefaultVoice
		if def == "" {
			def = voice.DefaultVoice
		}
		if voiceID, err = prompter.Choice("Voice", voice.Voices, def); err != nil {
			return err
		}
	}

	chosen, err := a.studio.StartVoice(ctx, a.session, voiceID)
	if err != nil {
		return err
	}
	fmt.Printf("Talking with %s. Type /quit to end.\n", chosen)

	defer func() {
		endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.studio.EndVoice(endCtx, a.session); err != nil {
			log.Warn().Err(err).Msg("Voice session did not end cleanly")
		}
		if exportFlag != "" {
			if err := exportConversation(a, exportFlag); err != nil {
				log.Error().Err(err).Msg("Export failed")
			}
		}
	}()

	for {
		line, err := prompter.Line("you", "")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "/quit" {
			return nil
		}
		if line == "" {
			continue
		}
		if err := a.studio.SendVoiceText(ctx, a.session, line); err != nil {
			return err
		}
		out, err := a.studio.DrainVoice(a.session, replyWaitFlag)
		for _, item := range out.Text {
			if item.Role == voice.RoleAssistant {
				fmt.Printf("%s: %s\n", strings.ToLower(chosen), item.Text)
			}
		}
		if err != nil {
			return err
		}
	}
}

func exportConversation(a *app, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.studio.ExportConversation(a.session, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Conversation saved to %s\n", path)
	return nil
}
