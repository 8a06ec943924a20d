package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/languages"
	"github.com/msto63/dolmetscher/internal/orchestrator"
	"github.com/msto63/dolmetscher/internal/translate"
)

var (
	translateJSON   bool
	translateSave   bool
	translateSpeak  bool
	translateDryRun bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <audiodatei>",
	Short: "Audiodatei transkribieren und übersetzen",
	Long: `Transkribiert eine Audiodatei und übersetzt sie in die eingestellten
Zielsprachen. WAV wird direkt gesendet, andere Formate werden mit ffmpeg
umgewandelt.

Beispiele:
  dolmetscher translate memo.wav
  dolmetscher translate memo.webm --save
  dolmetscher translate memo.wav --json
  dolmetscher translate memo.wav --dry-run   # Anfrage nur anzeigen`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().BoolVar(&translateJSON, "json", false, "Ergebnis als JSON ausgeben")
	translateCmd.Flags().BoolVar(&translateSave, "save", false, "Ergebnis als Transkript speichern")
	translateCmd.Flags().BoolVar(&translateSpeak, "speak", false, "Erste Übersetzung vorlesen")
	translateCmd.Flags().BoolVar(&translateDryRun, "dry-run", false, "Anfrage ausgeben statt senden")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("Audiodatei nicht lesbar: %w", err)
	}
	rec := audio.Recording{Data: data, MimeType: audio.MimeTypeForPath(args[0])}

	if translateDryRun {
		return printRequest(ctx, cmd.OutOrStdout(), a, rec)
	}

	return translateAndReport(ctx, cmd.OutOrStdout(), a, rec, translateJSON, translateSave, translateSpeak)
}

// translateAndReport runs the pipeline and prints, saves and speaks the result
func translateAndReport(ctx context.Context, w io.Writer, a *app, rec audio.Recording, asJSON, save, speak bool) error {
	if _, err := a.orchestrator.TranscribeAndTranslate(ctx, rec); err != nil {
		return err
	}
	snap := a.orchestrator.Snapshot()
	msgs := a.messages()

	if asJSON {
		if err := writeJSON(w, stateJSON(snap)); err != nil {
			return err
		}
	} else {
		printState(w, msgs, snap)
	}

	if save {
		saved, err := a.orchestrator.SaveCurrent(ctx)
		if err != nil {
			return err
		}
		if !asJSON {
			fmt.Fprintf(w, "\n%s\n", msgs.Tf("state.saved", "ID", saved.ID, "Group", saved.VariantGroupID))
		}
	}

	if speak && len(snap.TargetCodes) > 0 {
		sp, err := a.speaker()
		if err != nil {
			return err
		}
		if err := sp.Speak(ctx, a.orchestrator.FirstTranslation(), snap.TargetCodes[0]); err != nil {
			return err
		}
	}
	return nil
}

func printRequest(ctx context.Context, w io.Writer, a *app, rec audio.Recording) error {
	encoded, err := a.normalizer.Normalize(ctx, rec)
	if err != nil {
		return err
	}
	codes := a.settings.TargetCodes()
	req, err := translate.NewRequest(encoded, codes, languages.DisplayNames(codes))
	if err != nil {
		return err
	}
	req.SourceLanguageHint = a.settings.Current().SourceHint()

	// the audio payload is replaced to keep the output readable
	req.AudioBase64 = fmt.Sprintf("<%d bytes base64>", len(encoded))
	body, err := translate.BuildRequest(req, a.client.Model(), translate.ModeStrictSchema)
	if err != nil {
		return err
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	return writeJSON(w, pretty)
}

func printState(w io.Writer, msgs *i18n.Localizer, s orchestrator.State) {
	source := s.SourceLanguageName()
	if source == "" {
		source = msgs.T("state.unknown")
	}
	if !s.SourceResolved && s.SourceLanguageCode != "" {
		source += " (" + msgs.T("state.unresolved") + ")"
	}

	fmt.Fprintln(w, msgs.Tf("state.original", "Source", source))
	fmt.Fprintf(w, "  %s\n\n", s.SourceText)

	for _, code := range s.TargetCodes {
		fmt.Fprintf(w, "%s (%s)\n", languages.DisplayName(code), code)
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(s.Translations[code], "\n", "\n  "))
	}

	if u := s.Usage; u != nil && u.TotalTokens > 0 {
		fmt.Fprintf(w, "\n%s\n", msgs.Tf("state.tokens",
			"Total", u.TotalTokens, "Prompt", u.PromptTokens, "Completion", u.CompletionTokens))
	}
}

type stateOutput struct {
	SourceText         string            `json:"sourceText"`
	SourceLanguageCode string            `json:"sourceLanguageCode"`
	SourceResolved     bool              `json:"sourceResolved"`
	TargetCodes        []string          `json:"targetCodes"`
	Translations       map[string]string `json:"translations"`
	Usage              *translate.Usage  `json:"usage,omitempty"`
}

func stateJSON(s orchestrator.State) stateOutput {
	return stateOutput{
		SourceText:         s.SourceText,
		SourceLanguageCode: s.SourceLanguageCode,
		SourceResolved:     s.SourceResolved,
		TargetCodes:        s.TargetCodes,
		Translations:       s.Translations,
		Usage:              s.Usage,
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
