package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/languages"
	"github.com/msto63/dolmetscher/internal/store"
)

var transcriptsLimit int

var transcriptsCmd = &cobra.Command{
	Use:     "transcripts",
	Aliases: []string{"tr"},
	Short:   "Gespeicherte Transkripte verwalten",
	Long: `Listet gespeicherte Transkripte und ihre Varianten.

Beispiele:
  dolmetscher transcripts                       # Neueste zuerst
  dolmetscher transcripts show 12
  dolmetscher transcripts group 12              # Variantenbaum
  dolmetscher transcripts retranslate 12        # Neu übersetzen, als Variante speichern
  dolmetscher transcripts export-audio 12 memo.wav
  dolmetscher transcripts delete 12`,
	Args: cobra.NoArgs,
	RunE: runTranscriptsList,
}

func init() {
	rootCmd.AddCommand(transcriptsCmd)
	transcriptsCmd.Flags().IntVarP(&transcriptsLimit, "limit", "n", 20, "Maximale Anzahl")

	transcriptsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Transkripte auflisten",
			Args:  cobra.NoArgs,
			RunE:  runTranscriptsList,
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Transkript anzeigen",
			Args:  cobra.ExactArgs(1),
			RunE:  runTranscriptsShow,
		},
		&cobra.Command{
			Use:   "group <id>",
			Short: "Varianten eines Transkripts anzeigen",
			Args:  cobra.ExactArgs(1),
			RunE:  runTranscriptsGroup,
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Transkript löschen (Varianten bleiben erhalten)",
			Args:  cobra.ExactArgs(1),
			RunE:  runTranscriptsDelete,
		},
		&cobra.Command{
			Use:   "retranslate <id>",
			Short: "Mit den aktuellen Zielsprachen neu übersetzen",
			Args:  cobra.ExactArgs(1),
			RunE:  runTranscriptsRetranslate,
		},
		&cobra.Command{
			Use:   "export-audio <id> <datei>",
			Short: "Aufnahme als Datei speichern",
			Args:  cobra.ExactArgs(2),
			RunE:  runTranscriptsExport,
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Statistik der Datenbank",
			Args:  cobra.NoArgs,
			RunE:  runTranscriptsStats,
		},
	)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ungültige ID: %s", s)
	}
	return id, nil
}

// withStore runs fn with a loaded app
func withStore(fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func getTranscript(ctx context.Context, db *store.DB, arg string) (*store.Transcript, error) {
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	t, err := db.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("#%d: %w", id, store.ErrTranscriptNotFound)
	}
	return t, nil
}

func runTranscriptsList(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		list, err := a.db.List(ctx, transcriptsLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(w, a.messages().T("transcripts.none"))
			return nil
		}
		for _, t := range list {
			printTranscriptLine(w, t, "")
		}
		return nil
	})
}

func runTranscriptsShow(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		t, err := getTranscript(ctx, a.db, args[0])
		if err != nil {
			return err
		}
		printTranscript(cmd.OutOrStdout(), a.messages(), t)
		return nil
	})
}

func runTranscriptsGroup(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		t, err := getTranscript(ctx, a.db, args[0])
		if err != nil {
			return err
		}
		records, err := a.db.ByGroup(ctx, t.VariantGroupID)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		msgs := a.messages()
		fmt.Fprintln(w, msgs.Tf("transcripts.group", "Group", t.VariantGroupID, "Count", len(records)))
		store.Walk(store.BuildLineage(records), func(n *store.LineageNode, depth int) {
			prefix := strings.Repeat("  ", depth)
			if depth > 0 {
				prefix = strings.Repeat("  ", depth-1) + "└ "
			}
			if n.Dangling {
				prefix += msgs.T("transcripts.dangling") + " "
			}
			printTranscriptLine(w, n.Transcript, prefix)
		})
		return nil
	})
}

func runTranscriptsDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.db.Remove(ctx, id); err != nil {
			if errors.Is(err, store.ErrTranscriptNotFound) {
				return fmt.Errorf("#%d: %w", id, err)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.messages().Tf("transcripts.deleted", "ID", id))
		return nil
	})
}

func runTranscriptsRetranslate(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		variant, err := a.orchestrator.RetranslateAndSave(ctx, id)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		msgs := a.messages()
		printState(w, msgs, a.orchestrator.Snapshot())
		fmt.Fprintf(w, "\n%s\n", msgs.Tf("transcripts.variant_saved", "ID", variant.ID, "Parent", id))
		return nil
	})
}

func runTranscriptsExport(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		t, err := getTranscript(ctx, a.db, args[0])
		if err != nil {
			return err
		}
		if len(t.Audio) == 0 {
			return fmt.Errorf("#%d enthält keine Aufnahme", t.ID)
		}
		if err := os.WriteFile(args[1], t.Audio, 0644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.messages().Tf("transcripts.exported",
			"Bytes", len(t.Audio), "Mime", t.AudioMimeType, "Path", args[1]))
		return nil
	})
}

func runTranscriptsStats(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, a *app) error {
		stats, err := a.db.Statistics(ctx)
		if err != nil {
			return err
		}
		version, err := a.db.Version(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		msgs := a.messages()
		stat := func(label string, v interface{}) {
			fmt.Fprintf(w, "%-21s %v\n", label+":", v)
		}
		stat(msgs.T("stats.schema"), version)
		stat(msgs.T("stats.transcripts"), stats["total_transcripts"])
		stat(msgs.T("stats.groups"), stats["variant_groups"])
		if b, ok := stats["stored_audio_bytes"]; ok {
			stat(msgs.T("stats.audio"), msgs.Tf("stats.audio_bytes", "Bytes", b))
		}
		stat(msgs.T("stats.conversations"), stats["legacy_conversations"])
		return nil
	})
}

func printTranscriptLine(w io.Writer, t *store.Transcript, prefix string) {
	fmt.Fprintf(w, "%s#%-5d %s  [%s → %s]  %s\n",
		prefix,
		t.ID,
		t.CreatedAt.Local().Format("2006-01-02 15:04"),
		t.SourceLanguageCode,
		strings.Join(t.TargetCodes, ","),
		truncate(t.SourceText, 50))
}

func printTranscript(w io.Writer, msgs *i18n.Localizer, t *store.Transcript) {
	line := func(label, value string) {
		fmt.Fprintf(w, "  %-13s %s\n", label+":", value)
	}
	fmt.Fprintln(w, msgs.Tf("transcript.title", "ID", t.ID))
	line(msgs.T("transcript.created"), t.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	line(msgs.T("transcript.group"), t.VariantGroupID)
	if t.VariantOfID != nil {
		line(msgs.T("transcript.variant_of"), fmt.Sprintf("#%d", *t.VariantOfID))
	}
	line(msgs.T("transcript.audio"), msgs.Tf("transcript.audio_size", "Bytes", len(t.Audio), "Mime", t.AudioMimeType))
	if u := t.Usage; u != nil {
		line(msgs.T("transcript.usage"), formatStoredUsage(msgs, u))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n  %s\n\n", msgs.Tf("state.original", "Source", languageLabel(t.SourceLanguageCode)), t.SourceText)
	for _, code := range t.TargetCodes {
		fmt.Fprintf(w, "%s (%s)\n  %s\n", languages.DisplayName(code), code, t.Translations[code])
	}
}

func formatStoredUsage(msgs *i18n.Localizer, u *store.Usage) string {
	var parts []string
	if u.AudioSeconds > 0 {
		parts = append(parts, msgs.Tf("usage.audio", "Seconds", fmt.Sprintf("%.1f", u.AudioSeconds)))
	}
	if u.TotalTokens > 0 {
		parts = append(parts, msgs.Tf("usage.tokens",
			"Total", u.TotalTokens, "Prompt", u.PromptTokens, "Completion", u.CompletionTokens))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
