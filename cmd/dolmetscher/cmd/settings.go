package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/languages"
	"github.com/msto63/dolmetscher/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Einstellungen anzeigen und ändern",
	Long: `Zeigt die gespeicherten Einstellungen an und ändert sie.

Beispiele:
  dolmetscher settings                          # Einstellungen anzeigen
  dolmetscher settings set-key sk-...
  dolmetscher settings set-source auto
  dolmetscher settings set-targets fr,es,ja
  dolmetscher settings set-voice fr Thomas
  dolmetscher settings languages`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(ctx context.Context, a *app) error {
			printSettings(cmd.OutOrStdout(), a.messages(), a.settings.Current())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Einstellungen anzeigen",
			RunE:  settingsCmd.RunE,
		},
		settingsSetter("set-key <schlüssel>", "API-Schlüssel setzen", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				return st.SetAPIKey(ctx, args[0])
			}),
		settingsSetter("set-source <code|auto>", "Ausgangssprache setzen (auto = erkennen)", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				return st.SetSourceLang(ctx, args[0])
			}),
		settingsSetter("set-target <code>", "Einzelne Zielsprache setzen", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				return st.SetTargetLang(ctx, args[0])
			}),
		settingsSetter("set-targets <code,code,...>", "Zielsprachen setzen (max. 10)", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				return st.SetExtendedTargetLangs(ctx, strings.Split(args[0], ","))
			}),
		settingsSetter("set-multi <on|off>", "Mehrere Zielsprachen verwenden", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				on, err := parseOnOff(args[0])
				if err != nil {
					return err
				}
				return st.SetMultiTarget(ctx, on)
			}),
		settingsSetter("set-voice <code> [stimme]", "TTS-Stimme für eine Sprache setzen (leer = entfernen)", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				voice := ""
				if len(args) > 1 {
					voice = args[1]
				}
				return st.SetTTSVoice(ctx, args[0], voice)
			}),
		settingsSetter("set-info-language <code>", "Sprache der Hinweistexte setzen", 1,
			func(ctx context.Context, st *settings.Store, args []string) error {
				return st.SetInfoLanguage(ctx, args[0])
			}),
		settingsSetter("complete-setup", "Spracheinrichtung als abgeschlossen markieren", 0,
			func(ctx context.Context, st *settings.Store, args []string) error {
				return st.CompleteLanguageSetup(ctx)
			}),
		&cobra.Command{
			Use:   "migrate",
			Short: "Alte Einstellungsdatei übernehmen",
			Args:  cobra.NoArgs,
			RunE:  runSettingsMigrate,
		},
		&cobra.Command{
			Use:   "languages",
			Short: "Verfügbare Sprachen anzeigen",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printLanguages(cmd.OutOrStdout())
			},
		},
	)
}

// settingsSetter builds a subcommand that applies one mutator
func settingsSetter(use, short string, minArgs int, apply func(context.Context, *settings.Store, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.RangeArgs(minArgs, minArgs+1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(func(ctx context.Context, a *app) error {
				if err := apply(ctx, a.settings, args); err != nil {
					return err
				}
				msgs := a.messages()
				if strings.HasPrefix(use, "set-targets") {
					codes := strings.Split(args[0], ",")
					if len(settings.CapTargets(codes)) < countNonEmpty(codes) {
						fmt.Fprintln(cmd.ErrOrStderr(), msgs.Tf("settings.targets_capped", "Max", settings.MaxExtendedTargets))
					}
				}
				printSettings(cmd.OutOrStdout(), msgs, a.settings.Current())
				return nil
			})
		},
	}
}

func withSettings(fn func(context.Context, *app) error) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// runSettingsMigrate runs the legacy import without loading first, so the
// result reflects whether this call did the work
func runSettingsMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.LegacySettingsPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), i18n.Default().For("").T("migrate.unconfigured"))
		return nil
	}

	a, err := openStoreOnly(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	migrated, err := a.settings.Migrate(ctx)
	if err != nil {
		return err
	}
	if err := a.settings.EnsureLoaded(ctx); err != nil {
		return err
	}
	msgs := a.messages()
	if migrated {
		fmt.Fprintln(cmd.OutOrStdout(), msgs.Tf("migrate.done", "Path", cfg.Storage.LegacySettingsPath))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), msgs.T("migrate.nothing"))
	}
	return nil
}

func printSettings(w io.Writer, msgs *i18n.Localizer, s settings.AppSettings) {
	key := msgs.T("settings.not_set")
	if s.HasAPIKey() {
		key = maskKey(s.APIKey)
	}
	source := msgs.T("settings.auto")
	if s.SourceHint() != "" {
		source = languageLabel(s.SourceHint())
	}
	mode := msgs.T("settings.single")
	if s.MultiTarget {
		mode = msgs.T("settings.multi")
	}

	title := msgs.T("settings.title")
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(title)))
	field(w, msgs.T("settings.api_key"), key)
	field(w, msgs.T("settings.source"), source)
	field(w, msgs.T("settings.mode"), mode)
	field(w, msgs.T("settings.target"), languageLabel(s.TargetLangSingle))

	labels := make([]string, len(s.ExtendedTargetLangs))
	for i, c := range s.ExtendedTargetLangs {
		labels[i] = languageLabel(c)
	}
	field(w, msgs.T("settings.targets"), strings.Join(labels, ", "))
	field(w, msgs.T("settings.info_language"), languageLabel(s.InfoLanguage))
	field(w, msgs.T("settings.setup_done"), fmt.Sprint(s.HasCompletedLanguageSetup))

	if len(s.TTSVoicePerLanguage) > 0 {
		langs := make([]string, 0, len(s.TTSVoicePerLanguage))
		for l := range s.TTSVoicePerLanguage {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		fmt.Fprintf(w, "  %s:\n", msgs.T("settings.voices"))
		for _, l := range langs {
			fmt.Fprintf(w, "    %-6s %s\n", l, s.TTSVoicePerLanguage[l])
		}
	}
	if !s.UpdatedAt.IsZero() {
		field(w, msgs.T("settings.updated"), s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

// field prints one aligned "label: value" line
func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-19s %s\n", label+":", value)
}

func printLanguages(w io.Writer) {
	for _, l := range languages.All() {
		fmt.Fprintf(w, "  %-6s %-22s %s\n", l.Code, l.Name, l.NativeName)
	}
}

func languageLabel(code string) string {
	if code == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", languages.DisplayName(code), code)
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", 6) + key[len(key)-4:]
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "ja":
		return true, nil
	case "off", "false", "0", "nein":
		return false, nil
	default:
		return false, fmt.Errorf("ungültiger Wert %q (on/off)", s)
	}
}

func countNonEmpty(codes []string) int {
	n := 0
	for _, c := range codes {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
