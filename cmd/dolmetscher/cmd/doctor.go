package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/audio/capture"
	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/tts"
	"github.com/msto63/dolmetscher/pkg/core/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Prüft Konfiguration und Abhängigkeiten",
	Long: `Prüft API-Schlüssel, Zielsprachen, Datenbank, ffmpeg, Mikrofon
und Sprachausgabe.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	msgs := a.messages()
	report := doctorRegistry(a, msgs).Check(ctx)

	w := cmd.OutOrStdout()
	for _, c := range report.Checks {
		fmt.Fprintf(w, "  %-3s %-14s %s\n", statusMark(c.Status), c.Name, c.Message)
	}
	fmt.Fprintf(w, "\n%s\n", msgs.Tf("doctor.total", "Status", report.Status))
	if report.Status == health.StatusUnhealthy {
		return errors.New(msgs.Tf("doctor.failed", "Count", len(report.Failed())))
	}
	return nil
}

func doctorRegistry(a *app, msgs *i18n.Localizer) *health.Registry {
	r := health.NewRegistry()

	r.RegisterFunc("api-key", func(ctx context.Context) health.CheckResult {
		if a.settings.Current().HasAPIKey() {
			return health.CheckResult{Status: health.StatusHealthy, Message: msgs.T("doctor.key_set")}
		}
		return health.CheckResult{Status: health.StatusUnhealthy, Message: msgs.T("doctor.key_missing")}
	})
	r.RegisterFunc("zielsprachen", func(ctx context.Context) health.CheckResult {
		codes := a.settings.TargetCodes()
		if len(codes) == 0 {
			return health.CheckResult{Status: health.StatusUnhealthy, Message: msgs.T("doctor.no_targets")}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprint(codes)}
	})
	r.RegisterFunc("datenbank", func(ctx context.Context) health.CheckResult {
		v, err := a.db.Version(ctx)
		if err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Message: err.Error()}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: msgs.Tf("doctor.schema", "Path", a.cfg.Storage.DatabasePath, "Version", v)}
	})
	r.Register(health.BinaryCheck("ffmpeg", a.cfg.Audio.FFmpegBinary, false))
	r.RegisterFunc("mikrofon", func(ctx context.Context) health.CheckResult {
		devices, err := capture.ListInputDevices()
		if err != nil {
			return health.CheckResult{Status: health.StatusDegraded, Message: err.Error()}
		}
		if len(devices) == 0 {
			return health.CheckResult{Status: health.StatusDegraded, Message: msgs.T("doctor.no_input")}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: msgs.Tf("doctor.inputs", "Count", len(devices))}
	})
	if a.cfg.TTS.Engine != tts.EngineNone {
		r.Register(health.BinaryCheck("sprachausgabe", a.cfg.TTS.Engine, false))
	}
	r.Register(health.HTTPCheck("api", a.cfg.API.BaseURL+"/models", 5*time.Second))

	return r
}

func statusMark(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "ok"
	case health.StatusDegraded:
		return "!"
	default:
		return "x"
	}
}
