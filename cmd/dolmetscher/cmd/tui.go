package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Startet die interaktive TUI",
	Long: `Startet die Terminal User Interface (TUI) von Dolmetscher.

Tasten:
  r         - Aufnahme starten/beenden
  Enter     - Aufnahme übersetzen
  s         - Ergebnis speichern
  p         - Erste Übersetzung vorlesen
  q, Ctrl+C - Beenden`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	speaker, err := a.speaker()
	if err != nil {
		return err
	}

	if err := tui.Run(ctx, a.orchestrator, a.recorder(), speaker, a.messages()); err != nil {
		fmt.Fprintf(os.Stderr, "TUI Fehler: %v\n", err)
		return err
	}
	return nil
}
