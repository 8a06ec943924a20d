package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dolmetscher",
	Short: "Dolmetscher - Sprachaufnahmen transkribieren und übersetzen",
	Long: `Dolmetscher nimmt Sprache auf, lässt sie von einem Sprachmodell
transkribieren und in bis zu zehn Zielsprachen übersetzen.

Befehle:
  translate    - Audiodatei übersetzen
  record       - Über das Mikrofon aufnehmen und übersetzen
  tui          - Interaktive Oberfläche
  settings     - Einstellungen anzeigen und ändern
  transcripts  - Gespeicherte Transkripte verwalten`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("Befehl fehlgeschlagen", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config-Datei (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose Output")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Fehler: %s: %v\n", msg, err)
}
