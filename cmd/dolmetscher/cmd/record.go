package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	recordJSON  bool
	recordSave  bool
	recordSpeak bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Über das Mikrofon aufnehmen und übersetzen",
	Long: `Nimmt über das Standard-Mikrofon auf, bis Enter gedrückt wird oder
die Sprachpause erkannt wurde (audio.auto_stop), und übersetzt die Aufnahme.

Beispiele:
  dolmetscher record
  dolmetscher record --save --speak`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().BoolVar(&recordJSON, "json", false, "Ergebnis als JSON ausgeben")
	recordCmd.Flags().BoolVar(&recordSave, "save", false, "Ergebnis als Transkript speichern")
	recordCmd.Flags().BoolVar(&recordSpeak, "speak", false, "Erste Übersetzung vorlesen")
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	recorder := a.recorder()
	recCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := recorder.Start(recCtx); err != nil {
		return fmt.Errorf("Mikrofon nicht verfügbar (%s): %w", recorder.Permission(), err)
	}
	msgs := a.messages()
	fmt.Fprintln(os.Stderr, msgs.T("record.running"))

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	select {
	case <-enter:
	case <-recorder.Done():
		fmt.Fprintln(os.Stderr, msgs.T("record.silence"))
	case <-ctx.Done():
	}

	rec, err := recorder.Stop()
	if err != nil && len(rec.Data) == 0 {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	fmt.Fprintln(os.Stderr, msgs.T("record.processing"))
	return translateAndReport(ctx, cmd.OutOrStdout(), a, rec, recordJSON, recordSave, recordSpeak)
}
