package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"eventleader/internal/event"
	"eventleader/internal/session"
	"eventleader/internal/sheetapi"
	"eventleader/internal/store"
	"eventleader/internal/store/localstore"
	"eventleader/internal/util/slogx"
	"eventleader/internal/version"
)

var (
	stdout = colorable.NewColorableStdout()
	stderr = colorable.NewColorableStderr()
)

var (
	aSheetURL string
	aDBPath   string
	aInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:     "eventleader-watch CODE...",
	Args:    cobra.MinimumNArgs(1),
	Version: version.Version,
	Short:   "Watch event leaderboards in the terminal",
	Long: `EventLeader runs live team leaderboards for offline events.

This command watches one or more events and redraws their leaderboards in the
terminal, reading either the sheet proxy (-u) or a local database (-d)
directly. Participants in several events can watch them all at once.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		log := slogx.DiscardLogger()

		var st store.Store
		if aSheetURL != "" {
			st = sheetapi.NewClient(aSheetURL, &http.Client{Timeout: 30 * time.Second})
		} else {
			db, err := localstore.New(log, localstore.Options{Path: aDBPath})
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			st = db
		}
		defer st.Close()

		mgr := event.NewManager(log, st, event.Options{})
		d := newDisplay(stdout, args)

		sess := session.New(log)
		defer sess.Close()
		for _, code := range args {
			sess.Go("refresh "+code, aInterval, func(ctx context.Context) error {
				v, err := mgr.ParticipantView(ctx, code)
				if err != nil {
					return err
				}
				d.Update(code, v)
				d.Render()
				return nil
			})
		}
		sess.Go("redraw", time.Second, func(ctx context.Context) error {
			d.Render()
			return nil
		})

		<-ctx.Done()
		return nil
	},
}

func main() {
	watchCmd.SetOutput(stdout)
	watchCmd.SetErr(stderr)
	watchCmd.Flags().StringVarP(
		&aSheetURL, "sheet-url", "u", "",
		"sheet proxy endpoint to read from")
	watchCmd.Flags().StringVarP(
		&aDBPath, "db", "d", "eventleader.db",
		"local database to read from")
	watchCmd.Flags().DurationVarP(
		&aInterval, "interval", "i", 5*time.Second,
		"leaderboard refresh interval")
	watchCmd.MarkFlagsMutuallyExclusive("sheet-url", "db")
	if err := watchCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
