package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/sessions"
	"github.com/spf13/cobra"

	"eventleader/internal/event"
	"eventleader/internal/sheetapi"
	"eventleader/internal/store"
	"eventleader/internal/store/localstore"
	"eventleader/internal/util/slogx"
	"eventleader/internal/version"
	"eventleader/internal/webapi"
)

var serverCmd = &cobra.Command{
	Use:     "eventleader-server",
	Args:    cobra.ExactArgs(0),
	Version: version.Version,
	Short:   "Start EventLeader server",
	Long: `EventLeader runs live team leaderboards for offline events.

This command runs the EventLeader web server. Storage is an embedded sqlite
database by default; set sheet-url in the options to store everything in a
spreadsheet behind the sheet proxy instead.
`,
}

func sessionKey(log *slog.Logger, opts *Options) ([]byte, error) {
	if opts.SessionKey != "" {
		return []byte(opts.SessionKey), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	log.Info("no session key configured, sessions will not survive restart")
	return key, nil
}

func main() {
	p := serverCmd.Flags()
	optsPath := p.StringP(
		"options", "o", "",
		"options file",
	)
	if err := serverCmd.MarkFlagRequired("options"); err != nil {
		panic(err)
	}

	serverCmd.RunE = func(cmd *cobra.Command, _args []string) error {
		rawOpts, err := os.ReadFile(*optsPath)
		if err != nil {
			return fmt.Errorf("read options: %w", err)
		}
		var opts Options
		if err := toml.Unmarshal(rawOpts, &opts); err != nil {
			return fmt.Errorf("unmarshal options: %w", err)
		}
		opts.FillDefaults()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		log := slog.Default()

		key, err := sessionKey(log, &opts)
		if err != nil {
			return err
		}

		var (
			st        store.Store
			sessStore sessions.Store
		)
		if opts.SheetURL != "" {
			log.Info("using remote sheet backend", slog.String("endpoint", opts.SheetURL))
			st = sheetapi.NewClient(opts.SheetURL, &http.Client{Timeout: opts.SheetTimeout})
			sessStore = sessions.NewCookieStore(key)
		} else {
			db, err := localstore.New(log, opts.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			st = db
			sessStore = db.NewSessionStore(ctx, key, opts.SessionCleanupInterval)
		}
		defer st.Close()

		mgr := event.NewManager(log, st, opts.Event)
		mux := http.NewServeMux()
		_ = webapi.New(log, mux, mgr, sessStore, opts.Web)

		servFin := make(chan struct{})
		servCtx, servCancel := context.WithCancel(ctx)
		server := &http.Server{
			Addr:        opts.Addr,
			Handler:     mux,
			BaseContext: func(net.Listener) context.Context { return servCtx },
		}
		go func() {
			defer close(servFin)
			log.Info("starting http server", slog.String("addr", opts.Addr))
			if err := server.ListenAndServe(); err != nil {
				select {
				case <-servCtx.Done():
				default:
					log.Warn("listen http server failed", slogx.Err(err))
				}
			}
		}()
		defer func() { <-servFin }()
		defer func() {
			log.Info("stopping server")
			servCancel()
			_ = server.Shutdown(servCtx)
		}()

		<-ctx.Done()
		return nil
	}

	if err := serverCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
