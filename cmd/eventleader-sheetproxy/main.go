package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"eventleader/internal/sheetapi"
	"eventleader/internal/sheetdb"
	"eventleader/internal/util/slogx"
	"eventleader/internal/version"
)

var proxyCmd = &cobra.Command{
	Use:     "eventleader-sheetproxy",
	Args:    cobra.ExactArgs(0),
	Version: version.Version,
	Short:   "Start EventLeader sheet proxy",
	Long: `EventLeader runs live team leaderboards for offline events.

This command runs the spreadsheet storage proxy: the action-dispatch HTTP
endpoint the server talks to when sheet-url is configured, backed by a local
xlsx workbook.
`,
}

type Options struct {
	Addr  string          `toml:"addr"`
	Sheet sheetdb.Options `toml:"sheet"`
}

func (o *Options) FillDefaults() {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:8090"
	}
	o.Sheet.FillDefaults()
}

func main() {
	p := proxyCmd.Flags()
	optsPath := p.StringP(
		"options", "o", "",
		"options file",
	)
	if err := proxyCmd.MarkFlagRequired("options"); err != nil {
		panic(err)
	}

	proxyCmd.RunE = func(cmd *cobra.Command, _args []string) error {
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

		db, err := sheetdb.New(log, opts.Sheet)
		if err != nil {
			return fmt.Errorf("open sheet: %w", err)
		}
		defer db.Close()

		mux := http.NewServeMux()
		sheetapi.Handle(log, mux, "/", db)

		servFin := make(chan struct{})
		servCtx, servCancel := context.WithCancel(ctx)
		server := &http.Server{
			Addr:        opts.Addr,
			Handler:     mux,
			BaseContext: func(net.Listener) context.Context { return servCtx },
		}
		go func() {
			defer close(servFin)
			log.Info("starting sheet proxy", slog.String("addr", opts.Addr))
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
			log.Info("stopping sheet proxy")
			servCancel()
			_ = server.Shutdown(servCtx)
		}()

		<-ctx.Done()
		return nil
	}

	if err := proxyCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
