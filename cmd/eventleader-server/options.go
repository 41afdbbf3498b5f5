package main

import (
	"time"

	"eventleader/internal/event"
	"eventleader/internal/store/localstore"
	"eventleader/internal/webapi"
)

type Options struct {
	Addr string `toml:"addr"`

	// SheetURL switches storage to the remote spreadsheet proxy. When empty,
	// the embedded sqlite backend is used.
	SheetURL     string        `toml:"sheet-url"`
	SheetTimeout time.Duration `toml:"sheet-timeout"`

	// SessionKey signs web session cookies. Left empty, an ephemeral key is
	// generated and all sessions die with the process.
	SessionKey             string        `toml:"session-key"`
	SessionCleanupInterval time.Duration `toml:"session-cleanup-interval"`

	DB    localstore.Options `toml:"db"`
	Event event.Options      `toml:"event"`
	Web   webapi.Options     `toml:"web"`
}

func (o *Options) FillDefaults() {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:8080"
	}
	if o.SheetTimeout == 0 {
		o.SheetTimeout = 30 * time.Second
	}
	if o.SessionCleanupInterval == 0 {
		o.SessionCleanupInterval = time.Hour
	}
	o.DB.FillDefaults()
	o.Event.FillDefaults()
	o.Web.FillDefaults()
}
