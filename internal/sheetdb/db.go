// Package sheetdb stores the five collections as tabular sheets in an .xlsx
// workbook, one sheet per collection with a header row. There are no real
// indexes: every lookup is a linear scan over a header-identified column, and
// multi-sheet deletes run step by step with no rollback. This is the storage
// the spreadsheet proxy serves over HTTP.
package sheetdb

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/xuri/excelize/v2"

	"eventleader/internal/store"
	"eventleader/internal/util/timeutil"
)

const (
	sheetAdmins       = "admins"
	sheetEvents       = "events"
	sheetParticipants = "participants"
	sheetScores       = "scores"
	sheetScoresR2     = "scores_r2"
)

var sheetHeaders = map[string][]string{
	sheetAdmins: {"phone", "name", "createdAt"},
	sheetEvents: {
		"code", "name", "adminPhone", "createdAt", "isActive",
		"winnersCount", "winnersDeclaredAt",
		"round2Mode", "round2TopN", "round2Active",
		"round2WinnersCount", "round2WinnersDeclaredAt", "round2Teams",
	},
	sheetParticipants: {"eventCode", "teamName", "name", "phone", "joinedAt"},
	sheetScores:       {"eventCode", "teamName", "score", "updatedAt"},
	sheetScoresR2:     {"eventCode", "teamName", "score", "updatedAt"},
}

type Options struct {
	Path string `toml:"path"`
}

func (o *Options) FillDefaults() {
	if o.Path == "" {
		o.Path = "eventleader.xlsx"
	}
}

type DB struct {
	mu   sync.Mutex
	f    *excelize.File
	path string
	log  *slog.Logger
	now  func() timeutil.Millis
}

var _ store.Store = (*DB)(nil)

func New(log *slog.Logger, o Options) (*DB, error) {
	o.FillDefaults()

	var f *excelize.File
	created := false
	if _, err := os.Stat(o.Path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat workbook: %w", err)
		}
		log.Info("creating workbook", slog.String("path", o.Path))
		f = excelize.NewFile()
		created = true
	} else {
		log.Info("opening workbook", slog.String("path", o.Path))
		f, err = excelize.OpenFile(o.Path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
	}

	d := &DB{f: f, path: o.Path, log: log, now: timeutil.NowMillis}
	if err := d.ensureSheets(created); err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) ensureSheets(created bool) error {
	existing := d.f.GetSheetList()
	changed := false
	for _, name := range []string{sheetAdmins, sheetEvents, sheetParticipants, sheetScores, sheetScoresR2} {
		if slices.Contains(existing, name) {
			continue
		}
		if _, err := d.f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %v: %w", name, err)
		}
		header := make([]any, len(sheetHeaders[name]))
		for i, h := range sheetHeaders[name] {
			header[i] = h
		}
		if err := d.f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write header for %v: %w", name, err)
		}
		changed = true
	}
	if created {
		// Drop the default sheet excelize puts into a fresh workbook.
		if slices.Contains(d.f.GetSheetList(), "Sheet1") {
			if err := d.f.DeleteSheet("Sheet1"); err != nil {
				return fmt.Errorf("delete default sheet: %w", err)
			}
		}
		if err := d.f.SaveAs(d.path); err != nil {
			return fmt.Errorf("save workbook: %w", err)
		}
		return nil
	}
	if changed {
		return d.save()
	}
	return nil
}

func (d *DB) save() error {
	if err := d.f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (d *DB) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Close(); err != nil {
		d.log.Error("could not close workbook", slog.String("err", err.Error()))
	}
}
