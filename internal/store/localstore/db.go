// Package localstore is the embedded storage backend: sqlite via gorm, with
// unique indexes backing the natural-key constraints and transactions making
// cascade deletes atomic.
package localstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/wader/gormstore/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"eventleader/internal/model"
	"eventleader/internal/store"
	"eventleader/internal/util/slogx"
	"eventleader/internal/util/timeutil"
)

type Options struct {
	Path          string        `toml:"path"`
	Debug         bool          `toml:"debug"`
	SlowThreshold time.Duration `toml:"slow-threshold"`
	BusyTimeout   time.Duration `toml:"busy-timeout"`
	UseWAL        bool          `toml:"use-wal"`
}

func (o *Options) FillDefaults() {
	if o.Path == "" {
		o.Path = "eventleader.db"
	}
	if o.SlowThreshold == 0 {
		o.SlowThreshold = 200 * time.Millisecond
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = 1 * time.Minute
	}
}

var models = []any{
	&model.Admin{},
	&model.Event{},
	&model.Participant{},
	&model.ScoreEntry{},
	&model.ScoreEntryR2{},
}

type DB struct {
	db  *gorm.DB
	log *slog.Logger
	now func() timeutil.Millis
}

var _ store.Store = (*DB)(nil)

func buildPath(o Options) string {
	var params []string
	if o.UseWAL {
		params = append(params, "_journal_mode=WAL")
		params = append(params, "_synchronous=NORMAL")
	}
	params = append(params, fmt.Sprintf("_busy_timeout=%v", o.BusyTimeout.Milliseconds()))
	params = append(params, "_foreign_keys=1")
	return o.Path + "?" + strings.Join(params, "&")
}

func New(log *slog.Logger, o Options) (*DB, error) {
	o.FillDefaults()

	log.Info("opening db", slog.String("path", o.Path))
	db, err := gorm.Open(sqlite.Open(buildPath(o)), &gorm.Config{
		Logger: Logger(log, o),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	d := &DB{db: db, log: log, now: timeutil.NowMillis}

	log.Info("migrating db")
	if err := db.AutoMigrate(models...); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	log.Info("db opened")
	return d, nil
}

func (d *DB) Close() {
	db, err := d.db.DB()
	if err != nil {
		d.log.Error("could not get underlying db", slogx.Err(err))
		return
	}
	if err := db.Close(); err != nil {
		d.log.Error("could not close db", slogx.Err(err))
	}
}

func (d *DB) RegisterAdmin(ctx context.Context, name, phone string) (*model.Admin, error) {
	var admin model.Admin
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var result []model.Admin
		if err := tx.Where("phone = ?", phone).Limit(1).Find(&result).Error; err != nil {
			return fmt.Errorf("search for admin: %w", err)
		}
		if len(result) != 0 {
			admin = result[0]
			return nil
		}
		admin = model.Admin{Name: name, Phone: phone, CreatedAt: d.now()}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (d *DB) GetAdminByPhone(ctx context.Context, phone string) (*model.Admin, error) {
	var admins []model.Admin
	err := d.db.WithContext(ctx).Where("phone = ?", phone).Limit(1).Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if len(admins) == 0 {
		return nil, nil
	}
	return &admins[0], nil
}

func (d *DB) CreateEvent(ctx context.Context, ev *model.Event) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&model.Event{}).Where("code = ?", ev.Code).Count(&cnt).Error; err != nil {
			return fmt.Errorf("search for event: %w", err)
		}
		if cnt != 0 {
			return store.ErrEventCodeTaken
		}
		if err := tx.Create(ev).Error; err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
}

func (d *DB) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	var events []model.Event
	err := d.db.WithContext(ctx).Where("code = ?", code).Limit(1).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (d *DB) GetEventsByAdmin(ctx context.Context, adminPhone string) ([]model.Event, error) {
	var events []model.Event
	err := d.db.WithContext(ctx).Where("admin_phone = ?", adminPhone).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list admin events: %w", err)
	}
	return events, nil
}

func (d *DB) UpdateEvent(ctx context.Context, ev *model.Event) error {
	if err := d.db.WithContext(ctx).Save(ev).Error; err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteEventByCode removes the event and all dependent rows in a single
// transaction, so the cascade is all-or-nothing.
func (d *DB) DeleteEventByCode(ctx context.Context, code string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).Delete(&model.Event{}).Error; err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if err := tx.Where("event_code = ?", code).Delete(&model.Participant{}).Error; err != nil {
			return fmt.Errorf("delete participants: %w", err)
		}
		if err := tx.Where("event_code = ?", code).Delete(&model.ScoreEntry{}).Error; err != nil {
			return fmt.Errorf("delete scores: %w", err)
		}
		if err := tx.Where("event_code = ?", code).Delete(&model.ScoreEntryR2{}).Error; err != nil {
			return fmt.Errorf("delete round 2 scores: %w", err)
		}
		return nil
	})
}

func (d *DB) AddParticipant(ctx context.Context, p *model.Participant) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cnt int64
		err := tx.Model(&model.Participant{}).
			Where("team_name = ? AND event_code = ?", p.TeamName, p.EventCode).
			Count(&cnt).Error
		if err != nil {
			return fmt.Errorf("search for participant: %w", err)
		}
		if cnt != 0 {
			return store.ErrTeamTaken
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create participant: %w", err)
		}
		return nil
	})
}

func (d *DB) GetParticipantsByEvent(ctx context.Context, eventCode string) ([]model.Participant, error) {
	var participants []model.Participant
	err := d.db.WithContext(ctx).
		Where("event_code = ?", eventCode).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

func (d *DB) SetScore(ctx context.Context, round model.Round, teamName, eventCode string, score float64) error {
	now := d.now()
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch round {
		case model.Round1:
			var rows []model.ScoreEntry
			err := tx.Where("team_name = ? AND event_code = ?", teamName, eventCode).
				Limit(1).Find(&rows).Error
			if err != nil {
				return fmt.Errorf("search for score: %w", err)
			}
			if len(rows) != 0 {
				rows[0].Score = score
				rows[0].UpdatedAt = now
				if err := tx.Save(&rows[0]).Error; err != nil {
					return fmt.Errorf("update score: %w", err)
				}
				return nil
			}
			entry := model.ScoreEntry{TeamName: teamName, EventCode: eventCode, Score: score, UpdatedAt: now}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("create score: %w", err)
			}
			return nil
		case model.Round2:
			var rows []model.ScoreEntryR2
			err := tx.Where("team_name = ? AND event_code = ?", teamName, eventCode).
				Limit(1).Find(&rows).Error
			if err != nil {
				return fmt.Errorf("search for score: %w", err)
			}
			if len(rows) != 0 {
				rows[0].Score = score
				rows[0].UpdatedAt = now
				if err := tx.Save(&rows[0]).Error; err != nil {
					return fmt.Errorf("update score: %w", err)
				}
				return nil
			}
			entry := model.ScoreEntryR2{TeamName: teamName, EventCode: eventCode, Score: score, UpdatedAt: now}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("create score: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("bad round: %v", round)
		}
	})
}

func (d *DB) GetLeaderboard(ctx context.Context, round model.Round, eventCode string) ([]model.ScoreEntry, error) {
	const order = "score DESC, updated_at ASC, team_name ASC"
	switch round {
	case model.Round1:
		var entries []model.ScoreEntry
		err := d.db.WithContext(ctx).
			Where("event_code = ?", eventCode).
			Order(order).
			Find(&entries).Error
		if err != nil {
			return nil, fmt.Errorf("get leaderboard: %w", err)
		}
		return entries, nil
	case model.Round2:
		var rows []model.ScoreEntryR2
		err := d.db.WithContext(ctx).
			Where("event_code = ?", eventCode).
			Order(order).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("get round 2 leaderboard: %w", err)
		}
		entries := make([]model.ScoreEntry, len(rows))
		for i, r := range rows {
			entries[i] = r.AsEntry()
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("bad round: %v", round)
	}
}

// NewSessionStore backs web sessions with the same sqlite database.
func (d *DB) NewSessionStore(ctx context.Context, key []byte, cleanupInterval time.Duration) sessions.Store {
	s := gormstore.New(d.db, key)
	go s.PeriodicCleanup(cleanupInterval, ctx.Done())
	return s
}
