package sheetdb

import (
	"context"
	"fmt"

	"eventleader/internal/model"
	"eventleader/internal/standings"
	"eventleader/internal/store"
)

func (d *DB) findRow(sheet, column, value string) (*table, int, error) {
	t, err := d.readTable(sheet)
	if err != nil {
		return nil, 0, err
	}
	idx, err := t.col(column)
	if err != nil {
		return nil, 0, fmt.Errorf("sheet %v: %w", sheet, err)
	}
	for i, row := range t.rows {
		if cellAt(row, idx) == value {
			return t, i, nil
		}
	}
	return t, -1, nil
}

func (d *DB) RegisterAdmin(ctx context.Context, name, phone string) (*model.Admin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, i, err := d.findRow(sheetAdmins, "phone", phone)
	if err != nil {
		return nil, err
	}
	if i >= 0 {
		return decodeAdmin(t, t.rows[i])
	}
	admin := &model.Admin{Name: name, Phone: phone, CreatedAt: d.now()}
	if err := d.appendRow(sheetAdmins, encodeAdmin(admin)); err != nil {
		return nil, err
	}
	if err := d.save(); err != nil {
		return nil, err
	}
	return admin, nil
}

func (d *DB) GetAdminByPhone(ctx context.Context, phone string) (*model.Admin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, i, err := d.findRow(sheetAdmins, "phone", phone)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, nil
	}
	return decodeAdmin(t, t.rows[i])
}

func (d *DB) CreateEvent(ctx context.Context, ev *model.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, i, err := d.findRow(sheetEvents, "code", ev.Code)
	if err != nil {
		return err
	}
	if i >= 0 {
		return store.ErrEventCodeTaken
	}
	row, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := d.appendRow(sheetEvents, row); err != nil {
		return err
	}
	return d.save()
}

func (d *DB) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, i, err := d.findRow(sheetEvents, "code", code)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, nil
	}
	return decodeEvent(t, t.rows[i])
}

func (d *DB) GetEventsByAdmin(ctx context.Context, adminPhone string) ([]model.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readTable(sheetEvents)
	if err != nil {
		return nil, err
	}
	idx, err := t.col("adminPhone")
	if err != nil {
		return nil, fmt.Errorf("sheet %v: %w", sheetEvents, err)
	}
	var events []model.Event
	for _, row := range t.rows {
		if cellAt(row, idx) != adminPhone {
			continue
		}
		ev, err := decodeEvent(t, row)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, nil
}

func (d *DB) UpdateEvent(ctx context.Context, ev *model.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, i, err := d.findRow(sheetEvents, "code", ev.Code)
	if err != nil {
		return err
	}
	if i < 0 {
		return fmt.Errorf("update event %v: not found", ev.Code)
	}
	row, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := d.setRow(sheetEvents, t.rowNums[i], row); err != nil {
		return err
	}
	return d.save()
}

// DeleteEventByCode cascades sheet by sheet. Each step is saved on its own;
// a crash mid-cascade leaves partial state behind. That is the accepted
// limitation of this backend, not of the store contract.
func (d *DB) DeleteEventByCode(ctx context.Context, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	steps := []struct {
		sheet  string
		column string
	}{
		{sheetEvents, "code"},
		{sheetParticipants, "eventCode"},
		{sheetScores, "eventCode"},
		{sheetScoresR2, "eventCode"},
	}
	for _, step := range steps {
		if err := d.removeMatching(step.sheet, step.column, code); err != nil {
			return err
		}
		if err := d.save(); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) AddParticipant(ctx context.Context, p *model.Participant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readTable(sheetParticipants)
	if err != nil {
		return err
	}
	codeIdx, err := t.col("eventCode")
	if err != nil {
		return fmt.Errorf("sheet %v: %w", sheetParticipants, err)
	}
	teamIdx, err := t.col("teamName")
	if err != nil {
		return fmt.Errorf("sheet %v: %w", sheetParticipants, err)
	}
	for _, row := range t.rows {
		if cellAt(row, codeIdx) == p.EventCode && cellAt(row, teamIdx) == p.TeamName {
			return store.ErrTeamTaken
		}
	}
	if err := d.appendRow(sheetParticipants, encodeParticipant(p)); err != nil {
		return err
	}
	return d.save()
}

func (d *DB) GetParticipantsByEvent(ctx context.Context, eventCode string) ([]model.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readTable(sheetParticipants)
	if err != nil {
		return nil, err
	}
	idx, err := t.col("eventCode")
	if err != nil {
		return nil, fmt.Errorf("sheet %v: %w", sheetParticipants, err)
	}
	var participants []model.Participant
	for _, row := range t.rows {
		if cellAt(row, idx) != eventCode {
			continue
		}
		p, err := decodeParticipant(t, row)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, nil
}

func scoreSheet(round model.Round) (string, error) {
	switch round {
	case model.Round1:
		return sheetScores, nil
	case model.Round2:
		return sheetScoresR2, nil
	default:
		return "", fmt.Errorf("bad round: %v", round)
	}
}

func (d *DB) SetScore(ctx context.Context, round model.Round, teamName, eventCode string, score float64) error {
	sheet, err := scoreSheet(round)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readTable(sheet)
	if err != nil {
		return err
	}
	codeIdx, err := t.col("eventCode")
	if err != nil {
		return fmt.Errorf("sheet %v: %w", sheet, err)
	}
	teamIdx, err := t.col("teamName")
	if err != nil {
		return fmt.Errorf("sheet %v: %w", sheet, err)
	}
	entry := &model.ScoreEntry{TeamName: teamName, EventCode: eventCode, Score: score, UpdatedAt: d.now()}
	for i, row := range t.rows {
		if cellAt(row, codeIdx) == eventCode && cellAt(row, teamIdx) == teamName {
			if err := d.setRow(sheet, t.rowNums[i], encodeScore(entry)); err != nil {
				return err
			}
			return d.save()
		}
	}
	if err := d.appendRow(sheet, encodeScore(entry)); err != nil {
		return err
	}
	return d.save()
}

func (d *DB) GetLeaderboard(ctx context.Context, round model.Round, eventCode string) ([]model.ScoreEntry, error) {
	sheet, err := scoreSheet(round)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.readTable(sheet)
	if err != nil {
		return nil, err
	}
	idx, err := t.col("eventCode")
	if err != nil {
		return nil, fmt.Errorf("sheet %v: %w", sheet, err)
	}
	var entries []model.ScoreEntry
	for _, row := range t.rows {
		if cellAt(row, idx) != eventCode {
			continue
		}
		e, err := decodeScore(t, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	standings.SortEntries(entries)
	return entries, nil
}
