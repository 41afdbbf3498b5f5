package sheetdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"eventleader/internal/model"
	"eventleader/internal/util/timeutil"
)

func encodeMillis(m timeutil.Millis) string {
	return strconv.FormatInt(int64(m), 10)
}

func decodeMillis(s string) timeutil.Millis {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return timeutil.Millis(v)
}

func encodeMillisPtr(m *timeutil.Millis) string {
	if m == nil {
		return ""
	}
	return encodeMillis(*m)
}

func decodeMillisPtr(s string) *timeutil.Millis {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	m := decodeMillis(s)
	return &m
}

func encodeTeams(teams model.StringList) (string, error) {
	if teams == nil {
		teams = model.StringList{}
	}
	data, err := json.Marshal(teams)
	if err != nil {
		return "", fmt.Errorf("marshal teams: %w", err)
	}
	return string(data), nil
}

func decodeTeams(s string) model.StringList {
	if strings.TrimSpace(s) == "" {
		return model.StringList{}
	}
	var teams model.StringList
	if err := json.Unmarshal([]byte(s), &teams); err != nil {
		return model.StringList{}
	}
	return teams
}

func encodeAdmin(a *model.Admin) []any {
	return []any{a.Phone, a.Name, encodeMillis(a.CreatedAt)}
}

func decodeAdmin(t *table, row []string) (*model.Admin, error) {
	phone, err := t.col("phone")
	if err != nil {
		return nil, err
	}
	name, err := t.col("name")
	if err != nil {
		return nil, err
	}
	createdAt, err := t.col("createdAt")
	if err != nil {
		return nil, err
	}
	return &model.Admin{
		Phone:     cellAt(row, phone),
		Name:      cellAt(row, name),
		CreatedAt: decodeMillis(cellAt(row, createdAt)),
	}, nil
}

func encodeEvent(ev *model.Event) ([]any, error) {
	teams, err := encodeTeams(ev.Round2Teams)
	if err != nil {
		return nil, err
	}
	return []any{
		ev.Code,
		ev.Name,
		ev.AdminPhone,
		encodeMillis(ev.CreatedAt),
		encodeBool(ev.IsActive),
		encodeInt(ev.WinnersCount),
		encodeMillisPtr(ev.WinnersDeclaredAt),
		string(ev.Round2Mode),
		encodeInt(ev.Round2TopN),
		encodeBool(ev.Round2Active),
		encodeInt(ev.Round2WinnersCount),
		encodeMillisPtr(ev.Round2WinnersDeclaredAt),
		teams,
	}, nil
}

func decodeEvent(t *table, row []string) (*model.Event, error) {
	get := func(name string) (string, error) {
		idx, err := t.col(name)
		if err != nil {
			return "", err
		}
		return cellAt(row, idx), nil
	}
	ev := &model.Event{}
	var err error
	var s string
	if ev.Code, err = get("code"); err != nil {
		return nil, err
	}
	if ev.Name, err = get("name"); err != nil {
		return nil, err
	}
	if ev.AdminPhone, err = get("adminPhone"); err != nil {
		return nil, err
	}
	if s, err = get("createdAt"); err != nil {
		return nil, err
	}
	ev.CreatedAt = decodeMillis(s)
	if s, err = get("isActive"); err != nil {
		return nil, err
	}
	ev.IsActive = decodeBool(s)
	if s, err = get("winnersCount"); err != nil {
		return nil, err
	}
	ev.WinnersCount = decodeInt(s)
	if s, err = get("winnersDeclaredAt"); err != nil {
		return nil, err
	}
	ev.WinnersDeclaredAt = decodeMillisPtr(s)
	if s, err = get("round2Mode"); err != nil {
		return nil, err
	}
	ev.Round2Mode = model.Round2Mode(s)
	if s, err = get("round2TopN"); err != nil {
		return nil, err
	}
	ev.Round2TopN = decodeInt(s)
	if s, err = get("round2Active"); err != nil {
		return nil, err
	}
	ev.Round2Active = decodeBool(s)
	if s, err = get("round2WinnersCount"); err != nil {
		return nil, err
	}
	ev.Round2WinnersCount = decodeInt(s)
	if s, err = get("round2WinnersDeclaredAt"); err != nil {
		return nil, err
	}
	ev.Round2WinnersDeclaredAt = decodeMillisPtr(s)
	if s, err = get("round2Teams"); err != nil {
		return nil, err
	}
	ev.Round2Teams = decodeTeams(s)
	return ev, nil
}

func encodeParticipant(p *model.Participant) []any {
	return []any{p.EventCode, p.TeamName, p.Name, p.Phone, encodeMillis(p.JoinedAt)}
}

func decodeParticipant(t *table, row []string) (*model.Participant, error) {
	get := func(name string) (string, error) {
		idx, err := t.col(name)
		if err != nil {
			return "", err
		}
		return cellAt(row, idx), nil
	}
	p := &model.Participant{}
	var err error
	var s string
	if p.EventCode, err = get("eventCode"); err != nil {
		return nil, err
	}
	if p.TeamName, err = get("teamName"); err != nil {
		return nil, err
	}
	if p.Name, err = get("name"); err != nil {
		return nil, err
	}
	if p.Phone, err = get("phone"); err != nil {
		return nil, err
	}
	if s, err = get("joinedAt"); err != nil {
		return nil, err
	}
	p.JoinedAt = decodeMillis(s)
	return p, nil
}

func encodeScore(e *model.ScoreEntry) []any {
	return []any{e.EventCode, e.TeamName, encodeFloat(e.Score), encodeMillis(e.UpdatedAt)}
}

func decodeScore(t *table, row []string) (*model.ScoreEntry, error) {
	get := func(name string) (string, error) {
		idx, err := t.col(name)
		if err != nil {
			return "", err
		}
		return cellAt(row, idx), nil
	}
	e := &model.ScoreEntry{}
	var err error
	var s string
	if e.EventCode, err = get("eventCode"); err != nil {
		return nil, err
	}
	if e.TeamName, err = get("teamName"); err != nil {
		return nil, err
	}
	if s, err = get("score"); err != nil {
		return nil, err
	}
	e.Score = decodeFloat(s)
	if s, err = get("updatedAt"); err != nil {
		return nil, err
	}
	e.UpdatedAt = decodeMillis(s)
	return e, nil
}
