package sheetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"eventleader/internal/model"
	"eventleader/internal/store"
)

// Client is the remote storage backend: every store operation becomes one
// call to the proxy endpoint.
type Client struct {
	endpoint string
	hc       *http.Client
}

var _ store.Store = (*Client)(nil)

func NewClient(endpoint string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{endpoint: endpoint, hc: hc}
}

// call posts one action. A non-nil out receives the response body; "null"
// bodies leave a pointer target nil, which is how not-found travels on this
// protocol. Transport and decode failures come back as wrapped errors, and
// an {"error": ...} body becomes an *Error.
func (c *Client) call(ctx context.Context, action Action, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	u := c.endpoint + "?action=" + url.QueryEscape(string(action))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	rsp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, rsp.Body)
		_ = rsp.Body.Close()
	}()
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %v", rsp.StatusCode)
	}
	var apiErr Error
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) RegisterAdmin(ctx context.Context, name, phone string) (*model.Admin, error) {
	payload := registerAdminPayload{Name: name, Phone: phone}
	var admin *model.Admin
	if err := c.call(ctx, ActionRegisterAdmin, payload, &admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (c *Client) GetAdminByPhone(ctx context.Context, phone string) (*model.Admin, error) {
	var admin *model.Admin
	if err := c.call(ctx, ActionGetAdmin, phonePayload{Phone: phone}, &admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func (c *Client) CreateEvent(ctx context.Context, ev *model.Event) error {
	return c.call(ctx, ActionCreateEvent, ev, nil)
}

func (c *Client) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	var ev *model.Event
	if err := c.call(ctx, ActionGetEvent, codePayload{Code: code}, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Client) GetEventsByAdmin(ctx context.Context, adminPhone string) ([]model.Event, error) {
	var events []model.Event
	if err := c.call(ctx, ActionGetAdminEvents, phonePayload{Phone: adminPhone}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) UpdateEvent(ctx context.Context, ev *model.Event) error {
	return c.call(ctx, ActionUpdateEvent, ev, nil)
}

func (c *Client) DeleteEventByCode(ctx context.Context, code string) error {
	return c.call(ctx, ActionDeleteEvent, codePayload{Code: code}, nil)
}

func (c *Client) AddParticipant(ctx context.Context, p *model.Participant) error {
	return c.call(ctx, ActionAddParticipant, p, nil)
}

func (c *Client) GetParticipantsByEvent(ctx context.Context, eventCode string) ([]model.Participant, error) {
	var participants []model.Participant
	if err := c.call(ctx, ActionGetParticipants, codePayload{Code: eventCode}, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (c *Client) SetScore(ctx context.Context, round model.Round, teamName, eventCode string, score float64) error {
	action := ActionSetScore
	if round == model.Round2 {
		action = ActionSetScoreR2
	}
	payload := scorePayload{TeamName: teamName, EventCode: eventCode, Score: score}
	return c.call(ctx, action, payload, nil)
}

func (c *Client) GetLeaderboard(ctx context.Context, round model.Round, eventCode string) ([]model.ScoreEntry, error) {
	action := ActionGetLeaderboard
	if round == model.Round2 {
		action = ActionGetLeaderboardR2
	}
	var entries []model.ScoreEntry
	if err := c.call(ctx, action, codePayload{Code: eventCode}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Close() {}
