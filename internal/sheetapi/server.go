package sheetapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"eventleader/internal/model"
	"eventleader/internal/store"
	"eventleader/internal/util/randutil"
	"eventleader/internal/util/slogx"
)

// Handle mounts the proxy endpoint on mux at path, serving the given store.
func Handle(log *slog.Logger, mux *http.ServeMux, path string, st store.Store) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		log := log.With(
			slog.String("addr", r.RemoteAddr),
			slog.String("rid", randutil.RequestID()),
		)
		action := Action(r.URL.Query().Get("action"))
		log.Info("handle sheet request", slog.String("action", string(action)))

		data, err := dispatch(log, st, action, r)
		if err != nil {
			log.Warn("sheet request failed", slogx.Err(err))
			reply(log, w, Error{Message: err.Error()})
			return
		}
		reply(log, w, data)
	})
}

// reply always answers HTTP 200; errors are embedded in the body. This
// mirrors the Apps Script deployment the protocol was born on, which cannot
// control status codes.
func reply(log *slog.Logger, w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error("could not marshal response", slogx.Err(err))
		body = []byte(`{"error":"marshal response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Info("error writing response", slogx.Err(err))
	}
}

func decodePayload(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if len(body) == 0 {
		// GET-style invocation: fall back to query parameters for the
		// natural keys.
		q := r.URL.Query()
		obj := map[string]string{}
		for _, key := range []string{"code", "phone"} {
			if val := q.Get(key); val != "" {
				obj[key] = val
			}
		}
		body, err = json.Marshal(obj)
		if err != nil {
			return fmt.Errorf("marshal query payload: %w", err)
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func dispatch(log *slog.Logger, st store.Store, action Action, r *http.Request) (any, error) {
	ctx := r.Context()
	switch action {
	case ActionGetEvent:
		var p codePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		return st.GetEventByCode(ctx, p.Code)
	case ActionGetAdminEvents:
		var p phonePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		events, err := st.GetEventsByAdmin(ctx, p.Phone)
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []model.Event{}
		}
		return events, nil
	case ActionCreateEvent:
		var ev eventPayload
		if err := decodePayload(r, &ev); err != nil {
			return nil, err
		}
		if err := st.CreateEvent(ctx, &ev); err != nil {
			return nil, err
		}
		return successBody{Success: true}, nil
	case ActionUpdateEvent:
		var ev eventPayload
		if err := decodePayload(r, &ev); err != nil {
			return nil, err
		}
		if err := st.UpdateEvent(ctx, &ev); err != nil {
			return nil, err
		}
		return successBody{Success: true}, nil
	case ActionDeleteEvent, ActionResetEvent:
		var p codePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		if err := st.DeleteEventByCode(ctx, p.Code); err != nil {
			return nil, err
		}
		return successBody{Success: true}, nil
	case ActionRegisterAdmin:
		var p registerAdminPayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		return st.RegisterAdmin(ctx, p.Name, p.Phone)
	case ActionGetAdmin:
		var p phonePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		return st.GetAdminByPhone(ctx, p.Phone)
	case ActionAddParticipant:
		var p participantPayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		if err := st.AddParticipant(ctx, &p); err != nil {
			return nil, err
		}
		return successBody{Success: true}, nil
	case ActionGetParticipants:
		var p codePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		participants, err := st.GetParticipantsByEvent(ctx, p.Code)
		if err != nil {
			return nil, err
		}
		if participants == nil {
			participants = []model.Participant{}
		}
		return participants, nil
	case ActionSetScore, ActionSetScoreR2:
		var p scorePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		round := model.Round1
		if action == ActionSetScoreR2 {
			round = model.Round2
		}
		if err := st.SetScore(ctx, round, p.TeamName, p.EventCode, p.Score); err != nil {
			return nil, err
		}
		return successBody{Success: true}, nil
	case ActionGetLeaderboard, ActionGetLeaderboardR2:
		var p codePayload
		if err := decodePayload(r, &p); err != nil {
			return nil, err
		}
		round := model.Round1
		if action == ActionGetLeaderboardR2 {
			round = model.Round2
		}
		entries, err := st.GetLeaderboard(ctx, round, p.Code)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []model.ScoreEntry{}
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("invalid action")
	}
}
