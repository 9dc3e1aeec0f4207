package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/drillbook/drillbook/internal/nav"
	"github.com/drillbook/drillbook/internal/progress"
)

// drillAction is one inbound navigation command on a drill socket.
type drillAction struct {
	Action string `json:"action"`
	Term   string `json:"term,omitempty"`
	Code   string `json:"code,omitempty"`
	Name   string `json:"name,omitempty"`
	Number int    `json:"number,omitempty"`
	Title  string `json:"title,omitempty"`
	Index  int    `json:"index,omitempty"`
}

// drillFrame is one outbound message: either a navigation update or an
// error notice.
type drillFrame struct {
	Type   string      `json:"type"`
	Update *nav.Update `json:"update,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// storeNotifier persists drill-session completions through the progress
// store and activity log.
type storeNotifier struct {
	server *Server
}

func (n storeNotifier) RecordCompletion(ctx context.Context, rec progress.Record) error {
	if err := n.server.store.Add(ctx, rec); err != nil {
		return err
	}
	progress.LogAsync(n.server.events, n.server.logger, progress.Event{
		EventType: "topic_completed",
		Data: map[string]any{
			"code":  rec.SubjectCode,
			"unit":  rec.UnitNumber,
			"topic": rec.TopicIndex,
			"via":   "drill",
		},
	})
	return nil
}

// handleDrill runs one interactive drill-down session over a websocket.
// Each connection gets its own controller and completion tracker.
func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	provider := NewCatalogProvider(s.catalog, s.content)
	controller := nav.NewController(provider, nil, storeNotifier{server: s}, s.logger)

	// Forward navigation updates until the session ends.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-controller.Updates():
				frame := drillFrame{Type: "update", Update: &upd}
				if upd.Err != nil {
					frame = drillFrame{Type: "error", Error: upd.Err.Error()}
				}
				if err := wsjson.Write(ctx, conn, frame); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	controller.Root()

	for {
		var action drillAction
		if err := wsjson.Read(ctx, conn, &action); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			s.logger.Debug("drill session read failed", "error", err)
			return
		}

		if err := s.applyDrillAction(controller, action); err != nil {
			if werr := wsjson.Write(ctx, conn, drillFrame{Type: "error", Error: err.Error()}); werr != nil {
				return
			}
		}
	}
}

func (s *Server) applyDrillAction(controller *nav.Controller, action drillAction) error {
	switch action.Action {
	case "root":
		controller.Root()
		return nil
	case "term":
		controller.SelectTerm(action.Term)
		return nil
	case "subject":
		return controller.SelectSubject(nav.SubjectRef{Code: action.Code, Name: action.Name})
	case "unit":
		return controller.SelectUnit(nav.UnitRef{Number: action.Number, Title: action.Title})
	case "topic":
		return controller.SelectTopic(action.Index)
	case "back":
		controller.GoBack()
		return nil
	case "complete":
		return controller.MarkCompleted()
	default:
		return errors.New("unknown action " + action.Action)
	}
}
