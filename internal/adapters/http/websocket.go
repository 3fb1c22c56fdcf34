package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
)

// wsMessage is sent by the client to manage feeds and drive editor sessions.
type wsMessage struct {
	Action  string              `json:"action"`  // "subscribe" | "unsubscribe" | "gesture"
	Channel string              `json:"channel"` // see wsChannels, or "session"
	Session string              `json:"session,omitempty"`
	Gesture *domain.DrawGesture `json:"gesture,omitempty"`
}

// wsEvent is pushed to the client.
type wsEvent struct {
	Channel string              `json:"channel"`
	Session string              `json:"session,omitempty"`
	Exists  *bool               `json:"exists,omitempty"`
	Data    json.RawMessage     `json:"data,omitempty"`
	State   *domain.EditorState `json:"state,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// wsChannels maps document feed channels to store paths. users is never exposed.
var wsChannels = map[string]string{
	"maps":       "maps",
	"statistics": "statistics",
	"robot":      "robotPosition",
	"control":    "robot_control",
	"mode":       "mode",
	"video":      "settings/video",
}

// WebSocketHandler relays document store changes and editor session state to
// the dashboard. Clients send JSON such as
//
//	{"action":"subscribe","channel":"maps"}
//	{"action":"subscribe","channel":"session","session":"<id>"}
//	{"action":"gesture","session":"<id>","gesture":{"type":"draw:created",...}}
//
// The maps feed is subscribed by default.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		who, _ := c.Locals(sessionLocal).(*domain.Session)
		if who == nil {
			_ = c.WriteJSON(wsEvent{Error: "not authenticated"})
			return
		}
		log := slog.Default().With("remote", c.RemoteAddr().String(), "user", who.Username)
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		subs := make(map[string]func()) // channel key -> cancel

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subscribe := func(m wsMessage) (string, error) {
			if m.Channel == "session" {
				sess, err := deps.Sessions.Get(m.Session)
				if err != nil {
					return "", err
				}
				if sess.Owner != who.Username && who.Role != domain.RoleAdmin {
					return "", domain.ErrForbidden
				}
				key := "session:" + sess.ID
				if _, ok := subs[key]; ok {
					return key, nil
				}
				subs[key] = sess.Listen(func(st domain.EditorState) {
					_ = writeJSON(wsEvent{Channel: "session", Session: sess.ID, State: &st})
				})
				st := sess.Editor().State()
				_ = writeJSON(wsEvent{Channel: "session", Session: sess.ID, State: &st})
				return key, nil
			}

			path, ok := wsChannels[m.Channel]
			if !ok {
				return "", domain.ErrNotFound
			}
			if _, ok := subs[m.Channel]; ok {
				return m.Channel, nil
			}
			channel := m.Channel
			sub, err := deps.Store.Subscribe(ctx, path, func(raw json.RawMessage, exists bool) {
				_ = writeJSON(wsEvent{Channel: channel, Exists: &exists, Data: raw})
			})
			if err != nil {
				return "", err
			}
			subs[channel] = sub.Close
			return channel, nil
		}

		if _, err := subscribe(wsMessage{Channel: "maps"}); err != nil {
			log.Error("ws default subscribe failed", "error", err)
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(wsEvent{Error: "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				key, err := subscribe(m)
				if err != nil {
					_ = writeJSON(wsEvent{Channel: m.Channel, Error: "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "channel": key})

			case "unsubscribe":
				key := m.Channel
				if m.Channel == "session" {
					key = "session:" + m.Session
				}
				if stop, ok := subs[key]; ok {
					stop()
					delete(subs, key)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "channel": key})
				} else {
					_ = writeJSON(wsEvent{Channel: m.Channel, Error: "not subscribed to " + key})
				}

			case "gesture":
				if m.Gesture == nil {
					_ = writeJSON(wsEvent{Channel: "session", Session: m.Session, Error: "gesture is required"})
					continue
				}
				sess, err := deps.Sessions.Get(m.Session)
				if err == nil && sess.Owner != who.Username && who.Role != domain.RoleAdmin {
					err = domain.ErrForbidden
				}
				if err != nil {
					_ = writeJSON(wsEvent{Channel: "session", Session: m.Session, Error: err.Error()})
					continue
				}
				st, err := sess.Gesture(ctx, *m.Gesture)
				ev := wsEvent{Channel: "session", Session: sess.ID, State: &st}
				if err != nil {
					ev.Error = err.Error()
				}
				_ = writeJSON(ev)

			default:
				_ = writeJSON(wsEvent{Error: "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, stop := range subs {
			stop()
		}
		log.Info("ws client disconnected")
	}
}
