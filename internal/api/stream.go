package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/scene"
)

const (
	defaultStreamFPS = 10
	maxStreamFPS     = 30
	pingInterval     = 30 * time.Second
)

// streamMessage is sent by stream clients to move the visitor pin.
// Clients send JSON: {"action":"visitor","lon":-3.7,"lat":40.4} or {"action":"clear"}
type streamMessage struct {
	Action string   `json:"action"`
	Lon    *float64 `json:"lon"`
	Lat    *float64 `json:"lat"`
}

// requireUpgrade rejects plain HTTP requests to the stream route.
func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("fps", c.QueryInt("fps", defaultStreamFPS))
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// StreamHandler pushes every new frame, as exported JSON, to a websocket
// client at up to ?fps frames per second and applies pin commands it sends.
func StreamHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remote := c.RemoteAddr().String()
		deps.Logger.Debug("stream client connected: %s", remote)

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		fps, _ := c.Locals("fps").(int)
		done := make(chan struct{})
		go pushFrames(deps, writeJSON, streamInterval(fps), done)

		go func() {
			ticker := time.NewTicker(pingInterval)
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
			_ = writeJSON(applyStreamMessage(deps, msg))
		}

		close(done)
		deps.Logger.Debug("stream client disconnected: %s", remote)
	}
}

func streamInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = defaultStreamFPS
	}
	if fps > maxStreamFPS {
		fps = maxStreamFPS
	}
	return time.Second / time.Duration(fps)
}

// pushFrames writes the latest frame whenever the frame counter moved.
func pushFrames(deps *Dependencies, write func(interface{}) error, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := deps.State.Snapshot()
			if snap.Frame == nil || snap.Frames == sent {
				continue
			}
			sent = snap.Frames
			if err := write(scene.Export(*snap.Frame)); err != nil {
				return
			}
		}
	}
}

// applyStreamMessage handles one client message and returns the reply.
func applyStreamMessage(deps *Dependencies, msg []byte) map[string]string {
	var m streamMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return map[string]string{"error": "invalid JSON"}
	}

	switch m.Action {
	case "visitor":
		if m.Lon == nil || m.Lat == nil || !finite(*m.Lon) || !finite(*m.Lat) {
			return map[string]string{"error": "lon and lat must be finite numbers"}
		}
		deps.Commands.SetVisitorLocation(geo.NormalizeLon(*m.Lon), geo.ClampLat(*m.Lat))
		return map[string]string{"status": "visitor set"}
	case "clear":
		deps.Commands.ClearVisitorLocation()
		return map[string]string{"status": "visitor cleared"}
	default:
		return map[string]string{"error": "unknown action: " + m.Action}
	}
}
