package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/domain/fallacies"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/youtube"
	"github.com/forPelevin/fallacycheck/internal/types"
	"github.com/forPelevin/fallacycheck/internal/usecase"
)

const (
	writeWait = 10 * time.Second
	// Players report position a few times per second; a silent client is gone.
	readWait = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // overlays run on the video site's origin
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Messages sent to the client.
const (
	msgFallacies = "fallacies"
	msgActive    = "active"
	msgClear     = "clear"
	msgError     = "error"
)

type watchMessage struct {
	Type      string          `json:"type"`
	VideoID   string          `json:"video_id,omitempty"`
	Fallacies []types.Fallacy `json:"fallacies,omitempty"`
	Fallacy   *types.Fallacy  `json:"fallacy,omitempty"`
	Error     string          `json:"error,omitempty"`
	Status    int             `json:"status,omitempty"`
}

// positionUpdate is what the client sends on every player time update.
type positionUpdate struct {
	Position float64 `json:"position"`
}

// handleWatch analyzes the video, sends the full fallacy list, then turns
// each reported playback position into appear / switch / clear events.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := youtube.ExtractVideoID(r.URL.Query().Get("v"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "query parameter v must be a YouTube URL or video id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.d.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	log := s.d.Logger.With("video", id)

	res, err := s.d.Analyzer.Analyze(r.Context(), usecase.Input{VideoID: id})
	if err != nil {
		log.Warn("watch analysis failed", "error", err)
		_ = send(conn, watchMessage{Type: msgError, Error: apperr.UserMessage(err), Status: StatusFor(err)})
		return
	}
	if err := send(conn, watchMessage{Type: msgFallacies, VideoID: id, Fallacies: res.Fallacies}); err != nil {
		return
	}

	tracker := fallacies.NewTracker(res.Fallacies, fallacies.PlaybackTolerance)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		var upd positionUpdate
		if err := conn.ReadJSON(&upd); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Debug("watch read ended", "error", err)
			}
			return
		}
		f, active, changed := tracker.Update(upd.Position)
		if !changed {
			continue
		}
		msg := watchMessage{Type: msgClear}
		if active {
			msg = watchMessage{Type: msgActive, Fallacy: &f}
		}
		if err := send(conn, msg); err != nil {
			log.Debug("watch write failed", "error", err)
			return
		}
	}
}

func send(conn *websocket.Conn, msg watchMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
