package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/segyhp/investment-engine/internal/notifier"
	customError "github.com/segyhp/investment-engine/pkg/errors"
	"github.com/segyhp/investment-engine/pkg/response"
)

type StreamHandler struct {
	streamer *notifier.Streamer
}

// NewStreamHandler serves live notifications; streamer is nil when Redis is disabled.
func NewStreamHandler(streamer *notifier.Streamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// NotificationStream handles GET /users/{userId}/notifications/stream
func (h *StreamHandler) NotificationStream(w http.ResponseWriter, r *http.Request) {
	if h.streamer == nil {
		response.Error(w, http.StatusServiceUnavailable, "Notification stream requires Redis", nil)
		return
	}

	userID := strings.TrimSpace(mux.Vars(r)["userId"])
	if userID == "" {
		response.FromError(w, customError.WrapValidation("user_id is required"))
		return
	}

	if err := h.streamer.Serve(w, r, userID); err != nil {
		response.FromError(w, err)
	}
}
