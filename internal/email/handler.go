package email

import (
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/ecocart/storefront/internal/web"
)

// Handler accepts outbound mail and logs it in place of delivery.
type Handler struct {
	logger *slog.Logger
	delay  func() time.Duration
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		delay: func() time.Duration {
			return time.Duration(50+rand.Intn(151)) * time.Millisecond
		},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.Contains(req.To, "@") || strings.TrimSpace(req.Subject) == "" {
		web.WriteError(w, h.logger, http.StatusBadRequest, "recipient and subject are required")
		return
	}

	select {
	case <-time.After(h.delay()):
	case <-r.Context().Done():
		return
	}

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject, "bytes", len(req.Body))

	web.WriteJSON(w, h.logger, http.StatusOK, sendResponse{Status: "sent"})
}
