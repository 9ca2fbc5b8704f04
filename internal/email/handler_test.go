package email

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_HandleSend(t *testing.T) {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler.delay = func() time.Duration { return 0 }

	tests := []struct {
		name string
		body string
		want int
	}{
		{"sends", `{"to":"ada@example.com","subject":"Receipt","body":"thanks"}`, http.StatusOK},
		{"missing recipient", `{"subject":"Receipt"}`, http.StatusBadRequest},
		{"missing subject", `{"to":"ada@example.com"}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.HandleSend(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && !strings.Contains(rec.Body.String(), `"sent"`) {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}
