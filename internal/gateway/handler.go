package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecocart/storefront/internal/web"
)

const apiPrefix = "/api"

type Handler struct {
	apiProxy *ServiceProxy
	logger   *slog.Logger
}

func NewHandler(apiProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		apiProxy: apiProxy,
		logger:   logger,
	}
}

// HandleAPI forwards /api/... to the API service with the prefix removed.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	if path == "" {
		path = "/"
	}
	h.proxyRequest(w, r, h.apiProxy, path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		web.WriteError(w, h.logger, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}
