package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/web"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req domain.CheckoutRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		web.WriteError(w, h.logger, http.StatusBadRequest, "orderId is required")
		return
	}

	result, err := h.service.BeginCheckout(r.Context(), user.ID, req, requestOrigin(r))
	if err != nil {
		h.writeServiceError(w, err, "error creating checkout session", "order_id", req.OrderID, "method", req.PaymentMethod)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req domain.ConfirmRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.ConfirmPayment(r.Context(), user.ID, req)
	if err != nil {
		h.writeServiceError(w, err, "error confirming payment", "session_id", req.SessionID, "order_id", req.OrderID)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append([]any{"error", err}, attrs...)...)
		web.WriteError(w, h.logger, status, msg)
		return
	}
	web.WriteError(w, h.logger, status, clientMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentExists), errors.Is(err, domain.ErrOrderNotPayable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrPaymentNotCompleted),
		errors.Is(err, ErrNoConfirmation),
		errors.Is(err, ErrAmbiguousConfirmation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func clientMessage(err error) string {
	for _, known := range []error{
		domain.ErrOrderNotFound,
		domain.ErrPaymentNotFound,
		domain.ErrPaymentExists,
		domain.ErrOrderNotPayable,
		domain.ErrPaymentNotCompleted,
		ErrNoConfirmation,
		ErrAmbiguousConfirmation,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

// requestOrigin returns the caller's Origin header when it is an absolute
// http(s) origin, and empty otherwise.
func requestOrigin(r *http.Request) string {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
