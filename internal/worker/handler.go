package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/messaging"
)

type ReceiptHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewReceiptHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		httpClient:      client,
		logger:          logger,
	}
}

// Handle sends a receipt for one payment.completed event. Undecodable
// events and events without a recipient are dropped.
func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.PaymentCompletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal payment completed event: %w", err))
	}

	h.logger.Info("processing payment completed event", "order_id", event.OrderID, "payment_id", event.PaymentID, "method", event.Method)

	if event.Email == "" {
		return messaging.Permanent(fmt.Errorf("payment %s has no recipient", event.PaymentID))
	}

	if err := h.sendEmail(ctx, receipt(event)); err != nil {
		h.logger.Error("failed to send receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send receipt: %w", err)
	}

	h.logger.Info("receipt sent", "order_id", event.OrderID)
	return nil
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func receipt(event domain.PaymentCompletedEvent) emailRequest {
	return emailRequest{
		To:      event.Email,
		Subject: "Payment received for order " + event.OrderID,
		Body: fmt.Sprintf("We received your %s payment of %s %s for order %s. Thank you for shopping sustainably.",
			strings.ToUpper(string(event.Method)), event.Amount.StringFixed(2), strings.ToUpper(event.Currency), event.OrderID),
	}
}

func (h *ReceiptHandler) sendEmail(ctx context.Context, body emailRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
