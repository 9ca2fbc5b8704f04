package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const (
	mockSessionPrefix = "mock-session-"
	mockCheckoutURL   = "https://example.com/mock-checkout"
)

// MockProvider stands in for the card provider when no secret key is
// configured. Its sessions settle immediately and are labeled as mock.
type MockProvider struct{}

func (MockProvider) CreateSession(_ context.Context, _ SessionRequest) (*Session, error) {
	return &Session{
		ID:      mockSessionPrefix + uuid.NewString(),
		URL:     mockCheckoutURL,
		Settled: true,
	}, nil
}

func (MockProvider) SessionPaid(_ context.Context, sessionID string) (bool, error) {
	return strings.HasPrefix(sessionID, mockSessionPrefix), nil
}

// NewProvider returns the Stripe provider when secretKey is set and the mock
// otherwise.
func NewProvider(secretKey string) Provider {
	if secretKey == "" {
		return MockProvider{}
	}
	return NewStripeProvider(secretKey)
}
