package services

import "context"

// AdProvider is the external ad-delivery capability. The reward gate only
// consumes the confirmed/unavailable outcome; how a confirmation is
// obtained (SDK callback, postback, simulation) is the provider's business,
// and any retry/backoff policy belongs to the caller.
type AdProvider interface {
	// RequestConfirmation reports whether an advertisement view was
	// confirmed. false with a nil error means the provider is currently
	// unavailable.
	RequestConfirmation(ctx context.Context) (bool, error)
}

// SimulatedAdProvider always confirms. It stands in wherever no real ad
// network is wired, matching the portal's behavior when no SDK is present.
type SimulatedAdProvider struct{}

func (SimulatedAdProvider) RequestConfirmation(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		return true, nil
	}
}
