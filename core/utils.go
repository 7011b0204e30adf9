package core

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
)

// IdentityPollInterval is how often WaitForIdentityState checks the identity.
var IdentityPollInterval = 10 * time.Second

// WaitForIdentityState waits for the identity at address to reach the given state.
func WaitForIdentityState(
	ctx context.Context,
	provider IDnaProvider,
	address string,
	state IdentityState,
	timeout time.Duration,
) (*Identity, error) {
	if provider == nil {
		return nil, fmt.Errorf("dna provider not set")
	}

	ticker := time.NewTicker(IdentityPollInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to wait for identity %s to become %s", address, state)
		case <-ticker.C:
			logger.WithField("address", address).Tracef("checking identity state")

			identity, err := provider.FetchIdentity(ctx, address)
			if err != nil {
				logger.WithField("address", address).Errorf("failed to get identity: %v", err)
				continue
			}
			if identity == nil {
				continue
			}

			if identity.State != state {
				logger.WithField("address", address).Tracef("identity is %s, waiting for %s", identity.State, state)
				continue
			}
			return identity, nil
		}
	}
}
