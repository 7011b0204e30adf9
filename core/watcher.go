//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

const DefaultWatchInterval = 30 * time.Second

// Watcher polls the node for epoch and identity changes.
type Watcher struct {
	ctx          context.Context
	provider     IDnaProvider
	address      string
	interval     time.Duration
	lastEpoch    *Epoch
	lastIdentity *Identity
	wg           *sync.WaitGroup
}

// NewWatcher creates a watcher for the identity at address.
// If address is empty the node coinbase address is watched.
func NewWatcher(
	ctx context.Context,
	provider IDnaProvider,
	address string,
	interval time.Duration,
	wg *sync.WaitGroup,
) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &Watcher{
		ctx:      ctx,
		provider: provider,
		address:  address,
		interval: interval,
		wg:       wg,
	}
}

func (w *Watcher) resolveAddress() (string, error) {
	if w.address != "" {
		return w.address, nil
	}
	coinbase, err := w.provider.FetchCoinbaseAddress(w.ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get coinbase address with error: %v", err)
	}
	w.address = coinbase.String()
	return w.address, nil
}

func (w *Watcher) checkEpoch() error {
	epoch, err := w.provider.FetchEpoch(w.ctx)
	if err != nil {
		return fmt.Errorf("failed to get epoch with error: %v", err)
	}
	if epoch == nil {
		return fmt.Errorf("node returned empty epoch")
	}
	EpochGauge.Set(float64(epoch.Epoch))

	prev := w.lastEpoch
	w.lastEpoch = epoch

	switch {
	case prev == nil:
		logger.Infof("Epoch %d, period %s, next validation at %v", epoch.Epoch, epoch.CurrentPeriod, epoch.NextValidation)
	case prev.Epoch != epoch.Epoch:
		logger.Warnf("New epoch %d started, next validation at %v", epoch.Epoch, epoch.NextValidation)
	case prev.CurrentPeriod != epoch.CurrentPeriod:
		logger.Warnf("Period changed from %s to %s", prev.CurrentPeriod, epoch.CurrentPeriod)
	default:
		logger.Debugf("Epoch %d unchanged", epoch.Epoch)
	}
	return nil
}

func (w *Watcher) checkIdentity() error {
	address, err := w.resolveAddress()
	if err != nil {
		return err
	}
	identity, err := w.provider.FetchIdentity(w.ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get identity %s with error: %v", address, err)
	}
	if identity == nil {
		return fmt.Errorf("node returned empty identity for %s", address)
	}
	FlipsGauge.WithLabelValues(address, "required").Set(float64(identity.RequiredFlips))
	FlipsGauge.WithLabelValues(address, "made").Set(float64(identity.MadeFlips))

	prev := w.lastIdentity
	w.lastIdentity = identity

	if prev == nil {
		logger.Infof("[%s] Identity state %s, stake %s", address, identity.State, identity.Stake)
		return nil
	}
	if prev.State != identity.State {
		logger.Warnf("[%s] Identity state changed from %s to %s", address, prev.State, identity.State)
	}
	if prev.MadeFlips != identity.MadeFlips {
		logger.Infof("[%s] Flips made: %d of %d", address, identity.MadeFlips, identity.RequiredFlips)
	}
	return nil
}

func (w *Watcher) executeTick() error {
	if err := w.checkEpoch(); err != nil {
		return err
	}
	return w.checkIdentity()
}

// Run polls the node until the context is done.
func (w *Watcher) Run() error {
	if w.wg != nil {
		defer w.wg.Done()
	}

	// Executing first tick
	err := w.executeTick()
	if err != nil {
		logger.Errorf("Failed to execute tick with error: %v", err)
	}

	logger.Infof("Watching node every %v", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			logger.Infof("Terminate watcher")
			return nil

		case t := <-ticker.C:
			logger.Debugf("Tick at: %v", t)

			err := w.executeTick()
			if err != nil {
				logger.Errorf("Failed to execute tick with error: %v", err)
			}
		}
	}
}
