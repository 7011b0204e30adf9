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
	"encoding/json"
	"fmt"

	"github.com/defiweb/go-eth/types"
	"github.com/prometheus/client_golang/prometheus"
	logger "github.com/sirupsen/logrus"
)

// The node serves every method on its root path and does not correlate ids.
const (
	rootPath  = "/"
	requestID = 1
)

type DnaRpcProvider struct {
	client APIClient
}

func NewDnaRpcProvider(client APIClient) *DnaRpcProvider {
	return &DnaRpcProvider{
		client: client,
	}
}

// call posts a single request and decodes the whole response body.
// Errors from the client are returned as they are.
func (d *DnaRpcProvider) call(ctx context.Context, method string, params ...any) (*Response, error) {
	if params == nil {
		params = []any{}
	}

	timer := prometheus.NewTimer(RequestDuration.WithLabelValues(method))
	defer timer.ObserveDuration()
	RequestsCounter.WithLabelValues(method).Inc()

	logger.WithField("method", method).Tracef("sending request with %d params", len(params))

	body, err := d.client.Post(ctx, rootPath, Request{
		Method: method,
		Params: params,
		ID:     requestID,
	})
	if err != nil {
		ErrorsCounter.WithLabelValues(method).Inc()
		logger.WithField("method", method).Debugf("request failed: %v", err)
		return nil, err
	}

	var resp Response
	if err = json.Unmarshal(body, &resp); err != nil {
		ErrorsCounter.WithLabelValues(method).Inc()
		return nil, err
	}
	if resp.Error != nil {
		ErrorsCounter.WithLabelValues(method).Inc()
		logger.WithField("method", method).Debugf("node returned error: %v", resp.Error)
	}
	return &resp, nil
}

// callResult posts a request and decodes its result field into result.
func (d *DnaRpcProvider) callResult(ctx context.Context, method string, result any, params ...any) error {
	resp, err := d.call(ctx, method, params...)
	if err != nil {
		return err
	}
	return resp.Decode(result)
}

func (d *DnaRpcProvider) SendInvite(ctx context.Context, args InviteArgs) (*Response, error) {
	return d.call(ctx, MethodSendInvite, Strip(map[string]any{
		"to":     optional(args.To),
		"amount": args.Amount,
	}))
}

func (d *DnaRpcProvider) ActivateInvite(ctx context.Context, to string, key string) (*Response, error) {
	return d.call(ctx, MethodActivateInvite, Strip(map[string]any{
		"to":  optional(to),
		"key": optional(key),
	}))
}

func (d *DnaRpcProvider) FetchIdentities(ctx context.Context) ([]Identity, error) {
	var identities []Identity
	if err := d.callResult(ctx, MethodIdentities, &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

func (d *DnaRpcProvider) FetchIdentity(ctx context.Context, address string) (*Identity, error) {
	var identity *Identity
	if err := d.callResult(ctx, MethodIdentity, &identity, address); err != nil {
		return nil, err
	}
	return identity, nil
}

func (d *DnaRpcProvider) FetchEpoch(ctx context.Context) (*Epoch, error) {
	var epoch *Epoch
	if err := d.callResult(ctx, MethodEpoch, &epoch); err != nil {
		return nil, err
	}
	return epoch, nil
}

func (d *DnaRpcProvider) FetchCeremonyIntervals(ctx context.Context) (*CeremonyIntervals, error) {
	var intervals *CeremonyIntervals
	if err := d.callResult(ctx, MethodCeremonyIntervals, &intervals); err != nil {
		return nil, err
	}
	return intervals, nil
}

func (d *DnaRpcProvider) FetchCoinbaseAddress(ctx context.Context) (types.Address, error) {
	var address *types.Address
	if err := d.callResult(ctx, MethodGetCoinbaseAddr, &address); err != nil {
		return types.ZeroAddress, err
	}
	if address == nil {
		return types.ZeroAddress, fmt.Errorf("%s returned empty result", MethodGetCoinbaseAddr)
	}
	return *address, nil
}

func (d *DnaRpcProvider) FetchFlip(ctx context.Context, hash string) (*Response, error) {
	return d.call(ctx, MethodFlipGet, hash)
}

func (d *DnaRpcProvider) SubmitFlip(ctx context.Context, hex string) (*Response, error) {
	return d.call(ctx, MethodFlipSubmit, hex)
}

type killIdentityArgs struct {
	Type int    `json:"type"`
	From string `json:"from,omitempty"`
}

func (d *DnaRpcProvider) KillIdentity(ctx context.Context, from string) (*Response, error) {
	return d.call(ctx, MethodSendTransaction, killIdentityArgs{
		Type: KillTx,
		From: from,
	})
}
