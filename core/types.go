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
	"math/big"
	"time"

	"github.com/defiweb/go-eth/types"
)

// JSON-RPC methods exposed by the node.
const (
	MethodSendInvite        = "dna_sendInvite"
	MethodActivateInvite    = "dna_activateInvite"
	MethodIdentities        = "dna_identities"
	MethodIdentity          = "dna_identity"
	MethodEpoch             = "dna_epoch"
	MethodCeremonyIntervals = "dna_ceremonyIntervals"
	MethodGetCoinbaseAddr   = "dna_getCoinbaseAddr"
	MethodSendTransaction   = "dna_sendTransaction"
	MethodFlipGet           = "flip_get"
	MethodFlipSubmit        = "flip_submit"
)

// KillTx is the transaction type that terminates an identity.
const KillTx = 3

type IdentityState string

const (
	Undefined IdentityState = "Undefined"
	Invite    IdentityState = "Invite"
	Candidate IdentityState = "Candidate"
	Verified  IdentityState = "Verified"
	Suspended IdentityState = "Suspended"
	Killed    IdentityState = "Killed"
	Zombie    IdentityState = "Zombie"
	Newbie    IdentityState = "Newbie"
	Human     IdentityState = "Human"
)

type Period string

const (
	NonePeriod             Period = "None"
	FlipLotteryPeriod      Period = "FlipLottery"
	ShortSessionPeriod     Period = "ShortSession"
	LongSessionPeriod      Period = "LongSession"
	AfterLongSessionPeriod Period = "AfterLongSession"
)

// Request is the envelope posted to the node.
type Request struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

// Response is the whole body returned by the node.
type Response struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Decode unmarshals the result field into v.
// The error object of the body is returned if present.
func (r *Response) Decode(v any) error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Result) == 0 {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// InviteArgs are the arguments of dna_sendInvite. Empty To and nil Amount are not sent.
type InviteArgs struct {
	To     string
	Amount *big.Float
}

// InviteResult is the result of dna_sendInvite.
type InviteResult struct {
	Hash     string `json:"hash"`
	Receiver string `json:"receiver"`
	Key      string `json:"key"`
}

// Identity details for an address.
//
// Example:
//
//	{
//	  "address": "0x994cf4cccf6463a903f339ea87288fe253e23b98",
//	  "nickname": "",
//	  "stake": "1998",
//	  "invites": 0,
//	  "age": 0,
//	  "state": "Undefined",
//	  "pubkey": "",
//	  "requiredFlips": 0,
//	  "madeFlips": 0
//	}
type Identity struct {
	Address       types.Address `json:"address"`
	Nickname      string        `json:"nickname"`
	Stake         string        `json:"stake"`
	Invites       int           `json:"invites"`
	Age           int           `json:"age"`
	State         IdentityState `json:"state"`
	PubKey        string        `json:"pubkey"`
	RequiredFlips int           `json:"requiredFlips"`
	MadeFlips     int           `json:"madeFlips"`
	Flips         []string      `json:"flips,omitempty"`

	// Extra holds the fields of the node record not listed above.
	Extra map[string]json.RawMessage `json:"-"`
}

// identityFields has the fields of Identity without its JSON methods.
type identityFields Identity

var identityKeys = []string{
	"address", "nickname", "stake", "invites", "age", "state",
	"pubkey", "requiredFlips", "madeFlips", "flips",
}

func (i *Identity) UnmarshalJSON(b []byte) error {
	var fields identityFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range identityKeys {
		delete(all, k)
	}
	fields.Extra = nil
	if len(all) > 0 {
		fields.Extra = all
	}
	*i = Identity(fields)
	return nil
}

func (i Identity) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(identityFields(i))
	if err != nil || len(i.Extra) == 0 {
		return b, err
	}
	var all map[string]json.RawMessage
	if err = json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for k, v := range i.Extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// Epoch holds the current epoch, next validation time and current period.
type Epoch struct {
	Epoch          uint64    `json:"epoch"`
	NextValidation time.Time `json:"nextValidation"`
	CurrentPeriod  Period    `json:"currentPeriod"`
}

// CeremonyIntervals are validation ceremony timings in seconds.
type CeremonyIntervals struct {
	ValidationInterval       float64 `json:"ValidationInterval"`
	FlipLotteryDuration      float64 `json:"FlipLotteryDuration"`
	ShortSessionDuration     float64 `json:"ShortSessionDuration"`
	LongSessionDuration      float64 `json:"LongSessionDuration"`
	AfterLongSessionDuration float64 `json:"AfterLongSessionDuration"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ValidationDuration is the length of a full validation ceremony.
func (c CeremonyIntervals) ValidationDuration() time.Duration {
	return seconds(c.FlipLotteryDuration + c.ShortSessionDuration + c.LongSessionDuration + c.AfterLongSessionDuration)
}

func (c CeremonyIntervals) ShortSession() time.Duration {
	return seconds(c.ShortSessionDuration)
}

func (c CeremonyIntervals) LongSession() time.Duration {
	return seconds(c.LongSessionDuration)
}

// Flip is the result of flip_get.
type Flip struct {
	Hex string `json:"hex"`
}

// FlipSubmission is the result of flip_submit.
type FlipSubmission struct {
	TxHash string `json:"txHash"`
	Hash   string `json:"hash"`
}

// IDnaProvider is the set of node calls used by the watcher and the CLI.
type IDnaProvider interface {
	// SendInvite issues an invite to the given address.
	SendInvite(ctx context.Context, args InviteArgs) (*Response, error)

	// ActivateInvite activates an invite with the given key.
	ActivateInvite(ctx context.Context, to string, key string) (*Response, error)

	FetchIdentities(ctx context.Context) ([]Identity, error)

	FetchIdentity(ctx context.Context, address string) (*Identity, error)

	FetchEpoch(ctx context.Context) (*Epoch, error)

	FetchCeremonyIntervals(ctx context.Context) (*CeremonyIntervals, error)

	FetchCoinbaseAddress(ctx context.Context) (types.Address, error)

	// FetchFlip returns the hex representation of a flip published in the network.
	FetchFlip(ctx context.Context, hash string) (*Response, error)

	SubmitFlip(ctx context.Context, hex string) (*Response, error)

	// KillIdentity sends a kill transaction from the given address.
	KillIdentity(ctx context.Context, from string) (*Response, error)
}
