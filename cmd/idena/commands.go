package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/defiweb/go-eth/hexutil"
	"github.com/defiweb/go-eth/types"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NagatoDharma/idena-desktop/core"
)

const defaultWaitTimeout = 30 * time.Minute

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// printResponse prints the whole body and fails if it carries an error object.
func printResponse(w io.Writer, resp *core.Response) error {
	if err := printJSON(w, resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

// parseAddress checks an address argument before it is sent to the node.
func parseAddress(s string) (string, error) {
	a, err := types.AddressFromHex(s)
	if err != nil {
		return "", fmt.Errorf("failed to parse given address %s with error: %v", s, err)
	}
	return a.String(), nil
}

// addressOrCoinbase returns the parsed first argument, or the node coinbase address.
func (a *app) addressOrCoinbase(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return parseAddress(args[0])
	}
	coinbase, err := a.provider.FetchCoinbaseAddress(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("failed to get coinbase address: %v", err)
	}
	return coinbase.String(), nil
}

func (a *app) waitForState(cmd *cobra.Command, address string, state core.IdentityState, timeout time.Duration) error {
	logger.Infof("Waiting for %s to become %s", address, state)
	identity, err := core.WaitForIdentityState(cmd.Context(), a.provider, address, state, timeout)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), identity)
}

func newInviteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Send and activate invites",
	}

	var to, amount string
	send := &cobra.Command{
		Use:   "send",
		Short: "Send an invite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var inviteArgs core.InviteArgs
			if to != "" {
				addr, err := parseAddress(to)
				if err != nil {
					return err
				}
				inviteArgs.To = addr
			}
			if amount != "" {
				f, ok := new(big.Float).SetString(amount)
				if !ok {
					return fmt.Errorf("invalid amount %q", amount)
				}
				inviteArgs.Amount = f
			}
			resp, err := a.provider.SendInvite(cmd.Context(), inviteArgs)
			if err != nil {
				return fmt.Errorf("failed to send invite: %v", err)
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	send.Flags().StringVar(&to, "to", "", "[Optional] Invite receiver address")
	send.Flags().StringVar(&amount, "amount", "", "[Optional] Amount of coins to send with the invite")

	var activateTo, key string
	var wait bool
	var timeout time.Duration
	activate := &cobra.Command{
		Use:   "activate",
		Short: "Activate an invite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if activateTo != "" {
				addr, err := parseAddress(activateTo)
				if err != nil {
					return err
				}
				activateTo = addr
			}
			resp, err := a.provider.ActivateInvite(cmd.Context(), activateTo, key)
			if err != nil {
				return fmt.Errorf("failed to activate invite: %v", err)
			}
			if err = printResponse(cmd.OutOrStdout(), resp); err != nil || !wait {
				return err
			}
			address, err := a.addressOrCoinbase(cmd, nonEmpty(activateTo))
			if err != nil {
				return err
			}
			return a.waitForState(cmd, address, core.Candidate, timeout)
		},
	}
	activate.Flags().StringVar(&activateTo, "to", "", "[Optional] Address to activate, the node coinbase if empty")
	activate.Flags().StringVar(&key, "key", "", "Invite key")
	activate.Flags().BoolVar(&wait, "wait", false, "Wait until the identity becomes a candidate")
	activate.Flags().DurationVar(&timeout, "wait-timeout", defaultWaitTimeout, "How long to wait with --wait")
	_ = activate.MarkFlagRequired("key")

	cmd.AddCommand(send, activate)
	return cmd
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func newIdentitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "List all identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identities, err := a.provider.FetchIdentities(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get identities: %v", err)
			}
			return printJSON(cmd.OutOrStdout(), identities)
		},
	}
}

func newIdentityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "identity [address]",
		Short: "Show identity details, the node coinbase identity if no address is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.addressOrCoinbase(cmd, args)
			if err != nil {
				return err
			}
			identity, err := a.provider.FetchIdentity(cmd.Context(), address)
			if err != nil {
				return fmt.Errorf("failed to get identity %s: %v", address, err)
			}
			return printJSON(cmd.OutOrStdout(), identity)
		},
	}
}

func newEpochCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "epoch",
		Short: "Show current epoch, next validation time and current period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			epoch, err := a.provider.FetchEpoch(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get epoch: %v", err)
			}
			return printJSON(cmd.OutOrStdout(), epoch)
		},
	}
}

func newIntervalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "intervals",
		Short: "Show validation ceremony timings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			intervals, err := a.provider.FetchCeremonyIntervals(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get ceremony intervals: %v", err)
			}
			return printJSON(cmd.OutOrStdout(), intervals)
		},
	}
}

func newCoinbaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "coinbase",
		Short: "Show the node coinbase address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.provider.FetchCoinbaseAddress(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get coinbase address: %v", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), address.String())
			return err
		},
	}
}

func newFlipCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flip",
		Short: "Fetch and submit flips",
	}

	var out string
	get := &cobra.Command{
		Use:   "get <hash>",
		Short: "Fetch a flip published in the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.provider.FetchFlip(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get flip %s: %v", args[0], err)
			}
			if out == "" {
				return printResponse(cmd.OutOrStdout(), resp)
			}
			var flip core.Flip
			if err = resp.Decode(&flip); err != nil {
				return fmt.Errorf("failed to get flip %s: %v", args[0], err)
			}
			data, err := hexutil.HexToBytes(flip.Hex)
			if err != nil {
				return fmt.Errorf("failed to decode flip hex: %v", err)
			}
			if err = os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write flip: %v", err)
			}
			logger.Infof("Flip %s written to %s (%d bytes)", args[0], out, len(data))
			return nil
		},
	}
	get.Flags().StringVarP(&out, "out", "o", "", "[Optional] Write the decoded flip to this file instead of printing the response")

	submit := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a flip read from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read flip file: %v", err)
			}
			resp, err := a.provider.SubmitFlip(cmd.Context(), hexutil.BytesToHex(data))
			if err != nil {
				return fmt.Errorf("failed to submit flip: %v", err)
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}

	cmd.AddCommand(get, submit)
	return cmd
}

func newKillCmd(a *app) *cobra.Command {
	var wait bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "kill [from]",
		Short: "Kill an identity, the node coinbase identity if no address is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var from string
			if len(args) > 0 {
				addr, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				from = addr
			}
			resp, err := a.provider.KillIdentity(cmd.Context(), from)
			if err != nil {
				return fmt.Errorf("failed to kill identity: %v", err)
			}
			if err = printResponse(cmd.OutOrStdout(), resp); err != nil || !wait {
				return err
			}
			address, err := a.addressOrCoinbase(cmd, args)
			if err != nil {
				return err
			}
			return a.waitForState(cmd, address, core.Killed, timeout)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the identity is killed")
	cmd.Flags().DurationVar(&timeout, "wait-timeout", defaultWaitTimeout, "How long to wait with --wait")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch [address]",
		Short: "Watch epoch and identity changes, the node coinbase identity if no address is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) > 0 {
				addr, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				address = addr
			}

			return core.NewWatcher(cmd.Context(), a.provider, address, interval, nil).Run()
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", core.DefaultWatchInterval, "Polling interval")
	return cmd
}
