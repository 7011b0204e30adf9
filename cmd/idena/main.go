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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/NagatoDharma/idena-desktop/core"
	"github.com/NagatoDharma/idena-desktop/pkg/apiclient"
)

const (
	defaultRpcURL  = "http://localhost:9009"
	defaultTimeout = 10 * time.Second
	envPrefix      = "IDENA"
)

type options struct {
	RpcURL      string        `mapstructure:"rpc-url"`
	APIKey      string        `mapstructure:"api-key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LogLevel    string        `mapstructure:"log-level"`
	MetricsAddr string        `mapstructure:"metrics-addr"`
}

// app holds what every subcommand needs once the root command has loaded the config.
type app struct {
	opts     options
	cfgFile  string
	provider core.IDnaProvider
}

// loadOptions layers the config file, IDENA_* env vars and flags, flags winning.
func loadOptions(cfgFile string, flags *pflag.FlagSet) (options, error) {
	var opts options

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return opts, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return opts, err
	}
	if err := v.Unmarshal(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func (a *app) setup(cmd *cobra.Command) error {
	opts, err := loadOptions(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.opts = opts

	level, err := logger.ParseLevel(opts.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %v", opts.LogLevel, err)
	}
	logger.SetLevel(level)

	if opts.RpcURL == "" {
		return errors.New("please provide Rpc URL using `--rpc-url` flag")
	}

	client, err := apiclient.New(apiclient.HTTPOptions{
		URL:        opts.RpcURL,
		APIKey:     opts.APIKey,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %v", err)
	}
	a.provider = core.NewDnaRpcProvider(client)

	if opts.MetricsAddr != "" {
		serveMetrics(opts.MetricsAddr)
	}
	return nil
}

func serveMetrics(addr string) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(core.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "idena",
		Short:         "Command line client for the Idena node RPC API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "[Optional] Path to a yaml config file")
	cmd.PersistentFlags().String("rpc-url", defaultRpcURL, "Node HTTP RPC URL")
	cmd.PersistentFlags().String("api-key", "", "Node API key")
	cmd.PersistentFlags().Duration("timeout", defaultTimeout, "HTTP request timeout")
	cmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("metrics-addr", "", "[Optional] Address to serve prometheus metrics on, e.g. `:9090`")

	cmd.AddCommand(
		newInviteCmd(a),
		newIdentitiesCmd(a),
		newIdentityCmd(a),
		newEpochCmd(a),
		newIntervalsCmd(a),
		newCoinbaseCmd(a),
		newFlipCmd(a),
		newKillCmd(a),
		newWatchCmd(a),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		logger.Error(err)
		os.Exit(1)
	}
}
