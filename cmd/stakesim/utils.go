// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/lockfi/stakelock/log"
	"github.com/lockfi/stakelock/metrics"
)

func fatal(args ...any) {
	fmt.Fprint(os.Stderr, "Fatal: ")
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) {
	level := new(slog.LevelVar)
	switch ctx.Int(verbosityFlag.Name) {
	case 0:
		level.Set(log.LevelError)
	case 1:
		level.Set(log.LevelWarn)
	case 2:
		level.Set(log.LevelInfo)
	default:
		level.Set(log.LevelDebug)
	}

	// structured output when piped, readable logfmt on a terminal
	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) || !isatty.IsTerminal(os.Stderr.Fd()) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		handler = log.LogfmtHandlerWithLevel(os.Stderr, level)
	}
	log.SetDefault(log.NewLogger(handler))
}

// startMetricsServer exposes the prometheus endpoint and returns a closer.
func startMetricsServer(addr string) (func(), error) {
	metrics.InitializePrometheusMetrics()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}

	router := http.NewServeMux()
	router.Handle("/metrics", metrics.HTTPHandler())
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", "error", err)
		}
	}()
	log.Info("metrics server started", "addr", listener.Addr())

	return func() { srv.Close() }, nil
}
