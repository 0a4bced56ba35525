// Copyright (c) 2025 The StakeLock developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// stakesim replays a staking scenario against an in-memory ledger and
// reports every account's final position. It exists to exercise the full
// operation surface end to end and to expose its metrics.
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
)

func fullVersion() string {
	if gitCommit == "" {
		return version
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "stakesim",
		Usage:     "replay a time-locked staking scenario",
		Copyright: "2025 The StakeLock developers",
		Flags: []cli.Flag{
			verbosityFlag,
			jsonLogsFlag,
			scenarioFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func run(ctx *cli.Context) error {
	initLogger(ctx)

	if ctx.Bool(enableMetricsFlag.Name) {
		stop, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer stop()
	}

	scenario := defaultScenario()
	if path := ctx.String(scenarioFlag.Name); path != "" {
		loaded, err := loadScenario(path)
		if err != nil {
			return err
		}
		scenario = loaded
	}

	s, err := newSim(scenario)
	if err != nil {
		return err
	}
	return s.run()
}
