package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"panicpod/cmd/engine"
	"panicpod/src/model"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Panic Pod CMD"
	app.Usage = "The Panic Pod command line interface"

	app.Commands = []cli.Command{
		serverCMD,
		previewCMD,
		parseCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the evacuation API server",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the evacuation API server`,
	}
	previewCMD = cli.Command{
		Name:      "preview",
		Usage:     "build and print an evacuation plan without executing",
		Action:    previewAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "mode", Usage: "escape or haven", Value: "escape"},
			cli.StringFlag{Name: "btc", Usage: "BTC safe address"},
			cli.StringFlag{Name: "evm", Usage: "EVM fallback address"},
		},
		Description: `Fetch balances and prices, build the plan and print it`,
	}
	parseCMD = cli.Command{
		Name:        "parse",
		Usage:       "parse a natural-language trigger description",
		Action:      parseAction,
		ArgsUsage:   "<description>",
		Flags:       []cli.Flag{},
		Description: `Parse a trigger description into validated conditions`,
	}
)

func serverAction(_ *cli.Context) error {
	logrus.Info("Starting evacuation server CMD")

	e := &engine.Engine{}
	if err := e.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func previewAction(c *cli.Context) error {
	logrus.Info("Starting preview CMD")

	btcAddress := c.String("btc")
	if btcAddress == "" {
		return errors.New("--btc address is required")
	}
	mode := model.StrategyMode(c.String("mode"))

	evmAddress := c.String("evm")
	strat := &model.PanicStrategy{}
	switch mode {
	case model.ModeEscape:
		strat.Escape = &model.EscapeConfig{BTCAddress: btcAddress, EVMAddress: evmAddress}
	case model.ModeHaven:
		strat.Haven = &model.HavenConfig{BTCAddress: btcAddress, EVMAddress: evmAddress}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	components := engine.Build()
	preview, err := components.Previewer.BuildPreview(context.Background(), mode, strat)
	if err != nil {
		logrus.WithError(err).Error("Building preview")
		return err
	}

	return printJSON(preview)
}

func parseAction(c *cli.Context) error {
	logrus.Info("Starting trigger parse CMD")

	input := c.Args().First()
	if input == "" {
		return errors.New("trigger description argument is required")
	}

	components := engine.Build()
	parsed, err := components.Parser.ParseTrigger(context.Background(), input)
	if err != nil {
		logrus.WithError(err).Error("Parsing trigger")
		return err
	}

	return printJSON(parsed)
}

func printJSON(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
