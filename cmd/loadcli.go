package main

import (
	"fmt"
	"os"

	loadgen "github.com/skudasov/graphsense-loadgen"
	"github.com/skudasov/graphsense-loadgen/load"
	"github.com/skudasov/graphsense-loadgen/mockapi"
	"github.com/urfave/cli/v2"
)

var log = loadgen.DefaultLogger()

func generatorConfig(c *cli.Context) (*loadgen.GeneratorConfig, error) {
	path := c.String("gen_config")
	if path == "" {
		return nil, fmt.Errorf("provide path to generator config, --gen_config generator.yaml")
	}
	return loadgen.ReadGeneratorConfig(path)
}

// suiteRunners handle names of a suite config, every handle is a graphite runner prefix
func suiteRunners(path string) ([]string, error) {
	if path == "" {
		return []string{load.WalkerHandle}, nil
	}
	cfg, err := loadgen.LoadSuiteConfig(path)
	if err != nil {
		return nil, err
	}
	runners := make([]string, 0)
	for _, s := range cfg.Steps {
		for _, h := range s.Handles {
			runners = append(runners, h.HandleName)
		}
	}
	return runners, nil
}

func twoArgs(c *cli.Context, usage string) (string, string, error) {
	in, out := c.Args().Get(0), c.Args().Get(1)
	if in == "" || out == "" {
		return "", "", fmt.Errorf("usage: %s", usage)
	}
	return in, out, nil
}

func main() {
	app := &cli.App{
		Name:  "loadcli",
		Usage: "load tests for the graphsense analytics API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gen_config",
				Value: "generator.yaml",
				Usage: "generator config filepath",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "init",
				Aliases: []string{"i"},
				Usage:   "generate suite config for the walker handle",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: ".", Usage: "output dir"},
					&cli.StringFlag{Name: "mode", Value: loadgen.ModeUsers, Usage: "load mode: users | rps"},
				},
				Action: func(c *cli.Context) error {
					path, err := loadgen.GenerateSuiteConfig(c.String("dir"), load.WalkerHandle, c.String("mode"))
					if err != nil {
						return err
					}
					log.Infof("suite config written to %s", path)
					return nil
				},
			},
			{
				Name:    "build",
				Aliases: []string{"b"},
				Usage:   "build load test for specified platform: linux | darwin",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "binary path"},
				},
				Action: func(c *cli.Context) error {
					return loadgen.BuildSuiteCommand(c.Args().Get(0), c.String("out"))
				},
			},
			{
				Name:    "run",
				Aliases: []string{"r"},
				Usage:   "run load test suite, ex.: loadcli run suite.yaml",
				Action: func(c *cli.Context) error {
					suiteCfg := c.Args().Get(0)
					if suiteCfg == "" {
						return fmt.Errorf("path to load suite config must be specified")
					}
					genCfg, err := generatorConfig(c)
					if err != nil {
						return err
					}
					code, err := loadgen.RunSuiteFromConfig(load.AttackerFromName, load.CheckFromName, suiteCfg, genCfg, nil, nil)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					if code != 0 {
						return cli.Exit("suite failed", code)
					}
					return nil
				},
			},
			{
				Name:    "dashboard",
				Aliases: []string{"d"},
				Usage:   "regenerate & upload grafana dashboard",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "suite config to take runner names from"},
				},
				Action: func(c *cli.Context) error {
					genCfg, err := generatorConfig(c)
					if err != nil {
						return err
					}
					runners, err := suiteRunners(c.String("config"))
					if err != nil {
						return err
					}
					return loadgen.UploadGrafanaDashboard(genCfg, load.Labels(), runners)
				},
			},
			{
				Name:    "mock",
				Aliases: []string{"m"},
				Usage:   "serve a fake analytics API with deterministic data",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: ":8081", Usage: "listen address"},
					&cli.StringFlag{Name: "currency", Value: "btc", Usage: "currency served with data"},
					&cli.Int64Flag{Name: "blocks", Value: 10000, Usage: "number of blocks"},
					&cli.Float64Flag{Name: "error_rate", Usage: "share of requests answered with 500"},
				},
				Action: func(c *cli.Context) error {
					s := mockapi.NewServer(mockapi.Config{
						Currency:  c.String("currency"),
						NoBlocks:  c.Int64("blocks"),
						ErrorRate: c.Float64("error_rate"),
						AccessLog: true,
					})
					log.Infof("mock api listening on %s", c.String("addr"))
					return s.Start(c.String("addr"))
				},
			},
			{
				Name:    "scaling_report",
				Aliases: []string{"sr"},
				Usage:   "plot scaling report, ex.: loadcli sr reports/scaling.csv scaling.png",
				Action: func(c *cli.Context) error {
					in, out, err := twoArgs(c, "provide scaling csv file, and png name, ex: scaling.csv report.png")
					if err != nil {
						return err
					}
					return loadgen.ReportScaling(in, out)
				},
			},
			{
				Name:    "latency_report",
				Aliases: []string{"lr"},
				Usage:   "plot response time report, ex.: loadcli lr reports/result.csv latency.png",
				Action: func(c *cli.Context) error {
					in, out, err := twoArgs(c, "provide result csv file, and png name, ex: result.csv latency.png")
					if err != nil {
						return err
					}
					return loadgen.ReportLatency(in, out)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
