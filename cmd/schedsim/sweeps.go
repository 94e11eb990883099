package main

import (
	"fmt"

	"github.com/flashbots/schedsim/benchmark"
	"github.com/flashbots/schedsim/cmdline"
	"github.com/flashbots/schedsim/protocol"
	"github.com/urfave/cli/v2"
)

// Slice flags keep their parsed values, so every command tree gets its own.
func clientsFlag() cli.Flag {
	return &cli.IntSliceFlag{
		Name:  "clients",
		Usage: "client counts to sweep (default 1,2,5,...,50000)",
	}
}

func activityFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:  "activity",
		Usage: "fraction of clients taking part in a cycle",
		Value: 1,
	}
}

func footprintCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "footprint",
		Usage:     "benchmark footprint scheduling",
		ArgsUsage: "[SLOTS BITS [CLIENTS] [BEHAVIOUR [PERCENTAGES]] [ACTIVITY [STOP]]]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "slots", Usage: "slots per cycle"},
			&cli.IntFlag{Name: "bits", Usage: "footprint width, 1 to 8", Value: 8},
			clientsFlag(),
			activityFlag(),
			&cli.StringFlag{Name: "mode", Usage: "single or multi", Value: protocol.SingleSlot.String()},
			&cli.StringFlag{Name: "withdraw", Usage: "withdraw behaviour: static, linear or reactive"},
			&cli.Float64SliceFlag{Name: "percentages", Usage: "withdraw percentages to sweep"},
			&cli.BoolFlag{Name: "stop-on-convergence", Usage: "end a cycle once no collision is visible"},
		},
		Action: func(c *cli.Context) error {
			sweep := benchmark.Sweep{
				Algorithm:         protocol.AlgorithmFootprint,
				Slots:             c.Int("slots"),
				Bits:              c.Int("bits"),
				Clients:           c.IntSlice("clients"),
				Activity:          benchmark.Activity(c.Float64("activity")),
				Percentages:       c.Float64Slice("percentages"),
				StopOnConvergence: c.Bool("stop-on-convergence"),
			}
			mode, err := protocol.ParseReservationMode(c.String("mode"))
			if err != nil {
				return err
			}
			sweep.Mode = mode
			if name := c.String("withdraw"); name != "" {
				b, err := protocol.ParseWithdrawBehaviour(name)
				if err != nil {
					return err
				}
				sweep.Withdraw = &b
			}
			if err := parseFootprintArgs(&sweep, cmdline.NewArgs(c.Args().Slice())); err != nil {
				return err
			}
			return s.runSweep(c.Context, sweep)
		},
	}
}

func chaumCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "chaum",
		Usage:     "benchmark Chaum's single-shot reservation",
		ArgsUsage: "[CLIENTS [ACTIVITY [RATIO]]]",
		Flags: []cli.Flag{
			clientsFlag(),
			activityFlag(),
			&cli.IntFlag{Name: "ratio", Usage: "slots per client", Value: benchmark.DefaultChaumRatio},
		},
		Action: func(c *cli.Context) error {
			sweep := benchmark.Sweep{
				Algorithm: protocol.AlgorithmChaum,
				Clients:   c.IntSlice("clients"),
				Activity:  benchmark.Activity(c.Float64("activity")),
				Ratio:     c.Int("ratio"),
			}
			if err := parseChaumArgs(&sweep, cmdline.NewArgs(c.Args().Slice())); err != nil {
				return err
			}
			return s.runSweep(c.Context, sweep)
		},
	}
}

func pfitzmannCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "pfitzmann",
		Usage:     "benchmark Pfitzmann's recursive bisection",
		ArgsUsage: "[SLOTS_PER_CLIENT [CLIENTS] [ACTIVITY]]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "slots-per-client", Usage: "slots per client"},
			clientsFlag(),
			activityFlag(),
		},
		Action: func(c *cli.Context) error {
			sweep := benchmark.Sweep{
				Algorithm:      protocol.AlgorithmPfitzmann,
				SlotsPerClient: c.Int("slots-per-client"),
				Clients:        c.IntSlice("clients"),
				Activity:       benchmark.Activity(c.Float64("activity")),
			}
			if err := parsePfitzmannArgs(&sweep, cmdline.NewArgs(c.Args().Slice())); err != nil {
				return err
			}
			return s.runSweep(c.Context, sweep)
		},
	}
}

func (s *session) runConfigured(c *cli.Context) error {
	if len(s.cfg.Sweeps) == 0 {
		return cli.Exit("the configuration lists no sweeps", 2)
	}
	for _, sweep := range s.cfg.Sweeps {
		if err := s.runSweep(c.Context, sweep); err != nil {
			return err
		}
	}
	return nil
}

// parseFootprintArgs reads
//
//	SLOTS BITS [CLIENTS] [BEHAVIOUR [PERCENTAGES]] [ACTIVITY [STOP]]
//
// on top of the flag values. No arguments keeps the flags as they are.
func parseFootprintArgs(sweep *benchmark.Sweep, args *cmdline.Args) error {
	if args.Empty() {
		return nil
	}
	var err error
	if sweep.Slots, err = args.Int(); err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	if sweep.Bits, err = args.Int(); err != nil {
		return fmt.Errorf("bits: %w", err)
	}
	if err := parseClients(sweep, args); err != nil {
		return err
	}
	if !args.Empty() && !args.HasList() && !args.HasFloat() {
		name, _ := args.String()
		b, err := protocol.ParseWithdrawBehaviour(name)
		if err != nil {
			return err
		}
		sweep.Withdraw = &b
		if args.HasList() {
			if sweep.Percentages, err = args.Floats(); err != nil {
				return fmt.Errorf("percentages: %w", err)
			}
		}
	}
	if err := parseActivity(sweep, args); err != nil {
		return err
	}
	if !args.Empty() {
		if sweep.StopOnConvergence, err = args.Bool(); err != nil {
			return fmt.Errorf("stop on convergence: %w", err)
		}
	}
	return trailing(args)
}

// parseChaumArgs reads [CLIENTS] [ACTIVITY [RATIO]].
func parseChaumArgs(sweep *benchmark.Sweep, args *cmdline.Args) error {
	if err := parseClients(sweep, args); err != nil {
		return err
	}
	if err := parseActivity(sweep, args); err != nil {
		return err
	}
	if !args.Empty() {
		ratio, err := args.Int()
		if err != nil {
			return fmt.Errorf("ratio: %w", err)
		}
		sweep.Ratio = ratio
	}
	return trailing(args)
}

// parsePfitzmannArgs reads SLOTS_PER_CLIENT [CLIENTS] [ACTIVITY].
func parsePfitzmannArgs(sweep *benchmark.Sweep, args *cmdline.Args) error {
	if args.Empty() {
		return nil
	}
	var err error
	if sweep.SlotsPerClient, err = args.Int(); err != nil {
		return fmt.Errorf("slots per client: %w", err)
	}
	if err := parseClients(sweep, args); err != nil {
		return err
	}
	if err := parseActivity(sweep, args); err != nil {
		return err
	}
	return trailing(args)
}

func parseClients(sweep *benchmark.Sweep, args *cmdline.Args) error {
	if !args.HasList() {
		return nil
	}
	clients, err := args.Ints()
	if err != nil {
		return fmt.Errorf("clients: %w", err)
	}
	sweep.Clients = clients
	return nil
}

func parseActivity(sweep *benchmark.Sweep, args *cmdline.Args) error {
	if args.Empty() {
		return nil
	}
	activity, err := args.Float()
	if err != nil {
		return fmt.Errorf("activity: %w", err)
	}
	sweep.Activity = &activity
	return nil
}

func trailing(args *cmdline.Args) error {
	if !args.Empty() {
		return fmt.Errorf("unexpected arguments %v", args.Rest())
	}
	return nil
}
