// Command scoretaker drives the results API from a terminal: it opens and
// clears rounds, types in attempts, prints standings and can simulate a
// whole event while checking the server's arithmetic.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/types"
	"github.com/okian/speedcube/internal/scoretaker"
	"github.com/okian/speedcube/pkg/logger"
)

const defaultSimulationTimeout = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "scoretaker:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	defaults := scoretaker.DefaultConfig()
	return &cli.App{
		Name:      "scoretaker",
		Usage:     "enter and check speedcubing round results",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: defaults.BaseURL, Usage: "base URL of the results service", EnvVars: []string{"SCORETAKER_URL"}},
			&cli.DurationFlag{Name: "timeout", Value: defaults.Timeout, Usage: "HTTP request timeout"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Value: logger.FormatText, Usage: "text or json"},
		},
		Before: func(c *cli.Context) error {
			return logger.Init(
				logger.WithLevel(c.String("log-level")),
				logger.WithFormat(c.String("log-format")),
				logger.WithOutput(c.App.ErrWriter),
			)
		},
		Commands: []*cli.Command{
			openCommand(),
			clearCommand(),
			submitCommand(),
			standingsCommand(),
			advancersCommand(),
			simulateCommand(),
		},
	}
}

func client(c *cli.Context) *scoretaker.Client {
	return scoretaker.NewClient(c.String("url"), c.Duration("timeout"))
}

// idArg parses positional argument i as a positive id.
func idArg(c *cli.Context, i int, name string) (uint, error) {
	raw := c.Args().Get(i)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return uint(id), nil
}

func openCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "open a round and seed its competitors",
		ArgsUsage: "ROUND_ID",
		Action: func(c *cli.Context) error {
			roundID, err := idArg(c, 0, "ROUND_ID")
			if err != nil {
				return err
			}
			res, err := client(c).OpenRound(c.Context, roundID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "round %d open, %d competitors seeded\n", res.Round.ID, res.Seeded)
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "reset every result of an open round",
		ArgsUsage: "ROUND_ID",
		Action: func(c *cli.Context) error {
			roundID, err := idArg(c, 0, "ROUND_ID")
			if err != nil {
				return err
			}
			res, err := client(c).ClearRound(c.Context, roundID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "round %d cleared, %d rows reset\n", res.RoundID, res.Cleared)
			return nil
		},
	}
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "enter a competitor's attempts, e.g. submit 3 17 12.34 DNF 1:02.50 11.2 13",
		ArgsUsage: "ROUND_ID COMPETITOR_ID ATTEMPT...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "digits", Usage: "read attempts as keypad digits: 1234 is 12.34, / is DNF, * is DNS"},
		},
		Action: func(c *cli.Context) error {
			roundID, err := idArg(c, 0, "ROUND_ID")
			if err != nil {
				return err
			}
			competitorID, err := idArg(c, 1, "COMPETITOR_ID")
			if err != nil {
				return err
			}
			attempts := c.Args().Slice()[min(2, c.NArg()):]
			if len(attempts) == 0 {
				return fmt.Errorf("at least one attempt is required")
			}
			if c.Bool("digits") {
				for i, a := range attempts {
					attempts[i] = attempt.FromDigits(a)
					if attempts[i] == "" {
						return fmt.Errorf("attempt %d: %q is not keypad entry", i+1, a)
					}
				}
			}
			row, err := client(c).Submit(c.Context, roundID, competitorID, attempts)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s: %s  best %s  result %s\n",
				row.Name, strings.Join(row.Attempts, " "), row.Best, row.Result)
			return nil
		},
	}
}

func standingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "standings",
		Usage:     "print a round's standings",
		ArgsUsage: "ROUND_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the raw JSON response"},
		},
		Action: func(c *cli.Context) error {
			roundID, err := idArg(c, 0, "ROUND_ID")
			if err != nil {
				return err
			}
			st, err := client(c).Standings(c.Context, roundID)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			return printStandings(c.App.Writer, st)
		},
	}
}

func printStandings(w io.Writer, st types.Standings) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tATTEMPTS\tBEST\tRESULT")
	for _, e := range st.Valued {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", e.Rank, e.CompetitorID, e.Name, strings.Join(e.Attempts, " "), e.Best, e.Result)
	}
	for _, e := range st.Blank {
		fmt.Fprintf(tw, "-\t%d\t%s\t%s\t%s\t%s\n", e.CompetitorID, e.Name, strings.Join(e.Attempts, " "), e.Best, e.Result)
	}
	return tw.Flush()
}

func advancersCommand() *cli.Command {
	return &cli.Command{
		Name:      "advancers",
		Usage:     "preview who proceeds from a round",
		ArgsUsage: "ROUND_ID",
		Action: func(c *cli.Context) error {
			roundID, err := idArg(c, 0, "ROUND_ID")
			if err != nil {
				return err
			}
			adv, err := client(c).Advancers(c.Context, roundID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "rule %s, threshold %d, ties %s: %v\n",
				adv.Rule, adv.Threshold, adv.TiePolicy, adv.CompetitorIDs)
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	d := scoretaker.DefaultConfig()
	return &cli.Command{
		Name:  "simulate",
		Usage: "run a generated two round event and verify the results",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "competitors", Value: d.Competitors, Usage: "number of competitors"},
			&cli.IntFlag{Name: "workers", Value: d.Workers, Usage: "concurrent requests"},
			&cli.StringFlag{Name: "event", Value: d.EventCode, Usage: "event code"},
			&cli.Float64Flag{Name: "proceed", Value: d.Proceed, Usage: "advancement from round 1: a count or a fraction below 1"},
			&cli.Float64Flag{Name: "cutoff", Usage: "round 1 cutoff in seconds"},
			&cli.Float64Flag{Name: "time-limit", Usage: "time limit in seconds"},
			&cli.Float64Flag{Name: "dnf-rate", Value: d.DNFRate, Usage: "probability of a DNF per attempt"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 for random"},
			&cli.DurationFlag{Name: "deadline", Value: defaultSimulationTimeout, Usage: "overall time allowed"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every submission"},
		},
		Action: func(c *cli.Context) error {
			cfg := scoretaker.Config{
				BaseURL:     c.String("url"),
				Timeout:     c.Duration("timeout"),
				Workers:     c.Int("workers"),
				Competitors: c.Int("competitors"),
				EventCode:   c.String("event"),
				Proceed:     c.Float64("proceed"),
				Cutoff:      c.Float64("cutoff"),
				TimeLimit:   c.Float64("time-limit"),
				DNFRate:     c.Float64("dnf-rate"),
				Seed:        c.Uint64("seed"),
				Verbose:     c.Bool("verbose"),
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("deadline"))
			defer cancel()

			report, err := scoretaker.Simulate(ctx, cfg)
			if err != nil {
				return err
			}
			printReport(c.App.Writer, report)
			return nil
		},
	}
}

func printReport(w io.Writer, r *scoretaker.Report) {
	fmt.Fprintf(w, "competition %s, event %d, %d competitors, %s\n",
		r.CompetitionID, r.EventID, r.Competitors, r.Duration.Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tENTRANTS\tSUBMITTED\tFAILED\tVALUED\tBLANK\tADVANCERS\tTIME")
	for _, rr := range r.Rounds {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n", rr.Number, rr.Entrants, rr.Submitted,
			rr.Failed, rr.Valued, rr.Blank, rr.Advancers, rr.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
}
