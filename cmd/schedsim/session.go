package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/flashbots/schedsim/aggregator"
	"github.com/flashbots/schedsim/benchmark"
	"github.com/flashbots/schedsim/cmd/common"
	"github.com/flashbots/schedsim/cmdline"
	"github.com/urfave/cli/v2"
)

const prompt = "[Scheduling sim] $ "

// errExit is returned by the exit command to end the shell or a script.
var errExit = errors.New("exit")

// session holds the state shared by every command of one process: the
// configuration and the datasets waiting to be written.
type session struct {
	in  io.Reader
	out io.Writer

	cfg   *common.Config
	log   *slog.Logger
	store *aggregator.Store

	// interactive keeps datasets queued until "write".
	interactive bool
	inShell     bool
	animate     bool
}

func newSession(in io.Reader, out io.Writer) *session {
	return &session{in: in, out: out, store: aggregator.NewStore()}
}

// runSweep runs every point of sweep and queues its datasets. SIGINT
// cancels the sweep without ending the shell.
func (s *session) runSweep(ctx context.Context, sweep benchmark.Sweep) error {
	points, err := sweep.Points()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.cfg.Seed == 0 {
		s.log.Info("Using random seed", "seed", s.cfg.ResolveSeed())
	}
	fmt.Fprintf(s.out, "Running %s sweep: %d point(s), %d samples each, seed %d\n", sweep.Algorithm, len(points), s.cfg.Samples, s.cfg.Seed)

	progress := newProgressLine(s.out, s.animate)
	runnerCfg := s.cfg.RunnerConfig(s.log, nil)
	runnerCfg.Progress = progress.update
	runnerCfg.OnResult = func(res *benchmark.Result) {
		progress.done(res)
		s.store.Add(res.Dataset)
	}
	_, err = benchmark.NewRunner(runnerCfg).Run(ctx, sweep)
	progress.stop()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "DONE")

	if s.interactive {
		return nil
	}
	return s.write()
}

func (s *session) write() error {
	n := len(s.store.Pending())
	fmt.Fprintf(s.out, "Writing %d set(s) to disk... ", n)
	path, rows, err := s.store.Write(s.cfg.OutputDir)
	if err != nil {
		fmt.Fprintln(s.out, "FAILED")
		return err
	}
	fmt.Fprintln(s.out, "DONE")
	s.log.Info("Datasets written", "path", path, "sets", n, "rows", rows)
	return nil
}

func (s *session) runShell(c *cli.Context) error {
	if s.inShell {
		return errors.New("already in a shell")
	}
	s.inShell, s.interactive = true, true
	defer func() { s.inShell = false }()

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			break
		}
		err := s.exec(c.Context, scanner.Text())
		if errors.Is(err, errExit) {
			break
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
	s.warnPending()
	return scanner.Err()
}

func (s *session) runScripts(c *cli.Context) error {
	if !c.Args().Present() {
		return cli.Exit("script needs at least one file", 2)
	}
	interactive := s.interactive
	s.interactive = true
	defer func() { s.interactive = interactive }()

	for _, path := range c.Args().Slice() {
		err := s.runScript(c.Context, path)
		if errors.Is(err, errExit) {
			break
		}
		if err != nil {
			return err
		}
	}
	if !interactive {
		s.warnPending()
	}
	return nil
}

func (s *session) runScript(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		if err := s.exec(ctx, scanner.Text()); err != nil {
			if errors.Is(err, errExit) {
				return err
			}
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	return scanner.Err()
}

// exec runs one shell line through a fresh command tree.
func (s *session) exec(ctx context.Context, line string) error {
	tokens, err := cmdline.Split(line)
	if err != nil || len(tokens) == 0 {
		return err
	}
	args := make([]string, 0, len(tokens)+1)
	args = append(args, "schedsim")
	for _, tok := range tokens {
		args = append(args, cmdline.Unquote(tok))
	}
	return newApp(s).RunContext(ctx, args)
}

func (s *session) warnPending() {
	if n := len(s.store.Pending()); n > 0 {
		fmt.Fprintf(s.out, "%d dataset(s) were not written\n", n)
	}
}

// progressLine animates the running sweep point and prints one line per
// finished point.
type progressLine struct {
	out     io.Writer
	spinner *spinner.Spinner

	mu       sync.Mutex
	label    string
	progress float64
}

func newProgressLine(out io.Writer, animate bool) *progressLine {
	p := &progressLine{out: out}
	if !animate {
		return p
	}
	p.spinner = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out))
	p.spinner.PreUpdate = func(spin *spinner.Spinner) {
		p.mu.Lock()
		defer p.mu.Unlock()
		spin.Suffix = fmt.Sprintf(" %s\t%5.1f%%", p.label, 100*p.progress)
	}
	return p
}

func (p *progressLine) update(point benchmark.Point, progress float64) {
	p.mu.Lock()
	p.label = point.String()
	p.progress = progress
	p.mu.Unlock()
	if p.spinner != nil && !p.spinner.Active() {
		p.spinner.Start()
	}
}

func (p *progressLine) done(res *benchmark.Result) {
	p.stop()
	sum := res.Dataset.Summarize()
	fmt.Fprintf(p.out, "%s\t%.1f bits/reservation (sd %.1f)\t%.2f rounds\t%d unsuccessful\t[DONE]\n",
		res.Point, sum.MeanData, sum.StdDevData, sum.MeanRequiredRounds, sum.Unsuccessful)
}

func (p *progressLine) stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}
