// Command schedsim benchmarks slot-reservation schemes for anonymous
// broadcast networks.
//
// Each benchmark command sweeps one algorithm over a list of client counts,
// records one row per successful reservation cycle and queues the resulting
// datasets. Outside the shell the datasets are appended to
// <output-dir>/round-data.csv right away; inside the shell or a script they
// stay queued until "write".
//
// # Commands
//
//	schedsim footprint --slots 64 --bits 8 --clients 10,100 --withdraw linear
//	schedsim chaum --clients 1,2,5 --ratio 32
//	schedsim pfitzmann --slots-per-client 4 --activity 0.5
//	schedsim --config sweeps.yaml run
//	schedsim script experiments.txt
//	schedsim shell
//	schedsim serve --listen-addr 127.0.0.1:8080
//
// The shell and scripts also accept the positional form, for example
//
//	footprint 64 8 [10 100 1000] "Linear" [0.001 0.002] 0.5 true
//	pfitzmann 4 [10 100] 0.5
//	chaum [1 2 5] 1.0 32
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	s := newSession(os.Stdin, os.Stdout)
	s.animate = true

	err := newApp(s).RunContext(context.Background(), os.Args)
	if err == nil || errors.Is(err, errExit) {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	code := 1
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) && exitErr.ExitCode() != 0 {
		code = exitErr.ExitCode()
	}
	os.Exit(code)
}
