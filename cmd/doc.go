// Package cmd holds the schedsim executable and its configuration.
//
// schedsim: benchmark commands, the interactive shell and script runner,
// and the HTTP benchmark API.
//
//	go run ./cmd/schedsim chaum --clients 1,2,5
//	go run ./cmd/schedsim --config sweeps.yaml run
//	go run ./cmd/schedsim shell
//	go run ./cmd/schedsim serve --listen-addr 127.0.0.1:8080
//
// common: YAML configuration shared by every command, with command-line
// overrides.
package cmd
