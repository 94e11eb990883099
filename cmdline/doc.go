// Package cmdline tokenizes the lines read by the schedsim shell and script
// runner.
//
// Tokens are separated by whitespace. A double-quoted string or a
// square-bracketed list is a single token, so
//
//	footprint 64 8 [10 100 1000] "Linear" [0.001 0.002] 0.5
//
// yields eight tokens. Args reads them one at a time as strings, numbers,
// booleans or nested lists.
package cmdline
