// Package benchmark runs the reservation engines over parameter sweeps.
//
// A Sweep names an algorithm and the axes to vary; Points expands it into
// one engine configuration per cell. A Runner fills the sample budget of
// each point, optionally with several concurrent engines sharing one
// SampleTracker and RoundDataset, and hands back the datasets together
// with progress updates along the way.
package benchmark
