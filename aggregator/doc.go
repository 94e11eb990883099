// Package aggregator collects what the reservation engines produce.
//
// A SampleTracker decides how many cycles of a sweep point are recorded and
// a RoundDataset stores one row per recorded cycle together with the
// point's metadata. Datasets are summarised with Summarize and queued in a
// Store until they are appended to round-data.csv.
package aggregator
