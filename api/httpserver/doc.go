// Package httpserver exposes the simulators over HTTP.
//
// BaseServer owns the listener, the liveness and readiness checks and the
// drain switch, and mounts any RouteRegistrar next to them. The
// SimulationHandler is the registrar used by "schedsim serve":
//
//	GET    /api/v1/algorithms      accepted algorithms, modes and withdraw behaviours
//	POST   /api/v1/benchmarks      run a sweep and return one summary per point
//	GET    /api/v1/datasets        summaries of datasets queued with "keep"
//	POST   /api/v1/datasets/write  append queued datasets to round-data.csv
//	DELETE /api/v1/datasets        drop queued datasets
//
// A benchmark request is a sweep in the same shape as the config file, plus
// optional samples, workers and seed:
//
//	{"algorithm": "Footprint", "clients": [10, 100], "slots": 64, "bits": 8,
//	 "mode": "multi", "withdraw": "Linear", "percentages": [0.001], "samples": 200}
//
// Adding ?format=csv returns the raw rows instead, with the seed in the
// X-Seed header. Only one benchmark runs at a time; a concurrent request
// gets 409 and a draining server answers 503. Requests above the
// configured sample, worker, client or slot limits get 400.
package httpserver
