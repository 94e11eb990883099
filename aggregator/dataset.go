package aggregator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/flashbots/schedsim/protocol"
	"go.uber.org/atomic"
)

// Header is the column layout of round-data.csv.
var Header = []string{"Algorithm", "Slots", "Rounds", "Bits", "Clients", "Activity", "Collisions", "ReqRounds", "EmptySlots", "Data"}

// Metadata describes the sweep point every row of a dataset belongs to.
// For Chaum Rounds is 1 and Bits carries the slots-per-client ratio; for
// Pfitzmann Rounds is 1 and Bits carries the slots per client.
type Metadata struct {
	Algorithm protocol.Algorithm `json:"algorithm"`
	Slots     int                `json:"slots"`
	Rounds    int                `json:"rounds"`
	Bits      int                `json:"bits"`
	Clients   int                `json:"clients"`
	Activity  float64            `json:"activity"`
}

// Record is one recorded cycle.
type Record struct {
	Collisions     int     `json:"collisions"`
	RequiredRounds int     `json:"required_rounds"`
	EmptySlots     int     `json:"empty_slots"`
	Data           float64 `json:"data"`
}

// RoundDataset collects the outcome of every recorded cycle of one sweep
// point. It implements protocol.RoundRecorder and is safe for concurrent
// use.
type RoundDataset struct {
	meta Metadata

	mu      sync.Mutex
	records []Record

	unsuccessful atomic.Int64
}

func NewRoundDataset(meta Metadata) *RoundDataset {
	return &RoundDataset{meta: meta}
}

// Add appends one row. It never rejects.
func (d *RoundDataset) Add(collisions, requiredRounds, emptySlots int, data float64) {
	d.mu.Lock()
	d.records = append(d.records, Record{
		Collisions:     collisions,
		RequiredRounds: requiredRounds,
		EmptySlots:     emptySlots,
		Data:           data,
	})
	d.mu.Unlock()
}

// AddUnsuccessful counts a cycle that reserved no slot. Such cycles have
// no row.
func (d *RoundDataset) AddUnsuccessful() { d.unsuccessful.Inc() }

// Unsuccessful returns the number of cycles counted by AddUnsuccessful.
func (d *RoundDataset) Unsuccessful() int64 { return d.unsuccessful.Load() }

func (d *RoundDataset) Metadata() Metadata { return d.meta }

func (d *RoundDataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Records returns a copy of the rows recorded so far.
func (d *RoundDataset) Records() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Record(nil), d.records...)
}

// WriteCSV writes every row, preceded by Header if includeHeader is set.
func (d *RoundDataset) WriteCSV(w io.Writer, includeHeader bool) error {
	cw := csv.NewWriter(w)
	if includeHeader {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	prefix := []string{
		string(d.meta.Algorithm),
		strconv.Itoa(d.meta.Slots),
		strconv.Itoa(d.meta.Rounds),
		strconv.Itoa(d.meta.Bits),
		strconv.Itoa(d.meta.Clients),
		formatFloat(d.meta.Activity),
	}
	row := make([]string, 0, len(Header))
	for _, r := range d.Records() {
		row = append(row[:0], prefix...)
		row = append(row,
			strconv.Itoa(r.Collisions),
			strconv.Itoa(r.RequiredRounds),
			strconv.Itoa(r.EmptySlots),
			formatFloat(r.Data),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
