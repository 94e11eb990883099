package aggregator

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flashbots/schedsim/protocol"
	"github.com/flashbots/schedsim/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ protocol.Tracker       = (*SampleTracker)(nil)
	_ protocol.RoundRecorder = (*RoundDataset)(nil)
)

func TestSampleTracker(t *testing.T) {
	tracker := NewSampleTracker(3)
	require.False(t, tracker.IsFinished())
	require.Zero(t, tracker.Progress())

	require.True(t, tracker.ReportRound())
	require.True(t, tracker.ReportRound())
	require.InDelta(t, 2.0/3.0, tracker.Progress(), 1e-12)
	require.False(t, tracker.IsFinished())

	require.True(t, tracker.ReportRound())
	require.True(t, tracker.IsFinished())
	require.Equal(t, 1.0, tracker.Progress())

	require.False(t, tracker.ReportRound())
	require.Equal(t, 3, tracker.Observed())
	require.Equal(t, 3, tracker.Samples())
	require.Equal(t, 1.0, tracker.Progress())
}

func TestSampleTracker_EmptyBudget(t *testing.T) {
	for _, samples := range []int{0, -4} {
		tracker := NewSampleTracker(samples)
		assert.True(t, tracker.IsFinished())
		assert.False(t, tracker.ReportRound())
		assert.Equal(t, 1.0, tracker.Progress())
	}
}

func TestSampleTracker_Concurrent(t *testing.T) {
	tracker := NewSampleTracker(1000)
	dataset := NewRoundDataset(Metadata{Algorithm: protocol.AlgorithmChaum})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tracker.ReportRound() {
				dataset.Add(0, 1, 0, 1)
			}
		}()
	}
	wg.Wait()

	assert.True(t, tracker.IsFinished())
	assert.Equal(t, 1000, tracker.Observed())
	assert.Equal(t, 1000, dataset.Len())
}

func TestRoundDataset_WriteCSV(t *testing.T) {
	dataset := NewRoundDataset(Metadata{
		Algorithm: protocol.AlgorithmFootprint,
		Slots:     20,
		Rounds:    4,
		Bits:      8,
		Clients:   10,
		Activity:  0.5,
	})
	dataset.Add(1, 4, 3, 40)
	dataset.Add(0, 2, 5, 42.5)

	var buf bytes.Buffer
	require.NoError(t, dataset.WriteCSV(&buf, true))
	assert.Equal(t, strings.Join([]string{
		"Algorithm,Slots,Rounds,Bits,Clients,Activity,Collisions,ReqRounds,EmptySlots,Data",
		"Footprint,20,4,8,10,0.5,1,4,3,40",
		"Footprint,20,4,8,10,0.5,0,2,5,42.5",
		"",
	}, "\n"), buf.String())

	buf.Reset()
	require.NoError(t, dataset.WriteCSV(&buf, false))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "Algorithm")
}

func TestRoundDataset_Summarize(t *testing.T) {
	dataset := NewRoundDataset(Metadata{Algorithm: protocol.AlgorithmPfitzmann, Slots: 8, Rounds: 1, Bits: 4, Clients: 2, Activity: 1})

	empty := dataset.Summarize()
	assert.Zero(t, empty.Samples)
	assert.Zero(t, empty.MeanData)

	dataset.Add(0, 3, 6, 10)
	dataset.Add(2, 5, 8, 30)
	dataset.Add(1, 4, 7, 20)

	s := dataset.Summarize()
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, protocol.AlgorithmPfitzmann, s.Algorithm)
	assert.InDelta(t, 20, s.MeanData, 1e-9)
	assert.Greater(t, s.StdDevData, 8.0)
	assert.LessOrEqual(t, s.StdDevData, 10.0+1e-9)
	assert.GreaterOrEqual(t, s.P50Data, 10.0)
	assert.LessOrEqual(t, s.P99Data, 30.0)
	assert.GreaterOrEqual(t, s.P99Data, s.P50Data)
	assert.InDelta(t, 4, s.MeanRequiredRounds, 1e-9)
	assert.InDelta(t, 1, s.MeanCollisions, 1e-9)
	assert.InDelta(t, 7, s.MeanEmptySlots, 1e-9)

	dataset.AddUnsuccessful()
	dataset.AddUnsuccessful()
	s = dataset.Summarize()
	assert.Equal(t, int64(2), s.Unsuccessful)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, 3, dataset.Len())

	// Summarize works on a copy.
	assert.Equal(t, []Record{{0, 3, 6, 10}, {2, 5, 8, 30}, {1, 4, 7, 20}}, dataset.Records())
}

func TestRoundDataset_RecordsEngineOutput(t *testing.T) {
	tracker := NewSampleTracker(5)
	dataset := NewRoundDataset(Metadata{Algorithm: protocol.AlgorithmChaum, Slots: 32, Rounds: 1, Bits: 32, Clients: 1, Activity: 1})
	engine, err := protocol.NewChaumEngine(protocol.ChaumConfig{Clients: 1, Slots: 32, Activity: 1}, testutil.NewRand(3), tracker, dataset)
	require.NoError(t, err)

	for !tracker.IsFinished() {
		_, err := engine.Schedule()
		require.NoError(t, err)
	}
	_, err = engine.Schedule()
	require.NoError(t, err)

	assert.Equal(t, 5, dataset.Len())
	for _, r := range dataset.Records() {
		assert.Equal(t, 1, r.RequiredRounds)
	}
}

func TestStore_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "benchmark-data")
	store := NewStore()

	path, rows, err := store.Write(dir)
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.NoFileExists(t, path)

	first := NewRoundDataset(Metadata{Algorithm: protocol.AlgorithmChaum, Slots: 32, Rounds: 1, Bits: 32, Clients: 1, Activity: 1})
	first.Add(0, 1, 31, 32)
	second := NewRoundDataset(Metadata{Algorithm: protocol.AlgorithmChaum, Slots: 64, Rounds: 1, Bits: 32, Clients: 2, Activity: 1})
	second.Add(0, 1, 62, 32)
	second.Add(2, 1, 63, -64)
	store.Add(first)
	store.Add(second)
	require.Len(t, store.Pending(), 2)

	path, rows, err = store.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Empty(t, store.Pending())

	store.Add(first)
	_, rows, err = store.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, 1, strings.Count(string(content), "Algorithm"))
	assert.Equal(t, "Chaum,32,1,32,1,1,0,1,31,32", lines[4])
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()
	store.Add(NewRoundDataset(Metadata{}))
	store.Add(NewRoundDataset(Metadata{}))
	assert.Equal(t, 2, store.Clear())
	assert.Zero(t, store.Clear())
	assert.Empty(t, store.Pending())
}
