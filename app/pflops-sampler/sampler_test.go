package main

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/wire"
	"github.com/amadeus-explorer/go-explorer/infrastructure/store/jsonfile"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type FakeStatsSource struct {
	stats wire.Stats
	err   error
}

func (f *FakeStatsSource) GetRawStats(_ context.Context) (wire.Stats, error) {
	return f.stats, f.err
}

func pflops(value float64) *float64 {
	return &value
}

func newTestSampler(t *testing.T, source StatsSource) (*Sampler, *jsonfile.Store, string) {
	path := filepath.Join(t.TempDir(), "pflops_data.json")
	store := jsonfile.NewStore(path, 3)
	return NewSampler(source, store, zap.NewNop().Sugar()), store, path
}

func TestSampler_Collect(t *testing.T) {
	source := &FakeStatsSource{stats: wire.Stats{Height: 31_234_567, Circulating: "1000.5", Pflops: pflops(7.25), TxsPerSec: 1.5}}
	sampler, store, _ := newTestSampler(t, source)
	// sub-second and zoned input still yields a whole-second UTC date
	now := time.Date(2025, 10, 1, 14, 0, 0, 250_000_000, time.FixedZone("CEST", 2*60*60))

	require.NoError(t, sampler.Collect(context.Background(), now))

	series, err := store.Load()
	require.NoError(t, err)
	expected := []entities.MetricSample{{
		Timestamp:   now.UnixMilli(),
		Date:        "2025-10-01T12:00:00Z",
		Pflops:      7.25,
		Epoch:       312,
		Height:      31_234_567,
		Circulating: "1000.5",
		TxsPerSec:   1.5,
	}}
	diff := cmp.Diff(expected, series.Data)
	assert.Empty(t, diff)
}

func TestSampler_Collect_keepsNewestEntries(t *testing.T) {
	source := &FakeStatsSource{}
	sampler, store, _ := newTestSampler(t, source)
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		source.stats = wire.Stats{Height: uint64(i), Pflops: pflops(float64(i + 1))}
		require.NoError(t, sampler.Collect(context.Background(), start.Add(time.Duration(i)*time.Hour)))
	}

	series, err := store.Load()
	require.NoError(t, err)
	require.Len(t, series.Data, 3)
	assert.Equal(t, float64(3), series.Data[0].Pflops)
	assert.Equal(t, float64(5), series.Data[2].Pflops)
}

func TestSampler_Collect_givenMissingPflops_thenError(t *testing.T) {
	source := &FakeStatsSource{stats: wire.Stats{Height: 10}}
	sampler, _, path := newTestSampler(t, source)

	err := sampler.Collect(context.Background(), time.Now())
	require.ErrorIs(t, err, ErrMissingPflops)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSampler_Collect_givenSourceError_thenError(t *testing.T) {
	source := &FakeStatsSource{err: errors.New("connection refused")}
	sampler, _, path := newTestSampler(t, source)

	err := sampler.Collect(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting stats")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
