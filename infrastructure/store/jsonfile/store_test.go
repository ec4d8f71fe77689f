package jsonfile

import (
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sample(i int) entities.MetricSample {
	return entities.MetricSample{Timestamp: int64(i) * 1000, Pflops: float64(i), Height: uint64(i)}
}

func TestStore_Load_givenMissingFile_thenEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "pflops_data.json"), 0)

	series, err := store.Load()
	require.NoError(t, err)
	assert.NotNil(t, series.Data)
	assert.Empty(t, series.Data)
}

func TestStore_Load_givenCorruptFile_thenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pflops_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store := NewStore(path, 0)

	_, err := store.Load()
	require.Error(t, err)

	_, err = store.Append(sample(1))
	require.Error(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data)) // not overwritten
}

func TestStore_Append_evictsOldestAboveCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pflops_data.json")
	store := NewStore(path, DefaultCapacity)

	for i := 0; i < DefaultCapacity; i++ {
		_, err := store.Append(sample(i))
		require.NoError(t, err)
	}
	series, err := store.Load()
	require.NoError(t, err)
	require.Len(t, series.Data, 720)
	assert.Equal(t, sample(0), series.Data[0])

	series, err = store.Append(sample(720))
	require.NoError(t, err)
	require.Len(t, series.Data, 720)
	assert.Equal(t, sample(1), series.Data[0])
	assert.Equal(t, sample(720), series.Data[719])

	reloaded, err := NewStore(path, DefaultCapacity).Load()
	require.NoError(t, err)
	assert.Equal(t, series, reloaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1) // no temp files left
}

func TestStore_Append_preservesExistingSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pflops_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":[{"timestamp":1,"pflops":2.5,"height":3,"date":"x"}]}`), 0o644))
	store := NewStore(path, 10)

	series, err := store.Append(sample(5))
	require.NoError(t, err)
	require.Len(t, series.Data, 2)
	assert.Equal(t, 2.5, series.Data[0].Pflops)
	assert.Equal(t, "x", series.Data[0].Date)
}

func TestStore_Series(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(filepath.Join(t.TempDir(), "pflops_data.json"), 100)
	for _, age := range []time.Duration{40 * 24 * time.Hour, 10 * 24 * time.Hour, 3 * 24 * time.Hour, time.Hour} {
		_, err := store.Append(entities.MetricSample{Timestamp: now.Add(-age).UnixMilli(), Pflops: age.Hours()})
		require.NoError(t, err)
	}

	for period, expected := range map[Period]int{PeriodDay: 1, PeriodWeek: 2, PeriodMonth: 3, PeriodAll: 4} {
		samples, err := store.Series(period, now)
		require.NoError(t, err)
		assert.Len(t, samples, expected, period)
	}
}

func TestParsePeriod(t *testing.T) {
	period, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodDay, period)

	period, err = ParsePeriod("7d")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, period)

	_, err = ParsePeriod("1y")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	summary := Summarize([]entities.MetricSample{{Pflops: 10}, {Pflops: 30}, {Pflops: 20}})
	assert.Equal(t, Summary{Current: 20, Average: 20, Peak: 30, Points: 3}, summary)
}
