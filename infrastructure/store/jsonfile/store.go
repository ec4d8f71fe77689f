package jsonfile

import (
	"encoding/json"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCapacity keeps 30 days of hourly samples.
const DefaultCapacity = 720

var ErrInvalidPeriod = errors.New("invalid period")

// Store is an append only JSON document of metric samples, capped to the
// most recent entries. Writes replace the file atomically.
type Store struct {
	path     string
	capacity int
	mu       sync.Mutex
}

func NewStore(path string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{path: path, capacity: capacity}
}

// Load returns an empty series if the file does not exist yet.
func (s *Store) Load() (entities.MetricSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (entities.MetricSeries, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entities.MetricSeries{Data: []entities.MetricSample{}}, nil
	}
	if err != nil {
		return entities.MetricSeries{}, errors.Wrapf(err, "reading [%s]", s.path)
	}
	var series entities.MetricSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return entities.MetricSeries{}, errors.Wrapf(err, "parsing [%s]", s.path)
	}
	if series.Data == nil {
		series.Data = []entities.MetricSample{}
	}
	return series, nil
}

// Append adds a sample and evicts the oldest ones above capacity.
func (s *Store) Append(sample entities.MetricSample) (entities.MetricSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, err := s.load()
	if err != nil {
		return entities.MetricSeries{}, errors.Wrap(err, "loading series")
	}
	series.Data = append(series.Data, sample)
	if overflow := len(series.Data) - s.capacity; overflow > 0 {
		series.Data = append([]entities.MetricSample(nil), series.Data[overflow:]...)
	}
	if err := s.write(series); err != nil {
		return entities.MetricSeries{}, errors.Wrap(err, "writing series")
	}
	return series, nil
}

func (s *Store) write(series entities.MetricSeries) error {
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling series")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating directory [%s]", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replacing [%s]", s.path)
	}
	return nil
}

type Period string

const (
	PeriodDay   Period = "24h"
	PeriodWeek  Period = "7d"
	PeriodMonth Period = "30d"
	PeriodAll   Period = "all"
)

func ParsePeriod(value string) (Period, error) {
	switch Period(value) {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return Period(value), nil
	default:
		return "", errors.Wrapf(ErrInvalidPeriod, "[%s]", value)
	}
}

func (p Period) window() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Series returns the samples of the period ending at now, oldest first.
func (s *Store) Series(period Period, now time.Time) ([]entities.MetricSample, error) {
	series, err := s.Load()
	if err != nil {
		return nil, err
	}
	return FilterPeriod(series.Data, period, now), nil
}

func FilterPeriod(samples []entities.MetricSample, period Period, now time.Time) []entities.MetricSample {
	window := period.window()
	result := make([]entities.MetricSample, 0, len(samples))
	for _, sample := range samples {
		if window > 0 && now.Sub(time.UnixMilli(sample.Timestamp)) > window {
			continue
		}
		result = append(result, sample)
	}
	return result
}

type Summary struct {
	Current float64 `json:"current"`
	Average float64 `json:"average"`
	Peak    float64 `json:"peak"`
	Points  int     `json:"points"`
}

func Summarize(samples []entities.MetricSample) Summary {
	summary := Summary{Points: len(samples)}
	if len(samples) == 0 {
		return summary
	}
	var total float64
	for _, sample := range samples {
		total += sample.Pflops
		summary.Peak = max(summary.Peak, sample.Pflops)
	}
	summary.Current = samples[len(samples)-1].Pflops
	summary.Average = total / float64(len(samples))
	return summary
}
