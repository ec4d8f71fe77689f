package main

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"time"
)

var ErrMissingPflops = errors.New("pflops not found in stats")

type StatsSource interface {
	GetRawStats(ctx context.Context) (wire.Stats, error)
}

type SampleStore interface {
	Append(sample entities.MetricSample) (entities.MetricSeries, error)
}

type Sampler struct {
	source StatsSource
	store  SampleStore
	logger *zap.SugaredLogger
}

func NewSampler(source StatsSource, store SampleStore, logger *zap.SugaredLogger) *Sampler {
	return &Sampler{source: source, store: store, logger: logger}
}

// Collect appends one sample taken at now. Stats without a pflops value are
// rejected and the file is left as is.
func (s *Sampler) Collect(ctx context.Context, now time.Time) error {
	s.logger.Infow("Collecting pflops sample.")

	stats, err := s.source.GetRawStats(ctx)
	if err != nil {
		return errors.Wrap(err, "getting stats")
	}
	if stats.Pflops == nil || *stats.Pflops == 0 {
		return ErrMissingPflops
	}

	sample := entities.MetricSample{
		Timestamp:   now.UnixMilli(),
		Date:        now.UTC().Format(time.RFC3339),
		Pflops:      *stats.Pflops,
		Epoch:       stats.Height / entities.EpochLength,
		Height:      stats.Height,
		Circulating: stats.Circulating,
		TxsPerSec:   stats.TxsPerSec,
	}
	series, err := s.store.Append(sample)
	if err != nil {
		return errors.Wrap(err, "storing sample")
	}

	s.logger.Infow("Sample stored.", "pflops", sample.Pflops, "epoch", sample.Epoch, "height", sample.Height, "entries", len(series.Data))
	return nil
}
