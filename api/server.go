package api

import (
	"context"
	"encoding/json"
	"github.com/amadeus-explorer/go-explorer/business/domain/ledger"
	"github.com/amadeus-explorer/go-explorer/business/domain/search"
	"github.com/amadeus-explorer/go-explorer/business/domain/tracking"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/node"
	"github.com/amadeus-explorer/go-explorer/infrastructure/store/jsonfile"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultListLimit = 50
	homeLimit        = 10
	defaultPageSize  = 20
	maxLimit         = 500
)

var errInvalidLimit = errors.New("invalid limit")

type Processor interface {
	OpenAddress(ctx context.Context, address string, filter ledger.Filter, pageSize int) error
	MoreAddressTransactions(ctx context.Context, address string) error
	StartTracking(address string) error
	StopTracking()
}

type TrackingReader interface {
	Snapshot() tracking.Snapshot
}

type AccountData interface {
	GetRichList(ctx context.Context) ([]entities.RichListEntry, error)
	GetEpochScore(ctx context.Context) ([]entities.ValidatorScore, error)
	GetBalances(ctx context.Context, address string) ([]entities.Balance, error)
}

type Resolver interface {
	Resolve(ctx context.Context, query string) (*search.Result, error)
}

type MetricSeries interface {
	Series(period jsonfile.Period, now time.Time) ([]entities.MetricSample, error)
}

// Server serves the view and the on demand node lookups as JSON.
type Server struct {
	view      *ledger.View
	processor Processor
	tracker   TrackingReader
	accounts  AccountData
	resolver  Resolver
	series    MetricSeries
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewServer(view *ledger.View, processor Processor, tracker TrackingReader, accounts AccountData, resolver Resolver, series MetricSeries, logger *zap.SugaredLogger) *Server {
	return &Server{
		view:      view,
		processor: processor,
		tracker:   tracker,
		accounts:  accounts,
		resolver:  resolver,
		series:    series,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/blocks", s.handleBlocks)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/home", s.handleHome)
	mux.HandleFunc("GET /api/address/{address}", s.handleAddress)
	mux.HandleFunc("GET /api/address/{address}/more", s.handleAddressMore)
	mux.HandleFunc("GET /api/address/{address}/balances", s.handleBalances)
	mux.HandleFunc("POST /api/address/{address}/track", s.handleStartTracking)
	mux.HandleFunc("DELETE /api/address/{address}/track", s.handleStopTracking)
	mux.HandleFunc("GET /api/tracking", s.handleTracking)
	mux.HandleFunc("GET /api/richlist", s.handleRichList)
	mux.HandleFunc("GET /api/validators", s.handleValidators)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/pflops", s.handlePflops)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// fail maps err to a status code. Nothing in the view is touched.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Warnw("Request failed.", "path", r.URL.Path, "status", code, "error", err)
	}
	writeError(w, code, err.Error())
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound), errors.Is(err, ledger.ErrNoFeed):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrFeedBusy), errors.Is(err, entities.ErrNoMorePages):
		return http.StatusConflict
	case errors.Is(err, tracking.ErrChannelNotOpen), errors.Is(err, tracking.ErrSubscribeFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, errInvalidLimit),
		errors.Is(err, ledger.ErrInvalidFilter),
		errors.Is(err, ledger.ErrInvalidPageSize),
		errors.Is(err, search.ErrUnrecognizedQuery),
		errors.Is(err, jsonfile.ErrInvalidPeriod):
		return http.StatusBadRequest
	case node.IsTransport(err):
		return http.StatusBadGateway
	case node.IsDomain(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseLimit(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return 0, errors.Wrapf(errInvalidLimit, "[%s]", value)
	}
	return min(limit, maxLimit), nil
}
