package ledger

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"sync"
	"time"
)

type ChangeKind int

const (
	ChangeStats ChangeKind = iota
	ChangeBlocks
	ChangeTransactions
	ChangeAddressFeed
)

type Change struct {
	Kind ChangeKind
}

type TransactionFetcher interface {
	GetTransaction(ctx context.Context, id string) (entities.TransactionRecord, error)
}

type AddressSource interface {
	GetAddressTransactions(ctx context.Context, address string, query entities.AddressQuery) (entities.AddressPage, error)
}

type Config struct {
	BlockWindow      int
	TxWindow         int
	DetailTimeout    time.Duration
	MaxDetailFetches int64
}

func DefaultConfig() Config {
	return Config{
		BlockWindow:      50,
		TxWindow:         50,
		DetailTimeout:    10 * time.Second,
		MaxDetailFetches: 8,
	}
}

// View is the reconciled in-memory projection of the chain. All merges are
// idempotent and independent of the order REST and stream data arrive in.
// No lock is held across network calls.
type View struct {
	cfg     Config
	fetcher TransactionFetcher
	source  AddressSource
	logger  *zap.SugaredLogger

	mu         sync.Mutex
	stats      *entities.ChainStats
	blocks     []entities.BlockSummary
	txs        []entities.TransactionRecord
	feed       *AddressFeed
	generation uint64
	feedBusy   bool

	ctx       context.Context
	cancel    context.CancelFunc
	enrichSem *semaphore.Weighted
	enrichWg  sync.WaitGroup

	observersMu sync.Mutex
	nextID      int
	observers   map[int]func(Change)
}

func NewView(cfg Config, fetcher TransactionFetcher, source AddressSource, logger *zap.SugaredLogger) *View {
	defaults := DefaultConfig()
	if cfg.BlockWindow <= 0 {
		cfg.BlockWindow = defaults.BlockWindow
	}
	if cfg.TxWindow <= 0 {
		cfg.TxWindow = defaults.TxWindow
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = defaults.DetailTimeout
	}
	if cfg.MaxDetailFetches <= 0 {
		cfg.MaxDetailFetches = defaults.MaxDetailFetches
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		cfg:       cfg,
		fetcher:   fetcher,
		source:    source,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enrichSem: semaphore.NewWeighted(cfg.MaxDetailFetches),
		observers: make(map[int]func(Change)),
	}
}

// Close stops pending detail lookups and waits for them to return.
func (v *View) Close() {
	v.cancel()
	v.enrichWg.Wait()
}

// Wait blocks until all detail lookups started so far are done.
func (v *View) Wait() {
	v.enrichWg.Wait()
}

// Subscribe registers fn for every change of the view. Observers are
// called outside the view lock and may read snapshots.
func (v *View) Subscribe(fn func(Change)) func() {
	v.observersMu.Lock()
	defer v.observersMu.Unlock()
	id := v.nextID
	v.nextID++
	v.observers[id] = fn
	return func() {
		v.observersMu.Lock()
		defer v.observersMu.Unlock()
		delete(v.observers, id)
	}
}

func (v *View) notify(kind ChangeKind) {
	v.observersMu.Lock()
	observers := make([]func(Change), 0, len(v.observers))
	for _, fn := range v.observers {
		observers = append(observers, fn)
	}
	v.observersMu.Unlock()
	for _, fn := range observers {
		fn(Change{Kind: kind})
	}
}

// IngestStatsSnapshot replaces the stats and reports whether the height
// advanced. The first snapshot always counts as an advance.
func (v *View) IngestStatsSnapshot(stats entities.ChainStats) bool {
	v.mu.Lock()
	advanced := v.stats == nil || stats.Height > v.stats.Height
	v.stats = &stats
	v.mu.Unlock()

	v.notify(ChangeStats)
	return advanced
}

func (v *View) Stats() (entities.ChainStats, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stats == nil {
		return entities.ChainStats{}, false
	}
	return *v.stats, true
}
