package sync

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/business/domain/ledger"
	"github.com/amadeus-explorer/go-explorer/business/domain/tracking"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/node"
	"github.com/amadeus-explorer/go-explorer/external/stream"
	"github.com/amadeus-explorer/go-explorer/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"time"
)

type NodeClient interface {
	GetStats(ctx context.Context) (entities.ChainStats, error)
	GetTip(ctx context.Context) (entities.BlockSummary, error)
	GetEntriesByHeight(ctx context.Context, height uint64, withTxs bool) ([]node.BlockEntry, error)
	GetTransactionsInEntry(ctx context.Context, entryHash string) ([]entities.TransactionRecord, error)
}

type Config struct {
	RefreshInterval time.Duration
	BlockDepth      int // heights fetched back from the tip
	TxsPerBlock     int
	TxLimit         int
	NumMaxWorkers   int
	RequestTimeout  time.Duration
}

// ChainProcessor keeps the view in sync with the node. It polls on an
// interval, refreshes on demand and handles the event stream.
type ChainProcessor struct {
	client     NodeClient
	view       *ledger.View
	tracker    *tracking.Tracker
	metrics    *metrics.Metrics
	cfg        Config
	logger     *zap.SugaredLogger
	refreshDue chan struct{}
	refreshing atomic.Bool
	wasOpen    atomic.Bool
}

func NewChainProcessor(client NodeClient, view *ledger.View, tracker *tracking.Tracker, m *metrics.Metrics, cfg Config, logger *zap.SugaredLogger) *ChainProcessor {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.BlockDepth <= 0 {
		cfg.BlockDepth = 10
	}
	if cfg.TxsPerBlock <= 0 {
		cfg.TxsPerBlock = 5
	}
	if cfg.TxLimit <= 0 {
		cfg.TxLimit = 50
	}
	if cfg.NumMaxWorkers <= 0 {
		cfg.NumMaxWorkers = 4
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	return &ChainProcessor{
		client:     client,
		view:       view,
		tracker:    tracker,
		metrics:    m,
		cfg:        cfg,
		logger:     logger,
		refreshDue: make(chan struct{}, 1),
	}
}

// Synchronize refreshes once, then on every tick or requested refresh, until the context is done.
func (p *ChainProcessor) Synchronize(ctx context.Context) error {
	p.runRefresh(ctx, true)

	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.runRefresh(ctx, false)
		case <-p.refreshDue:
			p.runRefresh(ctx, true)
		}
	}
}

// RequestRefresh schedules a full refresh. Requests made while one is pending are merged.
func (p *ChainProcessor) RequestRefresh() {
	select {
	case p.refreshDue <- struct{}{}:
	default:
	}
}

func (p *ChainProcessor) runRefresh(ctx context.Context, forceBlocks bool) {
	if err := p.Refresh(ctx, forceBlocks); err != nil {
		p.metrics.IncRefreshErrors()
		p.logger.Warnw("Refresh failed.", "error", err)
	}
}

// Refresh pulls the stats and, if the height advanced or forced, the latest
// blocks and their transactions. On failure the view keeps its data. A call
// made while another refresh runs returns right away.
func (p *ChainProcessor) Refresh(ctx context.Context, forceBlocks bool) error {
	if !p.refreshing.CompareAndSwap(false, true) {
		p.logger.Debugw("Refresh already running.")
		return nil
	}
	defer p.refreshing.Store(false)

	statsCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	stats, err := p.client.GetStats(statsCtx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "getting stats")
	}
	p.metrics.SetChainStats(stats)
	advanced := p.view.IngestStatsSnapshot(stats)
	if !advanced && !forceBlocks {
		return nil
	}
	return p.refreshBlocks(ctx, p.tipHeight(ctx, stats.Height))
}

// tipHeight returns the higher of the stats height and the node's tip.
// The stats height is used when the tip cannot be fetched.
func (p *ChainProcessor) tipHeight(ctx context.Context, statsHeight uint64) uint64 {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	tip, err := p.client.GetTip(reqCtx)
	if err != nil {
		p.logger.Warnw("Fetching tip failed, using stats height.", "height", statsHeight, "error", err)
		return statsHeight
	}
	return max(statsHeight, tip.Height)
}

func (p *ChainProcessor) refreshBlocks(ctx context.Context, tip uint64) error {
	depth := min(uint64(p.cfg.BlockDepth), tip+1)
	results := make([][]node.BlockEntry, depth)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.NumMaxWorkers)
	var failed atomic.Int32
	for i := uint64(0); i < depth; i++ {
		height := tip - i
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(gctx, p.cfg.RequestTimeout)
			defer cancel()
			entries, err := p.client.GetEntriesByHeight(reqCtx, height, true)
			if err != nil {
				// skip the height, the next refresh will pick it up
				failed.Add(1)
				p.logger.Warnw("Fetching entries failed.", "height", height, "error", err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	if int(failed.Load()) == int(depth) {
		return errors.Errorf("fetching entries for heights [%d] to [%d] failed", tip-depth+1, tip)
	}

	var blocks []entities.BlockSummary
	var txs []entities.TransactionRecord
	for _, entries := range results { // highest first
		for _, entry := range entries {
			blocks = append(blocks, entry.Block)
			if len(txs) < p.cfg.TxLimit {
				txs = append(txs, p.blockTransactions(ctx, entry)...)
			}
		}
	}
	if len(txs) > p.cfg.TxLimit {
		txs = txs[:p.cfg.TxLimit]
	}

	p.view.IngestBlockBatch(blocks)
	p.metrics.AddIngestedBlocks(len(blocks))
	if len(txs) > 0 {
		p.view.IngestTransactionBatch(txs)
		p.metrics.AddIngestedTransactions(len(txs))
	}
	return nil
}

// blockTransactions returns at most TxsPerBlock transactions of an entry,
// asking the node if they were not embedded.
func (p *ChainProcessor) blockTransactions(ctx context.Context, entry node.BlockEntry) []entities.TransactionRecord {
	txs := entry.Transactions
	if len(txs) == 0 && entry.Block.TxCount > 0 {
		reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		fetched, err := p.client.GetTransactionsInEntry(reqCtx, entry.Block.Hash)
		if err != nil {
			p.logger.Warnw("Fetching entry transactions failed.", "entry", entry.Block.Hash, "error", err)
			return nil
		}
		txs = withBlockPosition(fetched, entry.Block)
	}
	if len(txs) > p.cfg.TxsPerBlock {
		txs = txs[:p.cfg.TxsPerBlock]
	}
	return txs
}

// withBlockPosition fills the block fields the entry lookup leaves empty.
func withBlockPosition(txs []entities.TransactionRecord, block entities.BlockSummary) []entities.TransactionRecord {
	for i := range txs {
		meta := entities.TxMetadata{}
		if txs[i].Metadata != nil {
			meta = *txs[i].Metadata
		}
		if meta.BlockHash == "" {
			meta.BlockHash = block.Hash
		}
		if meta.BlockHeight == 0 {
			meta.BlockHeight = block.Height
		}
		if meta.BlockSlot == 0 {
			meta.BlockSlot = block.Slot
		}
		txs[i].Metadata = &meta
	}
	return txs
}

func (p *ChainProcessor) OnStats(stats entities.ChainStats) {
	p.metrics.SetChainStats(stats)
	if p.view.IngestStatsSnapshot(stats) {
		p.RequestRefresh()
	}
}

func (p *ChainProcessor) OnEntry(event stream.EntryEvent) {
	p.view.IngestStreamedBlock(event.Block)
	p.metrics.AddIngestedBlocks(1)
	if len(event.Transactions) > 0 {
		p.view.IngestStreamedTransactions(event.Transactions)
		p.metrics.AddIngestedTransactions(len(event.Transactions))
	}
}

func (p *ChainProcessor) OnTransactions(txs []entities.TransactionRecord) {
	p.view.IngestStreamedTransactions(txs)
	p.metrics.AddIngestedTransactions(len(txs))
}

// HandleStateChange closes the gap after a reconnect: the view is refreshed
// and the tracked account subscribed again.
func (p *ChainProcessor) HandleStateChange(state stream.State) {
	if state != stream.StateOpen {
		return
	}
	if p.wasOpen.Swap(true) {
		p.logger.Infow("Event stream reopened, refreshing.")
		p.RequestRefresh()
	}
	p.tracker.Resubscribe()
}

// OpenAddress shows the feed of an address. Tracking of any other address ends.
func (p *ChainProcessor) OpenAddress(ctx context.Context, address string, filter ledger.Filter, pageSize int) error {
	if tracked, ok := p.tracker.TrackedAddress(); ok && tracked != address {
		p.tracker.StopTracking()
		p.metrics.SetTracking(false)
	}
	return p.view.LoadAddressFeed(ctx, address, filter, pageSize)
}

// CloseAddress leaves the address view, which ends its tracking too.
func (p *ChainProcessor) CloseAddress() {
	p.tracker.StopTracking()
	p.metrics.SetTracking(false)
	p.view.CloseAddressFeed()
}

func (p *ChainProcessor) MoreAddressTransactions(ctx context.Context, address string) error {
	return p.view.ContinueAddressFeed(ctx, address)
}

func (p *ChainProcessor) StartTracking(address string) error {
	if err := p.tracker.StartTracking(address); err != nil {
		return err
	}
	p.metrics.SetTracking(true)
	return nil
}

func (p *ChainProcessor) StopTracking() {
	p.tracker.StopTracking()
	p.metrics.SetTracking(false)
}
