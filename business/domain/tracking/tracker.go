package tracking

import (
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/stream"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"sync"
)

const BufferSize = 50

var ErrChannelNotOpen = errors.New("event stream is not open")
var ErrSubscribeFailed = errors.New("sending subscribe request failed")

type Channel interface {
	IsOpen() bool
	SubscribeAccount(address string) bool
	UnsubscribeAccount(address string) bool
	InterceptAccountTransactions(fn func(stream.AccountTransactionEvent)) func()
}

type Snapshot struct {
	Enabled      bool                         `json:"enabled"`
	Address      string                       `json:"address,omitempty"`
	Transactions []entities.TransactionRecord `json:"transactions"`
}

// Tracker follows at most one account at a time and buffers its live
// transactions, newest first.
type Tracker struct {
	channel Channel
	logger  *zap.SugaredLogger

	mu              sync.Mutex
	enabled         bool
	address         string
	buffer          []entities.TransactionRecord
	cancelIntercept func()
}

func NewTracker(channel Channel, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		channel: channel,
		logger:  logger,
	}
}

// StartTracking switches tracking to address. Any previous subscription is
// released before the new one is requested.
func (t *Tracker) StartTracking(address string) error {
	if address == "" {
		return errors.New("empty address")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled && t.address == address {
		return nil
	}
	t.stopLocked()

	if !t.channel.IsOpen() {
		return ErrChannelNotOpen
	}
	if !t.channel.SubscribeAccount(address) {
		return ErrSubscribeFailed
	}
	t.enabled = true
	t.address = address
	t.buffer = nil
	t.cancelIntercept = t.channel.InterceptAccountTransactions(t.onAccountTransaction)
	t.logger.Infow("Tracking account.", "address", address)
	return nil
}

// StopTracking sends the unsubscribe request without waiting on its outcome.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if !t.enabled {
		return
	}
	if !t.channel.UnsubscribeAccount(t.address) {
		t.logger.Warnw("Unsubscribe request not sent.", "address", t.address)
	}
	if t.cancelIntercept != nil {
		t.cancelIntercept()
		t.cancelIntercept = nil
	}
	t.logger.Infow("Stopped tracking account.", "address", t.address)
	t.enabled = false
	t.address = ""
	t.buffer = nil
}

// Resubscribe renews the subscription after the channel reconnected.
func (t *Tracker) Resubscribe() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return false
	}
	if !t.channel.SubscribeAccount(t.address) {
		t.logger.Warnw("Resubscribing account failed.", "address", t.address)
		return false
	}
	return true
}

func (t *Tracker) onAccountTransaction(event stream.AccountTransactionEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || event.Account != t.address {
		return
	}

	tx := event.Transaction
	for i := range t.buffer {
		if t.buffer[i].Hash == tx.Hash {
			t.buffer[i] = t.buffer[i].Merge(tx)
			return
		}
	}
	buffer := make([]entities.TransactionRecord, 0, len(t.buffer)+1)
	buffer = append(buffer, tx)
	buffer = append(buffer, t.buffer...)
	if len(buffer) > BufferSize {
		buffer = buffer[:BufferSize]
	}
	t.buffer = buffer
}

func (t *Tracker) TrackedAddress() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address, t.enabled
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	txs := make([]entities.TransactionRecord, len(t.buffer))
	copy(txs, t.buffer)
	return Snapshot{Enabled: t.enabled, Address: t.address, Transactions: txs}
}
