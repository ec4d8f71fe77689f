package stream

import (
	"encoding/json"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/wire"
	"github.com/pkg/errors"
)

const (
	OpStats       = "event_stats"
	OpEntry       = "event_entry"
	OpTxs         = "event_txs"
	OpAccountTx   = "event_account_tx"
	OpSubscribe   = "subscribe_account"
	OpUnsubscribe = "unsubscribe_account"
)

// Event is one decoded inbound frame. The set of implementations is closed.
type Event interface {
	isEvent()
}

type StatsEvent struct {
	Stats entities.ChainStats
}

type EntryEvent struct {
	Block        entities.BlockSummary
	Transactions []entities.TransactionRecord
}

type TransactionsEvent struct {
	Transactions []entities.TransactionRecord
	Skipped      int
}

type AccountTransactionEvent struct {
	Account     string
	Transaction entities.TransactionRecord
}

// UnknownEvent carries frames with an op this client does not handle.
type UnknownEvent struct {
	Op string
}

func (StatsEvent) isEvent()              {}
func (EntryEvent) isEvent()              {}
func (TransactionsEvent) isEvent()       {}
func (AccountTransactionEvent) isEvent() {}
func (UnknownEvent) isEvent()            {}

type frame struct {
	Op      string            `json:"op"`
	Stats   *wire.Stats       `json:"stats"`
	Entry   *wire.Entry       `json:"entry"`
	Txs     []json.RawMessage `json:"txs"`
	Account string            `json:"account"`
	Tx      json.RawMessage   `json:"tx"`
}

type controlFrame struct {
	Op      string `json:"op"`
	Account string `json:"account"`
}

func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "unmarshalling frame")
	}
	switch f.Op {
	case OpStats:
		if f.Stats == nil {
			return nil, errors.Errorf("frame [%s] without stats", f.Op)
		}
		return StatsEvent{Stats: f.Stats.ToChainStats()}, nil
	case OpEntry:
		if f.Entry == nil {
			return nil, errors.Errorf("frame [%s] without entry", f.Op)
		}
		block, err := f.Entry.ToBlockSummary()
		if err != nil {
			return nil, errors.Wrapf(err, "converting entry of frame [%s]", f.Op)
		}
		txs, _ := f.Entry.Transactions()
		return EntryEvent{Block: block, Transactions: txs}, nil
	case OpTxs:
		txs, skipped := wire.DecodeTransactions(f.Txs)
		return TransactionsEvent{Transactions: txs, Skipped: skipped}, nil
	case OpAccountTx:
		if f.Account == "" || len(f.Tx) == 0 {
			return nil, errors.Errorf("frame [%s] without account or tx", f.Op)
		}
		tx, err := wire.DecodeTransaction(f.Tx)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding tx of frame [%s]", f.Op)
		}
		return AccountTransactionEvent{Account: f.Account, Transaction: tx}, nil
	default:
		return UnknownEvent{Op: f.Op}, nil
	}
}
