package search

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/node"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

var ErrUnrecognizedQuery = errors.New("unrecognized query format")

type Lookup interface {
	GetEntriesByHeight(ctx context.Context, height uint64, withTxs bool) ([]node.BlockEntry, error)
	GetEntry(ctx context.Context, hash string) (node.BlockEntry, error)
	GetTransactionsInEntry(ctx context.Context, entryHash string) ([]entities.TransactionRecord, error)
	GetTransaction(ctx context.Context, id string) (entities.TransactionRecord, error)
	GetBalances(ctx context.Context, address string) ([]entities.Balance, error)
}

type Result struct {
	Kind        string                      `json:"kind"`
	Query       string                      `json:"query"`
	Entries     []node.BlockEntry           `json:"entries,omitempty"`
	Transaction *entities.TransactionRecord `json:"transaction,omitempty"`
	Address     string                      `json:"address,omitempty"`
	Balances    []entities.Balance          `json:"balances,omitempty"`
}

type Resolver struct {
	lookup Lookup
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

func (r *Resolver) Resolve(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	switch Classify(query) {
	case IntentHeight:
		return r.resolveHeight(ctx, query)
	case IntentHash:
		return r.resolveHash(ctx, query)
	case IntentAddress:
		balances, err := r.lookup.GetBalances(ctx, query)
		if err != nil {
			return nil, errors.Wrap(err, "getting balances")
		}
		return &Result{Kind: "address", Query: query, Address: query, Balances: balances}, nil
	default:
		return nil, ErrUnrecognizedQuery
	}
}

func (r *Resolver) resolveHeight(ctx context.Context, query string) (*Result, error) {
	height, err := strconv.ParseUint(query, 10, 64)
	if err != nil {
		return nil, ErrUnrecognizedQuery
	}
	entries, err := r.lookup.GetEntriesByHeight(ctx, height, true)
	if err != nil {
		return nil, errors.Wrapf(err, "getting entries at height [%d]", height)
	}
	if len(entries) == 0 {
		return nil, errors.Wrapf(entities.ErrNotFound, "no entry at height [%d]", height)
	}
	return &Result{Kind: "height", Query: query, Entries: entries}, nil
}

// resolveHash tries the transaction first and falls back to the entry.
func (r *Resolver) resolveHash(ctx context.Context, hash string) (*Result, error) {
	tx, err := r.lookup.GetTransaction(ctx, hash)
	if err == nil {
		return &Result{Kind: "transaction", Query: hash, Transaction: &tx}, nil
	}
	if node.IsTransport(err) {
		return nil, errors.Wrap(err, "getting transaction")
	}

	entry, entryErr := r.lookup.GetEntry(ctx, hash)
	if entryErr != nil {
		if node.IsTransport(entryErr) {
			return nil, errors.Wrap(entryErr, "getting entry")
		}
		return nil, errors.Wrapf(entities.ErrNotFound, "no transaction or entry [%s]", hash)
	}
	if entry.Block.TxCount > 0 && len(entry.Transactions) == 0 {
		txs, err := r.lookup.GetTransactionsInEntry(ctx, entry.Block.Hash)
		if err != nil {
			return nil, errors.Wrapf(err, "getting transactions in entry [%s]", entry.Block.Hash)
		}
		entry.Transactions = txs
	}
	return &Result{Kind: "block", Query: hash, Entries: []node.BlockEntry{entry}}, nil
}
