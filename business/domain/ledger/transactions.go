package ledger

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"reflect"
	"slices"
)

// IngestTransactionBatch merges REST fetched transactions. New hashes are
// put in front in list order, known hashes are updated in place.
func (v *View) IngestTransactionBatch(txs []entities.TransactionRecord) {
	v.mu.Lock()
	_, changed := v.mergeTransactions(txs)
	v.mu.Unlock()
	if changed {
		v.notify(ChangeTransactions)
	}
}

// IngestStreamedTransactions merges streamed transactions and looks up the
// details of incomplete ones in the background. The list is updated right
// away with what is known.
func (v *View) IngestStreamedTransactions(txs []entities.TransactionRecord) {
	v.mu.Lock()
	added, changed := v.mergeTransactions(txs)
	v.mu.Unlock()
	if changed {
		v.notify(ChangeTransactions)
	}

	if v.fetcher == nil {
		return
	}
	for _, tx := range added {
		if !tx.IsComplete() {
			v.enrich(tx.Hash)
		}
	}
}

// mergeTransactions returns the newly added records. Caller holds the lock.
func (v *View) mergeTransactions(incoming []entities.TransactionRecord) ([]entities.TransactionRecord, bool) {
	index := make(map[string]int, len(v.txs))
	for i, tx := range v.txs {
		index[tx.Hash] = i
	}

	current := slices.Clone(v.txs)
	var added []entities.TransactionRecord
	seen := make(map[string]int)
	changed := false
	for _, tx := range incoming {
		if tx.Hash == "" {
			v.logger.Warnw("Skipping transaction without hash.")
			continue
		}
		if i, ok := index[tx.Hash]; ok {
			merged := current[i].Merge(tx)
			if !equalRecords(merged, current[i]) {
				current[i] = merged
				changed = true
			}
			continue
		}
		if i, ok := seen[tx.Hash]; ok { // duplicate within the same list
			added[i] = added[i].Merge(tx)
			continue
		}
		seen[tx.Hash] = len(added)
		added = append(added, tx)
	}

	if len(added) > 0 {
		changed = true
		current = append(slices.Clone(added), current...)
	}
	if len(current) > v.cfg.TxWindow {
		current = current[:v.cfg.TxWindow]
	}
	v.txs = current
	return added, changed
}

func (v *View) enrich(hash string) {
	v.enrichWg.Add(1)
	go func() {
		defer v.enrichWg.Done()
		if err := v.enrichSem.Acquire(v.ctx, 1); err != nil {
			return
		}
		defer v.enrichSem.Release(1)

		ctx, cancel := context.WithTimeout(v.ctx, v.cfg.DetailTimeout)
		defer cancel()
		detail, err := v.fetcher.GetTransaction(ctx, hash)
		if err != nil {
			v.logger.Warnw("Fetching transaction detail failed.", "hash", hash, "error", err)
			return
		}
		if detail.Hash == "" {
			detail.Hash = hash
		}
		if !v.ApplyTransactionDetail(detail) {
			v.logger.Debugw("Dropping detail of evicted transaction.", "hash", hash)
		}
	}()
}

// ApplyTransactionDetail merges a looked up detail into the window. It
// returns false, and changes nothing, if the transaction is no longer present.
func (v *View) ApplyTransactionDetail(detail entities.TransactionRecord) bool {
	v.mu.Lock()
	i := slices.IndexFunc(v.txs, func(tx entities.TransactionRecord) bool { return tx.Hash == detail.Hash })
	if i < 0 {
		v.mu.Unlock()
		return false
	}
	updated := slices.Clone(v.txs)
	updated[i] = updated[i].Merge(detail)
	v.txs = updated
	v.mu.Unlock()

	v.notify(ChangeTransactions)
	return true
}

// LatestTransactions returns up to limit transactions in discovery order. A limit <= 0 returns the whole window.
func (v *View) LatestTransactions(limit int) []entities.TransactionRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	if limit <= 0 || limit > len(v.txs) {
		limit = len(v.txs)
	}
	result := make([]entities.TransactionRecord, limit)
	copy(result, v.txs)
	return result
}

func equalRecords(a, b entities.TransactionRecord) bool {
	return reflect.DeepEqual(a, b)
}
