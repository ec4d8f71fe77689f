package ledger

import (
	"github.com/amadeus-explorer/go-explorer/entities"
	"slices"
)

func (v *View) IngestBlockBatch(blocks []entities.BlockSummary) {
	v.mu.Lock()
	changed := v.mergeBlocks(blocks)
	v.mu.Unlock()
	if changed {
		v.notify(ChangeBlocks)
	}
}

func (v *View) IngestStreamedBlock(block entities.BlockSummary) {
	v.IngestBlockBatch([]entities.BlockSummary{block})
}

// mergeBlocks unions by hash, orders by height descending (hash ascending
// on equal height) and truncates to the window. Caller holds the lock.
func (v *View) mergeBlocks(incoming []entities.BlockSummary) bool {
	merged := slices.Clone(v.blocks)
	index := make(map[string]int, len(merged)+len(incoming))
	for i, block := range merged {
		index[block.Hash] = i
	}

	for _, block := range incoming {
		if block.Hash == "" {
			v.logger.Warnw("Skipping block without hash.", "height", block.Height)
			continue
		}
		i, ok := index[block.Hash]
		if !ok {
			index[block.Hash] = len(merged)
			merged = append(merged, block)
			continue
		}
		// same block, keep the richer data
		if block.TxCount > merged[i].TxCount {
			merged[i].TxCount = block.TxCount
		}
		merged[i].ConsensusScore = maxScore(merged[i].ConsensusScore, block.ConsensusScore)
	}

	slices.SortFunc(merged, compareBlocks)
	if len(merged) > v.cfg.BlockWindow {
		merged = merged[:v.cfg.BlockWindow]
	}

	changed := !slices.EqualFunc(merged, v.blocks, sameBlock)
	v.blocks = merged
	return changed
}

func compareBlocks(a, b entities.BlockSummary) int {
	switch {
	case a.Height > b.Height:
		return -1
	case a.Height < b.Height:
		return 1
	case a.Hash < b.Hash:
		return -1
	case a.Hash > b.Hash:
		return 1
	default:
		return 0
	}
}

// maxScore keeps the higher of two scores so the result does not depend on arrival order.
func maxScore(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil || *a >= *b:
		return a
	default:
		return b
	}
}

func sameBlock(a, b entities.BlockSummary) bool {
	return a.Hash == b.Hash && a.TxCount == b.TxCount && sameScore(a.ConsensusScore, b.ConsensusScore)
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// LatestBlocks returns up to limit blocks, newest first. A limit <= 0 returns the whole window.
func (v *View) LatestBlocks(limit int) []entities.BlockSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	if limit <= 0 || limit > len(v.blocks) {
		limit = len(v.blocks)
	}
	result := make([]entities.BlockSummary, limit)
	copy(result, v.blocks)
	return result
}
