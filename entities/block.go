package entities

// BlockSummary is immutable once observed, except for TxCount which may be
// filled in by a richer record of the same block.
type BlockSummary struct {
	Hash           string   `json:"hash"`
	Height         uint64   `json:"height"`
	Slot           uint64   `json:"slot"`
	PrevSlot       uint64   `json:"prevSlot"`
	PrevHash       string   `json:"prevHash"`
	Signer         string   `json:"signer"`
	TxCount        uint32   `json:"txCount"`
	ConsensusScore *float64 `json:"consensusScore,omitempty"`
}

func (b BlockSummary) Epoch() uint64 {
	return b.Height / EpochLength
}
