package entities

import "encoding/json"

const EpochLength = 100_000

// ChainStats is replaced as a whole on every stats event or poll.
type ChainStats struct {
	Height      uint64      `json:"height"`
	Circulating json.Number `json:"circulating"`
	Pflops      float64     `json:"pflops"`
	TxsPerSec   float64     `json:"txsPerSec"`
	Burned      json.Number `json:"burned,omitempty"`
}

func (s ChainStats) Epoch() uint64 {
	return s.Height / EpochLength
}
