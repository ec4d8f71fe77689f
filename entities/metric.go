package entities

import "encoding/json"

type MetricSample struct {
	Timestamp   int64       `json:"timestamp"` // epoch millis
	Date        string      `json:"date,omitempty"`
	Pflops      float64     `json:"pflops"`
	Epoch       uint64      `json:"epoch,omitempty"`
	Height      uint64      `json:"height"`
	Circulating json.Number `json:"circulating,omitempty"`
	TxsPerSec   float64     `json:"txsPerSec"`
}

type MetricSeries struct {
	Data []MetricSample `json:"data"`
}
