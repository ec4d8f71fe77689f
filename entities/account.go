package entities

import (
	"encoding/json"
	"strconv"
)

type Balance struct {
	Symbol string      `json:"symbol"`
	Float  json.Number `json:"float"`
	Flat   json.Number `json:"flat,omitempty"`
}

type RichListEntry struct {
	Address string      `json:"address"`
	Float   json.Number `json:"float"`
}

type RichListSummary struct {
	Holders         int     `json:"holders"`
	TotalHeld       float64 `json:"totalHeld"`
	Top10Percentage float64 `json:"top10Percentage"`
}

type ValidatorScore struct {
	Address string  `json:"address"`
	Score   float64 `json:"score"`
}

// SummarizeRichList expects entries ordered by balance descending, as the node returns them.
func SummarizeRichList(entries []RichListEntry) RichListSummary {
	summary := RichListSummary{Holders: len(entries)}
	var top10 float64
	for i, entry := range entries {
		value, err := strconv.ParseFloat(entry.Float.String(), 64)
		if err != nil {
			continue
		}
		summary.TotalHeld += value
		if i < 10 {
			top10 += value
		}
	}
	if summary.TotalHeld > 0 {
		summary.Top10Percentage = top10 / summary.TotalHeld * 100
	}
	return summary
}
