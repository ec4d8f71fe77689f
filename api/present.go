package api

import (
	"github.com/amadeus-explorer/go-explorer/entities"
	"time"
)

type blockView struct {
	entities.BlockSummary
	Epoch uint64    `json:"epoch"`
	Time  time.Time `json:"time"`
	Ago   *float64  `json:"ago,omitempty"` // seconds behind the newest known block
}

type transferView struct {
	Receiver     string `json:"receiver"`
	Amount       string `json:"amount"`
	AmountAtomic string `json:"amountAtomic"`
	Symbol       string `json:"symbol"`
}

type transactionView struct {
	entities.TransactionRecord
	Time     time.Time     `json:"time"`
	Ago      *float64      `json:"ago,omitempty"`
	Transfer *transferView `json:"transfer,omitempty"`
}

// agoSeconds is nil when either slot is unknown.
func agoSeconds(slot, current uint64) *float64 {
	if slot == 0 || current == 0 {
		return nil
	}
	seconds := entities.SlotsAgo(slot, current).Seconds()
	return &seconds
}

func presentBlocks(blocks []entities.BlockSummary, currentSlot uint64) []blockView {
	views := make([]blockView, 0, len(blocks))
	for _, block := range blocks {
		views = append(views, blockView{
			BlockSummary: block,
			Epoch:        block.Epoch(),
			Time:         entities.SlotTime(block.Slot),
			Ago:          agoSeconds(block.Slot, currentSlot),
		})
	}
	return views
}

func presentTransactions(txs []entities.TransactionRecord, currentSlot uint64) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		view := transactionView{TransactionRecord: tx, Time: tx.NonceTime()}
		if tx.Metadata != nil {
			view.Ago = agoSeconds(tx.Metadata.BlockSlot, currentSlot)
		}
		if transfer, ok := tx.Transfer(); ok {
			view.Transfer = &transferView{
				Receiver:     transfer.Receiver,
				Amount:       entities.FormatAmount(transfer.Amount),
				AmountAtomic: transfer.Amount.Dec(),
				Symbol:       transfer.Symbol,
			}
		}
		views = append(views, view)
	}
	return views
}
