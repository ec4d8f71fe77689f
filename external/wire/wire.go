// Package wire holds the JSON shapes used by the chain node on both its REST
// and streaming surfaces, and their conversion into entities.
package wire

import (
	"encoding/json"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/pkg/errors"
	"strconv"
)

type Stats struct {
	Height      uint64      `json:"height"`
	Circulating json.Number `json:"circulating"`
	Pflops      *float64    `json:"pflops"`
	TxsPerSec   float64     `json:"txs_per_sec"`
	Burned      json.Number `json:"burned"`
}

func (s Stats) ToChainStats() entities.ChainStats {
	stats := entities.ChainStats{
		Height:      s.Height,
		Circulating: s.Circulating,
		TxsPerSec:   s.TxsPerSec,
		Burned:      s.Burned,
	}
	if s.Pflops != nil {
		stats.Pflops = *s.Pflops
	}
	return stats
}

type Header struct {
	Height   uint64 `json:"height"`
	Slot     uint64 `json:"slot"`
	PrevSlot int64  `json:"prev_slot"`
	PrevHash string `json:"prev_hash"`
	Signer   string `json:"signer"`
}

type Consensus struct {
	Score *float64 `json:"score"`
}

type Entry struct {
	Hash      string            `json:"hash"`
	Header    Header            `json:"header_unpacked"`
	TxCount   *uint32           `json:"tx_count"`
	Txs       []json.RawMessage `json:"txs"`
	Consensus *Consensus        `json:"consensus"`
}

func (e Entry) ToBlockSummary() (entities.BlockSummary, error) {
	if e.Hash == "" {
		return entities.BlockSummary{}, entities.ErrEmptyHash
	}
	block := entities.BlockSummary{
		Hash:     e.Hash,
		Height:   e.Header.Height,
		Slot:     e.Header.Slot,
		PrevHash: e.Header.PrevHash,
		Signer:   e.Header.Signer,
		TxCount:  uint32(len(e.Txs)),
	}
	if e.Header.PrevSlot > 0 { // genesis reports -1
		block.PrevSlot = uint64(e.Header.PrevSlot)
	}
	if e.TxCount != nil {
		block.TxCount = *e.TxCount
	}
	if e.Consensus != nil {
		block.ConsensusScore = e.Consensus.Score
	}
	return block, nil
}

// Transactions decodes the embedded transactions and attaches the containing block.
func (e Entry) Transactions() ([]entities.TransactionRecord, int) {
	txs, skipped := DecodeTransactions(e.Txs)
	for i := range txs {
		meta := entities.TxMetadata{}
		if txs[i].Metadata != nil {
			meta = *txs[i].Metadata
		}
		meta.BlockHash = e.Hash
		meta.BlockHeight = e.Header.Height
		meta.BlockSlot = e.Header.Slot
		txs[i].Metadata = &meta
	}
	return txs, skipped
}

type Action struct {
	Contract string            `json:"contract"`
	Function string            `json:"function"`
	Args     []json.RawMessage `json:"args"`
}

type TxBody struct {
	Signer  string      `json:"signer"`
	Nonce   json.Number `json:"nonce"`
	Actions []Action    `json:"actions"`
}

type Result struct {
	Error    string            `json:"error"`
	ExecUsed json.Number       `json:"exec_used"`
	Logs     []json.RawMessage `json:"logs"`
}

type Metadata struct {
	EntryHash   string `json:"entry_hash"`
	EntryHeight uint64 `json:"entry_height"`
	EntrySlot   uint64 `json:"entry_slot"`
	TxEvent     string `json:"tx_event"`
}

type Tx struct {
	Hash     string    `json:"hash"`
	Tx       TxBody    `json:"tx"`
	Result   *Result   `json:"result"`
	Metadata *Metadata `json:"metadata"`
}

func (t Tx) ToTransactionRecord() (entities.TransactionRecord, error) {
	if t.Hash == "" {
		return entities.TransactionRecord{}, entities.ErrEmptyHash
	}
	record := entities.TransactionRecord{
		Hash:   t.Hash,
		Signer: t.Tx.Signer,
	}
	if t.Tx.Nonce != "" {
		nonce, err := strconv.ParseUint(t.Tx.Nonce.String(), 10, 64)
		if err != nil {
			return entities.TransactionRecord{}, errors.Wrapf(err, "parsing nonce of tx [%s]", t.Hash)
		}
		record.Nonce = nonce
	}
	if len(t.Tx.Actions) > 0 {
		action := t.Tx.Actions[0]
		record.Action = entities.Action{Contract: action.Contract, Function: action.Function, Args: action.Args}
	}
	if t.Result != nil {
		result := entities.ExecutionResult{Status: t.Result.Error, Logs: t.Result.Logs}
		if used, err := strconv.ParseUint(t.Result.ExecUsed.String(), 10, 64); err == nil {
			result.GasUsed = used
		}
		record.Result = &result
	}
	if t.Metadata != nil {
		record.Metadata = &entities.TxMetadata{
			BlockHash:   t.Metadata.EntryHash,
			BlockHeight: t.Metadata.EntryHeight,
			BlockSlot:   t.Metadata.EntrySlot,
			Event:       t.Metadata.TxEvent,
		}
	}
	return record, nil
}

func DecodeTransaction(raw json.RawMessage) (entities.TransactionRecord, error) {
	var tx Tx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return entities.TransactionRecord{}, errors.Wrap(err, "unmarshalling transaction")
	}
	return tx.ToTransactionRecord()
}

// DecodeTransactions skips records that fail to decode and returns how many were skipped.
func DecodeTransactions(items []json.RawMessage) ([]entities.TransactionRecord, int) {
	result := make([]entities.TransactionRecord, 0, len(items))
	skipped := 0
	for _, item := range items {
		tx, err := DecodeTransaction(item)
		if err != nil {
			skipped++
			continue
		}
		result = append(result, tx)
	}
	return result, skipped
}
