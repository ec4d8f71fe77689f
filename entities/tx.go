package entities

import (
	"encoding/json"
	"github.com/holiman/uint256"
	"time"
)

const (
	TxEventSent     = "sent"
	TxEventReceived = "recv"
)

const (
	transferContract = "Coin"
	transferFunction = "transfer"
	defaultSymbol    = "AMA"
)

type TransactionRecord struct {
	Hash     string           `json:"hash"`
	Signer   string           `json:"signer"`
	Nonce    uint64           `json:"nonce"`
	Action   Action           `json:"action"`
	Result   *ExecutionResult `json:"result,omitempty"`
	Metadata *TxMetadata      `json:"metadata,omitempty"`
}

type Action struct {
	Contract string            `json:"contract"`
	Function string            `json:"function"`
	Args     []json.RawMessage `json:"args"`
}

type ExecutionResult struct {
	Status  string            `json:"status"`
	GasUsed uint64            `json:"gasUsed"`
	Logs    []json.RawMessage `json:"logs,omitempty"`
}

type TxMetadata struct {
	BlockHash   string `json:"blockHash,omitempty"`
	BlockHeight uint64 `json:"blockHeight,omitempty"`
	BlockSlot   uint64 `json:"blockSlot,omitempty"`
	Event       string `json:"event,omitempty"`
}

type Transfer struct {
	Receiver string
	Amount   *uint256.Int
	Symbol   string
}

// IsComplete reports whether the record carries the execution result and
// the containing block, i.e. needs no detail lookup.
func (tx TransactionRecord) IsComplete() bool {
	return tx.Result != nil && tx.Metadata != nil
}

// Merge returns tx updated with the populated fields of newer. Optional
// fields already known are never cleared by a poorer record.
func (tx TransactionRecord) Merge(newer TransactionRecord) TransactionRecord {
	merged := tx
	if newer.Signer != "" {
		merged.Signer = newer.Signer
	}
	if newer.Nonce != 0 {
		merged.Nonce = newer.Nonce
	}
	if newer.Action.Contract != "" || newer.Action.Function != "" {
		merged.Action = newer.Action
	}
	if newer.Result != nil {
		merged.Result = newer.Result
	}
	if newer.Metadata != nil {
		meta := newer.Metadata.merge(tx.Metadata)
		merged.Metadata = &meta
	}
	return merged
}

// merge returns m with its zero fields taken from known.
func (m TxMetadata) merge(known *TxMetadata) TxMetadata {
	if known == nil {
		return m
	}
	if m.BlockHash == "" {
		m.BlockHash = known.BlockHash
	}
	if m.BlockHeight == 0 {
		m.BlockHeight = known.BlockHeight
	}
	if m.BlockSlot == 0 {
		m.BlockSlot = known.BlockSlot
	}
	if m.Event == "" {
		m.Event = known.Event
	}
	return m
}

// NonceTime interprets the nonce as nanoseconds since the unix epoch. Display only.
func (tx TransactionRecord) NonceTime() time.Time {
	return time.Unix(0, int64(tx.Nonce)).UTC()
}

func (tx TransactionRecord) IsTransfer() bool {
	return tx.Action.Contract == transferContract && tx.Action.Function == transferFunction
}

// Transfer decodes the arguments of a coin transfer: receiver, atomic amount
// and an optional symbol.
func (tx TransactionRecord) Transfer() (Transfer, bool) {
	if !tx.IsTransfer() || len(tx.Action.Args) < 2 {
		return Transfer{}, false
	}
	receiver, ok := argString(tx.Action.Args[0])
	if !ok {
		return Transfer{}, false
	}
	rawAmount, ok := argString(tx.Action.Args[1])
	if !ok {
		return Transfer{}, false
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return Transfer{}, false
	}
	symbol := defaultSymbol
	if len(tx.Action.Args) > 2 {
		if s, ok := argString(tx.Action.Args[2]); ok && s != "" {
			symbol = s
		}
	}
	return Transfer{Receiver: receiver, Amount: amount, Symbol: symbol}, true
}

// argString accepts both string and number arguments.
func argString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
