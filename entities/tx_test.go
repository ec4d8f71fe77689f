package entities

import (
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func rawArgs(t *testing.T, args ...any) []json.RawMessage {
	var result []json.RawMessage
	for _, arg := range args {
		data, err := json.Marshal(arg)
		require.NoError(t, err)
		result = append(result, data)
	}
	return result
}

func TestTransactionRecord_Transfer(t *testing.T) {
	tx := TransactionRecord{
		Hash:   "tx-1",
		Action: Action{Contract: "Coin", Function: "transfer", Args: rawArgs(t, "receiver-pk", "1500000000")},
	}

	transfer, ok := tx.Transfer()
	require.True(t, ok)
	assert.Equal(t, "receiver-pk", transfer.Receiver)
	assert.Equal(t, "AMA", transfer.Symbol)
	assert.Equal(t, "1.5", FormatAmount(transfer.Amount))
}

func TestTransactionRecord_Transfer_givenSymbolAndNumericAmount(t *testing.T) {
	tx := TransactionRecord{
		Action: Action{Contract: "Coin", Function: "transfer", Args: rawArgs(t, "receiver-pk", 42000000000, "USDFAKE")},
	}

	transfer, ok := tx.Transfer()
	require.True(t, ok)
	assert.Equal(t, "USDFAKE", transfer.Symbol)
	assert.Equal(t, "42", FormatAmount(transfer.Amount))
}

func TestTransactionRecord_Transfer_givenOtherCall_thenFalse(t *testing.T) {
	tx := TransactionRecord{Action: Action{Contract: "Epoch", Function: "submit_sol", Args: rawArgs(t, "a", "b")}}
	_, ok := tx.Transfer()
	assert.False(t, ok)

	tx = TransactionRecord{Action: Action{Contract: "Coin", Function: "transfer", Args: rawArgs(t, "only-receiver")}}
	_, ok = tx.Transfer()
	assert.False(t, ok)

	tx = TransactionRecord{Action: Action{Contract: "Coin", Function: "transfer", Args: rawArgs(t, "receiver", "not-a-number")}}
	_, ok = tx.Transfer()
	assert.False(t, ok)
}

func TestTransactionRecord_Merge_keepsKnownDetail(t *testing.T) {
	full := TransactionRecord{
		Hash:     "tx-1",
		Signer:   "signer",
		Nonce:    7,
		Action:   Action{Contract: "Coin", Function: "transfer"},
		Result:   &ExecutionResult{Status: "ok"},
		Metadata: &TxMetadata{BlockHash: "b1", BlockHeight: 10, Event: TxEventSent},
	}
	partial := TransactionRecord{Hash: "tx-1", Signer: "signer"}

	merged := full.Merge(partial)
	assert.Equal(t, full, merged)
	assert.True(t, merged.IsComplete())

	enriched := partial.Merge(full)
	assert.Equal(t, full, enriched)
}

func TestTransactionRecord_Merge_keepsFeedEvent(t *testing.T) {
	fromFeed := TransactionRecord{Hash: "tx-1", Metadata: &TxMetadata{BlockHash: "b1", Event: TxEventReceived}}
	detail := TransactionRecord{Hash: "tx-1", Metadata: &TxMetadata{BlockHash: "b1", BlockHeight: 12}}

	merged := fromFeed.Merge(detail)
	require.NotNil(t, merged.Metadata)
	assert.Equal(t, TxEventReceived, merged.Metadata.Event)
	assert.Equal(t, uint64(12), merged.Metadata.BlockHeight)
}

func TestTransactionRecord_Merge_keepsKnownBlockPosition(t *testing.T) {
	streamed := TransactionRecord{Hash: "tx-1", Metadata: &TxMetadata{BlockHash: "e1", BlockHeight: 501, BlockSlot: 9000}}
	fromEntry := TransactionRecord{Hash: "tx-1", Result: &ExecutionResult{Status: "ok"}, Metadata: &TxMetadata{BlockHash: "e1"}}

	merged := streamed.Merge(fromEntry)
	require.NotNil(t, merged.Metadata)
	assert.Equal(t, TxMetadata{BlockHash: "e1", BlockHeight: 501, BlockSlot: 9000}, *merged.Metadata)
	assert.NotNil(t, merged.Result)
	assert.Equal(t, uint64(9000), streamed.Metadata.BlockSlot, "receiver is not modified")
}

func TestTransactionRecord_NonceTime(t *testing.T) {
	ts := time.Date(2025, time.October, 1, 12, 0, 0, 123, time.UTC)
	tx := TransactionRecord{Nonce: uint64(ts.UnixNano())}
	assert.Equal(t, ts, tx.NonceTime())
}
