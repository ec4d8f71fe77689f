package node

import (
	"context"
	"encoding/json"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"testing"
)

func TestClient_GetStats(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"error":"ok","stats":{"height":500,"pflops":12.5,"circulating":"1000","txs_per_sec":1.5}}`))
	})

	stats, err := client.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), stats.Height)
	assert.Equal(t, 12.5, stats.Pflops)
	assert.Equal(t, json.Number("1000"), stats.Circulating)
}

func TestClient_GetStats_givenNoStats_thenParseError(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error":"ok"}`))

	_, err := client.GetStats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindParse, apiErr.Kind)
	assert.True(t, IsDomain(err))
}

func TestClient_GetRawStats_keepsMissingPflops(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"stats":{"height":1}}`))

	stats, err := client.GetRawStats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.Pflops)
}

func TestClient_GetEntriesByHeight(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain/height_with_txs/77", r.URL.Path)
		_, _ = w.Write([]byte(`{"error":"ok","entries":[
			{"hash":"b77","header_unpacked":{"height":77,"slot":1000,"signer":"s"},"txs":[{"hash":"t1","tx":{"signer":"a","nonce":1}}]},
			{"header_unpacked":{"height":77}}
		]}`))
	})

	entries, err := client.GetEntriesByHeight(context.Background(), 77, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b77", entries[0].Block.Hash)
	assert.Equal(t, uint32(1), entries[0].Block.TxCount)
	require.Len(t, entries[0].Transactions, 1)
	assert.Equal(t, "b77", entries[0].Transactions[0].Metadata.BlockHash)
	assert.Equal(t, uint64(77), entries[0].Transactions[0].Metadata.BlockHeight)
}

func TestClient_GetEntriesByHeight_withoutTxs(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain/height/78", r.URL.Path)
		_, _ = w.Write([]byte(`{"entries":[]}`))
	})

	entries, err := client.GetEntriesByHeight(context.Background(), 78, false)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_GetTip(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error":"ok","entry":{"hash":"tip","header_unpacked":{"height":900}}}`))

	tip, err := client.GetTip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.BlockSummary{Hash: "tip", Height: 900}, tip)
}

func TestClient_GetTransaction(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain/tx/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"error":"ok","hash":"abc","tx":{"signer":"s","nonce":5,"actions":[{"contract":"Coin","function":"transfer","args":["r","1"]}]},"result":{"error":"ok"},"metadata":{"entry_hash":"e1","entry_slot":9}}`))
	})

	tx, err := client.GetTransaction(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tx.Hash)
	assert.True(t, tx.IsComplete())
	assert.Equal(t, "e1", tx.Metadata.BlockHash)
}

func TestClient_GetTransaction_givenEmptyPayload_thenParseError(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error":"ok"}`))

	_, err := client.GetTransaction(context.Background(), "abc")
	assert.True(t, IsDomain(err))
}

func TestClient_GetTransactionsInEntry(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"txs":[{"hash":"t1","tx":{"signer":"a"}},{"hash":"t2","tx":{"signer":"b"},"metadata":{"entry_hash":"other"}}]}`))

	txs, err := client.GetTransactionsInEntry(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "e1", txs[0].Metadata.BlockHash)
	assert.Equal(t, "other", txs[1].Metadata.BlockHash)
}

func TestClient_GetAddressTransactions(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chain/tx_events_by_account/addr1", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "20", query.Get("limit"))
		assert.Equal(t, "20", query.Get("offset"))
		assert.Equal(t, "desc", query.Get("sort"))
		assert.Equal(t, "X", query.Get("cursor"))
		assert.Equal(t, "sent", query.Get("type"))
		_, _ = w.Write([]byte(`{"error":"ok","txs":[{"hash":"t1","tx":{"signer":"addr1"},"metadata":{"tx_event":"sent"}}],"cursor":"Y"}`))
	})

	cursor := "X"
	page, err := client.GetAddressTransactions(context.Background(), "addr1", entities.AddressQuery{Limit: 20, Offset: 20, Sort: "desc", Cursor: &cursor, Type: "sent"})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, entities.TxEventSent, page.Transactions[0].Metadata.Event)
	require.NotNil(t, page.Cursor)
	assert.Equal(t, "Y", *page.Cursor)
}

func TestDecodeCursor(t *testing.T) {
	assert.Nil(t, decodeCursor(nil))
	assert.Nil(t, decodeCursor(json.RawMessage(`null`)))
	assert.Nil(t, decodeCursor(json.RawMessage(`""`)))
	assert.Equal(t, "abc", *decodeCursor(json.RawMessage(`"abc"`)))
	assert.Equal(t, "1234", *decodeCursor(json.RawMessage(`1234`)))
}

func TestClient_GetRichList(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error":"ok","richlist":[{"pk":"a","float":"100.5"},{"pk":"","float":"1"},{"pk":"b","float":3}]}`))

	richList, err := client.GetRichList(context.Background())
	require.NoError(t, err)
	expected := []entities.RichListEntry{
		{Address: "a", Float: json.Number("100.5")},
		{Address: "b", Float: json.Number("3")},
	}
	assert.Empty(t, cmp.Diff(expected, richList))
}

func TestClient_GetEpochScore(t *testing.T) {
	client := newTestServer(t, respondWith(http.StatusOK, `{"error":"ok","scores":[["a",10],{"pk":"b","score":30},["broken"],["c",20]]}`))

	scores, err := client.GetEpochScore(context.Background())
	require.NoError(t, err)
	expected := []entities.ValidatorScore{
		{Address: "b", Score: 30},
		{Address: "c", Score: 20},
		{Address: "a", Score: 10},
	}
	assert.Equal(t, expected, scores)
}

func TestClient_GetBalances(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallet/balance_all/addr1", r.URL.Path)
		_, _ = w.Write([]byte(`{"error":"ok","balances":[{"symbol":"AMA","float":12.5,"flat":12500000000}]}`))
	})

	balances, err := client.GetBalances(context.Background(), "addr1")
	require.NoError(t, err)
	assert.Equal(t, []entities.Balance{{Symbol: "AMA", Float: json.Number("12.5"), Flat: json.Number("12500000000")}}, balances)
}
