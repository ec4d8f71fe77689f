package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/external/wire"
	"log"
	"net/url"
	"sort"
	"strconv"
)

// BlockEntry is a block together with the transactions the node embedded in it.
type BlockEntry struct {
	Block        entities.BlockSummary        `json:"block"`
	Transactions []entities.TransactionRecord `json:"transactions"`
}

func (c *Client) GetStats(ctx context.Context) (entities.ChainStats, error) {
	stats, err := c.getStats(ctx)
	if err != nil {
		return entities.ChainStats{}, err
	}
	return stats.ToChainStats(), nil
}

// GetRawStats keeps the optional fields of the stats payload, so callers can
// distinguish a missing value from zero.
func (c *Client) GetRawStats(ctx context.Context) (wire.Stats, error) {
	return c.getStats(ctx)
}

func (c *Client) getStats(ctx context.Context) (wire.Stats, error) {
	const path = "/chain/stats"
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return wire.Stats{}, err
	}
	var response struct {
		Stats *wire.Stats `json:"stats"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return wire.Stats{}, err
	}
	if response.Stats == nil {
		return wire.Stats{}, missingField(path, "stats")
	}
	return *response.Stats, nil
}

func (c *Client) GetTip(ctx context.Context) (entities.BlockSummary, error) {
	const path = "/chain/tip"
	entry, err := c.getEntry(ctx, path)
	if err != nil {
		return entities.BlockSummary{}, err
	}
	return entry.Block, nil
}

func (c *Client) GetEntry(ctx context.Context, hash string) (BlockEntry, error) {
	return c.getEntry(ctx, "/chain/entry/"+url.PathEscape(hash))
}

func (c *Client) getEntry(ctx context.Context, path string) (BlockEntry, error) {
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return BlockEntry{}, err
	}
	var response struct {
		Entry *wire.Entry `json:"entry"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return BlockEntry{}, err
	}
	if response.Entry == nil {
		return BlockEntry{}, missingField(path, "entry")
	}
	block, err := response.Entry.ToBlockSummary()
	if err != nil {
		return BlockEntry{}, &APIError{Kind: KindParse, Path: path, Message: "converting entry", Err: err}
	}
	txs, skipped := response.Entry.Transactions()
	logSkipped(path, skipped)
	return BlockEntry{Block: block, Transactions: txs}, nil
}

// GetEntriesByHeight returns all entries the node knows at a height. With
// withTxs the embedded transactions are returned too.
func (c *Client) GetEntriesByHeight(ctx context.Context, height uint64, withTxs bool) ([]BlockEntry, error) {
	path := fmt.Sprintf("/chain/height/%d", height)
	if withTxs {
		path = fmt.Sprintf("/chain/height_with_txs/%d", height)
	}
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		Entries []wire.Entry `json:"entries"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return nil, err
	}

	entries := make([]BlockEntry, 0, len(response.Entries))
	skipped := 0
	for _, entry := range response.Entries {
		block, err := entry.ToBlockSummary()
		if err != nil {
			skipped++
			continue
		}
		txs, skippedTxs := entry.Transactions()
		skipped += skippedTxs
		entries = append(entries, BlockEntry{Block: block, Transactions: txs})
	}
	logSkipped(path, skipped)
	return entries, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (entities.TransactionRecord, error) {
	path := "/chain/tx/" + url.PathEscape(id)
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return entities.TransactionRecord{}, err
	}
	var tx wire.Tx
	if err := decodePayload(path, payload, &tx); err != nil {
		return entities.TransactionRecord{}, err
	}
	if tx.Tx.Signer == "" {
		return entities.TransactionRecord{}, missingField(path, "tx")
	}
	if tx.Hash == "" {
		tx.Hash = id
	}
	record, err := tx.ToTransactionRecord()
	if err != nil {
		return entities.TransactionRecord{}, &APIError{Kind: KindParse, Path: path, Message: "converting transaction", Err: err}
	}
	return record, nil
}

func (c *Client) GetTransactionsInEntry(ctx context.Context, entryHash string) ([]entities.TransactionRecord, error) {
	path := "/chain/txs_in_entry/" + url.PathEscape(entryHash)
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		Txs []json.RawMessage `json:"txs"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return nil, err
	}
	txs, skipped := wire.DecodeTransactions(response.Txs)
	logSkipped(path, skipped)
	for i := range txs {
		if txs[i].Metadata == nil {
			txs[i].Metadata = &entities.TxMetadata{}
		}
		if txs[i].Metadata.BlockHash == "" {
			txs[i].Metadata.BlockHash = entryHash
		}
	}
	return txs, nil
}

func (c *Client) GetBalances(ctx context.Context, address string) ([]entities.Balance, error) {
	path := "/wallet/balance_all/" + url.PathEscape(address)
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		Balances []entities.Balance `json:"balances"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return nil, err
	}
	if response.Balances == nil {
		return []entities.Balance{}, nil
	}
	return response.Balances, nil
}

func (c *Client) GetAddressTransactions(ctx context.Context, address string, query entities.AddressQuery) (entities.AddressPage, error) {
	path := "/chain/tx_events_by_account/" + url.PathEscape(address)
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	params.Set("offset", strconv.Itoa(query.Offset))
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}
	if query.Cursor != nil {
		params.Set("cursor", *query.Cursor)
	}
	if query.Type != "" {
		params.Set("type", query.Type)
	}

	payload, err := c.Request(ctx, path, params)
	if err != nil {
		return entities.AddressPage{}, err
	}
	var response struct {
		Txs    []json.RawMessage `json:"txs"`
		Cursor json.RawMessage   `json:"cursor"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return entities.AddressPage{}, err
	}
	txs, skipped := wire.DecodeTransactions(response.Txs)
	logSkipped(path, skipped)
	return entities.AddressPage{Transactions: txs, Cursor: decodeCursor(response.Cursor)}, nil
}

// decodeCursor keeps the token opaque: strings are used as is, anything else verbatim.
func decodeCursor(raw json.RawMessage) *string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var cursor string
	if err := json.Unmarshal(raw, &cursor); err != nil {
		cursor = string(raw)
	}
	if cursor == "" {
		return nil
	}
	return &cursor
}

func (c *Client) GetRichList(ctx context.Context) ([]entities.RichListEntry, error) {
	const path = "/contract/richlist"
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		RichList []struct {
			Pk    string      `json:"pk"`
			Float json.Number `json:"float"`
		} `json:"richlist"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return nil, err
	}
	entries := make([]entities.RichListEntry, 0, len(response.RichList))
	for _, holder := range response.RichList {
		if holder.Pk == "" {
			continue
		}
		entries = append(entries, entities.RichListEntry{Address: holder.Pk, Float: holder.Float})
	}
	return entries, nil
}

// GetEpochScore returns the validator ranking of the current epoch, best first.
// Scores are accepted as [pk, score] pairs or as objects.
func (c *Client) GetEpochScore(ctx context.Context) ([]entities.ValidatorScore, error) {
	const path = "/epoch/score"
	payload, err := c.Request(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		Scores []json.RawMessage `json:"scores"`
	}
	if err := decodePayload(path, payload, &response); err != nil {
		return nil, err
	}

	scores := make([]entities.ValidatorScore, 0, len(response.Scores))
	skipped := 0
	for _, raw := range response.Scores {
		score, ok := decodeScore(raw)
		if !ok {
			skipped++
			continue
		}
		scores = append(scores, score)
	}
	logSkipped(path, skipped)
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

func decodeScore(raw json.RawMessage) (entities.ValidatorScore, bool) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) != 2 {
			return entities.ValidatorScore{}, false
		}
		var score entities.ValidatorScore
		if json.Unmarshal(pair[0], &score.Address) != nil || json.Unmarshal(pair[1], &score.Score) != nil {
			return entities.ValidatorScore{}, false
		}
		return score, score.Address != ""
	}
	var object struct {
		Pk    string  `json:"pk"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(raw, &object); err != nil || object.Pk == "" {
		return entities.ValidatorScore{}, false
	}
	return entities.ValidatorScore{Address: object.Pk, Score: object.Score}, true
}

func logSkipped(path string, skipped int) {
	if skipped > 0 {
		log.Printf("[WARN] skipped [%d] undecodable records from [%s].", skipped, path)
	}
}
