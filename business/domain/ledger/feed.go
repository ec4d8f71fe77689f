package ledger

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/pkg/errors"
	"strings"
)

type Filter string

const (
	FilterAll      Filter = "all"
	FilterSent     Filter = "sent"
	FilterReceived Filter = "recv"
)

var ErrInvalidFilter = errors.New("invalid filter")
var ErrInvalidPageSize = errors.New("page size must be positive")
var ErrNoFeed = errors.New("no address feed loaded")
var ErrFeedBusy = errors.New("address feed page already loading")

func ParseFilter(value string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return FilterAll, nil
	case "sent":
		return FilterSent, nil
	case "recv", "received":
		return FilterReceived, nil
	default:
		return "", errors.Wrapf(ErrInvalidFilter, "[%s]", value)
	}
}

// queryType is the node's type parameter, empty for all.
func (f Filter) queryType() string {
	if f == FilterAll {
		return ""
	}
	return string(f)
}

type AddressFeed struct {
	Address      string                       `json:"address"`
	Filter       Filter                       `json:"filter"`
	PageSize     int                          `json:"pageSize"`
	Transactions []entities.TransactionRecord `json:"transactions"`
	Cursor       *string                      `json:"cursor"`
}

type FeedStats struct {
	Total    int `json:"total"`
	Sent     int `json:"sent"`
	Received int `json:"received"`
}

func (f AddressFeed) HasMore() bool {
	return f.Cursor != nil
}

func (f AddressFeed) Stats() FeedStats {
	stats := FeedStats{Total: len(f.Transactions)}
	for _, tx := range f.Transactions {
		if tx.Metadata == nil {
			continue
		}
		switch tx.Metadata.Event {
		case entities.TxEventSent:
			stats.Sent++
		case entities.TxEventReceived:
			stats.Received++
		}
	}
	return stats
}

// LoadAddressFeed resets the feed and fetches its first page. A response
// that arrives after the feed was reset again is discarded.
func (v *View) LoadAddressFeed(ctx context.Context, address string, filter Filter, pageSize int) error {
	if address == "" {
		return errors.New("empty address")
	}
	if filter != FilterAll && filter != FilterSent && filter != FilterReceived {
		return errors.Wrapf(ErrInvalidFilter, "[%s]", filter)
	}
	if pageSize <= 0 {
		return ErrInvalidPageSize
	}

	v.mu.Lock()
	v.generation++
	generation := v.generation
	v.feedBusy = false
	v.feed = &AddressFeed{
		Address:      address,
		Filter:       filter,
		PageSize:     pageSize,
		Transactions: []entities.TransactionRecord{},
	}
	v.mu.Unlock()
	v.notify(ChangeAddressFeed)

	page, err := v.source.GetAddressTransactions(ctx, address, entities.AddressQuery{
		Limit:  pageSize,
		Offset: 0,
		Sort:   "desc",
		Type:   filter.queryType(),
	})

	v.mu.Lock()
	if generation != v.generation {
		v.mu.Unlock()
		v.logger.Debugw("Discarding stale address page.", "address", address)
		return nil
	}
	if err != nil {
		v.mu.Unlock()
		return errors.Wrapf(err, "loading transactions of [%s]", address)
	}
	v.feed.Transactions = appendUnique(nil, page.Transactions)
	v.feed.Cursor = page.Cursor
	v.mu.Unlock()

	v.notify(ChangeAddressFeed)
	return nil
}

// ContinueAddressFeed appends the next page of the feed for address. It returns
// ErrNoFeed when no feed is open or the open feed belongs to another address.
// On failure the loaded data is kept.
func (v *View) ContinueAddressFeed(ctx context.Context, address string) error {
	v.mu.Lock()
	if v.feed == nil || v.feed.Address != address {
		v.mu.Unlock()
		return errors.Wrapf(ErrNoFeed, "[%s]", address)
	}
	if v.feed.Cursor == nil {
		v.mu.Unlock()
		return entities.ErrNoMorePages
	}
	if v.feedBusy {
		v.mu.Unlock()
		return ErrFeedBusy
	}
	v.feedBusy = true
	generation := v.generation
	cursor := *v.feed.Cursor
	query := entities.AddressQuery{
		Limit:  v.feed.PageSize,
		Offset: len(v.feed.Transactions),
		Sort:   "desc",
		Cursor: &cursor,
		Type:   v.feed.Filter.queryType(),
	}
	v.mu.Unlock()

	page, err := v.source.GetAddressTransactions(ctx, address, query)

	v.mu.Lock()
	if generation != v.generation {
		v.mu.Unlock()
		v.logger.Debugw("Discarding stale address page.", "address", address)
		return nil
	}
	v.feedBusy = false
	if err != nil {
		v.mu.Unlock()
		return errors.Wrapf(err, "loading more transactions of [%s]", address)
	}
	v.feed.Transactions = appendUnique(v.feed.Transactions, page.Transactions)
	v.feed.Cursor = page.Cursor
	v.mu.Unlock()

	v.notify(ChangeAddressFeed)
	return nil
}

// CloseAddressFeed drops the feed. Pending page loads are discarded.
func (v *View) CloseAddressFeed() {
	v.mu.Lock()
	v.generation++
	v.feed = nil
	v.feedBusy = false
	v.mu.Unlock()
	v.notify(ChangeAddressFeed)
}

func (v *View) AddressFeed() (AddressFeed, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.feed == nil {
		return AddressFeed{}, false
	}
	feed := *v.feed
	feed.Transactions = make([]entities.TransactionRecord, len(v.feed.Transactions))
	copy(feed.Transactions, v.feed.Transactions)
	if v.feed.Cursor != nil {
		cursor := *v.feed.Cursor
		feed.Cursor = &cursor
	}
	return feed, true
}

func appendUnique(existing, incoming []entities.TransactionRecord) []entities.TransactionRecord {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	result := make([]entities.TransactionRecord, 0, len(existing)+len(incoming))
	for _, tx := range existing {
		seen[tx.Hash] = struct{}{}
		result = append(result, tx)
	}
	for _, tx := range incoming {
		if tx.Hash == "" {
			continue
		}
		if _, ok := seen[tx.Hash]; ok {
			continue
		}
		seen[tx.Hash] = struct{}{}
		result = append(result, tx)
	}
	return result
}
