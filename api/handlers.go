package api

import (
	"github.com/amadeus-explorer/go-explorer/business/domain/ledger"
	"github.com/amadeus-explorer/go-explorer/business/domain/tracking"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/amadeus-explorer/go-explorer/infrastructure/store/jsonfile"
	"github.com/pkg/errors"
	"net/http"
)

type statsResponse struct {
	Stats *entities.ChainStats `json:"stats"`
	Epoch uint64               `json:"epoch"`
}

type homeResponse struct {
	Stats        *entities.ChainStats `json:"stats"`
	Blocks       []blockView          `json:"blocks"`
	Transactions []transactionView    `json:"transactions"`
}

type addressResponse struct {
	Feed     ledger.AddressFeed `json:"feed"`
	Stats    ledger.FeedStats   `json:"stats"`
	HasMore  bool               `json:"hasMore"`
	Tracking tracking.Snapshot  `json:"tracking"`
}

type richListResponse struct {
	Summary entities.RichListSummary `json:"summary"`
	Entries []entities.RichListEntry `json:"entries"`
}

type pflopsResponse struct {
	Period  jsonfile.Period         `json:"period"`
	Summary jsonfile.Summary        `json:"summary"`
	Data    []entities.MetricSample `json:"data"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "UP"})
}

func (s *Server) currentStats() *entities.ChainStats {
	stats, ok := s.view.Stats()
	if !ok {
		return nil
	}
	return &stats
}

// currentSlot is the slot of the newest block in the view, zero when empty.
func (s *Server) currentSlot() uint64 {
	latest := s.view.LatestBlocks(1)
	if len(latest) == 0 {
		return 0
	}
	return latest[0].Slot
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.currentStats()
	response := statsResponse{Stats: stats}
	if stats != nil {
		response.Epoch = stats.Epoch()
	}
	writeJSON(w, response)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, "limit", defaultListLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, presentBlocks(s.view.LatestBlocks(limit), s.currentSlot()))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, "limit", defaultListLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, presentTransactions(s.view.LatestTransactions(limit), s.currentSlot()))
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	current := s.currentSlot()
	writeJSON(w, homeResponse{
		Stats:        s.currentStats(),
		Blocks:       presentBlocks(s.view.LatestBlocks(homeLimit), current),
		Transactions: presentTransactions(s.view.LatestTransactions(homeLimit), current),
	})
}

func (s *Server) writeAddress(w http.ResponseWriter, r *http.Request, address string) {
	feed, ok := s.view.AddressFeed()
	if !ok || feed.Address != address {
		// replaced by a newer request for another address
		s.fail(w, r, errors.Wrapf(ledger.ErrNoFeed, "[%s]", address))
		return
	}
	writeJSON(w, addressResponse{
		Feed:     feed,
		Stats:    feed.Stats(),
		HasMore:  feed.HasMore(),
		Tracking: s.tracker.Snapshot(),
	})
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	filter, err := ledger.ParseFilter(r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pageSize, err := parseLimit(r, "limit", defaultPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.processor.OpenAddress(r.Context(), address, filter, pageSize); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeAddress(w, r, address)
}

func (s *Server) handleAddressMore(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := s.processor.MoreAddressTransactions(r.Context(), address); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeAddress(w, r, address)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.accounts.GetBalances(r.Context(), r.PathValue("address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, balances)
}

func (s *Server) handleStartTracking(w http.ResponseWriter, r *http.Request) {
	if err := s.processor.StartTracking(r.PathValue("address")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, s.tracker.Snapshot())
}

func (s *Server) handleStopTracking(w http.ResponseWriter, _ *http.Request) {
	s.processor.StopTracking()
	writeJSON(w, s.tracker.Snapshot())
}

func (s *Server) handleTracking(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.tracker.Snapshot())
}

func (s *Server) handleRichList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, "limit", 100)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.accounts.GetRichList(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response := richListResponse{
		Summary: entities.SummarizeRichList(entries),
		Entries: append([]entities.RichListEntry{}, entries[:min(limit, len(entries))]...),
	}
	writeJSON(w, response)
}

func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	scores, err := s.accounts.GetEpochScore(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, scores)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := s.resolver.Resolve(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handlePflops(w http.ResponseWriter, r *http.Request) {
	period, err := jsonfile.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	samples, err := s.series.Series(period, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, pflopsResponse{Period: period, Summary: jsonfile.Summarize(samples), Data: samples})
}
