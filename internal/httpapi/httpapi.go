// Package httpapi is the terminal's local HTTP surface: the floor display
// polls /api/v1/board for its tiles and drafts can be inspected per table.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"bidacafe/terminal/internal/board"
	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft"
	"bidacafe/terminal/internal/money"
)

type API struct {
	poller *board.Poller
	drafts draft.Store
	logger *zap.Logger
}

func New(poller *board.Poller, drafts draft.Store, logger *zap.Logger) *API {
	return &API{
		poller: poller,
		drafts: drafts,
		logger: logger.Named("httpapi"),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/board", a.handleBoard)
	mux.HandleFunc("/api/v1/drafts/", a.handleDraft)
	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// boardTile is one table on the display, with the money and clock fields
// pre-rendered so the display stays dumb.
type boardTile struct {
	domain.LiveSessionProjection
	ElapsedText    string `json:"elapsedText"`
	CostText       string `json:"costText"`
	HourlyRateText string `json:"hourlyRateText"`
}

type boardResponse struct {
	Tiles        []boardTile `json:"tiles"`
	PlayingCount int         `json:"playingCount"`
	EmptyCount   int         `json:"emptyCount"`
	TopEstimates []boardTile `json:"topEstimates"`
	LastUpdated  *time.Time  `json:"lastUpdated"`
	LastError    string      `json:"lastError,omitempty"`
}

func (a *API) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	filter, ok := board.ParseFilter(r.URL.Query().Get("filter"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown filter %q", r.URL.Query().Get("filter")))
		return
	}
	order, ok := board.ParseSort(r.URL.Query().Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown sort %q", r.URL.Query().Get("sort")))
		return
	}

	projections := a.poller.Projections()

	resp := boardResponse{
		Tiles:        tiles(board.Apply(projections, filter, order)),
		TopEstimates: tiles(board.TopEstimates(projections, 3)),
	}
	for _, p := range projections {
		if p.Playing {
			resp.PlayingCount++
		} else {
			resp.EmptyCount++
		}
	}
	if snap := a.poller.Snapshot(); !snap.FetchedAt.IsZero() {
		fetched := snap.FetchedAt
		resp.LastUpdated = &fetched
	}
	if err := a.poller.LastError(); err != nil {
		resp.LastError = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func tiles(projections []domain.LiveSessionProjection) []boardTile {
	out := make([]boardTile, 0, len(projections))
	for _, p := range projections {
		out = append(out, boardTile{
			LiveSessionProjection: p,
			ElapsedText:           money.FormatHMS(p.ElapsedMs),
			CostText:              money.FormatVND(p.ProjectedCost),
			HourlyRateText:        money.FormatVND(p.HourlyRate),
		})
	}
	return out
}

func (a *API) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/drafts/")
	tableID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid table id %q", rest))
		return
	}

	entry, ok := a.drafts.Get(r.Context(), tableID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no draft for table %d", tableID))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
