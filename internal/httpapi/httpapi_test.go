package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"bidacafe/terminal/internal/board"
	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft/memory"
)

type staticClient struct {
	tables   []domain.Table
	sessions map[int64]*domain.TableSession
}

func (c *staticClient) ListTables(context.Context) ([]domain.Table, error) {
	return c.tables, nil
}

func (c *staticClient) TableSession(_ context.Context, tableID int64) (*domain.TableSession, error) {
	return c.sessions[tableID], nil
}

func newTestAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()
	start := time.Now().Add(-30 * time.Minute).Format("2006-01-02T15:04:05")
	client := &staticClient{
		tables: []domain.Table{{ID: 1, Name: "T1"}, {ID: 2, Name: "T2"}},
		sessions: map[int64]*domain.TableSession{
			1: {ID: 100, StartTime: start},
		},
	}
	poller := board.NewPoller(client, time.Second, time.Second, zap.NewNop())
	poller.Refresh(context.Background())

	drafts := memory.New()
	return New(poller, drafts, zap.NewNop()), drafts
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestBoard(t *testing.T) {
	api, _ := newTestAPI(t)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/board")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body boardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tiles) != 2 {
		t.Fatalf("tiles = %d, want 2", len(body.Tiles))
	}
	if body.PlayingCount != 1 || body.EmptyCount != 1 {
		t.Fatalf("counts = %d/%d", body.PlayingCount, body.EmptyCount)
	}
	// Playing table sorts first and carries rendered money/clock fields.
	first := body.Tiles[0]
	if first.TableID != 1 || !first.Playing {
		t.Fatalf("first tile: %+v", first)
	}
	if first.ElapsedText == "" || first.CostText == "" {
		t.Fatalf("texts not rendered: %+v", first)
	}
	if len(body.TopEstimates) != 1 {
		t.Fatalf("top estimates = %d, want 1", len(body.TopEstimates))
	}
	if body.LastUpdated == nil {
		t.Fatal("lastUpdated missing")
	}
}

func TestBoardFilterAndSortParams(t *testing.T) {
	api, _ := newTestAPI(t)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/board?filter=playing&sort=longest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body boardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tiles) != 1 || !body.Tiles[0].Playing {
		t.Fatalf("filtered tiles: %+v", body.Tiles)
	}

	bad, err := http.Get(server.URL + "/api/v1/board?filter=bogus")
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus filter status = %d", bad.StatusCode)
	}
}

func TestDraftLookup(t *testing.T) {
	api, drafts := newTestAPI(t)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	drafts.Put(context.Background(), 3, domain.DraftEntry{CustomerName: "Anh"})

	resp, err := http.Get(server.URL + "/api/v1/drafts/3")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var entry domain.DraftEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatal(err)
	}
	if entry.CustomerName != "Anh" {
		t.Fatalf("entry = %+v", entry)
	}

	missing, err := http.Get(server.URL + "/api/v1/drafts/99")
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing draft status = %d", missing.StatusCode)
	}

	invalid, err := http.Get(server.URL + "/api/v1/drafts/abc")
	if err != nil {
		t.Fatal(err)
	}
	defer invalid.Body.Close()
	if invalid.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", invalid.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/board", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
