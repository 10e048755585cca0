package cashier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft/memory"
)

type fakeAPI struct {
	detail     domain.TableDetail
	detailErr  error
	invoice    domain.Invoice
	invoiceErr error
	lastCreate *domain.CreateInvoiceRequest
	pdf        []byte
}

func (f *fakeAPI) TableDetail(context.Context, int64) (domain.TableDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeAPI) CreateInvoice(_ context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	f.lastCreate = &req
	return f.invoice, f.invoiceErr
}

func (f *fakeAPI) InvoicePDF(context.Context, int64) ([]byte, error) {
	return f.pdf, nil
}

func newTestService(api *fakeAPI) (*Service, *memory.Store) {
	drafts := memory.New()
	return NewService(api, drafts, zap.NewNop()), drafts
}

func closedSession(start, end time.Time, total float64) *domain.TableSession {
	endStr := end.Format("2006-01-02T15:04:05")
	return &domain.TableSession{
		ID:        44,
		StartTime: start.Format("2006-01-02T15:04:05"),
		EndTime:   &endStr,
		Total:     &total,
	}
}

func TestOpenTableFresh(t *testing.T) {
	api := &fakeAPI{detail: domain.TableDetail{Table: domain.Table{ID: 3, Name: "Table 3"}}}
	svc, _ := newTestService(api)

	entry, err := svc.OpenTable(context.Background(), 3)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	if len(entry.Invoice.Items) != 0 || entry.Invoice.Total != 0 {
		t.Fatalf("fresh draft not empty: %+v", entry)
	}
}

func TestOpenTableSynthesizesTableFee(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.Local)
	api := &fakeAPI{detail: domain.TableDetail{
		Table:          domain.Table{ID: 3, Name: "Table 3"},
		CurrentSession: closedSession(start, start.Add(90*time.Minute), 75000),
	}}
	svc, _ := newTestService(api)

	entry, err := svc.OpenTable(context.Background(), 3)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	if len(entry.Invoice.Items) != 1 {
		t.Fatalf("items = %d, want the table fee", len(entry.Invoice.Items))
	}
	fee := entry.Invoice.Items[0]
	if fee.Kind != domain.LineItemTableFee {
		t.Fatalf("kind = %q", fee.Kind)
	}
	if fee.ProductName != "Table 3 - 1h30p" {
		t.Fatalf("name = %q", fee.ProductName)
	}
	if entry.Invoice.Total != 75000 {
		t.Fatalf("total = %v, want 75000", entry.Invoice.Total)
	}
}

func TestOpenTableRestoresDraft(t *testing.T) {
	api := &fakeAPI{detail: domain.TableDetail{Table: domain.Table{ID: 3, Name: "Table 3"}}}
	svc, drafts := newTestService(api)
	ctx := context.Background()

	saved := domain.DraftEntry{
		Invoice: domain.DraftInvoice{
			Items: []domain.LineItem{{ID: "x", ProductName: "Cola", Price: 15000, Quantity: 1, LineTotal: 15000, Kind: domain.LineItemProduct}},
		},
		CustomerName: "Anh",
	}
	drafts.Put(ctx, 3, saved)

	entry, err := svc.OpenTable(ctx, 3)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	if entry.CustomerName != "Anh" || len(entry.Invoice.Items) != 1 {
		t.Fatalf("draft not restored: %+v", entry)
	}
	if entry.Invoice.Total != 15000 {
		t.Fatalf("restored draft not recalculated: %+v", entry.Invoice)
	}
}

func TestAddAndRemoveProduct(t *testing.T) {
	api := &fakeAPI{detail: domain.TableDetail{Table: domain.Table{ID: 1, Name: "T1"}}}
	svc, _ := newTestService(api)
	ctx := context.Background()

	if _, err := svc.OpenTable(ctx, 1); err != nil {
		t.Fatal(err)
	}

	entry, err := svc.AddProduct(ctx, 1, domain.Product{ID: 7, Name: "Cola", Price: 15000}, 2)
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if entry.Invoice.Total != 30000 {
		t.Fatalf("total = %v, want 30000", entry.Invoice.Total)
	}

	entry, err = svc.RemoveItem(ctx, 1, entry.Invoice.Items[0].ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(entry.Invoice.Items) != 0 || entry.Invoice.Total != 0 {
		t.Fatalf("item not removed: %+v", entry.Invoice)
	}
}

func TestAddProductToFreshTable(t *testing.T) {
	// Opening an empty table stores nothing (an empty draft is not
	// meaningful), so the first mutation must start from a blank draft
	// rather than fail.
	api := &fakeAPI{detail: domain.TableDetail{Table: domain.Table{ID: 5, Name: "T5"}}}
	svc, drafts := newTestService(api)
	ctx := context.Background()

	if _, err := svc.OpenTable(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if _, ok := drafts.Get(ctx, 5); ok {
		t.Fatal("empty draft should not be persisted")
	}

	entry, err := svc.AddProduct(ctx, 5, domain.Product{ID: 1, Name: "Tea", Price: 1000}, 1)
	if err != nil {
		t.Fatalf("AddProduct on fresh table: %v", err)
	}
	if entry.Invoice.Total != 1000 {
		t.Fatalf("total = %v, want 1000", entry.Invoice.Total)
	}
	if _, ok := drafts.Get(ctx, 5); !ok {
		t.Fatal("draft not persisted after first product")
	}
}

func TestSetCustomerNameWithoutPriorDraft(t *testing.T) {
	svc, drafts := newTestService(&fakeAPI{})
	ctx := context.Background()

	entry, err := svc.SetCustomerName(ctx, 9, "Anh")
	if err != nil {
		t.Fatalf("SetCustomerName: %v", err)
	}
	if entry.CustomerName != "Anh" {
		t.Fatalf("entry = %+v", entry)
	}
	if _, ok := drafts.Get(ctx, 9); !ok {
		t.Fatal("named draft not persisted")
	}
}

func TestCheckoutWithoutDraft(t *testing.T) {
	svc, _ := newTestService(&fakeAPI{})
	if _, err := svc.Checkout(context.Background(), 9); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("err = %v, want ErrNoDraft", err)
	}
}

func TestSetPercents(t *testing.T) {
	api := &fakeAPI{detail: domain.TableDetail{Table: domain.Table{ID: 1, Name: "T1"}}}
	svc, _ := newTestService(api)
	ctx := context.Background()

	if _, err := svc.OpenTable(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddProduct(ctx, 1, domain.Product{ID: 1, Name: "Cola", Price: 100000}, 1); err != nil {
		t.Fatal(err)
	}

	entry, err := svc.SetDiscountPercent(ctx, 1, "10")
	if err != nil {
		t.Fatal(err)
	}
	entry, err = svc.SetTaxPercent(ctx, 1, "8")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Invoice.Total != 97200 {
		t.Fatalf("total = %v, want 97200", entry.Invoice.Total)
	}

	// Garbage input resets the rate.
	entry, err = svc.SetDiscountPercent(ctx, 1, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Invoice.DiscountPercent != 0 {
		t.Fatalf("discount = %v, want 0", entry.Invoice.DiscountPercent)
	}
}

func TestCheckoutClearsDraft(t *testing.T) {
	api := &fakeAPI{
		detail:  domain.TableDetail{Table: domain.Table{ID: 1, Name: "T1"}},
		invoice: domain.Invoice{ID: 501, Total: 30000},
	}
	svc, drafts := newTestService(api)
	ctx := context.Background()

	if _, err := svc.OpenTable(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddProduct(ctx, 1, domain.Product{ID: 7, Name: "Cola", Price: 15000}, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetCustomerName(ctx, 1, "Anh"); err != nil {
		t.Fatal(err)
	}

	invoice, err := svc.Checkout(ctx, 1)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if invoice.ID != 501 {
		t.Fatalf("invoice id = %d", invoice.ID)
	}
	if _, ok := drafts.Get(ctx, 1); ok {
		t.Fatal("draft survived successful checkout")
	}

	req := api.lastCreate
	if req == nil || req.TableID != 1 || len(req.Items) != 1 {
		t.Fatalf("unexpected create request: %+v", req)
	}
	if req.CustomerName == nil || *req.CustomerName != "Anh" {
		t.Fatalf("customer name not forwarded: %+v", req.CustomerName)
	}
}

func TestCheckoutFailureKeepsDraft(t *testing.T) {
	api := &fakeAPI{
		detail:     domain.TableDetail{Table: domain.Table{ID: 1, Name: "T1"}},
		invoiceErr: errors.New("backend down"),
	}
	svc, drafts := newTestService(api)
	ctx := context.Background()

	if _, err := svc.OpenTable(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddProduct(ctx, 1, domain.Product{ID: 7, Name: "Cola", Price: 15000}, 2); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Checkout(ctx, 1); err == nil {
		t.Fatal("expected checkout to fail")
	}

	entry, ok := drafts.Get(ctx, 1)
	if !ok {
		t.Fatal("draft lost after failed checkout")
	}
	if len(entry.Invoice.Items) != 1 || entry.Invoice.Total != 30000 {
		t.Fatalf("draft changed by failed checkout: %+v", entry.Invoice)
	}
}

func TestCheckoutEmptyInvoice(t *testing.T) {
	api := &fakeAPI{detail: domain.TableDetail{Table: domain.Table{ID: 1, Name: "T1"}}}
	svc, drafts := newTestService(api)
	ctx := context.Background()

	drafts.Put(ctx, 1, domain.DraftEntry{CustomerName: "Anh"})

	if _, err := svc.Checkout(ctx, 1); !errors.Is(err, ErrEmptyInvoice) {
		t.Fatalf("err = %v, want ErrEmptyInvoice", err)
	}
}

func TestExportPDF(t *testing.T) {
	api := &fakeAPI{pdf: []byte("%PDF-1.4 fake")}
	svc, _ := newTestService(api)
	dir := t.TempDir()

	path, err := svc.ExportPDF(context.Background(), 501, dir)
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if filepath.Base(path) != "invoice-501.pdf" {
		t.Fatalf("path = %q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "%PDF-1.4 fake" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestPruneStaleDrafts(t *testing.T) {
	svc, drafts := newTestService(&fakeAPI{})
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	fresh := domain.DraftEntry{CustomerName: "fresh", SavedAt: now.Add(-time.Hour)}
	stale := domain.DraftEntry{CustomerName: "stale", SavedAt: now.Add(-10 * 24 * time.Hour)}
	legacy := domain.DraftEntry{CustomerName: "legacy"} // no SavedAt
	drafts.Put(ctx, 1, fresh)
	drafts.Put(ctx, 2, stale)
	drafts.Put(ctx, 3, legacy)

	if n := svc.PruneStaleDrafts(ctx, 7*24*time.Hour); n != 1 {
		t.Fatalf("pruned = %d, want 1", n)
	}
	if _, ok := drafts.Get(ctx, 2); ok {
		t.Fatal("stale draft survived")
	}
	for _, id := range []int64{1, 3} {
		if _, ok := drafts.Get(ctx, id); !ok {
			t.Errorf("table %d: draft should survive", id)
		}
	}
}
