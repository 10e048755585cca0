// Package cashier runs the checkout workflow: it opens tables into draft
// invoices, edits them through the ledger and settles them against the
// backend, persisting the draft after every mutation so a crash or restart
// loses nothing.
package cashier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"bidacafe/terminal/internal/board"
	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft"
	"bidacafe/terminal/internal/ledger"
)

var (
	ErrEmptyInvoice = errors.New("invoice has no items")
	ErrNoDraft      = errors.New("no draft for table")
)

// APIClient is the slice of the backend client checkout needs.
type APIClient interface {
	TableDetail(ctx context.Context, tableID int64) (domain.TableDetail, error)
	CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error)
	InvoicePDF(ctx context.Context, invoiceID int64) ([]byte, error)
}

type Service struct {
	api    APIClient
	drafts draft.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(api APIClient, drafts draft.Store, logger *zap.Logger) *Service {
	return &Service{
		api:    api,
		drafts: drafts,
		logger: logger.Named("cashier"),
		now:    time.Now,
	}
}

// OpenTable brings up the draft for a table: a previously saved draft is
// restored as-is, otherwise a fresh invoice is started. When the table's
// session has already been closed the fresh invoice starts with the table
// fee as its first line.
func (s *Service) OpenTable(ctx context.Context, tableID int64) (domain.DraftEntry, error) {
	detail, err := s.api.TableDetail(ctx, tableID)
	if err != nil {
		return domain.DraftEntry{}, fmt.Errorf("open table %d: %w", tableID, err)
	}

	if entry, ok := s.drafts.Get(ctx, tableID); ok {
		entry.Invoice = ledger.Recalc(entry.Invoice)
		s.logger.Info("restored draft",
			zap.Int64("table_id", tableID),
			zap.Int("items", len(entry.Invoice.Items)))
		return entry, nil
	}

	var inv domain.DraftInvoice
	if session := detail.CurrentSession; session != nil && session.Closed() {
		inv.Items = append(inv.Items, s.tableFee(detail.Table, *session))
	}
	entry := domain.DraftEntry{Invoice: ledger.Recalc(inv)}
	s.persist(ctx, tableID, entry)
	return entry, nil
}

func (s *Service) tableFee(table domain.Table, session domain.TableSession) domain.LineItem {
	var start, end time.Time
	if t, ok := board.ParseLocalDateTime(session.StartTime); ok {
		start = t
	}
	if session.EndTime != nil {
		if t, ok := board.ParseLocalDateTime(*session.EndTime); ok {
			end = t
		}
	}
	total := 0.0
	if session.Total != nil {
		total = *session.Total
	}
	return ledger.BuildTableFeeItem(table.Name, start, end, total)
}

// draftFor returns the table's stored draft, or a fresh empty one when the
// store has no entry. An empty draft is never persisted (the store clears it
// on put), so absence is the normal state of an untouched table.
func (s *Service) draftFor(ctx context.Context, tableID int64) domain.DraftEntry {
	entry, ok := s.drafts.Get(ctx, tableID)
	if !ok {
		return domain.DraftEntry{}
	}
	return entry
}

// AddProduct appends a product line to the table's draft.
func (s *Service) AddProduct(ctx context.Context, tableID int64, product domain.Product, quantity int) (domain.DraftEntry, error) {
	entry := s.draftFor(ctx, tableID)

	inv, err := ledger.AddItem(entry.Invoice, product, quantity)
	if err != nil {
		return entry, fmt.Errorf("table %d: %w", tableID, err)
	}
	entry.Invoice = inv
	s.persist(ctx, tableID, entry)
	return entry, nil
}

func (s *Service) RemoveItem(ctx context.Context, tableID int64, itemID string) (domain.DraftEntry, error) {
	entry := s.draftFor(ctx, tableID)
	entry.Invoice = ledger.RemoveItem(entry.Invoice, itemID)
	s.persist(ctx, tableID, entry)
	return entry, nil
}

func (s *Service) SetCustomerName(ctx context.Context, tableID int64, name string) (domain.DraftEntry, error) {
	entry := s.draftFor(ctx, tableID)
	entry.CustomerName = name
	s.persist(ctx, tableID, entry)
	return entry, nil
}

// SetDiscountPercent applies free-form discount input; unparsable input
// resets the rate to zero.
func (s *Service) SetDiscountPercent(ctx context.Context, tableID int64, raw string) (domain.DraftEntry, error) {
	entry := s.draftFor(ctx, tableID)
	entry.Invoice.DiscountPercent = ledger.ParsePercent(raw)
	entry.Invoice = ledger.Recalc(entry.Invoice)
	s.persist(ctx, tableID, entry)
	return entry, nil
}

func (s *Service) SetTaxPercent(ctx context.Context, tableID int64, raw string) (domain.DraftEntry, error) {
	entry := s.draftFor(ctx, tableID)
	entry.Invoice.TaxPercent = ledger.ParsePercent(raw)
	entry.Invoice = ledger.Recalc(entry.Invoice)
	s.persist(ctx, tableID, entry)
	return entry, nil
}

// Checkout settles the table's draft against the backend. The draft is only
// cleared after the backend accepts the invoice, so a failed submission can
// simply be retried.
func (s *Service) Checkout(ctx context.Context, tableID int64) (domain.Invoice, error) {
	entry, ok := s.drafts.Get(ctx, tableID)
	if !ok {
		return domain.Invoice{}, fmt.Errorf("table %d: %w", tableID, ErrNoDraft)
	}
	if len(entry.Invoice.Items) == 0 {
		return domain.Invoice{}, fmt.Errorf("table %d: %w", tableID, ErrEmptyInvoice)
	}

	req := domain.CreateInvoiceRequest{
		TableID:         tableID,
		DiscountPercent: entry.Invoice.DiscountPercent,
		TaxPercent:      entry.Invoice.TaxPercent,
	}
	if entry.CustomerName != "" {
		name := entry.CustomerName
		req.CustomerName = &name
	}
	for _, item := range entry.Invoice.Items {
		req.Items = append(req.Items, domain.InvoiceItemRequest{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Quantity:    item.Quantity,
		})
	}

	invoice, err := s.api.CreateInvoice(ctx, req)
	if err != nil {
		return domain.Invoice{}, fmt.Errorf("checkout table %d: %w", tableID, err)
	}

	s.drafts.Clear(ctx, tableID)
	s.logger.Info("table settled",
		zap.Int64("table_id", tableID),
		zap.Int64("invoice_id", invoice.ID),
		zap.Float64("total", invoice.Total))
	return invoice, nil
}

// ExportPDF downloads the settled invoice's receipt into dir and returns the
// written path.
func (s *Service) ExportPDF(ctx context.Context, invoiceID int64, dir string) (string, error) {
	pdf, err := s.api.InvoicePDF(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("invoice-%d.pdf", invoiceID))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// PruneStaleDrafts drops drafts older than maxAge and reports how many went.
// Entries from before SavedAt existed have a zero timestamp and are kept.
func (s *Service) PruneStaleDrafts(ctx context.Context, maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	pruned := 0
	for tableID, entry := range s.drafts.All(ctx) {
		if entry.SavedAt.IsZero() || !entry.SavedAt.Before(cutoff) {
			continue
		}
		s.drafts.Clear(ctx, tableID)
		pruned++
		s.logger.Info("pruned stale draft",
			zap.Int64("table_id", tableID),
			zap.Time("saved_at", entry.SavedAt))
	}
	return pruned
}

func (s *Service) persist(ctx context.Context, tableID int64, entry domain.DraftEntry) {
	entry.SavedAt = s.now()
	s.drafts.Put(ctx, tableID, entry)
}
