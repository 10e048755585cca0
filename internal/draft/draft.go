// Package draft defines the per-table draft-invoice store. The whole mapping
// lives in one serialized blob under a single well-known key; every write is
// a read-modify-rewrite of that blob with last-writer-wins semantics.
//
// The store never fails its caller: backend trouble is logged and degrades to
// an empty mapping (reads) or a dropped write.
package draft

import (
	"context"

	"bidacafe/terminal/internal/domain"
)

// StorageKey is the well-known key the serialized mapping lives under, shared
// by every backend that has a key namespace.
const StorageKey = "cashier_invoice_state"

type Store interface {
	// Get returns the draft entry for a table, if present.
	Get(ctx context.Context, tableID int64) (domain.DraftEntry, bool)
	// Put stores the entry for a table. An entry without meaningful data is
	// cleared instead of stored.
	Put(ctx context.Context, tableID int64, entry domain.DraftEntry)
	// Clear removes the table's entry if present.
	Clear(ctx context.Context, tableID int64)
	// All returns the full table-to-draft mapping.
	All(ctx context.Context) map[int64]domain.DraftEntry
}

// Meaningful reports whether an entry is worth persisting: at least one line
// item, a customer name, or a nonzero discount or tax rate. Negative rates
// count; the ledger passes them through unclamped.
func Meaningful(entry domain.DraftEntry) bool {
	return len(entry.Invoice.Items) > 0 ||
		entry.CustomerName != "" ||
		entry.Invoice.DiscountPercent != 0 ||
		entry.Invoice.TaxPercent != 0
}
