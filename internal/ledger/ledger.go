// Package ledger implements the draft-invoice arithmetic: totals are always
// rebuilt from the full line-item list so the derived fields can never drift
// from the items that produced them.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/xid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNoProduct       = errors.New("no product selected")
)

// Recalc rebuilds subtotal, discount, tax and total from the invoice's items
// and percent rates. Pure: the input is not modified. Non-finite line totals
// or rates are treated as zero so the output never carries NaN.
func Recalc(inv domain.DraftInvoice) domain.DraftInvoice {
	subtotal := 0.0
	for _, item := range inv.Items {
		subtotal += finiteOrZero(item.LineTotal)
	}

	discountPercent := finiteOrZero(inv.DiscountPercent)
	taxPercent := finiteOrZero(inv.TaxPercent)

	discountAmount := subtotal * discountPercent / 100
	afterDiscount := subtotal - discountAmount
	taxAmount := afterDiscount * taxPercent / 100

	inv.Subtotal = subtotal
	inv.DiscountAmount = discountAmount
	inv.TaxAmount = taxAmount
	inv.Total = afterDiscount + taxAmount
	return inv
}

// AddItem appends one PRODUCT line item and recalculates.
func AddItem(inv domain.DraftInvoice, product domain.Product, quantity int) (domain.DraftInvoice, error) {
	if product.ID == 0 && product.Name == "" {
		return inv, ErrNoProduct
	}
	if quantity <= 0 {
		return inv, ErrInvalidQuantity
	}

	productID := product.ID
	items := make([]domain.LineItem, 0, len(inv.Items)+1)
	items = append(items, inv.Items...)
	items = append(items, domain.LineItem{
		ID:          xid.New("item"),
		ProductID:   &productID,
		ProductName: product.Name,
		Price:       product.Price,
		Quantity:    quantity,
		LineTotal:   product.Price * float64(quantity),
		Kind:        domain.LineItemProduct,
	})
	inv.Items = items
	return Recalc(inv), nil
}

// RemoveItem drops the item with the given id and recalculates. Removing an
// unknown id is a no-op apart from the recalculation.
func RemoveItem(inv domain.DraftInvoice, itemID string) domain.DraftInvoice {
	items := make([]domain.LineItem, 0, len(inv.Items))
	for _, item := range inv.Items {
		if item.ID != itemID {
			items = append(items, item)
		}
	}
	inv.Items = items
	return Recalc(inv)
}

// BuildTableFeeItem synthesizes the single TABLE_FEE line for a closed table
// session. The item name carries a duration label when both timestamps are
// known, e.g. "Table 3 - 1h30p".
func BuildTableFeeItem(tableName string, start, end time.Time, total float64) domain.LineItem {
	name := tableName
	if label := DurationLabel(start, end); label != "" {
		name = fmt.Sprintf("%s - %s", tableName, label)
	}
	amount := finiteOrZero(total)

	return domain.LineItem{
		ID:          xid.New("table-fee"),
		ProductID:   nil,
		ProductName: name,
		Price:       amount,
		Quantity:    1,
		LineTotal:   amount,
		Kind:        domain.LineItemTableFee,
	}
}

// DurationLabel renders the elapsed play time as "{H}h{M}p" (or "{M}p" under
// an hour). Whole minutes, floored, minimum 1 so a sub-minute session never
// shows as zero. Empty when either timestamp is missing.
func DurationLabel(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return ""
	}
	minutes := int64(end.Sub(start) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dp", h, m)
	}
	return fmt.Sprintf("%dp", m)
}

// ParsePercent turns free-form percent input into a rate, mapping anything
// unparsable to 0. Out-of-range values pass through; bounds are the caller's
// concern.
func ParsePercent(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
