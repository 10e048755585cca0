// Package money renders amounts and durations the way the café's displays
// expect: Vietnamese đồng with dot-grouped thousands and no decimals, and
// elapsed time as HH:MM:SS.
package money

import (
	"fmt"
	"math"
	"strconv"
)

// FormatVND rounds to whole đồng and formats with dot thousands separators,
// e.g. 125000 -> "125.000đ". Non-finite input formats as zero.
func FormatVND(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	v := int64(math.Round(amount))
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + groupThousands(v) + "đ"
}

func groupThousands(v int64) string {
	digits := strconv.FormatInt(v, 10)
	if len(digits) <= 3 {
		return digits
	}
	head := len(digits) % 3
	out := make([]byte, 0, len(digits)+len(digits)/3)
	if head > 0 {
		out = append(out, digits[:head]...)
	}
	for i := head; i < len(digits); i += 3 {
		if len(out) > 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

// FormatHMS renders a millisecond duration as zero-padded HH:MM:SS.
// Negative durations clamp to 00:00:00.
func FormatHMS(ms int64) string {
	totalSec := ms / 1000
	if totalSec < 0 {
		totalSec = 0
	}
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
