// Package board projects live table sessions into what the floor display
// shows: elapsed play time, the running cost estimate and a warn tier that
// escalates as a session gets long.
package board

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"bidacafe/terminal/internal/domain"
)

// DefaultHourlyRate applies when a table carries no rate of its own.
const DefaultHourlyRate = 50000

const (
	warnAfter   = 2 * time.Hour
	dangerAfter = 3 * time.Hour
)

// localDateTime matches the backend's zone-less timestamps. Only the leading
// date-time portion matters; fractional seconds and anything after are
// ignored rather than rejected.
var localDateTime = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})`)

// ParseLocalDateTime reads a zone-less "2006-01-02T15:04:05..." timestamp as
// local wall-clock time. Fields are extracted explicitly instead of handed to
// a generic layout parser, which would guess at the missing zone. The second
// return is false when the string does not start with that shape.
func ParseLocalDateTime(s string) (time.Time, bool) {
	m := localDateTime.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := make([]int, 6)
	for i := range n {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}
	return time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.Local), true
}

// HourlyRate returns the table's own rate, or DefaultHourlyRate when the
// field is absent or not finite. An explicit zero is a real rate (free
// table), not a missing one.
func HourlyRate(t domain.Table) float64 {
	if t.PricePerHour == nil {
		return DefaultHourlyRate
	}
	rate := *t.PricePerHour
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return DefaultHourlyRate
	}
	return rate
}

// Project computes the display tile for one table at the given instant.
// A table is playing only when it has an open session whose start time
// parses; anything else shows as empty with zeroed counters.
func Project(table domain.Table, session *domain.TableSession, now time.Time) domain.LiveSessionProjection {
	p := domain.LiveSessionProjection{
		TableID:    table.ID,
		TableName:  table.Name,
		HourlyRate: HourlyRate(table),
		WarnLevel:  domain.WarnNone,
	}

	if session == nil || session.EndTime != nil {
		return p
	}
	start, ok := ParseLocalDateTime(session.StartTime)
	if !ok {
		return p
	}

	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	p.Playing = true
	p.SessionID = session.ID
	p.StartedAt = start
	p.ElapsedMs = elapsed.Milliseconds()
	// Billing granularity is whole minutes; the cost estimate steps once per
	// minute rather than creeping continuously.
	p.ElapsedMinutes = p.ElapsedMs / 60000
	p.ProjectedCost = math.Round(float64(p.ElapsedMinutes) * p.HourlyRate / 60)

	switch {
	case elapsed >= dangerAfter:
		p.WarnLevel = domain.WarnDanger
	case elapsed >= warnAfter:
		p.WarnLevel = domain.WarnWarn
	}
	return p
}

type Filter string

const (
	FilterAll     Filter = "all"
	FilterPlaying Filter = "playing"
	FilterEmpty   Filter = "empty"
)

func ParseFilter(s string) (Filter, bool) {
	switch Filter(s) {
	case FilterAll, FilterPlaying, FilterEmpty:
		return Filter(s), true
	case "":
		return FilterAll, true
	}
	return "", false
}

type Sort string

const (
	SortPlayingFirst Sort = "playing_first"
	SortLongest      Sort = "longest"
	SortID           Sort = "id"
)

func ParseSort(s string) (Sort, bool) {
	switch Sort(s) {
	case SortPlayingFirst, SortLongest, SortID:
		return Sort(s), true
	case "":
		return SortPlayingFirst, true
	}
	return "", false
}

// Apply filters and orders a copy of the projection list; the input slice is
// left alone.
func Apply(projections []domain.LiveSessionProjection, filter Filter, order Sort) []domain.LiveSessionProjection {
	out := make([]domain.LiveSessionProjection, 0, len(projections))
	for _, p := range projections {
		switch filter {
		case FilterPlaying:
			if !p.Playing {
				continue
			}
		case FilterEmpty:
			if p.Playing {
				continue
			}
		}
		out = append(out, p)
	}

	switch order {
	case SortLongest:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].ElapsedMs != out[j].ElapsedMs {
				return out[i].ElapsedMs > out[j].ElapsedMs
			}
			return out[i].TableID < out[j].TableID
		})
	case SortID:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Playing != out[j].Playing {
				return out[i].Playing
			}
			if out[i].Playing && out[i].ElapsedMs != out[j].ElapsedMs {
				return out[i].ElapsedMs > out[j].ElapsedMs
			}
			return out[i].TableID < out[j].TableID
		})
	}
	return out
}

// TopEstimates picks the n playing tables with the highest running cost for
// the money panel.
func TopEstimates(projections []domain.LiveSessionProjection, n int) []domain.LiveSessionProjection {
	playing := make([]domain.LiveSessionProjection, 0, len(projections))
	for _, p := range projections {
		if p.Playing {
			playing = append(playing, p)
		}
	}
	sort.SliceStable(playing, func(i, j int) bool {
		if playing[i].ProjectedCost != playing[j].ProjectedCost {
			return playing[i].ProjectedCost > playing[j].ProjectedCost
		}
		return playing[i].TableID < playing[j].TableID
	})
	if len(playing) > n {
		playing = playing[:n]
	}
	return playing
}
