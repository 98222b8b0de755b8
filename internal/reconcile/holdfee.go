package reconcile

import (
	"strings"
	"time"

	"courier-reconciliation-service/internal/utils"
)

// HoldFeePatch is the set of hold-fee columns written by one ledger action.
// Nil pointer fields are written as NULL.
type HoldFeePatch struct {
	HoldFee          *float64   `json:"hold_fee"`
	HoldFeeComment   *string    `json:"hold_fee_comment"`
	HoldFeeCreatedBy *string    `json:"hold_fee_created_by"`
	HoldFeeCreatedAt *time.Time `json:"hold_fee_created_at"`
	HoldFeeRemovedAt *time.Time `json:"hold_fee_removed_at"`

	// HoldFeeAddedAt is only written when SetAddedAt is true; removals keep
	// the previous addition timestamp.
	HoldFeeAddedAt *time.Time `json:"hold_fee_added_at,omitempty"`
	SetAddedAt     bool       `json:"-"`
}

// AddOrUpdateHoldFee places a hold fee on an order. A non-positive amount is
// treated as a removal, still recording who triggered it.
func AddOrUpdateHoldFee(amount float64, comment, actor string, now time.Time) HoldFeePatch {
	if amount <= 0 {
		return RemoveHoldFee(actor, now)
	}
	fee := amount
	by := actor
	at := now
	added := now
	patch := HoldFeePatch{
		HoldFee:          &fee,
		HoldFeeCreatedBy: &by,
		HoldFeeCreatedAt: &at,
		HoldFeeAddedAt:   &added,
		SetAddedAt:       true,
	}
	if c := strings.TrimSpace(comment); c != "" {
		patch.HoldFeeComment = &c
	}
	return patch
}

func RemoveHoldFee(actor string, now time.Time) HoldFeePatch {
	by := actor
	at := now
	removed := now
	return HoldFeePatch{
		HoldFeeCreatedBy: &by,
		HoldFeeCreatedAt: &at,
		HoldFeeRemovedAt: &removed,
	}
}

// ApplyHoldFeePatch mirrors the storage write on an in-memory order.
func ApplyHoldFeePatch(o *Order, p HoldFeePatch) {
	o.HoldFee = p.HoldFee
	o.HoldFeeComment = p.HoldFeeComment
	o.HoldFeeCreatedBy = p.HoldFeeCreatedBy
	o.HoldFeeCreatedAt = p.HoldFeeCreatedAt
	o.HoldFeeRemovedAt = p.HoldFeeRemovedAt
	if p.SetAddedAt {
		o.HoldFeeAddedAt = p.HoldFeeAddedAt
	}
}

// EffectiveHoldDate prefers the removal timestamp, then the addition, then
// the creation timestamp, so a fee removed today is reported under today.
func EffectiveHoldDate(o Order) *time.Time {
	switch {
	case o.HoldFeeRemovedAt != nil:
		return o.HoldFeeRemovedAt
	case o.HoldFeeAddedAt != nil:
		return o.HoldFeeAddedAt
	default:
		return o.HoldFeeCreatedAt
	}
}

type HoldDateFilter string

const (
	HoldFilterToday      HoldDateFilter = "today"
	HoldFilterYesterday  HoldDateFilter = "yesterday"
	HoldFilterLast7Days  HoldDateFilter = "last7days"
	HoldFilterLast30Days HoldDateFilter = "last30days"
	HoldFilterCustom     HoldDateFilter = "custom"
	HoldFilterAll        HoldDateFilter = "all"
)

func ParseHoldDateFilter(value string) (HoldDateFilter, bool) {
	switch f := HoldDateFilter(strings.ToLower(strings.TrimSpace(value))); f {
	case HoldFilterToday, HoldFilterYesterday, HoldFilterLast7Days, HoldFilterLast30Days, HoldFilterCustom, HoldFilterAll:
		return f, true
	case "":
		return HoldFilterAll, true
	}
	return "", false
}

// FilterByHoldDate keeps orders whose effective hold date falls inside the
// filter's window. Day boundaries are taken in loc. A custom filter without a
// date matches nothing.
func FilterByHoldDate(orders []Order, kind HoldDateFilter, custom *time.Time, now time.Time, loc *time.Location) []Order {
	if loc == nil {
		loc = time.UTC
	}

	var start, end time.Time
	switch kind {
	case HoldFilterAll:
		out := make([]Order, 0, len(orders))
		for _, o := range orders {
			if EffectiveHoldDate(o) != nil || valueOrZero(o.HoldFee) > 0 {
				out = append(out, o)
			}
		}
		return out
	case HoldFilterToday:
		start, end = utils.DayRange(now, 1, loc)
	case HoldFilterYesterday:
		start, end = utils.DayRange(now.AddDate(0, 0, -1), 1, loc)
	case HoldFilterLast7Days:
		start, end = utils.DayRange(now, 7, loc)
	case HoldFilterLast30Days:
		start, end = utils.DayRange(now, 30, loc)
	case HoldFilterCustom:
		if custom == nil {
			return []Order{}
		}
		start, end = utils.DayRange(*custom, 1, loc)
	default:
		return []Order{}
	}

	out := make([]Order, 0)
	for _, o := range orders {
		d := EffectiveHoldDate(o)
		if d == nil {
			continue
		}
		if !d.Before(start) && d.Before(end) {
			out = append(out, o)
		}
	}
	return out
}
