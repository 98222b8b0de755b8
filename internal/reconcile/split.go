package reconcile

import (
	"bytes"
	"encoding/json"
	"strings"

	"courier-reconciliation-service/internal/utils"
)

type SplitKind int

const (
	SplitEmpty SplitKind = iota
	SplitParsed
	SplitUnparsed
)

type SplitPayment struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// SplitPayments is the parsed form of onther_payments. Parsing happens once at
// ingestion; an Unparsed value keeps the raw text and contributes nothing.
type SplitPayments struct {
	kind    SplitKind
	entries []SplitPayment
	raw     string
}

func NewSplitPayments(entries []SplitPayment) SplitPayments {
	if len(entries) == 0 {
		return SplitPayments{kind: SplitEmpty}
	}
	out := make([]SplitPayment, len(entries))
	copy(out, entries)
	return SplitPayments{kind: SplitParsed, entries: out}
}

func (s SplitPayments) Kind() SplitKind { return s.kind }

// Present reports whether any onther_payments value was recorded, parseable or not.
func (s SplitPayments) Present() bool { return s.kind != SplitEmpty }

// Parsed reports whether the value decoded to a list, possibly empty.
func (s SplitPayments) Parsed() bool { return s.kind == SplitParsed }

func (s SplitPayments) Raw() string { return s.raw }

func (s SplitPayments) Entries() []SplitPayment {
	if s.kind != SplitParsed {
		return nil
	}
	return s.entries
}

// Total sums every entry amount, including non-positive ones.
func (s SplitPayments) Total() float64 {
	total := 0.0
	for _, e := range s.Entries() {
		total += e.Amount
	}
	return total
}

// ParseSplitPayments accepts nil, a JSON string, raw JSON bytes or a native list.
func ParseSplitPayments(raw any) SplitPayments {
	switch v := raw.(type) {
	case nil:
		return SplitPayments{kind: SplitEmpty}
	case SplitPayments:
		return v
	case []SplitPayment:
		return NewSplitPayments(v)
	case string:
		return parseSplitJSON([]byte(v))
	case *string:
		if v == nil {
			return SplitPayments{kind: SplitEmpty}
		}
		return parseSplitJSON([]byte(*v))
	case json.RawMessage:
		return parseSplitJSON(v)
	case []byte:
		return parseSplitJSON(v)
	case []any:
		return splitFromList(v)
	case []map[string]any:
		list := make([]any, 0, len(v))
		for _, item := range v {
			list = append(list, item)
		}
		return splitFromList(list)
	default:
		return SplitPayments{kind: SplitEmpty}
	}
}

func parseSplitJSON(data []byte) SplitPayments {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return SplitPayments{kind: SplitEmpty}
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return SplitPayments{kind: SplitUnparsed, raw: string(data)}
	}

	// Some rows were double-encoded: a JSON string holding the JSON list.
	if inner, ok := decoded.(string); ok {
		var nested any
		if err := json.Unmarshal([]byte(inner), &nested); err != nil {
			return SplitPayments{kind: SplitUnparsed, raw: string(data)}
		}
		decoded = nested
	}

	list, ok := decoded.([]any)
	if !ok {
		return SplitPayments{kind: SplitUnparsed, raw: string(data)}
	}
	return splitFromList(list)
}

func splitFromList(list []any) SplitPayments {
	entries := make([]SplitPayment, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		method, _ := obj["method"].(string)
		entries = append(entries, SplitPayment{
			Method: strings.TrimSpace(method),
			Amount: utils.ParseAmount(obj["amount"]),
		})
	}
	return SplitPayments{kind: SplitParsed, entries: entries}
}

func (s SplitPayments) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case SplitParsed:
		return json.Marshal(s.entries)
	case SplitUnparsed:
		return json.Marshal(s.raw)
	default:
		return []byte("null"), nil
	}
}

func (s *SplitPayments) UnmarshalJSON(data []byte) error {
	*s = parseSplitJSON(data)
	return nil
}
