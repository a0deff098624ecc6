package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amount is a numeric field that may arrive as a JSON number, a numeric
// string or null. Anything that does not parse to a finite number is 0.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*a = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*a = 0
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}
	*a = ParseAmount(string(raw))
	return nil
}

func (a Amount) Float64() float64 {
	return float64(a)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(a))
}

// ParseAmount applies the coerce-or-zero rule to a text value.
func ParseAmount(raw string) Amount {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Amount(v)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a stored sale timestamp. Values without a zone are
// read in loc. The second result is false for empty or unparsable input.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LineItem is one entry of a sale's serialized item list.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  Amount `json:"quantity"`
	Price     Amount `json:"price"`
}

type lineItemWire struct {
	ProductID       json.RawMessage `json:"productId"`
	LegacyProductID json.RawMessage `json:"product_id"`
	Quantity        Amount          `json:"quantity"`
	Price           Amount          `json:"price"`
}

// ParseLineItems decodes a sale's item list. Malformed input yields an empty
// list, never an error.
func ParseLineItems(raw string) []LineItem {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.HasPrefix(trimmed, "[") {
		return nil
	}
	var wire []lineItemWire
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return nil
	}
	items := make([]LineItem, 0, len(wire))
	for _, w := range wire {
		id := rawID(w.ProductID)
		if id == "" {
			id = rawID(w.LegacyProductID)
		}
		items = append(items, LineItem{ProductID: id, Quantity: w.Quantity, Price: w.Price})
	}
	return items
}

// EncodeLineItems is the inverse of ParseLineItems, used by seeders.
func EncodeLineItems(items []LineItem) string {
	payload, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func rawID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(trimmed)
}
