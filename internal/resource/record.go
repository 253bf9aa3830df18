// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package resource describes the admin-managed collections (pages, services,
// forms, messages, leads) and the records they hold.
package resource

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Well-known record fields.
const (
	FieldID           = "id"
	FieldDisplayOrder = "display_order"
	FieldIsRead       = "is_read"
	FieldCreatedAt    = "created_at"
	FieldDateReceived = "date_received"
)

// Record is a single resource item as returned by the API.
// Records are treated as immutable once shared; use Clone and With to derive new ones.
type Record map[string]any

// ID returns the record identifier normalized to a string.
func (r Record) ID() string {
	return IDString(r[FieldID])
}

// String returns the field value formatted as a string.
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Int returns the field value as an int, reporting whether it could be interpreted as one.
func (r Record) Int(field string) (int, bool) {
	switch v := r[field].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// DisplayOrder returns the record's display order, or 0 when unset.
func (r Record) DisplayOrder() int {
	n, _ := r.Int(FieldDisplayOrder)
	return n
}

// IsRead reports whether the record has been marked as read.
func (r Record) IsRead() bool {
	switch v := r[FieldIsRead].(type) {
	case bool:
		return v
	case json.Number:
		return v.String() == "1"
	case float64:
		return v == 1
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With returns a copy of the record with field set to value.
func (r Record) With(field string, value any) Record {
	out := r.Clone()
	out[field] = value
	return out
}

// IDString normalizes an identifier received from JSON into its string form.
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}

// NextDisplayOrder returns max(display_order)+1 over items, or 1 for an empty collection.
func NextDisplayOrder(items []Record) int {
	if len(items) == 0 {
		return 1
	}
	highest := items[0].DisplayOrder()
	for _, item := range items[1:] {
		if o := item.DisplayOrder(); o > highest {
			highest = o
		}
	}
	return highest + 1
}

// SortByDisplayOrder sorts items by display order, falling back to ID for ties.
func SortByDisplayOrder(items []Record) {
	sort.SliceStable(items, func(i, j int) bool {
		oi, oj := items[i].DisplayOrder(), items[j].DisplayOrder()
		if oi != oj {
			return oi < oj
		}
		return items[i].ID() < items[j].ID()
	})
}

// CountUnread returns how many items have not been marked as read.
func CountUnread(items []Record) int {
	n := 0
	for _, item := range items {
		if !item.IsRead() {
			n++
		}
	}
	return n
}
