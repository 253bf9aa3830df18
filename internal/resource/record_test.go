// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{json.Number("42"), "42"},
		{float64(7), "7"},
		{3, "3"},
		{int64(9), "9"},
		{true, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IDString(tt.in), "IDString(%v)", tt.in)
	}
}

func TestRecordInt(t *testing.T) {
	r := Record{
		"a": json.Number("5"),
		"b": float64(2),
		"c": float64(2.5),
		"d": " 8 ",
		"e": "x",
		"f": true,
	}

	n, ok := r.Int("a")
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	n, ok = r.Int("b")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = r.Int("c")
	assert.False(t, ok)
	n, ok = r.Int("d")
	assert.True(t, ok)
	assert.Equal(t, 8, n)
	_, ok = r.Int("e")
	assert.False(t, ok)
	_, ok = r.Int("f")
	assert.False(t, ok)
	_, ok = r.Int("missing")
	assert.False(t, ok)
}

func TestRecordString(t *testing.T) {
	r := Record{"n": json.Number("1.5"), "b": false, "s": "x", "m": map[string]any{"k": "v"}}
	assert.Equal(t, "1.5", r.String("n"))
	assert.Equal(t, "false", r.String("b"))
	assert.Equal(t, "x", r.String("s"))
	assert.Equal(t, `{"k":"v"}`, r.String("m"))
	assert.Equal(t, "", r.String("missing"))
}

func TestRecordIsRead(t *testing.T) {
	assert.True(t, Record{FieldIsRead: true}.IsRead())
	assert.True(t, Record{FieldIsRead: json.Number("1")}.IsRead())
	assert.True(t, Record{FieldIsRead: "true"}.IsRead())
	assert.False(t, Record{FieldIsRead: json.Number("0")}.IsRead())
	assert.False(t, Record{}.IsRead())
}

func TestRecordWithDoesNotMutate(t *testing.T) {
	orig := Record{"id": "1", "title": "Old"}
	next := orig.With("title", "New")

	assert.Equal(t, "Old", orig["title"])
	assert.Equal(t, "New", next["title"])
}

func TestNextDisplayOrder(t *testing.T) {
	assert.Equal(t, 1, NextDisplayOrder(nil))
	assert.Equal(t, 8, NextDisplayOrder([]Record{
		{FieldDisplayOrder: json.Number("3")},
		{FieldDisplayOrder: json.Number("7")},
		{FieldDisplayOrder: json.Number("2")},
	}))
	assert.Equal(t, 1, NextDisplayOrder([]Record{{"id": "1"}}))
}

func TestSortByDisplayOrder(t *testing.T) {
	items := []Record{
		{"id": "c", FieldDisplayOrder: 2},
		{"id": "b", FieldDisplayOrder: 1},
		{"id": "a", FieldDisplayOrder: 2},
	}
	SortByDisplayOrder(items)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID())
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestCountUnread(t *testing.T) {
	items := []Record{
		{FieldIsRead: true},
		{FieldIsRead: false},
		{},
	}
	assert.Equal(t, 2, CountUnread(items))
	assert.Equal(t, 0, CountUnread(nil))
}
