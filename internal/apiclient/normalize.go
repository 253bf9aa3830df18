// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/olegiv/clinic-admin/internal/resource"
)

// ListResult is the canonical list shape: items plus pagination.
type ListResult struct {
	Items      []resource.Record   `json:"items"`
	Pagination resource.Pagination `json:"pagination"`
}

// listKeys are the response keys that may hold a list, checked in order after "items".
var listKeys = []string{"data", "results", "rows"}

// wirePagination accepts the pagination spellings seen in API responses.
type wirePagination struct {
	Total      *int `json:"total"`
	TotalCount *int `json:"totalCount"`
	Page       *int `json:"page"`
	Limit      *int `json:"limit"`
	PerPage    *int `json:"per_page"`
}

// NormalizeList converts any supported list response into a ListResult.
//
// Accepted shapes: a bare array; an object with the list under "items", itemKey,
// "data", "results" or "rows"; or {"data": {...}} wrapping one of those. Pagination is
// read from "pagination" or "meta" when present and synthesized from the item
// count otherwise. page and limit are the values that were requested.
func NormalizeList(raw json.RawMessage, itemKey string, page, limit int) (ListResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ListResult{Items: []resource.Record{}, Pagination: resource.SynthesizePagination(0, page, limit)}, nil
	}

	if raw[0] == '[' {
		items, err := decodeItems(raw)
		if err != nil {
			return ListResult{}, err
		}
		return ListResult{Items: items, Pagination: resource.SynthesizePagination(len(items), page, limit)}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ListResult{}, fmt.Errorf("apiclient: decode list: %w", err)
	}

	items, found, err := findItems(obj, itemKey)
	if err != nil {
		return ListResult{}, err
	}
	if !found {
		// {"data": {"items": [...], "pagination": {...}}}
		if inner, ok := obj["data"]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
			return NormalizeList(inner, itemKey, page, limit)
		}
		items = []resource.Record{}
	}

	pg, ok := findPagination(obj)
	if !ok {
		return ListResult{Items: items, Pagination: resource.SynthesizePagination(len(items), page, limit)}, nil
	}
	total := len(items)
	if pg.Total != nil {
		total = *pg.Total
	} else if pg.TotalCount != nil {
		total = *pg.TotalCount
	}
	if pg.Page != nil {
		page = *pg.Page
	}
	if pg.Limit != nil {
		limit = *pg.Limit
	} else if pg.PerPage != nil {
		limit = *pg.PerPage
	}
	return ListResult{Items: items, Pagination: resource.SynthesizePagination(total, page, limit)}, nil
}

func findItems(obj map[string]json.RawMessage, itemKey string) ([]resource.Record, bool, error) {
	keys := append([]string{"items"}, itemKey)
	keys = append(keys, listKeys...)
	for _, key := range keys {
		if key == "" {
			continue
		}
		v, ok := obj[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '[' {
			continue
		}
		items, err := decodeItems(v)
		if err != nil {
			return nil, false, err
		}
		return items, true, nil
	}
	return nil, false, nil
}

func findPagination(obj map[string]json.RawMessage) (wirePagination, bool) {
	for _, key := range []string{"pagination", "meta"} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		var pg wirePagination
		if err := json.Unmarshal(v, &pg); err != nil {
			continue
		}
		if pg.Total != nil || pg.TotalCount != nil || pg.Page != nil || pg.Limit != nil || pg.PerPage != nil {
			return pg, true
		}
	}
	return wirePagination{}, false
}

func decodeItems(raw json.RawMessage) ([]resource.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []resource.Record
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("apiclient: decode items: %w", err)
	}
	if items == nil {
		items = []resource.Record{}
	}
	return items, nil
}

// NormalizeRecord extracts a single record from a response. An object without its
// own id is unwrapped from {"data": record} or {"item": record}. It returns nil
// when the payload holds no record.
func NormalizeRecord(raw json.RawMessage) (resource.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec resource.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("apiclient: decode record: %w", err)
	}
	if rec.ID() != "" {
		return rec, nil
	}
	for _, key := range []string{"data", "item"} {
		if inner, ok := rec[key].(map[string]any); ok {
			return resource.Record(inner), nil
		}
	}
	return nil, nil
}
