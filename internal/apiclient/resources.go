// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/olegiv/clinic-admin/internal/resource"
)

// ListQuery selects one page of a collection.
type ListQuery struct {
	Page   int
	Limit  int
	Filter string
}

// Values encodes the query as URL parameters.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = resource.DefaultPage
	}
	if limit < 1 {
		limit = resource.DefaultLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if f := strings.TrimSpace(q.Filter); f != "" {
		v.Set("filter", f)
	}
	return v
}

// List fetches one page of the collection described by def.
func (c *Client) List(ctx context.Context, def resource.Definition, q ListQuery) (ListResult, error) {
	raw, err := c.Do(ctx, http.MethodGet, def.Endpoint+"?"+q.Values().Encode(), nil)
	if err != nil {
		return ListResult{}, err
	}
	return NormalizeList(raw, def.ItemKey, q.Page, q.Limit)
}

// Create posts a new record and returns it as stored by the server.
func (c *Client) Create(ctx context.Context, def resource.Definition, rec resource.Record) (resource.Record, error) {
	raw, err := c.Do(ctx, http.MethodPost, def.Endpoint, rec)
	if err != nil {
		return nil, err
	}
	created, err := NormalizeRecord(raw)
	if err != nil {
		return nil, err
	}
	if created.ID() == "" {
		return nil, ErrMissingRecord
	}
	return created, nil
}

// Update sends a partial update for one record.
func (c *Client) Update(ctx context.Context, def resource.Definition, id string, fields map[string]any) error {
	_, err := c.Do(ctx, def.Method(), itemPath(def, id), fields)
	return err
}

// Delete removes one record. A {"success": false} body is reported as a RequestError.
func (c *Client) Delete(ctx context.Context, def resource.Definition, id string) error {
	raw, err := c.Do(ctx, http.MethodDelete, itemPath(def, id), nil)
	if err != nil {
		return err
	}
	var ack struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if json.Unmarshal(bytes.TrimSpace(raw), &ack) == nil && ack.Success != nil && !*ack.Success {
		msg := ack.Message
		if msg == "" {
			msg = "delete was not acknowledged"
		}
		return &RequestError{Status: http.StatusOK, Message: msg}
	}
	return nil
}

// MarkRead sets is_read=true on one record.
func (c *Client) MarkRead(ctx context.Context, def resource.Definition, id string) error {
	_, err := c.Do(ctx, http.MethodPut, itemPath(def, id)+"/read", map[string]any{resource.FieldIsRead: true})
	return err
}

func itemPath(def resource.Definition, id string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(def.Endpoint, "/"), url.PathEscape(id))
}
