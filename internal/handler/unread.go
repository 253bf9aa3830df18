// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/scheduler"
)

// Lister fetches one page of a collection.
type Lister interface {
	List(ctx context.Context, def resource.Definition, q apiclient.ListQuery) (apiclient.ListResult, error)
}

// UnreadCounter counts unread records of every resource that tracks read state.
type UnreadCounter struct {
	api      Lister
	registry *resource.Registry
	features *Features
}

// NewUnreadCounter creates an UnreadCounter. Sections disabled in features are skipped.
func NewUnreadCounter(api Lister, registry *resource.Registry, features *Features) *UnreadCounter {
	return &UnreadCounter{api: api, registry: registry, features: features}
}

// For returns a count function that acts with token, independent of any request.
func (c *UnreadCounter) For(token string) scheduler.CountFunc {
	return func(ctx context.Context) (map[string]int, error) {
		return c.Count(apiclient.WithToken(ctx, token))
	}
}

// Count fetches the first page of each read-tracking resource and counts unread items.
func (c *UnreadCounter) Count(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, def := range c.registry.WithReadState() {
		if !c.features.Enabled(def.Name) {
			continue
		}
		res, err := c.api.List(ctx, def, apiclient.ListQuery{Page: 1, Limit: unreadScanLimit})
		if err != nil {
			return nil, err
		}
		counts[def.Name] = resource.CountUnread(res.Items)
	}
	return counts, nil
}
