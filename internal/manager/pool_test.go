// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/resource"
)

func TestPool_GetReusesPerOwner(t *testing.T) {
	p := NewPool(&fakeAPI{}, nil)
	pages := definition(t, resource.Pages)
	leads := definition(t, resource.Leads)

	a := p.Get("owner-a", pages)
	assert.Same(t, a, p.Get("owner-a", pages))
	assert.NotSame(t, a, p.Get("owner-b", pages))
	assert.NotSame(t, a, p.Get("owner-a", leads))
	assert.Equal(t, 2, p.Len())
}

func TestPool_ReleaseClosesManagers(t *testing.T) {
	p := NewPool(&fakeAPI{}, nil)
	m := p.Get("owner", definition(t, resource.Services))

	p.Release("owner")
	assert.Equal(t, 0, p.Len())
	assert.ErrorIs(t, m.Load(context.Background(), apiclient.ListQuery{}), ErrClosed)
	assert.NotSame(t, m, p.Get("owner", definition(t, resource.Services)))

	p.Release("unknown")
}

func TestPool_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewPool(&fakeAPI{}, nil)
	p.now = func() time.Time { return now }

	idle := p.Get("idle", definition(t, resource.Pages))
	now = now.Add(90 * time.Minute)
	active := p.Get("active", definition(t, resource.Pages))
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 1, p.Sweep(2*time.Hour))
	assert.Equal(t, 1, p.Len())
	assert.ErrorIs(t, idle.Reload(context.Background()), ErrClosed)
	assert.Same(t, active, p.Get("active", definition(t, resource.Pages)))
}
