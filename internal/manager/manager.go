// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package manager implements the generic admin collection manager: list with
// pagination and filtering, inline field edits, create, delete and read tracking.
//
// Local state only changes after the server confirms a mutation, and a list
// response that was superseded by a newer request is discarded.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/util"
)

// Manager errors.
var (
	ErrBusy         = errors.New("manager: another change is still in progress")
	ErrStale        = errors.New("manager: response superseded by a newer request")
	ErrClosed       = errors.New("manager: closed")
	ErrNotConfirmed = errors.New("manager: deletion not confirmed")
	ErrNoReadState  = errors.New("manager: resource has no read state")
	ErrNotCreatable = errors.New("manager: resource does not support creation")
)

// Page size and page cap used when a create has to see the whole collection.
const (
	scanLimit    = 100
	maxScanPages = 1000
)

// API is the subset of the resource client used by a Manager.
type API interface {
	List(ctx context.Context, def resource.Definition, q apiclient.ListQuery) (apiclient.ListResult, error)
	Create(ctx context.Context, def resource.Definition, rec resource.Record) (resource.Record, error)
	Update(ctx context.Context, def resource.Definition, id string, fields map[string]any) error
	Delete(ctx context.Context, def resource.Definition, id string) error
	MarkRead(ctx context.Context, def resource.Definition, id string) error
}

// Confirmer approves destructive operations before they are sent.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Status is the load state of a manager.
type Status int

// Manager load states.
const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is a point-in-time copy of a manager's state.
type State struct {
	Status     Status
	Query      apiclient.ListQuery
	Items      []resource.Record
	Pagination resource.Pagination
	Err        error
	Busy       bool
	Unread     int
}

// Manager manages one resource collection. It is safe for concurrent use.
type Manager struct {
	api    API
	def    resource.Definition
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	seq    uint64
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Manager for def.
func New(api API, def resource.Definition, opts ...Option) *Manager {
	m := &Manager{
		api:    api,
		def:    def,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Definition returns the resource definition managed.
func (m *Manager) Definition() resource.Definition {
	return m.def
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Items = append([]resource.Record(nil), m.state.Items...)
	return s
}

// Close abandons the manager: responses arriving afterwards no longer touch its state.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Load fetches one page. A response whose request was superseded by a later Load
// is dropped and ErrStale is returned. On failure the previously loaded items stay.
func (m *Manager) Load(ctx context.Context, q apiclient.ListQuery) error {
	if q.Page < 1 {
		q.Page = resource.DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = resource.DefaultLimit
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.seq++
	seq := m.seq
	m.state.Status = StatusLoading
	m.state.Query = q
	m.mu.Unlock()

	res, err := m.api.List(ctx, m.def, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if seq != m.seq {
		m.logger.Debug("dropping stale list response", "resource", m.def.Name, "filter", q.Filter)
		return ErrStale
	}
	if err != nil {
		m.state.Status = StatusError
		m.state.Err = err
		return err
	}

	items := res.Items
	if m.def.Orderable {
		resource.SortByDisplayOrder(items)
	}
	m.state.Status = StatusLoaded
	m.state.Items = items
	m.state.Pagination = res.Pagination
	m.state.Err = nil
	if m.def.HasReadState {
		m.state.Unread = resource.CountUnread(items)
	}
	return nil
}

// Reload repeats the last query.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	q := m.state.Query
	m.mu.Unlock()
	return m.Load(ctx, q)
}

// Create validates input, assigns the next display order for orderable resources,
// posts the record and appends the server's copy to the list.
func (m *Manager) Create(ctx context.Context, input map[string]string) (resource.Record, error) {
	if !m.def.Creatable() {
		return nil, ErrNotCreatable
	}
	draft, err := m.def.ParseInput(input)
	if err != nil {
		m.setErr(err)
		return nil, err
	}
	if m.def.SlugField != "" {
		if slug := draft.String(m.def.SlugField); slug == "" {
			draft[m.def.SlugField] = util.Slugify(draft.String(m.def.TitleField))
		} else if !util.IsValidSlug(slug) {
			err := &resource.ValidationError{Field: m.def.SlugField, Message: "use lowercase letters, digits and hyphens"}
			m.setErr(err)
			return nil, err
		}
	}

	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	if m.def.Orderable {
		next, err := m.nextDisplayOrder(ctx)
		if err != nil {
			m.setErr(err)
			return nil, err
		}
		draft[resource.FieldDisplayOrder] = next
	}

	created, err := m.api.Create(ctx, m.def, draft)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if err != nil {
		m.state.Err = err
		return nil, err
	}
	m.state.Items = append(append([]resource.Record(nil), m.state.Items...), created)
	m.state.Pagination = m.state.Pagination.WithTotal(m.state.Pagination.Total + 1)
	m.state.Err = nil
	return created, nil
}

// UpdateField validates raw input for one field and sends only that field.
// The local item changes only after the server accepts the update; an unchanged
// value sends nothing. Ids outside the loaded list are sent as they are.
func (m *Manager) UpdateField(ctx context.Context, id, field, raw string) error {
	f, ok := m.def.Field(field)
	if !ok {
		err := &resource.ValidationError{Field: field, Message: "is not editable"}
		m.setErr(err)
		return err
	}
	value, err := f.Parse(raw)
	if err != nil {
		m.setErr(err)
		return err
	}

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	m.mu.Lock()
	var (
		current any
		present bool
	)
	if idx := m.indexOf(id); idx >= 0 {
		current, present = m.state.Items[idx][field]
	}
	m.mu.Unlock()
	if present && sameValue(current, value) {
		return nil
	}

	err = m.api.Update(ctx, m.def, id, map[string]any{field: value})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err != nil {
		m.state.Err = err
		return err
	}
	if idx := m.indexOf(id); idx >= 0 {
		m.replace(idx, m.state.Items[idx].With(field, value))
		if field == resource.FieldDisplayOrder && m.def.Orderable {
			resource.SortByDisplayOrder(m.state.Items)
		}
	}
	m.state.Err = nil
	return nil
}

// Remove deletes one record after confirm approves. Without approval no request is made.
// Ids outside the loaded list are sent as they are.
func (m *Manager) Remove(ctx context.Context, id string, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(ctx, m.def.Name+"/"+id) {
		return ErrNotConfirmed
	}

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	err := m.api.Delete(ctx, m.def, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err != nil {
		m.state.Err = err
		return err
	}
	if idx := m.indexOf(id); idx >= 0 {
		removed := m.state.Items[idx]
		items := make([]resource.Record, 0, len(m.state.Items)-1)
		items = append(items, m.state.Items[:idx]...)
		items = append(items, m.state.Items[idx+1:]...)
		m.state.Items = items
		m.state.Pagination = m.state.Pagination.WithTotal(m.state.Pagination.Total - 1)
		if m.def.HasReadState && !removed.IsRead() && m.state.Unread > 0 {
			m.state.Unread--
		}
	}
	m.state.Err = nil
	return nil
}

// MarkAsRead marks one record as read. Loaded records already read are left
// alone and no request is sent. Ids outside the loaded list are sent as they are.
// There is no inverse operation.
func (m *Manager) MarkAsRead(ctx context.Context, id string) error {
	if !m.def.HasReadState {
		return ErrNoReadState
	}

	m.mu.Lock()
	idx := m.indexOf(id)
	read := idx >= 0 && m.state.Items[idx].IsRead()
	m.mu.Unlock()
	if read {
		return nil
	}

	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	err := m.api.MarkRead(ctx, m.def, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err != nil {
		m.state.Err = err
		return err
	}
	if idx := m.indexOf(id); idx >= 0 && !m.state.Items[idx].IsRead() {
		m.replace(idx, m.state.Items[idx].With(resource.FieldIsRead, true))
		if m.state.Unread > 0 {
			m.state.Unread--
		}
	}
	m.state.Err = nil
	return nil
}

// nextDisplayOrder returns max(display_order)+1 over the whole collection.
// The loaded items are enough only when they are the single unfiltered page;
// otherwise every page is listed without a filter.
func (m *Manager) nextDisplayOrder(ctx context.Context) (int, error) {
	m.mu.Lock()
	s := m.state
	m.mu.Unlock()
	if s.Status == StatusLoaded && s.Query.Filter == "" && s.Query.Page <= 1 && s.Pagination.TotalPages <= 1 {
		return resource.NextDisplayOrder(s.Items), nil
	}

	var all []resource.Record
	for page := 1; page <= maxScanPages; page++ {
		res, err := m.api.List(ctx, m.def, apiclient.ListQuery{Page: page, Limit: scanLimit})
		if err != nil {
			return 0, err
		}
		all = append(all, res.Items...)
		if len(res.Items) == 0 || page >= res.Pagination.TotalPages {
			break
		}
	}
	return resource.NextDisplayOrder(all), nil
}

// ClearError drops the stored error message.
func (m *Manager) ClearError() {
	m.setErr(nil)
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.state.Busy {
		return ErrBusy
	}
	m.state.Busy = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.state.Busy = false
	m.mu.Unlock()
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.state.Err = err
	m.mu.Unlock()
}

// indexOf must be called with mu held.
func (m *Manager) indexOf(id string) int {
	for i, item := range m.state.Items {
		if item.ID() == id {
			return i
		}
	}
	return -1
}

// replace swaps in a new record using a fresh slice so earlier snapshots stay unchanged.
// Must be called with mu held.
func (m *Manager) replace(idx int, rec resource.Record) {
	items := append([]resource.Record(nil), m.state.Items...)
	items[idx] = rec
	m.state.Items = items
}

func sameValue(current, next any) bool {
	if reflect.DeepEqual(current, next) {
		return true
	}
	return resource.Record{"v": current}.String("v") == resource.Record{"v": next}.String("v")
}
