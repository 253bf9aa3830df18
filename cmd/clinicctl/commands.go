// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/manager"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/session"
)

// scanLimit is the page size loaded before a record is changed.
const scanLimit = 100

type loginCmd struct {
	Email    string `required:"" env:"CLINIC_EMAIL" help:"Admin e-mail."`
	Password string `env:"CLINIC_PASSWORD" help:"Admin password (prompted when empty)."`
}

func (cmd *loginCmd) Run(ctx context.Context, a *app) error {
	password := cmd.Password
	if password == "" {
		p, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		password = p
	}
	if strings.TrimSpace(cmd.Email) == "" || password == "" {
		return session.ErrMissingCredentials
	}

	client, err := a.api()
	if err != nil {
		return err
	}
	res, err := client.Login(ctx, strings.TrimSpace(cmd.Email), password)
	if err != nil {
		return errors.New(apiclient.Message(err))
	}
	user := res.User
	if err := a.tokens.Save(session.Session{Token: res.Token, User: &user}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

type logoutCmd struct{}

func (cmd *logoutCmd) Run(a *app) error {
	if err := a.tokens.Clear(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, "Logged out")
	return nil
}

type resourcesCmd struct{}

func (cmd *resourcesCmd) Run(a *app) error {
	printResources(a.out, a.registry.All())
	return nil
}

type listCmd struct {
	Resource string `arg:"" help:"Collection name."`
	Page     int    `default:"1" help:"Page number."`
	Limit    int    `default:"10" help:"Items per page."`
	Filter   string `help:"Server-side filter."`
	Output   string `short:"o" enum:"table,yaml" default:"table" help:"Output format (table, yaml)."`
}

func (cmd *listCmd) Run(ctx context.Context, a *app) error {
	def, err := a.definition(cmd.Resource)
	if err != nil {
		return err
	}
	client, err := a.api()
	if err != nil {
		return err
	}
	m := manager.New(client, def)
	if err := m.Load(ctx, apiclient.ListQuery{Page: cmd.Page, Limit: cmd.Limit, Filter: cmd.Filter}); err != nil {
		return errors.New(apiclient.Message(err))
	}
	state := m.Snapshot()
	if cmd.Output == "yaml" {
		return printYAML(a.out, state.Items, state.Pagination)
	}
	printTable(a.out, def, state.Items)
	printPagination(a.out, def, state)
	return nil
}

type createCmd struct {
	Resource string   `arg:"" help:"Collection name."`
	Fields   []string `arg:"" help:"field=value pairs."`
}

func (cmd *createCmd) Run(ctx context.Context, a *app) error {
	def, err := a.definition(cmd.Resource)
	if err != nil {
		return err
	}
	input, err := parseAssignments(cmd.Fields)
	if err != nil {
		return err
	}

	client, err := a.api()
	if err != nil {
		return err
	}
	m := manager.New(client, def)
	created, err := m.Create(ctx, input)
	if err != nil {
		if errors.Is(err, manager.ErrNotCreatable) {
			return fmt.Errorf("clinicctl: %s records cannot be created here", def.Name)
		}
		return errors.New(apiclient.Message(err))
	}
	_, _ = fmt.Fprintf(a.out, "Created %s %s\n", def.Name, created.ID())
	return nil
}

// locator picks the page loaded before a record is changed. Records outside
// that page are still sent; only the page summary is affected.
type locator struct {
	Page   int    `default:"1" help:"Page to load for the summary."`
	Filter string `help:"Server-side filter for the loaded page."`
}

func (l locator) load(ctx context.Context, a *app, def resource.Definition) (*manager.Manager, error) {
	client, err := a.api()
	if err != nil {
		return nil, err
	}
	m := manager.New(client, def)
	if err := m.Load(ctx, apiclient.ListQuery{Page: l.Page, Limit: scanLimit, Filter: l.Filter}); err != nil {
		return nil, errors.New(apiclient.Message(err))
	}
	return m, nil
}

type setCmd struct {
	Resource string `arg:"" help:"Collection name."`
	ID       string `arg:"" help:"Record id."`
	Field    string `arg:"" help:"Field name."`
	Value    string `arg:"" help:"New value."`

	Locator locator `embed:""`
}

func (cmd *setCmd) Run(ctx context.Context, a *app) error {
	def, err := a.definition(cmd.Resource)
	if err != nil {
		return err
	}
	m, err := cmd.Locator.load(ctx, a, def)
	if err != nil {
		return err
	}
	if err := m.UpdateField(ctx, cmd.ID, cmd.Field, cmd.Value); err != nil {
		return describe(err, def, cmd.ID)
	}
	_, _ = fmt.Fprintf(a.out, "Updated %s %s: %s\n", def.Name, cmd.ID, cmd.Field)
	return nil
}

type deleteCmd struct {
	Resource string `arg:"" help:"Collection name."`
	ID       string `arg:"" help:"Record id."`
	Yes      bool   `short:"y" help:"Do not ask for confirmation."`

	Locator locator `embed:""`
}

func (cmd *deleteCmd) Run(ctx context.Context, a *app) error {
	def, err := a.definition(cmd.Resource)
	if err != nil {
		return err
	}
	confirm := manager.ConfirmFunc(func(_ context.Context, target string) bool {
		if cmd.Yes {
			return true
		}
		answer, err := a.prompt(fmt.Sprintf("Delete %s? [y/N] ", target))
		if err != nil {
			return false
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes"
	})

	m, err := cmd.Locator.load(ctx, a, def)
	if err != nil {
		return err
	}
	if err := m.Remove(ctx, cmd.ID, confirm); err != nil {
		if errors.Is(err, manager.ErrNotConfirmed) {
			_, _ = fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
		return describe(err, def, cmd.ID)
	}
	_, _ = fmt.Fprintf(a.out, "Deleted %s %s\n", def.Name, cmd.ID)
	return nil
}

type readCmd struct {
	Resource string `arg:"" help:"Collection name."`
	ID       string `arg:"" help:"Record id."`

	Locator locator `embed:""`
}

func (cmd *readCmd) Run(ctx context.Context, a *app) error {
	def, err := a.definition(cmd.Resource)
	if err != nil {
		return err
	}
	if !def.HasReadState {
		return fmt.Errorf("clinicctl: %s records have no read state", def.Name)
	}
	m, err := cmd.Locator.load(ctx, a, def)
	if err != nil {
		return err
	}
	if err := m.MarkAsRead(ctx, cmd.ID); err != nil {
		return describe(err, def, cmd.ID)
	}
	_, _ = fmt.Fprintf(a.out, "Marked %s %s as read (%d unread on this page)\n", def.Name, cmd.ID, m.Snapshot().Unread)
	return nil
}

// describe turns manager and client errors into a CLI message.
func describe(err error, def resource.Definition, id string) error {
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound {
		return fmt.Errorf("clinicctl: %s %s not found", def.Name, id)
	}
	return errors.New(apiclient.Message(err))
}

// parseAssignments splits field=value arguments.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("clinicctl: expected field=value, got %q", arg)
		}
		out[strings.TrimSpace(name)] = value
	}
	return out, nil
}

func trimLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}
