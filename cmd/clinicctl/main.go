// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command clinicctl manages clinic site content from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/olegiv/clinic-admin/internal/apiclient"
	"github.com/olegiv/clinic-admin/internal/resource"
	"github.com/olegiv/clinic-admin/internal/session"
	"github.com/olegiv/clinic-admin/internal/version"
)

// Build-time variables injected via ldflags.
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

type cli struct {
	APIURL    string `name:"api-url" env:"CLINIC_API_URL" help:"Clinic API base URL."`
	TokenFile string `name:"token-file" env:"CLINIC_TOKEN_FILE" type:"path" help:"Where the login session is stored (defaults to the user config dir)."`
	Verbose   bool   `short:"v" help:"Log requests to stderr."`

	Version kong.VersionFlag `help:"Show version information."`

	Login     loginCmd     `cmd:"" help:"Log in and store the session token."`
	Logout    logoutCmd    `cmd:"" help:"Forget the stored session."`
	Resources resourcesCmd `cmd:"" help:"List the managed collections."`
	List      listCmd      `cmd:"" help:"List one page of a collection."`
	Create    createCmd    `cmd:"" help:"Create a record from field=value pairs."`
	Set       setCmd       `cmd:"" help:"Update one field of a record."`
	Delete    deleteCmd    `cmd:"" help:"Delete a record."`
	Read      readCmd      `cmd:"" help:"Mark a message or lead as read."`
}

// app carries the dependencies bound into every command's Run method.
type app struct {
	client   *apiclient.Client
	tokens   *session.TokenFile
	registry *resource.Registry
	in       *bufio.Reader
	out      io.Writer
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("clinicctl"),
		kong.Description("Command-line admin for the clinic site."),
		kong.UsageOnError(),
		kong.Vars{"version": "clinicctl " + info.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a, err := newApp(c, info, logger)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(a)
	if a.tokens.Expired() {
		_, _ = fmt.Fprintln(os.Stderr, "Session expired; run `clinicctl login` again.")
	}
	kctx.FatalIfErrorf(err)
}

func newApp(c cli, info version.Info, logger *slog.Logger) (*app, error) {
	path := c.TokenFile
	if path == "" {
		p, err := session.DefaultTokenFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	tokens := session.NewTokenFile(path)

	a := &app{
		tokens:   tokens,
		registry: resource.Builtin(),
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	if c.APIURL != "" {
		client, err := apiclient.New(apiclient.Config{
			BaseURL:   c.APIURL,
			UserAgent: info.UserAgent("clinicctl"),
			Tokens:    tokens,
			Observer:  tokens,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		a.client = client
	}
	return a, nil
}

// errNoAPIURL is returned by commands that talk to the API when no URL is configured.
var errNoAPIURL = errors.New("clinicctl: --api-url or CLINIC_API_URL is required")

// api returns the API client.
func (a *app) api() (*apiclient.Client, error) {
	if a.client == nil {
		return nil, errNoAPIURL
	}
	return a.client, nil
}

// definition looks up a collection by name.
func (a *app) definition(name string) (resource.Definition, error) {
	def, ok := a.registry.Lookup(name)
	if !ok {
		return resource.Definition{}, fmt.Errorf("clinicctl: unknown resource %q (see `clinicctl resources`)", name)
	}
	return def, nil
}

// prompt prints question and reads one line from stdin.
func (a *app) prompt(question string) (string, error) {
	_, _ = fmt.Fprint(a.out, question)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return trimLine(line), nil
}
