// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/clinic-admin/internal/apiclient"
)

// TokenFile persists a session to a YAML file for the command-line tool.
// It upholds the same invariant as Auth: a file with only one of token/user is
// treated as logged out and removed.
type TokenFile struct {
	path string

	mu      sync.Mutex
	expired bool
}

type tokenFileDoc struct {
	Token string          `yaml:"token"`
	User  *apiclient.User `yaml:"user"`
}

// NewTokenFile returns a TokenFile stored at path.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// DefaultTokenFilePath returns the per-user location of the CLI session file.
func DefaultTokenFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: locate config dir: %w", err)
	}
	return filepath.Join(dir, "clinic-admin", "session.yaml"), nil
}

// Path returns the file location.
func (f *TokenFile) Path() string {
	return f.path
}

// Load reads the stored session.
func (f *TokenFile) Load() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *TokenFile) load() (Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	var doc tokenFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Session{}, fmt.Errorf("session: parse %s: %w", f.path, err)
	}
	s := Session{Token: doc.Token, User: doc.User}
	if !s.IsAuthenticated() {
		if s.Token != "" || s.User != nil {
			_ = os.Remove(f.path)
		}
		return Session{}, nil
	}
	return s, nil
}

// Save writes token and user together with owner-only permissions.
func (f *TokenFile) Save(s Session) error {
	if !s.IsAuthenticated() {
		return errors.New("session: refusing to save a session without token and user")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(tokenFileDoc{Token: s.Token, User: s.User})
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("session: replace: %w", err)
	}
	f.expired = false
	return nil
}

// Clear removes the stored session.
func (f *TokenFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", f.path, err)
	}
	return nil
}

// Token implements apiclient.TokenSource.
func (f *TokenFile) Token(context.Context) string {
	s, err := f.Load()
	if err != nil {
		return ""
	}
	return s.Token
}

// LoginRequired implements apiclient.AuthObserver.
func (f *TokenFile) LoginRequired(context.Context) {}

// SessionExpired implements apiclient.AuthObserver by removing the stored session.
func (f *TokenFile) SessionExpired(context.Context) {
	_ = f.Clear()
	f.mu.Lock()
	f.expired = true
	f.mu.Unlock()
}

// Expired reports whether the API rejected the stored session since the last Save.
func (f *TokenFile) Expired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}
