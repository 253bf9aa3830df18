// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple title", input: "Hello World", expected: "hello-world"},
		{name: "with special characters", input: "ADHD: What now?", expected: "adhd-what-now"},
		{name: "with numbers", input: "Step 2 Diagnosis", expected: "step-2-diagnosis"},
		{name: "with accents", input: "Café résumé", expected: "cafe-resume"},
		{name: "with multiple spaces", input: "About   Us", expected: "about-us"},
		{name: "with hyphens", input: "Forms - Downloads", expected: "forms-downloads"},
		{name: "with leading/trailing spaces", input: "  Contact  ", expected: "contact"},
		{name: "all special characters", input: "!@#$%^&*()", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugify_Hebrew(t *testing.T) {
	got := Slugify("אבחון הפרעת קשב")
	if got == "" {
		t.Fatal("Slugify() returned empty slug for Hebrew title")
	}
	if !IsValidSlug(got) {
		t.Errorf("Slugify() = %q, not a valid slug", got)
	}
}

func TestSlugify_MaxLength(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 40))
	if len(got) > MaxSlugLength {
		t.Errorf("len(Slugify()) = %d, want <= %d", len(got), MaxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("Slugify() = %q ends with a hyphen", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"hello-world", true},
		{"page-2", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"Upper", false},
		{"with space", false},
		{strings.Repeat("a", MaxSlugLength+1), false},
	}

	for _, tt := range tests {
		if got := IsValidSlug(tt.slug); got != tt.want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}
