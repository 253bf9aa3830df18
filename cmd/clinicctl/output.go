// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/clinic-admin/internal/manager"
	"github.com/olegiv/clinic-admin/internal/render"
	"github.com/olegiv/clinic-admin/internal/resource"
)

// cellWidth is the widest value shown in table output.
const cellWidth = 40

func printResources(w io.Writer, defs []resource.Definition) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tENDPOINT\tCREATE\tREAD STATE\tFIELDS")
	for _, def := range defs {
		names := make([]string, 0, len(def.Fields))
		for _, f := range def.Fields {
			names = append(names, f.Name)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			def.Name, def.Endpoint, yesNo(def.Creatable()), yesNo(def.HasReadState), strings.Join(names, ","))
	}
	_ = tw.Flush()
}

// tableColumns returns the id, the read-only columns and then the editable fields.
func tableColumns(def resource.Definition) []string {
	cols := []string{resource.FieldID}
	cols = append(cols, def.Columns...)
	for _, f := range def.Fields {
		cols = append(cols, f.Name)
	}
	if def.HasReadState {
		cols = append(cols, resource.FieldIsRead)
	}
	return cols
}

func printTable(w io.Writer, def resource.Definition, items []resource.Record) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "No items.")
		return
	}
	cols := tableColumns(def)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, item := range items {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cell(item, col)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func cell(item resource.Record, col string) string {
	switch col {
	case resource.FieldIsRead:
		return yesNo(item.IsRead())
	case resource.FieldDateReceived, resource.FieldCreatedAt:
		return render.FormatDate(item.String(col))
	}
	v := strings.Join(strings.Fields(item.String(col)), " ")
	return render.Truncate(v, cellWidth)
}

func printPagination(w io.Writer, def resource.Definition, state manager.State) {
	p := state.Pagination
	_, _ = fmt.Fprintf(w, "\nPage %d of %d, %d total", p.Page, max(p.TotalPages, 1), p.Total)
	if def.HasReadState {
		_, _ = fmt.Fprintf(w, ", %d unread on this page", state.Unread)
	}
	_, _ = fmt.Fprintln(w)
}

func printYAML(w io.Writer, items []resource.Record, p resource.Pagination) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(map[string]any{
		"items":      items,
		"pagination": p,
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
