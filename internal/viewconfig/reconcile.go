package viewconfig

import (
	"sort"
	"strings"
)

// defaultColumns builds one visible column per field, in declaration order.
func defaultColumns(fields []Field) []ColumnConfig {
	fields = uniqueFields(fields)
	out := make([]ColumnConfig, 0, len(fields))
	for i, f := range fields {
		out = append(out, ColumnConfig{
			FieldName: f.Name,
			Label:     fieldLabel(f),
			Visible:   true,
			Order:     i,
		})
	}
	return out
}

// reconcileColumns merges the current field list (authoritative for which
// columns exist) with saved columns (authoritative for visibility and order).
// Saved columns that still exist keep their rank, new fields follow them in
// declaration order, and stale columns are returned separately.
func reconcileColumns(saved []ColumnConfig, fields []Field) (out []ColumnConfig, dropped []string) {
	fields = uniqueFields(fields)
	prev := make(map[string]ColumnConfig, len(saved))
	for _, c := range saved {
		prev[c.FieldName] = c
	}

	type ranked struct {
		col  ColumnConfig
		decl int
	}
	kept := make([]ranked, 0, len(fields))
	added := make([]ColumnConfig, 0)
	present := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		present[f.Name] = struct{}{}
		if c, ok := prev[f.Name]; ok {
			c.Label = fieldLabel(f)
			kept = append(kept, ranked{col: c, decl: i})
			continue
		}
		added = append(added, ColumnConfig{FieldName: f.Name, Label: fieldLabel(f), Visible: true})
	}
	for _, c := range saved {
		if _, ok := present[c.FieldName]; !ok {
			dropped = append(dropped, c.FieldName)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].col.Order != kept[j].col.Order {
			return kept[i].col.Order < kept[j].col.Order
		}
		return kept[i].decl < kept[j].decl
	})

	out = make([]ColumnConfig, 0, len(kept)+len(added))
	for _, k := range kept {
		out = append(out, k.col)
	}
	out = append(out, added...)
	densify(out)
	return out, dropped
}

// reorderColumns ranks the named columns first, in the given order, and the
// omitted ones after them in their previous relative order. Unknown and
// repeated names are ignored.
func reorderColumns(cols []ColumnConfig, names []string) []ColumnConfig {
	cols = sortedColumns(cols)
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.FieldName] = i
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]ColumnConfig, 0, len(cols))
	for _, n := range names {
		n = strings.TrimSpace(n)
		i, ok := index[n]
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, cols[i])
	}
	for _, c := range cols {
		if _, ok := seen[c.FieldName]; !ok {
			out = append(out, c)
		}
	}
	densify(out)
	return out
}

// sortedColumns returns a copy ordered by rank; equal ranks keep slice order.
func sortedColumns(cols []ColumnConfig) []ColumnConfig {
	out := append([]ColumnConfig(nil), cols...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func densify(cols []ColumnConfig) {
	for i := range cols {
		cols[i].Order = i
	}
}

func uniqueFields(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			continue
		}
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f)
	}
	return out
}

func fieldLabel(f Field) string {
	if l := strings.TrimSpace(f.Label); l != "" {
		return l
	}
	return f.Name
}

func sameColumns(a, b []ColumnConfig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
