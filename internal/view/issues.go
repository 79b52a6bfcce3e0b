package view

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robby/leander/internal/domain"
)

// None is the value of an unset field, and the key of the group holding
// issues without one.
const None = "none"

type kind int

const (
	kindText kind = iota
	kindNumber
	kindRanked
	kindList
)

type fieldDef struct {
	kind   kind
	rank   []string // natural order of kindRanked values
	values func(domain.Issue) []string
}

func one(s string) []string { return []string{s} }

func optional[T ~string](v *T) []string {
	if v == nil {
		return one(None)
	}
	return one(string(*v))
}

func millis(d time.Duration) []string {
	return one(strconv.FormatInt(d.Milliseconds(), 10))
}

var fields = map[string]fieldDef{
	"link":   {kind: kindNumber, values: func(i domain.Issue) []string { return one(strconv.Itoa(i.Number)) }},
	"number": {kind: kindNumber, values: func(i domain.Issue) []string { return one(strconv.Itoa(i.Number)) }},
	"title":  {kind: kindText, values: func(i domain.Issue) []string { return one(i.Title) }},
	"author": {kind: kindText, values: func(i domain.Issue) []string {
		if i.Author == "" {
			return one(None)
		}
		return one(i.Author)
	}},
	"severity": {
		kind:   kindRanked,
		rank:   []string{string(domain.SeverityBug), string(domain.SeverityFeature), string(domain.SeverityUnknown)},
		values: func(i domain.Issue) []string { return optional(i.Severity) },
	},
	"priority": {
		kind:   kindRanked,
		rank:   []string{string(domain.PriorityP0), string(domain.PriorityP1), string(domain.PriorityP2), string(domain.PriorityP3)},
		values: func(i domain.Issue) []string { return optional(i.Priority) },
	},
	"status": {
		kind:   kindRanked,
		rank:   []string{string(domain.StatusOpen), string(domain.StatusClosed)},
		values: func(i domain.Issue) []string { return one(string(i.Status)) },
	},
	"source": {
		kind:   kindRanked,
		rank:   []string{string(domain.SourceInternal), string(domain.SourceExternal)},
		values: func(i domain.Issue) []string { return one(string(i.Source)) },
	},
	"phase":    {kind: kindText, values: func(i domain.Issue) []string { return optional(i.Phase) }},
	"stage":    {kind: kindText, values: func(i domain.Issue) []string { return optional(i.Phase) }},
	"assigned": {kind: kindRanked, rank: []string{"false", "true"}, values: func(i domain.Issue) []string { return one(strconv.FormatBool(i.Assigned)) }},
	"triaged":  {kind: kindRanked, rank: []string{"false", "true"}, values: func(i domain.Issue) []string { return one(strconv.FormatBool(i.Triaged)) }},
	"activity": {kind: kindNumber, values: func(i domain.Issue) []string { return one(strconv.Itoa(i.Activity)) }},
	"size": {kind: kindNumber, values: func(i domain.Issue) []string {
		if i.Size == nil {
			return one(None)
		}
		return one(strconv.Itoa(*i.Size))
	}},
	"age":     {kind: kindNumber, values: func(i domain.Issue) []string { return millis(i.Age) }},
	"updated": {kind: kindNumber, values: func(i domain.Issue) []string { return millis(i.Updated) }},
	"projects": {kind: kindList, values: func(i domain.Issue) []string {
		out := make([]string, 0, len(i.Projects))
		for _, p := range i.Projects {
			out = append(out, domain.ProjectName(p))
		}
		return out
	}},
	"labels": {kind: kindList, values: func(i domain.Issue) []string {
		out := make([]string, 0, len(i.Labels))
		for _, l := range i.Labels {
			out = append(out, l.Name)
		}
		return out
	}},
	"assignees": {kind: kindList, values: func(i domain.Issue) []string { return slices.Clone(i.Assignees) }},
	"columns":   {kind: kindList, values: func(i domain.Issue) []string { return slices.Clone(i.Columns) }},
}

// fieldName accepts "projects.[].name" style paths and keeps the first segment.
func fieldName(path string) string {
	name, _, _ := strings.Cut(path, ".")
	return name
}

// IsField reports whether name, or the path it starts, is a known issue field.
func IsField(name string) bool {
	_, ok := fields[fieldName(name)]
	return ok
}

// Values returns an issue's values for a field. List fields may return
// none; every other field returns exactly one value, None when unset.
func Values(issue domain.Issue, name string) []string {
	def, ok := fields[fieldName(name)]
	if !ok {
		return nil
	}
	return def.values(issue)
}

// Field renders a field as a single string; list fields are comma separated.
func Field(issue domain.Issue, name string) string {
	vals := Values(issue, name)
	if len(vals) == 0 {
		if IsField(name) {
			return None
		}
		return ""
	}
	return strings.Join(vals, ", ")
}

// Filter keeps the issues matching every entry of filter. Order is preserved.
func Filter(issues []domain.Issue, filter FilterSpec) []domain.Issue {
	out := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if matches(issue, filter) {
			out = append(out, issue)
		}
	}
	return out
}

func matches(issue domain.Issue, filter FilterSpec) bool {
	for field, want := range filter {
		have := Values(issue, field)
		if len(have) == 0 {
			have = one(None)
		}
		if !anyEqual(have, wantedValues(want)) {
			return false
		}
	}
	return true
}

func wantedValues(v any) []string {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, formatValue(item))
		}
		return out
	}
	return one(formatValue(v))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return None
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func anyEqual(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// Sort orders issues by each FieldOrder in turn; ties keep their input order.
// Unset values sort last in both directions.
func Sort(issues []domain.Issue, orders []FieldOrder) []domain.Issue {
	out := slices.Clone(issues)
	slices.SortStableFunc(out, func(a, b domain.Issue) int {
		for _, o := range orders {
			def, ok := fields[fieldName(o.Field)]
			if !ok {
				continue
			}
			av, bv := Field(a, o.Field), Field(b, o.Field)
			if c := compareNone(av, bv); c != 0 {
				return c
			}
			c := compareValues(def, av, bv)
			if o.Order == Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

func compareNone(a, b string) int {
	switch {
	case a == None && b != None:
		return 1
	case a != None && b == None:
		return -1
	}
	return 0
}

func compareValues(def fieldDef, a, b string) int {
	switch def.kind {
	case kindNumber:
		an, aerr := strconv.ParseInt(a, 10, 64)
		bn, berr := strconv.ParseInt(b, 10, 64)
		if aerr == nil && berr == nil {
			return cmp.Compare(an, bn)
		}
	case kindRanked:
		ai, bi := slices.Index(def.rank, a), slices.Index(def.rank, b)
		if ai >= 0 && bi >= 0 {
			return cmp.Compare(ai, bi)
		}
	}
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Group is one bucket of a grouped view.
type Group struct {
	Key    string
	Issues []domain.Issue
}

// GroupBy buckets issues by a field. An issue lands in one group per value
// of a list field. Groups follow the field's natural order with None last;
// issues keep their input order within a group.
func GroupBy(issues []domain.Issue, field string) []Group {
	def, ok := fields[fieldName(field)]
	if !ok {
		return nil
	}

	buckets := make(map[string][]domain.Issue)
	for _, issue := range issues {
		keys := def.values(issue)
		if len(keys) == 0 {
			keys = one(None)
		}
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			buckets[k] = append(buckets[k], issue)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := compareNone(a, b); c != 0 {
			return c
		}
		return compareValues(def, a, b)
	})

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, Group{Key: k, Issues: buckets[k]})
	}
	return groups
}

// Apply runs a flat view's filter and order.
func (v FlatView) Apply(issues []domain.Issue) []domain.Issue {
	return Sort(Filter(issues, v.Filter), v.Order)
}

// Apply runs a grouped view's filter and order, then groups the result.
func (v GroupedView) Apply(issues []domain.Issue) []Group {
	return GroupBy(Sort(Filter(issues, v.Filter), v.Order), v.GroupBy)
}
