// Package view loads dashboard view configurations and applies their
// filters, orderings and groupings to cached issues.
package view

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robby/leander/internal/apperror"
)

// Column is a displayable issue attribute.
type Column string

const (
	ColumnLink     Column = "link"
	ColumnNumber   Column = "number"
	ColumnTitle    Column = "title"
	ColumnSeverity Column = "severity"
	ColumnAge      Column = "age"
	ColumnUpdated  Column = "updated"
	ColumnAssigned Column = "assigned"
	ColumnPhase    Column = "phase"
	ColumnSource   Column = "source"
	ColumnStatus   Column = "status"
	ColumnTriaged  Column = "triaged"
	ColumnActivity Column = "activity"
	ColumnProjects Column = "projects"
	ColumnPriority Column = "priority"
	ColumnSize     Column = "size"
)

// Columns lists every known column.
var Columns = []Column{
	ColumnLink, ColumnNumber, ColumnTitle, ColumnSeverity, ColumnAge, ColumnUpdated,
	ColumnAssigned, ColumnPhase, ColumnSource, ColumnStatus, ColumnTriaged,
	ColumnActivity, ColumnProjects, ColumnPriority, ColumnSize,
}

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

type FieldOrder struct {
	Field string `yaml:"field"`
	Order Order  `yaml:"order"`
}

// FilterSpec maps a field to the value, or list of values, an issue must have.
// A null value matches issues where the field is unset.
type FilterSpec map[string]any

type FlatView struct {
	Columns  []Column     `yaml:"columns"`
	Filter   FilterSpec   `yaml:"filter,omitempty"`
	PageSize int          `yaml:"pageSize,omitempty"`
	Order    []FieldOrder `yaml:"order"`
}

type GroupedView struct {
	GroupBy  string       `yaml:"groupBy"`
	Columns  []Column     `yaml:"columns"`
	Filter   FilterSpec   `yaml:"filter,omitempty"`
	PageSize int          `yaml:"pageSize,omitempty"`
	Order    []FieldOrder `yaml:"order"`
}

// Section holds exactly one of FlatView and GroupedView.
type Section struct {
	Title       string       `yaml:"title"`
	FlatView    *FlatView    `yaml:"flatView,omitempty"`
	GroupedView *GroupedView `yaml:"groupedView,omitempty"`
}

type Page struct {
	Route    string    `yaml:"route"`
	Title    string    `yaml:"title"`
	Sections []Section `yaml:"sections"`
}

// Config is a dashboard: the repositories it reads and the pages it shows.
type Config struct {
	Organization string   `yaml:"organization"`
	Repositories []string `yaml:"repositories"`
	Pages        []Page   `yaml:"pages"`
}

// Load reads and validates a view config. JSON files load too.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read view config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse view config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Page returns the page with the given route.
func (c *Config) Page(route string) (*Page, bool) {
	for i := range c.Pages {
		if c.Pages[i].Route == route {
			return &c.Pages[i], true
		}
	}
	return nil, false
}

// Validate reports every problem at once, each as an apperror validation
// error naming its path.
func (c *Config) Validate() error {
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, apperror.ValidationFailed(path, path+": "+fmt.Sprintf(format, args...)))
	}

	if c.Organization == "" {
		fail("organization", "value must not be empty")
	}
	if len(c.Repositories) == 0 {
		fail("repositories", "at least one repository is required")
	}
	for i, r := range c.Repositories {
		if r == "" {
			fail(fmt.Sprintf("repositories.%d", i), "value must not be empty")
		}
	}

	routes := make(map[string]bool)
	for i, p := range c.Pages {
		path := fmt.Sprintf("pages.%d", i)
		if p.Route == "" {
			fail(path+".route", "value must not be empty")
		} else if routes[p.Route] {
			fail(path+".route", "duplicate route %q", p.Route)
		}
		routes[p.Route] = true

		for j, s := range p.Sections {
			spath := fmt.Sprintf("%s.sections.%d", path, j)
			switch {
			case s.FlatView != nil && s.GroupedView != nil:
				fail(spath, "only one of flatView and groupedView may be set")
			case s.FlatView != nil:
				validateView(fail, spath+".flatView", s.FlatView.Columns, s.FlatView.Filter, s.FlatView.PageSize, s.FlatView.Order)
			case s.GroupedView != nil:
				gpath := spath + ".groupedView"
				if !IsField(s.GroupedView.GroupBy) {
					fail(gpath+".groupBy", "unknown field %q", s.GroupedView.GroupBy)
				}
				validateView(fail, gpath, s.GroupedView.Columns, s.GroupedView.Filter, s.GroupedView.PageSize, s.GroupedView.Order)
			default:
				fail(spath, "one of flatView and groupedView is required")
			}
		}
	}

	return errors.Join(errs...)
}

func validateView(fail func(string, string, ...any), path string, columns []Column, filter FilterSpec, pageSize int, order []FieldOrder) {
	if len(columns) == 0 {
		fail(path+".columns", "at least one column is required")
	}
	for i, col := range columns {
		if !isColumn(col) {
			fail(fmt.Sprintf("%s.columns.%d", path, i), "unknown column %q", col)
		}
	}
	for field := range filter {
		if !IsField(field) {
			fail(path+".filter", "unknown field %q", field)
		}
	}
	if pageSize < 0 {
		fail(path+".pageSize", "value must not be negative")
	}
	for i, o := range order {
		opath := fmt.Sprintf("%s.order.%d", path, i)
		if !IsField(o.Field) {
			fail(opath+".field", "unknown field %q", o.Field)
		}
		if o.Order != Asc && o.Order != Desc {
			fail(opath+".order", "must be asc or desc, got %q", o.Order)
		}
	}
}

func isColumn(c Column) bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}
