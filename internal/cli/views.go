package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/loader"
	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/store"
)

// AccessorView is one accessor with its defined labels in definition order.
type AccessorView struct {
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Fixtures []registry.Entry `json:"fixtures"`
}

func accessorViews(ns *registry.Namespace) []AccessorView {
	accessors := ns.Accessors()
	views := make([]AccessorView, 0, len(accessors))
	for _, a := range accessors {
		views = append(views, AccessorView{
			Name:     a.Name(),
			Type:     a.Type().Name,
			Fixtures: a.Entries(),
		})
	}
	return views
}

func countFixtures(views []AccessorView) int {
	n := 0
	for _, v := range views {
		n += len(v.Fixtures)
	}
	return n
}

// LoadSummary is the output of load and check.
type LoadSummary struct {
	Provider  string   `json:"provider"`
	Root      string   `json:"root"`
	Scripts   []string `json:"scripts"`
	Accessors int      `json:"accessors"`
	Fixtures  int      `json:"fixtures"`
	DryRun    bool     `json:"dry_run,omitempty"`
}

func newLoadSummary(ns *registry.Namespace, res *loader.Result) LoadSummary {
	views := accessorViews(ns)
	return LoadSummary{
		Provider:  ns.Provider(),
		Root:      res.Root,
		Scripts:   res.Scripts,
		Accessors: len(views),
		Fixtures:  countFixtures(views),
	}
}

func (s LoadSummary) String() string {
	if s.DryRun {
		return fmt.Sprintf("✓ %d script(s) in %s loaded cleanly: %d accessor(s), %d fixture(s)",
			len(s.Scripts), s.Root, s.Accessors, s.Fixtures)
	}
	return fmt.Sprintf("Loaded %d script(s) from %s into %s provider: %d accessor(s), %d fixture(s)",
		len(s.Scripts), s.Root, s.Provider, s.Accessors, s.Fixtures)
}

// FixtureList is the output of list.
type FixtureList struct {
	Provider  string         `json:"provider"`
	Accessors []AccessorView `json:"accessors"`
}

func (l FixtureList) String() string {
	if len(l.Accessors) == 0 {
		return "No accessors registered"
	}
	width := 0
	for _, a := range l.Accessors {
		for _, e := range a.Fixtures {
			width = max(width, len(e.Label))
		}
	}
	var b strings.Builder
	for i, a := range l.Accessors {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s (%s)", a.Name, a.Type)
		for _, e := range a.Fixtures {
			fmt.Fprintf(&b, "\n  %-*s  %s", width, e.Label, e.Origin)
		}
	}
	return b.String()
}

// RecordView is the output of show.
type RecordView struct {
	Accessor   string          `json:"accessor"`
	Type       string          `json:"type"`
	Label      string          `json:"label"`
	ID         string          `json:"id"`
	Origin     registry.Origin `json:"origin"`
	Digest     string          `json:"digest"`
	Attributes ir.IRObject     `json:"attributes"`
}

func newRecordView(a *registry.Accessor, rec *store.Record) (RecordView, error) {
	digest, err := ir.Digest(rec.Attributes)
	if err != nil {
		return RecordView{}, err
	}
	origin, _ := a.Origin(rec.Label)
	return RecordView{
		Accessor:   a.Name(),
		Type:       rec.Type,
		Label:      rec.Label,
		ID:         rec.ID,
		Origin:     origin,
		Digest:     digest,
		Attributes: rec.Attributes,
	}, nil
}

func (r RecordView) String() string {
	attrs, err := ir.MarshalCanonical(r.Attributes)
	if err != nil {
		attrs = []byte(err.Error())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s (%s)\n", r.Accessor, r.Label, r.Type)
	fmt.Fprintf(&b, "  id:         %s\n", r.ID)
	fmt.Fprintf(&b, "  origin:     %s\n", r.Origin)
	fmt.Fprintf(&b, "  digest:     %s\n", r.Digest)
	fmt.Fprintf(&b, "  attributes: %s", attrs)
	return b.String()
}
