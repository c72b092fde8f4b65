package preprocess

import (
	"regexp"
	"time"

	"bspub/internal/config"
	"bspub/internal/filter"
	"bspub/internal/table"
	"bspub/internal/years"
)

// RegionUpdate re-parents one local authority for the years it covers.
type RegionUpdate struct {
	LACode string
	Start  time.Time
	// End is zero for an update that is still in force.
	End time.Time

	ParentName    string
	ParentCode    string
	ParentONSCode string
}

// Covers reports whether the update is in force for the whole period from
// start to end.
func (u RegionUpdate) Covers(start, end time.Time) bool {
	if u.Start.After(start) {
		return false
	}
	return u.End.IsZero() || !u.End.Before(end)
}

// UpdateLARegions overwrites the parent columns of local authority rows
// with the region in force for the row's financial year. When several
// updates cover the same authority and year the later one in the list
// wins.
func UpdateLARegions(t *table.Table, updates []RegionUpdate) (*table.Table, error) {
	if err := t.Require(filter.YearColumn, OrgONSCodeColumn, ParentNameColumn, ParentCodeColumn, ParentONSCodeColumn); err != nil {
		return nil, err
	}

	inForce := make(map[string]map[string]RegionUpdate)
	for _, v := range t.Unique(filter.YearColumn) {
		label, ok := v.Text()
		if !ok {
			continue
		}
		start, end, err := years.Bounds(label)
		if err != nil {
			return nil, err
		}
		byLA := make(map[string]RegionUpdate)
		for _, u := range updates {
			if u.Covers(start, end) {
				byLA[u.LACode] = u
			}
		}
		if len(byLA) > 0 {
			inForce[label] = byLA
		}
	}
	if len(inForce) == 0 {
		return t, nil
	}

	lookup := func(r table.Row) (RegionUpdate, bool) {
		y, _ := r.Get(filter.YearColumn)
		code, _ := r.Get(OrgONSCodeColumn)
		label, _ := y.Text()
		la, ok := code.Text()
		if !ok {
			return RegionUpdate{}, false
		}
		u, hit := inForce[label][la]
		return u, hit
	}
	set := func(column string, pick func(RegionUpdate) string) func(table.Row) table.Value {
		return func(r table.Row) table.Value {
			if u, ok := lookup(r); ok {
				return table.Str(pick(u))
			}
			v, _ := r.Get(column)
			return v
		}
	}
	out := t.WithColumn(ParentNameColumn, set(ParentNameColumn, func(u RegionUpdate) string { return u.ParentName }))
	out = out.WithColumn(ParentCodeColumn, set(ParentCodeColumn, func(u RegionUpdate) string { return u.ParentCode }))
	out = out.WithColumn(ParentONSCodeColumn, set(ParentONSCodeColumn, func(u RegionUpdate) string { return u.ParentONSCode }))
	return out, nil
}

// CombineSmallLAs folds each small local authority into its neighbour by
// rewriting its ONS code and name. Matching ignores case and also rewrites
// the matched text where it appears inside a longer value. Parents are not
// changed since merged authorities share a region.
func CombineSmallLAs(t *table.Table, merges []config.LAMerge) *table.Table {
	type rewrite struct {
		re *regexp.Regexp
		to string
	}
	var codes, names []rewrite
	for _, m := range merges {
		codes = append(codes, rewrite{regexp.MustCompile("(?i)" + regexp.QuoteMeta(m.Code)), m.NewCode})
		names = append(names, rewrite{regexp.MustCompile("(?i)" + regexp.QuoteMeta(m.Name)), m.NewName})
	}
	apply := func(column string, rules []rewrite) func(table.Row) table.Value {
		return func(r table.Row) table.Value {
			v, _ := r.Get(column)
			s, ok := v.Text()
			if !ok {
				return v
			}
			for _, rule := range rules {
				s = rule.re.ReplaceAllLiteralString(s, rule.to)
			}
			return table.Str(s)
		}
	}

	out := t
	if out.Has(OrgONSCodeColumn) {
		out = out.WithColumn(OrgONSCodeColumn, apply(OrgONSCodeColumn, codes))
	}
	if out.Has(OrgNameColumn) {
		out = out.WithColumn(OrgNameColumn, apply(OrgNameColumn, names))
	}
	return out
}
