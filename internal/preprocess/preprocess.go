package preprocess

import (
	"log/slog"

	"bspub/internal/config"
	"bspub/internal/filter"
	"bspub/internal/table"
)

// Record columns touched by pre-processing.
const (
	ParentCodeColumn    = "Parent_Org_Code"
	ParentNameColumn    = "Parent_Org_Name"
	ParentONSCodeColumn = "Parent_OrgONSCode"
	OrgNameColumn       = "Org_Name"
	OrgONSCodeColumn    = "Org_ONSCode"
	OrgTypeColumn       = "Org_Type"
	RegionOrderColumn   = "Parent_Org_Order"
)

// laDropYear is the year whose local authority rows duplicate the PCT rows.
const laDropYear = "2012-13"

// Processor applies the pre-processing steps of one collection.
type Processor struct {
	collection string
	cfg        config.CollectionConfig
	updates    []RegionUpdate
	logger     *slog.Logger
}

// New returns a Processor for the collection. updates is the LA region
// history and is only used when the collection applies LA updates.
func New(collection string, cfg config.CollectionConfig, updates []RegionUpdate, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		collection: collection,
		cfg:        cfg,
		updates:    updates,
		logger:     logger.With(slog.String("component", "preprocess"), slog.String("collection", collection)),
	}
}

// Apply runs every enabled step and returns the prepared records.
func (p *Processor) Apply(t *table.Table) (*table.Table, error) {
	p.logger.Info("Applying pre-processing updates", slog.Int("rows", t.Len()))
	out := t
	var err error

	if p.cfg.DropLA2012 {
		before := out.Len()
		out = DropLAYear(out, laDropYear)
		p.logger.Debug("Dropped local authority rows", slog.String("year", laDropYear), slog.Int("dropped", before-out.Len()))
	}
	if p.cfg.ApplyLAUpdates && len(p.updates) > 0 {
		p.logger.Info("Applying user defined updates to LA region data", slog.Int("updates", len(p.updates)))
		if out, err = UpdateLARegions(out, p.updates); err != nil {
			return nil, err
		}
	}

	out = out.Replace(ParentCodeColumn, p.cfg.RegionCodeUpdates)
	out = out.Replace(ParentNameColumn, p.cfg.RegionNameUpdates)
	out = out.Replace(OrgNameColumn, p.cfg.OrgNameUpdates)

	if len(p.cfg.SmallLAMerges) > 0 {
		p.logger.Info("Combining small LAs", slog.Int("merges", len(p.cfg.SmallLAMerges)))
		out = CombineSmallLAs(out, p.cfg.SmallLAMerges)
	}
	if len(p.cfg.RegionOrder) > 0 {
		if out, err = AddRegionOrder(out, p.cfg.RegionOrder); err != nil {
			return nil, err
		}
	}

	if out, err = AddMeasureCounts(out, p.collection); err != nil {
		return nil, err
	}
	p.logger.Info("Pre-processing complete", slog.Int("rows", out.Len()))
	return out, nil
}

// DropLAYear removes local authority rows of one year.
func DropLAYear(t *table.Table, year string) *table.Table {
	if !t.Has(filter.YearColumn) || !t.Has(OrgTypeColumn) {
		return t
	}
	return t.Filter(func(r table.Row) bool {
		y, _ := r.Get(filter.YearColumn)
		kind, _ := r.Get(OrgTypeColumn)
		return !(y.IsLabel(year) && kind.IsLabel("LA"))
	})
}

// AddRegionOrder adds Parent_Org_Order looked up from the parent code.
// Codes without an entry get a null order.
func AddRegionOrder(t *table.Table, order map[string]int) (*table.Table, error) {
	if err := t.Require(ParentCodeColumn); err != nil {
		return nil, err
	}
	return t.WithColumn(RegionOrderColumn, func(r table.Row) table.Value {
		v, _ := r.Get(ParentCodeColumn)
		if s, ok := v.Text(); ok {
			if n, hit := order[s]; hit {
				return table.Num(float64(n))
			}
		}
		return table.Null()
	}), nil
}
