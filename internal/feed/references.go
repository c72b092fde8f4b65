package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bspub/internal/config"
	apperrors "bspub/internal/errors"
	"bspub/internal/measures"
	"bspub/internal/preprocess"
	"bspub/internal/table"
)

// SDR reference columns.
const (
	sdrAgeBand  = "Age band"
	sdrStart    = "Date_start"
	sdrEnd      = "Date_end"
	sdrTablesAB = "Tables A and B"
	sdrTablesC  = "Tables C1 and C2"
)

// LA region history columns.
const (
	laCode          = "LA_ONS_Code"
	laStart         = "BUSINESS_START_DATE"
	laEnd           = "BUSINESS_END_DATE"
	laParentName    = "REP_Parent_Name"
	laParentCode    = "REP_Parent_Code"
	laParentONSCode = "REP_Parent_ONS_Code"
)

// dateLayouts are tried in order. Reference files use day-first dates.
var dateLayouts = []string{"02/01/2006", "2/1/2006", "02-01-2006", "2006-01-02", "02/01/2006 15:04"}

// References holds the reference data of a run. A field is empty when its
// file is not configured.
type References struct {
	Multipliers   []measures.Multiplier
	RegionUpdates []preprocess.RegionUpdate
	// Footnotes has a sheetname column, lookup columns and footnote_ref.
	Footnotes *table.Table
}

// LoadReferences reads the configured reference files concurrently. The
// first failure cancels the others.
func LoadReferences(ctx context.Context, paths *config.Paths, logger *slog.Logger) (*References, error) {
	if logger == nil {
		logger = slog.Default()
	}
	refs := &References{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	load := func(name, path string, read func(io.Reader) error) {
		if path == "" {
			return
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				if os.IsNotExist(err) {
					return apperrors.NewNotFoundError(name + " reference file " + path)
				}
				return apperrors.NewStorageError("failed to open "+path, err)
			}
			defer f.Close()
			if err := read(f); err != nil {
				return fmt.Errorf("%s reference file %s: %w", name, path, err)
			}
			logger.DebugContext(ctx, "Loaded reference file", slog.String("reference", name), slog.String("path", path))
			return nil
		})
	}

	load("SDR", paths.SDRFile, func(r io.Reader) (err error) {
		refs.Multipliers, err = ReadMultipliers(r)
		return err
	})
	load("LA region", paths.LAFile, func(r io.Reader) (err error) {
		refs.RegionUpdates, err = ReadRegionUpdates(r)
		return err
	})
	load("footnote", paths.FootnoteFile, func(r io.Reader) (err error) {
		refs.Footnotes, err = ReadCSV(r)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Reference data loaded",
		slog.Int("sdr_multipliers", len(refs.Multipliers)),
		slog.Int("la_region_updates", len(refs.RegionUpdates)))
	return refs, nil
}

// ReadMultipliers reads the SDR multiplier reference CSV.
func ReadMultipliers(r io.Reader) ([]measures.Multiplier, error) {
	t, err := ReadCSV(r, sdrTablesAB, sdrTablesC)
	if err != nil {
		return nil, err
	}
	if err := t.Require(sdrAgeBand, sdrStart, sdrEnd, sdrTablesAB, sdrTablesC); err != nil {
		return nil, err
	}

	out := make([]measures.Multiplier, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		m := measures.Multiplier{AgeBand: text(row, sdrAgeBand)}
		if m.Start, err = parseDate(text(row, sdrStart)); err != nil {
			return nil, rowError(i, sdrStart, err)
		}
		if m.Start.IsZero() {
			return nil, rowError(i, sdrStart, fmt.Errorf("start date is required"))
		}
		if m.End, err = parseDate(text(row, sdrEnd)); err != nil {
			return nil, rowError(i, sdrEnd, err)
		}
		ab, _ := row.Get(sdrTablesAB)
		c, _ := row.Get(sdrTablesC)
		m.TablesAB, _ = ab.Float()
		m.TablesC, _ = c.Float()
		out = append(out, m)
	}
	return out, nil
}

// ReadRegionUpdates reads the LA region history CSV.
func ReadRegionUpdates(r io.Reader) ([]preprocess.RegionUpdate, error) {
	t, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if err := t.Require(laCode, laStart, laEnd, laParentName, laParentCode, laParentONSCode); err != nil {
		return nil, err
	}

	out := make([]preprocess.RegionUpdate, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		u := preprocess.RegionUpdate{
			LACode:        text(row, laCode),
			ParentName:    text(row, laParentName),
			ParentCode:    text(row, laParentCode),
			ParentONSCode: text(row, laParentONSCode),
		}
		if u.Start, err = parseDate(text(row, laStart)); err != nil {
			return nil, rowError(i, laStart, err)
		}
		if u.End, err = parseDate(text(row, laEnd)); err != nil {
			return nil, rowError(i, laEnd, err)
		}
		out = append(out, u)
	}
	return out, nil
}

func text(r table.Row, column string) string {
	v, _ := r.Get(column)
	s, _ := v.Text()
	return s
}

// parseDate parses a day-first date. Empty text is the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func rowError(i int, column string, err error) error {
	return apperrors.NewParsingError("invalid "+column, err).WithContext("row", i+2)
}
