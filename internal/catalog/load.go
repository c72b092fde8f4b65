package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "bspub/internal/errors"
)

var (
	cellPattern   = regexp.MustCompile(`^[A-Z]{1,3}[1-9][0-9]*$`)
	columnPattern = regexp.MustCompile(`^[A-Z]{1,3}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("cell", func(fl validator.FieldLevel) bool {
		return cellPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("column", func(fl validator.FieldLevel) bool {
		return columnPattern.MatchString(fl.Field().String())
	})
	// Report YAML field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadFile reads and validates one catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("catalog file %s", path)).WithContext("cause", err.Error())
	}
	c, err := Parse(data)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr.WithContext("file", path)
		}
		return nil, err
	}
	return c, nil
}

// LoadDir reads every *.yaml file in dir, in name order, and merges their
// groups into one catalog.
func LoadDir(dir string) (*Catalog, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, apperrors.NewConfigError("invalid catalog directory", err)
	}
	if len(paths) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("catalog files in %s", dir))
	}
	sort.Strings(paths)

	merged := &Catalog{}
	seen := make(map[string]string)
	for _, p := range paths {
		c, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		for _, g := range c.Groups {
			if prev, ok := seen[g.Name]; ok {
				return nil, apperrors.NewConfigError(
					fmt.Sprintf("output group %q is defined in both %s and %s", g.Name, prev, p), nil)
			}
			seen[g.Name] = p
			merged.Groups = append(merged.Groups, g)
		}
	}
	return merged, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, apperrors.NewParsingError("failed to parse catalog", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks struct constraints and the cross-field rules the engine
// relies on. The first failure is returned as a configuration error.
func (c *Catalog) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return apperrors.NewConfigError("invalid catalog: "+strings.Join(fields, ", "), nil)
		}
		return apperrors.NewConfigError("invalid catalog", err)
	}

	for _, g := range c.Groups {
		if len(g.Footnotes) > 0 && g.IsCSV() {
			return apperrors.NewConfigError("footnotes need a group workbook", nil).WithContext("group", g.Name)
		}
		for _, o := range g.Outputs {
			if err := g.validateOutput(o); err != nil {
				return err.WithContext("group", g.Name).WithContext("output", o.Name)
			}
		}
	}
	return nil
}

func (g Group) validateOutput(o Output) *apperrors.AppError {
	if !contains(WriteTypes, o.WriteType) {
		return apperrors.NewInvalidValueError("write_type", o.WriteType, WriteTypes)
	}
	switch {
	case o.WriteType == WriteCSV && !g.IsCSV():
		return apperrors.NewConfigError("csv outputs need a group with a dir and no workbook", nil)
	case o.WriteType != WriteCSV && g.IsCSV():
		return apperrors.NewConfigError(fmt.Sprintf("%s outputs need a group workbook", o.WriteType), nil)
	case (o.WriteType == WriteExcelStatic || o.WriteType == WriteExcelVariable) && o.WriteCell == "":
		return apperrors.NewConfigError(fmt.Sprintf("%s outputs need a write_cell", o.WriteType), nil)
	}

	for _, r := range o.Contents {
		if err := r.validate(); err != nil {
			return err.WithContext("recipe", r.Name)
		}
	}
	for _, u := range o.Updates {
		if !contains(UpdateKinds, u.Kind) {
			return apperrors.NewInvalidValueError("updates", u.Kind, UpdateKinds)
		}
		if u.Kind == UpdateCheckListFlag && (u.Column == "" || u.FlagSet == "") {
			return apperrors.NewConfigError("check_list_flag needs a column and a flag_set", nil)
		}
	}
	return nil
}

func (r Recipe) validate() *apperrors.AppError {
	if !contains(Kinds, string(r.Kind)) {
		return apperrors.NewInvalidValueError("kind", string(r.Kind), Kinds)
	}
	if len(r.SortOn) > 0 && len(r.RowOrder) > 0 {
		return apperrors.NewConfigError("sort_on and row_order cannot both be set", nil)
	}

	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}
	switch r.Kind {
	case KindCrosstab:
		need(len(r.Rows) > 0, "rows")
		if r.MeasureAsRows {
			need(len(r.Rows) == 1, "rows (exactly one when measure_as_rows is set)")
		}
	case KindSingleMeasure:
		need(len(r.Rows) > 0, "rows")
		need(r.Columns != "", "columns")
		need(r.MeasureColumn != "", "measure_column")
		need(r.Measure != "", "measure")
	case KindTidy:
		if !contains([]string{KC62, KC63}, r.Collection) {
			return apperrors.NewInvalidValueError("collection", r.Collection, []string{KC62, KC63})
		}
		if !contains(OrgLevels, r.OrgLevel) {
			return apperrors.NewInvalidValueError("org_level", r.OrgLevel, OrgLevels)
		}
		need(r.MeasureColumn != "", "measure_column")
		need(len(r.Measures) > 0, "measures")
	case KindValidation:
		need(len(r.Rows) > 0, "rows")
		need((r.Measure == "") != (len(r.Measures) == 0), "measure or measures (exactly one)")
		need(len(r.Validations) > 0, "validations")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigError(
			fmt.Sprintf("%s recipe is missing %s", r.Kind, strings.Join(missing, ", ")), nil)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
