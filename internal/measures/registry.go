package measures

import "fmt"

// Kind distinguishes the two formula shapes.
type Kind int

const (
	// Additive formulas sum signed terms and have no multiplier.
	Additive Kind = iota
	// Ratio formulas compute numerator / denominator * multiplier.
	Ratio
)

// Term is one signed operand of an additive formula.
type Term struct {
	Column string
	Sign   float64
}

// Formula defines one derived measure.
type Formula struct {
	Name        string
	Kind        Kind
	Terms       []Term
	Numerator   string
	Denominator string
	Multiplier  float64
	// Warning adds a <Name>_warning column flagging small numerators.
	Warning bool
}

// Inputs returns the columns the formula reads.
func (f Formula) Inputs() []string {
	if f.Kind == Additive {
		cols := make([]string, len(f.Terms))
		for i, t := range f.Terms {
			cols[i] = t.Column
		}
		return cols
	}
	return []string{f.Numerator, f.Denominator}
}

// String renders the formula for listings.
func (f Formula) String() string {
	if f.Kind == Additive {
		expr := ""
		for i, t := range f.Terms {
			switch {
			case t.Sign < 0:
				expr += " - "
			case i > 0:
				expr += " + "
			}
			expr += t.Column
		}
		return fmt.Sprintf("%s = %s", f.Name, expr)
	}
	return fmt.Sprintf("%s = %s / %s * %g", f.Name, f.Numerator, f.Denominator, f.Multiplier)
}

func plus(cols ...string) []Term {
	out := make([]Term, len(cols))
	for i, c := range cols {
		out[i] = Term{Column: c, Sign: 1}
	}
	return out
}

func ratio(name, num, den string, mult float64, warn bool) Formula {
	return Formula{Name: name, Kind: Ratio, Numerator: num, Denominator: den, Multiplier: mult, Warning: warn}
}

// registry lists every formula in evaluation order. Additive counts come
// first so ratios can read them.
var registry = []Formula{
	{Name: "Women_eligible", Kind: Additive, Terms: []Term{{"Women_resident", 1}, {"Women_ineligible", -1}}},
	{Name: "Women_never_screened", Kind: Additive, Terms: plus("Women_selected_no_screen", "Women_not_selected_not_screened")},
	{Name: "Small_invasive", Kind: Additive, Terms: plus("Invasive_lessthan10mm", "Invasive_10mmto15mm")},
	{Name: "Invasive_15mmplus", Kind: Additive, Terms: plus("Invasive_15mmto20mm", "Invasive_20mmto50mm", "Invasive_50mmplus")},
	{Name: "Non_or_micro_invasive", Kind: Additive, Terms: plus("Cancer_non_microinvasive", "Cancer_microinvasive")},
	{Name: "Benign_biopsy", Kind: Additive, Terms: plus("Open_biop_RR", "Open_biop_STR")},
	{Name: "Cancers_diagnosed", Kind: Additive, Terms: plus("Cyt_bio_cancer", "Open_biop_cancer")},

	ratio("Coverage", "Women_screened_less3yrs", "Women_eligible", 100, false),
	ratio("Percent_never_screened", "Women_never_screened", "Women_eligible", 100, false),
	ratio("Uptake", "Screened", "Invited", 100, false),
	ratio("Percent_assessment", "Initial_referred", "Screened", 100, true),
	ratio("Percent_STR", "Final_STR", "Screened", 100, true),
	ratio("Percent_STR_referrals", "Final_STR", "Initial_referred", 100, false),
	ratio("Rate_with_cancer", "Total_with_cancer", "Screened", 1000, true),
	ratio("Percent_cancer_non_or_micro_invasive", "Non_or_micro_invasive", "Total_with_cancer", 100, false),
	ratio("Percent_cancer_invasive_total", "Invasive_total", "Total_with_cancer", 100, false),
	ratio("Percent_cancer_small_invasive", "Small_invasive", "Total_with_cancer", 100, false),
	ratio("Percent_cancer_invasive_15mmplus", "Invasive_15mmplus", "Total_with_cancer", 100, false),
	ratio("Percent_small_invasive", "Small_invasive", "Invasive_total", 100, true),
	ratio("Percent_invasive_15mmplus", "Invasive_15mmplus", "Invasive_total", 100, false),
	ratio("Percent_invasive_unknown", "Invasive_unknown", "Invasive_total", 100, false),
	ratio("Rate_small_invasive", "Small_invasive", "Screened", 1000, true),
	ratio("Rate_invasive_15mmplus", "Invasive_15mmplus", "Screened", 1000, true),
	ratio("Rate_non_or_micro_invasive", "Non_or_micro_invasive", "Screened", 1000, true),
	ratio("Percent_cyt_biop_referrals", "Referral_cyt_bio", "Initial_referred", 100, false),
	ratio("Percent_open_biop_referrals", "Open_biop_total", "Initial_referred", 100, false),
	ratio("Rate_benign_biopsy", "Benign_biopsy", "Screened", 1000, true),
	ratio("Rate_non_op_diagnosis", "Cyt_bio_cancer", "Cancers_diagnosed", 100, true),
	ratio("SDR", "Invasive_total", ExpectedLabel, 1, true),
	ratio("Percent_hr_referred_assess", "HR_Total_referred", "HR_Total_screened", 100, false),
	ratio("Rate_hr_cancer_detected", "HR_Total_women_with_cancer", "HR_Total_screened", 1000, false),
	ratio("Rate_hr_invasive_cancers", "HR_Total_invasive_cancers", "HR_Total_screened", 1000, false),
}

// triggers maps a requested column to the measures published with it.
var triggers = map[string][]string{
	"Coverage":                      {"Coverage", "Percent_never_screened"},
	"Final_STR":                     {"Percent_STR", "Percent_STR_referrals"},
	"Percent_STR":                   {"Percent_STR", "Percent_STR_referrals"},
	"Percent_cancer_small_invasive": {"Percent_cancer_non_or_micro_invasive", "Percent_cancer_invasive_total", "Percent_cancer_small_invasive", "Percent_cancer_invasive_15mmplus"},
	"Percent_small_invasive":        {"Percent_small_invasive", "Percent_invasive_15mmplus", "Percent_invasive_unknown"},
	"Rate_small_invasive":           {"Rate_small_invasive", "Rate_invasive_15mmplus", "Rate_non_or_micro_invasive"},
	"SDR":                           {"Rate_small_invasive", "Rate_invasive_15mmplus", "Rate_non_or_micro_invasive", "SDR"},
	"Percent_cyt_biop_referrals":    {"Percent_cyt_biop_referrals", "Percent_open_biop_referrals"},
	"Percent_open_biop_referrals":   {"Percent_cyt_biop_referrals", "Percent_open_biop_referrals"},
}

var byName = func() map[string]int {
	m := make(map[string]int, len(registry))
	for i, f := range registry {
		m[f.Name] = i
	}
	return m
}()

// Lookup returns the formula registered under name.
func Lookup(name string) (Formula, bool) {
	i, ok := byName[name]
	if !ok {
		return Formula{}, false
	}
	return registry[i], true
}

// Names returns every registered measure in evaluation order.
func Names() []string {
	out := make([]string, len(registry))
	for i, f := range registry {
		out[i] = f.Name
	}
	return out
}

// IsDerived reports whether name is a registered measure or a percentage of
// total.
func IsDerived(name string) bool {
	_, ok := byName[name]
	return ok || isOfTotal(name)
}
