package validation

import (
	"fmt"

	apperrors "bspub/internal/errors"
)

// Family groups measures that share breach thresholds.
type Family int

const (
	// Coverage compares percentage-point differences.
	Coverage Family = iota + 1
	// CancerRate compares percentage changes in cancer detection rates.
	CancerRate
	// EligibilityCount compares percentage changes in KC63 population counts.
	EligibilityCount
	// ReferralCount compares percentage changes in KC62 activity counts.
	ReferralCount
)

var familyNames = map[Family]string{
	Coverage:         "Coverage",
	CancerRate:       "CancerRate",
	EligibilityCount: "EligibilityCount",
	ReferralCount:    "ReferralCount",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// PointChange reports whether breaches are measured as the difference in
// percentage points rather than the percentage change.
func (f Family) PointChange() bool {
	return f == Coverage
}

// ResolveFamily picks the family from the measures shown in a validation
// output. Coverage wins over the cancer rate, which wins over eligibility
// counts, which win over referral counts.
func ResolveFamily(measures []string) (Family, error) {
	has := make(map[string]bool, len(measures))
	for _, m := range measures {
		has[m] = true
	}
	switch {
	case has["Coverage"]:
		return Coverage, nil
	case has["Rate_with_cancer"]:
		return CancerRate, nil
	case has["Women_resident"] || has["Women_eligible"] || has["Women_screened_less3yrs"]:
		return EligibilityCount, nil
	case has["Invited"] || has["Screened"] || has["Total_with_cancer"]:
		return ReferralCount, nil
	}
	return 0, apperrors.NewConfigError(fmt.Sprintf("no breach thresholds apply to measures %v", measures), nil).
		WithContext("measures", measures)
}
