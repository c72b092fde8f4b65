// Package measures derives rates, percentages and summed counts from wide
// tables whose columns are measure names.
//
// # Registry
//
// Every formula is registered once with a fixed evaluation order. Additive
// counts such as Women_eligible precede the ratios that read them. Some
// requested names publish a group of measures together; requesting Coverage
// also derives Percent_never_screened.
//
// # Warnings
//
// Ratios marked as warning-eligible get a companion <name>_warning column
// holding the flag when the numerator is below the low-numerator threshold.
//
// # SDR
//
// The standardised detection ratio divides observed invasive cancers by an
// expected count. SDRExpected injects the expected rows into long-format
// records before pivoting, using age-band multipliers from reference data.
package measures
