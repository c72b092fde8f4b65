// Package shared holds helpers used by more than one package.
//
// The testutil subpackage captures slog output so tests can assert on the
// structured events a component emits:
//
//	logger, logs := testutil.NewTestLogger(t)
//	m := operations.NewManager(builder, opts, logger)
//	...
//	testutil.AssertLogAttr(t, logs, "run_error", "error_type", "build")
package shared
