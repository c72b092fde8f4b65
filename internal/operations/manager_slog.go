package operations

import (
	"context"
	"log/slog"
	"time"
)

// logRunStart logs the start of a run
func (m *Manager) logRunStart(ctx context.Context, destinations, outputs int) {
	m.logger.InfoContext(ctx, "run_start",
		slog.Int("destinations", destinations),
		slog.Int("outputs", outputs))
}

// logRunComplete logs the end of a run
func (m *Manager) logRunComplete(ctx context.Context, duration time.Duration, status string) {
	m.logger.InfoContext(ctx, "run_complete",
		slog.String("status", status),
		slog.Duration("duration", duration))
}

// logRunError logs the error that aborted a run
func (m *Manager) logRunError(ctx context.Context, err error) {
	m.logger.ErrorContext(ctx, "run_error",
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", err.Error()))
}

// logOutputComplete logs a written output
func (m *Manager) logOutputComplete(ctx context.Context, res OutputResult) {
	m.logger.InfoContext(ctx, "output_complete",
		slog.String("group", res.Group),
		slog.String("output", res.Output),
		slog.String("write_type", res.WriteType),
		slog.Int("rows", res.Rows),
		slog.Duration("duration", res.Duration))
}

// logDestinationSaved logs a saved workbook or CSV directory
func (m *Manager) logDestinationSaved(ctx context.Context, d *Destination, path string, footnotes int) {
	m.logger.InfoContext(ctx, "destination_saved",
		slog.String("destination", d.Key),
		slog.String("path", path),
		slog.Int("outputs", d.Outputs()),
		slog.Int("footnotes", footnotes))
}
