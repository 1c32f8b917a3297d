package evo

import (
	"context"
	"errors"

	"valleycross/internal/model"
)

// Sink receives the output of a run as it is produced. Implementations write
// synchronously; the monitor keeps no history of its own.
type Sink interface {
	Snapshot(ctx context.Context, snapshot model.Snapshot) error
	Warning(ctx context.Context, warning model.Warning) error
}

// MultiSink forwards every record to each sink in order. All sinks see the
// record even when an earlier one fails; the errors are joined.
type MultiSink []Sink

func (m MultiSink) Snapshot(ctx context.Context, snapshot model.Snapshot) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Snapshot(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Warning(ctx context.Context, warning model.Warning) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Warning(ctx, warning); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder is an in-memory sink, mostly useful for tests and short runs.
type Recorder struct {
	Snapshots []model.Snapshot
	Warnings  []model.Warning
}

func (r *Recorder) Snapshot(_ context.Context, snapshot model.Snapshot) error {
	r.Snapshots = append(r.Snapshots, snapshot)
	return nil
}

func (r *Recorder) Warning(_ context.Context, warning model.Warning) error {
	r.Warnings = append(r.Warnings, warning)
	return nil
}

type discardSink struct{}

func (discardSink) Snapshot(context.Context, model.Snapshot) error { return nil }
func (discardSink) Warning(context.Context, model.Warning) error   { return nil }
