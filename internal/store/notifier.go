package store

import (
	"context"
	"errors"
)

// Notifiers fans a commit out to several notifiers. Every notifier is called
// even when an earlier one fails.
type Notifiers []CommitNotifier

func (ns Notifiers) PublishSnapshotCommitted(ctx context.Context, table string, rows int) error {
	var errs []error
	for _, n := range ns {
		if err := n.PublishSnapshotCommitted(ctx, table, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
