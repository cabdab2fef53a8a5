package cli

import (
	"context"
	"log/slog"

	loamAdapter "github.com/aretw0/rekitter/pkg/adapters/loam"
	"github.com/aretw0/rekitter/pkg/registry"
)

// RosterReport is the outcome of validating a roster.
type RosterReport struct {
	Changed  string
	Registry *registry.Registry
	Err      error
}

// WatchRoster validates the character documents in dir now and again after every
// change, until ctx is done.
func WatchRoster(ctx context.Context, dir string, logger *slog.Logger, report func(RosterReport)) error {
	loader, err := loamAdapter.Open(dir)
	if err != nil {
		return err
	}

	reg, err := loader.Registry(ctx)
	report(RosterReport{Registry: reg, Err: err})

	changes, err := loader.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("Watching roster", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("Roster changed", "id", id)
			reg, err := loader.Registry(ctx)
			report(RosterReport{Changed: id, Registry: reg, Err: err})
		}
	}
}
