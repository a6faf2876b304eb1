package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"nekroagent/sandboxd/internal/logging"
	"nekroagent/sandboxd/internal/metrics"
)

// SweepOrphans enumerates every container known to the engine (including
// stopped ones) and destroys those whose name contains imageSubstring
// (spec §4.8). Intended to run at platform startup and shutdown, and
// exposed as a standalone operator action (SPEC_FULL.md "Supplemented
// Features"). Errors on individual containers never abort the sweep; they
// are logged and collected into the returned error.
func SweepOrphans(ctx context.Context, cli *client.Client, imageSubstring string) error {
	metrics.Get().OrphanSweepsTotal.Inc()

	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	var failures []string
	for _, c := range containers {
		if !nameMatches(c.Names, imageSubstring) {
			continue
		}

		if err := cli.ContainerKill(ctx, c.ID, "SIGKILL"); err != nil && !isNotFound(err) {
			logging.L().Warn("orphan sweep: kill failed", zap.String("container_id", c.ID), zap.Error(err))
			failures = append(failures, fmt.Sprintf("kill %s: %v", c.ID, err))
		}
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil && !isNotFound(err) {
			logging.L().Warn("orphan sweep: remove failed", zap.String("container_id", c.ID), zap.Error(err))
			failures = append(failures, fmt.Sprintf("remove %s: %v", c.ID, err))
		} else {
			metrics.Get().OrphanSweepRemoved.Inc()
			logging.L().Info("orphan sweep: removed container", zap.String("container_id", c.ID))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("orphan sweep: %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

func nameMatches(names []string, substr string) bool {
	for _, n := range names {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}
