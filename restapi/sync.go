package restapi

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/flowcell"
)

// SyncOptions gates the three branch points of the state machine in
// spec.md §4.7.
type SyncOptions struct {
	RegisterEnabled   bool // register on 404
	UpdateEnabled     bool // PUT on 200
	SkipIfStatusFinal bool // keep remote record when status_sequencing is terminal
}

// SyncResult is the outcome of Sync: either a flow cell record (created,
// updated, or the untouched remote one) or an explicit "skipped, not an
// error" outcome (404 with registration disabled).
type SyncResult struct {
	FlowCell flowcell.FlowCell
	Skipped  bool
}

var terminalStatuses = map[string]bool{
	string(flowcell.StatusComplete): true,
	string(flowcell.StatusFailed):   true,
	string(flowcell.StatusClosed):   true,
}

// mergeRebuilt folds rebuilt's derived fields into remote, preserving
// everything else (including SodarUUID) per spec.md §4.7: "only
// planned_reads, current_reads, and status_sequencing are taken from the
// rebuild; everything else ... is preserved."
func mergeRebuilt(remote, rebuilt flowcell.FlowCell) flowcell.FlowCell {
	merged := remote
	merged.PlannedReads = rebuilt.PlannedReads
	merged.CurrentReads = rebuilt.CurrentReads
	merged.StatusSequencing = rebuilt.StatusSequencing
	return merged
}

// Sync runs the REST synchronization state machine for one directory's
// rebuilt flow cell record.
func Sync(ctx context.Context, client *Client, instrument string, runNumber int, vendorID string, rebuilt flowcell.FlowCell, opts SyncOptions) (SyncResult, error) {
	remote, err := client.Resolve(ctx, instrument, runNumber, vendorID)
	if err == nil {
		return syncExisting(ctx, client, remote, rebuilt, opts)
	}
	if !IsNotFound(err) {
		return SyncResult{}, errors.Wrap(err, "restapi: resolving flow cell")
	}

	if !opts.RegisterEnabled {
		return SyncResult{Skipped: true}, nil
	}
	created, err := client.Create(ctx, rebuilt)
	if err != nil {
		return SyncResult{}, errors.Wrap(err, "restapi: registering flow cell")
	}
	return SyncResult{FlowCell: created}, nil
}

func syncExisting(ctx context.Context, client *Client, remote, rebuilt flowcell.FlowCell, opts SyncOptions) (SyncResult, error) {
	if !opts.UpdateEnabled {
		return SyncResult{FlowCell: remote}, nil
	}

	if terminalStatuses[remote.StatusSequencing] && opts.SkipIfStatusFinal {
		return SyncResult{FlowCell: remote}, nil
	}

	if remote.SodarUUID == nil {
		return SyncResult{}, errors.New("restapi: resolved flow cell has no sodar_uuid")
	}
	merged := mergeRebuilt(remote, rebuilt)
	updated, err := client.Update(ctx, *remote.SodarUUID, merged)
	if err != nil {
		return SyncResult{}, errors.Wrap(err, "restapi: updating flow cell")
	}
	return SyncResult{FlowCell: updated}, nil
}

// ShouldSkipAdapterAnalysis implements spec.md §4.7's adapter-analysis
// skip check: existing histogram count equal to numLanes *
// count('B' in plannedReads) and force disabled.
func ShouldSkipAdapterAnalysis(existingCount, numLanes int, plannedReads string, forceAnalyzeAdapters bool) bool {
	if forceAnalyzeAdapters {
		return false
	}
	expected := numLanes * countByte(plannedReads, 'B')
	return existingCount == expected
}

func countByte(s string, b byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			n++
		}
	}
	return n
}
