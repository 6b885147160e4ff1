// Package ingest is the per-directory driver that ties the layout
// detector, manifest reader, record builder, REST synchronization, and
// histogram aggregator together, plus the run-level driver that walks
// every positional path and aggregates per-directory failures into one
// exit status. Grounded on original_source/src/ingest/mod.rs's
// process_folder and run functions.
package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/bihealth/digestiflow-cli/flowcell"
	"github.com/bihealth/digestiflow-cli/histogram"
	"github.com/bihealth/digestiflow-cli/layout"
	"github.com/bihealth/digestiflow-cli/manifest"
	"github.com/bihealth/digestiflow-cli/restapi"
	"github.com/bihealth/digestiflow-cli/settings"
)

// ErrManifestMissing is reported when RunInfo.xml is absent from a
// candidate directory; the directory is skipped, not fatal to the run.
var ErrManifestMissing = errors.New("ingest: RunInfo.xml not found")

// ProcessDirectory implements process_folder: parse the manifests, run
// the REST synchronization state machine, then optionally sample and
// upload adapter histograms.
func ProcessDirectory(ctx context.Context, client *restapi.Client, path string, s settings.Settings) error {
	vlog.Infof("starting to process folder %s", path)

	runInfoPath := filepath.Join(path, "RunInfo.xml")
	if _, err := os.Stat(runInfoPath); err != nil {
		return errors.Wrapf(ErrManifestMissing, "%s", runInfoPath)
	}

	folderLayout, err := layout.Guess(path)
	if err != nil {
		return errors.Wrapf(err, "ingest: guessing folder layout for %s", path)
	}
	vlog.Infof("guessed folder layout to be %s", folderLayout)

	run, err := parseRunInfo(runInfoPath)
	if err != nil {
		return errors.Wrap(err, "ingest: parsing RunInfo.xml")
	}

	paramsPath := filepath.Join(path, folderLayout.RunParametersFileName())
	params, err := parseRunParameters(paramsPath, folderLayout)
	if err != nil {
		return errors.Wrapf(err, "ingest: parsing %s", paramsPath)
	}

	vlog.VI(1).Infof("connecting to %q", s.Web.URL)
	if s.LogToken {
		vlog.VI(1).Infof("  (using header 'Authorization: Token %s')", s.Web.Token)
	}

	fc, skipped, err := syncFlowCell(ctx, client, run, params, path, s)
	if err != nil {
		return errors.Wrap(err, "ingest: synchronizing flow cell with API")
	}
	if skipped {
		vlog.Infof("flow cell was not found but registration is disabled; stopping here for %s", path)
		return nil
	}

	if s.Ingest.AnalyzeAdapters {
		if err := analyzeAdapters(ctx, client, fc, run, path, folderLayout, s); err != nil {
			return errors.Wrap(err, "ingest: analyzing adapters")
		}
	} else {
		vlog.Infof("adapter analysis disabled, skipping")
	}

	vlog.Infof("done processing folder %s", path)
	return nil
}

func parseRunInfo(path string) (manifest.RunInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return manifest.RunInfo{}, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return manifest.ParseRunInfo(f)
}

func parseRunParameters(path string, l layout.FolderLayout) (manifest.RunParameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return manifest.RunParameters{}, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return manifest.ParseRunParameters(f, l)
}

// syncFlowCell runs the REST state machine (restapi.Sync) against a
// freshly-rebuilt record and reports whether this directory should be
// skipped (404 + registration disabled).
func syncFlowCell(ctx context.Context, client *restapi.Client, run manifest.RunInfo, params manifest.RunParameters, path string, s settings.Settings) (flowcell.FlowCell, bool, error) {
	if !s.Ingest.Register && !s.Ingest.Update {
		fc, err := client.Resolve(ctx, run.Instrument, run.RunNumber, run.Flowcell)
		if restapi.IsNotFound(err) {
			return flowcell.FlowCell{}, true, nil
		}
		return fc, false, err
	}

	rebuilt, err := flowcell.Build(run, params, path, "", flowcell.Settings{Operator: s.Ingest.Operator})
	if err != nil {
		return flowcell.FlowCell{}, false, errors.Wrap(err, "building flow cell record")
	}

	result, err := restapi.Sync(ctx, client, run.Instrument, run.RunNumber, run.Flowcell, rebuilt, restapi.SyncOptions{
		RegisterEnabled:   s.Ingest.Register,
		UpdateEnabled:     s.Ingest.Update,
		SkipIfStatusFinal: s.Ingest.SkipIfStatusFinal,
	})
	if err != nil {
		return flowcell.FlowCell{}, false, err
	}
	return result.FlowCell, result.Skipped, nil
}

// analyzeAdapters implements analyze_adapters: for every indexed read,
// skip-check against existing server-side histograms, then sample and
// optionally upload.
func analyzeAdapters(ctx context.Context, client *restapi.Client, fc flowcell.FlowCell, run manifest.RunInfo, path string, l layout.FolderLayout, s settings.Settings) error {
	if fc.SodarUUID == nil {
		return errors.New("ingest: flow cell has no sodar_uuid, cannot analyze adapters")
	}
	flowcellUUID := *fc.SodarUUID

	cycle := 1
	indexNo := 0
	for _, desc := range run.Reads {
		if !desc.IsIndex {
			cycle += desc.NumCycles
			continue
		}
		indexNo++

		existing, err := client.ListHistograms(ctx, flowcellUUID)
		if err != nil {
			return errors.Wrap(err, "querying existing index histograms")
		}
		vlog.Infof("flow cell has %d histograms already", len(existing))

		plannedReads := ""
		if fc.PlannedReads != nil {
			plannedReads = *fc.PlannedReads
		}
		if restapi.ShouldSkipAdapterAnalysis(len(existing), fc.NumLanes, plannedReads, s.Ingest.ForceAnalyzeAdapters) {
			vlog.Infof("already have the expected number of adapters, not analyzing")
			cycle += desc.NumCycles
			continue
		}

		counts, err := histogram.SampleIndexRead(l, desc, path, cycle, indexNo, histogram.Settings{
			Seed:               s.Seed,
			Threads:            s.Threads,
			SampleReadsPerTile: s.Ingest.SampleReadsPerTile,
		})
		if err != nil {
			return errors.Wrap(err, "sampling adapters")
		}

		if s.Ingest.PostAdapters {
			for _, c := range counts {
				wire := c.ToWire(flowcellUUID, s.Ingest.MinIndexFraction)
				if err := client.PostHistogram(ctx, flowcellUUID, wire); err != nil {
					return errors.Wrap(err, "posting index histogram")
				}
			}
		}

		cycle += desc.NumCycles
	}
	return nil
}
