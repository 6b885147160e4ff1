// Package flowcell combines the two parsed Illumina manifests with
// operator configuration into a canonical FlowCell record, and derives
// the sequencing status that drives the REST synchronization state
// machine.
package flowcell

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/manifest"
)

// SequencingStatus is one of the five lifecycle states a FlowCell's
// sequencing phase can be in.
type SequencingStatus string

const (
	StatusInitial    SequencingStatus = "initial"
	StatusInProgress SequencingStatus = "in_progress"
	StatusComplete   SequencingStatus = "complete"
	StatusFailed     SequencingStatus = "failed"
	StatusClosed     SequencingStatus = "closed"
)

// isTerminal reports whether s is one of the statuses derive_status must
// never downgrade out of.
func (s SequencingStatus) isTerminal() bool {
	return s == StatusClosed || s == StatusFailed || s == StatusComplete
}

// FlowCell is the canonical, persisted-via-REST record for one
// sequencer run.
type FlowCell struct {
	SodarUUID          *string `json:"sodar_uuid"`
	RunDate            string  `json:"run_date"`
	RunNumber          int     `json:"run_number"`
	Slot               string  `json:"slot"`
	VendorID           string  `json:"vendor_id"`
	Label              *string `json:"label"`
	ManualLabel        *string `json:"manual_label"`
	Description        *string `json:"description"`
	SequencingMachine  string  `json:"sequencing_machine"`
	NumLanes           int     `json:"num_lanes"`
	Operator           *string `json:"operator"`
	RTAVersion         int     `json:"rta_version"`
	StatusSequencing   string  `json:"status_sequencing"`
	StatusConversion   string  `json:"status_conversion"`
	StatusDelivery     string  `json:"status_delivery"`
	DeliveryType       string  `json:"delivery_type"`
	PlannedReads       *string `json:"planned_reads"`
	CurrentReads       *string `json:"current_reads"`
}

// ErrRTAVersionUnparseable is fatal: the leading integer of the RTA
// version string could not be parsed.
var ErrRTAVersionUnparseable = manifest.ErrRTAVersionUnparseable

// majorRTAVersion extracts the integer before the first '.' of a dotted
// version string such as "3.4.4".
func majorRTAVersion(raw string) (int, error) {
	major := raw
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		major = raw[:idx]
	}
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0, errors.Wrapf(ErrRTAVersionUnparseable, "value %q", raw)
	}
	return n, nil
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Settings is the subset of operator configuration the record builder
// needs.
type Settings struct {
	Operator string
}

// Build combines run and params, the directory path, and the previous
// sequencing status (if any — "initial" when this flow cell is new) into
// a canonical FlowCell record. Build never talks to the network or the
// REST service; the caller decides separately whether to create, update,
// or skip.
func Build(run manifest.RunInfo, params manifest.RunParameters, path string, prevStatus SequencingStatus, settings Settings) (FlowCell, error) {
	rta, err := majorRTAVersion(params.RTAVersion)
	if err != nil {
		return FlowCell{}, err
	}

	if prevStatus == "" {
		prevStatus = StatusInitial
	}
	status := DeriveStatus(run, params, path, prevStatus)

	planned := manifest.StringDescription(params.PlannedReads)
	current := manifest.StringDescription(run.Reads)

	return FlowCell{
		RunDate:           run.Date,
		RunNumber:         run.RunNumber,
		Slot:              params.FlowcellSlot,
		VendorID:          run.Flowcell,
		Label:             ptr(params.ExperimentName),
		SequencingMachine: run.Instrument,
		NumLanes:          run.LaneCount,
		Operator:          ptr(settings.Operator),
		RTAVersion:        rta,
		StatusSequencing:  string(status),
		StatusConversion:  string(StatusInitial),
		StatusDelivery:    string(StatusInitial),
		DeliveryType:      "seq",
		PlannedReads:      ptr(planned),
		CurrentReads:      ptr(current),
	}, nil
}

// DeriveStatus computes the sequencing status for a flow cell:
//
//  1. A terminal current status (closed, failed, complete) is sticky and
//     is returned unchanged.
//  2. Else, if planned reads are known and differ structurally from the
//     reads actually observed in RunInfo.xml, the run has failed.
//  3. Else, if path/RTAComplete.txt exists, sequencing is complete.
//  4. Else sequencing is still in progress.
func DeriveStatus(run manifest.RunInfo, params manifest.RunParameters, path string, current SequencingStatus) SequencingStatus {
	if current.isTerminal() {
		return current
	}
	if len(params.PlannedReads) > 0 && !manifest.SameReads(run.Reads, params.PlannedReads) {
		return StatusFailed
	}
	if _, err := os.Stat(filepath.Join(path, "RTAComplete.txt")); err == nil {
		return StatusComplete
	}
	return StatusInProgress
}
