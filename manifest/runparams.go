package manifest

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/layout"
)

// ErrLayoutUnsupported is returned when run-parameters parsing is
// requested for a folder layout this manifest format has no rule for.
var ErrLayoutUnsupported = errors.New("manifest: run parameters not supported for this layout")

// ParseRunParameters parses the layout-specific run-parameters manifest
// (runParameters.xml for MiSeq, RunParameters.xml otherwise) from r.
func ParseRunParameters(r io.Reader, l layout.FolderLayout) (RunParameters, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return RunParameters{}, errors.Wrap(err, "manifest: reading run parameters")
	}

	switch l {
	case layout.MiSeq:
		return parseRunParamsMiSeq(doc)
	case layout.MiniSeq, layout.NovaSeq:
		return parseRunParamsPlannedFields(doc)
	default:
		return RunParameters{}, errors.Wrapf(ErrLayoutUnsupported, "%s", l)
	}
}

func parseRunParamsMiSeq(doc *node) (RunParameters, error) {
	reads, err := parseReadDescriptions(doc)
	if err != nil {
		return RunParameters{}, errors.Wrap(err, "manifest: parsing reads from runParameters.xml")
	}

	scanNumber, ok := textOfFirst(doc, "ScanNumber")
	if !ok {
		return RunParameters{}, errors.New("manifest: runParameters.xml has no <ScanNumber>")
	}
	runNumber, err := strconv.Atoi(scanNumber)
	if err != nil {
		return RunParameters{}, errors.Wrap(err, "manifest: <ScanNumber> not an integer")
	}

	slot, ok := textOfFirst(doc, "FCPosition")
	if !ok || slot == "" {
		slot = "A"
	}

	experiment, _ := textOfFirst(doc, "ExperimentName")

	rta, err := parseRTAVersionString(doc)
	if err != nil {
		return RunParameters{}, err
	}

	return RunParameters{
		PlannedReads:   reads,
		RTAVersion:     rta,
		RunNumber:      runNumber,
		FlowcellSlot:   slot,
		ExperimentName: experiment,
	}, nil
}

// plannedCycleFields lists the four planned-cycle fields in the fixed
// assembly order spec.md §4.2 requires: read 1, index 1, index 2, read 2.
var plannedCycleFields = []struct {
	name    string
	isIndex bool
}{
	{"PlannedRead1Cycles", false},
	{"PlannedIndex1ReadCycles", true},
	{"PlannedIndex2ReadCycles", true},
	{"PlannedRead2Cycles", false},
}

func parseRunParamsPlannedFields(doc *node) (RunParameters, error) {
	var reads []ReadDescription
	number := 1
	for _, f := range plannedCycleFields {
		raw, ok := textOfFirst(doc, f.name)
		if !ok || raw == "" {
			continue
		}
		numCycles, err := strconv.Atoi(raw)
		if err != nil {
			return RunParameters{}, errors.Wrapf(err, "manifest: <%s> not an integer", f.name)
		}
		if numCycles == 0 {
			continue
		}
		reads = append(reads, ReadDescription{
			Number:    number,
			NumCycles: numCycles,
			IsIndex:   f.isIndex,
		})
		number++
	}

	runNumberStr, ok := textOfFirst(doc, "RunNumber")
	if !ok {
		return RunParameters{}, errors.New("manifest: RunParameters.xml has no <RunNumber>")
	}
	runNumber, err := strconv.Atoi(runNumberStr)
	if err != nil {
		return RunParameters{}, errors.Wrap(err, "manifest: <RunNumber> not an integer")
	}

	experiment, _ := textOfFirst(doc, "ExperimentName")

	rta, err := parseRTAVersionString(doc)
	if err != nil {
		return RunParameters{}, err
	}

	return RunParameters{
		PlannedReads:   reads,
		RTAVersion:     rta,
		RunNumber:      runNumber,
		FlowcellSlot:   "A",
		ExperimentName: experiment,
	}, nil
}

// parseRTAVersionString resolves the raw RTA version string: a
// <RtaVersion> element's text has its leading character stripped before
// use (some manifests write e.g. "v3.4.4"); a <RTAVersion> element's text
// is used as-is.
func parseRTAVersionString(doc *node) (string, error) {
	if raw, ok := textOfFirst(doc, "RtaVersion"); ok && raw != "" {
		return strings.TrimPrefix(raw, raw[:1]), nil
	}
	raw, ok := textOfFirst(doc, "RTAVersion")
	if !ok {
		return "", errors.New("manifest: no <RtaVersion> or <RTAVersion> element")
	}
	return raw, nil
}
