package manifest

import (
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ParseRunInfo parses RunInfo.xml from r.
//
// Queries have "anywhere in document" semantics:
//
//	reads:       union of //RunInfoRead and //Read, document order, NumCycles==0 dropped
//	run_id:      //Run/@Id
//	run_number:  //Run/@Number
//	flowcell:    //Flowcell/text()
//	instrument:  //Instrument/text()
//	lane_count:  //FlowcellLayout/@LaneCount
//	date:        //Date/text(), canonicalized (see parseRunDate)
func ParseRunInfo(r io.Reader) (RunInfo, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return RunInfo{}, errors.Wrap(err, "manifest: reading RunInfo.xml")
	}

	reads, err := parseReadDescriptions(doc)
	if err != nil {
		return RunInfo{}, errors.Wrap(err, "manifest: parsing reads from RunInfo.xml")
	}

	runElem, ok := firstElementNamed(doc, "Run")
	if !ok {
		return RunInfo{}, errors.New("manifest: RunInfo.xml has no <Run> element")
	}
	runID, ok := runElem.attr("Id")
	if !ok {
		return RunInfo{}, errors.New("manifest: <Run> missing Id attribute")
	}
	runNumberStr, ok := runElem.attr("Number")
	if !ok {
		return RunInfo{}, errors.New("manifest: <Run> missing Number attribute")
	}
	runNumber, err := strconv.Atoi(runNumberStr)
	if err != nil {
		return RunInfo{}, errors.Wrap(err, "manifest: <Run Number=...> not an integer")
	}

	flowcell, ok := textOfFirst(doc, "Flowcell")
	if !ok {
		return RunInfo{}, errors.New("manifest: RunInfo.xml has no <Flowcell>")
	}
	instrument, ok := textOfFirst(doc, "Instrument")
	if !ok {
		return RunInfo{}, errors.New("manifest: RunInfo.xml has no <Instrument>")
	}

	layoutElem, ok := firstElementNamed(doc, "FlowcellLayout")
	if !ok {
		return RunInfo{}, errors.New("manifest: RunInfo.xml has no <FlowcellLayout>")
	}
	laneCountStr, ok := layoutElem.attr("LaneCount")
	if !ok {
		return RunInfo{}, errors.New("manifest: <FlowcellLayout> missing LaneCount attribute")
	}
	laneCount, err := strconv.Atoi(laneCountStr)
	if err != nil {
		return RunInfo{}, errors.Wrap(err, "manifest: <FlowcellLayout LaneCount=...> not an integer")
	}

	rawDate, ok := textOfFirst(doc, "Date")
	if !ok {
		return RunInfo{}, errors.New("manifest: RunInfo.xml has no <Date>")
	}
	date, err := parseRunDate(rawDate)
	if err != nil {
		return RunInfo{}, err
	}

	return RunInfo{
		RunID:      runID,
		RunNumber:  runNumber,
		Flowcell:   flowcell,
		Instrument: instrument,
		Date:       date,
		LaneCount:  laneCount,
		Reads:      reads,
	}, nil
}

// parseRunDate canonicalizes RunInfo.xml's Date field to YYYY-MM-DD. Two
// formats are accepted, tried in this order:
//
//  1. %y%m%d, e.g. "210503" -> "2021-05-03"
//  2. US-locale timestamp, e.g. "5/3/2021 9:15:00 AM" -> "2021-05-03"
//
// Parse failure under both formats is fatal (ErrDateUnparseable). Earlier
// revisions of the source tool instead spliced the raw string as
// "20"+yy+"-"+mm+"-"+dd; that rule is buggy for any date string that is
// not exactly six digits and is intentionally not implemented here.
func parseRunDate(raw string) (string, error) {
	if t, err := time.Parse("060102", raw); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse("1/2/2006 3:04:05 PM", raw); err == nil {
		return t.Format("2006-01-02"), nil
	}
	return "", errors.Wrapf(ErrDateUnparseable, "value %q", raw)
}
