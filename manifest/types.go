// Package manifest parses the two XML documents an Illumina run directory
// carries — RunInfo.xml and the layout-specific run-parameters file — into
// typed records.
//
// The original digestiflow-cli accessed both documents through a
// dynamically-typed XPath value (sxd_xpath's Value enum: Nodeset | String
// | Number | Boolean) evaluated against absolute ("anywhere in document")
// expressions such as "//Run/@Id". This port keeps the "anywhere in
// document" lookup semantics but exposes them as small typed query
// helpers (elementsNamed, firstElementNamed, attr, text) over a hand-built
// tree from encoding/xml, rather than embedding a general XPath engine:
// no XPath library is grounded anywhere in the retrieval pack, and the
// handful of lookups this format needs (one attribute, one text node, or
// "all elements named X") do not warrant one.
package manifest

import (
	"fmt"
	"strings"
)

// ReadDescription describes one sequencing read as declared by an
// instrument manifest.
type ReadDescription struct {
	Number    int
	NumCycles int
	IsIndex   bool
}

// RunInfo is the typed content of RunInfo.xml.
type RunInfo struct {
	RunID      string
	RunNumber  int
	Flowcell   string
	Instrument string
	Date       string // canonicalized to YYYY-MM-DD
	LaneCount  int
	Reads      []ReadDescription
}

// RunParameters is the typed content of the layout-specific run
// parameters manifest (runParameters.xml / RunParameters.xml).
type RunParameters struct {
	PlannedReads   []ReadDescription
	RTAVersion     string
	RunNumber      int
	FlowcellSlot   string
	ExperimentName string
}

// StringDescription encodes an ordered sequence of reads as
// "{num_cycles}{T|B}" concatenated in order, e.g. [76T,8B,8B,76T] ->
// "76T8B8B76T".
func StringDescription(reads []ReadDescription) string {
	var b strings.Builder
	for _, r := range reads {
		kind := "T"
		if r.IsIndex {
			kind = "B"
		}
		fmt.Fprintf(&b, "%d%s", r.NumCycles, kind)
	}
	return b.String()
}

// SameReads reports whether a and b are structurally equal ordered
// sequences of (num_cycles, is_index) pairs, ignoring Number.
func SameReads(a, b []ReadDescription) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].NumCycles != b[i].NumCycles || a[i].IsIndex != b[i].IsIndex {
			return false
		}
	}
	return true
}
