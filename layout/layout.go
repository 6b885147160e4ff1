// Package layout recognizes which Illumina instrument family produced a
// sequencer output directory by checking for marker files, without
// reading anything but the filesystem.
package layout

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FolderLayout identifies the directory conventions and base-call
// container format used by one instrument family.
type FolderLayout int

const (
	// Unknown is the zero value; Guess never returns it on success.
	Unknown FolderLayout = iota
	MiSeq
	MiniSeq
	HiSeqX
	NovaSeq
)

func (l FolderLayout) String() string {
	switch l {
	case MiSeq:
		return "MiSeq"
	case MiniSeq:
		return "MiniSeq"
	case HiSeqX:
		return "HiSeqX"
	case NovaSeq:
		return "NovaSeq"
	default:
		return "unknown"
	}
}

// ErrUnknown is returned by Guess when no marker set matches.
var ErrUnknown = errors.New("layout: could not guess folder layout")

func exists(elem ...string) bool {
	_, err := os.Stat(filepath.Join(elem...))
	return err == nil
}

// Guess classifies the run directory at path into one FolderLayout. Rules
// are evaluated in order, first match wins:
//
//  1. NovaSeq: RunParameters.xml exists and at least one of
//     L001/C1.1/L001_{1,2}.cbcl exists.
//  2. MiSeq: both L001/C1.1 and runParameters.xml (lowercase r) exist.
//  3. MiniSeq: both L001 and RunParameters.xml exist.
//  4. HiSeqX: both Data/Intensities/s.locs and RunParameters.xml exist.
//
// Guess is pure: it only checks file existence, never file contents.
func Guess(path string) (FolderLayout, error) {
	baseCalls := filepath.Join(path, "Data", "Intensities", "BaseCalls")
	runParamsUpper := filepath.Join(path, "RunParameters.xml")
	runParamsLower := filepath.Join(path, "runParameters.xml")

	if exists(runParamsUpper) {
		c1 := filepath.Join(baseCalls, "L001", "C1.1")
		if exists(c1, "L001_1.cbcl") || exists(c1, "L001_2.cbcl") {
			return NovaSeq, nil
		}
	}

	if exists(baseCalls, "L001", "C1.1") && exists(runParamsLower) {
		return MiSeq, nil
	}

	if exists(baseCalls, "L001") && exists(runParamsUpper) {
		return MiniSeq, nil
	}

	if exists(path, "Data", "Intensities", "s.locs") && exists(runParamsUpper) {
		return HiSeqX, nil
	}

	return Unknown, ErrUnknown
}

// RunParametersFileName returns the layout-specific name of the run
// parameters manifest: "runParameters.xml" for MiSeq, "RunParameters.xml"
// for everything else.
func (l FolderLayout) RunParametersFileName() string {
	if l == MiSeq {
		return "runParameters.xml"
	}
	return "RunParameters.xml"
}
