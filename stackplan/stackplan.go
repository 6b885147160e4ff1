// Package stackplan enumerates, per folder layout, the tile base-call
// stacks that must be read from disk to sample one index read.
package stackplan

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/layout"
	"github.com/bihealth/digestiflow-cli/manifest"
)

// ErrLayoutUnsupported is returned for layouts the stack planner has no
// enumeration rule for (HiSeqX).
var ErrLayoutUnsupported = errors.New("stackplan: layout not supported for adapter sampling")

// BclLocator names one base-call file and, for CBCL containers, which
// sub-tile within it to decode. This replaces the original tool's
// "path!N" string-smuggled tile index with an explicit sum type, per the
// design note in spec.md §9: the "!N" suffix is an implementation detail
// of the Stack Planner / BCL Decoder boundary, never an external
// contract.
type BclLocator struct {
	Path     string
	CBCLTile *uint32 // nil for plain/gzip BCL files
}

// TileBclStack is one tile's worth of per-cycle base-call file locations
// for a single lane, ordered cycle-ascending.
type TileBclStack struct {
	LaneNo int
	Paths  []BclLocator
}

// baseCallsDir is Data/Intensities/BaseCalls under a run directory.
func baseCallsDir(root string) string {
	return filepath.Join(root, "Data", "Intensities", "BaseCalls")
}

// laneDirs returns the lane directories L001, L002, ... under
// Data/Intensities/BaseCalls, sorted lexicographically so that ordinal
// position (1-based) determines lane number.
func laneDirs(root string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(baseCallsDir(root), "L???"))
	if err != nil {
		return nil, errors.Wrap(err, "stackplan: globbing lane directories")
	}
	sort.Strings(matches)
	return matches, nil
}

// Plan enumerates the stacks for one index read on one run directory.
// The outer slice is indexed by lane ordinal (0-based, lane number =
// index+1); the inner slice enumerates tiles within that lane.
// startCycle is the 1-based cycle at which this index read begins.
func Plan(l layout.FolderLayout, desc manifest.ReadDescription, root string, startCycle int) ([][]TileBclStack, error) {
	switch l {
	case layout.MiniSeq:
		return planMiniSeq(root, desc, startCycle)
	case layout.MiSeq:
		return planMiSeq(root, desc, startCycle)
	case layout.NovaSeq:
		return planNovaSeq(root, desc, startCycle)
	case layout.HiSeqX:
		return nil, ErrLayoutUnsupported
	default:
		return nil, errors.Errorf("stackplan: unknown layout %v", l)
	}
}

func cycleRange(startCycle, numCycles int) []int {
	cycles := make([]int, numCycles)
	for i := range cycles {
		cycles[i] = startCycle + i
	}
	return cycles
}

// planMiniSeq: one stack per lane directory, reading
// L???/NNNN.bcl.bgzf for NNNN = startCycle..startCycle+numCycles-1.
func planMiniSeq(root string, desc manifest.ReadDescription, startCycle int) ([][]TileBclStack, error) {
	lanes, err := laneDirs(root)
	if err != nil {
		return nil, err
	}

	result := make([][]TileBclStack, 0, len(lanes))
	for i, lane := range lanes {
		var paths []BclLocator
		for _, cycle := range cycleRange(startCycle, desc.NumCycles) {
			paths = append(paths, BclLocator{
				Path: filepath.Join(lane, fmt.Sprintf("%04d.bcl.bgzf", cycle)),
			})
		}
		result = append(result, []TileBclStack{{LaneNo: i + 1, Paths: paths}})
	}
	return result, nil
}

// planMiSeq: one stack per tile prototype found under
// L???/C1.1/s_?_????.bcl[.gz].
func planMiSeq(root string, desc manifest.ReadDescription, startCycle int) ([][]TileBclStack, error) {
	lanes, err := laneDirs(root)
	if err != nil {
		return nil, err
	}

	result := make([][]TileBclStack, 0, len(lanes))
	for i, lane := range lanes {
		var stacks []TileBclStack
		for _, suffix := range []string{"", ".gz"} {
			pattern := filepath.Join(lane, "C1.1", "s_?_????.bcl"+suffix)
			prototypes, err := filepath.Glob(pattern)
			if err != nil {
				return nil, errors.Wrap(err, "stackplan: globbing MiSeq tile prototypes")
			}
			sort.Strings(prototypes)
			for _, prototype := range prototypes {
				fileName := filepath.Base(prototype)
				var paths []BclLocator
				for _, cycle := range cycleRange(startCycle, desc.NumCycles) {
					paths = append(paths, BclLocator{
						Path: filepath.Join(lane, fmt.Sprintf("C%d.1", cycle), fileName),
					})
				}
				stacks = append(stacks, TileBclStack{LaneNo: i + 1, Paths: paths})
			}
		}
		result = append(result, stacks)
	}
	return result, nil
}

// planNovaSeq: one stack per tile prototype found under
// L???/C1.1/L???_?.cbcl; each path encodes "!0" (sub-tile 0 within the
// CBCL container — each prototype file names exactly one logical tile).
func planNovaSeq(root string, desc manifest.ReadDescription, startCycle int) ([][]TileBclStack, error) {
	lanes, err := laneDirs(root)
	if err != nil {
		return nil, err
	}

	zero := uint32(0)
	result := make([][]TileBclStack, 0, len(lanes))
	for i, lane := range lanes {
		pattern := filepath.Join(lane, "C1.1", "L???_?.cbcl")
		prototypes, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "stackplan: globbing NovaSeq tile prototypes")
		}
		sort.Strings(prototypes)

		var stacks []TileBclStack
		for _, prototype := range prototypes {
			fileName := filepath.Base(prototype)
			var paths []BclLocator
			for _, cycle := range cycleRange(startCycle, desc.NumCycles) {
				paths = append(paths, BclLocator{
					Path:     filepath.Join(lane, fmt.Sprintf("C%d.1", cycle), fileName),
					CBCLTile: &zero,
				})
			}
			stacks = append(stacks, TileBclStack{LaneNo: i + 1, Paths: paths})
		}
		result = append(result, stacks)
	}
	return result, nil
}
