// Package histogram samples index reads across a run directory's tiles
// and builds per-lane base-call frequency histograms, used to detect
// adapter contamination without decoding full read data.
package histogram

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/bcl"
	"github.com/bihealth/digestiflow-cli/layout"
	"github.com/bihealth/digestiflow-cli/manifest"
	"github.com/bihealth/digestiflow-cli/stackplan"
	"github.com/bihealth/digestiflow-cli/workerpool"
)

// IndexCounts is one lane's sampled histogram for one index read. It is
// ephemeral: built in-process, consumed immediately by the REST client,
// never itself marshaled.
type IndexCounts struct {
	IndexNo    int
	LaneNo     int
	SampleSize int
	Hist       map[string]int
}

// LaneIndexHistogram is the wire shape POSTed to the indexhistos API
// endpoint.
type LaneIndexHistogram struct {
	Flowcell         string         `json:"flowcell"`
	Lane             int            `json:"lane"`
	IndexReadNo      int            `json:"index_read_no"`
	SampleSize       int            `json:"sample_size"`
	MinIndexFraction float64        `json:"min_index_fraction"`
	Histogram        map[string]int `json:"histogram"`
}

// ToWire converts c into the POST payload for flowcellUUID, applying the
// min_index_fraction filter described in spec.md §4.6 step 6.
func (c IndexCounts) ToWire(flowcellUUID string, minIndexFraction float64) LaneIndexHistogram {
	filtered := make(map[string]int, len(c.Hist))
	for seq, count := range c.Hist {
		if c.SampleSize > 0 && float64(count)/float64(c.SampleSize) > minIndexFraction {
			filtered[seq] = count
		}
	}
	return LaneIndexHistogram{
		Flowcell:         flowcellUUID,
		Lane:             c.LaneNo,
		IndexReadNo:      c.IndexNo,
		SampleSize:       c.SampleSize,
		MinIndexFraction: minIndexFraction,
		Histogram:        filtered,
	}
}

// Settings parameterizes histogram sampling. Seed selects the
// deterministic stack_no across lanes; Threads bounds the worker pools
// used for the lane- and cycle-level fan-out; SampleReadsPerTile clamps
// the clusters read per file (0 means "no clamp").
type Settings struct {
	Seed               int64
	Threads            int
	SampleReadsPerTile int
}

// pickStackNo deterministically chooses a stack index in [0, numStacks)
// from seed. Using the stdlib's seeded math/rand.Rand gives the same
// reproducibility contract as the original tool's seeded xorshift RNG;
// no third-party seeded-PRNG package is grounded anywhere in the
// retrieval pack.
func pickStackNo(seed int64, numStacks int) int {
	if numStacks <= 0 {
		return 0
	}
	return rand.New(rand.NewSource(seed)).Intn(numStacks)
}

// SampleIndexRead implements spec.md §4.6 steps 1-7 for a single index
// read: plan the tile stacks, pick one deterministic stack_no shared
// across lanes, decode and join per lane in parallel, and build one
// IndexCounts per lane.
func SampleIndexRead(l layout.FolderLayout, desc manifest.ReadDescription, root string, startCycle, indexNo int, settings Settings) ([]IndexCounts, error) {
	stacks, err := stackplan.Plan(l, desc, root, startCycle)
	if err != nil {
		return nil, errors.Wrap(err, "histogram: planning tile stacks")
	}
	if len(stacks) == 0 || len(stacks[0]) == 0 {
		return nil, nil
	}

	stackNo := pickStackNo(settings.Seed, len(stacks[0]))
	lanePool := workerpool.New(settings.Threads)

	results := make([]IndexCounts, len(stacks))
	err = workerpool.RunIndexed(lanePool, len(stacks), func(laneIdx int) error {
		laneStacks := stacks[laneIdx]
		if stackNo >= len(laneStacks) {
			return errors.Errorf("histogram: lane %d has only %d stacks, want index %d", laneIdx+1, len(laneStacks), stackNo)
		}
		stack := laneStacks[stackNo]

		counts, err := sampleStack(stack, settings)
		if err != nil {
			return err
		}
		counts.IndexNo = indexNo
		results[laneIdx] = counts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// sampleStack implements steps 3-6 for one lane's chosen tile stack: it
// decodes every cycle's base-call file in parallel, verifies they agree
// on cluster count, joins them cycle-ascending into per-cluster
// sequences, and builds the raw (unfiltered) frequency histogram.
func sampleStack(stack stackplan.TileBclStack, settings Settings) (IndexCounts, error) {
	cyclePool := workerpool.New(settings.Threads)

	decoded := make([][]byte, len(stack.Paths))
	err := workerpool.RunIndexed(cyclePool, len(stack.Paths), func(i int) error {
		bases, err := bcl.Decode(stack.Paths[i], settings.SampleReadsPerTile)
		if err != nil {
			return errors.Wrapf(err, "histogram: decoding lane %d cycle %d", stack.LaneNo, i)
		}
		decoded[i] = bases
		return nil
	})
	if err != nil {
		return IndexCounts{}, err
	}

	n := 0
	if len(decoded) > 0 {
		n = len(decoded[0])
	}
	for _, d := range decoded {
		if len(d) != n {
			return IndexCounts{}, errors.Wrapf(bcl.ErrStackLengthMismatch, "lane %d: %d vs %d", stack.LaneNo, len(d), n)
		}
	}

	hist := make(map[string]int)
	seq := make([]byte, len(decoded))
	for cluster := 0; cluster < n; cluster++ {
		for cycle, bases := range decoded {
			seq[cycle] = bases[cluster]
		}
		hist[string(seq)]++
	}

	return IndexCounts{LaneNo: stack.LaneNo, SampleSize: n, Hist: hist}, nil
}

// Driver walks run.Reads in order, sampling every indexed read and
// returning one []IndexCounts slice per sampled read. It implements
// spec.md §4.6's driver rule: cycle starts at 1, the first cycle is
// always discarded from consideration (index_no only increments on
// indexed reads, and cycle advances by num_cycles regardless of whether
// a read was sampled).
func Driver(l layout.FolderLayout, reads []manifest.ReadDescription, root string, settings Settings) ([][]IndexCounts, error) {
	var out [][]IndexCounts
	cycle := 1
	indexNo := 0
	for _, read := range reads {
		if read.IsIndex {
			indexNo++
			counts, err := SampleIndexRead(l, read, root, cycle, indexNo, settings)
			if err != nil {
				return nil, err
			}
			out = append(out, counts)
		}
		cycle += read.NumCycles
	}
	return out, nil
}
