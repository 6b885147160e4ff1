package histogram

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihealth/digestiflow-cli/bcl"
	"github.com/bihealth/digestiflow-cli/layout"
	"github.com/bihealth/digestiflow-cli/manifest"
)

func writeGzipBCL(t *testing.T, path string, clusterBytes []byte) {
	var body bytes.Buffer
	require.NoError(t, binary.Write(&body, binary.LittleEndian, uint32(len(clusterBytes))))
	body.Write(clusterBytes)

	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	_, err := gz.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}

// setupMiniSeqRun writes a MiniSeq run with one lane per entry of
// perLaneCycle and one cycle file per entry of perLaneCycle[lane], whose
// raw base-call bytes for lane/cycle are taken from
// perLaneCycle[lane][cycle].
func setupMiniSeqRun(t *testing.T, perLaneCycle [][][]byte) string {
	root := t.TempDir()
	for lane, cycles := range perLaneCycle {
		for cycle, clusterBytes := range cycles {
			path := filepath.Join(root, "Data", "Intensities", "BaseCalls", fmt.Sprintf("L%03d", lane+1), fmt.Sprintf("%04d.bcl.bgzf", cycle+1))
			writeGzipBCL(t, path, clusterBytes)
		}
	}
	return root
}

func TestSampleIndexReadBuildsHistogram(t *testing.T) {
	// 2 lanes, 2 cycles, 2 clusters per tile.
	// Lane 1: cycle1 bytes -> C,G ; cycle2 bytes -> C,G  => sequences "CC","GG"
	// Lane 2: cycle1 bytes -> C,C ; cycle2 bytes -> G,G  => sequences "CG","CG"
	root := setupMiniSeqRun(t, [][][]byte{
		{{0x01, 0x02}, {0x01, 0x02}},
		{{0x01, 0x01}, {0x02, 0x02}},
	})

	desc := manifest.ReadDescription{NumCycles: 2, IsIndex: true}
	results, err := SampleIndexRead(layout.MiniSeq, desc, root, 1, 1, Settings{Seed: 1})
	require.NoError(t, err)
	require.Len(t, results, 2)

	lane1 := results[0]
	assert.Equal(t, 1, lane1.LaneNo)
	assert.Equal(t, 1, lane1.IndexNo)
	assert.Equal(t, 2, lane1.SampleSize)
	assert.Equal(t, map[string]int{"CC": 1, "GG": 1}, lane1.Hist)

	lane2 := results[1]
	assert.Equal(t, 2, lane2.LaneNo)
	assert.Equal(t, map[string]int{"CG": 2}, lane2.Hist)
}

func TestSampleIndexReadDeterministicForSameSeed(t *testing.T) {
	root := setupMiniSeqRun(t, [][][]byte{
		{{0x01}},
		{{0x02}},
	})
	desc := manifest.ReadDescription{NumCycles: 1, IsIndex: true}

	a, err := SampleIndexRead(layout.MiniSeq, desc, root, 1, 1, Settings{Seed: 42})
	require.NoError(t, err)
	b, err := SampleIndexRead(layout.MiniSeq, desc, root, 1, 1, Settings{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSampleStackLengthMismatchFails(t *testing.T) {
	root := setupMiniSeqRun(t, [][][]byte{
		{{0x01, 0x02}, {0x01}},
	})
	desc := manifest.ReadDescription{NumCycles: 2, IsIndex: true}

	_, err := SampleIndexRead(layout.MiniSeq, desc, root, 1, 1, Settings{})
	assert.ErrorIs(t, err, bcl.ErrStackLengthMismatch)
}

func TestToWireFiltersByMinIndexFraction(t *testing.T) {
	counts := IndexCounts{
		IndexNo: 1, LaneNo: 1, SampleSize: 10,
		Hist: map[string]int{"AA": 8, "CC": 1, "GG": 1},
	}
	wire := counts.ToWire("fc-uuid", 0.5)
	assert.Equal(t, map[string]int{"AA": 8}, wire.Histogram)
	assert.Equal(t, "fc-uuid", wire.Flowcell)
	assert.Equal(t, 1, wire.Lane)
	assert.Equal(t, 10, wire.SampleSize)
}

func TestDriverTracksCycleAndIndexNo(t *testing.T) {
	root := setupMiniSeqRun(t, [][][]byte{
		{{0x01}, {0x01}, {0x01}, {0x01}},
	})
	reads := []manifest.ReadDescription{
		{Number: 1, NumCycles: 1, IsIndex: false},
		{Number: 2, NumCycles: 1, IsIndex: true},
		{Number: 3, NumCycles: 1, IsIndex: true},
		{Number: 4, NumCycles: 1, IsIndex: false},
	}

	sampled, err := Driver(layout.MiniSeq, reads, root, Settings{})
	require.NoError(t, err)
	require.Len(t, sampled, 2)
	assert.Equal(t, 1, sampled[0][0].IndexNo)
	assert.Equal(t, 2, sampled[1][0].IndexNo)
}
