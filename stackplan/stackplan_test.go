package stackplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihealth/digestiflow-cli/layout"
	"github.com/bihealth/digestiflow-cli/manifest"
)

func touch(t *testing.T, root string, elem ...string) {
	p := filepath.Join(append([]string{root}, elem...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, nil, 0o644))
}

func TestPlanMiniSeq(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Data", "Intensities", "BaseCalls", "L001", "0001.bcl.bgzf")
	touch(t, root, "Data", "Intensities", "BaseCalls", "L002", "0001.bcl.bgzf")

	desc := manifest.ReadDescription{NumCycles: 8, IsIndex: true}
	stacks, err := Plan(layout.MiniSeq, desc, root, 77)
	require.NoError(t, err)

	require.Len(t, stacks, 2)
	require.Len(t, stacks[0], 1)
	assert.Equal(t, 1, stacks[0][0].LaneNo)
	require.Len(t, stacks[0][0].Paths, 8)
	assert.Equal(t, filepath.Join(root, "Data", "Intensities", "BaseCalls", "L001", "0077.bcl.bgzf"), stacks[0][0].Paths[0].Path)
	assert.Nil(t, stacks[0][0].Paths[0].CBCLTile)
	assert.Equal(t, filepath.Join(root, "Data", "Intensities", "BaseCalls", "L001", "0084.bcl.bgzf"), stacks[0][0].Paths[7].Path)

	assert.Equal(t, 2, stacks[1][0].LaneNo)
}

func TestPlanMiSeq(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Data", "Intensities", "BaseCalls", "L001", "C1.1", "s_1_1101.bcl")
	touch(t, root, "Data", "Intensities", "BaseCalls", "L001", "C1.1", "s_1_1102.bcl.gz")

	desc := manifest.ReadDescription{NumCycles: 2, IsIndex: true}
	stacks, err := Plan(layout.MiSeq, desc, root, 77)
	require.NoError(t, err)

	require.Len(t, stacks, 1)
	require.Len(t, stacks[0], 2)
	for _, s := range stacks[0] {
		assert.Equal(t, 1, s.LaneNo)
		require.Len(t, s.Paths, 2)
		assert.Nil(t, s.Paths[0].CBCLTile)
	}
	assert.Equal(t, filepath.Join(root, "Data", "Intensities", "BaseCalls", "L001", "C77.1", "s_1_1101.bcl"), stacks[0][0].Paths[0].Path)
	assert.Equal(t, filepath.Join(root, "Data", "Intensities", "BaseCalls", "L001", "C78.1", "s_1_1101.bcl"), stacks[0][0].Paths[1].Path)
}

func TestPlanNovaSeq(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Data", "Intensities", "BaseCalls", "L001", "C1.1", "L001_1.cbcl")

	desc := manifest.ReadDescription{NumCycles: 2, IsIndex: true}
	stacks, err := Plan(layout.NovaSeq, desc, root, 77)
	require.NoError(t, err)

	require.Len(t, stacks, 1)
	require.Len(t, stacks[0], 1)
	s := stacks[0][0]
	assert.Equal(t, 1, s.LaneNo)
	require.Len(t, s.Paths, 2)
	require.NotNil(t, s.Paths[0].CBCLTile)
	assert.Equal(t, uint32(0), *s.Paths[0].CBCLTile)
	assert.Equal(t, filepath.Join(root, "Data", "Intensities", "BaseCalls", "L001", "C77.1", "L001_1.cbcl"), s.Paths[0].Path)
}

func TestPlanHiSeqXUnsupported(t *testing.T) {
	_, err := Plan(layout.HiSeqX, manifest.ReadDescription{NumCycles: 8}, t.TempDir(), 1)
	assert.ErrorIs(t, err, ErrLayoutUnsupported)
}
