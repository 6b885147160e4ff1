package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, elem ...string) {
	require.NoError(t, os.MkdirAll(filepath.Join(append([]string{root}, elem...)...), 0o755))
}

func touch(t *testing.T, root string, elem ...string) {
	p := filepath.Join(append([]string{root}, elem...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, nil, 0o644))
}

func TestGuessMiSeq(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Data", "Intensities", "BaseCalls", "L001", "C1.1")
	touch(t, root, "runParameters.xml")

	got, err := Guess(root)
	require.NoError(t, err)
	assert.Equal(t, MiSeq, got)
}

func TestGuessMiniSeq(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Data", "Intensities", "BaseCalls", "L001")
	touch(t, root, "RunParameters.xml")

	got, err := Guess(root)
	require.NoError(t, err)
	assert.Equal(t, MiniSeq, got)
}

func TestGuessHiSeqX(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Data", "Intensities")
	touch(t, root, "Data", "Intensities", "s.locs")
	touch(t, root, "RunParameters.xml")

	got, err := Guess(root)
	require.NoError(t, err)
	assert.Equal(t, HiSeqX, got)
}

func TestGuessNovaSeq(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Data", "Intensities", "BaseCalls", "L001", "C1.1", "L001_1.cbcl")
	touch(t, root, "RunParameters.xml")

	got, err := Guess(root)
	require.NoError(t, err)
	assert.Equal(t, NovaSeq, got)
}

func TestGuessNovaSeqPrecedesMiSeq(t *testing.T) {
	// NovaSeq markers win even when the MiSeq markers (C1.1 directory and
	// runParameters.xml) also exist, because NovaSeq is checked first.
	root := t.TempDir()
	touch(t, root, "Data", "Intensities", "BaseCalls", "L001", "C1.1", "L001_2.cbcl")
	touch(t, root, "RunParameters.xml")
	touch(t, root, "runParameters.xml")

	got, err := Guess(root)
	require.NoError(t, err)
	assert.Equal(t, NovaSeq, got)
}

func TestGuessUnknown(t *testing.T) {
	root := t.TempDir()
	_, err := Guess(root)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestRunParametersFileName(t *testing.T) {
	assert.Equal(t, "runParameters.xml", MiSeq.RunParametersFileName())
	assert.Equal(t, "RunParameters.xml", MiniSeq.RunParametersFileName())
	assert.Equal(t, "RunParameters.xml", HiSeqX.RunParametersFileName())
	assert.Equal(t, "RunParameters.xml", NovaSeq.RunParametersFileName())
}
