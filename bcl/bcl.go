/*Package bcl decodes Illumina base-call container files.

Three on-disk formats are supported, selected by BclLocator:

  - Plain BCL: little-endian uint32 cluster count N, followed by N
    bytes. Each byte encodes one cluster: bits 0-1 select the base
    (00 A, 01 C, 10 G, 11 T), bits 2-7 hold a quality value that this
    package ignores except that an all-zero byte means "no call" (N).

  - Gzip BCL (".gz" / ".bgzf"): the same byte layout, compressed.
    BGZF files are a concatenation of many independent gzip members;
    decoding MUST consume the whole multi-member stream as one logical
    byte stream, which is the default behavior of both the standard
    library's and klauspost/compress's gzip.Reader.

  - CBCL ("Compact BCL"): a segmented container. A header (see
    cbclHeader) lists, per logical tile, the cluster count and the
    compressed size of an independently gzip-compressed, *single-member*
    block holding that
    tile's clusters packed two to a byte (low nibble then high
    nibble). Unlike plain/gzip BCL, an all-zero byte in a CBCL tile is
    not a no-call sentinel — the format has no per-cluster no-call
    encoding at the 2-bit resolution this decoder reads.

Decode dispatches on the shape of a BclLocator: CBCLTile != nil selects
the CBCL sub-tile path; otherwise the Path's suffix selects gzip or
plain.
*/
package bcl

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/bihealth/digestiflow-cli/stackplan"
)

// baseTable maps the 2-bit base code (bits 0-1 of a byte, or of a
// nibble) to its character.
var baseTable = [4]byte{'A', 'C', 'G', 'T'}

// noCall is emitted for a plain/gzip BCL byte of all zero bits.
const noCall = 'N'

// ErrStackLengthMismatch indicates that files making up one tile stack
// disagreed on cluster count.
var ErrStackLengthMismatch = errors.New("bcl: files in stack disagree on cluster count")

// Decode reads one base-call container location and returns its bases in
// on-disk cluster order, clamped to at most sampleReadsPerTile clusters
// (0 means "no clamp").
func Decode(loc stackplan.BclLocator, sampleReadsPerTile int) ([]byte, error) {
	if loc.CBCLTile != nil {
		return decodeCBCLTile(loc.Path, *loc.CBCLTile, sampleReadsPerTile)
	}
	if isGzipPath(loc.Path) {
		return decodeGzipBCL(loc.Path, sampleReadsPerTile)
	}
	return decodePlainBCL(loc.Path, sampleReadsPerTile)
}

func isGzipPath(path string) bool {
	return hasSuffix(path, ".gz") || hasSuffix(path, ".bgzf")
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// clusterCountToRead returns how many of the num bytes recorded in the
// file header to actually read, honoring sampleReadsPerTile as a clamp
// (0 disables clamping).
func clusterCountToRead(num, sampleReadsPerTile int) int {
	if sampleReadsPerTile > 0 && sampleReadsPerTile < num {
		return sampleReadsPerTile
	}
	return num
}

func decodePlainBCL(path string, sampleReadsPerTile int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "bcl: opening %s", path)
	}
	defer f.Close()

	return readBclBody(f, path, sampleReadsPerTile)
}

func decodeGzipBCL(path string, sampleReadsPerTile int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "bcl: opening %s", path)
	}
	defer f.Close()

	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "bcl: opening gzip stream %s", path)
	}
	gz.Multistream(true) // BGZF is many independent gzip members; consume them all.
	defer gz.Close()

	return readBclBody(gz, path, sampleReadsPerTile)
}

// readBclBody reads the common plain/gzip BCL layout: a little-endian
// uint32 cluster count, then that many (possibly clamped) bytes, each
// decoded to a base character with the no-call rule.
func readBclBody(r io.Reader, path string, sampleReadsPerTile int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errors.Wrapf(err, "bcl: reading cluster count from %s", path)
	}
	num := int(lenBuf[0]) | int(lenBuf[1])<<8 | int(lenBuf[2])<<16 | int(lenBuf[3])<<24

	toRead := clusterCountToRead(num, sampleReadsPerTile)
	buf := make([]byte, toRead)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "bcl: reading %d cluster bytes from %s", toRead, path)
	}

	out := make([]byte, toRead)
	for i, b := range buf {
		if b == 0 {
			out[i] = noCall
		} else {
			out[i] = baseTable[b&3]
		}
	}
	return out, nil
}
