package bcl

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrBadCbcl is fatal: the CBCL header violated one of this decoder's
// format assumptions (version-independent bit widths).
var ErrBadCbcl = errors.New("bcl: CBCL header assumption violated")

// qScoreBin is one (from, to) quality-score bin declared in a CBCL
// header. The decoder does not interpret bin contents; it only needs to
// skip past them.
type qScoreBin struct {
	From, To uint32
}

// tileOffset is one per-tile entry of a CBCL header's offset table.
type tileOffset struct {
	TileNo           uint32
	NumClusters      uint32
	UncompressedSize uint32
	CompressedSize   uint32
	NonPFFlag        uint8
}

// cbclHeader is the parsed, little-endian header of a CBCL file.
type cbclHeader struct {
	Version          uint16
	HeaderSize       uint32
	BitsPerBasecall  uint8
	BitsPerQScore    uint8
	Bins             []qScoreBin
	Tiles            []tileOffset
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// readCbclHeader parses the CBCL header from r, per the layout in
// spec.md §4.5:
//
//	u16 version
//	u32 header_size
//	u8  bits_per_basecall   (must be 2)
//	u8  bits_per_qscore     (2, or 6 for the byte-packed 2-bit-base/
//	                         6-bit-quality layout some CBCL revisions use;
//	                         see spec.md §9's ambiguity note)
//	u32 num_bins
//	  num_bins * (u32 from, u32 to)
//	u32 num_tiles
//	  num_tiles * (u32 tile_no, u32 num_clusters, u32 uncompressed_size,
//	               u32 compressed_size, u8 non_pf_flag)
func readCbclHeader(r io.Reader) (cbclHeader, error) {
	var h cbclHeader
	var err error

	if h.Version, err = readU16(r); err != nil {
		return h, errors.Wrap(err, "bcl: reading CBCL version")
	}
	if h.HeaderSize, err = readU32(r); err != nil {
		return h, errors.Wrap(err, "bcl: reading CBCL header size")
	}
	if h.BitsPerBasecall, err = readU8(r); err != nil {
		return h, errors.Wrap(err, "bcl: reading bits_per_basecall")
	}
	if h.BitsPerBasecall != 2 {
		return h, errors.Wrapf(ErrBadCbcl, "bits_per_basecall = %d, want 2", h.BitsPerBasecall)
	}
	if h.BitsPerQScore, err = readU8(r); err != nil {
		return h, errors.Wrap(err, "bcl: reading bits_per_qscore")
	}
	if h.BitsPerQScore != 2 && h.BitsPerQScore != 6 {
		return h, errors.Wrapf(ErrBadCbcl, "bits_per_qscore = %d, want 2 or 6", h.BitsPerQScore)
	}

	numBins, err := readU32(r)
	if err != nil {
		return h, errors.Wrap(err, "bcl: reading num_bins")
	}
	h.Bins = make([]qScoreBin, numBins)
	for i := range h.Bins {
		if h.Bins[i].From, err = readU32(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading q-score bin 'from'")
		}
		if h.Bins[i].To, err = readU32(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading q-score bin 'to'")
		}
	}

	numTiles, err := readU32(r)
	if err != nil {
		return h, errors.Wrap(err, "bcl: reading num_tiles")
	}
	h.Tiles = make([]tileOffset, numTiles)
	for i := range h.Tiles {
		t := &h.Tiles[i]
		if t.TileNo, err = readU32(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading tile_no")
		}
		if t.NumClusters, err = readU32(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading num_clusters")
		}
		if t.UncompressedSize, err = readU32(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading uncompressed_size")
		}
		if t.CompressedSize, err = readU32(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading compressed_size")
		}
		if t.NonPFFlag, err = readU8(r); err != nil {
			return h, errors.Wrap(err, "bcl: reading non_pf_flag")
		}
	}

	return h, nil
}

// decodeCBCLTile seeks to tileIdx's compressed block inside the CBCL
// file at path, opens it as an independent (single-member, not
// multistream) gzip stream, and decodes min(num_clusters,
// sampleReadsPerTile) clusters, two per byte: cluster 2i from bits 0-1
// of byte i, cluster 2i+1 from bits 0-1 of byte i shifted right by 4.
func decodeCBCLTile(path string, tileIdx uint32, sampleReadsPerTile int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "bcl: opening CBCL %s", path)
	}
	defer f.Close()

	header, err := readCbclHeader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "bcl: reading CBCL header of %s", path)
	}
	if int(tileIdx) >= len(header.Tiles) {
		return nil, errors.Errorf("bcl: CBCL %s has no tile index %d (only %d tiles)", path, tileIdx, len(header.Tiles))
	}

	offset := int64(header.HeaderSize)
	for i := uint32(0); i < tileIdx; i++ {
		offset += int64(header.Tiles[i].CompressedSize)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "bcl: seeking to tile %d in %s", tileIdx, path)
	}

	// Each CBCL tile is compressed independently; opening a fresh,
	// single-member gzip reader here (as opposed to the multistream
	// reader used for plain gzip/BGZF BCL files) is required: the next
	// tile's compressed block follows immediately and must not be
	// consumed as a continuation of this one.
	gz, err := gzip.NewReader(io.LimitReader(f, int64(header.Tiles[tileIdx].CompressedSize)))
	if err != nil {
		return nil, errors.Wrapf(err, "bcl: opening CBCL tile %d gzip stream in %s", tileIdx, path)
	}
	gz.Multistream(false)
	defer gz.Close()

	numClusters := int(header.Tiles[tileIdx].NumClusters)
	toRead := clusterCountToRead(numClusters, sampleReadsPerTile)
	numBytes := (toRead + 1) / 2

	packed := make([]byte, numBytes)
	if _, err := io.ReadFull(gz, packed); err != nil {
		return nil, errors.Wrapf(err, "bcl: reading %d packed bytes from CBCL tile %d in %s", numBytes, tileIdx, path)
	}

	out := make([]byte, 0, toRead)
	for j, b := range packed {
		out = append(out, baseTable[b&3])
		if toRead > j*2+1 {
			out = append(out, baseTable[(b>>4)&3])
		}
	}
	return out, nil
}
