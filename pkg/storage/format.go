package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Magic bytes to identify a table snapshot
	MagicBytes = "TIDX"
	// Current version
	FormatVersion = 1
	// File extension for table snapshots
	FileExtension = ".tidx"
)

// Codec selects how the snapshot body is compressed.
type Codec uint8

const (
	CodecLZ4 Codec = iota
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name as accepted on the command line.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "lz4", "":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q, want lz4 or zstd", name)
	}
}

// FileHeader is the fixed-size prefix of every snapshot file
type FileHeader struct {
	Magic    [4]byte // "TIDX"
	Version  uint8   // Format version
	Codec    Codec   // Body compression
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, codec Codec) error {
	header := FileHeader{
		Magic:   [4]byte{'T', 'I', 'D', 'X'},
		Version: FormatVersion,
		Codec:   codec,
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Validate magic bytes
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	// Validate version
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	if header.Codec > CodecZstd {
		return nil, fmt.Errorf("unsupported compression: %s", header.Codec)
	}

	return &header, nil
}

// tableSnapshot is the MessagePack body of a snapshot file
type tableSnapshot[C any] struct {
	Component string           `msgpack:"component"`
	Tick      uint32           `msgpack:"tick"`
	Rows      []snapshotRow[C] `msgpack:"rows"`
}

type snapshotRow[C any] struct {
	Entity uint64 `msgpack:"entity"`
	Value  C      `msgpack:"value"`
}
