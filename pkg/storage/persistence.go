package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// blockHeaderSize prefixes the body with its raw and compressed lengths.
// A compressed length of 0 means the body is stored raw.
const blockHeaderSize = 8

// maxCompressionRatio bounds the raw size a compressed body may claim.
// LZ4 blocks cannot expand beyond it, so a larger claim is corruption.
const maxCompressionRatio = 255

type SnapshotOption func(*snapshotConfig)

type snapshotConfig struct {
	codec Codec
}

// WithCompression selects the codec used for the snapshot body.
func WithCompression(codec Codec) SnapshotOption {
	return func(c *snapshotConfig) {
		c.codec = codec
	}
}

// SaveTable writes every component of t to filename. The file is written
// next to its destination and renamed into place.
func SaveTable[C any](t *Table[C], filename string, options ...SnapshotOption) error {
	cfg := snapshotConfig{codec: CodecLZ4}
	for _, option := range options {
		option(&cfg)
	}

	w := t.world
	w.mu.RLock()
	snapshot := tableSnapshot[C]{
		Component: t.name,
		Tick:      uint32(w.tick),
		Rows:      make([]snapshotRow[C], 0, len(t.rows)),
	}
	for e, r := range t.rows {
		snapshot.Rows = append(snapshot.Rows, snapshotRow[C]{Entity: uint64(e), Value: r.value})
	}
	w.mu.RUnlock()

	sort.Slice(snapshot.Rows, func(i, j int) bool {
		return snapshot.Rows[i].Entity < snapshot.Rows[j].Entity
	})

	msgpackData, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	body, err := compressBody(msgpackData, cfg.codec)
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := WriteHeader(bw, cfg.codec); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := bw.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write compressed data: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write compressed data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	w.logger.Printf("DEBUG: Saved %d %s components to %s (%s, %d bytes compressed)",
		len(snapshot.Rows), t.name, filename, cfg.codec, len(body))
	return nil
}

// LoadTable restores the components saved in filename into t and returns
// how many were loaded. Each row keeps its saved entity, which is marked
// alive if needed, and is stamped with the current tick so indexes pick
// it up on their next refresh. A missing file loads nothing.
func LoadTable[C any](t *Table[C], filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	header, err := ReadHeader(file)
	if err != nil {
		return 0, fmt.Errorf("invalid file header: %w", err)
	}
	body, err := io.ReadAll(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read compressed data: %w", err)
	}
	msgpackData, err := decompressBody(body, header.Codec)
	if err != nil {
		return 0, fmt.Errorf("failed to decompress data: %w", err)
	}

	var snapshot tableSnapshot[C]
	if err := msgpack.Unmarshal(msgpackData, &snapshot); err != nil {
		return 0, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	if snapshot.Component != t.name {
		return 0, fmt.Errorf("snapshot holds %s components, not %s", snapshot.Component, t.name)
	}

	w := t.world
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sr := range snapshot.Rows {
		e := domain.Entity(sr.Entity)
		w.adopt(e)
		if r, ok := t.rows[e]; ok {
			r.value = sr.Value
			r.changed = w.tick
			continue
		}
		t.rows[e] = &row[C]{value: sr.Value, added: w.tick, changed: w.tick}
	}

	w.logger.Printf("INFO: Loaded %d %s components from %s (saved at tick %d)",
		len(snapshot.Rows), t.name, filename, snapshot.Tick)
	return len(snapshot.Rows), nil
}

func compressBody(data []byte, codec Codec) ([]byte, error) {
	var compressed []byte
	switch codec {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var hashTable [1 << 16]int
		n, err := lz4.CompressBlock(data, buf, hashTable[:])
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(data, nil)
		enc.Close()
	default:
		return nil, fmt.Errorf("unsupported compression: %s", codec)
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))

	// Incompressible
	if len(compressed) == 0 || len(compressed) >= len(data) {
		binary.LittleEndian.PutUint32(out[4:], 0)
		return append(out, data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	return append(out, compressed...), nil
}

func decompressBody(body []byte, codec Codec) ([]byte, error) {
	if len(body) < blockHeaderSize {
		return nil, errors.New("body too small for header")
	}
	rawSize := binary.LittleEndian.Uint32(body[0:])
	compressedSize := binary.LittleEndian.Uint32(body[4:])
	payload := body[blockHeaderSize:]

	if compressedSize == 0 {
		if uint32(len(payload)) < rawSize {
			return nil, errors.New("body data too small")
		}
		return payload[:rawSize], nil
	}
	if uint32(len(payload)) < compressedSize {
		return nil, errors.New("compressed body data too small")
	}
	payload = payload[:compressedSize]
	limit := uint64(compressedSize) * maxCompressionRatio

	switch codec {
	case CodecLZ4:
		if uint64(rawSize) > limit {
			return nil, fmt.Errorf("raw size %d too large for %d compressed bytes", rawSize, compressedSize)
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case CodecZstd:
		// zstd can beat the LZ4 ratio, so only the preallocation is bounded
		// and the decoder refuses to grow past the claimed size.
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(rawSize)+1))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, make([]byte, 0, min(uint64(rawSize), limit)))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != rawSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", codec)
	}
}
