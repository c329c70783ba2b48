package storage

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_WriteAndRead(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf, CodecZstd)
	require.NoError(t, err)

	assert.Len(t, buf.Bytes(), 8) // 4 bytes magic + 1 byte version + 1 byte codec + 2 bytes reserved

	header, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(header.Magic[:]))
	assert.EqualValues(t, FormatVersion, header.Version)
	assert.Equal(t, CodecZstd, header.Codec)
}

func TestFileHeader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		header  FileHeader
		wantErr string
	}{
		{
			name:    "invalid magic",
			header:  FileHeader{Magic: [4]byte{'I', 'N', 'V', 'L'}, Version: FormatVersion},
			wantErr: "invalid file format",
		},
		{
			name:    "invalid version",
			header:  FileHeader{Magic: [4]byte{'T', 'I', 'D', 'X'}, Version: 99},
			wantErr: "unsupported file version",
		},
		{
			name:    "invalid codec",
			header:  FileHeader{Magic: [4]byte{'T', 'I', 'D', 'X'}, Version: FormatVersion, Codec: 7},
			wantErr: "unsupported compression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, tt.header))

			_, err := ReadHeader(&buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFileHeader_ShortBuffer(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read header")
}

func TestParseCodec(t *testing.T) {
	c, err := ParseCodec("zstd")
	require.NoError(t, err)
	assert.Equal(t, CodecZstd, c)

	c, err = ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecLZ4, c)

	_, err = ParseCodec("gzip")
	assert.Error(t, err)
}

func TestSaveAndLoadTable(t *testing.T) {
	for _, codec := range []Codec{CodecLZ4, CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "labels"+FileExtension)

			src := NewWorld()
			labels := TableOf[label](src)
			var entities []domain.Entity
			for i := 0; i < 200; i++ {
				e := src.Spawn()
				entities = append(entities, e)
				// repetitive values so the body actually compresses
				require.NoError(t, labels.Insert(e, label{Name: strings.Repeat("x", i%7)}))
			}
			require.NoError(t, SaveTable(labels, filename, WithCompression(codec)))

			dst := NewWorld(WithStartTick(40))
			restored := TableOf[label](dst)
			n, err := LoadTable(restored, filename)
			require.NoError(t, err)
			assert.Equal(t, 200, n)
			assert.Equal(t, 200, restored.Len())
			assert.Equal(t, 200, dst.EntityCount())

			for i, e := range entities {
				ref, ok := restored.Ref(e)
				require.True(t, ok)
				assert.Equal(t, strings.Repeat("x", i%7), ref.Value.Name)
				assert.Equal(t, domain.Tick(40), ref.Changed)
			}

			// fresh entities never collide with restored ones
			assert.Equal(t, entities[len(entities)-1]+1, dst.Spawn())
		})
	}
}

func TestSaveTable_Incompressible(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "one"+FileExtension)
	w := NewWorld()
	positions := TableOf[position](w)
	e := w.Spawn()
	require.NoError(t, positions.Insert(e, position{3, 4}))

	require.NoError(t, SaveTable(positions, filename))

	dst := NewWorld()
	n, err := LoadTable(TableOf[position](dst), filename)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, ok := TableOf[position](dst).Get(e)
	require.True(t, ok)
	assert.Equal(t, position{3, 4}, got)
}

func TestLoadTable_MissingFile(t *testing.T) {
	n, err := LoadTable(TableOf[position](NewWorld()), filepath.Join(t.TempDir(), "missing"+FileExtension))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoadTable_WrongComponent(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "positions"+FileExtension)
	w := NewWorld()
	positions := TableOf[position](w)
	require.NoError(t, positions.Insert(w.Spawn(), position{}))
	require.NoError(t, SaveTable(positions, filename))

	_, err := LoadTable(TableOf[label](NewWorld()), filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.position")
}

func TestLoadTable_CorruptBody(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "corrupt"+FileExtension)
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, CodecLZ4))
	buf.Write([]byte{1, 2, 3})
	require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o644))

	_, err := LoadTable(TableOf[position](NewWorld()), filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decompress data")
}

func TestDecompressBody_RejectsOversizedRawSize(t *testing.T) {
	body := make([]byte, blockHeaderSize, blockHeaderSize+4)
	binary.LittleEndian.PutUint32(body[0:], 1<<31)
	binary.LittleEndian.PutUint32(body[4:], 4)
	body = append(body, 0x10, 'a', 0, 0)

	_, err := decompressBody(body, CodecLZ4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	_, err = decompressBody(body, CodecZstd)
	require.Error(t, err)
}
