package spec_test

import (
	"bytes"
	"testing"

	"github.com/geofabrik/split-vectortiles-by-region/pm/spec"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCompression(t *testing.T) {
	directory := spec.SerializeDirectory(randomEntries(1000))
	for _, compression := range []spec.Compression{spec.CompressionNone, spec.CompressionGzip, spec.CompressionZstd} {
		for name, data := range map[string][]byte{
			"directory": directory,
			"metadata":  []byte(`{"name":"Region A","format":"pbf"}`),
			"repeated":  bytes.Repeat([]byte{42}, 100500),
		} {
			t.Run(compression.String()+"/"+name, func(t *testing.T) {
				compressed, err := spec.Compress(data, compression)
				require.NoError(t, err)
				if compression != spec.CompressionNone && len(data) > 1000 {
					require.Less(t, len(compressed), len(data))
				}
				decompressed, err := spec.Decompress(compressed, compression)
				require.NoError(t, err)
				if !cmp.Equal(data, decompressed) {
					t.Errorf("Decompress(Compress(data)) != data")
				}
			})
		}
	}
}

func TestCompressionUnsupported(t *testing.T) {
	_, err := spec.Compress([]byte("data"), spec.CompressionBrotli)
	require.ErrorIs(t, err, spec.ErrUnsupportedCompression)
	require.ErrorContains(t, err, "brotli")

	_, err = spec.Decompress([]byte("data"), spec.CompressionUnknown)
	require.ErrorIs(t, err, spec.ErrUnsupportedCompression)
}

func TestDecompressCorrupt(t *testing.T) {
	for _, compression := range []spec.Compression{spec.CompressionGzip, spec.CompressionZstd} {
		_, err := spec.Decompress([]byte("definitely not compressed"), compression)
		require.Error(t, err, compression.String())
	}
}
