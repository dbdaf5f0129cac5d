package spec

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrInvalidDirectory = errors.New("invalid directory")

// Entry is a directory record. Tile entries address RunLength consecutive
// tile codes sharing one tile data blob. Leaf entries (RunLength 0) point to
// a leaf directory covering codes from TileCode up to the next entry.
type Entry struct {
	TileCode  uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

func (e Entry) IsLeaf() bool {
	return e.RunLength == 0
}

func (e Entry) contains(tileCode uint64) bool {
	return e.TileCode <= tileCode && tileCode < e.TileCode+uint64(e.RunLength)
}

func appendColumn(buffer []byte, n int, value func(i int) uint64) []byte {
	for i := range n {
		buffer = binary.AppendUvarint(buffer, value(i))
	}
	return buffer
}

// SerializeDirectory encodes entries column by column: code deltas, run
// lengths, lengths, offsets. An offset directly following the previous
// entry's data is written as 0, others as offset+1.
func SerializeDirectory(entries []Entry) []byte {
	buffer := make([]byte, 0, binary.MaxVarintLen64+4*len(entries))
	buffer = binary.AppendUvarint(buffer, uint64(len(entries)))

	buffer = appendColumn(buffer, len(entries), func(i int) uint64 {
		if i == 0 {
			return entries[0].TileCode
		}
		return entries[i].TileCode - entries[i-1].TileCode
	})
	buffer = appendColumn(buffer, len(entries), func(i int) uint64 {
		return uint64(entries[i].RunLength)
	})
	buffer = appendColumn(buffer, len(entries), func(i int) uint64 {
		return uint64(entries[i].Length)
	})
	buffer = appendColumn(buffer, len(entries), func(i int) uint64 {
		if i > 0 && entries[i].Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			return 0
		}
		return entries[i].Offset + 1
	})

	return buffer
}

func DeserializeDirectory(data []byte) ([]Entry, error) {
	reader := bytes.NewReader(data)

	count, err := binary.ReadUvarint(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	// Each entry takes at least one byte per column.
	if count > uint64(reader.Len())/4 {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrInvalidDirectory, count, len(data))
	}
	entries := make([]Entry, count)

	columns := []func(i int, value uint64) bool{
		func(i int, value uint64) bool {
			entries[i].TileCode = value
			if i > 0 {
				entries[i].TileCode += entries[i-1].TileCode
			}
			return true
		},
		func(i int, value uint64) bool {
			entries[i].RunLength = uint32(value)
			return true
		},
		func(i int, value uint64) bool {
			entries[i].Length = uint32(value)
			return true
		},
		func(i int, value uint64) bool {
			switch {
			case value > 0:
				entries[i].Offset = value - 1
			case i > 0:
				entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
			default:
				return false
			}
			return true
		},
	}
	for column, set := range columns {
		for i := range entries {
			value, err := binary.ReadUvarint(reader)
			if err != nil {
				return nil, fmt.Errorf("%w: column %d: %w", ErrInvalidDirectory, column, err)
			}
			if !set(i, value) {
				return nil, fmt.Errorf("%w: first entry has no offset", ErrInvalidDirectory)
			}
		}
	}
	return entries, nil
}

// CompactEntries merges entries with consecutive tile codes and the same
// tile data into runs. Entries must be sorted by tile code; the slice is
// reused for the result.
func CompactEntries(entries []Entry) []Entry {
	result := entries[:0]
	for _, entry := range entries {
		if n := len(result); n > 0 {
			last := &result[n-1]
			if last.Offset == entry.Offset && last.TileCode+uint64(last.RunLength) == entry.TileCode {
				last.RunLength += entry.RunLength
				continue
			}
		}
		result = append(result, entry)
	}
	return result
}

// FindEntry returns the tile entry containing tileCode or the leaf entry
// whose directory may contain it.
func FindEntry(entries []Entry, tileCode uint64) (Entry, bool) {
	i, found := slices.BinarySearchFunc(entries, tileCode, func(e Entry, code uint64) int {
		return cmp.Compare(e.TileCode, code)
	})
	if !found {
		if i == 0 {
			return Entry{}, false
		}
		i--
	}
	if entry := entries[i]; entry.IsLeaf() || entry.contains(tileCode) {
		return entry, true
	}
	return Entry{}, false
}

// BuildDirectories returns the compressed root directory and the compressed
// leaf directories of entries. Entries are moved into one level of leaves
// when the root would not fit into RootDirMaxLength.
func BuildDirectories(entries []Entry, compression Compression) (root, leaves []byte, err error) {
	root, err = Compress(SerializeDirectory(entries), compression)
	if err != nil || len(root) <= RootDirMaxLength {
		return root, nil, err
	}

	leafSize := max(4096, int(math.Sqrt(float64(len(entries)))))
	for {
		root, leaves, err = splitLeaves(entries, leafSize, compression)
		if err != nil || len(root) <= RootDirMaxLength {
			return root, leaves, err
		}
		leafSize += leafSize / 10
	}
}

func splitLeaves(entries []Entry, leafSize int, compression Compression) (root, leaves []byte, err error) {
	rootEntries := make([]Entry, 0, len(entries)/leafSize+1)
	for chunk := range slices.Chunk(entries, leafSize) {
		leaf, err := Compress(SerializeDirectory(chunk), compression)
		if err != nil {
			return nil, nil, err
		}
		rootEntries = append(rootEntries, Entry{
			TileCode: chunk[0].TileCode,
			Offset:   uint64(len(leaves)),
			Length:   uint32(len(leaf)),
		})
		leaves = append(leaves, leaf...)
	}
	root, err = Compress(SerializeDirectory(rootEntries), compression)
	return root, leaves, err
}
