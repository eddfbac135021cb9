package trie

import (
	"bytes"
	"io"
)

// ParseFunctionStarts decodes an LC_FUNCTION_STARTS table: a ULEB128 offset of
// the first function from base followed by deltas to each next one, ending
// with a zero delta or the end of the data.
func ParseFunctionStarts(data []byte, base uint64) ([]uint64, error) {
	var starts []uint64

	r := bytes.NewReader(data)
	addr := base
	for {
		delta, err := ReadUleb128(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if delta == 0 {
			break
		}
		addr += delta
		starts = append(starts, addr)
	}

	return starts, nil
}
