package trie

import (
	"bytes"
	"fmt"
	"io"

	"github.com/appsworld/go-machview/types"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by WalkTrie for a symbol the trie does not export.
var ErrNotFound = errors.New("symbol not in trie")

type TrieEntry struct {
	Name     string
	ReExport string
	Flags    types.ExportFlag
	Other    uint64
	Address  uint64
}

type trieNode struct {
	Offset   uint64
	SymBytes []byte
}

func (e TrieEntry) String() string {
	if e.Flags.ReExport() {
		if len(e.ReExport) > 0 {
			return fmt.Sprintf("%s (re-exported as %s from dylib %d)", e.Name, e.ReExport, e.Other)
		}
		return fmt.Sprintf("%s (re-exported from dylib %d)", e.Name, e.Other)
	} else if e.Flags.StubAndResolver() {
		return fmt.Sprintf("%#016x: %s\t(resolver %#x)", e.Address, e.Name, e.Other)
	}
	return fmt.Sprintf("%#016x: %s", e.Address, e.Name)
}

func ReadUleb128(r *bytes.Reader) (uint64, error) {
	var result uint64
	var shift uint64

	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return 0, err
		}
		if err != nil {
			return 0, fmt.Errorf("could not parse ULEB128 value: %v", err)
		}
		if shift >= 64 {
			return 0, fmt.Errorf("ULEB128 value overflows 64 bits")
		}

		result |= uint64(b&0x7f) << shift

		// If high order bit is 1.
		if (b & 0x80) == 0 {
			break
		}

		shift += 7
	}

	return result, nil
}

func readCString(r *bytes.Reader, dst []byte) []byte {
	for {
		s, err := r.ReadByte()
		if err != nil || s == '\x00' {
			return dst
		}
		dst = append(dst, s)
	}
}

// readTerminal decodes the export info of a terminal node. r is positioned
// just after the node's terminal size.
func readTerminal(r *bytes.Reader, name []byte, loadAddress uint64) (TrieEntry, error) {
	symFlagInt, err := ReadUleb128(r)
	if err != nil {
		return TrieEntry{}, err
	}
	entry := TrieEntry{
		Name:  string(name),
		Flags: types.ExportFlag(symFlagInt),
	}

	if entry.Flags.ReExport() {
		// the dylib ordinal, then the imported name (empty if unchanged)
		if entry.Other, err = ReadUleb128(r); err != nil {
			return TrieEntry{}, err
		}
		entry.ReExport = string(readCString(r, nil))
		return entry, nil
	}

	if entry.Address, err = ReadUleb128(r); err != nil {
		return TrieEntry{}, err
	}
	if !entry.Flags.Absolute() {
		entry.Address += loadAddress
	}
	if entry.Flags.StubAndResolver() {
		if entry.Other, err = ReadUleb128(r); err != nil {
			return TrieEntry{}, err
		}
		entry.Other += loadAddress
	}
	return entry, nil
}

// ParseTrie returns every symbol exported by a dyld export trie. Addresses are
// relative to loadAddress unless the symbol is absolute.
func ParseTrie(trieData []byte, loadAddress uint64) ([]TrieEntry, error) {

	var tNode trieNode
	var entries []TrieEntry

	nodes := []trieNode{{
		Offset:   0,
		SymBytes: make([]byte, 0),
	}}
	seen := make(map[uint64]bool)

	r := bytes.NewReader(trieData)

	for len(nodes) > 0 {
		tNode, nodes = nodes[len(nodes)-1], nodes[:len(nodes)-1]

		if tNode.Offset >= uint64(len(trieData)) {
			return nil, fmt.Errorf("trie node offset %#x beyond %#x bytes of export data", tNode.Offset, len(trieData))
		}
		if seen[tNode.Offset] {
			return nil, fmt.Errorf("trie node at %#x visited twice", tNode.Offset)
		}
		seen[tNode.Offset] = true

		r.Seek(int64(tNode.Offset), io.SeekStart)

		terminalSize, err := ReadUleb128(r)
		if err != nil {
			return nil, err
		}
		childrenOffset := int64(len(trieData)-r.Len()) + int64(terminalSize)

		if terminalSize != 0 {
			entry, err := readTerminal(r, tNode.SymBytes, loadAddress)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}

		r.Seek(childrenOffset, io.SeekStart)

		childrenRemaining, err := r.ReadByte()
		if err == io.EOF {
			break
		}

		for i := 0; i < int(childrenRemaining); i++ {

			tmp := make([]byte, len(tNode.SymBytes), len(tNode.SymBytes)+32)
			copy(tmp, tNode.SymBytes)
			tmp = readCString(r, tmp)

			childNodeOffset, err := ReadUleb128(r)
			if err != nil {
				return nil, err
			}

			nodes = append(nodes, trieNode{
				Offset:   childNodeOffset,
				SymBytes: tmp,
			})
		}

	}

	return entries, nil
}

// WalkTrie follows the edges of the trie matching symbol and decodes its
// export info.
func WalkTrie(data []byte, symbol string, loadAddress uint64) (TrieEntry, error) {

	var strIndex int
	var offset uint64

	r := bytes.NewReader(data)

	for steps := 0; steps < len(data); steps++ {
		r.Seek(int64(offset), io.SeekStart)

		terminalSize, err := ReadUleb128(r)
		if err != nil {
			return TrieEntry{}, err
		}
		childrenOffset := int64(len(data)-r.Len()) + int64(terminalSize)

		if strIndex == len(symbol) {
			if terminalSize == 0 {
				break
			}
			return readTerminal(r, []byte(symbol), loadAddress)
		}

		r.Seek(childrenOffset, io.SeekStart)

		childrenRemaining, err := r.ReadByte()
		if err != nil {
			break
		}

		var nodeOffset uint64

		for i := childrenRemaining; i > 0; i-- {
			edge := readCString(r, nil)

			next, err := ReadUleb128(r)
			if err != nil {
				return TrieEntry{}, err
			}

			if bytes.HasPrefix([]byte(symbol[strIndex:]), edge) {
				// the symbol so far matches this edge (child)
				// so advance to the child's node
				nodeOffset = next
				strIndex += len(edge)
				break
			}
		}

		if nodeOffset == 0 {
			break
		}
		offset = nodeOffset
	}

	return TrieEntry{}, errors.Wrap(ErrNotFound, symbol)
}
