package macho

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/blacktop/go-dwarf"
	"github.com/pkg/errors"
)

// maxDwarfSection bounds the inflated size of a compressed DWARF section.
const maxDwarfSection = 1 << 30

func dwarfSuffix(s *SectionDescriptor) string {
	switch {
	case strings.HasPrefix(s.Name, "__debug_"):
		return s.Name[8:]
	case strings.HasPrefix(s.Name, "__zdebug_"):
		return s.Name[9:]
	case strings.HasPrefix(s.Name, "__apple_"):
		return s.Name[8:]
	default:
		return ""
	}
}

// dwarfData returns the contents of a DWARF section, inflating ZLIB
// compressed ones.
func dwarfData(s *SectionDescriptor) ([]byte, error) {
	b, err := s.Data()
	if err != nil {
		return nil, err
	}
	if len(b) >= 12 && string(b[:4]) == "ZLIB" {
		dlen := binary.BigEndian.Uint64(b[4:12])
		if dlen > maxDwarfSection {
			return nil, &FormatError{off: s.Node.AbsStart(), msg: "compressed DWARF section too large", val: dlen}
		}
		dbuf := make([]byte, dlen)
		r, err := zlib.NewReader(bytes.NewBuffer(b[12:]))
		if err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, dbuf); err != nil {
			return nil, err
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
		b = dbuf
	}
	return b, nil
}

// DWARF returns the DWARF debug information of the image, from the
// sections of its __DWARF segment.
func (m *MachO) DWARF() (*dwarf.Data, error) {
	var dat = map[string][]byte{"abbrev": nil, "info": nil, "str": nil, "line": nil, "ranges": nil}
	var found bool
	for _, s := range m.sections {
		suffix := dwarfSuffix(s)
		if _, ok := dat[suffix]; !ok || s.Node.IsZero() {
			continue
		}
		b, err := dwarfData(s)
		if err != nil {
			return nil, err
		}
		dat[suffix] = b
		found = true
	}
	if !found {
		return nil, errors.New("no DWARF sections")
	}

	d, err := dwarf.New(dat["abbrev"], nil, nil, dat["info"], dat["line"], nil, dat["ranges"], dat["str"])
	if err != nil {
		return nil, err
	}

	// DWARF4 .debug_types sections
	for i, s := range m.sections {
		if dwarfSuffix(s) != "types" || s.Node.IsZero() {
			continue
		}
		b, err := dwarfData(s)
		if err != nil {
			return nil, err
		}
		if err := d.AddTypes(fmt.Sprintf("types-%d", i), b); err != nil {
			return nil, err
		}
	}
	return d, nil
}
