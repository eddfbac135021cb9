package types

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/appsworld/go-machview/pkg/record"
	"github.com/google/uuid"
)

type VmProtection int32

func (v VmProtection) Read() bool {
	return (v & 0x01) != 0
}

func (v VmProtection) Write() bool {
	return (v & 0x02) != 0
}

func (v VmProtection) Execute() bool {
	return (v & 0x04) != 0
}

func (v VmProtection) String() string {
	var protStr string
	if v.Read() {
		protStr += "r"
	} else {
		protStr += "-"
	}
	if v.Write() {
		protStr += "w"
	} else {
		protStr += "-"
	}
	if v.Execute() {
		protStr += "x"
	} else {
		protStr += "-"
	}
	return protStr
}

// UUID is a Mach-O LC_UUID value.
type UUID [16]byte

func (u UUID) String() string {
	return strings.ToUpper(uuid.UUID(u).String())
}

// IsZero reports whether the UUID is unset.
func (u UUID) IsZero() bool { return u == UUID{} }

// Version is a packed xxxx.yy.zz version number.
type Version uint32

func (v Version) String() string {
	s := make([]byte, 4)
	binary.BigEndian.PutUint32(s, uint32(v))
	return fmt.Sprintf("%d.%d.%d", binary.BigEndian.Uint16(s[:2]), s[2], s[3])
}

// SrcVersion is a packed a.b.c.d.e source version (A24.B10.C10.D10.E10).
type SrcVersion uint64

func (sv SrcVersion) String() string {
	a := sv >> 40
	b := (sv >> 30) & 0x3ff
	c := (sv >> 20) & 0x3ff
	d := (sv >> 10) & 0x3ff
	e := sv & 0x3ff
	return fmt.Sprintf("%d.%d.%d.%d.%d", a, b, c, d, e)
}

// Field kinds shared by the load command records.
var (
	VersionKind record.Kind = record.Func{
		DisplayFunc: func(r *record.Record, f string) string { return Version(r.Uint(f)).String() },
	}
	SourceVersionKind record.Kind = record.Func{
		DisplayFunc: func(r *record.Record, f string) string { return SrcVersion(r.Uint(f)).String() },
	}
	UUIDKind record.Kind = record.Func{
		DisplayFunc: func(r *record.Record, f string) string {
			var u UUID
			copy(u[:], r.Blob(f))
			return u.String()
		},
	}
	VmProtKind record.Kind = record.Func{
		DisplayFunc: func(r *record.Record, f string) string { return VmProtection(r.Uint(f)).String() },
	}
)

type DataInCodeEntry struct {
	Offset uint32
	Length uint16
	Kind   DiceKind
}

func (e DataInCodeEntry) String() string {
	return fmt.Sprintf("offset: %#08x, length: %d, kind: %s", e.Offset, e.Length, e.Kind)
}

type DiceKind uint16

const (
	KindData           DiceKind = 0x0001
	KindJumpTable8     DiceKind = 0x0002
	KindJumpTable16    DiceKind = 0x0003
	KindJumpTable32    DiceKind = 0x0004
	KindAbsJumpTable32 DiceKind = 0x0005
)

var diceKindStrings = []record.IntName{
	{I: uint64(KindData), S: "DATA"},
	{I: uint64(KindJumpTable8), S: "JUMP_TABLE8"},
	{I: uint64(KindJumpTable16), S: "JUMP_TABLE16"},
	{I: uint64(KindJumpTable32), S: "JUMP_TABLE32"},
	{I: uint64(KindAbsJumpTable32), S: "ABS_JUMP_TABLE32"},
}

func (k DiceKind) String() string { return stringName(uint64(k), diceKindStrings, false) }

// DataInCodeEntrySize is the size of one data_in_code_entry.
const DataInCodeEntrySize = 8

// ParseDataInCode decodes a packed table of data_in_code_entry records.
func ParseDataInCode(b []byte, o binary.ByteOrder) []DataInCodeEntry {
	entries := make([]DataInCodeEntry, 0, len(b)/DataInCodeEntrySize)
	for len(b) >= DataInCodeEntrySize {
		entries = append(entries, DataInCodeEntry{
			Offset: o.Uint32(b[0:]),
			Length: o.Uint16(b[4:]),
			Kind:   DiceKind(o.Uint16(b[6:])),
		})
		b = b[DataInCodeEntrySize:]
	}
	return entries
}

func stringName(i uint64, names []record.IntName, goSyntax bool) string {
	for _, n := range names {
		if n.I == i {
			if goSyntax {
				return "types." + n.S
			}
			return n.S
		}
	}
	return fmt.Sprintf("%#x", i)
}
