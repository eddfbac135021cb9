package types

import (
	"strings"

	"github.com/appsworld/go-machview/pkg/record"
)

// An NType is the n_type byte of a symbol table entry.
type NType uint8

const (
	N_STAB NType = 0xe0 // if any of these bits set, a symbolic debugging entry
	N_PEXT NType = 0x10 // private external symbol bit
	N_TYPE NType = 0x0e // mask for the type bits
	N_EXT  NType = 0x01 // external symbol bit, set for external symbols
)

// Values for N_TYPE bits of the n_type field.
const (
	N_UNDF NType = 0x0 // undefined, n_sect == NO_SECT
	N_ABS  NType = 0x2 // absolute, n_sect == NO_SECT
	N_SECT NType = 0xe // defined in section number n_sect
	N_PBUD NType = 0xc // prebound undefined (defined in a dylib)
	N_INDR NType = 0xa // indirect
)

func (t NType) IsStab() bool { return t&N_STAB != 0 }
func (t NType) Type() NType  { return t & N_TYPE }
func (t NType) IsExternal() bool {
	return !t.IsStab() && t&N_EXT != 0
}
func (t NType) IsPrivateExternal() bool {
	return !t.IsStab() && t&N_PEXT != 0
}

// String renders a stab by name, or the type bits followed by N_PEXT and
// N_EXT.
func (t NType) String() string {
	if t.IsStab() {
		return StabTypes.StringName(uint64(t))
	}
	parts := []string{NTypes.StringName(uint64(t.Type()))}
	if t&N_PEXT != 0 {
		parts = append(parts, "N_PEXT")
	}
	if t&N_EXT != 0 {
		parts = append(parts, "N_EXT")
	}
	return strings.Join(parts, ",")
}

// Valid reports whether t is a known stab or a known symbol type.
func (t NType) Valid() bool {
	if t.IsStab() {
		return StabTypes.HasValue(uint64(t))
	}
	return NTypes.HasValue(uint64(t.Type()))
}

func ntype(t NType, s string) record.IntName { return record.IntName{I: uint64(t), S: s} }

var NTypes = record.MustMapping(
	ntype(N_UNDF, "N_UNDF"),
	ntype(N_ABS, "N_ABS"),
	ntype(N_SECT, "N_SECT"),
	ntype(N_PBUD, "N_PBUD"),
	ntype(N_INDR, "N_INDR"),
)

// StabTypes are the <mach-o/stab.h> debugging entry types.
var StabTypes = record.MustMapping(
	ntype(0x20, "N_GSYM"),
	ntype(0x22, "N_FNAME"),
	ntype(0x24, "N_FUN"),
	ntype(0x26, "N_STSYM"),
	ntype(0x28, "N_LCSYM"),
	ntype(0x2e, "N_BNSYM"),
	ntype(0x32, "N_AST"),
	ntype(0x3c, "N_OPT"),
	ntype(0x40, "N_RSYM"),
	ntype(0x44, "N_SLINE"),
	ntype(0x4e, "N_ENSYM"),
	ntype(0x60, "N_SSYM"),
	ntype(0x64, "N_SO"),
	ntype(0x66, "N_OSO"),
	ntype(0x80, "N_LSYM"),
	ntype(0x82, "N_BINCL"),
	ntype(0x84, "N_SOL"),
	ntype(0x86, "N_PARAMS"),
	ntype(0x88, "N_VERSION"),
	ntype(0x8a, "N_OLEVEL"),
	ntype(0xa0, "N_PSYM"),
	ntype(0xa2, "N_EINCL"),
	ntype(0xa4, "N_ENTRY"),
	ntype(0xc0, "N_LBRAC"),
	ntype(0xc2, "N_EXCL"),
	ntype(0xe0, "N_RBRAC"),
	ntype(0xe2, "N_BCOMM"),
	ntype(0xe4, "N_ECOMM"),
	ntype(0xe8, "N_ECOML"),
	ntype(0xfe, "N_LENG"),
)

// NoSect is the n_sect of a symbol not defined in any section.
const NoSect = 0

// An NDesc is the n_desc field of a symbol table entry.
type NDesc uint16

const (
	REFERENCE_TYPE                            NDesc = 0x7
	REFERENCE_FLAG_UNDEFINED_NON_LAZY         NDesc = 0x0
	REFERENCE_FLAG_UNDEFINED_LAZY             NDesc = 0x1
	REFERENCE_FLAG_DEFINED                    NDesc = 0x2
	REFERENCE_FLAG_PRIVATE_DEFINED            NDesc = 0x3
	REFERENCE_FLAG_PRIVATE_UNDEFINED_NON_LAZY NDesc = 0x4
	REFERENCE_FLAG_PRIVATE_UNDEFINED_LAZY     NDesc = 0x5

	REFERENCED_DYNAMICALLY NDesc = 0x0010
	N_NO_DEAD_STRIP        NDesc = 0x0020
	N_WEAK_REF             NDesc = 0x0040
	N_WEAK_DEF             NDesc = 0x0080
)

func ndesc(d NDesc, s string) record.IntName { return record.IntName{I: uint64(d), S: s} }

var ReferenceTypes = record.MustMapping(
	ndesc(REFERENCE_FLAG_UNDEFINED_NON_LAZY, "REFERENCE_FLAG_UNDEFINED_NON_LAZY"),
	ndesc(REFERENCE_FLAG_UNDEFINED_LAZY, "REFERENCE_FLAG_UNDEFINED_LAZY"),
	ndesc(REFERENCE_FLAG_DEFINED, "REFERENCE_FLAG_DEFINED"),
	ndesc(REFERENCE_FLAG_PRIVATE_DEFINED, "REFERENCE_FLAG_PRIVATE_DEFINED"),
	ndesc(REFERENCE_FLAG_PRIVATE_UNDEFINED_NON_LAZY, "REFERENCE_FLAG_PRIVATE_UNDEFINED_NON_LAZY"),
	ndesc(REFERENCE_FLAG_PRIVATE_UNDEFINED_LAZY, "REFERENCE_FLAG_PRIVATE_UNDEFINED_LAZY"),
)

var descFlags = []record.IntName{
	ndesc(REFERENCED_DYNAMICALLY, "REFERENCED_DYNAMICALLY"),
	ndesc(N_NO_DEAD_STRIP, "N_NO_DEAD_STRIP"),
	ndesc(N_WEAK_REF, "N_WEAK_REF"),
	ndesc(N_WEAK_DEF, "N_WEAK_DEF"),
}

func (d NDesc) Valid() bool { return ReferenceTypes.HasValue(uint64(d & REFERENCE_TYPE)) }

func (d NDesc) String() string {
	parts := []string{ReferenceTypes.StringName(uint64(d & REFERENCE_TYPE))}
	for _, f := range descFlags {
		if uint64(d)&f.I != 0 {
			parts = append(parts, f.S)
		}
	}
	return strings.Join(parts, ",")
}

// Indirect symbol table sentinels.
const (
	INDIRECT_SYMBOL_LOCAL = 0x80000000
	INDIRECT_SYMBOL_ABS   = 0x40000000
)

var (
	NTypeKind record.Kind = record.Func{
		ValidateFunc: func(r *record.Record, f string) bool { return NType(r.Uint(f)).Valid() },
		DisplayFunc:  func(r *record.Record, f string) string { return NType(r.Uint(f)).String() },
	}
	NSectKind record.Kind = record.Func{
		DisplayFunc: func(r *record.Record, f string) string {
			if r.Uint(f) == NoSect {
				return "NO_SECT"
			}
			return record.Plain.Display(r, f)
		},
	}
	NDescKind record.Kind = record.Func{
		ValidateFunc: func(r *record.Record, f string) bool { return NDesc(r.Uint(f)).Valid() },
		DisplayFunc:  func(r *record.Record, f string) string { return NDesc(r.Uint(f)).String() },
	}
	IndirectSymbolKind record.Kind = record.Func{
		DisplayFunc: func(r *record.Record, f string) string {
			switch v := r.Uint(f); v {
			case INDIRECT_SYMBOL_LOCAL:
				return "INDIRECT_SYMBOL_LOCAL"
			case INDIRECT_SYMBOL_ABS:
				return "INDIRECT_SYMBOL_ABS"
			case INDIRECT_SYMBOL_LOCAL | INDIRECT_SYMBOL_ABS:
				return "INDIRECT_SYMBOL_LOCAL,INDIRECT_SYMBOL_ABS"
			}
			return record.Plain.Display(r, f)
		},
	}
)

var (
	// Nlist is struct nlist. n_desc is signed in the 32-bit format.
	Nlist = record.NewLayout("nlist", record.Native,
		u32("n_strx"),
		record.Field{Name: "n_type", Format: record.U8, Kind: NTypeKind},
		record.Field{Name: "n_sect", Format: record.U8, Kind: NSectKind},
		record.Field{Name: "n_desc", Format: record.I16, Kind: NDescKind},
		hex32("n_value"),
	).Indexed()
	Nlist64 = record.NewLayout("nlist64", record.Native,
		u32("n_strx"),
		record.Field{Name: "n_type", Format: record.U8, Kind: NTypeKind},
		record.Field{Name: "n_sect", Format: record.U8, Kind: NSectKind},
		record.Field{Name: "n_desc", Format: record.U16, Kind: NDescKind},
		hex64("n_value"),
	).Indexed()

	IndirectSymbol = record.NewLayout("IndirectSymbol", record.Native,
		record.Field{Name: "sym_idx", Format: record.U32, Kind: IndirectSymbolKind},
	).Indexed()
)

// NlistLayout returns the symbol table entry record for a file width.
func NlistLayout(width int) *record.Layout {
	if width == 64 {
		return Nlist64
	}
	return Nlist
}
