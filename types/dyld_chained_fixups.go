package types

import (
	"fmt"

	"github.com/appsworld/go-machview/pkg/record"
)

type DCImportsFormat uint32

const (
	DC_IMPORT          DCImportsFormat = 1
	DC_IMPORT_ADDEND   DCImportsFormat = 2
	DC_IMPORT_ADDEND64 DCImportsFormat = 3
)

var DCImportsFormats = record.MustMapping(
	record.IntName{I: uint64(DC_IMPORT), S: "DYLD_CHAINED_IMPORT"},
	record.IntName{I: uint64(DC_IMPORT_ADDEND), S: "DYLD_CHAINED_IMPORT_ADDEND"},
	record.IntName{I: uint64(DC_IMPORT_ADDEND64), S: "DYLD_CHAINED_IMPORT_ADDEND64"},
)

type DCSymbolsFormat uint32

const (
	DC_SFORMAT_UNCOMPRESSED    DCSymbolsFormat = 0
	DC_SFORMAT_ZLIB_COMPRESSED DCSymbolsFormat = 1
)

var DCSymbolsFormats = record.MustMapping(
	record.IntName{I: uint64(DC_SFORMAT_UNCOMPRESSED), S: "UNCOMPRESSED"},
	record.IntName{I: uint64(DC_SFORMAT_ZLIB_COMPRESSED), S: "ZLIB_COMPRESSED"},
)

// DyldChainedImport is a DYLD_CHAINED_IMPORT entry:
//
//	lib_ordinal :  8
//	weak_import :  1
//	name_offset : 23
type DyldChainedImport uint32

func (d DyldChainedImport) LibOrdinal() uint8  { return uint8(d & 0xff) }
func (d DyldChainedImport) WeakImport() bool   { return (d>>8)&1 == 1 }
func (d DyldChainedImport) NameOffset() uint32 { return uint32(d >> 9) }

func (d DyldChainedImport) String() string {
	weak := ""
	if d.WeakImport() {
		weak = ", weak"
	}
	return fmt.Sprintf("lib=%d, name_offset=%#x%s", d.LibOrdinal(), d.NameOffset(), weak)
}

var (
	// DyldChainedFixupsHeader starts the LC_DYLD_CHAINED_FIXUPS payload.
	DyldChainedFixupsHeader = record.NewLayout("dyld_chained_fixups_header", record.Native,
		u32("fixups_version"),
		hex32("starts_offset"),
		hex32("imports_offset"),
		hex32("symbols_offset"),
		u32("imports_count"),
		record.Field{Name: "imports_format", Format: record.U32, Kind: record.Enum(DCImportsFormats)},
		record.Field{Name: "symbols_format", Format: record.U32, Kind: record.Enum(DCSymbolsFormats)},
	)
	// ChainedImport is one DYLD_CHAINED_IMPORT of the imports table.
	ChainedImport = record.NewLayout("dyld_chained_import", record.Native,
		record.Field{Name: "import", Format: record.U32, Kind: record.Func{
			DisplayFunc: func(r *record.Record, f string) string { return DyldChainedImport(r.Uint32(f)).String() },
		}},
	).Indexed()
)
