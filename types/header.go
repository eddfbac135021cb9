package types

import (
	"fmt"
	"strings"

	"github.com/appsworld/go-machview/pkg/record"
)

// A FileHeader represents a Mach-O file header.
type FileHeader struct {
	Magic        Magic
	CPU          CPU
	SubCPU       CPUSubtype
	Type         HeaderFileType
	NCommands    uint32
	SizeCommands uint32
	Flags        HeaderFlag
	Reserved     uint32
}

// FileHeaderFromRecord copies a decoded mach_header or mach_header_64.
func FileHeaderFromRecord(r *record.Record) FileHeader {
	return FileHeader{
		Magic:        Magic(r.Uint32("magic")),
		CPU:          CPU(r.Uint32("cputype")),
		SubCPU:       CPUSubtype(r.Uint32("cpusubtype")),
		Type:         HeaderFileType(r.Uint32("filetype")),
		NCommands:    r.Uint32("ncmds"),
		SizeCommands: r.Uint32("sizeofcmds"),
		Flags:        HeaderFlag(r.Uint32("flags")),
		Reserved:     r.Uint32("reserved"),
	}
}

const (
	FileHeaderSize32 = 7 * 4
	FileHeaderSize64 = 8 * 4
)

type Magic uint32

const (
	Magic32  Magic = 0xfeedface
	Magic64  Magic = 0xfeedfacf
	MagicFat Magic = 0xcafebabe
	Cigam32  Magic = 0xcefaedfe
	Cigam64  Magic = 0xcffaedfe
	CigamFat Magic = 0xbebafeca
)

var magicStrings = []record.IntName{
	{I: uint64(Magic32), S: "32-bit MachO"},
	{I: uint64(Magic64), S: "64-bit MachO"},
	{I: uint64(MagicFat), S: "Fat MachO"},
}

func (i Magic) Int() uint32      { return uint32(i) }
func (i Magic) String() string   { return stringName(uint64(i), magicStrings, false) }
func (i Magic) GoString() string { return stringName(uint64(i), magicStrings, true) }

// A HeaderFileType is the Mach-O file type, e.g. an object file, executable, or dynamic library.
type HeaderFileType uint32

const (
	MH_OBJECT      HeaderFileType = 0x1 /* relocatable object file */
	MH_EXECUTE     HeaderFileType = 0x2 /* demand paged executable file */
	MH_FVMLIB      HeaderFileType = 0x3 /* fixed VM shared library file */
	MH_CORE        HeaderFileType = 0x4 /* core file */
	MH_PRELOAD     HeaderFileType = 0x5 /* preloaded executable file */
	MH_DYLIB       HeaderFileType = 0x6 /* dynamically bound shared library */
	MH_DYLINKER    HeaderFileType = 0x7 /* dynamic link editor */
	MH_BUNDLE      HeaderFileType = 0x8 /* dynamically bound bundle file */
	MH_DYLIB_STUB  HeaderFileType = 0x9 /* shared library stub for static linking only, no section contents */
	MH_DSYM        HeaderFileType = 0xa /* companion file with only debug sections */
	MH_KEXT_BUNDLE HeaderFileType = 0xb /* x86_64 kexts */
	MH_FILESET     HeaderFileType = 0xc /* a file composed of other Mach-Os to be run in the same userspace sharing a single linkedit. */
)

// FileTypes maps the MH_* file type names to values.
var FileTypes = record.MustMapping(
	record.IntName{I: uint64(MH_OBJECT), S: "MH_OBJECT"},
	record.IntName{I: uint64(MH_EXECUTE), S: "MH_EXECUTE"},
	record.IntName{I: uint64(MH_FVMLIB), S: "MH_FVMLIB"},
	record.IntName{I: uint64(MH_CORE), S: "MH_CORE"},
	record.IntName{I: uint64(MH_PRELOAD), S: "MH_PRELOAD"},
	record.IntName{I: uint64(MH_DYLIB), S: "MH_DYLIB"},
	record.IntName{I: uint64(MH_DYLINKER), S: "MH_DYLINKER"},
	record.IntName{I: uint64(MH_BUNDLE), S: "MH_BUNDLE"},
	record.IntName{I: uint64(MH_DYLIB_STUB), S: "MH_DYLIB_STUB"},
	record.IntName{I: uint64(MH_DSYM), S: "MH_DSYM"},
	record.IntName{I: uint64(MH_KEXT_BUNDLE), S: "MH_KEXT_BUNDLE"},
	record.IntName{I: uint64(MH_FILESET), S: "MH_FILESET"},
)

func (t HeaderFileType) String() string { return strings.TrimPrefix(FileTypes.StringName(uint64(t)), "MH_") }

type HeaderFlag uint32

const (
	None                       HeaderFlag = 0x0
	NoUndefs                   HeaderFlag = 0x1
	IncrLink                   HeaderFlag = 0x2
	DyldLink                   HeaderFlag = 0x4
	BindAtLoad                 HeaderFlag = 0x8
	Prebound                   HeaderFlag = 0x10
	SplitSegs                  HeaderFlag = 0x20
	LazyInit                   HeaderFlag = 0x40
	TwoLevel                   HeaderFlag = 0x80
	ForceFlat                  HeaderFlag = 0x100
	NoMultiDefs                HeaderFlag = 0x200
	NoFixPrebinding            HeaderFlag = 0x400
	Prebindable                HeaderFlag = 0x800
	AllModsBound               HeaderFlag = 0x1000
	SubsectionsViaSymbols      HeaderFlag = 0x2000
	Canonical                  HeaderFlag = 0x4000
	WeakDefines                HeaderFlag = 0x8000
	BindsToWeak                HeaderFlag = 0x10000
	AllowStackExecution        HeaderFlag = 0x20000
	RootSafe                   HeaderFlag = 0x40000
	SetuidSafe                 HeaderFlag = 0x80000
	NoReexportedDylibs         HeaderFlag = 0x100000
	PIE                        HeaderFlag = 0x200000
	DeadStrippableDylib        HeaderFlag = 0x400000
	HasTLVDescriptors          HeaderFlag = 0x800000
	NoHeapExecution            HeaderFlag = 0x1000000
	AppExtensionSafe           HeaderFlag = 0x2000000
	NlistOutofsyncWithDyldinfo HeaderFlag = 0x4000000
	SimSupport                 HeaderFlag = 0x8000000
	DylibInCache               HeaderFlag = 0x80000000
)

// HeaderFlags maps the MH_* flag names to their bits.
var HeaderFlags = record.MustMapping(
	record.IntName{I: uint64(NoUndefs), S: "MH_NOUNDEFS"},
	record.IntName{I: uint64(IncrLink), S: "MH_INCRLINK"},
	record.IntName{I: uint64(DyldLink), S: "MH_DYLDLINK"},
	record.IntName{I: uint64(BindAtLoad), S: "MH_BINDATLOAD"},
	record.IntName{I: uint64(Prebound), S: "MH_PREBOUND"},
	record.IntName{I: uint64(SplitSegs), S: "MH_SPLIT_SEGS"},
	record.IntName{I: uint64(LazyInit), S: "MH_LAZY_INIT"},
	record.IntName{I: uint64(TwoLevel), S: "MH_TWOLEVEL"},
	record.IntName{I: uint64(ForceFlat), S: "MH_FORCE_FLAT"},
	record.IntName{I: uint64(NoMultiDefs), S: "MH_NOMULTIDEFS"},
	record.IntName{I: uint64(NoFixPrebinding), S: "MH_NOFIXPREBINDING"},
	record.IntName{I: uint64(Prebindable), S: "MH_PREBINDABLE"},
	record.IntName{I: uint64(AllModsBound), S: "MH_ALLMODSBOUND"},
	record.IntName{I: uint64(SubsectionsViaSymbols), S: "MH_SUBSECTIONS_VIA_SYMBOLS"},
	record.IntName{I: uint64(Canonical), S: "MH_CANONICAL"},
	record.IntName{I: uint64(WeakDefines), S: "MH_WEAK_DEFINES"},
	record.IntName{I: uint64(BindsToWeak), S: "MH_BINDS_TO_WEAK"},
	record.IntName{I: uint64(AllowStackExecution), S: "MH_ALLOW_STACK_EXECUTION"},
	record.IntName{I: uint64(RootSafe), S: "MH_ROOT_SAFE"},
	record.IntName{I: uint64(SetuidSafe), S: "MH_SETUID_SAFE"},
	record.IntName{I: uint64(NoReexportedDylibs), S: "MH_NO_REEXPORTED_DYLIBS"},
	record.IntName{I: uint64(PIE), S: "MH_PIE"},
	record.IntName{I: uint64(DeadStrippableDylib), S: "MH_DEAD_STRIPPABLE_DYLIB"},
	record.IntName{I: uint64(HasTLVDescriptors), S: "MH_HAS_TLV_DESCRIPTORS"},
	record.IntName{I: uint64(NoHeapExecution), S: "MH_NO_HEAP_EXECUTION"},
	record.IntName{I: uint64(AppExtensionSafe), S: "MH_APP_EXTENSION_SAFE"},
	record.IntName{I: uint64(NlistOutofsyncWithDyldinfo), S: "MH_NLIST_OUTOFSYNC_WITH_DYLDINFO"},
	record.IntName{I: uint64(SimSupport), S: "MH_SIM_SUPPORT"},
	record.IntName{I: uint64(DylibInCache), S: "MH_DYLIB_IN_CACHE"},
)

func (f HeaderFlag) None() bool                  { return f == 0 }
func (f HeaderFlag) NoUndefs() bool              { return (f & NoUndefs) != 0 }
func (f HeaderFlag) DyldLink() bool              { return (f & DyldLink) != 0 }
func (f HeaderFlag) TwoLevel() bool              { return (f & TwoLevel) != 0 }
func (f HeaderFlag) PIE() bool                   { return (f & PIE) != 0 }
func (f HeaderFlag) SubsectionsViaSymbols() bool { return (f & SubsectionsViaSymbols) != 0 }
func (f HeaderFlag) DylibInCache() bool          { return (f & DylibInCache) != 0 }

// List returns the names of the set flags in ascending bit order.
func (f HeaderFlag) List() []string {
	var flags []string
	for _, p := range HeaderFlags.Pairs() {
		if uint64(f)&p.I != 0 {
			flags = append(flags, strings.TrimPrefix(p.S, "MH_"))
		}
	}
	return flags
}

func (f HeaderFlag) Flags() string {
	if f.None() {
		return "None"
	}
	return strings.Join(f.List(), ", ")
}

func (h FileHeader) String() string {
	caps := h.SubCPU.Caps(h.CPU)
	if caps != "" {
		caps = " " + caps
	}
	return fmt.Sprintf(
		"Magic         = %s\n"+
			"Type          = %s\n"+
			"CPU           = %s, %s%s\n"+
			"Commands      = %d (Size: %d)\n"+
			"Flags         = %s\n",
		h.Magic,
		h.Type,
		h.CPU, h.SubCPU.String(h.CPU), caps,
		h.NCommands,
		h.SizeCommands,
		h.Flags.Flags(),
	)
}

var headerFlagsKind = record.MustBitFields(HeaderFlags)

// MachHeader is struct mach_header.
var MachHeader = record.NewLayout("mach_header", record.Native,
	record.Field{Name: "magic", Format: record.U32, Kind: record.Magic(map[uint64]string{uint64(Magic32): "MH_MAGIC"})},
	record.Field{Name: "cputype", Format: record.U32, Kind: record.Enum(CPUTypes)},
	record.Field{Name: "cpusubtype", Format: record.U32, Kind: CPUSubtypeKind("cputype")},
	record.Field{Name: "filetype", Format: record.U32, Kind: record.Enum(FileTypes)},
	record.Field{Name: "ncmds", Format: record.U32},
	record.Field{Name: "sizeofcmds", Format: record.U32},
	record.Field{Name: "flags", Format: record.U32, Kind: headerFlagsKind},
)

// MachHeader64 is struct mach_header_64.
var MachHeader64 = record.NewLayout("mach_header_64", record.Native,
	record.Field{Name: "magic", Format: record.U32, Kind: record.Magic(map[uint64]string{uint64(Magic64): "MH_MAGIC64"})},
	record.Field{Name: "cputype", Format: record.U32, Kind: record.Enum(CPUTypes)},
	record.Field{Name: "cpusubtype", Format: record.U32, Kind: CPUSubtypeKind("cputype")},
	record.Field{Name: "filetype", Format: record.U32, Kind: record.Enum(FileTypes)},
	record.Field{Name: "ncmds", Format: record.U32},
	record.Field{Name: "sizeofcmds", Format: record.U32},
	record.Field{Name: "flags", Format: record.U32, Kind: headerFlagsKind},
	record.Field{Name: "reserved", Format: record.U32},
)
