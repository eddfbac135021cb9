package types

import (
	"github.com/appsworld/go-machview/pkg/record"
)

// A LoadCmd is a Mach-O load command.
type LoadCmd uint32

func (c LoadCmd) Command() LoadCmd { return c }

func (c LoadCmd) String() string { return LoadCommands.StringName(uint64(c)) }

const (
	LC_REQ_DYLD       LoadCmd = 0x80000000
	LC_SEGMENT        LoadCmd = 0x1  // segment of this file to be mapped
	LC_SYMTAB         LoadCmd = 0x2  // link-edit stab symbol table info
	LC_SYMSEG         LoadCmd = 0x3  // link-edit gdb symbol table info (obsolete)
	LC_THREAD         LoadCmd = 0x4  // thread
	LC_UNIXTHREAD     LoadCmd = 0x5  // thread+stack
	LC_LOADFVMLIB     LoadCmd = 0x6  // load a specified fixed VM shared library
	LC_IDFVMLIB       LoadCmd = 0x7  // fixed VM shared library identification
	LC_IDENT          LoadCmd = 0x8  // object identification info (obsolete)
	LC_FVMFILE        LoadCmd = 0x9  // fixed VM file inclusion (internal use)
	LC_PREPAGE        LoadCmd = 0xa  // prepage command (internal use)
	LC_DYSYMTAB       LoadCmd = 0xb  // dynamic link-edit symbol table info
	LC_LOAD_DYLIB     LoadCmd = 0xc  // load dylib command
	LC_ID_DYLIB       LoadCmd = 0xd  // id dylib command
	LC_LOAD_DYLINKER  LoadCmd = 0xe  // load a dynamic linker
	LC_ID_DYLINKER    LoadCmd = 0xf  // id dylinker command (not load dylinker command)
	LC_PREBOUND_DYLIB LoadCmd = 0x10 // modules prebound for a dynamically linked shared library
	LC_ROUTINES       LoadCmd = 0x11 // image routines
	LC_SUB_FRAMEWORK  LoadCmd = 0x12 // sub framework
	LC_SUB_UMBRELLA   LoadCmd = 0x13 // sub umbrella
	LC_SUB_CLIENT     LoadCmd = 0x14 // sub client
	LC_SUB_LIBRARY    LoadCmd = 0x15 // sub library
	LC_TWOLEVEL_HINTS LoadCmd = 0x16 // two-level namespace lookup hints
	LC_PREBIND_CKSUM  LoadCmd = 0x17 // prebind checksum
	/*
	 * load a dynamically linked shared library that is allowed to be missing
	 * (all symbols are weak imported).
	 */
	LC_LOAD_WEAK_DYLIB          LoadCmd = (0x18 | LC_REQ_DYLD)
	LC_SEGMENT_64               LoadCmd = 0x19                 // 64-bit segment of this file to be mapped
	LC_ROUTINES_64              LoadCmd = 0x1a                 // 64-bit image routines
	LC_UUID                     LoadCmd = 0x1b                 // the uuid
	LC_RPATH                    LoadCmd = (0x1c | LC_REQ_DYLD) // runpath additions
	LC_CODE_SIGNATURE           LoadCmd = 0x1d                 // local of code signature
	LC_SEGMENT_SPLIT_INFO       LoadCmd = 0x1e                 // local of info to split segments
	LC_REEXPORT_DYLIB           LoadCmd = (0x1f | LC_REQ_DYLD) // load and re-export dylib
	LC_LAZY_LOAD_DYLIB          LoadCmd = 0x20                 // delay load of dylib until first use
	LC_ENCRYPTION_INFO          LoadCmd = 0x21                 // encrypted segment information
	LC_DYLD_INFO                LoadCmd = 0x22                 // compressed dyld information
	LC_DYLD_INFO_ONLY           LoadCmd = (0x22 | LC_REQ_DYLD) // compressed dyld information only
	LC_LOAD_UPWARD_DYLIB        LoadCmd = (0x23 | LC_REQ_DYLD) // load upward dylib
	LC_VERSION_MIN_MACOSX       LoadCmd = 0x24                 // build for MacOSX min OS version
	LC_VERSION_MIN_IPHONEOS     LoadCmd = 0x25                 // build for iPhoneOS min OS version
	LC_FUNCTION_STARTS          LoadCmd = 0x26                 // compressed table of function start addresses
	LC_DYLD_ENVIRONMENT         LoadCmd = 0x27                 // string for dyld to treat like environment variable
	LC_MAIN                     LoadCmd = (0x28 | LC_REQ_DYLD) // replacement for LC_UNIXTHREAD
	LC_DATA_IN_CODE             LoadCmd = 0x29                 // table of non-instructions in __text
	LC_SOURCE_VERSION           LoadCmd = 0x2A                 // source version used to build binary
	LC_DYLIB_CODE_SIGN_DRS      LoadCmd = 0x2B                 // Code signing DRs copied from linked dylibs
	LC_ENCRYPTION_INFO_64       LoadCmd = 0x2C                 // 64-bit encrypted segment information
	LC_LINKER_OPTION            LoadCmd = 0x2D                 // linker options in MH_OBJECT files
	LC_LINKER_OPTIMIZATION_HINT LoadCmd = 0x2E                 // optimization hints in MH_OBJECT files
	LC_VERSION_MIN_TVOS         LoadCmd = 0x2F                 // build for AppleTV min OS version
	LC_VERSION_MIN_WATCHOS      LoadCmd = 0x30                 // build for Watch min OS version
	LC_NOTE                     LoadCmd = 0x31                 // arbitrary data included within a Mach-O file
	LC_BUILD_VERSION            LoadCmd = 0x32                 // build for platform min OS version
	LC_DYLD_EXPORTS_TRIE        LoadCmd = (0x33 | LC_REQ_DYLD) // used with linkedit_data_command, payload is trie
	LC_DYLD_CHAINED_FIXUPS      LoadCmd = (0x34 | LC_REQ_DYLD) // used with linkedit_data_command
	LC_FILESET_ENTRY            LoadCmd = (0x35 | LC_REQ_DYLD) /* used with fileset_entry_command */
)

func cmdName(c LoadCmd, s string) record.IntName { return record.IntName{I: uint64(c), S: s} }

// LoadCommands maps <mach-o/loader.h> load command names to opcodes.
var LoadCommands = record.MustMapping(
	cmdName(LC_SEGMENT, "LC_SEGMENT"),
	cmdName(LC_SYMTAB, "LC_SYMTAB"),
	cmdName(LC_SYMSEG, "LC_SYMSEG"),
	cmdName(LC_THREAD, "LC_THREAD"),
	cmdName(LC_UNIXTHREAD, "LC_UNIXTHREAD"),
	cmdName(LC_LOADFVMLIB, "LC_LOADFVMLIB"),
	cmdName(LC_IDFVMLIB, "LC_IDFVMLIB"),
	cmdName(LC_IDENT, "LC_IDENT"),
	cmdName(LC_FVMFILE, "LC_FVMFILE"),
	cmdName(LC_PREPAGE, "LC_PREPAGE"),
	cmdName(LC_DYSYMTAB, "LC_DYSYMTAB"),
	cmdName(LC_LOAD_DYLIB, "LC_LOAD_DYLIB"),
	cmdName(LC_ID_DYLIB, "LC_ID_DYLIB"),
	cmdName(LC_LOAD_DYLINKER, "LC_LOAD_DYLINKER"),
	cmdName(LC_ID_DYLINKER, "LC_ID_DYLINKER"),
	cmdName(LC_PREBOUND_DYLIB, "LC_PREBOUND_DYLIB"),
	cmdName(LC_ROUTINES, "LC_ROUTINES"),
	cmdName(LC_SUB_FRAMEWORK, "LC_SUB_FRAMEWORK"),
	cmdName(LC_SUB_UMBRELLA, "LC_SUB_UMBRELLA"),
	cmdName(LC_SUB_CLIENT, "LC_SUB_CLIENT"),
	cmdName(LC_SUB_LIBRARY, "LC_SUB_LIBRARY"),
	cmdName(LC_TWOLEVEL_HINTS, "LC_TWOLEVEL_HINTS"),
	cmdName(LC_PREBIND_CKSUM, "LC_PREBIND_CKSUM"),
	cmdName(LC_LOAD_WEAK_DYLIB, "LC_LOAD_WEAK_DYLIB"),
	cmdName(LC_SEGMENT_64, "LC_SEGMENT_64"),
	cmdName(LC_ROUTINES_64, "LC_ROUTINES_64"),
	cmdName(LC_UUID, "LC_UUID"),
	cmdName(LC_RPATH, "LC_RPATH"),
	cmdName(LC_CODE_SIGNATURE, "LC_CODE_SIGNATURE"),
	cmdName(LC_SEGMENT_SPLIT_INFO, "LC_SEGMENT_SPLIT_INFO"),
	cmdName(LC_REEXPORT_DYLIB, "LC_REEXPORT_DYLIB"),
	cmdName(LC_LAZY_LOAD_DYLIB, "LC_LAZY_LOAD_DYLIB"),
	cmdName(LC_ENCRYPTION_INFO, "LC_ENCRYPTION_INFO"),
	cmdName(LC_DYLD_INFO, "LC_DYLD_INFO"),
	cmdName(LC_DYLD_INFO_ONLY, "LC_DYLD_INFO_ONLY"),
	cmdName(LC_LOAD_UPWARD_DYLIB, "LC_LOAD_UPWARD_DYLIB"),
	cmdName(LC_VERSION_MIN_MACOSX, "LC_VERSION_MIN_MACOSX"),
	cmdName(LC_VERSION_MIN_IPHONEOS, "LC_VERSION_MIN_IPHONEOS"),
	cmdName(LC_FUNCTION_STARTS, "LC_FUNCTION_STARTS"),
	cmdName(LC_DYLD_ENVIRONMENT, "LC_DYLD_ENVIRONMENT"),
	cmdName(LC_MAIN, "LC_MAIN"),
	cmdName(LC_DATA_IN_CODE, "LC_DATA_IN_CODE"),
	cmdName(LC_SOURCE_VERSION, "LC_SOURCE_VERSION"),
	cmdName(LC_DYLIB_CODE_SIGN_DRS, "LC_DYLIB_CODE_SIGN_DRS"),
	cmdName(LC_ENCRYPTION_INFO_64, "LC_ENCRYPTION_INFO_64"),
	cmdName(LC_LINKER_OPTION, "LC_LINKER_OPTION"),
	cmdName(LC_LINKER_OPTIMIZATION_HINT, "LC_LINKER_OPTIMIZATION_HINT"),
	cmdName(LC_VERSION_MIN_TVOS, "LC_VERSION_MIN_TVOS"),
	cmdName(LC_VERSION_MIN_WATCHOS, "LC_VERSION_MIN_WATCHOS"),
	cmdName(LC_NOTE, "LC_NOTE"),
	cmdName(LC_BUILD_VERSION, "LC_BUILD_VERSION"),
	cmdName(LC_DYLD_EXPORTS_TRIE, "LC_DYLD_EXPORTS_TRIE"),
	cmdName(LC_DYLD_CHAINED_FIXUPS, "LC_DYLD_CHAINED_FIXUPS"),
	cmdName(LC_FILESET_ENTRY, "LC_FILESET_ENTRY"),
)

// cmdKind accepts only the given opcodes in a command record's cmd field.
func cmdKind(cmds ...LoadCmd) record.Kind {
	m := make(map[uint64]string, len(cmds))
	for _, c := range cmds {
		m[uint64(c)] = c.String()
	}
	return record.Magic(m)
}

func u32(name string) record.Field { return record.Field{Name: name, Format: record.U32} }
func u64(name string) record.Field { return record.Field{Name: name, Format: record.U64} }
func hex32(name string) record.Field {
	return record.Field{Name: name, Format: record.U32, Kind: record.Hex}
}
func hex64(name string) record.Field {
	return record.Field{Name: name, Format: record.U64, Kind: record.Hex}
}
func name16(name string) record.Field {
	return record.Field{Name: name, Format: record.Blob(16), Kind: record.CString}
}

func command(name string, cmds []LoadCmd, fields ...record.Field) *record.Layout {
	head := []record.Field{
		{Name: "cmd", Format: record.U32, Kind: cmdKind(cmds...)},
		u32("cmdsize"),
	}
	return record.NewLayout(name, record.Native, append(head, fields...)...)
}

// LoadCommand is the generic header every load command starts with. Unknown
// opcodes decode and display in hex.
var LoadCommand = record.NewLayout("load_command", record.Native,
	record.Field{Name: "cmd", Format: record.U32, Kind: record.Names(LoadCommands)},
	u32("cmdsize"),
)

// LoadCommandSize is the size of the generic load command header.
const LoadCommandSize = 8

type SegFlag uint32

/* Constants for the flags field of the segment_command */
const (
	HighVM            SegFlag = 0x1  /* the file contents for this segment is for the high part of the VM space */
	FvmLib            SegFlag = 0x2  /* this segment is the VM that is allocated by a fixed VM library */
	NoReLoc           SegFlag = 0x4  /* this segment has nothing that was relocated in it and nothing relocated to it */
	ProtectedVersion1 SegFlag = 0x8  /* this segment is protected */
	ReadOnly          SegFlag = 0x10 /* this segment is made read-only after fixups */
)

// Section types, the low byte of a section's flags.
const (
	SectionTypeMask         = 0xff
	S_REGULAR               = 0x0
	S_ZEROFILL              = 0x1
	S_CSTRING_LITERALS      = 0x2
	S_GB_ZEROFILL           = 0xc
	S_THREAD_LOCAL_ZEROFILL = 0x12
)

// IsZeroFill reports whether section flags describe a section with no file
// contents.
func IsZeroFill(flags uint32) bool {
	switch flags & SectionTypeMask {
	case S_ZEROFILL, S_GB_ZEROFILL, S_THREAD_LOCAL_ZEROFILL:
		return true
	}
	return false
}

var (
	DylibCmds = []LoadCmd{
		LC_LOAD_DYLIB, LC_ID_DYLIB, LC_LOAD_WEAK_DYLIB,
		LC_REEXPORT_DYLIB, LC_LAZY_LOAD_DYLIB, LC_LOAD_UPWARD_DYLIB,
	}
	DylinkerCmds = []LoadCmd{LC_ID_DYLINKER, LC_LOAD_DYLINKER, LC_DYLD_ENVIRONMENT}
	LinkEditCmds = []LoadCmd{
		LC_CODE_SIGNATURE, LC_SEGMENT_SPLIT_INFO, LC_FUNCTION_STARTS, LC_DATA_IN_CODE,
		LC_DYLIB_CODE_SIGN_DRS, LC_LINKER_OPTIMIZATION_HINT, LC_DYLD_EXPORTS_TRIE, LC_DYLD_CHAINED_FIXUPS,
	}
	VersionMinCmds = []LoadCmd{
		LC_VERSION_MIN_MACOSX, LC_VERSION_MIN_IPHONEOS, LC_VERSION_MIN_TVOS, LC_VERSION_MIN_WATCHOS,
	}
)

var (
	SegmentCommand = command("segment_command", []LoadCmd{LC_SEGMENT},
		name16("segname"),
		hex32("vmaddr"),
		u32("vmsize"),
		u32("fileoff"),
		u32("filesize"),
		record.Field{Name: "maxprot", Format: record.U32, Kind: VmProtKind},
		record.Field{Name: "initprot", Format: record.U32, Kind: VmProtKind},
		u32("nsects"),
		hex32("flags"),
	)
	SegmentCommand64 = command("segment_command_64", []LoadCmd{LC_SEGMENT_64},
		name16("segname"),
		hex64("vmaddr"),
		u64("vmsize"),
		u64("fileoff"),
		u64("filesize"),
		record.Field{Name: "maxprot", Format: record.U32, Kind: VmProtKind},
		record.Field{Name: "initprot", Format: record.U32, Kind: VmProtKind},
		u32("nsects"),
		hex32("flags"),
	)

	// Section and Section64 are numbered from 1 in file order, matching
	// the n_sect of the symbols defined in them.
	Section = record.NewLayout("section", record.Native,
		name16("sectname"),
		name16("segname"),
		hex32("addr"),
		u32("size"),
		u32("offset"),
		u32("align"),
		u32("reloff"),
		u32("nreloc"),
		hex32("flags"),
		u32("reserved1"),
		u32("reserved2"),
	).IndexedFrom(1)
	Section64 = record.NewLayout("section_64", record.Native,
		name16("sectname"),
		name16("segname"),
		hex64("addr"),
		u64("size"),
		u32("offset"),
		u32("align"),
		u32("reloff"),
		u32("nreloc"),
		hex32("flags"),
		u32("reserved1"),
		u32("reserved2"),
		u32("reserved3"),
	).IndexedFrom(1)

	DylibCommand = command("dylib_command", DylibCmds,
		u32("dylib_name_offset"),
		record.Field{Name: "dylib_timestamp", Format: record.U32, Kind: record.UnixTime},
		record.Field{Name: "dylib_current_version", Format: record.U32, Kind: VersionKind},
		record.Field{Name: "dylib_compatibility_version", Format: record.U32, Kind: VersionKind},
	)
	DylinkerCommand = command("dylinker_command", DylinkerCmds, u32("name_offset"))
	PreboundDylibCommand = command("prebound_dylib_command", []LoadCmd{LC_PREBOUND_DYLIB},
		u32("name_offset"),
		u32("nmodules"),
		u32("linked_modules_offset"),
	)
	SubFrameworkCommand = command("sub_framework_command", []LoadCmd{LC_SUB_FRAMEWORK}, u32("umbrella_offset"))
	SubUmbrellaCommand  = command("sub_umbrella_command", []LoadCmd{LC_SUB_UMBRELLA}, u32("sub_umbrella_offset"))
	SubClientCommand    = command("sub_client_command", []LoadCmd{LC_SUB_CLIENT}, u32("client_offset"))
	SubLibraryCommand   = command("sub_library_command", []LoadCmd{LC_SUB_LIBRARY}, u32("library_offset"))
	RpathCommand        = command("rpath_command", []LoadCmd{LC_RPATH}, u32("path_offset"))

	DyldInfoCommand = command("dyld_info_command", []LoadCmd{LC_DYLD_INFO, LC_DYLD_INFO_ONLY},
		u32("rebase_off"),
		u32("rebase_size"),
		u32("bind_off"),
		u32("bind_size"),
		u32("weak_bind_off"),
		u32("weak_bind_size"),
		u32("lazy_bind_off"),
		u32("lazy_bind_size"),
		u32("export_off"),
		u32("export_size"),
	)
	SymtabCommand = command("symtab_command", []LoadCmd{LC_SYMTAB},
		u32("symoff"),
		u32("nsyms"),
		u32("stroff"),
		u32("strsize"),
	)
	DysymtabCommand = command("dysymtab_command", []LoadCmd{LC_DYSYMTAB},
		u32("ilocalsym"),
		u32("nlocalsym"),
		u32("iextdefsym"),
		u32("nextdefsym"),
		u32("iundefsym"),
		u32("nundefsym"),
		u32("tocoff"),
		u32("ntoc"),
		u32("modtaboff"),
		u32("nmodtab"),
		u32("extrefsymoff"),
		u32("nextrefsyms"),
		u32("indirectsymoff"),
		u32("nindirectsyms"),
		u32("extreloff"),
		u32("nextrel"),
		u32("locreloff"),
		u32("nlocrel"),
	)
	LinkeditDataCommand = command("linkedit_data_command", LinkEditCmds,
		u32("dataoff"),
		u32("datasize"),
	)
	EncryptionInfoCommand = command("encryption_info_command", []LoadCmd{LC_ENCRYPTION_INFO},
		u32("cryptoff"),
		u32("cryptsize"),
		u32("cryptid"),
	)
	EncryptionInfoCommand64 = command("encryption_info_command_64", []LoadCmd{LC_ENCRYPTION_INFO_64},
		u32("cryptoff"),
		u32("cryptsize"),
		u32("cryptid"),
		u32("pad"),
	)
	EntryPointCommand = command("entry_point_command", []LoadCmd{LC_MAIN},
		hex64("entryoff"),
		u64("stacksize"),
	)
	UUIDCommand = command("uuid_command", []LoadCmd{LC_UUID},
		record.Field{Name: "uuid", Format: record.Blob(16), Kind: UUIDKind},
	)
	VersionMinCommand = command("version_min_command", VersionMinCmds,
		record.Field{Name: "version", Format: record.U32, Kind: VersionKind},
		record.Field{Name: "sdk", Format: record.U32, Kind: VersionKind},
	)
	SourceVersionCommand = command("source_version_command", []LoadCmd{LC_SOURCE_VERSION},
		record.Field{Name: "version", Format: record.U64, Kind: SourceVersionKind},
	)
	BuildVersionCommand = command("build_version_command", []LoadCmd{LC_BUILD_VERSION},
		record.Field{Name: "platform", Format: record.U32, Kind: record.Names(Platforms)},
		record.Field{Name: "minos", Format: record.U32, Kind: VersionKind},
		record.Field{Name: "sdk", Format: record.U32, Kind: VersionKind},
		u32("ntools"),
	)
	BuildToolVersion = record.NewLayout("build_tool_version", record.Native,
		record.Field{Name: "tool", Format: record.U32, Kind: record.Names(Tools)},
		record.Field{Name: "version", Format: record.U32, Kind: VersionKind},
	).Indexed()
	TwolevelHintsCommand = command("twolevel_hints_command", []LoadCmd{LC_TWOLEVEL_HINTS},
		u32("offset"),
		u32("nhints"),
	)
	PrebindCksumCommand = command("prebind_cksum_command", []LoadCmd{LC_PREBIND_CKSUM}, u32("cksum"))
	LinkerOptionCommand = command("linker_option_command", []LoadCmd{LC_LINKER_OPTION}, u32("count"))
	RoutinesCommand     = command("routines_command", []LoadCmd{LC_ROUTINES},
		hex32("init_address"),
		u32("init_module"),
		u32("reserved1"),
		u32("reserved2"),
		u32("reserved3"),
		u32("reserved4"),
		u32("reserved5"),
		u32("reserved6"),
	)
	RoutinesCommand64 = command("routines_command_64", []LoadCmd{LC_ROUTINES_64},
		hex64("init_address"),
		u64("init_module"),
		u64("reserved1"),
		u64("reserved2"),
		u64("reserved3"),
		u64("reserved4"),
		u64("reserved5"),
		u64("reserved6"),
	)
	ThreadCommand = command("thread_command", []LoadCmd{LC_THREAD, LC_UNIXTHREAD})
	// ThreadStateHeader precedes each register set of a thread command.
	ThreadStateHeader = record.NewLayout("thread_state", record.Native,
		u32("flavor"),
		u32("count"),
	)
)

// Platform is a macho platform object
type Platform uint32

const (
	unknown          Platform = 0
	macOS            Platform = 1  // PLATFORM_MACOS
	iOS              Platform = 2  // PLATFORM_IOS
	tvOS             Platform = 3  // PLATFORM_TVOS
	watchOS          Platform = 4  // PLATFORM_WATCHOS
	bridgeOS         Platform = 5  // PLATFORM_BRIDGEOS
	macCatalyst      Platform = 6  // PLATFORM_MACCATALYST
	iOSSimulator     Platform = 7  // PLATFORM_IOSSIMULATOR
	tvOSSimulator    Platform = 8  // PLATFORM_TVOSSIMULATOR
	watchOSSimulator Platform = 9  // PLATFORM_WATCHOSSIMULATOR
	driverKit        Platform = 10 // PLATFORM_DRIVERKIT
)

var Platforms = record.MustMapping(
	record.IntName{I: uint64(unknown), S: "unknown"},
	record.IntName{I: uint64(macOS), S: "macOS"},
	record.IntName{I: uint64(iOS), S: "iOS"},
	record.IntName{I: uint64(tvOS), S: "tvOS"},
	record.IntName{I: uint64(watchOS), S: "watchOS"},
	record.IntName{I: uint64(bridgeOS), S: "bridgeOS"},
	record.IntName{I: uint64(macCatalyst), S: "macCatalyst"},
	record.IntName{I: uint64(iOSSimulator), S: "iOSSimulator"},
	record.IntName{I: uint64(tvOSSimulator), S: "tvOSSimulator"},
	record.IntName{I: uint64(watchOSSimulator), S: "watchOSSimulator"},
	record.IntName{I: uint64(driverKit), S: "driverKit"},
)

func (p Platform) String() string { return Platforms.StringName(uint64(p)) }

type Tool uint32

const (
	clang Tool = 1 // TOOL_CLANG
	swift Tool = 2 // TOOL_SWIFT
	ld    Tool = 3 // TOOL_LD
)

var Tools = record.MustMapping(
	record.IntName{I: uint64(clang), S: "clang"},
	record.IntName{I: uint64(swift), S: "swift"},
	record.IntName{I: uint64(ld), S: "ld"},
)

func (t Tool) String() string { return Tools.StringName(uint64(t)) }

// CommandLayout returns the record that decodes cmd in a file of the given
// width (32 or 64). Commands without a record of their own, and the segment,
// routines and encryption commands of the other width, report false.
func CommandLayout(cmd LoadCmd, width int) (*record.Layout, bool) {
	switch cmd {
	case LC_SEGMENT:
		return SegmentCommand, width == 32
	case LC_SEGMENT_64:
		return SegmentCommand64, width == 64
	case LC_ROUTINES:
		return RoutinesCommand, width == 32
	case LC_ROUTINES_64:
		return RoutinesCommand64, width == 64
	case LC_ENCRYPTION_INFO:
		return EncryptionInfoCommand, width == 32
	case LC_ENCRYPTION_INFO_64:
		return EncryptionInfoCommand64, width == 64
	case LC_LOAD_DYLIB, LC_ID_DYLIB, LC_LOAD_WEAK_DYLIB, LC_REEXPORT_DYLIB, LC_LAZY_LOAD_DYLIB, LC_LOAD_UPWARD_DYLIB:
		return DylibCommand, true
	case LC_ID_DYLINKER, LC_LOAD_DYLINKER, LC_DYLD_ENVIRONMENT:
		return DylinkerCommand, true
	case LC_PREBOUND_DYLIB:
		return PreboundDylibCommand, true
	case LC_SUB_FRAMEWORK:
		return SubFrameworkCommand, true
	case LC_SUB_UMBRELLA:
		return SubUmbrellaCommand, true
	case LC_SUB_CLIENT:
		return SubClientCommand, true
	case LC_SUB_LIBRARY:
		return SubLibraryCommand, true
	case LC_RPATH:
		return RpathCommand, true
	case LC_DYLD_INFO, LC_DYLD_INFO_ONLY:
		return DyldInfoCommand, true
	case LC_SYMTAB:
		return SymtabCommand, true
	case LC_DYSYMTAB:
		return DysymtabCommand, true
	case LC_CODE_SIGNATURE, LC_SEGMENT_SPLIT_INFO, LC_FUNCTION_STARTS, LC_DATA_IN_CODE,
		LC_DYLIB_CODE_SIGN_DRS, LC_LINKER_OPTIMIZATION_HINT, LC_DYLD_EXPORTS_TRIE, LC_DYLD_CHAINED_FIXUPS:
		return LinkeditDataCommand, true
	case LC_MAIN:
		return EntryPointCommand, true
	case LC_UUID:
		return UUIDCommand, true
	case LC_VERSION_MIN_MACOSX, LC_VERSION_MIN_IPHONEOS, LC_VERSION_MIN_TVOS, LC_VERSION_MIN_WATCHOS:
		return VersionMinCommand, true
	case LC_SOURCE_VERSION:
		return SourceVersionCommand, true
	case LC_BUILD_VERSION:
		return BuildVersionCommand, true
	case LC_TWOLEVEL_HINTS:
		return TwolevelHintsCommand, true
	case LC_PREBIND_CKSUM:
		return PrebindCksumCommand, true
	case LC_LINKER_OPTION:
		return LinkerOptionCommand, true
	case LC_THREAD, LC_UNIXTHREAD:
		return ThreadCommand, true
	}
	return nil, false
}
