package types

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appsworld/go-machview/pkg/record"
)

func TestMachHeader64(t *testing.T) {
	b, err := MachHeader64.Encode(binary.LittleEndian, record.V{
		"magic": Magic64, "cputype": CPUArm64, "cpusubtype": CPUSubtypeArm64E | 0x80000000,
		"filetype": MH_EXECUTE, "ncmds": 18, "sizeofcmds": 0x700, "flags": NoUndefs | DyldLink | TwoLevel | PIE,
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := MachHeader64.DecodeWith(b, record.NewContext(binary.LittleEndian))
	if err != nil {
		t.Fatal(err)
	}

	got := FileHeaderFromRecord(r)
	want := FileHeader{
		Magic: Magic64, CPU: CPUArm64, SubCPU: CPUSubtypeArm64E | 0x80000000, Type: MH_EXECUTE,
		NCommands: 18, SizeCommands: 0x700, Flags: NoUndefs | DyldLink | TwoLevel | PIE,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FileHeaderFromRecord() mismatch (-want +got):\n%s", diff)
	}

	for field, want := range map[string]string{
		"magic":      "MH_MAGIC64",
		"cputype":    "CPU_TYPE_ARM64",
		"cpusubtype": "CPU_SUBTYPE_ARM64E",
		"filetype":   "MH_EXECUTE",
		"flags":      "MH_NOUNDEFS,MH_DYLDLINK,MH_TWOLEVEL,MH_PIE",
	} {
		if got := r.Display(field); got != want {
			t.Errorf("Display(%s) = %q, want %q", field, got, want)
		}
	}
	if got.Flags.Flags() != "NOUNDEFS, DYLDLINK, TWOLEVEL, PIE" {
		t.Errorf("Flags() = %q", got.Flags.Flags())
	}
	if caps := got.SubCPU.Caps(got.CPU); caps != "caps: PAC00" {
		t.Errorf("Caps() = %q", caps)
	}
}

func TestMachHeaderBadMagic(t *testing.T) {
	b := make([]byte, MachHeader.Size())
	binary.LittleEndian.PutUint32(b, uint32(Magic64))
	_, err := MachHeader.DecodeWith(b, record.NewContext(binary.LittleEndian))
	var ferr *record.InvalidFieldValueError
	if !errors.As(err, &ferr) || ferr.Field != "magic" {
		t.Errorf("Decode error = %v, want invalid magic", err)
	}
}

func TestMachHeaderBadSubtype(t *testing.T) {
	b, err := MachHeader64.Encode(binary.LittleEndian, record.V{
		"magic": Magic64, "cputype": CPUAmd64, "cpusubtype": 0x42, "filetype": MH_DYLIB,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = MachHeader64.DecodeWith(b, record.NewContext(binary.LittleEndian))
	var ferr *record.InvalidFieldValueError
	if !errors.As(err, &ferr) || ferr.Field != "cpusubtype" {
		t.Errorf("Decode error = %v, want invalid cpusubtype", err)
	}
}

func TestMachHeaderUntabledCPU(t *testing.T) {
	b, err := MachHeader.Encode(binary.BigEndian, record.V{
		"magic": Magic32, "cputype": CPUPpc, "filetype": MH_OBJECT,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = MachHeader.DecodeWith(b, record.NewContext(binary.BigEndian))
	var ferr *record.InvalidFieldValueError
	if !errors.As(err, &ferr) || ferr.Field != "cpusubtype" {
		t.Errorf("Decode error = %v, want invalid cpusubtype", err)
	}
}

func TestFatHeader(t *testing.T) {
	b := []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 2}
	r, err := FatHeader.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if r.Uint32("nfat_arch") != 2 || r.Display("magic") != "MAGIC" {
		t.Errorf("fat header = %s", r)
	}

	_, err = FatHeader.Decode(b[:6])
	var serr *record.SizeMismatchError
	if !errors.As(err, &serr) || serr.Expected != 8 || serr.Actual != 6 {
		t.Errorf("short fat header error = %v", err)
	}
}

func TestFatArch(t *testing.T) {
	b, err := FatArch.Encode(nil, record.V{
		"cputype": CPUAmd64, "cpusubtype": CPUSubtypeX86_64H, "offset": 0x4000, "size": 0x8000, "align": 14,
	})
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != 0x01 || b[3] != 0x07 {
		t.Errorf("fat_arch is not big endian: % x", b[:4])
	}
	r, err := FatArch.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	want := FatArchHeader{CPU: CPUAmd64, SubCPU: CPUSubtypeX86_64H, Offset: 0x4000, Size: 0x8000, Align: 14}
	if diff := cmp.Diff(want, FatArchFromRecord(r)); diff != "" {
		t.Errorf("FatArchFromRecord() mismatch (-want +got):\n%s", diff)
	}
	if got := want.SubCPU.String(want.CPU); got != "x86_64 (Haswell)" {
		t.Errorf("SubCPU.String() = %q", got)
	}
}

func TestCPUSubtype(t *testing.T) {
	tests := []struct {
		cpu  CPU
		st   CPUSubtype
		want string
	}{
		{CPU386, CPUSubtypeX86All, "x86"},
		{CPUAmd64, CPUSubtypeX8664All | CpuSubtypeLib64, "x86_64"},
		{CPUArm, CPUSubtypeArmV7K, "ARMv7k"},
		{CPUArm64, CPUSubtypeArm64E, "ARM64e (ARMv8.3)"},
		{CPUArm6432, CPUSubtypeArm64V8, "ARM64 (ARMv8)"},
		{CPUPpc, 0, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.st.String(tt.cpu); got != tt.want {
			t.Errorf("CPUSubtype(%#x).String(%s) = %q, want %q", uint32(tt.st), tt.cpu, got, tt.want)
		}
	}
	if _, ok := SubtypeTable(CPUPpc); ok {
		t.Error("ppc has a subtype table")
	}
}

func TestSegmentCommand(t *testing.T) {
	b, err := SegmentCommand64.Encode(binary.LittleEndian, record.V{
		"cmd": LC_SEGMENT_64, "cmdsize": 72, "segname": "__TEXT", "vmaddr": 0x100000000,
		"vmsize": 0x4000, "filesize": 0x4000, "maxprot": 5, "initprot": 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := SegmentCommand64.DecodeWith(b, record.NewContext(binary.LittleEndian))
	if err != nil {
		t.Fatal(err)
	}
	for field, want := range map[string]string{
		"cmd":      "LC_SEGMENT_64",
		"segname":  "__TEXT",
		"vmaddr":   "0x100000000",
		"initprot": "r-x",
	} {
		if got := r.Display(field); got != want {
			t.Errorf("Display(%s) = %q, want %q", field, got, want)
		}
	}
	if r.Str("segname") != "__TEXT" {
		t.Errorf("segname = %q", r.Str("segname"))
	}

	// the segment record rejects the opcode of the other width
	binary.LittleEndian.PutUint32(b, uint32(LC_SEGMENT))
	if _, err := SegmentCommand64.DecodeWith(b, record.NewContext(binary.LittleEndian)); err == nil {
		t.Error("segment_command_64 decoded LC_SEGMENT")
	}
}

func TestSymtabCommands(t *testing.T) {
	ctx := record.NewContext(binary.BigEndian)
	b, err := SymtabCommand.Encode(binary.BigEndian, record.V{
		"cmd": LC_SYMTAB, "cmdsize": 24, "symoff": 0x1000, "nsyms": 3, "stroff": 0x1030, "strsize": 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := SymtabCommand.DecodeWith(b, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.Uint("symoff") != 0x1000 || r.Uint("nsyms") != 3 || r.Uint("stroff") != 0x1030 || r.Uint("strsize") != 16 {
		t.Errorf("symtab = %s", r)
	}

	if DysymtabCommand.Size() != 80 {
		t.Errorf("dysymtab_command size = %d", DysymtabCommand.Size())
	}
	b, err = DysymtabCommand.Encode(binary.BigEndian, record.V{
		"cmd": LC_DYSYMTAB, "cmdsize": 80, "indirectsymoff": 0x2000, "nindirectsyms": 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err = DysymtabCommand.DecodeWith(b, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.Uint("indirectsymoff") != 0x2000 || r.Uint("nindirectsyms") != 4 {
		t.Errorf("dysymtab = %s", r)
	}
}

func TestCommandLayout(t *testing.T) {
	tests := []struct {
		cmd    LoadCmd
		width  int
		layout *record.Layout
		ok     bool
	}{
		{LC_SEGMENT, 32, SegmentCommand, true},
		{LC_SEGMENT, 64, SegmentCommand, false},
		{LC_SEGMENT_64, 64, SegmentCommand64, true},
		{LC_ROUTINES_64, 32, RoutinesCommand64, false},
		{LC_ENCRYPTION_INFO_64, 64, EncryptionInfoCommand64, true},
		{LC_REEXPORT_DYLIB, 64, DylibCommand, true},
		{LC_DYLD_EXPORTS_TRIE, 64, LinkeditDataCommand, true},
		{LC_UNIXTHREAD, 32, ThreadCommand, true},
		{LoadCmd(0x99), 64, nil, false},
	}
	for _, tt := range tests {
		l, ok := CommandLayout(tt.cmd, tt.width)
		if l != tt.layout || ok != tt.ok {
			t.Errorf("CommandLayout(%s, %d) = %v, %v", tt.cmd, tt.width, l, ok)
		}
	}
	if LC_REEXPORT_DYLIB.String() != "LC_REEXPORT_DYLIB" {
		t.Errorf("String() = %q", LC_REEXPORT_DYLIB.String())
	}
	if LoadCmd(0x99).String() != "0x99" {
		t.Errorf("String() = %q", LoadCmd(0x99).String())
	}
}

func TestNType(t *testing.T) {
	tests := []struct {
		t     NType
		str   string
		valid bool
	}{
		{N_SECT | N_EXT, "N_SECT,N_EXT", true},
		{N_UNDF | N_PEXT | N_EXT, "N_UNDF,N_PEXT,N_EXT", true},
		{N_ABS, "N_ABS", true},
		{0x24, "N_FUN", true},
		{0x32, "N_AST", true},
		{0x06, "0x6", false},
		{0xe6, "0xe6", false},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.str {
			t.Errorf("NType(%#x).String() = %q, want %q", uint8(tt.t), got, tt.str)
		}
		if got := tt.t.Valid(); got != tt.valid {
			t.Errorf("NType(%#x).Valid() = %v", uint8(tt.t), got)
		}
	}
	if (N_SECT | N_EXT).IsStab() || !NType(0x24).IsStab() {
		t.Error("IsStab")
	}
	if NType(0x24 | N_EXT).IsExternal() {
		t.Error("a stab is never external")
	}
}

func TestNDesc(t *testing.T) {
	d := REFERENCE_FLAG_UNDEFINED_LAZY | N_WEAK_REF
	if got := d.String(); got != "REFERENCE_FLAG_UNDEFINED_LAZY,N_WEAK_REF" {
		t.Errorf("String() = %q", got)
	}
	if !d.Valid() {
		t.Error("Valid() = false")
	}
}

func TestNlistLayout(t *testing.T) {
	if NlistLayout(32) != Nlist || NlistLayout(64) != Nlist64 {
		t.Error("NlistLayout picked the wrong width")
	}
	if Nlist.Size() != 12 || Nlist64.Size() != 16 {
		t.Errorf("sizes %d %d", Nlist.Size(), Nlist64.Size())
	}

	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b, 7)
	b[4] = byte(N_SECT | N_EXT)
	b[5] = 1
	binary.LittleEndian.PutUint64(b[8:], 0x100000f50)
	ctx := record.NewContext(binary.LittleEndian)
	r, err := Nlist64.DecodeWith(b, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.Name() != "nlist64[0]" || r.Display("n_value") != "0x100000f50" || r.Display("n_type") != "N_SECT,N_EXT" {
		t.Errorf("nlist64 = %s", r)
	}
	if r, _ = Nlist64.DecodeWith(b, ctx); r.Index() != 1 {
		t.Errorf("second nlist64 index = %d", r.Index())
	}

	b[4] = 0x06
	var ferr *record.InvalidFieldValueError
	if _, err := Nlist64.DecodeWith(b, ctx); !errors.As(err, &ferr) || ferr.Field != "n_type" {
		t.Errorf("invalid n_type error = %v", err)
	}
}

func TestDataInCode(t *testing.T) {
	b := []byte{
		0x10, 0, 0, 0, 4, 0, 2, 0,
		0x40, 0, 0, 0, 8, 0, 5, 0,
		0xff, 0xff,
	}
	want := []DataInCodeEntry{
		{Offset: 0x10, Length: 4, Kind: KindJumpTable8},
		{Offset: 0x40, Length: 8, Kind: 5},
	}
	if diff := cmp.Diff(want, ParseDataInCode(b, binary.LittleEndian)); diff != "" {
		t.Errorf("ParseDataInCode() mismatch (-want +got):\n%s", diff)
	}
}

func TestVersion(t *testing.T) {
	if got := Version(0x000a0f06).String(); got != "10.15.6" {
		t.Errorf("Version = %q", got)
	}
}

func TestExportFlag(t *testing.T) {
	tests := []struct {
		f    ExportFlag
		want string
	}{
		{EXPORT_SYMBOL_FLAGS_KIND_REGULAR, "regular"},
		{EXPORT_SYMBOL_FLAGS_WEAK_DEFINITION, "regular|weak_definition"},
		{EXPORT_SYMBOL_FLAGS_KIND_THREAD_LOCAL | EXPORT_SYMBOL_FLAGS_REEXPORT, "thread_local|reexport"},
		{EXPORT_SYMBOL_FLAGS_KIND_ABSOLUTE | EXPORT_SYMBOL_FLAGS_STUB_AND_RESOLVER, "absolute|stub_and_resolver"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("ExportFlag(%#x).String() = %q, want %q", int(tt.f), got, tt.want)
		}
	}
}
