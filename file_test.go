package macho

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/types"
)

// image assembles a synthetic Mach-O or fat binary.
type image struct {
	t   *testing.T
	o   binary.ByteOrder
	buf []byte
}

func newImage(t *testing.T, o binary.ByteOrder, size int) *image {
	return &image{t: t, o: o, buf: make([]byte, size)}
}

// put encodes a record at off.
func (im *image) put(off int, l *record.Layout, v record.V) {
	im.t.Helper()
	b, err := l.Encode(im.o, v)
	if err != nil {
		im.t.Fatalf("encode %s: %v", l.Name(), err)
	}
	copy(im.buf[off:], b)
}

func (im *image) bytes(off int, b []byte) { copy(im.buf[off:], b) }

var testUUID = [16]byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

const (
	textVMAddr = 0x100000000
	libSystem  = "/usr/lib/libSystem.B.dylib"
)

// exec64 is a little endian x86_64 executable:
//
//	0x000 mach_header_64, 7 load commands
//	0x800 __TEXT,__text
//	0x810 __TEXT,__cstring "hi", "", "world"
//	0x1000 __LINKEDIT: 3 nlist_64, string table, unused tail
func exec64(t *testing.T) []byte {
	im := newImage(t, binary.LittleEndian, 0x1100)
	im.put(0, types.MachHeader64, record.V{
		"magic": types.Magic64, "cputype": types.CPUAmd64, "cpusubtype": 3,
		"filetype": types.MH_EXECUTE, "ncmds": 7, "sizeofcmds": 536 - 32,
		"flags": types.NoUndefs | types.DyldLink | types.TwoLevel | types.PIE,
	})
	off := 32
	im.put(off, types.SegmentCommand64, record.V{
		"cmd": types.LC_SEGMENT_64, "cmdsize": 72, "segname": "__PAGEZERO", "vmsize": textVMAddr,
	})
	off += 72
	im.put(off, types.SegmentCommand64, record.V{
		"cmd": types.LC_SEGMENT_64, "cmdsize": 72 + 2*80, "segname": "__TEXT",
		"vmaddr": textVMAddr, "vmsize": 0x1000, "fileoff": 0, "filesize": 0x1000,
		"maxprot": 5, "initprot": 5, "nsects": 2,
	})
	im.put(off+72, types.Section64, record.V{
		"sectname": "__text", "segname": "__TEXT", "addr": textVMAddr + 0x800, "size": 0x10, "offset": 0x800,
		"flags": 0x80000400,
	})
	im.put(off+72+80, types.Section64, record.V{
		"sectname": "__cstring", "segname": "__TEXT", "addr": textVMAddr + 0x810, "size": 10, "offset": 0x810,
		"flags": types.S_CSTRING_LITERALS,
	})
	off += 72 + 2*80
	im.put(off, types.SegmentCommand64, record.V{
		"cmd": types.LC_SEGMENT_64, "cmdsize": 72, "segname": "__LINKEDIT",
		"vmaddr": textVMAddr + 0x1000, "vmsize": 0x1000, "fileoff": 0x1000, "filesize": 0x100,
		"maxprot": 1, "initprot": 1,
	})
	off += 72
	im.put(off, types.DylibCommand, record.V{
		"cmd": types.LC_LOAD_DYLIB, "cmdsize": 56, "dylib_name_offset": 24,
		"dylib_current_version": 0x050c0000, "dylib_compatibility_version": 0x10000,
	})
	im.bytes(off+24, []byte(libSystem))
	off += 56
	im.put(off, types.SymtabCommand, record.V{
		"cmd": types.LC_SYMTAB, "cmdsize": 24, "symoff": 0x1000, "nsyms": 3, "stroff": 0x1030, "strsize": 0x20,
	})
	off += 24
	im.put(off, types.UUIDCommand, record.V{"cmd": types.LC_UUID, "cmdsize": 24, "uuid": testUUID})
	off += 24
	im.put(off, types.EntryPointCommand, record.V{"cmd": types.LC_MAIN, "cmdsize": 24, "entryoff": 0x800})
	off += 24
	if off != 536 {
		t.Fatalf("load commands end at %d", off)
	}

	im.bytes(0x800, []byte{0x55, 0x48, 0x89, 0xe5, 0xc3})
	im.bytes(0x810, []byte("hi\x00\x00world\x00"))

	im.put(0x1000, types.Nlist64, record.V{"n_strx": 1, "n_type": types.N_SECT | types.N_EXT, "n_sect": 1, "n_value": textVMAddr + 0x800})
	im.put(0x1010, types.Nlist64, record.V{"n_strx": 7, "n_type": types.N_UNDF | types.N_EXT, "n_desc": 0x100})
	im.put(0x1020, types.Nlist64, record.V{"n_type": types.N_SECT, "n_sect": 2, "n_value": textVMAddr + 0x810})
	im.bytes(0x1030, []byte("\x00_main\x00_printf\x00"))
	return im.buf
}

func mustParse(t *testing.T, buf []byte, config ...Config) *File {
	t.Helper()
	f, err := Parse(buf, config...)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.Root().DoesPartition() {
		t.Errorf("tree does not partition:\n%s", dumpTree(f.Root()))
	}
	return f
}

func dumpTree(n byterange.Node) string {
	var sb strings.Builder
	n.Iterate(func(c byterange.Node, start, stop int64, depth int) any {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(c.String())
		sb.WriteString("\n")
		return nil
	})
	return sb.String()
}

// leaves returns the payload of every leaf of n.
func leaves(n byterange.Node) []any {
	return n.IterateLeaves(func(c byterange.Node, _, _ int64, _ int) any { return c.Data() })
}

func TestParseExec64(t *testing.T) {
	f := mustParse(t, exec64(t))
	if f.Fat != nil || f.MachO == nil {
		t.Fatalf("Parse returned %+v", f)
	}
	m := f.MachO
	if m.Width() != 64 || m.ByteOrder() != binary.LittleEndian {
		t.Errorf("width %d order %v", m.Width(), m.ByteOrder())
	}
	if f.Root().Data() != m {
		t.Error("root payload is not the Mach-O")
	}

	hdr := m.FileHeader()
	if hdr.CPU != types.CPUAmd64 || hdr.Type != types.MH_EXECUTE || hdr.NCommands != 7 {
		t.Errorf("FileHeader() = %+v", hdr)
	}
	if got := m.Header().Display("flags"); got != "MH_NOUNDEFS,MH_DYLDLINK,MH_TWOLEVEL,MH_PIE" {
		t.Errorf("flags = %q", got)
	}
	if got := m.Name(); got != "Mach-O: CPU_TYPE_X86_64" {
		t.Errorf("Name() = %q", got)
	}

	var cmds []types.LoadCmd
	for _, l := range m.LoadCommands() {
		cmds = append(cmds, l.Cmd)
		if !l.Known() {
			t.Errorf("%s decoded as a generic load command", l.Cmd)
		}
	}
	want := []types.LoadCmd{
		types.LC_SEGMENT_64, types.LC_SEGMENT_64, types.LC_SEGMENT_64, types.LC_LOAD_DYLIB,
		types.LC_SYMTAB, types.LC_UUID, types.LC_MAIN,
	}
	if diff := cmp.Diff(want, cmds); diff != "" {
		t.Errorf("load commands mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{libSystem}, m.Libraries()); diff != "" {
		t.Errorf("Libraries() mismatch (-want +got):\n%s", diff)
	}
	dylib := m.Command(types.LC_LOAD_DYLIB)
	if _, ok := dylib.Node.Data().(LoadCommandBlock); !ok {
		t.Errorf("dylib command node = %v", dylib.Node.Data())
	}
	if got := dylib.Record.Display("dylib_current_version"); got != "1292.0.0" {
		t.Errorf("dylib_current_version = %q", got)
	}

	if u, ok := m.UUID(); !ok || u != testUUID {
		t.Errorf("UUID() = %v, %v", u, ok)
	}
	if ep, ok := m.EntryPoint(); !ok || ep != textVMAddr+0x800 {
		t.Errorf("EntryPoint() = %#x, %v", ep, ok)
	}
	if m.BaseAddress() != textVMAddr {
		t.Errorf("BaseAddress() = %#x", m.BaseAddress())
	}
}

func TestSegmentsAndSections(t *testing.T) {
	m := mustParse(t, exec64(t)).MachO

	var names []string
	for _, s := range m.Segments() {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"__PAGEZERO", "__TEXT", "__LINKEDIT"}, names); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
	if !m.Segment("__PAGEZERO").Node.IsZero() {
		t.Error("__PAGEZERO has a file range")
	}
	text := m.Segment("__TEXT")
	if blk, ok := text.Node.Data().(SegmentBlock); !ok || blk.Name != "__TEXT" {
		t.Errorf("__TEXT payload = %v", text.Node.Data())
	}
	if m.Segment("__DATA") != nil {
		t.Error("found a __DATA segment")
	}

	code := m.Section("__TEXT", "__text")
	if code == nil || code.Index() != 1 {
		t.Fatalf("__text = %v", code)
	}
	if blk := code.Node.Data().(SectionBlock); blk.Kind != TextSection || blk.Encrypted {
		t.Errorf("__text payload = %v", blk)
	}
	if p, _ := code.Node.Parent(); p != text.Node {
		t.Error("__text is not beneath __TEXT")
	}
	b, err := code.Data()
	if err != nil || b[0] != 0x55 {
		t.Errorf("__text data = %x, %v", b, err)
	}

	cstr := m.Section("__TEXT", "__cstring")
	if cstr.Index() != 2 {
		t.Errorf("__cstring index = %d", cstr.Index())
	}
	if got := cstr.Node.Data().(SectionBlock).String(); got != "CstringSection: 3 strings" {
		t.Errorf("__cstring payload = %q", got)
	}

	ss := m.StringSections()
	if len(ss) != 1 {
		t.Fatalf("StringSections() = %v", ss)
	}
	want := []CString{{Index: 0, Value: "hi"}, {Index: 1, Value: ""}, {Index: 2, Value: "world"}}
	if diff := cmp.Diff(want, ss[0].Strings); diff != "" {
		t.Errorf("strings mismatch (-want +got):\n%s", diff)
	}
	if ss[0].Desc != "__TEXT, __cstring" || ss[0].Offset != 0x810 {
		t.Errorf("string section = %q at %#x", ss[0].Desc, ss[0].Offset)
	}
}

func TestPadding(t *testing.T) {
	f := mustParse(t, exec64(t))
	var reasons []string
	for _, d := range leaves(f.Root()) {
		if p, ok := d.(Padding); ok {
			reasons = append(reasons, p.Reason)
		}
	}
	want := []string{
		"alignment",           // after the dylib name
		"unused segment data", // load commands to __text
		"unused segment data", // end of __TEXT
		"unused segment data", // end of __LINKEDIT
	}
	if diff := cmp.Diff(want, reasons); diff != "" {
		t.Errorf("padding mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkedit(t *testing.T) {
	m := mustParse(t, exec64(t)).MachO
	le, ok := m.LinkeditNode()
	if !ok {
		t.Fatal("no __LINKEDIT node")
	}
	var kinds []string
	for _, c := range le.Children() {
		switch d := c.Data().(type) {
		case SymbolTableBlock:
			kinds = append(kinds, d.String())
		case StringTableBlock:
			kinds = append(kinds, d.String())
		case Padding:
			kinds = append(kinds, d.String())
		}
	}
	want := []string{"SymbolTable: 3 symbols", "SymbolTable: 2 strings", "padding: unused segment data"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("__LINKEDIT mismatch (-want +got):\n%s", diff)
	}
}

func TestSymbols(t *testing.T) {
	m := mustParse(t, exec64(t)).MachO
	st := m.Symbols()
	if st == nil || st.Len() != 3 {
		t.Fatalf("Symbols() = %v", st)
	}

	main := st.At(0)
	if main.Name != "_main" || !main.Type.IsExternal() || main.Sect != 1 || main.Value != textVMAddr+0x800 {
		t.Errorf("At(0) = %+v", main)
	}
	if got := st.At(1).Type.String(); got != "N_UNDF,N_EXT" {
		t.Errorf("At(1).Type = %q", got)
	}
	if s := st.At(2); s.HasName || s.Name != "" {
		t.Errorf("entry with n_strx 0 has name %q", s.Name)
	}
	if name, ok := st.Lookup(7); !ok || name != "_printf" {
		t.Errorf("Lookup(7) = %q, %v", name, ok)
	}
	if _, ok := st.Lookup(3); ok {
		t.Error("Lookup of an unreferenced offset succeeded")
	}
	if r := st.Record(1); r.Name() != "nlist64[1]" || r.Display("n_type") != "N_UNDF,N_EXT" {
		t.Errorf("Record(1) = %s", r)
	}

	si := NewSymbolInfo(m)
	if si.NumSymbols() != 3 || si.NumMatched() != 3 {
		t.Errorf("NumSymbols %d, NumMatched %d", si.NumSymbols(), si.NumMatched())
	}
	if n := si.Filter("_"); n != 2 {
		t.Errorf("Filter(_) = %d", n)
	}
	sym, where, err := si.Symbol(0)
	if err != nil || sym.Name != "_main" || where != "__TEXT, __text" {
		t.Errorf("Symbol(0) = %v, %q, %v", sym, where, err)
	}
	sym, where, err = si.Symbol(1)
	if err != nil || sym.Name != "_printf" || where != "" {
		t.Errorf("Symbol(1) = %v, %q, %v", sym, where, err)
	}
	if _, _, err := si.Symbol(2); err == nil {
		t.Error("Symbol past the matches succeeded")
	}
}

func TestStringInfo(t *testing.T) {
	m := mustParse(t, exec64(t)).MachO
	si := NewStringInfo(m)
	if si.NumStrings() != 3 || si.NumMatched() != 3 {
		t.Errorf("NumStrings %d, NumMatched %d", si.NumStrings(), si.NumMatched())
	}
	if n := si.Filter("orl"); n != 1 {
		t.Fatalf("Filter(orl) = %d", n)
	}
	cs, desc, err := si.Item(0)
	if err != nil || cs.Value != "world" || desc != "__TEXT, __cstring" {
		t.Errorf("Item(0) = %v, %q, %v", cs, desc, err)
	}
	if got := cs.String(); got != `cstring[2]: "world"` {
		t.Errorf("String() = %s", got)
	}
}

// obj32 is a big endian 32-bit PowerPC object with one __DATA,__data section.
func obj32(t *testing.T) []byte {
	im := newImage(t, binary.BigEndian, 160)
	im.put(0, types.MachHeader, record.V{
		"magic": types.Magic32, "cputype": types.CPU386, "cpusubtype": 3, "filetype": types.MH_OBJECT,
		"ncmds": 1, "sizeofcmds": 124,
	})
	im.put(28, types.SegmentCommand, record.V{
		"cmd": types.LC_SEGMENT, "cmdsize": 124, "vmsize": 8, "fileoff": 152, "filesize": 8,
		"maxprot": 7, "initprot": 7, "nsects": 1,
	})
	im.put(28+56, types.Section, record.V{
		"sectname": "__data", "segname": "__DATA", "size": 8, "offset": 152,
	})
	im.bytes(152, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	return im.buf
}

func TestParseObj32BigEndian(t *testing.T) {
	m := mustParse(t, obj32(t)).MachO
	if m.Width() != 32 || m.ByteOrder() != binary.BigEndian {
		t.Fatalf("width %d order %v", m.Width(), m.ByteOrder())
	}
	if m.FileHeader().CPU != types.CPU386 {
		t.Errorf("cpu = %v", m.FileHeader().CPU)
	}
	s := m.Section("__DATA", "__data")
	if s == nil || s.Index() != 1 {
		t.Fatalf("__data = %v", s)
	}
	if blk := s.Node.Data().(SectionBlock); blk.Kind != DataSection {
		t.Errorf("__data payload = %v", blk)
	}
	if got := m.LoadCommands()[0].Node.Data(); got != (LoadCommandBlock{Cmd: types.LC_SEGMENT}) {
		t.Errorf("segment command payload = %v", got)
	}

	// forcing the wrong byte order finds no header
	if _, err := Parse(obj32(t), Config{Order: binary.LittleEndian}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Parse with the wrong order: %v", err)
	}
}

// thin builds a minimal little endian image with a header and LC_UUID.
func thin(t *testing.T, cpu types.CPU, sub types.CPUSubtype, size int) []byte {
	im := newImage(t, binary.LittleEndian, size)
	im.put(0, types.MachHeader64, record.V{
		"magic": types.Magic64, "cputype": cpu, "cpusubtype": sub, "filetype": types.MH_DYLIB,
		"ncmds": 1, "sizeofcmds": 24,
	})
	im.put(32, types.UUIDCommand, record.V{"cmd": types.LC_UUID, "cmdsize": 24, "uuid": testUUID})
	return im.buf
}

func TestParseFat(t *testing.T) {
	im := newImage(t, binary.BigEndian, 0x3000)
	im.put(0, types.FatHeader, record.V{"magic": types.MagicFat, "nfat_arch": 2})
	im.put(8, types.FatArch, record.V{"cputype": types.CPUAmd64, "cpusubtype": 3, "offset": 0x1000, "size": 0x100, "align": 12})
	im.put(28, types.FatArch, record.V{"cputype": types.CPUArm64, "offset": 0x2000, "size": 0x100, "align": 12})
	im.bytes(0x1000, thin(t, types.CPUAmd64, types.CPUSubtypeX8664All, 0x100))
	im.bytes(0x2000, thin(t, types.CPUArm64, types.CPUSubtypeArm64All, 0x100))

	for _, conc := range []int{0, 2} {
		f := mustParse(t, im.buf, Config{Concurrency: conc})
		if f.Fat == nil || len(f.Fat.Arches) != 2 {
			t.Fatalf("Parse returned %+v", f)
		}
		ms := f.MachOs()
		if len(ms) != 2 || ms[0].FileHeader().CPU != types.CPUAmd64 || ms[1].FileHeader().CPU != types.CPUArm64 {
			t.Errorf("MachOs() = %v", ms)
		}
		for _, a := range f.Fat.Arches {
			if a.Node.Data() != a.MachO {
				t.Errorf("%s slice payload = %v", a.CPU, a.Node.Data())
			}
			if u, ok := a.UUID(); !ok || u != testUUID {
				t.Errorf("%s UUID = %v", a.CPU, u)
			}
			if a.Node.AbsStart() != int64(a.Offset) {
				t.Errorf("%s slice at %#x", a.CPU, a.Node.AbsStart())
			}
		}
		for _, d := range f.Root().Children() {
			if p, ok := d.Data().(Padding); ok && p.Unexpected {
				t.Errorf("unexpected padding between slices: %v", p)
			}
		}
		if got := f.Describe(); !strings.HasPrefix(got, "Fat Mach-O: 2 arches") {
			t.Errorf("Describe() = %q", got)
		}
	}
}

func TestParseFatBadSlice(t *testing.T) {
	im := newImage(t, binary.BigEndian, 0x100)
	im.put(0, types.FatHeader, record.V{"magic": types.MagicFat, "nfat_arch": 1})
	im.put(8, types.FatArch, record.V{"cputype": types.CPUAmd64, "cpusubtype": 3, "offset": 0x80, "size": 0x200})
	if _, err := Parse(im.buf); !errors.Is(err, byterange.ErrOutOfBounds) {
		t.Errorf("slice past the end of the file: %v", err)
	}
}

func TestParseUntabledCPU(t *testing.T) {
	buf := obj32(t)
	binary.BigEndian.PutUint32(buf[4:], uint32(types.CPUPpc))
	binary.BigEndian.PutUint32(buf[8:], 0)
	_, err := Parse(buf)
	var ferr *record.InvalidFieldValueError
	if !errors.As(err, &ferr) || ferr.Field != "cpusubtype" {
		t.Errorf("Parse of a powerpc header: %v", err)
	}
}

func TestOversizedSection(t *testing.T) {
	buf := exec64(t)
	// __text size
	binary.LittleEndian.PutUint64(buf[32+72+72+40:], math.MaxInt64-8)
	_, err := Parse(buf)
	if !errors.Is(err, byterange.ErrOutOfBounds) {
		t.Fatalf("Parse with an oversized section: %v", err)
	}
	var ferr *FormatError
	if !errors.As(err, &ferr) || !strings.Contains(ferr.Error(), "bad section range") {
		t.Errorf("error = %v, want a bad section range", err)
	}
}

func TestOversizedSegment(t *testing.T) {
	buf := exec64(t)
	// __LINKEDIT filesize
	binary.LittleEndian.PutUint64(buf[32+72+232+48:], math.MaxInt64-0x800)
	if _, err := Parse(buf); !errors.Is(err, byterange.ErrOutOfBounds) {
		t.Errorf("Parse with an oversized segment: %v", err)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	for _, buf := range [][]byte{nil, []byte("\x7fELF"), []byte("not a mach-o at all")} {
		if _, err := Parse(buf); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Parse(%q) error = %v, want ErrUnsupportedFormat", buf, err)
		}
	}
}

// withCommand builds a 64-bit image whose only load command is raw.
func withCommand(t *testing.T, raw []byte) []byte {
	im := newImage(t, binary.LittleEndian, 32+len(raw)+16)
	im.put(0, types.MachHeader64, record.V{
		"magic": types.Magic64, "cputype": types.CPUArm64, "filetype": types.MH_EXECUTE,
		"ncmds": 1, "sizeofcmds": len(raw),
	})
	im.bytes(32, raw)
	return im.buf
}

func TestNotImplemented(t *testing.T) {
	raw, err := types.PrebindCksumCommand.Encode(binary.LittleEndian, record.V{"cmd": types.LC_PREBIND_CKSUM, "cmdsize": 12})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(withCommand(t, raw)); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("LC_PREBIND_CKSUM: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	raw := make([]byte, 16)
	binary.LittleEndian.PutUint32(raw, 0x99)
	binary.LittleEndian.PutUint32(raw[4:], 16)
	m := mustParse(t, withCommand(t, raw)).MachO

	lc := m.LoadCommands()[0]
	if lc.Known() || lc.Record.Layout() != types.LoadCommand {
		t.Errorf("unknown command decoded as %s", lc.Record.Layout().Name())
	}
	var found bool
	for _, d := range leaves(m.Node()) {
		if p, ok := d.(Padding); ok && p.Reason == "unknown LC" && p.Unexpected {
			found = true
		}
	}
	if !found {
		t.Errorf("no unknown LC padding:\n%s", dumpTree(m.Node()))
	}
}

func TestBadCommandSize(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw, uint32(types.LC_UUID))
	binary.LittleEndian.PutUint32(raw[4:], 4)
	_, err := Parse(withCommand(t, raw))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("cmdsize 4: %v", err)
	}
	if fe.Offset() != 32 {
		t.Errorf("error at %#x", fe.Offset())
	}
}

func TestUnterminatedString(t *testing.T) {
	im := newImage(t, binary.LittleEndian, 16)
	im.put(0, types.DylinkerCommand, record.V{"cmd": types.LC_LOAD_DYLINKER, "cmdsize": 16, "name_offset": 12})
	copy(im.buf[12:], "dyld")
	var fe *FormatError
	if _, err := Parse(withCommand(t, im.buf)); !errors.As(err, &fe) {
		t.Errorf("unterminated lc_str: %v", err)
	}
}

// encrypted64 has an encrypted range over both __TEXT sections.
func encrypted64(t *testing.T, cryptid uint32) []byte {
	im := newImage(t, binary.LittleEndian, 0x800)
	im.put(0, types.MachHeader64, record.V{
		"magic": types.Magic64, "cputype": types.CPUArm64, "filetype": types.MH_EXECUTE,
		"ncmds": 2, "sizeofcmds": 232 + 24,
	})
	im.put(32, types.SegmentCommand64, record.V{
		"cmd": types.LC_SEGMENT_64, "cmdsize": 232, "segname": "__TEXT",
		"vmaddr": textVMAddr, "vmsize": 0x800, "filesize": 0x800, "nsects": 2,
	})
	im.put(32+72, types.Section64, record.V{"sectname": "__text", "segname": "__TEXT", "size": 0x100, "offset": 0x400})
	im.put(32+152, types.Section64, record.V{"sectname": "__cstring", "segname": "__TEXT", "size": 0x10, "offset": 0x500})
	im.put(264, types.EncryptionInfoCommand64, record.V{
		"cmd": types.LC_ENCRYPTION_INFO_64, "cmdsize": 24, "cryptoff": 0x400, "cryptsize": 0x200, "cryptid": cryptid,
	})
	copy(im.buf[0x500:], "plain\x00text\x00abcde")
	return im.buf
}

func TestEncrypted(t *testing.T) {
	m := mustParse(t, encrypted64(t, 1)).MachO
	if !m.Encrypted() {
		t.Error("Encrypted() = false")
	}
	if len(m.StringSections()) != 0 {
		t.Errorf("decoded strings of an encrypted section: %v", m.StringSections())
	}
	for _, name := range []string{"__text", "__cstring"} {
		s := m.Section("__TEXT", name)
		blk := s.Node.Data().(SectionBlock)
		if !blk.Encrypted || !strings.HasSuffix(blk.String(), " [ENCRYPTED]") {
			t.Errorf("%s payload = %v", name, blk)
		}
		enc, _ := s.Node.Parent()
		if enc.Data() != (EncryptedBlock{CryptID: 1}) {
			t.Errorf("%s parent = %v", name, enc.Data())
		}
		seg, _ := enc.Parent()
		if seg.Data() != (SegmentBlock{Name: "__TEXT"}) {
			t.Errorf("encrypted block parent = %v", seg.Data())
		}
	}
}

func TestDecrypted(t *testing.T) {
	m := mustParse(t, encrypted64(t, 0)).MachO
	if m.Encrypted() {
		t.Error("Encrypted() = true")
	}
	ss := m.StringSections()
	if len(ss) != 1 || len(ss[0].Strings) != 2 {
		t.Fatalf("StringSections() = %v", ss)
	}
	var unterminated bool
	for _, d := range leaves(m.Section("__TEXT", "__cstring").Node) {
		if p, ok := d.(Padding); ok && p.Reason == "unterminated string" {
			unterminated = true
		}
	}
	if !unterminated {
		t.Error("no padding for the NUL tail of __cstring")
	}
}

func TestSkipExports(t *testing.T) {
	buf := exec64(t)
	f := mustParse(t, buf, Config{SkipExports: true})
	if len(f.MachO.Exports()) != 0 || len(f.MachO.FunctionStarts()) != 0 {
		t.Error("exports decoded with SkipExports")
	}
}
