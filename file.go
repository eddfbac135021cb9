package macho

// High level access to low level data structures.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/pkg/trie"
	"github.com/appsworld/go-machview/types"
)

var (
	// ErrUnsupportedFormat is returned when a buffer starts with neither a
	// Mach-O nor a fat header.
	ErrUnsupportedFormat = errors.New("no recognized header")
	// ErrNotImplemented is returned for load commands that are recognized
	// but not decoded.
	ErrNotImplemented = errors.New("load command not implemented")
)

// FormatError is returned by some operations if the data does
// not have the correct format for an object file.
type FormatError struct {
	off int64
	msg string
	val interface{}
	err error
}

func (e *FormatError) Error() string {
	msg := e.msg
	if e.val != nil {
		msg += fmt.Sprintf(" '%v'", e.val)
	}
	msg += fmt.Sprintf(" in record at byte %#x", e.off)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.err }

// Offset returns the absolute file offset of the bad record.
func (e *FormatError) Offset() int64 { return e.off }

// Config controls a parse.
type Config struct {
	// Concurrency is how many slices of a fat binary are parsed at once.
	// Zero or one parses them in order.
	Concurrency int
	// SkipExports leaves the export trie and function starts undecoded.
	SkipExports bool
	// Order forces the byte order of every Mach-O instead of probing it
	// from the magic.
	Order binary.ByteOrder
	// CodeSignature decodes the superblob and blob headers of
	// LC_CODE_SIGNATURE instead of leaving it one opaque block.
	CodeSignature bool
}

func firstConfig(config []Config) Config {
	if len(config) > 0 {
		return config[0]
	}
	return Config{}
}

// A SegmentDescriptor is a segment command and the sections it declares.
type SegmentDescriptor struct {
	Name     string
	Command  *record.Record
	Sections []*SectionDescriptor
	// Node spans the file range of the segment. It is zero for segments
	// without file contents.
	Node byterange.Node
}

func (s *SegmentDescriptor) FileOffset() uint64 { return s.Command.Uint("fileoff") }
func (s *SegmentDescriptor) FileSize() uint64   { return s.Command.Uint("filesize") }
func (s *SegmentDescriptor) VMAddr() uint64     { return s.Command.Uint("vmaddr") }
func (s *SegmentDescriptor) VMSize() uint64     { return s.Command.Uint("vmsize") }

func (s *SegmentDescriptor) String() string {
	return fmt.Sprintf("%-16s off=%#08x-%#08x addr=%#09x-%#09x nsects=%d",
		s.Name, s.FileOffset(), s.FileOffset()+s.FileSize(), s.VMAddr(), s.VMAddr()+s.VMSize(), len(s.Sections))
}

// A SectionDescriptor is one section header of a segment command.
type SectionDescriptor struct {
	Segment string
	Name    string
	Record  *record.Record
	// Node spans the section's contents. It is zero for sections without
	// file contents.
	Node byterange.Node
}

// Index returns the 1-based section number used by n_sect.
func (s *SectionDescriptor) Index() int     { return s.Record.Index() }
func (s *SectionDescriptor) Offset() uint32 { return s.Record.Uint32("offset") }
func (s *SectionDescriptor) Size() uint64   { return s.Record.Uint("size") }
func (s *SectionDescriptor) Addr() uint64   { return s.Record.Uint("addr") }
func (s *SectionDescriptor) Flags() uint32  { return s.Record.Uint32("flags") }

func (s *SectionDescriptor) Is(segment, section string) bool {
	return s.Segment == segment && s.Name == section
}

func (s *SectionDescriptor) kind() SectionKind {
	switch {
	case s.Is("__TEXT", "__cstring"):
		return CStringSection
	case s.Is("__TEXT", "__objc_methname"):
		return MethNameSection
	case s.Segment == "__TEXT":
		return TextSection
	case s.Segment == "__DATA":
		return DataSection
	}
	return GenericSection
}

// Data returns the section's contents.
func (s *SectionDescriptor) Data() ([]byte, error) {
	if s.Node.IsZero() {
		return nil, errors.Errorf("section %s.%s has no file contents", s.Segment, s.Name)
	}
	return s.Node.All()
}

func (s *SectionDescriptor) String() string {
	return fmt.Sprintf("%s.%s", s.Segment, s.Name)
}

// span is a file range of a Mach-O recorded while scanning load commands
// and decoded once segments are known.
type span struct {
	off, size uint64
}

// A MachO is one parsed Mach-O image, thin or a slice of a fat binary.
type MachO struct {
	node  byterange.Node
	cfg   Config
	ctx   *record.Context
	order binary.ByteOrder
	width int

	header     *record.Record
	loads      []*LoadCommand
	segments   []*SegmentDescriptor
	sections   []*SectionDescriptor
	encryption []*record.Record
	linkedit   byterange.Node

	symtabs    []*SymbolTable
	indirect   []*record.Record
	dataInCode []types.DataInCodeEntry
	threads    []ThreadState
	strsects   []StringSection
	cstrings   int

	exportSpan span
	startsSpan span
	exports    []trie.TrieEntry
	starts     []uint64
	imports    []string
}

// detectMachO reports the layout, byte order and width of the Mach-O header
// b starts with. A non-nil order is the only one tried.
func detectMachO(b []byte, order binary.ByteOrder) (*record.Layout, binary.ByteOrder, int, bool) {
	if len(b) < 4 {
		return nil, nil, 0, false
	}
	orders := []binary.ByteOrder{binary.LittleEndian, binary.BigEndian}
	if order != nil {
		orders = []binary.ByteOrder{order}
	}
	for _, o := range orders {
		switch types.Magic(o.Uint32(b[:4])) {
		case types.Magic32:
			return types.MachHeader, o, 32, true
		case types.Magic64:
			return types.MachHeader64, o, 64, true
		}
	}
	return nil, nil, 0, false
}

// NewMachO decodes the Mach-O occupying n and adds its structure beneath n.
func NewMachO(n byterange.Node, config ...Config) (*MachO, error) {
	m := &MachO{node: n, cfg: firstConfig(config)}

	magic, err := n.Bytes(0, min(4, n.Len()))
	if err != nil {
		return nil, err
	}
	layout, order, width, ok := detectMachO(magic, m.cfg.Order)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "mach-o at %#x", n.AbsStart())
	}
	m.order, m.width = order, width
	m.ctx = record.NewContext(order)

	if m.header, err = m.decode(layout, 0); err != nil {
		return nil, err
	}
	if _, err := n.AddSubrange(0, int64(layout.Size()), m.header); err != nil {
		return nil, m.formatError(0, "bad header", nil, err)
	}

	hdr := m.FileHeader()
	log.WithFields(log.Fields{
		"offset": fmt.Sprintf("%#x", n.AbsStart()),
		"cpu":    hdr.CPU,
		"type":   hdr.Type,
		"ncmds":  hdr.NCommands,
	}).Debug("parsing mach-o")

	p := &commandParser{m: m}
	offset := int64(layout.Size())
	for i := uint32(0); i < hdr.NCommands; i++ {
		generic, err := m.decode(types.LoadCommand, offset)
		if err != nil {
			return nil, err
		}
		lc, err := p.parse(generic, offset)
		if err != nil {
			return nil, err
		}
		m.loads = append(m.loads, lc)
		offset += int64(lc.Size)
	}

	for _, s := range m.sections {
		if err := m.parseSection(s); err != nil {
			return nil, err
		}
	}
	for _, enc := range m.encryption {
		off, size := int64(enc.Uint("cryptoff")), int64(enc.Uint("cryptsize"))
		if size == 0 {
			continue
		}
		en, err := n.InsertSubrange(off, size, EncryptedBlock{CryptID: enc.Uint32("cryptid")})
		if err != nil {
			return nil, m.formatError(off, "bad encrypted range", nil, err)
		}
		if err := en.ScanGap(func(_, _ int64) any { return padding("encrypted data") }); err != nil {
			return nil, err
		}
	}
	for _, s := range m.segments {
		if err := m.parseSegment(s); err != nil {
			return nil, err
		}
	}
	if !m.cfg.SkipExports {
		if err := m.parseExports(); err != nil {
			return nil, err
		}
	}

	if err := n.ScanGap(func(_, _ int64) any { return unexpected("unexpected gap") }); err != nil {
		return nil, err
	}
	return m, nil
}

// decode decodes a record of layout at off, relative to the Mach-O.
func (m *MachO) decode(layout *record.Layout, off int64) (*record.Record, error) {
	b, err := m.node.Bytes(off, off+int64(layout.Size()))
	if err != nil {
		return nil, m.formatError(off, "truncated "+layout.Name(), nil, err)
	}
	r, err := layout.DecodeWith(b, m.ctx)
	if err != nil {
		return nil, m.formatError(off, "invalid "+layout.Name(), nil, err)
	}
	return r, nil
}

// formatError reports a problem at off, relative to the Mach-O, with the
// absolute file offset.
func (m *MachO) formatError(off int64, msg string, val interface{}, err error) error {
	return &FormatError{off: m.node.AbsStart() + off, msg: msg, val: val, err: err}
}

// encrypted reports whether an encryption range with a non-zero cryptid
// covers the section.
func (m *MachO) encrypted(s *SectionDescriptor) bool {
	start, stop := uint64(s.Offset()), uint64(s.Offset())+s.Size()
	for _, enc := range m.encryption {
		if enc.Uint("cryptid") == 0 {
			continue
		}
		off := enc.Uint("cryptoff")
		if off <= start && stop <= off+enc.Uint("cryptsize") {
			return true
		}
	}
	return false
}

func (m *MachO) parseSection(s *SectionDescriptor) error {
	blk := SectionBlock{Segment: s.Segment, Section: s.Name, Kind: s.kind()}
	off, size := int64(s.Offset()), int64(s.Size())

	if m.encrypted(s) {
		// the contents of an encrypted string section cannot be split
		if blk.Kind == CStringSection || blk.Kind == MethNameSection {
			blk.Kind = TextSection
		}
		blk.Encrypted = true
		node, err := m.node.AddSubrange(off, size, blk)
		if err != nil {
			return m.formatError(off, "bad section range", s, err)
		}
		s.Node = node
		return nil
	}
	if off == 0 || size == 0 || types.IsZeroFill(s.Flags()) {
		return nil
	}

	node, err := m.node.AddSubrange(off, size, blk)
	if err != nil {
		return m.formatError(off, "bad section range", s, err)
	}
	s.Node = node

	if blk.Kind != CStringSection && blk.Kind != MethNameSection {
		return nil
	}
	b, err := node.All()
	if err != nil {
		return err
	}
	ss := StringSection{Desc: s.Segment + ", " + s.Name, Offset: off}
	for start := 0; start < len(b); {
		end := bytes.IndexByte(b[start:], 0)
		if end < 0 {
			break
		}
		cs := CString{Index: m.cstrings, Value: string(b[start : start+end]), MethName: blk.Kind == MethNameSection}
		if _, err := node.AddSubrange(int64(start), int64(end+1), cs); err != nil {
			return err
		}
		m.cstrings++
		ss.Strings = append(ss.Strings, cs)
		start += end + 1
	}
	if err := node.ScanGap(func(_, _ int64) any { return unexpected("unterminated string") }); err != nil {
		return err
	}
	blk.NumStrings = len(ss.Strings)
	node.SetData(blk)
	m.strsects = append(m.strsects, ss)
	return nil
}

func (m *MachO) parseSegment(s *SegmentDescriptor) error {
	off, size := int64(s.FileOffset()), int64(s.FileSize())
	if size == 0 {
		return nil
	}
	node, err := m.node.InsertSubrange(off, size, SegmentBlock{Name: s.Name})
	if err != nil {
		return m.formatError(off, "bad segment range", s.Name, err)
	}
	if err := node.ScanGap(func(_, _ int64) any { return unexpected("unused segment data") }); err != nil {
		return err
	}
	s.Node = node
	if s.Name == "__LINKEDIT" {
		m.linkedit = node
	}
	return nil
}

func (m *MachO) Node() byterange.Node { return m.node }

// LinkeditNode returns the node of the __LINKEDIT segment, if there is one.
func (m *MachO) LinkeditNode() (byterange.Node, bool) { return m.linkedit, !m.linkedit.IsZero() }

func (m *MachO) Header() *record.Record         { return m.header }
func (m *MachO) FileHeader() types.FileHeader   { return types.FileHeaderFromRecord(m.header) }
func (m *MachO) Width() int                     { return m.width }
func (m *MachO) ByteOrder() binary.ByteOrder    { return m.order }
func (m *MachO) LoadCommands() []*LoadCommand   { return m.loads }
func (m *MachO) Segments() []*SegmentDescriptor { return m.segments }

// Sections returns every section in file order, so Sections()[i] is
// section number i+1.
func (m *MachO) Sections() []*SectionDescriptor { return m.sections }

func (m *MachO) SymbolTables() []*SymbolTable { return m.symtabs }

// Symbols returns the first symbol table, or nil.
func (m *MachO) Symbols() *SymbolTable {
	if len(m.symtabs) == 0 {
		return nil
	}
	return m.symtabs[0]
}

func (m *MachO) IndirectSymbols() []*record.Record    { return m.indirect }
func (m *MachO) DataInCode() []types.DataInCodeEntry  { return m.dataInCode }
func (m *MachO) ThreadStates() []ThreadState          { return m.threads }
func (m *MachO) StringSections() []StringSection      { return m.strsects }
func (m *MachO) Exports() []trie.TrieEntry            { return m.exports }
func (m *MachO) FunctionStarts() []uint64             { return m.starts }
func (m *MachO) EncryptionCommands() []*record.Record { return m.encryption }

// ChainedImports returns the symbol names of the LC_DYLD_CHAINED_FIXUPS
// imports table in order. Names stored compressed are "".
func (m *MachO) ChainedImports() []string { return m.imports }

// Encrypted reports whether any encryption command has a non-zero cryptid.
func (m *MachO) Encrypted() bool {
	for _, enc := range m.encryption {
		if enc.Uint("cryptid") != 0 {
			return true
		}
	}
	return false
}

// Name describes the image by CPU type.
func (m *MachO) Name() string {
	return "Mach-O: " + m.header.Display("cputype")
}

func (m *MachO) String() string { return m.Name() }

// Segment returns the first segment with the given name, or nil.
func (m *MachO) Segment(name string) *SegmentDescriptor {
	for _, s := range m.segments {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Section returns the first section with the given segment and section
// name, or nil.
func (m *MachO) Section(segment, section string) *SectionDescriptor {
	for _, s := range m.sections {
		if s.Is(segment, section) {
			return s
		}
	}
	return nil
}

// BaseAddress returns the vmaddr of the segment mapping the start of the
// file, which is __TEXT in a linked image.
func (m *MachO) BaseAddress() uint64 {
	for _, s := range m.segments {
		if s.FileOffset() == 0 && s.FileSize() != 0 {
			return s.VMAddr()
		}
	}
	return 0
}

// Command returns the first load command with the given opcode, or nil.
func (m *MachO) Command(cmd types.LoadCmd) *LoadCommand {
	for _, l := range m.loads {
		if l.Cmd == cmd {
			return l
		}
	}
	return nil
}

// UUID returns the image UUID from LC_UUID.
func (m *MachO) UUID() (uuid.UUID, bool) {
	l := m.Command(types.LC_UUID)
	if l == nil {
		return uuid.Nil, false
	}
	u, err := uuid.FromBytes(l.Record.Blob("uuid"))
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

// Libraries returns the install names of the dylibs the image links,
// in load command order.
func (m *MachO) Libraries() []string {
	var libs []string
	for _, l := range m.loads {
		if l.Cmd == types.LC_ID_DYLIB {
			continue
		}
		if name, ok := l.StringValue("dylib_name"); ok {
			libs = append(libs, name)
		}
	}
	return libs
}

// EntryPoint returns the entry address of the image from LC_MAIN, as an
// offset from the base address, or from the program counter of a thread
// command.
func (m *MachO) EntryPoint() (uint64, bool) {
	if l := m.Command(types.LC_MAIN); l != nil {
		return m.BaseAddress() + l.Record.Uint("entryoff"), true
	}
	for _, t := range m.threads {
		if pc, ok := t.EntryPoint(); ok {
			return pc, true
		}
	}
	return 0, false
}

// FindExport looks a symbol up in the export trie without decoding the
// whole trie. It works with Config.SkipExports set.
func (m *MachO) FindExport(name string) (trie.TrieEntry, error) {
	s := m.exportSpan
	if s.size == 0 {
		return trie.TrieEntry{}, errors.Wrapf(trie.ErrNotFound, "%s: no export trie", name)
	}
	b, err := m.node.Bytes(int64(s.off), int64(s.off+s.size))
	if err != nil {
		return trie.TrieEntry{}, err
	}
	return trie.WalkTrie(b, name, m.BaseAddress())
}

/*******************************************************************************
 * FILE
 *******************************************************************************/

// A File is a parsed Mach-O or fat binary and the byte range tree
// covering it. Exactly one of MachO and Fat is set.
type File struct {
	Tree  *byterange.Tree
	MachO *MachO
	Fat   *Fat
}

// Parse parses buf as a Mach-O, falling back to a fat binary.
func Parse(buf []byte, config ...Config) (*File, error) {
	cfg := firstConfig(config)
	t := byterange.New(buf)
	root := t.Root()

	if _, _, _, ok := detectMachO(buf, cfg.Order); ok {
		m, err := NewMachO(root, cfg)
		if err != nil {
			return nil, err
		}
		root.SetData(m)
		return &File{Tree: t, MachO: m}, nil
	}
	if types.FatHeader.Matches(buf, nil) {
		fat, err := NewFat(root, cfg)
		if err != nil {
			return nil, err
		}
		root.SetData(fat)
		return &File{Tree: t, Fat: fat}, nil
	}
	return nil, ErrUnsupportedFormat
}

// Open reads the named file and parses it.
func Open(name string, config ...Config) (*File, error) {
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	f, err := Parse(buf, config...)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return f, nil
}

func (f *File) Root() byterange.Node { return f.Tree.Root() }

// MachOs returns the thin image, or every slice of a fat binary.
func (f *File) MachOs() []*MachO {
	if f.MachO != nil {
		return []*MachO{f.MachO}
	}
	var ms []*MachO
	if f.Fat != nil {
		for _, a := range f.Fat.Arches {
			ms = append(ms, a.MachO)
		}
	}
	return ms
}

// Describe returns a one line summary of the file.
func (f *File) Describe() string {
	if f.Fat != nil {
		names := make([]string, 0, len(f.Fat.Arches))
		for _, a := range f.Fat.Arches {
			names = append(names, a.CPU.String())
		}
		return fmt.Sprintf("Fat Mach-O: %d arches (%s)", len(f.Fat.Arches), strings.Join(names, ", "))
	}
	return f.MachO.Name()
}
