package macho

import (
	"fmt"
	"strings"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/types"
)

// A LoadCommand is one load command of a Mach-O in file order.
type LoadCommand struct {
	Cmd    types.LoadCmd
	Offset int64
	Size   uint32
	// Record is the command's specific record, or the generic load_command
	// header when the opcode has none.
	Record *record.Record
	// Strings holds the lc_str values the command carries.
	Strings []LcStr
	// Node is the block grouping the command with its trailing data, or
	// the node of its header when nothing follows it.
	Node byterange.Node
}

func (l *LoadCommand) Command() types.LoadCmd { return l.Cmd }

// Known reports whether the command was decoded with a specific record.
func (l *LoadCommand) Known() bool { return l.Record.Layout() != types.LoadCommand }

func (l *LoadCommand) String() string { return l.Record.String() }

// StringValue returns the value of the named lc_str, if the command has one.
func (l *LoadCommand) StringValue(desc string) (string, bool) {
	for _, s := range l.Strings {
		if s.Desc == desc {
			return s.Value, true
		}
	}
	return "", false
}

/*******************************************************************************
 * BLOCKS
 *
 * Every node of the byte range tree carries one of the payloads below, a
 * *record.Record, or a container (*MachO, *Fat).
 *******************************************************************************/

// A LoadCommandBlock groups a load command header with its trailing data.
type LoadCommandBlock struct {
	Cmd types.LoadCmd
}

func (b LoadCommandBlock) String() string { return "LoadCommand: " + b.Cmd.String() }

// An LcStr is a NUL terminated string carried inside a load command.
type LcStr struct {
	Desc  string
	Value string
}

func (s LcStr) String() string { return fmt.Sprintf("lc_str: %s=%s", s.Desc, s.Value) }

// A ModuleVector is the linked module bit vector of a prebound dylib.
type ModuleVector []byte

func (v ModuleVector) String() string {
	parts := make([]string, len(v))
	for i, b := range v {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return "<modules:" + strings.Join(parts, " ") + ">"
}

// Padding marks bytes that carry no decoded data. Unexpected padding is a
// gap the format does not call for.
type Padding struct {
	Reason     string
	Unexpected bool
}

func (p Padding) String() string { return "padding: " + p.Reason }

func padding(reason string) Padding    { return Padding{Reason: reason} }
func unexpected(reason string) Padding { return Padding{Reason: reason, Unexpected: true} }

// A SegmentBlock spans the file range of a segment.
type SegmentBlock struct {
	Name string
}

func (b SegmentBlock) String() string { return "Segment: " + b.Name }

type SectionKind int

const (
	GenericSection SectionKind = iota
	TextSection
	DataSection
	CStringSection
	MethNameSection
)

// A SectionBlock spans the file range of a section.
type SectionBlock struct {
	Segment   string
	Section   string
	Kind      SectionKind
	Encrypted bool
	// NumStrings is set for string sections.
	NumStrings int
}

func (b SectionBlock) String() string {
	var s string
	switch b.Kind {
	case TextSection:
		s = "TextSection: " + b.Section
	case DataSection:
		s = "DataSection: " + b.Section
	case CStringSection:
		s = fmt.Sprintf("CstringSection: %d strings", b.NumStrings)
	case MethNameSection:
		s = fmt.Sprintf("ObjCMethodNameSection: %d strings", b.NumStrings)
	default:
		s = fmt.Sprintf("Section: %s %s", b.Segment, b.Section)
	}
	if b.Encrypted {
		s += " [ENCRYPTED]"
	}
	return s
}

// A CString is one string of a __cstring or __objc_methname section.
type CString struct {
	Index    int
	Value    string
	MethName bool
}

func (c CString) String() string {
	name := "cstring"
	if c.MethName {
		name = "objc_methname"
	}
	return fmt.Sprintf("%s[%d]: %q", name, c.Index, c.Value)
}

// An EncryptedBlock spans the range described by an encryption info command.
type EncryptedBlock struct {
	CryptID uint32
}

func (b EncryptedBlock) String() string { return fmt.Sprintf("EncryptedSegment: %d", b.CryptID) }

// LinkEditData is an opaque table of the __LINKEDIT segment.
type LinkEditData struct {
	Desc string
}

func (d LinkEditData) String() string { return "LinkEditData: " + d.Desc }

// A CodeSignatureBlob is one blob of an embedded code signature.
type CodeSignatureBlob struct {
	Slot  string
	Magic types.CsMagic
}

func (b CodeSignatureBlob) String() string {
	return fmt.Sprintf("CodeSignature: %s (%s)", b.Slot, b.Magic)
}

// A ChainedImportTable spans the imports of LC_DYLD_CHAINED_FIXUPS.
type ChainedImportTable struct{ Count uint32 }

func (t ChainedImportTable) String() string { return fmt.Sprintf("ChainedImports: %d imports", t.Count) }

// A SymbolTableBlock spans the nlist entries of LC_SYMTAB. The entries
// themselves live in a SymbolTable, not in the tree.
type SymbolTableBlock struct {
	Table *SymbolTable
}

func (b SymbolTableBlock) String() string {
	return fmt.Sprintf("SymbolTable: %d symbols", b.Table.Len())
}

// A StringTableBlock spans the string table of LC_SYMTAB.
type StringTableBlock struct {
	Table *SymbolTable
}

func (b StringTableBlock) String() string {
	return fmt.Sprintf("SymbolTable: %d strings", b.Table.NumStrings())
}

// An ExtRefTable spans the external reference table of LC_DYSYMTAB.
type ExtRefTable struct {
	Count uint32
}

func (t ExtRefTable) String() string { return fmt.Sprintf("SymbolTable: %d external references", t.Count) }

// An IndirectSymbolTable spans the indirect symbol table of LC_DYSYMTAB. Each
// entry is an IndirectSymbol record child.
type IndirectSymbolTable struct {
	Count uint32
}

func (t IndirectSymbolTable) String() string {
	return fmt.Sprintf("SymbolTable: %d indirect symbols", t.Count)
}

// A ThreadState is one register set of LC_THREAD or LC_UNIXTHREAD.
type ThreadState struct {
	Flavor uint32
	Count  uint32
	// Regs is one of the Regs* types, or nil for a flavor not decoded.
	Regs any
}

func (t ThreadState) String() string {
	if t.Regs == nil {
		return fmt.Sprintf("thread_state: flavor=%d, count=%d", t.Flavor, t.Count)
	}
	return fmt.Sprintf("thread_state: flavor=%d, count=%d\n%s", t.Flavor, t.Count, regsString(t.Regs, 4))
}

// EntryPoint returns the program counter of the register set.
func (t ThreadState) EntryPoint() (uint64, bool) {
	switch r := t.Regs.(type) {
	case *Regs386:
		return uint64(r.IP), true
	case *RegsAMD64:
		return r.IP, true
	case *RegsARM:
		return uint64(r.PC), true
	case *RegsARM64:
		return r.PC, true
	}
	return 0, false
}
