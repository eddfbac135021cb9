package types

import "strings"

// ExportFlag is the flags ULEB128 of a terminal export trie node.
type ExportFlag int

const (
	EXPORT_SYMBOL_FLAGS_KIND_MASK         ExportFlag = 0x03
	EXPORT_SYMBOL_FLAGS_KIND_REGULAR      ExportFlag = 0x00
	EXPORT_SYMBOL_FLAGS_KIND_THREAD_LOCAL ExportFlag = 0x01
	EXPORT_SYMBOL_FLAGS_KIND_ABSOLUTE     ExportFlag = 0x02
	EXPORT_SYMBOL_FLAGS_WEAK_DEFINITION   ExportFlag = 0x04
	EXPORT_SYMBOL_FLAGS_REEXPORT          ExportFlag = 0x08
	EXPORT_SYMBOL_FLAGS_STUB_AND_RESOLVER ExportFlag = 0x10
)

var exportKinds = [...]string{"regular", "thread_local", "absolute", "kind(3)"}

func (f ExportFlag) Kind() ExportFlag      { return f & EXPORT_SYMBOL_FLAGS_KIND_MASK }
func (f ExportFlag) Regular() bool         { return f.Kind() == EXPORT_SYMBOL_FLAGS_KIND_REGULAR }
func (f ExportFlag) ThreadLocal() bool     { return f.Kind() == EXPORT_SYMBOL_FLAGS_KIND_THREAD_LOCAL }
func (f ExportFlag) Absolute() bool        { return f.Kind() == EXPORT_SYMBOL_FLAGS_KIND_ABSOLUTE }
func (f ExportFlag) WeakDefinition() bool  { return f&EXPORT_SYMBOL_FLAGS_WEAK_DEFINITION != 0 }
func (f ExportFlag) ReExport() bool        { return f&EXPORT_SYMBOL_FLAGS_REEXPORT != 0 }
func (f ExportFlag) StubAndResolver() bool { return f&EXPORT_SYMBOL_FLAGS_STUB_AND_RESOLVER != 0 }

// String lists the kind followed by any modifier bits, "|" separated.
func (f ExportFlag) String() string {
	parts := []string{exportKinds[f.Kind()]}
	if f.WeakDefinition() {
		parts = append(parts, "weak_definition")
	}
	if f.ReExport() {
		parts = append(parts, "reexport")
	}
	if f.StubAndResolver() {
		parts = append(parts, "stub_and_resolver")
	}
	return strings.Join(parts, "|")
}
