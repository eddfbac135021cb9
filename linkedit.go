package macho

import (
	"bytes"
	"fmt"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/pkg/trie"
	"github.com/appsworld/go-machview/types"
)

var linkeditDescs = map[types.LoadCmd]string{
	types.LC_CODE_SIGNATURE:           "code signature",
	types.LC_SEGMENT_SPLIT_INFO:       "segment split info",
	types.LC_FUNCTION_STARTS:          "function starts",
	types.LC_DATA_IN_CODE:             "data in code",
	types.LC_DYLIB_CODE_SIGN_DRS:      "dylib code sign drs",
	types.LC_LINKER_OPTIMIZATION_HINT: "linker optimization hint",
	types.LC_DYLD_EXPORTS_TRIE:        "exports trie",
	types.LC_DYLD_CHAINED_FIXUPS:      "chained fixups",
}

// addTable adds a linkedit table at off. An empty table adds nothing.
func (m *MachO) addTable(off, size uint64, data any) (byterange.Node, error) {
	if size == 0 {
		return byterange.Node{}, nil
	}
	n, err := m.node.AddSubrange(int64(off), int64(size), data)
	if err != nil {
		return n, m.formatError(int64(off), "bad linkedit table", data, err)
	}
	return n, nil
}

func (m *MachO) parseDyldInfo(r *record.Record) error {
	for _, t := range []struct{ prefix, desc string }{
		{"rebase", "rebase section"},
		{"bind", "bind section"},
		{"weak_bind", "weak bind section"},
		{"lazy_bind", "lazy bind section"},
		{"export", "export section"},
	} {
		off, size := r.Uint(t.prefix+"_off"), r.Uint(t.prefix+"_size")
		if _, err := m.addTable(off, size, LinkEditData{Desc: t.desc}); err != nil {
			return err
		}
	}
	if size := r.Uint("export_size"); size > 0 {
		m.exportSpan = span{off: r.Uint("export_off"), size: size}
	}
	return nil
}

func (m *MachO) parseLinkeditData(cmd types.LoadCmd, r *record.Record) error {
	off, size := r.Uint("dataoff"), r.Uint("datasize")
	n, err := m.addTable(off, size, LinkEditData{Desc: linkeditDescs[cmd]})
	if err != nil || n.IsZero() {
		return err
	}
	switch cmd {
	case types.LC_DYLD_EXPORTS_TRIE:
		m.exportSpan = span{off: off, size: size}
	case types.LC_FUNCTION_STARTS:
		m.startsSpan = span{off: off, size: size}
	case types.LC_DATA_IN_CODE:
		b, err := n.All()
		if err != nil {
			return err
		}
		m.dataInCode = types.ParseDataInCode(b, m.order)
	case types.LC_CODE_SIGNATURE:
		if m.cfg.CodeSignature {
			return m.parseCodeSignature(n)
		}
	case types.LC_DYLD_CHAINED_FIXUPS:
		return m.parseChainedFixups(n)
	}
	return nil
}

// rel returns the offset of n relative to the Mach-O.
func (m *MachO) rel(n byterange.Node) int64 { return n.AbsStart() - m.node.AbsStart() }

// parseCodeSignature decodes the superblob at the start of an embedded
// signature and the header of every blob it indexes. A table that does not
// start with a superblob is left opaque.
func (m *MachO) parseCodeSignature(n byterange.Node) error {
	hdrSize := int64(types.SuperBlob.Size())
	if n.Len() < hdrSize {
		return nil
	}
	b, err := n.Bytes(0, hdrSize)
	if err != nil {
		return err
	}
	if !types.SuperBlob.Matches(b, nil) {
		log.WithField("offset", fmt.Sprintf("%#x", n.AbsStart())).Warn("code signature does not start with a superblob")
		return nil
	}
	sb, err := types.SuperBlob.Decode(b)
	if err != nil {
		return m.formatError(m.rel(n), "invalid superblob", nil, err)
	}
	if _, err := n.AddSubrange(0, hdrSize, sb); err != nil {
		return err
	}

	ctx := record.NewContext(nil)
	idxSize := int64(types.BlobIndex.Size())
	var indices []*record.Record
	for i := int64(0); i < int64(sb.Uint32("count")); i++ {
		off := hdrSize + i*idxSize
		b, err := n.Bytes(off, off+idxSize)
		if err != nil {
			return m.formatError(m.rel(n)+off, "truncated blob index", i, err)
		}
		idx, err := types.BlobIndex.DecodeWith(b, ctx)
		if err != nil {
			return m.formatError(m.rel(n)+off, "invalid blob index", i, err)
		}
		if _, err := n.AddSubrange(off, idxSize, idx); err != nil {
			return m.formatError(m.rel(n)+off, "bad blob index", i, err)
		}
		indices = append(indices, idx)
	}
	for _, idx := range indices {
		if err := m.parseBlob(n, idx); err != nil {
			return err
		}
	}
	return n.ScanGap(func(_, _ int64) any { return padding("code signature padding") })
}

func (m *MachO) parseBlob(sig byterange.Node, idx *record.Record) error {
	slot := idx.Display("type")
	off := int64(idx.Uint("offset"))
	hdrSize := int64(types.GenericBlob.Size())
	b, err := sig.Bytes(off, off+hdrSize)
	if err != nil {
		return m.formatError(m.rel(sig)+off, "truncated code signing blob", slot, err)
	}
	hdr, err := types.GenericBlob.Decode(b)
	if err != nil {
		return m.formatError(m.rel(sig)+off, "invalid code signing blob", slot, err)
	}
	length := int64(hdr.Uint("length"))
	if length < hdrSize {
		return m.formatError(m.rel(sig)+off, "code signing blob shorter than its header", slot, nil)
	}
	magic := types.CsMagic(hdr.Uint32("magic"))
	blob, err := sig.AddSubrange(off, length, CodeSignatureBlob{Slot: slot, Magic: magic})
	if err != nil {
		return m.formatError(m.rel(sig)+off, "bad code signing blob", slot, err)
	}

	layout := types.GenericBlob
	if magic == types.CSMAGIC_CODEDIRECTORY && length >= int64(types.CodeDirectory.Size()) {
		layout = types.CodeDirectory
	}
	b, err = blob.Bytes(0, int64(layout.Size()))
	if err != nil {
		return err
	}
	r, err := layout.Decode(b)
	if err != nil {
		return m.formatError(m.rel(blob), "invalid "+layout.Name(), slot, err)
	}
	if _, err := blob.AddSubrange(0, int64(layout.Size()), r); err != nil {
		return err
	}
	if layout == types.CodeDirectory {
		if err := addIdentifier(blob, int64(r.Uint("identOffset"))); err != nil {
			return m.formatError(m.rel(blob), "bad code directory identifier", slot, err)
		}
	}
	return blob.ScanGap(func(_, _ int64) any { return padding("blob data") })
}

// addIdentifier adds the NUL terminated signing identifier of a code
// directory. An offset inside the header or past the blob is ignored.
func addIdentifier(cd byterange.Node, off int64) error {
	if off < int64(types.CodeDirectory.Size()) || off >= cd.Len() {
		return nil
	}
	b, err := cd.Bytes(off, cd.Len())
	if err != nil {
		return err
	}
	end := bytes.IndexByte(b, 0)
	if end < 0 {
		return nil
	}
	_, err = cd.AddSubrange(off, int64(end+1), LcStr{Desc: "identifier", Value: string(b[:end])})
	return err
}

// parseChainedFixups decodes the chained fixups header and, for the
// DYLD_CHAINED_IMPORT format, the imports table with its symbol names.
func (m *MachO) parseChainedFixups(n byterange.Node) error {
	hdrSize := int64(types.DyldChainedFixupsHeader.Size())
	b, err := n.Bytes(0, hdrSize)
	if err != nil {
		return m.formatError(m.rel(n), "truncated chained fixups header", nil, err)
	}
	hdr, err := types.DyldChainedFixupsHeader.DecodeWith(b, m.ctx)
	if err != nil {
		return m.formatError(m.rel(n), "invalid chained fixups header", nil, err)
	}
	if _, err := n.AddSubrange(0, hdrSize, hdr); err != nil {
		return err
	}

	count := int64(hdr.Uint("imports_count"))
	if types.DCImportsFormat(hdr.Uint32("imports_format")) == types.DC_IMPORT && count > 0 {
		off := int64(hdr.Uint("imports_offset"))
		size := int64(types.ChainedImport.Size())
		tbl, err := n.AddSubrange(off, count*size, ChainedImportTable{Count: uint32(count)})
		if err != nil {
			return m.formatError(m.rel(n)+off, "bad chained imports table", nil, err)
		}
		var pool []byte
		if symoff := int64(hdr.Uint("symbols_offset")); hdr.Uint("symbols_format") == uint64(types.DC_SFORMAT_UNCOMPRESSED) && symoff < n.Len() {
			pool, _ = n.Bytes(symoff, n.Len())
		}
		for i := int64(0); i < count; i++ {
			b, err := tbl.Bytes(i*size, (i+1)*size)
			if err != nil {
				return err
			}
			imp, err := types.ChainedImport.DecodeWith(b, m.ctx)
			if err != nil {
				return m.formatError(m.rel(tbl)+i*size, "invalid chained import", i, err)
			}
			if _, err := tbl.AddSubrange(i*size, size, imp); err != nil {
				return err
			}
			m.imports = append(m.imports, cstringAt(pool, types.DyldChainedImport(imp.Uint32("import")).NameOffset()))
		}
	}
	return n.ScanGap(func(_, _ int64) any { return padding("chained fixups data") })
}

// cstringAt returns the NUL terminated string at off in pool, or "" when
// off is out of range.
func cstringAt(pool []byte, off uint32) string {
	if int(off) >= len(pool) {
		return ""
	}
	b := pool[off:]
	if end := bytes.IndexByte(b, 0); end >= 0 {
		b = b[:end]
	}
	return string(b)
}

func (m *MachO) parseSymtab(r *record.Record) error {
	symoff, nsyms := r.Uint("symoff"), r.Uint("nsyms")
	stroff, strsize := r.Uint("stroff"), r.Uint("strsize")
	layout := types.NlistLayout(m.width)
	entSize := uint64(layout.Size())

	tab := newSymbolTable(int(nsyms))
	if _, err := m.addTable(symoff, nsyms*entSize, SymbolTableBlock{Table: tab}); err != nil {
		return err
	}
	if _, err := m.addTable(stroff, strsize, StringTableBlock{Table: tab}); err != nil {
		return err
	}

	var strtab []byte
	if strsize > 0 {
		b, err := m.node.Bytes(int64(stroff), int64(stroff+strsize))
		if err != nil {
			return m.formatError(int64(stroff), "bad string table", nil, err)
		}
		strtab = b
	}
	for i := uint64(0); i < nsyms; i++ {
		off := int64(symoff + i*entSize)
		sym, err := m.decode(layout, off)
		if err != nil {
			return err
		}
		tab.add(sym)
		if strx := sym.Uint32("n_strx"); strx != 0 {
			if err := tab.addString(strx, strtab); err != nil {
				return m.formatError(off, "bad symbol name", nil, err)
			}
		}
	}
	tab.correlate()
	m.symtabs = append(m.symtabs, tab)

	log.WithFields(log.Fields{
		"symbols": tab.Len(),
		"strings": tab.NumStrings(),
		"strtab":  humanize.Bytes(strsize),
	}).Debug("parsed symbol table")
	return nil
}

func (m *MachO) parseDysymtab(r *record.Record) error {
	nextref := r.Uint32("nextrefsyms")
	if _, err := m.addTable(r.Uint("extrefsymoff"), uint64(nextref)*4, ExtRefTable{Count: nextref}); err != nil {
		return err
	}

	nindirect := r.Uint32("nindirectsyms")
	n, err := m.addTable(r.Uint("indirectsymoff"), uint64(nindirect)*4, IndirectSymbolTable{Count: nindirect})
	if err != nil || n.IsZero() {
		return err
	}
	size := int64(types.IndirectSymbol.Size())
	for i := int64(0); i < int64(nindirect); i++ {
		b, err := n.Bytes(i*size, (i+1)*size)
		if err != nil {
			return err
		}
		ind, err := types.IndirectSymbol.DecodeWith(b, m.ctx)
		if err != nil {
			return m.formatError(n.AbsStart()-m.node.AbsStart()+i*size, "invalid indirect symbol", nil, err)
		}
		if _, err := n.AddSubrange(i*size, size, ind); err != nil {
			return err
		}
		m.indirect = append(m.indirect, ind)
	}
	return nil
}

// parseExports decodes the export trie and the function starts once the
// base address is known.
func (m *MachO) parseExports() error {
	base := m.BaseAddress()
	if s := m.exportSpan; s.size > 0 {
		b, err := m.node.Bytes(int64(s.off), int64(s.off+s.size))
		if err != nil {
			return err
		}
		entries, err := trie.ParseTrie(b, base)
		if err != nil {
			return m.formatError(int64(s.off), "bad export trie", nil, err)
		}
		m.exports = entries
	}
	if s := m.startsSpan; s.size > 0 {
		b, err := m.node.Bytes(int64(s.off), int64(s.off+s.size))
		if err != nil {
			return err
		}
		starts, err := trie.ParseFunctionStarts(b, base)
		if err != nil {
			return m.formatError(int64(s.off), "bad function starts", nil, err)
		}
		m.starts = starts
	}
	log.WithFields(log.Fields{
		"base":      fmt.Sprintf("%#x", base),
		"exports":   len(m.exports),
		"functions": len(m.starts),
	}).Debug("parsed exports")
	return nil
}
