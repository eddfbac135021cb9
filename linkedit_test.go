package macho

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/types"
)

// signed64 is an arm64 dylib with chained fixups at 0x100 and an embedded
// code signature at 0x200.
func signed64(t *testing.T) []byte {
	im := newImage(t, binary.LittleEndian, 0x300)
	im.put(0, types.MachHeader64, record.V{
		"magic": types.Magic64, "cputype": types.CPUArm64, "filetype": types.MH_DYLIB,
		"ncmds": 4, "sizeofcmds": 208 - 32,
	})
	im.put(32, types.SegmentCommand64, record.V{
		"cmd": types.LC_SEGMENT_64, "cmdsize": 72, "segname": "__TEXT",
		"vmaddr": textVMAddr, "vmsize": 0x100, "filesize": 0x100,
	})
	im.put(104, types.SegmentCommand64, record.V{
		"cmd": types.LC_SEGMENT_64, "cmdsize": 72, "segname": "__LINKEDIT",
		"vmaddr": textVMAddr + 0x100, "vmsize": 0x200, "fileoff": 0x100, "filesize": 0x200,
	})
	im.put(176, types.LinkeditDataCommand, record.V{
		"cmd": types.LC_DYLD_CHAINED_FIXUPS, "cmdsize": 16, "dataoff": 0x100, "datasize": 0x40,
	})
	im.put(192, types.LinkeditDataCommand, record.V{
		"cmd": types.LC_CODE_SIGNATURE, "cmdsize": 16, "dataoff": 0x200, "datasize": 0x100,
	})

	im.put(0x100, types.DyldChainedFixupsHeader, record.V{
		"starts_offset": 0x1c, "imports_offset": 0x20, "symbols_offset": 0x28,
		"imports_count": 2, "imports_format": types.DC_IMPORT, "symbols_format": types.DC_SFORMAT_UNCOMPRESSED,
	})
	binary.LittleEndian.PutUint32(im.buf[0x120:], 1|1<<9)
	binary.LittleEndian.PutUint32(im.buf[0x124:], 1|1<<8|6<<9)
	im.bytes(0x128, []byte("\x00_foo\x00_bar\x00"))

	// code signing structures are always big endian
	put := func(off int, l *record.Layout, v record.V) {
		b, err := l.Encode(nil, v)
		if err != nil {
			t.Fatalf("encode %s: %v", l.Name(), err)
		}
		copy(im.buf[off:], b)
	}
	put(0x200, types.SuperBlob, record.V{"magic": types.CSMAGIC_EMBEDDED_SIGNATURE, "length": 0x88, "count": 2})
	put(0x20c, types.BlobIndex, record.V{"type": types.CSSLOT_CODEDIRECTORY, "offset": 0x20})
	put(0x214, types.BlobIndex, record.V{"type": types.CSSLOT_CMS_SIGNATURE, "offset": 0x80})
	put(0x220, types.CodeDirectory, record.V{
		"magic": types.CSMAGIC_CODEDIRECTORY, "length": 0x50, "version": 0x20400,
		"identOffset": 44, "hashSize": 32, "hashType": 2, "pageSize": 12,
	})
	im.bytes(0x220+44, []byte("com.x\x00"))
	put(0x280, types.GenericBlob, record.V{"magic": types.CSMAGIC_BLOBWRAPPER, "length": 8})
	return im.buf
}

func linkeditTable(t *testing.T, m *MachO, desc string) byterange.Node {
	t.Helper()
	le, ok := m.LinkeditNode()
	if !ok {
		t.Fatal("no __LINKEDIT")
	}
	for _, c := range le.Children() {
		if d, ok := c.Data().(LinkEditData); ok && d.Desc == desc {
			return c
		}
	}
	t.Fatalf("no %s table", desc)
	return byterange.Node{}
}

func describeLeaves(n byterange.Node) []string {
	var got []string
	for _, d := range leaves(n) {
		switch v := d.(type) {
		case *record.Record:
			got = append(got, v.Name())
		case interface{ String() string }:
			got = append(got, v.String())
		}
	}
	return got
}

func TestCodeSignature(t *testing.T) {
	m := mustParse(t, signed64(t), Config{CodeSignature: true}).MachO
	sig := linkeditTable(t, m, "code signature")

	want := []string{
		"CS_SuperBlob",
		"CS_BlobIndex[0]",
		"CS_BlobIndex[1]",
		"padding: code signature padding",
		"CS_CodeDirectory",
		"lc_str: identifier=com.x",
		"padding: blob data",
		"padding: code signature padding",
		"CS_GenericBlob",
		"padding: code signature padding",
	}
	if diff := cmp.Diff(want, describeLeaves(sig)); diff != "" {
		t.Errorf("code signature leaves mismatch (-want +got):\n%s", diff)
	}

	var blobs []string
	for _, c := range sig.Children() {
		if b, ok := c.Data().(CodeSignatureBlob); ok {
			blobs = append(blobs, b.String())
		}
	}
	wantBlobs := []string{
		"CodeSignature: CodeDirectory (CSMAGIC_CODEDIRECTORY)",
		"CodeSignature: CMS (RFC3852) signature (CSMAGIC_BLOBWRAPPER)",
	}
	if diff := cmp.Diff(wantBlobs, blobs); diff != "" {
		t.Errorf("blobs mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeSignatureOpaque(t *testing.T) {
	buf := signed64(t)
	copy(buf[0x200:], []byte{0, 0, 0, 0})
	m := mustParse(t, buf, Config{CodeSignature: true}).MachO
	sig := linkeditTable(t, m, "code signature")
	if n := len(sig.Children()); n != 0 {
		t.Errorf("opaque signature has %d children", n)
	}
}

func TestCodeSignatureDefaultOpaque(t *testing.T) {
	m := mustParse(t, signed64(t)).MachO
	sig := linkeditTable(t, m, "code signature")
	if n := len(sig.Children()); n != 0 {
		t.Errorf("signature decoded without Config.CodeSignature: %d children", n)
	}
}

func TestCodeSignatureBadBlob(t *testing.T) {
	buf := signed64(t)
	binary.BigEndian.PutUint32(buf[0x284:], 4)
	if _, err := Parse(buf, Config{CodeSignature: true}); err == nil {
		t.Fatal("Parse accepted a blob shorter than its header")
	}
}

func TestChainedFixups(t *testing.T) {
	m := mustParse(t, signed64(t)).MachO

	want := []string{
		"dyld_chained_fixups_header",
		"padding: chained fixups data",
		"dyld_chained_import[0]",
		"dyld_chained_import[1]",
		"padding: chained fixups data",
	}
	if diff := cmp.Diff(want, describeLeaves(linkeditTable(t, m, "chained fixups"))); diff != "" {
		t.Errorf("chained fixups leaves mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"_foo", "_bar"}, m.ChainedImports()); diff != "" {
		t.Errorf("ChainedImports() mismatch (-want +got):\n%s", diff)
	}

	imp := types.DyldChainedImport(1 | 1<<8 | 6<<9)
	if got := imp.String(); got != "lib=1, name_offset=0x6, weak" {
		t.Errorf("String() = %q", got)
	}
}
