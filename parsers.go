package macho

import (
	"bytes"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/types"
)

// commandParser walks the bytes of one load command at a time. Every
// block it adds advances current, so whatever is left between current
// and the end of the command is padding.
type commandParser struct {
	m       *MachO
	lc      *LoadCommand
	last    byterange.Node
	start   int64
	size    int64
	current int64
}

func (p *commandParser) reset(lc *LoadCommand) {
	p.lc = lc
	p.start, p.size, p.current = lc.Offset, int64(lc.Size), lc.Offset
}

func (p *commandParser) rest() int64 { return p.start + p.size - p.current }

func (p *commandParser) bytes(length int64) ([]byte, error) {
	return p.m.node.Bytes(p.current, p.current+length)
}

// add records data over the next length bytes of the command.
func (p *commandParser) add(data any, length int64) (byterange.Node, error) {
	n, err := p.m.node.AddSubrange(p.current, length, data)
	if err != nil {
		return n, p.errorf(p.current, "bad block in load command", err)
	}
	p.current += length
	p.last = n
	return n, nil
}

// decode decodes and adds the next record of layout.
func (p *commandParser) decode(layout *record.Layout) (*record.Record, error) {
	size := int64(layout.Size())
	if size > p.rest() {
		return nil, p.errorf(p.current, layout.Name()+" beyond end of load command", nil)
	}
	r, err := p.m.decode(layout, p.current)
	if err != nil {
		return nil, err
	}
	if _, err := p.add(r, size); err != nil {
		return nil, err
	}
	return r, nil
}

// pad fills the bytes from current up to offset, relative to the start of
// the command.
func (p *commandParser) pad(reason Padding, offset int64) error {
	gap := p.start + offset - p.current
	if gap < 0 {
		return p.errorf(p.current, "overlapping data in load command", nil)
	}
	if gap == 0 {
		return nil
	}
	_, err := p.add(reason, gap)
	return err
}

// wrap groups everything added for the command under one block.
func (p *commandParser) wrap() error {
	n, err := p.m.node.InsertSubrange(p.start, p.size, LoadCommandBlock{Cmd: p.lc.Cmd})
	if err != nil {
		return p.errorf(p.start, "bad load command block", err)
	}
	p.lc.Node = n
	return nil
}

func (p *commandParser) errorf(off int64, msg string, err error) error {
	return p.m.formatError(off, msg, p.lc.Cmd, err)
}

// stringOffsetField names the lc_str a command carries and the header
// field holding its offset.
func stringOffsetField(cmd types.LoadCmd) (desc, field string, ok bool) {
	switch cmd {
	case types.LC_LOAD_DYLIB, types.LC_ID_DYLIB, types.LC_LOAD_WEAK_DYLIB,
		types.LC_REEXPORT_DYLIB, types.LC_LAZY_LOAD_DYLIB, types.LC_LOAD_UPWARD_DYLIB:
		return "dylib_name", "dylib_name_offset", true
	case types.LC_ID_DYLINKER, types.LC_LOAD_DYLINKER, types.LC_DYLD_ENVIRONMENT:
		return "name", "name_offset", true
	case types.LC_SUB_FRAMEWORK:
		return "umbrella", "umbrella_offset", true
	case types.LC_SUB_UMBRELLA:
		return "sub_umbrella", "sub_umbrella_offset", true
	case types.LC_SUB_CLIENT:
		return "client", "client_offset", true
	case types.LC_SUB_LIBRARY:
		return "library", "library_offset", true
	case types.LC_RPATH:
		return "path", "path_offset", true
	}
	return "", "", false
}

// parse decodes the load command whose generic header is at offset.
func (p *commandParser) parse(generic *record.Record, offset int64) (*LoadCommand, error) {
	m := p.m
	cmd := types.LoadCmd(generic.Uint32("cmd"))
	lc := &LoadCommand{Cmd: cmd, Offset: offset, Size: generic.Uint32("cmdsize")}
	p.reset(lc)

	if lc.Size < types.LoadCommandSize {
		return nil, m.formatError(offset, "invalid command block size", lc.Size, nil)
	}
	if offset+int64(lc.Size) > m.node.Len() {
		return nil, m.formatError(offset, "command block beyond end of file", cmd, nil)
	}

	layout, ok := types.CommandLayout(cmd, m.width)
	if !ok {
		log.Warnf("found unknown load command %s (%#x) at %#x", cmd, uint32(cmd), m.node.AbsStart()+offset)
		lc.Record = generic
		n, err := p.add(generic, types.LoadCommandSize)
		if err != nil {
			return nil, err
		}
		lc.Node = n
		if err := p.pad(unexpected("unknown LC"), p.size); err != nil {
			return nil, err
		}
		return lc, nil
	}

	switch cmd {
	case types.LC_TWOLEVEL_HINTS, types.LC_PREBIND_CKSUM, types.LC_LINKER_OPTION:
		return nil, errors.Wrapf(ErrNotImplemented, "%s at %#x", cmd, m.node.AbsStart()+offset)
	}

	rec, err := p.decode(layout)
	if err != nil {
		return nil, err
	}
	lc.Record = rec
	lc.Node = p.last

	switch cmd {
	case types.LC_SEGMENT, types.LC_SEGMENT_64:
		err = p.segment()
	case types.LC_PREBOUND_DYLIB:
		err = p.preboundDylib()
	case types.LC_THREAD, types.LC_UNIXTHREAD:
		err = p.thread()
	case types.LC_BUILD_VERSION:
		err = p.buildVersion()
	case types.LC_ENCRYPTION_INFO, types.LC_ENCRYPTION_INFO_64:
		m.encryption = append(m.encryption, rec)
	case types.LC_DYLD_INFO, types.LC_DYLD_INFO_ONLY:
		err = m.parseDyldInfo(rec)
	case types.LC_SYMTAB:
		err = m.parseSymtab(rec)
	case types.LC_DYSYMTAB:
		err = m.parseDysymtab(rec)
	default:
		if desc, field, ok := stringOffsetField(cmd); ok {
			if err = p.lcStr(desc, int64(rec.Uint(field))); err == nil {
				err = p.finish()
			}
			break
		}
		if _, ok := linkeditDescs[cmd]; ok {
			err = m.parseLinkeditData(cmd, rec)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := p.pad(padding(cmd.String()), p.size); err != nil {
		return nil, err
	}
	return lc, nil
}

// finish pads a command up to its end for alignment and groups it.
func (p *commandParser) finish() error {
	if err := p.pad(padding("alignment"), p.size); err != nil {
		return err
	}
	return p.wrap()
}

// lcStr adds the NUL terminated string at offset, relative to the start of
// the command.
func (p *commandParser) lcStr(desc string, offset int64) error {
	if offset < p.current-p.start || offset >= p.size {
		return p.errorf(p.start, "invalid "+desc+" offset", nil)
	}
	if err := p.pad(unexpected("unexpected gap"), offset); err != nil {
		return err
	}
	b, err := p.bytes(p.rest())
	if err != nil {
		return err
	}
	end := bytes.IndexByte(b, 0)
	if end < 0 {
		return p.errorf(p.current, "unterminated "+desc, nil)
	}
	s := LcStr{Desc: desc, Value: string(b[:end])}
	if _, err := p.add(s, int64(end+1)); err != nil {
		return err
	}
	p.lc.Strings = append(p.lc.Strings, s)
	return nil
}

func (p *commandParser) preboundDylib() error {
	rec := p.lc.Record
	if err := p.lcStr("name", int64(rec.Uint("name_offset"))); err != nil {
		return err
	}
	if err := p.pad(unexpected("unexpected gap"), int64(rec.Uint("linked_modules_offset"))); err != nil {
		return err
	}
	n := (int64(rec.Uint("nmodules")) + 7) / 8
	if n > p.rest() {
		return p.errorf(p.current, "linked modules beyond end of load command", nil)
	}
	if n > 0 {
		b, err := p.bytes(n)
		if err != nil {
			return err
		}
		if _, err := p.add(ModuleVector(b), n); err != nil {
			return err
		}
	}
	return p.finish()
}

func (p *commandParser) segment() error {
	m, rec := p.m, p.lc.Record
	layout := types.Section
	if p.lc.Cmd == types.LC_SEGMENT_64 {
		layout = types.Section64
	}

	seg := &SegmentDescriptor{Name: rec.Str("segname"), Command: rec}
	nsects := rec.Uint("nsects")
	for i := uint64(0); i < nsects; i++ {
		r, err := p.decode(layout)
		if err != nil {
			return err
		}
		s := &SectionDescriptor{Segment: r.Str("segname"), Name: r.Str("sectname"), Record: r}
		seg.Sections = append(seg.Sections, s)
		m.sections = append(m.sections, s)
	}
	m.segments = append(m.segments, seg)

	if nsects == 0 {
		return nil
	}
	if err := p.pad(padding(p.lc.Cmd.String()), p.size); err != nil {
		return err
	}
	return p.wrap()
}

func (p *commandParser) thread() error {
	m := p.m
	cpu := m.FileHeader().CPU
	for p.rest() >= int64(types.ThreadStateHeader.Size()) {
		h, err := p.decode(types.ThreadStateHeader)
		if err != nil {
			return err
		}
		ts := ThreadState{Flavor: h.Uint32("flavor"), Count: h.Uint32("count")}
		n := int64(ts.Count) * 4
		if n > p.rest() {
			return p.errorf(p.current, "thread state beyond end of load command", nil)
		}
		if n > 0 {
			b, err := p.bytes(n)
			if err != nil {
				return err
			}
			ts.Regs = decodeRegs(cpu, ts.Flavor, b, m.order)
			if _, err := p.add(ts, n); err != nil {
				return err
			}
		}
		m.threads = append(m.threads, ts)
	}
	return p.finish()
}

func (p *commandParser) buildVersion() error {
	ntools := p.lc.Record.Uint("ntools")
	if ntools == 0 {
		return nil
	}
	for i := uint64(0); i < ntools; i++ {
		if _, err := p.decode(types.BuildToolVersion); err != nil {
			return err
		}
	}
	return p.finish()
}
