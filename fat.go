package macho

import (
	"fmt"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/appsworld/go-machview/pkg/byterange"
	"github.com/appsworld/go-machview/pkg/record"
	"github.com/appsworld/go-machview/types"
)

// A Fat is a universal binary holding one Mach-O slice per architecture.
type Fat struct {
	node   byterange.Node
	Header *record.Record
	Arches []FatArch
}

// A FatArch is one slice of a fat binary.
type FatArch struct {
	types.FatArchHeader
	Record *record.Record
	// Node spans the slice. Its payload is the slice's *MachO.
	Node byterange.Node
	*MachO
}

func (a FatArch) String() string {
	return fmt.Sprintf("%s, %s offset=%#x size=%#x align=2^%d",
		a.CPU, a.SubCPU.String(a.CPU), a.Offset, a.Size, a.Align)
}

// NewFat decodes the fat header and arch table at the start of n and parses
// every slice. Slices are parsed Config.Concurrency at a time.
func NewFat(n byterange.Node, config ...Config) (*Fat, error) {
	cfg := firstConfig(config)
	fat := &Fat{node: n}

	hdrSize := int64(types.FatHeader.Size())
	b, err := n.Bytes(0, hdrSize)
	if err != nil {
		return nil, &FormatError{off: n.AbsStart(), msg: "truncated fat header", err: err}
	}
	if fat.Header, err = types.FatHeader.Decode(b); err != nil {
		return nil, &FormatError{off: n.AbsStart(), msg: "invalid fat header", err: err}
	}
	if _, err := n.AddSubrange(0, hdrSize, fat.Header); err != nil {
		return nil, err
	}

	ctx := record.NewContext(nil)
	archSize := int64(types.FatArch.Size())
	off := hdrSize
	for i := uint32(0); i < fat.Header.Uint32("nfat_arch"); i++ {
		b, err := n.Bytes(off, off+archSize)
		if err != nil {
			return nil, &FormatError{off: n.AbsStart() + off, msg: "truncated fat_arch", val: i, err: err}
		}
		r, err := types.FatArch.DecodeWith(b, ctx)
		if err != nil {
			return nil, &FormatError{off: n.AbsStart() + off, msg: "invalid fat_arch", val: i, err: err}
		}
		if _, err := n.AddSubrange(off, archSize, r); err != nil {
			return nil, err
		}
		fat.Arches = append(fat.Arches, FatArch{FatArchHeader: types.FatArchFromRecord(r), Record: r})
		off += archSize
	}

	for i := range fat.Arches {
		a := &fat.Arches[i]
		node, err := n.AddSubrange(int64(a.Offset), int64(a.Size), nil)
		if err != nil {
			return nil, &FormatError{off: int64(a.Offset), msg: "bad fat slice", val: a.CPU, err: err}
		}
		a.Node = node
	}

	var g errgroup.Group
	g.SetLimit(max(1, cfg.Concurrency))
	for i := range fat.Arches {
		a := &fat.Arches[i]
		g.Go(func() error {
			log.WithFields(log.Fields{
				"cpu":    a.CPU,
				"offset": fmt.Sprintf("%#x", a.Offset),
			}).Debug("parsing fat slice")
			m, err := NewMachO(a.Node, cfg)
			if err != nil {
				return errors.Wrapf(err, "fat slice %s", a.CPU)
			}
			a.MachO = m
			a.Node.SetData(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := n.ScanGap(func(_, _ int64) any { return padding("alignment") }); err != nil {
		return nil, err
	}
	return fat, nil
}

func (f *Fat) Node() byterange.Node { return f.node }

func (f *Fat) String() string {
	return fmt.Sprintf("Fat Mach-O: %d arches", len(f.Arches))
}
