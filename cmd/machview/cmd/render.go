package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	macho "github.com/appsworld/go-machview"
	"github.com/appsworld/go-machview/internal/colors"
	"github.com/appsworld/go-machview/pkg/record"
)

var (
	rangeColor     = colors.Faint().SprintfFunc()
	recordColor    = colors.BoldCyan().SprintFunc()
	fieldColor     = colors.FaintCyan().SprintFunc()
	blockColor     = colors.Magenta().SprintFunc()
	segmentColor   = colors.Blue().SprintFunc()
	stringColor    = colors.Green().SprintFunc()
	paddingColor   = colors.Faint().SprintFunc()
	badColor       = colors.BoldHiRed().SprintFunc()
	containerColor = colors.BoldHiBlue().SprintFunc()
	symAddrColor   = colors.Faint().SprintfFunc()
	symTypeColor   = colors.FaintCyan().SprintfFunc()
	symSectColor   = colors.FaintMagenta().SprintfFunc()
	symNameColor   = colors.Bold().SprintFunc()
)

// describe renders the payload of one tree node.
func describe(data any) string {
	switch d := data.(type) {
	case nil:
		return paddingColor("<nil>")
	case *record.Record:
		return recordColor(d.Name()) + " " + fieldColor(fieldList(d))
	case macho.Padding:
		if d.Unexpected {
			return badColor(d.String())
		}
		return paddingColor(d.String())
	case *macho.MachO:
		return containerColor(d.String())
	case *macho.Fat:
		return containerColor(d.String())
	case macho.LoadCommandBlock, macho.LinkEditData, macho.SymbolTableBlock, macho.StringTableBlock,
		macho.CodeSignatureBlob, macho.ChainedImportTable:
		return blockColor(fmt.Sprint(d))
	case macho.SegmentBlock, macho.SectionBlock, macho.EncryptedBlock:
		return segmentColor(fmt.Sprint(d))
	case macho.CString, macho.LcStr:
		return stringColor(fmt.Sprint(d))
	case fmt.Stringer:
		return d.String()
	}
	return fmt.Sprintf("%v", data)
}

func fieldList(r *record.Record) string {
	fields := r.Layout().Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + "=" + r.Display(f.Name)
	}
	return strings.Join(parts, ", ")
}

// treeLine renders one node at depth with its absolute span.
func treeLine(data any, start, stop int64, depth int) string {
	return fmt.Sprintf("%s%s %s %s",
		strings.Repeat("  ", depth),
		rangeColor("[%#08x-%#08x]", start, stop),
		rangeColor("%-9s", humanize.IBytes(uint64(stop-start))),
		describe(data),
	)
}
