package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blacktop/go-dwarf"
)

func TestPrintCompileUnits(t *testing.T) {
	abbrev := []byte{
		0x01, 0x11, 0x00, // compile unit, no children
		0x03, 0x08, // DW_AT_name, DW_FORM_string
		0x25, 0x08, // DW_AT_producer, DW_FORM_string
		0x00, 0x00, 0x00,
	}
	info := []byte{
		0x11, 0x00, 0x00, 0x00,
		0x02, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x08,
		0x01, 'a', '.', 'c', 0x00, 'c', 'c', ' ', '1', 0x00,
	}
	d, err := dwarf.New(abbrev, nil, nil, info, nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := printCompileUnits(&buf, d); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "a.c ") || !strings.Contains(got, "producer=cc 1") {
		t.Errorf("printCompileUnits() = %q", got)
	}
}
