package colors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestInit(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	on := true
	Init(&on)
	if !Enabled() {
		t.Error("Init(true) left colors disabled")
	}

	off := false
	Init(&off)
	if Enabled() {
		t.Error("Init(false) left colors enabled")
	}

	Init(nil)
	if Enabled() {
		t.Error("Init(nil) changed the setting")
	}
}

func TestSprint(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = false
	if got := BoldCyan().Sprint("LC_UUID"); !strings.Contains(got, "\x1b[") || !strings.Contains(got, "LC_UUID") {
		t.Errorf("BoldCyan().Sprint() = %q", got)
	}
	color.NoColor = true
	if got := Faint().Sprint("padding"); got != "padding" {
		t.Errorf("Faint().Sprint() with colors off = %q", got)
	}
}
