package output

import (
	"strings"
	"testing"
)

func TestPrintHints_KnownCommand(t *testing.T) {
	p, stdout, _ := newTestPrinter(false)

	p.PrintHints("login")

	out := stdout.String()
	if !strings.Contains(out, "See also") || !strings.Contains(out, "collabctl whoami") {
		t.Errorf("expected whoami hint for login, got: %q", out)
	}
}

func TestPrintHints_UnknownCommand(t *testing.T) {
	p, stdout, _ := newTestPrinter(false)
	p.PrintHints("nonexistent")
	if stdout.Len() != 0 {
		t.Errorf("expected no output for unknown command, got: %q", stdout.String())
	}
}

func TestPrintHints_Quiet(t *testing.T) {
	p, stdout, _ := newTestPrinter(true)
	p.PrintHints("login")
	if stdout.Len() != 0 {
		t.Errorf("expected no output in quiet mode, got: %q", stdout.String())
	}
}
