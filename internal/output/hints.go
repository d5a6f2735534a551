package output

import (
	"fmt"
	"strings"
)

// CommandHints maps command names to related commands users might want to run next
var CommandHints = map[string][]string{
	"login":                {"whoami", "nav"},
	"register":             {"login"},
	"logout":               {"login"},
	"whoami":               {"nav", "session status"},
	"nav":                  {"whoami"},
	"session status":       {"session refresh", "whoami"},
	"projects list":        {"projects show <id>", "offers list --pedido <id>"},
	"projects show":        {"offers create --pedido <id>", "observations list --project <id>"},
	"projects create":      {"projects list --mine"},
	"offers create":        {"offers list --mine"},
	"observations create":  {"observations list --project <id>"},
	"observations resolve": {"observations list --project <id>"},
	"metrics":              {"projects list", "observations list --project <id>"},
}

// PrintHints prints "See also" hints for a command. No-op in quiet mode or if command has no hints.
func (p *Printer) PrintHints(command string) {
	if p.quiet {
		return
	}
	hints, ok := CommandHints[command]
	if !ok || len(hints) == 0 {
		return
	}
	cmds := make([]string, len(hints))
	for i, h := range hints {
		cmds[i] = "collabctl " + h
	}
	fmt.Fprintf(p.out, "\nSee also: %s\n", strings.Join(cmds, ", "))
}
