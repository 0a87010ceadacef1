package workflow

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"toil/internal/task"
)

var (
	helpNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Width(18)
	helpDescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// renderHelp lists every documented task. Undocumented tasks (the
// integration subsets) are callable but kept out of the listing, matching
// their role as internals of the aggregate.
func (w *Workflow) renderHelp(reg *task.Registry) error {
	styled := false
	if f, ok := w.Stdout.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	for _, name := range reg.SortedNames() {
		t, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		if !t.Documented() {
			continue
		}
		if styled {
			fmt.Fprintf(w.Stdout, "%s %s\n", helpNameStyle.Render(t.Name), helpDescStyle.Render(t.Description))
		} else {
			fmt.Fprintf(w.Stdout, "%-18s %s\n", t.Name, t.Description)
		}
	}
	return nil
}
