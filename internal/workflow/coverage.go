package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// reportCoverageTotal reads the coverage database the instrumented test run
// left behind and prints the overall percentage. The HTML report is the real
// deliverable; this is a convenience summary, so a missing or unreadable
// database is logged rather than failing the task.
func (w *Workflow) reportCoverageTotal(ctx context.Context) error {
	path := filepath.Join(w.Root, "coverage.json")
	data, err := os.ReadFile(path)
	if err != nil {
		w.Logger.Warn("coverage database not readable", "path", path, "error", err)
		return nil
	}

	total := gjson.GetBytes(data, "totals.percent_covered")
	if !total.Exists() {
		w.Logger.Warn("coverage database has no totals", "path", path)
		return nil
	}

	fmt.Fprintf(w.Stdout, "total coverage: %.1f%%\n", total.Float())
	w.Logger.Info("coverage total", "percent", total.Float())
	return nil
}
