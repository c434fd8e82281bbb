package report

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/patient-import/internal/importer"
	"github.com/ginjaninja78/patient-import/internal/reconcile"
)

// Summary renders the analysis for a terminal: the reconciliation counts,
// then every warning and error by row, then the commit outcome if given.
func Summary(a *importer.Analysis, commit *importer.CommitResult) string {
	var b strings.Builder

	if a.SourceFile != "" {
		fmt.Fprintf(&b, "Source: %s\n", a.SourceFile)
	}
	b.WriteString(reconcile.HumanSummary(a.Records, a.Duplicates, reconcile.Classification{
		Groups:             a.TransactionGroups,
		PromotionalIndices: a.PromotionalIndices,
		Conflicts:          a.Conflicts,
	}))

	if len(a.BatchCollisions) > 0 {
		fmt.Fprintf(&b, "\nCodes repeated within the file: %d\n", len(a.BatchCollisions))
	}

	if len(a.Warnings) > 0 {
		fmt.Fprintf(&b, "\nIssues (%d errors, %d warnings):\n", a.Stats.Errors, a.Stats.Warnings)
		for _, w := range a.Warnings {
			fmt.Fprintf(&b, "- %s\n", w.Error())
		}
	}

	if commit != nil {
		fmt.Fprintf(&b, "\nCommitted: %d\n", commit.Written)
		if len(commit.Failures) > 0 {
			fmt.Fprintf(&b, "Failed: %d\n", len(commit.Failures))
			for _, f := range commit.Failures {
				fmt.Fprintf(&b, "- %s\n", f.Error())
			}
		}
	}

	return b.String()
}
