package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vantage/pkg/errors"
	"vantage/pkg/statement"
	"vantage/pkg/statement/eval"
)

// newCheckCmd parses and evaluates a file of statements against a snapshot.
func newCheckCmd() *cobra.Command {
	var (
		refsPath string
		parallel bool
	)

	cmd := &cobra.Command{
		Use:   "check <snapshot.json> <statements.txt>",
		Short: "Evaluate architectural statements against a snapshot",
		Long: `Check reads statements from a text file (one per line, "#" starts a
comment), classifies each one, evaluates the formal ones and prints a
verdict per statement. The command fails when a must-statement is violated.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			ctx, err := loadResolutionContext(args[0], refsPath)
			if err != nil {
				return err
			}

			texts, err := readStatementLines(args[1])
			if err != nil {
				return err
			}

			stmts := make([]statement.Statement, len(texts))
			for i, text := range texts {
				stmts[i] = statement.New(text, ctx.References)
			}

			var results []eval.Result
			if parallel {
				results = eval.EvaluateAllParallel(ctx, stmts)
			} else {
				results = eval.EvaluateAll(ctx, stmts)
			}
			prog.done(fmt.Sprintf("Evaluated %d statements", len(stmts)))

			printNewline()
			var mustViolations, shouldViolations, skipped int
			for i, res := range results {
				st := stmts[i]
				switch res.Status {
				case eval.StatusSatisfied:
					printSuccess("%s", st.Text)
				case eval.StatusViolated:
					if res.Severity == statement.SeverityWarning {
						shouldViolations++
						printWarning("%s", st.Text)
					} else {
						mustViolations++
						printError("%s", st.Text)
					}
					printViolationDetail(res)
				default:
					skipped++
					printInfo("%s %s", st.Text, StyleDim.Render("["+string(st.Classification)+"]"))
					if res.Error != "" {
						printDetail("error: %s", res.Error)
					}
					for _, a := range res.Evidence.Ambiguities {
						printDetail("ambiguous: %s", a)
					}
					if len(st.UnresolvedNames) > 0 {
						printDetail("unresolved: %s", strings.Join(st.UnresolvedNames, ", "))
					}
				}
			}

			printNewline()
			printDetail("%d satisfied · %d violated · %d not evaluated",
				len(results)-mustViolations-shouldViolations-skipped, mustViolations+shouldViolations, skipped)

			if mustViolations > 0 {
				return errors.New(errors.ErrCodeInvalidInput, "%d must-statement(s) violated", mustViolations)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&refsPath, "refs", "", "JSON file with registered references")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "evaluate statements concurrently")
	return cmd
}

func printViolationDetail(res eval.Result) {
	if len(res.Evidence.Offenders) > 0 {
		printDetail("offenders: %s", strings.Join(res.Evidence.Offenders, ", "))
	}
	for _, e := range res.Evidence.OffendingEdges {
		printDetail("edge: %s %s %s", e.Source, iconArrow, e.Target)
	}
	for _, n := range res.Evidence.Notes {
		printDetail("%s", n)
	}
}

// readStatementLines loads one statement per non-empty, non-comment line.
func readStatementLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open statements file")
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read statements file")
	}
	return out, nil
}
