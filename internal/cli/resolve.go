package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"vantage/pkg/refs"
)

// newResolveCmd resolves a reference name or an ad-hoc definition to the
// set of entities it denotes.
func newResolveCmd() *cobra.Command {
	var refsPath string

	cmd := &cobra.Command{
		Use:   "resolve <snapshot.json> <name | definition>",
		Short: "Resolve a reference to its member entities",
		Long: `Resolve a reference against a snapshot. The second argument is either the
name of a reference registered in the --refs file, or an ad-hoc definition
such as "components tagged with payment AND NOT deprecated".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadResolutionContext(args[0], refsPath)
			if err != nil {
				return err
			}

			var members map[string]struct{}
			if _, ok := ctx.Lookup(args[1]); ok {
				members, err = refs.ResolveName(ctx, args[1])
			} else {
				var def refs.Definition
				def, err = refs.ParseDefinition(args[1])
				if err == nil {
					members, err = refs.Resolve(ctx, refs.Reference{Name: "adhoc", Definition: def})
				}
			}
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(members))
			for k := range members {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			printSuccess("%d member(s)", len(keys))
			for _, k := range keys {
				fmt.Println("  " + StyleValue.Render(k))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&refsPath, "refs", "", "JSON file with registered references")
	return cmd
}
