package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vantage/internal/config"
	"vantage/internal/store"
	"vantage/pkg/errors"
	"vantage/pkg/graph"
	"vantage/pkg/statement"
)

// newWorkspaceCmd manages stored workspaces.
func newWorkspaceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage stored workspaces",
		Long:  `Workspace commands operate on the MongoDB store configured in vantage.toml.`,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to vantage.toml")

	cmd.AddCommand(newWorkspaceListCmd(&configPath))
	cmd.AddCommand(newWorkspaceImportCmd(&configPath))
	cmd.AddCommand(newWorkspaceShowCmd(&configPath))
	cmd.AddCommand(newWorkspaceRemoveCmd(&configPath))
	cmd.AddCommand(newWorkspacePickCmd(&configPath))
	return cmd
}

// openStore connects to the configured MongoDB store. Workspace commands
// need durable storage, so a missing URI is an error rather than a silent
// fall back to memory.
func openStore(ctx context.Context, configPath string) (*store.Mongo, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "workspace commands require a mongodb uri (set [mongo] uri in vantage.toml or VANTAGE_MONGO_URI)")
	}
	return store.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
}

func newWorkspaceListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			list, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("no workspaces stored")
				return nil
			}
			for _, ws := range list {
				fmt.Printf("  %s  %s %s\n",
					StyleHighlight.Render(ws.ID),
					StyleValue.Render(ws.Name),
					StyleDim.Render(fmt.Sprintf("(rev %d, %d components, %d statements)",
						ws.Revision, len(ws.Snapshot.Components), len(ws.Statements))))
			}
			return nil
		},
	}
}

func newWorkspaceImportCmd(configPath *string) *cobra.Command {
	var (
		refsPath  string
		stmtsPath string
	)

	cmd := &cobra.Command{
		Use:   "import <name> <snapshot.json>",
		Short: "Import a snapshot as a new workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			snap, err := graph.ReadSnapshotFile(args[1])
			if err != nil {
				return err
			}
			references, err := loadReferences(refsPath)
			if err != nil {
				return err
			}

			ws := &store.Workspace{
				ID:         uuid.NewString(),
				Name:       args[0],
				Snapshot:   snap,
				References: references,
			}
			if stmtsPath != "" {
				texts, err := readStatementLines(stmtsPath)
				if err != nil {
					return err
				}
				refMap := ws.ReferenceMap()
				for _, text := range texts {
					ws.Statements = append(ws.Statements, statement.New(text, refMap))
				}
			}

			st, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			if err := st.Create(ctx, ws); err != nil {
				return err
			}
			printSuccess("Workspace %s imported", StyleHighlight.Render(ws.Name))
			printKeyValue("id", ws.ID)
			printStats(len(ws.Snapshot.Components), len(ws.Snapshot.Dependencies))
			return nil
		},
	}

	cmd.Flags().StringVar(&refsPath, "refs", "", "JSON file with registered references")
	cmd.Flags().StringVar(&stmtsPath, "statements", "", "text file with one statement per line")
	return cmd
}

func newWorkspaceShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			ws, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			ws.Rehydrate()

			printKeyValue("id", ws.ID)
			printKeyValue("name", ws.Name)
			printKeyValue("revision", fmt.Sprintf("%d", ws.Revision))
			printKeyValue("components", fmt.Sprintf("%d", len(ws.Snapshot.Components)))
			printKeyValue("references", fmt.Sprintf("%d", len(ws.References)))
			printKeyValue("statements", fmt.Sprintf("%d", len(ws.Statements)))
			for _, s := range ws.Statements {
				marker := StyleDim.Render(string(s.Classification))
				fmt.Printf("  %s %s\n", marker, s.Text)
			}
			return nil
		},
	}
}

func newWorkspaceRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Workspace %s deleted", args[0])
			return nil
		},
	}
}

func newWorkspacePickCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pick",
		Short: "Interactively select a workspace and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close(ctx) }()

			list, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("no workspaces stored")
				return nil
			}

			model := NewWorkspaceListModel(list)
			final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "run workspace picker")
			}

			picked, ok := final.(WorkspaceListModel)
			if !ok || picked.Selected == nil {
				printInfo("nothing selected")
				return nil
			}
			fmt.Println(picked.Selected.ID)
			return nil
		},
	}
}
