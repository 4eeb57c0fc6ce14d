package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jokerealm/ai-slides/internal/backends"
	"github.com/Jokerealm/ai-slides/internal/codegen"
	"github.com/Jokerealm/ai-slides/internal/config"
	"github.com/Jokerealm/ai-slides/internal/database"
	"github.com/Jokerealm/ai-slides/internal/model"
	"github.com/Jokerealm/ai-slides/internal/registry"
	"github.com/Jokerealm/ai-slides/internal/schema"
	"github.com/Jokerealm/ai-slides/internal/state"
)

// NewRootCommand builds the slidesdb command tree
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "slidesdb",
		Short: "ai-slides database tool",
		Long: `slidesdb manages the ai-slides database: it runs the registered migrations,
inspects their history, checks the schema against the models and generates
registration files for new migration scripts.`,
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (default: $SLIDES_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(
		newUpCommand(&configPath),
		newDownCommand(&configPath),
		newListCommand(&configPath),
		newHistoryCommand(&configPath),
		newSchemaCommand(&configPath),
		newBuildCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

func newUpCommand(configPath *string) *cobra.Command {
	var test bool
	cmd := &cobra.Command{
		Use:   "up [migration]",
		Short: "Upgrade one migration, or every pending one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{configPath: *configPath, test: test, method: state.MethodCLI}
			if len(args) == 1 {
				return runMigration(cmd, args[0], backends.Up, opts)
			}
			return runPending(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "Ask for confirmation before touching the database")
	return cmd
}

func newDownCommand(configPath *string) *cobra.Command {
	var test bool
	cmd := &cobra.Command{
		Use:   "down <migration>",
		Short: "Downgrade one migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, args[0], backends.Down, runOptions{configPath: *configPath, test: test, method: state.MethodCLI})
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "Ask for confirmation before touching the database")
	return cmd
}

// runPending upgrades every migration that has not been applied yet
func runPending(cmd *cobra.Command, opts runOptions) error {
	out := cmd.OutOrStdout()
	if opts.test && !Confirm(cmd.InOrStdin(), out) {
		fmt.Fprintln(out, "Migration cancelled")
		return nil
	}

	rt, err := OpenRuntime(cmd.Context(), opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	result, err := rt.Executor.ExecuteUp(cmd.Context(), &registry.MigrationTarget{})
	if err != nil {
		return err
	}
	for _, run := range result.Results {
		Report(out, run)
	}
	for _, id := range result.Skipped {
		fmt.Fprintf(out, "Skipped %s (already applied)\n", id)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrMigrationFailed, strings.Join(result.Errors, "; "))
	}
	fmt.Fprintf(out, "Applied %d migration(s)\n", len(result.Applied))
	fmt.Fprintln(out, "Migration completed!")
	return nil
}

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the migrations available for the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := OpenRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tCONNECTION\tSTATUS")
			for _, m := range rt.Executor.Migrations() {
				status := "pending"
				applied, err := rt.Executor.IsMigrationApplied(cmd.Context(), m)
				if err != nil {
					return err
				}
				if applied {
					status = "applied"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Version, m.Name, m.Connection, status)
			}
			return w.Flush()
		},
	}
}

func newHistoryCommand(configPath *string) *cobra.Command {
	var filters state.MigrationFilters
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded migration runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := OpenRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			records, err := rt.Executor.History(cmd.Context(), &filters)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "APPLIED AT\tMIGRATION\tDIRECTION\tSTATUS\tSTATEMENTS\tFAILED\tDURATION\tBY")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					r.AppliedAt.Format("2006-01-02 15:04:05"), r.MigrationID, r.Direction, r.Status,
					r.Statements, r.FailedStatements, r.Duration, r.ExecutedBy)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filters.Name, "name", "", "Only show runs of this migration")
	cmd.Flags().StringVar(&filters.Status, "status", "", "Only show runs with this status (success, failed, rolled_back)")
	cmd.Flags().IntVar(&filters.Limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func newSchemaCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and create the application schema",
	}

	var dialect string
	ddlCmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE statements of the application schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dialect == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				dialect = cfg.Database.Type
			}
			stmts, err := schema.Default().CreateStatements(config.NormalizeDatabaseType(dialect))
			if err != nil {
				return err
			}
			for _, stmt := range stmts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
			}
			return nil
		},
	}
	ddlCmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect: sqlite, postgresql or mysql (default: configured database type)")

	var useORM bool
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Create missing tables and indexes in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if useORM {
				err = model.AutoMigrate(db.WithContext(cmd.Context()))
			} else {
				err = schema.Apply(cmd.Context(), db, schema.Default(), cfg.Database.Type)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied")
			return nil
		},
	}

	applyCmd.Flags().BoolVar(&useORM, "orm", false, "Create the tables from the models instead of the catalog DDL")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the configured database with the application schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			drifts, err := schema.Check(cmd.Context(), db, schema.Default())
			if err != nil {
				return err
			}
			for _, d := range drifts {
				fmt.Fprintln(cmd.OutOrStdout(), d.String())
			}
			if len(drifts) > 0 {
				return fmt.Errorf("schema drift: %d difference(s)", len(drifts))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}

	cmd.AddCommand(ddlCmd, applyCmd, checkCmd)
	return cmd
}

func newBuildCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "build [migrations-path]",
		Short: "Generate registration .go files for migration scripts",
		Long: `Build generates .go files from the migration scripts in a directory laid out as:
  {path}/{backend}/{connection}/{version}_{name}.up.sql
  {path}/{backend}/{connection}/{version}_{name}.down.sql

Example:
  slidesdb build migrations
  slidesdb build migrations --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "./migrations"
			if len(args) > 0 {
				root = args[0]
			}

			paths, err := codegen.Generate(root, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintln(out, "No migration files found in the specified directory")
				return nil
			}
			for _, p := range paths {
				if dryRun {
					fmt.Fprintf(out, "[DRY RUN] Would generate: %s\n", p)
				} else {
					fmt.Fprintf(out, "Generated: %s\n", p)
				}
			}
			if dryRun {
				fmt.Fprintf(out, "\nWould generate %d migration file(s)\n", len(paths))
			} else {
				fmt.Fprintf(out, "\nSuccessfully generated %d migration file(s)\n", len(paths))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be generated without creating files")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "slidesdb version %s\n", Version)
		},
	}
}

