package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

func (a *app) migrate() error {
	sqlDB := stdlib.OpenDBFromPool(a.db.Pool)
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, a.cfg.MigrationsPath, a.logger); err != nil {
		return err
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate()
		},
	}
}

type exportOptions struct {
	out string
}

func newExportCmd() *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole catalog as one JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, release, err := a.db.WithScope(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			doc, err := a.transfers.Export(ctx)
			if err != nil {
				return fmt.Errorf("export catalog: %w", err)
			}

			w := cmd.OutOrStdout()
			if opts.out != "" && opts.out != "-" {
				f, err := os.Create(opts.out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeJSON(w, doc); err != nil {
				return err
			}
			a.logger.Info("Exported catalog", zap.String("out", opts.out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	return cmd
}

type importOptions struct {
	kind    string
	file    string
	preview bool
}

func newImportCmd() *cobra.Command {
	opts := importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one JSON collection into the catalog",
		Long: `Import reads a JSON array of rows for one collection and reconciles it
against the catalog. Rows are matched by natural key: new rows are added,
changed rows updated, and rows that cannot be resolved are skipped.

With --preview the plan is printed and nothing is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.ImportKind(opts.kind)
			if !kind.IsValid() {
				return fmt.Errorf("unknown import kind %q", opts.kind)
			}

			data, err := readInput(cmd.InOrStdin(), opts.file)
			if err != nil {
				return err
			}
			rows, err := jsonutil.DecodeObjects(data)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, release, err := a.db.WithScope(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if opts.preview {
				plan, err := a.imports.Plan(ctx, kind, rows)
				if err != nil {
					return err
				}
				result, err := a.imports.Summarize(plan, nil)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"result": result, "items": plan.Items})
			}

			result, err := a.imports.Import(ctx, kind, rows)
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "collection to import (areas, process_steps, use_cases, usecase_area_relevance, ...)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON file to read (default stdin)")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "print the import plan without writing")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

type importDatabaseOptions struct {
	file  string
	clear bool
}

func newImportDatabaseCmd() *cobra.Command {
	opts := importDatabaseOptions{}

	cmd := &cobra.Command{
		Use:   "import-database",
		Short: "Restore or merge a full catalog export",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), opts.file)
			if err != nil {
				return err
			}
			var doc models.ExportDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("invalid export document: %w", err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, release, err := a.db.WithScope(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			result, err := a.transfers.Import(ctx, &doc, opts.clear)
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "export document to read (default stdin)")
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "empty every table before restoring")
	return cmd
}

type createUserOptions struct {
	username string
	password string
}

func newCreateUserCmd() *cobra.Command {
	opts := createUserOptions{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a login account",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := opts.password
			if password == "" {
				var err error
				password, err = readPassword(cmd)
				if err != nil {
					return err
				}
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, release, err := a.db.WithScope(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, err := a.users.Create(ctx, opts.username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "login name")
	cmd.Flags().StringVar(&opts.password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readPassword prompts on a terminal, otherwise reads the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
