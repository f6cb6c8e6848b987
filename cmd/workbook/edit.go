package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

const editHelp = `Operations run in order against the active sheet:

  sheet:<index>                switch the active sheet
  add-sheet[:<name>]           append a sheet (default name 表格<n+1>)
  rename-sheet:<index>=<name>  rename a sheet
  delete-sheet:<index>         delete a sheet
  add-column                   append a column
  add-row                      append a row
  rename-column:<col>=<name>   rename a column
  delete-column:<col>          select and delete a column
  delete-row:<row>             select and delete a row
  set:<row>,<col>=<value>      set a cell

Indices are 0-based.`

// editOp is one parsed edit operation.
type editOp struct {
	text  string
	apply func(s *workbook.Store) error
}

func newEditCmd(a *app) *cobra.Command {
	var file string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "edit op...",
		Short: "Apply edit operations to the project workbook and save it",
		Long:  editHelp,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseOps(args)
			if err != nil {
				return err
			}

			if file != "" {
				return editFile(cmd, a, file, ops, dryRun)
			}

			s, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Reload(cmd.Context()); err != nil {
				return err
			}
			for _, op := range ops {
				if err := s.Edit(op.apply); err != nil {
					return fmt.Errorf("%s: %w", op.text, err)
				}
			}
			if err := printStore(cmd, s.Store(), ""); err != nil {
				return err
			}
			if dryRun {
				return nil
			}
			return s.Save(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Edit a local .xlsx file instead of the project workbook")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the result without saving")
	return cmd
}

func editFile(cmd *cobra.Command, a *app, path string, ops []editOp, dryRun bool) error {
	wb, err := xlsx.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	store := workbook.NewStore(workbook.Options{Logger: a.log})
	if err := store.Load(wb); err != nil {
		return err
	}
	if err := applyOps(store, ops); err != nil {
		return err
	}
	if err := printStore(cmd, store, ""); err != nil {
		return err
	}
	if dryRun {
		return nil
	}
	out, err := store.Snapshot()
	if err != nil {
		return err
	}
	return xlsx.WriteFile(path, out)
}

func applyOps(store *workbook.Store, ops []editOp) error {
	for _, op := range ops {
		if err := op.apply(store); err != nil {
			return fmt.Errorf("%s: %w", op.text, err)
		}
	}
	return nil
}

func parseOps(args []string) ([]editOp, error) {
	ops := make([]editOp, 0, len(args))
	for _, arg := range args {
		op, err := parseOp(arg)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOp(text string) (editOp, error) {
	name, arg, _ := strings.Cut(text, ":")
	op := editOp{text: text}

	switch name {
	case "sheet":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return op, fmt.Errorf("%s: invalid sheet index", text)
		}
		op.apply = func(s *workbook.Store) error { return s.SwitchSheet(i) }

	case "add-sheet":
		op.apply = func(s *workbook.Store) error {
			name := arg
			if name == "" {
				name = s.SuggestSheetName()
			}
			return s.CreateSheet(name)
		}

	case "rename-sheet":
		i, name, err := indexAssign(text, arg)
		if err != nil {
			return op, err
		}
		op.apply = func(s *workbook.Store) error { return s.RenameSheet(i, name) }

	case "delete-sheet":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return op, fmt.Errorf("%s: invalid sheet index", text)
		}
		op.apply = func(s *workbook.Store) error { return s.DeleteSheet(i) }

	case "add-column":
		op.apply = func(s *workbook.Store) error {
			_, err := s.AddColumn()
			return err
		}

	case "add-row":
		op.apply = func(s *workbook.Store) error { return s.AddRow() }

	case "rename-column":
		col, name, err := indexAssign(text, arg)
		if err != nil {
			return op, err
		}
		op.apply = func(s *workbook.Store) error { return s.RenameColumn(col, name) }

	case "delete-column":
		col, err := strconv.Atoi(arg)
		if err != nil {
			return op, fmt.Errorf("%s: invalid column index", text)
		}
		op.apply = func(s *workbook.Store) error {
			if err := s.SelectColumn(col); err != nil {
				return err
			}
			return s.DeleteSelectedColumn()
		}

	case "delete-row":
		row, err := strconv.Atoi(arg)
		if err != nil {
			return op, fmt.Errorf("%s: invalid row index", text)
		}
		op.apply = func(s *workbook.Store) error {
			if err := s.SelectRow(row); err != nil {
				return err
			}
			return s.DeleteSelectedRow()
		}

	case "set":
		pos, value, ok := strings.Cut(arg, "=")
		rs, cs, ok2 := strings.Cut(pos, ",")
		row, err1 := strconv.Atoi(rs)
		col, err2 := strconv.Atoi(cs)
		if !ok || !ok2 || err1 != nil || err2 != nil {
			return op, fmt.Errorf("%s: expected set:<row>,<col>=<value>", text)
		}
		op.apply = func(s *workbook.Store) error {
			if err := s.SelectCell(row, col); err != nil {
				return err
			}
			return s.SetCell(row, col, value)
		}

	default:
		return op, fmt.Errorf("unknown operation %q", name)
	}
	return op, nil
}

// indexAssign parses "<index>=<value>".
func indexAssign(text, arg string) (int, string, error) {
	is, value, ok := strings.Cut(arg, "=")
	i, err := strconv.Atoi(is)
	if !ok || err != nil {
		return 0, "", fmt.Errorf("%s: expected <index>=<name>", text)
	}
	return i, value, nil
}
