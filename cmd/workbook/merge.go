package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/merge"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

// mergeSpec is the merge wizard's input expressed with sheet and column names.
type mergeSpec struct {
	target   string
	sources  []string
	match    []string // "[table:]col[,col...]", table defaults to the target
	merge    []string // "[table:]col[,col...]", table defaults to the first source
	newTable bool
	newName  string
}

func newMergeCmd(a *app) *cobra.Command {
	var spec mergeSpec
	var file string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Left-join columns of source sheets into a target sheet",
		Example: `  workbook merge --target orders --source customers --match id --merge customers:name,city
  workbook merge -f book.xlsx --target orders --source customers --match id --merge name --new-table joined`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.newTable = spec.newTable || spec.newName != ""
			if file != "" {
				return mergeFile(cmd, a, file, spec, dryRun)
			}

			s, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := s.OpenMerge(); err != nil {
				return err
			}
			if err := s.Plan(func(p *merge.Planner) error { return configureMerge(p, s.Store(), spec) }); err != nil {
				return err
			}
			if _, err := s.SubmitMerge(cmd.Context()); err != nil {
				return err
			}
			return printStore(cmd, s.Store(), "")
		},
	}

	f := cmd.Flags()
	f.StringVar(&spec.target, "target", "", "Target sheet name")
	f.StringSliceVar(&spec.sources, "source", nil, "Source sheet names (repeatable)")
	f.StringArrayVar(&spec.match, "match", nil, "Match columns as [sheet:]col[,col] (sheet defaults to the target)")
	f.StringArrayVar(&spec.merge, "merge", nil, "Merge columns as [sheet:]col[,col] (sheet defaults to the first source)")
	f.BoolVar(&spec.newTable, "create-new-table", false, "Write the result to a new sheet instead of replacing the target")
	f.StringVar(&spec.newName, "new-table", "", "Name of the new sheet (implies --create-new-table)")
	f.StringVarP(&file, "file", "f", "", "Merge inside a local .xlsx file instead of the project workbook")
	f.BoolVar(&dryRun, "dry-run", false, "With --file, print the result without writing it")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("source")
	return cmd
}

func mergeFile(cmd *cobra.Command, a *app, path string, spec mergeSpec, dryRun bool) error {
	wb, err := xlsx.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	store := workbook.NewStore(workbook.Options{Logger: a.log})
	if err := store.Load(wb); err != nil {
		return err
	}

	planner := merge.NewPlanner(store, merge.WithLogger(a.log))
	if err := planner.Open(); err != nil {
		return err
	}
	if err := configureMerge(planner, store, spec); err != nil {
		return err
	}
	req, err := planner.BeginSubmit()
	if err != nil {
		return err
	}

	out, err := store.Snapshot()
	if err != nil {
		return err
	}
	res, err := merge.Execute(&out, req)
	if ferr := planner.Finish(err); ferr != nil {
		return fmt.Errorf("finish merge: %w", ferr)
	}
	if err != nil {
		return err
	}
	if err := store.Load(out); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.String())
	if err := printStore(cmd, store, res.Sheet); err != nil {
		return err
	}
	if dryRun {
		return nil
	}
	return xlsx.WriteFile(path, out)
}

// configureMerge drives the planner from table selection through column
// configuration.
func configureMerge(p *merge.Planner, store *workbook.Store, spec mergeSpec) error {
	target, err := sheetIndex(store, spec.target)
	if err != nil {
		return err
	}
	sources := make([]int, 0, len(spec.sources))
	for _, name := range spec.sources {
		i, err := sheetIndex(store, name)
		if err != nil {
			return err
		}
		sources = append(sources, i)
	}
	if err := p.SelectTables(sources, target); err != nil {
		return err
	}

	defaultSource := ""
	if len(spec.sources) > 0 {
		defaultSource = spec.sources[0]
	}
	for _, m := range spec.match {
		table, cols, err := resolveColumns(store, m, spec.target)
		if err != nil {
			return err
		}
		if _, err := p.AddMatchColumns(table, cols...); err != nil {
			return err
		}
	}
	for _, m := range spec.merge {
		table, cols, err := resolveColumns(store, m, defaultSource)
		if err != nil {
			return err
		}
		if _, err := p.AddMergeColumns(table, cols...); err != nil {
			return err
		}
	}

	if spec.newTable {
		if _, err := p.SetCreateNewTable(true); err != nil {
			return err
		}
		if spec.newName != "" {
			return p.SetNewTableName(spec.newName)
		}
	}
	return nil
}

// resolveColumns turns "[table:]col[,col]" into a sheet index and column indices.
func resolveColumns(store *workbook.Store, ref, defaultTable string) (int, []int, error) {
	table, list := defaultTable, ref
	if t, l, ok := strings.Cut(ref, ":"); ok {
		table, list = t, l
	}

	idx, err := sheetIndex(store, table)
	if err != nil {
		return 0, nil, err
	}
	sheet, err := store.Sheet(idx)
	if err != nil {
		return 0, nil, err
	}

	var cols []int
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c := sheet.ColumnIndex(name)
		if c < 0 {
			return 0, nil, fmt.Errorf("sheet %q has no column %q", table, name)
		}
		cols = append(cols, c)
	}
	return idx, cols, nil
}

func sheetIndex(store *workbook.Store, name string) (int, error) {
	i := store.SheetIndex(name)
	if i < 0 {
		return 0, fmt.Errorf("sheet %q not found", name)
	}
	return i, nil
}
