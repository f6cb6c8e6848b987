package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/config"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/ukaji3/workbook-go/pkg/workbook/server"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

func newShowCmd(a *app) *cobra.Command {
	var file, sheet string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the project workbook, or a local Excel file, as tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := workbook.NewStore(workbook.Options{Logger: a.log})
			if file != "" {
				wb, err := xlsx.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				if err := store.Load(wb); err != nil {
					return err
				}
			} else {
				s, err := a.session()
				if err != nil {
					return err
				}
				if err := s.Reload(cmd.Context()); err != nil {
					return err
				}
				store = s.Store()
			}
			return printStore(cmd, store, sheet)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Show a local .xlsx file instead of the project workbook")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Only show this sheet")
	return cmd
}

func printStore(cmd *cobra.Command, store *workbook.Store, only string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(store.Name()))
	for i, name := range store.SheetNames() {
		if only != "" && name != only {
			continue
		}
		sheet, err := store.Sheet(i)
		if err != nil {
			return err
		}
		var sel workbook.Selection
		if i == store.ActiveIndex() {
			sel = store.Selection()
		}
		fmt.Fprintln(out, renderSheet(sheet, sel))
	}
	if store.HasData() {
		fmt.Fprintln(out, renderStatus(store.Status()))
	}
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the project workbook as an Excel file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session()
			if err != nil {
				return err
			}
			if err := s.Reload(cmd.Context()); err != nil {
				return err
			}
			if output == "" {
				output = s.Store().Name() + ".xlsx"
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := s.ExportExcel(f); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <workbook name>.xlsx)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [input.xlsx]",
		Short: "Upload an Excel file as the project workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", inputPath)
			}

			if filepath.Ext(inputPath) == ".xlsx" {
				infos, err := xlsx.Inspect(inputPath)
				if err != nil {
					return fmt.Errorf("inspect %s: %w", inputPath, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderInfos(infos))
			}

			s, err := a.session()
			if err != nil {
				return err
			}
			f, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = s.ImportExcel(cmd.Context(), inputPath, f)
			return err
		},
	}
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var host, dataDir string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the file-backed persistence service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return server.New(cfg, server.WithLogger(a.log)).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding one folder per project")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream change events of the project workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			return c.Watch(ctx, func(ev models.Event) {
				fmt.Fprintln(out, renderEvent(ev))
			})
		},
	}
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "workbook.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.ConfigPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(defaults)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.cfg.ConfigPath)
			return nil
		},
	})
	return cmd
}
