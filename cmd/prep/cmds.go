package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/prep/internal/core"
	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/export"
	"github.com/JonMunkholm/prep/internal/ingest"
	"github.com/JonMunkholm/prep/internal/recipe"
	"github.com/JonMunkholm/prep/internal/report"
)

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "apply input-file",
		Short: "Apply a YAML recipe and write the cleaned data",
		Args:  cobra.ExactArgs(1),
		RunE:  applyRecipe}
	cmd.Flags().StringP("recipe", "r", "", "recipe file (required)")
	cmd.Flags().StringP("out", "o", "", "output file (default: CSV on stdout)")
	cmd.Flags().String("format", "", "output format: csv or xlsx (default: from --out extension)")
	_ = cmd.MarkFlagRequired("recipe")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "profile input-file",
		Short: "Print the health check of a file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  profileFile}
	addIngestFlags(cmd)
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "report input-file",
		Short: "Print correlations, distributions and time series as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  reportFile}
	addIngestFlags(cmd)
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "ops",
		Short: "List the available operations",
		Args:  cobra.NoArgs,
		RunE:  listOps}
	cmd.Flags().Bool("json", false, "print as JSON")
	root.AddCommand(cmd)
}

func addIngestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("delimiter", "d", "comma", "field separator: comma, tab, semicolon, pipe or a character")
	cmd.Flags().Bool("no-header", false, "treat the first row as data")
}

// openInput opens path, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(path), nil
}

// loadFrame ingests the input file with the command's ingest flags.
func loadFrame(cmd *cobra.Command, path string) (*dataset.Frame, error) {
	in, name, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	d, _ := cmd.Flags().GetString("delimiter")
	delim, err := ingest.ParseDelimiter(d)
	if err != nil {
		return nil, err
	}
	noHeader, _ := cmd.Flags().GetBool("no-header")

	svc := core.NewService(nil, core.Options{})
	sess, res, err := svc.CreateSession(cmd.Context(), core.Upload{
		Name:      name,
		Body:      in,
		Delimiter: delim,
		NoHeader:  noHeader,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		slog.Warn(w, "file", name)
	}
	return sess.Current()
}

func showJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func profileFile(cmd *cobra.Command, args []string) error {
	f, err := loadFrame(cmd, args[0])
	if err != nil {
		return err
	}
	return showJSON(cmd.OutOrStdout(), report.NewProfile(f))
}

func reportFile(cmd *cobra.Command, args []string) error {
	f, err := loadFrame(cmd, args[0])
	if err != nil {
		return err
	}
	return showJSON(cmd.OutOrStdout(), report.New(f))
}

func listOps(cmd *cobra.Command, args []string) error {
	infos := core.NewService(nil, core.Options{}).Operations()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return showJSON(cmd.OutOrStdout(), infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tGROUP\tMETHODS\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Key, info.Group, strings.Join(info.Methods, ","), info.Label)
	}
	return tw.Flush()
}

// outputFormat picks the export format from --format, then the --out
// extension, then CSV.
func outputFormat(cmd *cobra.Command, out string) (export.Format, error) {
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		return export.ParseFormat(f)
	}
	if strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return export.FormatXLSX, nil
	}
	return export.FormatCSV, nil
}

func applyRecipe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("recipe")
	rec, err := recipe.Load(path)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	format, err := outputFormat(cmd, out)
	if err != nil {
		return err
	}

	in, name, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc := core.NewService(nil, core.Options{})
	sess, err := rec.Run(ctx, svc, name, in)
	if err != nil {
		return err
	}
	for _, e := range sess.History() {
		for _, w := range e.Warnings {
			slog.Warn(w, "action", e.Action)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := svc.Export(ctx, sess.ID().String(), w, format); err != nil {
		return err
	}

	summary := sess.Summary()
	slog.Info("recipe applied",
		"file", name,
		"steps", len(rec.Steps),
		"rows", summary.Rows,
		"columns", summary.Columns,
	)
	return nil
}
