package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veschin/d2-web-extension-sub000/internal/compile"
	"github.com/veschin/d2-web-extension-sub000/internal/diagnostics"
	"github.com/veschin/d2-web-extension-sub000/internal/textpos"
)

var errorColor = color.New(color.FgRed, color.Bold)

var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check <file> [file...]",
	Short: "Report parser errors of D2 files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Format a D2 file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFmt,
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "write the result to the file instead of stdout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceErrors = true
	out := cmd.OutOrStdout()
	failed := false
	for _, path := range args {
		source, err := readSource(path)
		if err != nil {
			return err
		}
		doc := diagnostics.NewTextDocument(source)
		for _, d := range diagnostics.Map(compile.Check(path, source), doc) {
			failed = true
			pos := textpos.Position(source, d.From)
			fmt.Fprintf(out, "%s:%d:%d: %s %s\n", path, pos.Line+1, pos.Character+1, errorColor.Sprint(string(d.Severity)+":"), d.Message)
		}
	}
	if failed {
		return errCheckFailed
	}
	return nil
}

func runFmt(cmd *cobra.Command, args []string) error {
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return err
	}
	path := args[0]
	source, err := readSource(path)
	if err != nil {
		return err
	}
	formatted, err := compile.Format(path, source)
	if err != nil {
		return err
	}
	if !write || path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), formatted)
		return err
	}
	if formatted == source {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(formatted), info.Mode().Perm())
}
