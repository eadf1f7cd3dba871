package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
)

var (
	nameColor  = color.New(color.FgCyan, color.Bold)
	labelColor = color.New(color.FgGreen)
	metaColor  = color.New(color.Faint)
)

var blocksCmd = &cobra.Command{
	Use:   "blocks <file>",
	Short: "Print the block tree of a D2 file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocks,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Print the metadata of a whole D2 file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	blocksCmd.Flags().Bool("json", false, "print JSON with metadata")
}

func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func runBlocks(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, filepath.Dir(args[0]))
	if err != nil {
		return err
	}

	entries := index.New(nil, backendFor(cfg), cfg.Extensions).Describe(source)
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printEntries(out, entries, 0)
	return nil
}

func printEntries(w io.Writer, entries []index.Entry, depth int) {
	for _, e := range entries {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(w, "%s%s", indent, nameColor.Sprint(e.Name))
		if e.Label != "" {
			fmt.Fprintf(w, " %s", labelColor.Sprintf("%q", e.Label))
		}
		fmt.Fprintf(w, " %s\n", metaColor.Sprintf("[%s, lines %d-%d]", e.Metadata.Category, e.StartLine+1, e.EndLine+1))
		printEntries(w, e.Children, depth+1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, filepath.Dir(args[0]))
	if err != nil {
		return err
	}
	md := analyzer.Analyze(source, backendFor(cfg))
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(md)
}
