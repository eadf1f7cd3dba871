package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/veschin/d2-web-extension-sub000/internal/config"
	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var rootCmd = &cobra.Command{
	Use:   "d2frag",
	Short: "D2 diagram fragment tools",
	Long: `d2frag splits D2 diagram sources into named blocks, describes each block
and reports parser errors, from the command line or as a language server.`,
	PersistentPreRunE: configureLogging,
	SilenceUsage:      true,
}

var log = commonlog.GetLogger("d2frag")

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)

	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().String("logfile", "", "path to log file (default stderr)")
	rootCmd.PersistentFlags().String("backend", "", "grammar backend (d2|text)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	rootCmd.Version = Version
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func configureLogging(cmd *cobra.Command, args []string) error {
	flags := cmd.Root().PersistentFlags()
	verbose, err := flags.GetCount("verbose")
	if err != nil {
		return err
	}
	logfile, err := flags.GetString("logfile")
	if err != nil {
		return err
	}
	var path *string
	if logfile != "" {
		path = &logfile
	}
	commonlog.Configure(1+verbose, path)

	mode, err := flags.GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
	default:
		return fmt.Errorf("--color: unknown mode %q", mode)
	}
	return nil
}

// loadConfig resolves the configuration for dir, with --backend on top.
func loadConfig(cmd *cobra.Command, dir string) (config.Config, error) {
	cfg, err := config.Resolve(dir, nil)
	if err != nil {
		return config.Config{}, err
	}
	backend, err := cmd.Root().PersistentFlags().GetString("backend")
	if err != nil {
		return config.Config{}, err
	}
	if backend != "" {
		cfg.Backend = backend
	}
	return cfg, cfg.Validate()
}

// backendFor builds the configured grammar backend. Without one, the text
// strategy is used.
func backendFor(cfg config.Config) grammar.Backend {
	loader := grammar.NewLoader(func() (grammar.Backend, error) {
		return grammar.New(cfg.Backend, nil, cfg.SitterKinds)
	})
	if _, err := loader.Backend(); err != nil {
		log.Warningf("backend %q unavailable, using text strategy: %v", cfg.Backend, err)
	}
	return loader.Get()
}
