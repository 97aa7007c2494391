package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/circdesk/loanrules/internal/core/config"
	"github.com/circdesk/loanrules/internal/rules"
	"github.com/circdesk/loanrules/internal/types"
	"github.com/circdesk/loanrules/internal/watch"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats of the compile command.
const (
	formatDrools = "drools"
	formatJSON   = "json"
	formatYAML   = "yaml"
)

var compileCmd = &cobra.Command{
	Use:   "compile FILE",
	Short: "Compile a loan rules file locally",
	Long: `Compile a loan rules file and print the generated rules.

Default priorities come from the config file and LR_COMPILER_* variables.
With --watch the file is recompiled after every save; compile errors are
reported and watching continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("format", "f", formatDrools, "output format (drools, json, yaml)")
	compileCmd.Flags().BoolP("watch", "w", false, "recompile whenever the file changes")
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, _ := cmd.Flags().GetString("format")
	watching, _ := cmd.Flags().GetBool("watch")

	switch format {
	case formatDrools, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q (expected drools, json or yaml)", format)
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts, err := cfg.CompilerOptions()
	if err != nil {
		return err
	}
	engine, err := rules.NewEngine(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !watching {
		return compileFile(engine, path, format, out)
	}

	if err := compileFile(engine, path, format, out); err != nil {
		logger.Error("compile failed", "path", path, "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.NewFileWatcher(path, 0, logger)
	if err != nil {
		return err
	}
	return w.Watch(ctx, func() {
		if err := compileFile(engine, path, format, out); err != nil {
			logger.Error("compile failed", "path", path, "error", err)
			return
		}
		logger.Info("recompiled", "path", path)
	})
}

// compileFile reads, compiles and renders one rule file.
func compileFile(engine *rules.Engine, path, format string, w io.Writer) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(text) > types.MaxRuleTextSize {
		return fmt.Errorf("%s: %w", path, types.ErrRuleTextTooLarge)
	}

	rs, err := engine.Compile(string(text))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return render(w, rs, format)
}

// render writes rs in the requested format.
func render(w io.Writer, rs *rules.RuleSet, format string) error {
	switch format {
	case formatDrools:
		return rs.WriteDrools(w)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rs); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
