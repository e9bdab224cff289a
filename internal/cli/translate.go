package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/history"
	"github.com/zigbind/zigbind/internal/translate"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Profile string // profile name or .cue file path
	Output  string // output directory
	History string // history database path (optional)
}

// translateReport is the JSON success payload for the translate command.
type translateReport struct {
	Profile      string            `json:"profile"`
	Modules      []string          `json:"modules"`
	Declarations int               `json:"declarations"`
	Diagnostics  []diag.Diagnostic `json:"diagnostics"`
	Summary      diag.Summary      `json:"summary"`
	RunID        string            `json:"run_id,omitempty"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <manifest>",
		Short: "Translate a declaration corpus to target source",
		Long: `Translate the corpus described by a YAML manifest into target-language
source files, one per input module.

Per-item failures are reported as diagnostics and do not stop the run;
a name collision aborts it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "target profile name or .cue file (default from manifest, else zig)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "bindings", "output directory")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the run in this history database")

	return cmd
}

func runTranslate(opts *TranslateOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	manifest, corpus, err := LoadCorpus(manifestPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d module(s) from %s", len(corpus.Modules), manifestPath)

	prof, err := resolveProfile(opts.Profile, manifest.Profile)
	if err != nil {
		_ = formatter.Error(ErrCodeProfile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading profile", err)
	}
	formatter.VerboseLog("Using profile %s", prof.Name)

	result, err := translate.Translate(cmd.Context(), corpus, prof)
	if err != nil {
		if result != nil {
			// Aborted run: the collision diagnostics still get reported.
			printDiagnostics(formatter, result.Diagnostics)
			_ = formatter.Error(ErrCodeCollision, err.Error(), nil)
			return WrapExitError(ExitFailure, "translation aborted", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "translation failed", err)
	}

	if err := writeModules(opts.Output, result); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "writing output", err)
	}

	runID := ""
	if opts.History != "" {
		runID, err = recordRun(cmd, opts.History, prof.Name, result)
		if err != nil {
			_ = formatter.Error(ErrCodeHistory, err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording history", err)
		}
		formatter.VerboseLog("Recorded run %s", runID)
	}

	return outputTranslateResult(formatter, opts, prof.Name, result, runID)
}

func recordRun(cmd *cobra.Command, dbPath, profileName string, result *translate.Result) (string, error) {
	store, err := history.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Record(cmd.Context(), profileName, len(result.Modules), result.Declarations, result.Diagnostics)
}

// writeModules writes one source file per emitted module under dir.
func writeModules(dir string, result *translate.Result) error {
	for _, mod := range result.Modules {
		path := filepath.Join(dir, filepath.FromSlash(mod.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(mod.Source), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func outputTranslateResult(formatter *OutputFormatter, opts *TranslateOptions, profileName string, result *translate.Result, runID string) error {
	if formatter.Format == "json" {
		paths := make([]string, 0, len(result.Modules))
		for _, m := range result.Modules {
			paths = append(paths, m.Path)
		}
		if err := formatter.Success(translateReport{
			Profile:      profileName,
			Modules:      paths,
			Declarations: result.Declarations,
			Diagnostics:  result.Diagnostics,
			Summary:      result.Summary,
			RunID:        runID,
		}); err != nil {
			return err
		}
	} else {
		printDiagnostics(formatter, result.Diagnostics)
		fmt.Fprintf(formatter.Writer, "✓ Translated %d declaration(s) into %d module(s) under %s\n",
			result.Declarations, len(result.Modules), opts.Output)
		if result.Summary.Errors > 0 || result.Summary.Warnings > 0 {
			fmt.Fprintf(formatter.Writer, "  %d error(s), %d warning(s)\n",
				result.Summary.Errors, result.Summary.Warnings)
		}
	}

	if result.Summary.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("translation completed with %d error(s)", result.Summary.Errors))
	}
	return nil
}

// printDiagnostics writes the diagnostics report to the error stream so
// text output stays pipeable.
func printDiagnostics(formatter *OutputFormatter, diags []diag.Diagnostic) {
	if formatter.Format == "json" {
		return
	}
	w := formatter.ErrWriter
	if w == nil {
		w = formatter.Writer
	}
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}

// outputLoadError reports a corpus-loading failure with exit code 2.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, loadErr.Message, nil)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "loading corpus", err)
}
