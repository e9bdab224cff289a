package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zigbind/zigbind/internal/diag"
	"github.com/zigbind/zigbind/internal/translate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Profile string
}

// validateReport is the JSON payload for the validate command.
type validateReport struct {
	Profile      string            `json:"profile"`
	Declarations int               `json:"declarations"`
	Diagnostics  []diag.Diagnostic `json:"diagnostics"`
	Summary      diag.Summary      `json:"summary"`
}

// NewValidateCommand creates the validate command. It runs the full
// pipeline but writes nothing, so a corpus can be checked for collisions,
// unresolved references and layout problems before generating output.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "validate <manifest>",
		Short:         "Check a corpus without writing output",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "target profile name or .cue file (default from manifest, else zig)")

	return cmd
}

func runValidate(opts *ValidateOptions, manifestPath string, cmd *cobra.Command) error {
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

	prof, err := resolveProfile(opts.Profile, manifest.Profile)
	if err != nil {
		_ = formatter.Error(ErrCodeProfile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading profile", err)
	}

	result, err := translate.Translate(cmd.Context(), corpus, prof)
	if err != nil {
		if result != nil {
			printDiagnostics(formatter, result.Diagnostics)
			_ = formatter.Error(ErrCodeCollision, err.Error(), nil)
			return WrapExitError(ExitFailure, "validation failed", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(validateReport{
			Profile:      prof.Name,
			Declarations: result.Declarations,
			Diagnostics:  result.Diagnostics,
			Summary:      result.Summary,
		}); err != nil {
			return err
		}
	} else {
		printDiagnostics(formatter, result.Diagnostics)
		if result.Summary.Errors > 0 {
			fmt.Fprintf(formatter.Writer, "✗ %d declaration(s), %d error(s), %d warning(s)\n",
				result.Declarations, result.Summary.Errors, result.Summary.Warnings)
		} else {
			fmt.Fprintf(formatter.Writer, "✓ %d declaration(s), %d warning(s)\n",
				result.Declarations, result.Summary.Warnings)
		}
	}

	if result.Summary.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("validation found %d error(s)", result.Summary.Errors))
	}
	return nil
}
