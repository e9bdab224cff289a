package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zigbind/zigbind/internal/profile"
	"github.com/zigbind/zigbind/internal/typemap"
)

// resolveProfile picks the target profile: an explicit flag wins over the
// manifest default, which wins over the builtin zig profile. A value ending
// in .cue is loaded and validated as a profile file; anything else must
// name a builtin.
func resolveProfile(flag, manifestDefault string) (*typemap.Profile, error) {
	name := flag
	if name == "" {
		name = manifestDefault
	}
	if name == "" {
		name = "zig"
	}
	if strings.HasSuffix(name, ".cue") {
		return profile.Load(name)
	}
	return profile.Get(name)
}

// NewProfilesCommand creates the profiles command.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List builtin target profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:  rootOpts.Format,
				Writer:  cmd.OutOrStdout(),
				Verbose: rootOpts.Verbose,
			}
			names := profile.Names()
			if formatter.Format == "json" {
				return formatter.Success(names)
			}
			for _, name := range names {
				fmt.Fprintln(formatter.Writer, name)
			}
			return nil
		},
	}
	return cmd
}
