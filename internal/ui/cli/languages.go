package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	coreapp "virtualmod/internal/core/app"

	"github.com/spf13/cobra"
)

func newLanguagesCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages and file extensions that are analyzed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(global)
			if err != nil {
				return err
			}
			registry, err := coreapp.ParserRegistry(env.cfg)
			if err != nil {
				return fmt.Errorf("invalid language registry: %w", err)
			}

			names := make([]string, 0, len(registry))
			for name := range registry {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LANGUAGE\tENABLED\tEXTENSIONS\tTEST SUFFIXES")
			for _, name := range names {
				spec := registry[name]
				fmt.Fprintf(w, "%s\t%t\t%s\t%s\n",
					name,
					spec.Enabled,
					strings.Join(spec.Extensions, " "),
					strings.Join(spec.TestFileSuffixes, " "),
				)
			}
			return w.Flush()
		},
	}
}
