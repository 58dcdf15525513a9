package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdpower/ccusage-statusline-go/internal/config"
)

func newConfigCommand() *cobra.Command {
	var (
		set   string
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the statusline element layout",
		Long: `Without flags prints the enabled elements in display order.
--set takes a comma-separated ordered list, --reset restores the default.
Available elements: ` + strings.Join(elementNames(append(config.AllElements(), config.ElementAPISonnet)), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving home directory: %w", err)
			}
			path := config.LayoutPath(home)

			switch {
			case reset:
				if err := config.SaveLayout(path, config.DefaultLayout()); err != nil {
					return err
				}
			case set != "":
				elements, err := config.ParseElements(set)
				if err != nil {
					return err
				}
				if len(elements) == 0 {
					return fmt.Errorf("--set needs at least one element")
				}
				if err := config.SaveLayout(path, config.Layout{Elements: elements}); err != nil {
					return err
				}
			}

			layout, err := config.LoadLayout(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Layout file: %s\n", path)
			for i, e := range layout.Elements {
				fmt.Fprintf(out, "%2d. %s\n", i+1, e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "Ordered, comma-separated element list")
	cmd.Flags().BoolVar(&reset, "reset", false, "Restore the default layout")
	cmd.MarkFlagsMutuallyExclusive("set", "reset")
	return cmd
}

func elementNames(elements []config.Element) []string {
	names := make([]string, len(elements))
	for i, e := range elements {
		names[i] = string(e)
	}
	return names
}
