package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func stampCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stamp <jar> key=value...",
		Short: "Set descriptor fields inside an archive",
		Long: `Rewrite the descriptor of an archive, setting each key to its value.
Every other entry is copied unchanged.

Example:
  avrix stamp plugins/MyPlugin.jar externalId=2931602698`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parsePatch(args[1:])
			if err != nil {
				return err
			}
			if err := <-a.stamper.Stamp(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{"path": args[0], "patch": patch})
			}
			pterm.Success.Printfln("Stamped %s", args[0])
			return nil
		},
	}
}

// parsePatch turns key=value arguments into a patch. A repeated key keeps
// its last value.
func parsePatch(args []string) (map[string]string, error) {
	patch := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", arg)
		}
		patch[key] = value
	}
	return patch, nil
}
