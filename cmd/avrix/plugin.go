package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

func pluginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Inspect, validate and install plugins",
	}
	cmd.AddCommand(
		pluginListCmd(a),
		pluginValidateCmd(a),
		pluginInstallCmd(a),
		pluginDeleteCmd(a),
		pluginWorkshopCmd(a),
	)
	return cmd
}

func pluginListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the core, internal and installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.plugins.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}

			pterm.Info.Printfln("Plugins directory: %s", res.Dir)
			rows := make([][]string, 0, len(res.Plugins))
			for _, p := range res.Plugins {
				internal := "-"
				if p.Internal != nil {
					internal = strconv.FormatBool(*p.Internal)
				}
				rows = append(rows, []string{
					p.Name, orDash(p.DisplayName), orDash(p.Version), orDash(p.ID),
					internal, humanKB(p.SizeKB), formatUnix(p.Modified),
				})
			}
			return renderTable([]string{"File", "Name", "Version", "ID", "Internal", "Size", "Modified"}, rows)
		},
	}
}

func pluginValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path|url>",
		Short: "Check a plugin jar without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out entities.ValidationOutcome
				err error
			)
			if netutil.IsHTTPURL(args[0]) {
				out, err = a.plugins.ValidateURL(cmd.Context(), args[0])
			} else {
				out, err = a.plugins.ValidateLocal(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), out)
			}

			if out.Valid() {
				pterm.Success.Printfln("%s %s (%s)", orDash(out.Name()), orDash(out.Version()), orDash(out.Environment()))
			} else {
				pterm.Warning.Printfln("Invalid plugin: %s", out.Message())
			}
			pterm.Info.Printfln("Size: %s", humanSize(out.Size()))
			if out.SHA256() != "" {
				pterm.Info.Printfln("SHA-256: %s", out.SHA256())
			}
			return nil
		},
	}
}

func pluginInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install <path|url>",
		Short: "Validate and install a plugin jar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res *entities.InstallResult
				err error
			)
			if netutil.IsHTTPURL(args[0]) {
				res, err = a.plugins.InstallFromURL(cmd.Context(), args[0])
			} else {
				res, err = a.plugins.InstallLocal(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			// The process must not exit before the workshop stamp is written.
			var stampErr error
			if res.Stamp != nil {
				stampErr = <-res.Stamp
			}

			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			pterm.Success.Println(res.Message)
			pterm.Info.Printfln("%s %s, %s, sha256 %s", orDash(res.Name), orDash(res.Version), humanSize(res.Size), res.SHA256)
			if stampErr != nil {
				pterm.Warning.Printfln("Workshop id not stamped: %v", stampErr)
			}
			return nil
		},
	}
}

func pluginDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <file>",
		Short: "Delete an installed plugin jar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete plugin %s?", args[0]), a.plugins.Dir())
				if err != nil {
					return err
				}
				if !ok {
					pterm.Info.Println("Cancelled")
					return nil
				}
			}

			msg, err := a.plugins.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"message": msg})
			}
			pterm.Success.Println(msg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func pluginWorkshopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "workshop",
		Short: "Find plugin jars in Steam workshop content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.plugins.ScanWorkshop(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}

			for _, r := range res.Roots {
				pterm.Info.Printfln("Root: %s", r)
			}
			rows := make([][]string, 0, len(res.Found))
			for _, p := range res.Found {
				rows = append(rows, []string{p})
			}
			return renderTable([]string{"Plugin"}, rows)
		},
	}
}
