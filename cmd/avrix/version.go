package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/avrix-dev/avrix-sdk/artifact/entities"
	"github.com/avrix-dev/avrix-sdk/netutil"
)

func versionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage installed loader versions",
	}
	cmd.AddCommand(
		versionListCmd(a),
		versionAvailableCmd(a),
		versionInstallCmd(a),
		versionRepairCmd(a),
		versionSelectCmd(a),
		versionSelectedCmd(a),
		versionDeleteCmd(a),
	)
	return cmd
}

func versionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.versions.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}

			pterm.Info.Printfln("Versions directory: %s", res.Root)
			rows := make([][]string, 0, len(res.Versions))
			for _, v := range res.Versions {
				mark := ""
				if v.ID == res.SelectedID {
					mark = "*"
				}
				runtime := "no"
				if v.HasRuntime {
					runtime = "yes"
				}
				rows = append(rows, []string{
					mark, v.ID, orDash(v.Version), orDash(v.DisplayName), runtime, humanKB(v.SizeKB), formatUnix(v.Modified),
				})
			}
			return renderTable([]string{"", "ID", "Version", "Name", "Runtime", "Size", "Modified"}, rows)
		},
	}
}

func versionAvailableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "List versions published in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.versions.ListAvailable(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), list)
			}

			rows := make([][]string, 0, len(list))
			for _, v := range list {
				runtime := "no"
				if v.JreURL != "" {
					runtime = "yes"
				}
				rows = append(rows, []string{v.Tag, v.Version, runtime, orDash(v.PublishedAt)})
			}
			return renderTable([]string{"Tag", "Version", "Runtime", "Published"}, rows)
		},
	}
}

func versionInstallCmd(a *app) *cobra.Command {
	var fromManifest bool

	cmd := &cobra.Command{
		Use:   "install <path|url|tag>",
		Short: "Install a version from a directory, zip, jar, URL or manifest tag",
		Long: `Install a loader version.

The source is read as a local path when it exists, as a URL when it starts
with http:// or https://, and as a manifest tag ("latest", "v1.2.0")
otherwise. --release forces the manifest lookup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			var (
				res *entities.VersionInstallResult
				err error
			)
			switch {
			case fromManifest:
				res, err = a.versions.InstallFromManifest(cmd.Context(), src)
			case netutil.IsHTTPURL(src):
				res, err = a.versions.InstallFromURL(cmd.Context(), src)
			case pathExists(src):
				res, err = a.versions.InstallFromLocal(cmd.Context(), src)
			default:
				res, err = a.versions.InstallFromManifest(cmd.Context(), src)
			}
			if err != nil {
				return err
			}
			return printInstall(cmd, a, res)
		},
	}
	cmd.Flags().BoolVar(&fromManifest, "release", false, "Treat the argument as a manifest tag")
	return cmd
}

func versionRepairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <tag>",
		Short: "Re-download the core jar and runtime of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.versions.RepairFromManifest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printInstall(cmd, a, res)
		},
	}
}

func versionSelectCmd(a *app) *cobra.Command {
	var clearSelection bool

	cmd := &cobra.Command{
		Use:   "select [id]",
		Short: "Select the version used at launch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearSelection {
				if err := a.versions.Select(cmd.Context(), nil); err != nil {
					return err
				}
				pterm.Success.Println("Selection cleared")
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("a version id or --clear is required")
			}

			id := args[0]
			if err := a.versions.Select(cmd.Context(), &id); err != nil {
				return err
			}
			if _, ok, _ := a.versions.SelectedDir(cmd.Context()); !ok {
				pterm.Warning.Printfln("%s is not installed yet", id)
			}
			pterm.Success.Printfln("Selected %s", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearSelection, "clear", false, "Clear the selection")
	return cmd
}

func versionSelectedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "selected",
		Short: "Show the selected version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, ok, err := a.versions.GetSelected(cmd.Context())
			if err != nil {
				return err
			}
			dir, _, err := a.versions.SelectedDir(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{"selectedId": id, "selected": ok, "dir": dir})
			}
			if !ok {
				pterm.Info.Println("No version selected")
				return nil
			}
			pterm.Info.Printfln("%s %s", id, orDash(dir))
			return nil
		},
	}
}

func versionDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an installed version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete version %s?", args[0]), a.versions.Root())
				if err != nil {
					return err
				}
				if !ok {
					pterm.Info.Println("Cancelled")
					return nil
				}
			}

			msg, err := a.versions.Delete(cmd.Context(), args[0])
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

func printInstall(cmd *cobra.Command, a *app, res *entities.VersionInstallResult) error {
	if a.jsonOut {
		return printJSON(cmd.OutOrStdout(), res)
	}
	pterm.Success.Println(res.Message)
	return nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
