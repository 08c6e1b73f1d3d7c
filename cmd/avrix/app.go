package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	avrix "github.com/avrix-dev/avrix-sdk"
	"github.com/avrix-dev/avrix-sdk/archive"
	"github.com/avrix-dev/avrix-sdk/artifact"
	"github.com/avrix-dev/avrix-sdk/artifact/filesystem"
	"github.com/avrix-dev/avrix-sdk/artifact/repository"
	"github.com/avrix-dev/avrix-sdk/config"
	"github.com/avrix-dev/avrix-sdk/registry"
)

type rootOptions struct {
	root       string
	configPath string
	verbose    bool
	jsonOut    bool
}

// app holds the services shared by every command. It is built once per
// invocation in the root command's PersistentPreRunE.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	plugins  *artifact.PluginService
	versions *artifact.VersionService
	stamper  *archive.Stamper
	jsonOut  bool
}

func newRootCmd(defaultRoot string) *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "avrix",
		Short: "Manage Avrix plugins and versions",
		Long: `Manage the plugins and loader versions of an Avrix installation.

Examples:
  # Install a plugin from a local jar or a URL
  avrix plugin install ./MyPlugin-1.0.0.jar

  # Install the newest published version and select it
  avrix version install latest
  avrix version select v1.2.0`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := buildApp(opts)
			if err != nil {
				return err
			}
			*a = *built
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.stamper != nil {
				a.stamper.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.root, "root", defaultRoot, "Launcher working root")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")

	cmd.AddCommand(
		pluginCmd(a),
		versionCmd(a),
		stampCmd(a),
	)
	return cmd
}

func buildApp(opts *rootOptions) (*app, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(opts.configPath, opts.root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Debug("configuration loaded", "root", cfg.WorkingRoot, "plugins", cfg.PluginsPath(), "versions", cfg.VersionsPath())

	manifestURL := cfg.ManifestURL
	if manifestURL == "" {
		manifestURL = artifact.DefaultManifestURL
	}

	// Plugin URLs are arbitrary user input and never see the token.
	clientOpts := []avrix.HTTPOption{
		avrix.WithHTTPRequestTimeout(cfg.RequestTimeout()),
		avrix.WithUserAgent(cfg.Agent()),
		avrix.WithHTTPLogger(logger),
	}
	pluginClient := avrix.NewClient(clientOpts...)
	versionClient := avrix.NewClient(append(clientOpts,
		avrix.WithBearerToken(cfg.GitHubToken, cfg.TokenScope(manifestURL)...),
	)...)

	pluginRepo, err := repository.NewFSPluginRepository(cfg.PluginsPath())
	if err != nil {
		return nil, err
	}
	versionRepo, err := repository.NewFSVersionRepository(cfg.VersionsPath())
	if err != nil {
		return nil, err
	}

	schemas := registry.Default()
	stamper := archive.NewStamper(archive.WithStamperLogger(logger))

	shared := []artifact.Option{
		artifact.WithLogger(logger),
		artifact.WithStagingDir(cfg.StagingPath()),
		artifact.WithStagingCleanup(!cfg.KeepStaging),
	}

	plugins := artifact.NewPluginService(pluginRepo, pluginClient, append(shared,
		artifact.WithCoreArtifact(cfg.CoreJarPath()),
		artifact.WithStamper(stamper),
		artifact.WithSidecars(filesystem.NewFileSidecarRepository(schemas)),
		artifact.WithWorkshopRoots(cfg.WorkshopSearchRoots()...),
	)...)

	store := filesystem.NewSettingsStore(filesystem.WithPath(cfg.SettingsPath()))
	versions := artifact.NewVersionService(versionRepo, versionClient, store, append(shared,
		artifact.WithManifestURL(manifestURL),
		artifact.WithSchemaRegistry(schemas),
		artifact.WithRuntimeDir(cfg.RuntimeDir),
	)...)

	return &app{
		cfg:      cfg,
		logger:   logger,
		plugins:  plugins,
		versions: versions,
		stamper:  stamper,
		jsonOut:  opts.jsonOut,
	}, nil
}
