package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/tarprint"
)

// app carries state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
	logger  *slog.Logger
	create  createFunc
}

// createFunc writes an archive the way tarprint.Create does.
type createFunc func(ctx context.Context, w io.Writer, sourceDir, destinationDir string, paths []string, opts ...tarprint.CreateOption) (*tarprint.Result, error)

func newRootCmd() *cobra.Command {
	return newAppCmd(&app{v: viper.New(), create: tarprint.Create})
}

func newAppCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tarprint",
		Short: "Build deterministic tar archives and fingerprint file sets",
		Long: titleStyle.Render("tarprint") + subtitleStyle.Render(" - deterministic archives with content fingerprints") + `

tarprint packs files and directories into a tar archive whose bytes depend
only on file paths, contents and executable bits. Alongside the archive it
computes a fingerprint of the file set that does not depend on traversal
order, timestamps, ownership or compression.

` + subtitleStyle.Render("Examples:") + `
  tarprint create -o app.tar -d /app src go.mod
  tarprint create -o app.tar.zst --compression zstd --manifest app.manifest src
  tarprint fingerprint src go.mod
  tarprint verify app.manifest --archive app.tar.zst`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Subcommands share keys such as destination, so only the
			// running command's flags are bound.
			bindFlags(a.v, cmd.Flags())
			cfg, err := loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./tarprint.yaml or <user config dir>/tarprint/tarprint.yaml)")
	flags.StringP("source", "C", ".", "directory that input paths are relative to")
	flags.String("compression", "none", "archive compression: none, gzip or zstd")
	flags.String("algorithm", "sha256", "fingerprint digest algorithm")
	flags.Bool("strict", false, "fail if a file's identity, mtime or mode changes while it is archived")
	flags.Int("max-files", 0, "maximum number of files to archive (0 = unlimited)")
	flags.BoolP("verbose", "v", false, "enable verbose output")
	bindFlags(a.v, flags)

	cmd.AddCommand(newCreateCmd(a))
	cmd.AddCommand(newFingerprintCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	return cmd
}

// createOptions returns archive options for the loaded configuration.
func (a *app) createOptions() []tarprint.CreateOption {
	return append(a.cfg.createOptions(), tarprint.CreateWithLogger(a.logger))
}
