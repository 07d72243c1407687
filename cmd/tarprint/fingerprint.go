package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/tarprint"
)

func newFingerprintCmd(a *app) *cobra.Command {
	var key bool
	cmd := &cobra.Command{
		Use:   "fingerprint PATH...",
		Short: "Print the fingerprint of a file set without keeping an archive",
		Long: `Print the fingerprint of the given files and directories.

With --key, print the archive key instead: the fingerprint extended with the
destination and compression, which identifies the exact archive bytes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			fp, err := tarprint.Fingerprint(cmd.Context(), a.cfg.Source, paths, a.createOptions()...)
			if err != nil {
				return err
			}
			if key {
				fp, err = tarprint.ArchiveKey(fp, a.cfg.Destination, a.cfg.compression())
				if err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), fp.Encoded())
			return err
		},
	}
	cmd.Flags().BoolVar(&key, "key", false, "print the archive key instead of the fingerprint")
	cmd.Flags().StringP("destination", "d", "", "destination directory used for --key")
	return cmd
}
