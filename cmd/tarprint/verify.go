package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/tarprint"
	"github.com/meigma/tarprint/manifest"
)

func newVerifyCmd(a *app) *cobra.Command {
	var archivePath string
	cmd := &cobra.Command{
		Use:   "verify MANIFEST",
		Short: "Check a manifest and, optionally, the archive it describes",
		Long: `Check that a manifest's fingerprint is the fold of its file digests.

With --archive, also check that the archive holds exactly the listed files
with matching modes and contents.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Decode(data)
			if err != nil {
				return err
			}

			if archivePath == "" {
				err = m.Verify()
			} else {
				f, openErr := os.Open(archivePath)
				if openErr != nil {
					return openErr
				}
				defer f.Close()
				err = tarprint.VerifyArchive(cmd.Context(), f, m)
			}
			if err != nil {
				return err
			}

			a.logger.Debug("verified manifest", "path", args[0], "files", len(m.Entries))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d files)\n",
				successStyle.Render("verified"), m.Fingerprint.Encoded(), len(m.Entries))
			return err
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "archive to check against the manifest")
	return cmd
}
