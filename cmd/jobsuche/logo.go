package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogoCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "logo HASH",
		Short: "Download an employer logo",
		Long:  `Download the PNG logo of an employer. HASH is a listing's kundennummerHash.`,
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default is HASH.png)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		hash := args[0]
		if output == "" {
			output = hash + ".png"
		}

		data, err := a.client.EmployerLogo(cmd.Context(), hash)
		if err != nil {
			return fmt.Errorf("logo for %s: %w", hash, err)
		}

		if output == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write logo: %w", err)
		}

		a.logger.Info().
			Str("file", output).
			Int("bytes", len(data)).
			Msg("Logo saved")
		return nil
	}

	return cmd
}
