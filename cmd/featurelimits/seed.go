package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in default limits without overwriting existing rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStack(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.svc.SeedDefaultLimits(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "inserted %d default limits\n", n)
			return err
		},
	}
}
