package main

import (
	"github.com/spf13/cobra"
)

func (a *cli) newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [name]",
		Short: "Print risk profiles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := a.profiles()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				p, err := profiles.Get(args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return writeJSON(cmd.OutOrStdout(), profiles.List())
		},
	}
}
