package main

import (
	"github.com/spf13/cobra"

	"github.com/jstittsworth/bet-analytics/internal/registry"
)

func (a *cli) newRegistryCmd() *cobra.Command {
	var (
		root        string
		maxVersions int
	)

	open := func() (*registry.Registry, error) {
		if root == "" {
			cfg, err := a.config()
			if err != nil {
				return nil, err
			}
			root = cfg.ModelStoragePath
			if maxVersions <= 0 {
				maxVersions = cfg.ModelMaxVersions
			}
		}
		return registry.New(root, maxVersions, nil, a.logger)
	}

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and maintain the model registry",
	}
	cmd.PersistentFlags().StringVar(&root, "root", "", "Registry directory (defaults to MODEL_STORAGE_PATH)")
	cmd.PersistentFlags().IntVar(&maxVersions, "max-versions", 0, "Versions kept per model (defaults to MODEL_MAX_VERSIONS)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := open()
			if err != nil {
				return err
			}
			models, err := reg.ListModels()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "versions <model>",
		Short: "List a model's versions in version order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := open()
			if err != nil {
				return err
			}
			versions, err := reg.ListVersions(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), versions)
		},
	})

	var keep int
	pruneCmd := &cobra.Command{
		Use:   "prune [model]",
		Short: "Delete old versions beyond the retention limit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := open()
			if err != nil {
				return err
			}
			var removed int
			if len(args) == 1 {
				if keep <= 0 {
					keep = maxVersions
				}
				removed, err = reg.Prune(args[0], keep)
			} else {
				removed, err = reg.PruneAll()
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
		},
	}
	pruneCmd.Flags().IntVar(&keep, "keep", 0, "Versions to keep for the named model")
	cmd.AddCommand(pruneCmd)

	return cmd
}
