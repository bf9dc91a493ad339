package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jstittsworth/bet-analytics/internal/strategy"
)

func (a *cli) newKellyCmd() *cobra.Command {
	var (
		probability float64
		price       int
		profileName string
		fraction    float64
		maxPct      float64
		bankroll    float64
	)

	cmd := &cobra.Command{
		Use:   "kelly",
		Short: "Size a bet with fractional Kelly",
		Long: `Compute the stake for a win probability and American price. Fraction
and max stake default to the chosen risk profile.

Examples:
  analytics kelly --prob 0.55 --price 100
  analytics kelly --prob 0.6 --price -120 --profile aggressive --bankroll 5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := a.profiles()
			if err != nil {
				return err
			}
			profile, err := profiles.Get(profileName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fraction") {
				fraction = profile.KellyFraction
			}
			if !cmd.Flags().Changed("max-pct") {
				maxPct = profile.MaxStakePct
			}

			result, err := strategy.Kelly(probability, price, fraction, maxPct, bankroll)
			if err != nil {
				return fmt.Errorf("kelly: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().Float64Var(&probability, "prob", 0, "Win probability in (0, 1)")
	cmd.Flags().IntVar(&price, "price", 0, "American odds, e.g. -110 or 150")
	cmd.Flags().StringVar(&profileName, "profile", "moderate", "Risk profile supplying fraction and cap")
	cmd.Flags().Float64Var(&fraction, "fraction", 0, "Kelly fraction override")
	cmd.Flags().Float64Var(&maxPct, "max-pct", 0, "Max stake as a fraction of bankroll")
	cmd.Flags().Float64Var(&bankroll, "bankroll", 1000, "Bankroll")
	_ = cmd.MarkFlagRequired("prob")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
