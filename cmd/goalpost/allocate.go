package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/Veraticus/goalpost/internal/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func allocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocate <asset> <goal> <amount>",
		Short: "Assign part of an asset's balance to a goal",
		Long: `Set how much of an asset (in the asset's currency) counts toward a goal.
An amount of 0 removes the allocation.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount("amount", args[2])
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			asset, err := a.findAsset(ctx, args[0])
			if err != nil {
				return err
			}
			goal, err := a.findGoal(ctx, args[1])
			if err != nil {
				return err
			}

			if _, err := a.ledger.Allocate(ctx, asset.ID, goal.ID, amount); err != nil {
				return fmt.Errorf("failed to allocate: %w", err)
			}

			if amount.IsZero() {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed allocation of %s to %q", shortID(asset.ID), goal.Name)))
			} else {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Allocated %s to %q", cli.Money(amount, asset.Currency), goal.Name)))
			}
			return warnOverAllocation(cmd, a, asset.ID)
		},
	}
}

func shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <asset> <goal>=<amount>...",
		Short: "Split an asset across several goals",
		Long: `Replace every allocation of an asset with the given shares. Goals not
listed lose their allocation from this asset.

Example:
  goalpost share 3f2a1b9c Vacation=500 "New car"=1500`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			asset, err := a.findAsset(ctx, args[0])
			if err != nil {
				return err
			}

			shares := make(map[uuid.UUID]decimal.Decimal, len(args)-1)
			for _, arg := range args[1:] {
				ref, raw, ok := strings.Cut(arg, "=")
				if !ok {
					return common.NewUserError(fmt.Sprintf("share %q must look like <goal>=<amount>", arg), nil)
				}
				amount, err := parseAmount(ref, raw)
				if err != nil {
					return err
				}
				goal, err := a.findGoal(ctx, ref)
				if err != nil {
					return err
				}
				shares[goal.ID] = amount
			}

			if err := a.ledger.ShareAsset(ctx, asset.ID, shares); err != nil {
				return fmt.Errorf("failed to share asset: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Shared asset %s across %d goals", shortID(asset.ID), len(shares))))
			return warnOverAllocation(cmd, a, asset.ID)
		},
	}
}

func warnOverAllocation(cmd *cobra.Command, a *app, assetID uuid.UUID) error {
	summary, err := a.ledger.Summarize(cmd.Context(), assetID)
	if err != nil {
		return err
	}
	if summary.OverAllocated {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Asset %s is over-allocated: %s allocated, %s available",
			shortID(assetID), summary.Allocated, summary.Asset.CurrentAmount())))
	}
	return nil
}
