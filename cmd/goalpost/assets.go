package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/goalpost/internal/assets"
	"github.com/Veraticus/goalpost/internal/cli"
	"github.com/spf13/cobra"
)

func assetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage balance sources",
		Long:  `Add manual or on-chain assets, record deposits and withdrawals, and refresh on-chain balances.`,
	}

	cmd.AddCommand(addAssetCmd())
	cmd.AddCommand(listAssetsCmd())
	cmd.AddCommand(deleteAssetCmd())
	cmd.AddCommand(assetTxCmd())
	cmd.AddCommand(refreshAssetsCmd())

	return cmd
}

func addAssetCmd() *cobra.Command {
	var chainID, address string

	cmd := &cobra.Command{
		Use:   "add <currency>",
		Short: "Add an asset",
		Long: `Add a manual asset in the given currency. Pass --chain and --address
together to track an on-chain wallet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			asset, err := a.assets.CreateAsset(ctx, args[0], chainID, address)
			if err != nil {
				return fmt.Errorf("failed to create asset: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s asset %s", asset.Currency, shortID(asset.ID))))
			return nil
		},
	}

	cmd.Flags().StringVar(&chainID, "chain", "", "chain id of an on-chain wallet")
	cmd.Flags().StringVar(&address, "address", "", "wallet address")
	return cmd
}

func listAssetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assets with their allocation state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summaries, err := a.ledger.SummarizeAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to list assets: %w", err)
			}

			fmt.Print(cli.RenderAssets(summaries))
			return nil
		},
	}
}

func deleteAssetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <asset>",
		Short: "Delete an asset with its transactions and allocations",
		Args:  cobra.ExactArgs(1),
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

			if !yes {
				reader := cli.NewNonBlockingReader(os.Stdin)
				question := fmt.Sprintf("Delete %s asset %s with its transactions and allocations?", asset.Currency, shortID(asset.ID))
				ok, err := reader.Confirm(ctx, os.Stdout, question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.FormatInfo("Canceled"))
					return nil
				}
			}

			if err := a.store.DeleteAsset(ctx, asset.ID); err != nil {
				return fmt.Errorf("failed to delete asset: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted asset %s", shortID(asset.ID))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func assetTxCmd() *cobra.Command {
	var date, counterparty, comment string

	cmd := &cobra.Command{
		Use:   "tx <asset> <amount>",
		Short: "Record a deposit (positive) or withdrawal (negative)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount("amount", args[1])
			if err != nil {
				return err
			}
			var when time.Time
			if date != "" {
				if when, err = parseDate("--date", date); err != nil {
					return err
				}
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

			txn, err := a.assets.AddTransaction(ctx, assets.TransactionInput{
				AssetID:      asset.ID,
				Amount:       amount,
				Date:         when,
				Counterparty: counterparty,
				Comment:      comment,
			})
			if err != nil {
				return fmt.Errorf("failed to record transaction: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s on %s",
				cli.Money(txn.Amount, asset.Currency), formatDay(txn.Date))))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD, default: now)")
	cmd.Flags().StringVar(&counterparty, "counterparty", "", "who the money came from or went to")
	cmd.Flags().StringVar(&comment, "comment", "", "free-form note")
	return cmd
}

func refreshAssetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh cached on-chain balances",
		Long: `Fetch the live balance of every on-chain asset from the endpoint in
balances.url. Assets whose fetch fails keep their cached balance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fetcher, err := assets.NewHTTPBalanceFetcher(a.settings.Balances)
			if err != nil {
				return err
			}

			report, err := a.assets.RefreshOnChainBalances(ctx, fetcher)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %d on-chain balances", report.Updated)))
			for id, ferr := range report.Failed {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%s kept its cached balance: %v", shortID(id), ferr)))
			}
			return nil
		},
	}
}
