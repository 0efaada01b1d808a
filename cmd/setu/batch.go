package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/ayusetu/setu/internal/batch"
	"github.com/ayusetu/setu/internal/config"
	"github.com/ayusetu/setu/internal/db"
	"github.com/ayusetu/setu/internal/engine"
	"github.com/ayusetu/setu/internal/lineage"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// connectFromConfig loads the config and opens the batch store.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	dc := cfg.Database
	gormDB, err := db.Connect(dc.User, dc.Password, dc.Host, dc.Port, dc.Name)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch lifecycle commands",
	}

	cmd.AddCommand(newBatchRegisterCmd())
	cmd.AddCommand(newBatchLotCmd())
	cmd.AddCommand(newBatchProcessCmd())
	cmd.AddCommand(newBatchFormulateCmd())
	cmd.AddCommand(newBatchRecallCmd())
	cmd.AddCommand(newBatchTransferCmd())
	cmd.AddCommand(newBatchListCmd())
	cmd.AddCommand(newBatchShowCmd())
	cmd.AddCommand(newBatchHistoryCmd())
	cmd.AddCommand(newBatchLineageCmd())
	return cmd
}

func newBatchRegisterCmd() *cobra.Command {
	var (
		configPath string
		opts       batch.RegisterOpts
	)

	cmd := &cobra.Command{
		Use:   "register <batch-id>",
		Short: "Register a raw-material batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.BatchID = args[0]
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			b, err := batch.RegisterRawMaterial(gormDB, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered raw material %s (%s %g %s)\n",
				b.BatchID, b.ProductName, b.Quantity, b.Unit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "owning user ID (required)")
	cmd.Flags().StringVar(&opts.ProductName, "product", "", "product name (required)")
	cmd.Flags().Float64Var(&opts.Quantity, "quantity", 0, "quantity")
	cmd.Flags().StringVar(&opts.Unit, "unit", "kg", "unit of measure")
	cmd.Flags().StringVar(&opts.SourceLocation, "source", "", "source location")
	cmd.Flags().StringVar(&opts.FarmerID, "farmer-id", "", "farmer ID")
	cmd.Flags().StringVar(&opts.FarmerName, "farmer-name", "", "farmer name")
	cmd.Flags().StringVar(&opts.FarmerPhone, "farmer-phone", "", "farmer phone")
	cmd.Flags().StringVar(&opts.FarmerLocation, "farmer-location", "", "farmer location")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("product")
	return cmd
}

func newBatchLotCmd() *cobra.Command {
	var (
		configPath   string
		constituents []string
		d            engine.CreateLotDetails
	)

	cmd := &cobra.Command{
		Use:   "lot <lot-id>",
		Short: "Consolidate raw-material batches into a lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.ConstituentBatchIDs = constituents
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			eng := engine.New(gormDB, engine.Options{})
			if err := eng.CreateLot(args[0], d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created lot %s from %d batches\n", args[0], len(constituents))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringSliceVar(&constituents, "from", nil, "constituent batch IDs (required)")
	cmd.Flags().StringVar(&d.NewOwnerID, "owner", "", "owning user ID (required)")
	cmd.Flags().StringVar(&d.ProductName, "product", "", "lot product name (required)")
	cmd.Flags().Float64Var(&d.Quantity, "quantity", 0, "total lot quantity")
	cmd.Flags().StringVar(&d.Unit, "unit", "kg", "unit of measure")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("product")
	return cmd
}

func newBatchProcessCmd() *cobra.Command {
	var (
		configPath string
		d          engine.ProcessLotDetails
	)

	cmd := &cobra.Command{
		Use:   "process <processed-id>",
		Short: "Record processing of a lot into a new batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			eng := engine.New(gormDB, engine.Options{})
			if err := eng.ProcessLot(args[0], d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed lot %s into %s\n", d.ParentLotID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringVar(&d.ParentLotID, "lot", "", "parent lot ID (required)")
	cmd.Flags().StringVar(&d.NewOwnerID, "owner", "", "owning user ID (required)")
	cmd.Flags().StringVar(&d.ProcessType, "type", "", "process type, e.g. drying")
	cmd.Flags().Float64Var(&d.OutputQuantity, "quantity", 0, "output quantity")
	cmd.Flags().StringVar(&d.OutputUnit, "unit", "kg", "unit of measure")
	cmd.MarkFlagRequired("lot")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func newBatchFormulateCmd() *cobra.Command {
	var (
		configPath string
		inputs     []string
		d          engine.FormulateProductDetails
	)

	cmd := &cobra.Command{
		Use:   "formulate <product-id>",
		Short: "Formulate a final product from processed batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.InputBatchIDs = inputs
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			eng := engine.New(gormDB, engine.Options{})
			if err := eng.FormulateProduct(args[0], d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Formulated product %s from %d batches\n", args[0], len(inputs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringSliceVar(&inputs, "from", nil, "input batch IDs (required)")
	cmd.Flags().StringVar(&d.NewOwnerID, "owner", "", "owning user ID (required)")
	cmd.Flags().StringVar(&d.ProductName, "product", "", "final product name (required)")
	cmd.Flags().Float64Var(&d.FinalQuantity, "quantity", 0, "final quantity")
	cmd.Flags().StringVar(&d.FinalUnit, "unit", "kg", "unit of measure")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("product")
	return cmd
}

func newBatchRecallCmd() *cobra.Command {
	var (
		configPath string
		singleHop  bool
		d          engine.RecallDetails
	)

	cmd := &cobra.Command{
		Use:   "recall <batch-id>",
		Short: "Recall a batch and its lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			eng := engine.New(gormDB, engine.Options{SingleHop: singleHop})
			if err := eng.Recall(args[0], d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recalled %s (reason: %s)\n", args[0], d.Reason)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringVar(&d.Reason, "reason", "", "recall reason (required)")
	cmd.Flags().StringVar(&d.ActorID, "actor", "", "acting user ID")
	cmd.Flags().BoolVar(&singleHop, "single-hop", false, "restrict cascade to direct link neighbors")
	cmd.MarkFlagRequired("reason")
	return cmd
}

func newBatchTransferCmd() *cobra.Command {
	var (
		configPath  string
		newOwner    string
		destination string
		actor       string
	)

	cmd := &cobra.Command{
		Use:   "transfer <batch-id>",
		Short: "Transfer custody of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			details := map[string]interface{}{
				"action":    "custody_transferred",
				"new_owner": newOwner,
			}
			if err := batch.Transfer(gormDB, args[0], newOwner, destination, actor, details); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s to %s\n", args[0], newOwner)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringVar(&newOwner, "to", "", "new owner user ID (required)")
	cmd.Flags().StringVar(&destination, "destination", "", "destination location")
	cmd.Flags().StringVar(&actor, "actor", "", "acting user ID")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newBatchListCmd() *cobra.Command {
	var (
		configPath string
		filters    batch.ListFilters
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			batches, err := batch.List(gormDB, filters)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BATCH\tTYPE\tSTATUS\tPRODUCT\tQTY\tOWNER")
			for _, b := range batches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g %s\t%s\n",
					b.BatchID, b.Type, b.Status, b.ProductName, b.Quantity, b.Unit, b.OwnerID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().StringVar(&filters.Role, "role", "", "apply role visibility filter")
	cmd.Flags().StringVar(&filters.UserID, "user", "", "user ID for role filters")
	cmd.Flags().StringVar(&filters.Type, "type", "", "filter by batch type")
	cmd.Flags().StringVar(&filters.Status, "status", "", "filter by status")
	return cmd
}

func newBatchShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			b, err := batch.Get(gormDB, args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(b, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	return cmd
}

func newBatchHistoryCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "history <batch-id>",
		Short: "Show a batch's audit history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			entries, err := batch.History(gormDB, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tACTOR\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.ActorID, e.Details)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	return cmd
}

func newBatchLineageCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "lineage <batch-id>",
		Short: "Show a batch's upstream and downstream lineage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			b, err := batch.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			upstream, err := lineage.Upstream(gormDB, b.ID)
			if err != nil {
				return err
			}
			downstream, err := lineage.Downstream(gormDB, b.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s (%s, %s)\n", b.BatchID, b.Type, b.Status)
			fmt.Fprintln(out, "Upstream:")
			for _, u := range upstream {
				fmt.Fprintf(out, "  %s (%s, %s)\n", u.BatchID, u.Type, u.Status)
			}
			fmt.Fprintln(out, "Downstream:")
			for _, d := range downstream {
				fmt.Fprintf(out, "  %s (%s, %s)\n", d.BatchID, d.Type, d.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	return cmd
}
