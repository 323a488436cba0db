// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/ManuGH/seckill/internal/api"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/spf13/cobra"
)

func (c *cli) ordersCmd() *cobra.Command {
	var status int
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List my orders",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.Orders})
			if err != nil {
				return err
			}
			orders, err := container.API.Order.List(ctx, statusFlag(cmd, status))
			if err != nil {
				return err
			}
			c.printOrders(orders)
			return nil
		},
	}
	cmd.Flags().IntVar(&status, "status", 0, "filter by status (0 unpaid, 1 paid, 2 shipped, 3 received, 4 cancelled, 5 refunded)")
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count my orders by status",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.Orders})
			if err != nil {
				return err
			}
			stats, err := container.API.Order.Stats(ctx)
			if err != nil {
				return err
			}
			c.printf("total %d, unpaid %d, paid %d, cancelled %d\n", stats.Total, stats.Unpaid, stats.Paid, stats.Cancelled)
			return nil
		},
	})
	return cmd
}

func (c *cli) orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect, pay or cancel one order",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <orderId>",
		Short: "Show one order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.OrderDetail, Params: idParam(id)})
			if err != nil {
				return err
			}
			o, err := container.API.Order.Detail(ctx, id)
			if err != nil {
				return err
			}
			c.printf("order %d: %s x%d at %s\n", o.ID, o.GoodsName, o.GoodsCount, o.GoodsPrice)
			c.printf("  status:  %s\n", api.OrderStatusName(o.Status))
			c.printf("  created: %s\n", o.CreateTime)
			c.printf("  paid:    %s\n", o.PayTime)
			return nil
		},
	},
		c.orderActionCmd("pay", "Pay an unpaid order", "paid", func(ctx context.Context, a *api.OrderAPI, id int64) error {
			return a.Pay(ctx, id)
		}),
		c.orderActionCmd("cancel", "Cancel an unpaid order", "cancelled", func(ctx context.Context, a *api.OrderAPI, id int64) error {
			return a.Cancel(ctx, id)
		}),
	)
	return cmd
}

func (c *cli) orderActionCmd(use, short, done string, action func(context.Context, *api.OrderAPI, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <orderId>",
		Short: short,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.OrderDetail, Params: idParam(id)})
			if err != nil {
				return err
			}
			if err := action(ctx, container.API.Order, id); err != nil {
				return err
			}
			c.printf("order %d %s\n", id, done)
			return nil
		},
	}
}

func (c *cli) printOrders(orders []api.Order) {
	if len(orders) == 0 {
		c.printf("no orders\n")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGOODS\tQTY\tPRICE\tSTATUS\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.GoodsName, o.GoodsCount, o.GoodsPrice, api.OrderStatusName(o.Status), o.CreateTime)
	}
	_ = tw.Flush()
}

// statusFlag returns the --status filter, nil when the flag was not given.
func statusFlag(cmd *cobra.Command, status int) *int {
	if !cmd.Flags().Changed("status") {
		return nil
	}
	return &status
}
