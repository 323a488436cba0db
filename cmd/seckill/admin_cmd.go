// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/ManuGH/seckill/internal/api"
	"github.com/ManuGH/seckill/internal/app/bootstrap"
	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/spf13/cobra"
)

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin console commands (requires --app admin)",
	}

	var status int
	orders := &cobra.Command{
		Use:   "orders",
		Short: "List all orders",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := c.enterAdmin(ctx, router.Target{Name: router.OrderManage})
			if err != nil {
				return err
			}
			list, err := container.API.Admin.Orders(ctx, statusFlag(cmd, status))
			if err != nil {
				return err
			}
			c.printOrders(list)
			return nil
		},
	}
	orders.Flags().IntVar(&status, "status", 0, "filter by order status")

	cmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Show goods, order and stock statistics",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := c.enterAdmin(ctx, router.Target{Name: router.Dashboard})
			if err != nil {
				return err
			}
			dash, err := container.API.Admin.Dashboard(ctx)
			if err != nil {
				return err
			}
			c.printDashboard(dash)
			return nil
		},
	}, orders, c.adminGoodsCmd(), &cobra.Command{
		Use:   "reset-stock <seckillGoodsId> <stock>",
		Short: "Reset the stock of an offer",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stock, err := strconv.Atoi(args[1])
			if err != nil || stock < 0 {
				return usagef("invalid stock %q", args[1])
			}
			ctx := cmd.Context()
			container, err := c.enterAdmin(ctx, router.Target{Name: router.GoodsManage})
			if err != nil {
				return err
			}
			if err := container.API.Admin.ResetStock(ctx, id, stock); err != nil {
				return err
			}
			c.printf("stock of %d reset to %d\n", id, stock)
			return nil
		},
	})
	return cmd
}

// goodsFlags collects the fields of an add or update request.
type goodsFlags struct {
	name, title, img, detail string
	price, seckillPrice      string
	stock, seckillStock      int
	start, end               string
	status                   int
}

func (f *goodsFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "goods name")
	fl.StringVar(&f.title, "title", "", "goods title")
	fl.StringVar(&f.img, "img", "", "image URL")
	fl.StringVar(&f.detail, "detail", "", "description")
	fl.StringVar(&f.price, "price", "", "regular price")
	fl.StringVar(&f.seckillPrice, "seckill-price", "", "seckill price")
	fl.IntVar(&f.stock, "stock", 0, "goods stock")
	fl.IntVar(&f.seckillStock, "seckill-stock", 0, "seckill stock")
	fl.StringVar(&f.start, "start", "", "seckill start (2006-01-02 15:04:05)")
	fl.StringVar(&f.end, "end", "", "seckill end (2006-01-02 15:04:05)")
	fl.IntVar(&f.status, "status", 0, "seckill status (0 not started, 1 running, 2 ended)")
}

func (f *goodsFlags) input(cmd *cobra.Command) (api.GoodsInput, error) {
	if f.name == "" || f.price == "" || f.seckillPrice == "" || f.start == "" || f.end == "" {
		return api.GoodsInput{}, usagef("--name, --price, --seckill-price, --start and --end are required")
	}
	for _, p := range []string{f.price, f.seckillPrice} {
		if _, err := strconv.ParseFloat(p, 64); err != nil {
			return api.GoodsInput{}, usagef("invalid price %q", p)
		}
	}
	start, err := api.ParseTimestamp(f.start)
	if err != nil {
		return api.GoodsInput{}, usageError{err}
	}
	end, err := api.ParseTimestamp(f.end)
	if err != nil {
		return api.GoodsInput{}, usageError{err}
	}
	if !end.After(start.Time) {
		return api.GoodsInput{}, usagef("--end must be after --start")
	}
	in := api.GoodsInput{
		GoodsName:    f.name,
		GoodsTitle:   f.title,
		GoodsImg:     f.img,
		GoodsDetail:  f.detail,
		GoodsPrice:   json.Number(f.price),
		GoodsStock:   f.stock,
		SeckillPrice: json.Number(f.seckillPrice),
		StockCount:   f.seckillStock,
		StartDate:    start,
		EndDate:      end,
	}
	if cmd.Flags().Changed("status") {
		status := f.status
		in.Status = &status
	}
	return in, nil
}

func (c *cli) adminGoodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goods",
		Short: "Manage seckill offers",
	}

	var add goodsFlags
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create an offer",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := add.input(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := c.enterAdmin(ctx, router.Target{Name: router.GoodsManage})
			if err != nil {
				return err
			}
			if err := container.API.Admin.AddGoods(ctx, in); err != nil {
				return err
			}
			c.printf("added %s\n", in.GoodsName)
			return nil
		},
	}
	add.register(addCmd)

	var update goodsFlags
	updateCmd := &cobra.Command{
		Use:   "update <seckillGoodsId>",
		Short: "Replace an offer",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := update.input(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := c.enterAdmin(ctx, router.Target{Name: router.GoodsManage})
			if err != nil {
				return err
			}
			if err := container.API.Admin.UpdateGoods(ctx, id, in); err != nil {
				return err
			}
			c.printf("updated %d\n", id)
			return nil
		},
	}
	update.register(updateCmd)

	cmd.AddCommand(addCmd, updateCmd, &cobra.Command{
		Use:   "delete <seckillGoodsId>",
		Short: "Delete an offer",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := c.enterAdmin(ctx, router.Target{Name: router.GoodsManage})
			if err != nil {
				return err
			}
			if err := container.API.Admin.DeleteGoods(ctx, id); err != nil {
				return err
			}
			c.printf("deleted %d\n", id)
			return nil
		},
	})
	return cmd
}

func (c *cli) enterAdmin(ctx context.Context, target router.Target) (*bootstrap.Container, error) {
	container, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	if container.Profile.Name != profile.Admin.Name {
		return nil, usagef("admin commands need --app admin")
	}
	return c.enter(ctx, target)
}

func (c *cli) printDashboard(d *api.Dashboard) {
	c.printf("goods:  %d total, %d active, %d in stock\n", d.Goods.Total, d.Goods.Active, d.Goods.TotalStock)
	c.printf("orders: %d total, %d unpaid, %d paid, %d cancelled\n", d.Orders.Total, d.Orders.Unpaid, d.Orders.Paid, d.Orders.Cancelled)
	c.printf("server: %s\n", d.ServerTime)
	if len(d.StockDetails) == 0 {
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDB\tCACHE\tPRICE\tSTATUS")
	for _, s := range d.StockDetails {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
			s.SeckillGoodsID, s.GoodsName, s.DBStock, s.RedisStock, s.SeckillPrice, seckillStatusName(s.Status))
	}
	_ = tw.Flush()
}
