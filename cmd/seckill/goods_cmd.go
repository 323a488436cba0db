// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/ManuGH/seckill/internal/api"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/spf13/cobra"
)

func (c *cli) goodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goods",
		Short: "Browse seckill offers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all seckill offers",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.Home})
			if err != nil {
				return err
			}
			goods, err := container.API.Goods.List(ctx)
			if err != nil {
				return err
			}
			c.printGoods(goods)
			return nil
		},
	}, &cobra.Command{
		Use:   "show <seckillGoodsId>",
		Short: "Show one offer",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.GoodsDetail, Params: idParam(id)})
			if err != nil {
				return err
			}
			g, err := container.API.Goods.Detail(ctx, id)
			if err != nil {
				return err
			}
			c.printf("%s (seckill %d, goods %d)\n", g.GoodsName, g.SeckillGoodsID, g.GoodsID)
			if g.GoodsTitle != "" {
				c.printf("  %s\n", g.GoodsTitle)
			}
			c.printf("  price:   %s (was %s)\n", g.SeckillPrice, g.GoodsPrice)
			c.printf("  stock:   %d\n", g.StockCount)
			c.printf("  window:  %s .. %s\n", g.StartDate, g.EndDate)
			c.printf("  status:  %s\n", seckillStatusName(g.SeckillStatus))
			if g.SeckillStatus == api.SeckillNotStarted && g.RemainSeconds > 0 {
				c.printf("  starts in %ds\n", g.RemainSeconds)
			}
			return nil
		},
	})
	return cmd
}

func (c *cli) printGoods(goods []api.Goods) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tSTATUS\tSTART\tEND")
	for _, g := range goods {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			g.SeckillGoodsID, g.GoodsName, g.SeckillPrice, g.StockCount,
			seckillStatusName(g.SeckillStatus), g.StartDate, g.EndDate)
	}
	_ = tw.Flush()
}

func seckillStatusName(status int) string {
	switch status {
	case api.SeckillNotStarted:
		return "not started"
	case api.SeckillRunning:
		return "running"
	case api.SeckillEnded:
		return "ended"
	default:
		return strconv.Itoa(status)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid id %q", s)
	}
	return id, nil
}

func idParam(id int64) map[string]string {
	return map[string]string{"id": strconv.FormatInt(id, 10)}
}
