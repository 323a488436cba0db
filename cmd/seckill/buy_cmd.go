// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/seckill/internal/router"
	"github.com/ManuGH/seckill/internal/seckill"
	"github.com/spf13/cobra"
)

// maxCaptchaTries bounds interactive retries after a rejected answer.
const maxCaptchaTries = 3

func (c *cli) buyCmd() *cobra.Command {
	var (
		captchaOut string
		answer     int
		interval   time.Duration
		maxPolls   int
	)
	cmd := &cobra.Command{
		Use:   "buy <seckillGoodsId>",
		Short: "Purchase an offer: captcha, path, execute, then poll for the result",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := c.enter(ctx, router.Target{Name: router.GoodsDetail, Params: idParam(id)}); err != nil {
				return err
			}
			container, err := c.enter(ctx, router.Target{Name: router.SeckillResult, Params: idParam(id)})
			if err != nil {
				return err
			}

			poll := container.PollOptions()
			if cmd.Flags().Changed("interval") {
				poll.Interval = interval
			}
			if cmd.Flags().Changed("max-polls") {
				poll.MaxAttempts = maxPolls
			}
			if captchaOut == "" {
				captchaOut = filepath.Join(os.TempDir(), fmt.Sprintf("seckill-captcha-%d.png", id))
			}

			attempt, err := container.NewAttempt(id)
			if err != nil {
				return err
			}
			stop := context.AfterFunc(ctx, attempt.Abandon)
			defer stop()

			interactive := !cmd.Flags().Changed("answer")
			if err := c.solveCaptcha(ctx, attempt, captchaOut, interactive, answer); err != nil {
				return err
			}
			if err := attempt.Execute(ctx); err != nil {
				return err
			}
			c.printf("purchase submitted, waiting for the result\n")
			out, err := attempt.Await(ctx, poll)
			if err != nil {
				return err
			}
			container.Audit.Purchase(ctx, container.Store.Snapshot().Username, id, string(out.Result), out.OrderID)
			return c.reportOutcome(out)
		},
	}
	cmd.Flags().StringVar(&captchaOut, "captcha-out", "", "file to write the captcha PNG to (default: temp dir)")
	cmd.Flags().IntVar(&answer, "answer", 0, "captcha answer; prompts on stdin when omitted")
	cmd.Flags().DurationVar(&interval, "interval", 0, "result poll interval (overrides config)")
	cmd.Flags().IntVar(&maxPolls, "max-polls", 0, "maximum result polls, 0 = until interrupted (overrides config)")
	return cmd
}

// solveCaptcha obtains a path. Interactive sessions get a fresh captcha after a
// rejected answer; a fixed --answer is tried once.
func (c *cli) solveCaptcha(ctx context.Context, a *seckill.Attempt, captchaOut string, interactive bool, answer int) error {
	for try := 1; ; try++ {
		captcha, err := a.Challenge(ctx)
		if err != nil {
			return err
		}
		png, err := captcha.PNG()
		if err != nil {
			return err
		}
		if err := os.WriteFile(captchaOut, png, 0o600); err != nil {
			return fmt.Errorf("write captcha: %w", err)
		}
		c.printf("captcha written to %s\n", captchaOut)

		if interactive {
			if answer, err = c.promptInt("captcha answer: "); err != nil {
				return err
			}
		}
		err = a.Answer(ctx, answer)
		if err == nil {
			return nil
		}
		if !interactive || try >= maxCaptchaTries || a.State() != seckill.AwaitingCaptcha {
			return err
		}
		c.printf("answer rejected: %v\n", err)
	}
}

func (c *cli) promptInt(prompt string) (int, error) {
	fmt.Fprint(c.errOut, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		return 0, fmt.Errorf("read captcha answer: %w", err)
	}
	n, perr := strconv.Atoi(strings.TrimSpace(line))
	if perr != nil {
		return 0, usagef("captcha answer must be a number, got %q", strings.TrimSpace(line))
	}
	return n, nil
}

func (c *cli) reportOutcome(out seckill.Outcome) error {
	switch out.Result {
	case seckill.Purchased:
		c.printf("purchased: order %d (after %d polls)\n", out.OrderID, out.Polls)
		return nil
	case seckill.SoldOut:
		c.printf("sold out\n")
		return nil
	default:
		if out.Err != nil {
			return fmt.Errorf("%s: %w", out.Result, out.Err)
		}
		return errors.New(string(out.Result))
	}
}
