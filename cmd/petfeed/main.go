package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "petfeed",
		Usage: "Feeding schedules, reminders and missed-feeding warnings for shared pets",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the delivery scheduler and the Telegram bot",
				Action: runServe,
			},
			{
				Name:   "deliver",
				Usage:  "Deliver due notifications and scan for missed feedings once",
				Action: runDeliver,
			},
			{
				Name:  "next",
				Usage: "Print the next feeding for a cat as seen by a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "cat", Usage: "Cat id", Required: true},
					&cli.StringFlag{Name: "user", Usage: "User id", Required: true},
				},
				Action: runNext,
			},
		},
		Action: runServe,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "petfeed:", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, _ *cli.Command) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.close()
	return app.serve(ctx)
}

func runDeliver(ctx context.Context, _ *cli.Command) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.close()

	tg, err := app.newBot()
	if err != nil {
		app.log.WithError(err).Warn("telegram push disabled")
		tg = nil
	}
	result, err := app.deliver(ctx, tg)
	if err != nil {
		return err
	}
	out := struct {
		Delivery any    `json:"delivery"`
		Missed   any    `json:"missed"`
		Error    string `json:"missedError,omitempty"`
	}{Delivery: result.Delivery, Missed: result.Missed}
	if result.MissedErr != nil {
		out.Error = result.MissedErr.Error()
	}
	return printJSON(out)
}

func runNext(ctx context.Context, cmd *cli.Command) error {
	catID, err := strconv.ParseUint(cmd.String("cat"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid --cat: %w", err)
	}
	userID, err := strconv.ParseUint(cmd.String("user"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}

	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.close()

	info, err := app.feedings.NextFeeding(ctx, uint(catID), uint(userID), time.Now())
	if err != nil {
		return err
	}
	return printJSON(info)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
