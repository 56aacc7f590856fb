package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rahul/seif/internal/agent"
	"github.com/rahul/seif/internal/gateway"
	"github.com/rahul/seif/internal/observability"
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Accept tasks from Telegram chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tgCfg, ok := cfg.GetTelegramConfig()
		if !ok {
			return fmt.Errorf("telegram gateway is not enabled or token is missing")
		}

		if observability.IsTerminal() {
			observability.PrintBanner(os.Stdout)
		}

		a, err := newApp(cfg, verbose)
		if err != nil {
			return err
		}
		defer a.Close()

		planner, err := a.newPlanner()
		if err != nil {
			return err
		}

		factory := func(chatID string, p agent.Prompter) *agent.Engine {
			e := a.newEngine(planner, p, agent.Options{})
			e.Logger = a.logger.ForChat(chatID)
			return e
		}

		tg, err := gateway.NewTelegramGateway(tgCfg.Token, tgCfg.AllowedChats, factory, a.status)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Println("Gateway online. Waiting for tasks...")
		if err := tg.Start(ctx); err != nil {
			return fmt.Errorf("gateway stopped: %w", err)
		}
		log.Println("Gateway stopped. Goodbye.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(telegramCmd)
}
