package main

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var listtrades = cli.Command{
	Name:  "trades",
	Usage: "get the list of the recorded trades, oldest first",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "participant",
			Usage: "list only the trades where the given @handle or id is buyer or seller",
		},
		&cli.Int64Flag{
			Name:  "chat",
			Usage: "list only the trades recorded in the given chat",
		},
		&cli.StringFlag{
			Name:  "status",
			Usage: "list only the trades with the given status: open, completed or refunded",
		},
	},
	Action: listTradesAction,
}

var gettrade = cli.Command{
	Name:      "trade",
	Usage:     "get the trade with the given id",
	ArgsUsage: "<id>",
	Action:    getTradeAction,
}

func listTradesAction(ctx *cli.Context) error {
	ledger, err := getLedger(ctx)
	if err != nil {
		return err
	}

	var status *domain.TradeStatus
	if s := ctx.String("status"); s != "" {
		st, ok := domain.TradeStatusFromString(s)
		if !ok {
			return fmt.Errorf("unknown status %q", s)
		}
		status = &st
	}
	chatID := ctx.Int64("chat")

	var trades iter.Seq[*domain.Trade]
	if participant := ctx.String("participant"); participant != "" {
		trades = ledger.ListTradesByParticipant(participant, "")
	} else {
		trades = ledger.ListTradesByChatScope(chatID)
	}

	list := make([]*domain.Trade, 0)
	for trade := range trades {
		if chatID != 0 && trade.ChatID != chatID {
			continue
		}
		if status != nil && trade.Status != *status {
			continue
		}
		list = append(list, trade)
	}

	return printRespJSON(ctx, map[string]interface{}{
		"trades": list,
	})
}

func getTradeAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	id, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trade id: %w", err)
	}

	ledger, err := getLedger(ctx)
	if err != nil {
		return err
	}

	trade, ok := ledger.FindTrade(id)
	if !ok {
		return domain.ErrTradeNotFound
	}
	return printRespJSON(ctx, trade)
}
