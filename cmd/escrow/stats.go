package main

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var userstats = cli.Command{
	Name:      "userstats",
	Usage:     "get the lifetime stats of a buyer or seller",
	ArgsUsage: "<@handle or id>",
	Action:    userStatsAction,
}

var summary = cli.Command{
	Name:   "summary",
	Usage:  "get the all-time summary of the ledger, by admin",
	Action: summaryAction,
}

var listadmins = cli.Command{
	Name:   "admins",
	Usage:  "get the list of owners and admins",
	Action: listAdminsAction,
}

type adminSummary struct {
	Trades    int             `json:"trades"`
	Hold      decimal.Decimal `json:"hold"`
	Completed decimal.Decimal `json:"completed"`
	Refunded  decimal.Decimal `json:"refunded"`
}

func userStatsAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	identifier := ctx.Args().First()

	ledger, err := getLedger(ctx)
	if err != nil {
		return err
	}

	stats := ledger.Stats.UserStats(identifier)
	return printRespJSON(ctx, map[string]interface{}{
		"user":   identifier,
		"deals":  stats.Deals,
		"amount": stats.Amount,
	})
}

func summaryAction(ctx *cli.Context) error {
	ledger, err := getLedger(ctx)
	if err != nil {
		return err
	}

	admins := make(map[string]adminSummary)
	for admin, s := range ledger.AdminSummary() {
		admins[strconv.FormatInt(admin, 10)] = adminSummary{
			Trades:    s.Trades,
			Hold:      s.Hold,
			Completed: s.Completed,
			Refunded:  s.Refunded,
		}
	}
	totals := ledger.ChatStats(0)

	return printRespJSON(ctx, map[string]interface{}{
		"admins":  admins,
		"next_id": ledger.NextID(),
		"totals": map[string]interface{}{
			"trades":    totals.Total,
			"open":      totals.Open,
			"completed": totals.Completed,
			"refunded":  totals.Refunded,
			"volume":    totals.Volume,
		},
	})
}

func listAdminsAction(ctx *cli.Context) error {
	ledger, err := getLedger(ctx)
	if err != nil {
		return err
	}

	return printRespJSON(ctx, map[string]interface{}{
		"owners": ledger.Access.Owners(),
		"admins": ledger.Access.Admins(),
	})
}
