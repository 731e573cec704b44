/*

This file contains the plain-text report renderer for a finished run.

*/

package backtest

import (
	"fmt"
	"io"

	sdkmath "cosmossdk.io/math"
	"github.com/olekukonko/tablewriter"

	"github.com/solyield/lprisk/internal/types"
	"github.com/solyield/lprisk/internal/utils"
)

// RenderReport writes a human-readable summary of a backtest run.
func RenderReport(result *types.BacktestResult, out io.Writer) {
	fmt.Fprintf(out, "\nBacktest: %s  (%s -> %s)\n",
		result.StrategyName,
		result.StartedAt.Format("2006-01-02"),
		result.EndedAt.Format("2006-01-02"))
	if result.Cancelled {
		fmt.Fprintln(out, "NOTE: run was cancelled; results cover completed ticks only")
	}

	stats := result.Stats
	profitFactor := fmt.Sprintf("%.2f", stats.ProfitFactor)
	if stats.ProfitFactorInfinite {
		profitFactor = "inf (no losses)"
	}

	summary := tablewriter.NewWriter(out)
	summary.Header("Metric", "Value")
	summary.Append("Initial capital", "$"+decMoney(result.InitialCapitalUSD))
	summary.Append("Final value", "$"+decMoney(result.FinalValueUSD))
	summary.Append("Total return", fmt.Sprintf("%.2f%%", stats.TotalReturnPercent))
	summary.Append("Trades", fmt.Sprintf("%d (%d W / %d L)", stats.TotalTrades, stats.WinningTrades, stats.LosingTrades))
	summary.Append("Win rate", fmt.Sprintf("%.1f%%", stats.WinRate*100))
	summary.Append("Avg win / loss", fmt.Sprintf("$%.2f / $%.2f", stats.AvgWinUSD, stats.AvgLossUSD))
	summary.Append("Profit factor", profitFactor)
	summary.Append("Max drawdown", fmt.Sprintf("%.2f%%", stats.MaxDrawdownPercent))
	summary.Append("Sharpe", fmt.Sprintf("%.2f", stats.SharpeRatio))
	summary.Append("Sortino", fmt.Sprintf("%.2f", stats.SortinoRatio))
	summary.Append("Calmar", fmt.Sprintf("%.2f", stats.CalmarRatio))
	summary.Append("Skipped ticks", fmt.Sprintf("%d", len(result.SkippedTicks)))
	summary.Render()

	if len(result.Trades) == 0 {
		fmt.Fprintln(out, "No trades.")
		return
	}

	fmt.Fprintln(out)
	trades := tablewriter.NewWriter(out)
	trades.Header("ID", "Pair", "Entered", "Held", "Entry$", "Exit$", "PnL%", "Reason")
	for _, trade := range result.Trades {
		trades.Append(
			trade.ID,
			trade.Pair,
			trade.EnteredAt.Format("01-02 15:04"),
			fmt.Sprintf("%.0fh", trade.HoursHeld),
			decMoney(trade.EntryValueUSD),
			decMoney(trade.ExitValueUSD),
			decPercent(trade.PnLPercent),
			string(trade.ExitReason),
		)
	}
	trades.Render()
}

func decMoney(d sdkmath.LegacyDec) string {
	f, err := utils.DecToFloat(d)
	if err != nil {
		return "?"
	}
	return fmt.Sprintf("%.2f", f)
}

func decPercent(d sdkmath.LegacyDec) string {
	f, err := utils.DecToFloat(d)
	if err != nil {
		return "?"
	}
	return fmt.Sprintf("%+.2f%%", f)
}
