// Package report renders a completed backtest result for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stockstream/internal/backtest"
)

// Styles.
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Render formats a completed run: header, performance metrics, and the
// closed-trade list.
func Render(res *backtest.Result) string {
	var b strings.Builder

	title := fmt.Sprintf(" %s  %s → %s ",
		res.Strategy,
		res.Start.Format("2006-01-02"),
		res.End.Format("2006-01-02"))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Performance"))
	b.WriteString("\n")
	writeRow(&b, "Initial capital", fmt.Sprintf("%.2f", res.InitialCash))
	writeRow(&b, "Final equity", fmt.Sprintf("%.2f", res.FinalEquity))
	writeSignedRow(&b, "Total return", formatPct(res.Metrics.TotalReturn), res.Metrics.TotalReturn)
	writeSignedRow(&b, "Annualized return", formatPct(res.Metrics.AnnualizedReturn), res.Metrics.AnnualizedReturn)
	writeRow(&b, "Volatility", formatPct(res.Metrics.Volatility))
	writeRow(&b, "Sharpe ratio", fmt.Sprintf("%.2f", res.Metrics.SharpeRatio))
	writeRow(&b, "Sortino ratio", fmt.Sprintf("%.2f", res.Metrics.SortinoRatio))
	writeSignedRow(&b, "Max drawdown", formatPct(-res.Metrics.MaxDrawdown), -res.Metrics.MaxDrawdown)
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Trades"))
	b.WriteString("\n")
	writeRow(&b, "Total trades", fmt.Sprintf("%d", res.Metrics.TotalTrades))
	writeRow(&b, "Win rate", formatPct(res.Metrics.WinRate))
	writeRow(&b, "Profit factor", formatProfitFactor(res.Metrics.ProfitFactor))
	writeSignedRow(&b, "Avg win", fmt.Sprintf("%.2f", res.Metrics.AvgWin), res.Metrics.AvgWin)
	writeSignedRow(&b, "Avg loss", fmt.Sprintf("%.2f", res.Metrics.AvgLoss), res.Metrics.AvgLoss)
	writeSignedRow(&b, "Largest win", fmt.Sprintf("%.2f", res.Metrics.LargestWin), res.Metrics.LargestWin)
	writeSignedRow(&b, "Largest loss", fmt.Sprintf("%.2f", res.Metrics.LargestLoss), res.Metrics.LargestLoss)

	if len(res.Trades) > 0 {
		b.WriteString("\n")
		b.WriteString(colHeaderStyle.Render(fmt.Sprintf(
			"  %-8s %-12s %-12s %10s %10s %8s %12s %8s",
			"Symbol", "Entry", "Exit", "Entry Px", "Exit Px", "Qty", "PnL", "Ret%")))
		b.WriteString("\n")

		for _, tr := range res.Trades {
			line := fmt.Sprintf(
				"  %-8s %-12s %-12s %10.2f %10.2f %8d %12.2f %7.2f%%",
				tr.Symbol,
				tr.EntryDate.Format("2006-01-02"),
				tr.ExitDate.Format("2006-01-02"),
				tr.EntryPx, tr.ExitPx, tr.Qty, tr.PnL, tr.ReturnPct)
			switch {
			case tr.PnL > 0:
				b.WriteString(gainStyle.Render(line))
			case tr.PnL < 0:
				b.WriteString(lossStyle.Render(line))
			default:
				b.WriteString(dimStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %-20s", label)))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// writeSignedRow colors the value by the sign of v.
func writeSignedRow(b *strings.Builder, label, value string, v float64) {
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %-20s", label)))
	switch {
	case v > 0:
		b.WriteString(gainStyle.Render(value))
	case v < 0:
		b.WriteString(lossStyle.Render(value))
	default:
		b.WriteString(valueStyle.Render(value))
	}
	b.WriteString("\n")
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatProfitFactor(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
