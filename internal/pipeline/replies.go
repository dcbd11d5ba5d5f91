package pipeline

import (
	"fmt"
	"strings"

	"spendtrace/internal/core"
)

const (
	replyIrrelevant  = "I only answer expense related queries."
	replyUnknown     = "🤔 I wasn't sure what you meant."
	replyNothingUndo = "⚠️ Nothing to undo."
	reportHeader     = "🔍 *CFO Report*\n"
	errorPrefix      = "❌ Error: "
)

func logReply(row core.LedgerRow) string {
	return fmt.Sprintf("✅ *Expense Saved!*\n🛒 %s\n💰 %s %s", row.Item, core.FormatAmount(row.Amount), row.Currency)
}

func queryReply(sum core.Summary) string {
	if sum.Empty() {
		return reportHeader + "No matching expenses found."
	}
	var b strings.Builder
	b.WriteString(reportHeader)
	fmt.Fprintf(&b, "📊 Found %d transactions:\n", sum.Count)
	for _, cur := range sum.Currencies() {
		fmt.Fprintf(&b, "💰 %s %s\n", core.FormatAmount(sum.Totals[cur]), cur)
	}
	fmt.Fprintf(&b, "📅 Period: %s to %s", sum.Start, sum.End)
	return b.String()
}

func editReply(res core.EditResult) string {
	if !res.Found {
		if res.DateConstrained {
			return fmt.Sprintf("❌ Could not find '%s' on %s.", res.Target, res.TargetDate)
		}
		return fmt.Sprintf("❌ Could not find '%s' recently.", res.Target)
	}
	return fmt.Sprintf("✅ Updated *%s* (%s) to *%s %s*.", res.Previous.Item, res.PreviousDate, core.FormatAmount(res.Amount), res.Currency)
}

func undoReply(res core.UndoResult) string {
	if res.Empty {
		return replyNothingUndo
	}
	return fmt.Sprintf("✅ Last entry deleted (Row %d).", res.Row)
}

func errorReply(err error) string {
	return errorPrefix + err.Error()
}
