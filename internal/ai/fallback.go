package ai

import (
	"fmt"
	"strings"
)

// Fallback composes a canned answer when every provider is down or no
// API key is configured. The reply is keyed on what the question asks
// for so the app stays usable offline.
func Fallback(assistantName, userName, question, summaryText string) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "name"):
		return fmt.Sprintf("I am %s, your personal finance assistant. You are registered as %s. %s",
			assistantName, userName, summaryText)
	case strings.Contains(q, "add") && strings.Contains(q, "transaction"):
		return fmt.Sprintf("I am %s. To record a transaction, choose income or expense, pick a category and enter the amount. %s",
			assistantName, summaryText)
	case strings.Contains(q, "save"):
		return fmt.Sprintf("I am %s. A good starting point is to set aside a fixed share of your income right after it arrives and review your largest expense categories. %s",
			assistantName, summaryText)
	default:
		return fmt.Sprintf("I am %s, your personal finance assistant. I could not reach the advice service right now, but here is where you stand: %s",
			assistantName, summaryText)
	}
}
