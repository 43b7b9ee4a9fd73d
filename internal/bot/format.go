package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"apodwall/internal/domain"
)

const welcomeMessage = `Welcome to APOD Wall! Commands:
/today - today's Astronomy Picture of the Day
/date YYYY-MM-DD - the picture of a past day
/history - recently viewed pictures
/clear - clear the history`

// formatCaption renders the title block and explanation, cut to Telegram's caption limit.
func formatCaption(rec domain.Record) string {
	var sb strings.Builder
	sb.WriteString(rec.Title)
	sb.WriteString(" (")
	sb.WriteString(rec.Date)
	sb.WriteString(")")
	if rec.Copyright != "" {
		sb.WriteString("\n© ")
		sb.WriteString(rec.Copyright)
	}
	if rec.Explanation != "" {
		sb.WriteString("\n\n")
		sb.WriteString(rec.Explanation)
	}
	return truncateRunes(sb.String(), maxCaption)
}

// formatHistory lists at most limit entries, most recent first.
func formatHistory(entries []domain.HistoryEntry, limit int) string {
	if len(entries) == 0 {
		return "History is empty."
	}
	var sb strings.Builder
	sb.WriteString("Recently viewed:")
	for i, e := range entries {
		if i == limit {
			fmt.Fprintf(&sb, "\n...and %d more", len(entries)-limit)
			break
		}
		fmt.Fprintf(&sb, "\n%s  %s", e.Date, e.Title)
	}
	return sb.String()
}

// dateArgument extracts the date from "/date 2024-10-19".
func dateArgument(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "", false
	}
	if _, err := domain.ParseDate(fields[1]); err != nil {
		return "", false
	}
	return fields[1], true
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
