package service

import (
	"fmt"
	"strings"

	"rsi-board/internal/domain"
)

const (
	statusLoadFailed  = "Could not load market data. Retrying later."
	statusUnavailable = "Market data temporarily unavailable. Please try again later."
	previewCap        = 3
)

func progressText(done, total int) string {
	return fmt.Sprintf("Fetching price history (%d/%d)...", done, total)
}

// preview lists up to previewCap names and counts the rest.
func preview(names []string) string {
	if len(names) <= previewCap {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(names[:previewCap], ", "), len(names)-previewCap)
}

// summarize classifies the end of a cycle into the status line shown to the user.
func summarize(cfg domain.LoadConfig, total, rendered int, insufficient, failed []string) string {
	if total > 0 && len(failed) == total {
		return statusUnavailable
	}

	var b strings.Builder
	if rendered == 0 {
		b.WriteString("No RSI data for the selected range")
		if len(insufficient) > 0 {
			fmt.Fprintf(&b, " (%s)", preview(insufficient))
		}
		b.WriteString(".")
	} else {
		fmt.Fprintf(&b, "Showing RSI(%d) for %d of %d coins over %d %s.",
			cfg.Period, rendered, total, cfg.RangeDays, plural(cfg.RangeDays, "day", "days"))
		if len(insufficient) > 0 {
			fmt.Fprintf(&b, " %d with insufficient data: %s.", len(insufficient), preview(insufficient))
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, " %d failed: %s.", len(failed), preview(failed))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
