package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rsi-board/internal/board"
	"rsi-board/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type SnapshotSource interface {
	Snapshot() domain.Snapshot
	Config() domain.LoadConfig
}

type Loader interface {
	RequestLoad(ctx context.Context, cfg domain.LoadConfig) bool
}

var newBot = tele.NewBot

// StartTelegramBot serves /status, /rsi and /refresh until ctx is cancelled.
// Without a token it logs and returns nil.
func StartTelegramBot(ctx context.Context, token string, snapshots SnapshotSource, loader Loader) error {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := newBot(pref)
	if err != nil {
		return fmt.Errorf("create Telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/status", func(c tele.Context) error {
		return c.Send(statusMessage(snapshots.Snapshot()))
	})

	b.Handle("/rsi", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(overviewMessage(snapshots.Snapshot()))
		}
		return c.Send(coinMessage(snapshots.Snapshot(), args[0]))
	})

	b.Handle("/refresh", func(c tele.Context) error {
		cfg := snapshots.Config()
		cfg.Force = true
		started := loader.RequestLoad(context.WithoutCancel(ctx), cfg)
		return c.Send(refreshMessage(started))
	})

	log.Println("Telegram bot started")
	go b.Start()
	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	return nil
}

func statusMessage(snap domain.Snapshot) string {
	msg := fmt.Sprintf("%s\nRSI(%d) over %d days", snap.Status, snap.Config.Period, snap.Config.RangeDays)
	if !snap.UpdatedAt.IsZero() {
		msg += "\nUpdated " + snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return msg
}

func overviewMessage(snap domain.Snapshot) string {
	rows := board.Rows(snap)
	if len(rows) == 0 {
		return "No RSI data yet.\n" + snap.Status
	}
	var b strings.Builder
	fmt.Fprintf(&b, "RSI(%d) over %d days\n", snap.Config.Period, snap.Config.RangeDays)
	for _, r := range rows {
		fmt.Fprintf(&b, "%-6s %6.2f  %s\n", r.Label, r.RSI, r.Zone)
	}
	b.WriteString("Usage: /rsi BTC")
	return b.String()
}

func coinMessage(snap domain.Snapshot, symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	ds, ok := board.Find(snap, symbol)
	if !ok {
		return fmt.Sprintf("No RSI data for %s", symbol)
	}
	v, ok := board.LatestRSI(ds)
	if !ok {
		return fmt.Sprintf("%s has no RSI value yet", ds.DisplayName)
	}
	return fmt.Sprintf("%s\nRSI(%d): %.2f (%s)", ds.DisplayName, snap.Config.Period, v, board.Zone(v))
}

func refreshMessage(started bool) string {
	if started {
		return "Refresh started."
	}
	return "A load is already running; refresh queued."
}
