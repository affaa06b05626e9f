package app

import (
	"context"
	"flag"
	"strings"
	"time"

	"telegram-chanreader/internal/domain/clean"
	"telegram-chanreader/internal/export"
	"telegram-chanreader/internal/infra/logger"
	"telegram-chanreader/internal/infra/pr"
	"telegram-chanreader/internal/infra/timeutil"
	"telegram-chanreader/internal/telegram/client"
	"telegram-chanreader/internal/telegram/history"
	"telegram-chanreader/internal/telegram/peers"

	"github.com/go-faster/errors"
)

// historyArgs — разобранные аргументы режима history.
type historyArgs struct {
	channel     string
	start       time.Time // нулевое значение — открытая граница
	end         time.Time // конец дня включительно
	output      string
	format      string
	limit       int
	newestFirst bool
	stripLinks  bool
	stripEmoji  bool
	reauth      bool
}

// parseHistoryArgs разбирает "history <канал> [флаги]". Каналом считается
// первый позиционный аргумент; флаги принимаются в короткой и длинной форме.
func parseHistoryArgs(args []string, cfg cleanDefaults) (historyArgs, error) {
	parsed := historyArgs{format: export.FormatText}

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		parsed.channel = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(pr.Stderr())

	var startStr, endStr string
	fs.StringVar(&startStr, "s", "", "start date, DD.MM.YYYY (inclusive)")
	fs.StringVar(&startStr, "start", "", "start date, DD.MM.YYYY (inclusive)")
	fs.StringVar(&endStr, "e", "", "end date, DD.MM.YYYY (inclusive)")
	fs.StringVar(&endStr, "end", "", "end date, DD.MM.YYYY (inclusive)")
	fs.StringVar(&parsed.output, "o", "", "output file path")
	fs.StringVar(&parsed.output, "output", "", "output file path")
	fs.StringVar(&parsed.format, "f", parsed.format, "output format: text or json")
	fs.StringVar(&parsed.format, "format", parsed.format, "output format: text or json")
	fs.IntVar(&parsed.limit, "l", 0, "max messages to export (0 = unlimited)")
	fs.IntVar(&parsed.limit, "limit", 0, "max messages to export (0 = unlimited)")
	fs.BoolVar(&parsed.newestFirst, "r", false, "newest messages first")
	fs.BoolVar(&parsed.newestFirst, "reverse", false, "newest messages first")
	fs.BoolVar(&parsed.stripLinks, "no-links", cfg.links, "strip links and mentions from texts")
	fs.BoolVar(&parsed.stripEmoji, "no-emoji", cfg.emoji, "strip emoji from texts")
	fs.BoolVar(&parsed.reauth, "auth", false, "drop saved session and re-authorize first")

	if err := fs.Parse(args); err != nil {
		return historyArgs{}, err
	}
	if parsed.channel == "" {
		parsed.channel = fs.Arg(0)
	}
	if parsed.channel == "" {
		return historyArgs{}, errors.New("history: channel is required (usage: history <channel> [flags])")
	}
	if !export.ValidFormat(parsed.format) {
		return historyArgs{}, errors.Errorf("history: unknown format %q (text or json)", parsed.format)
	}
	if parsed.limit < 0 {
		return historyArgs{}, errors.New("history: limit must be >= 0")
	}

	// Даты трактуются в таймзоне приложения (time.Local уже выставлена
	// из APP_TIMEZONE при старте процесса).
	if startStr != "" {
		start, err := timeutil.ParseDate(startStr, nil)
		if err != nil {
			return historyArgs{}, errors.Wrap(err, "history: invalid start date")
		}
		parsed.start = start
	}
	if endStr != "" {
		end, err := timeutil.ParseDate(endStr, nil)
		if err != nil {
			return historyArgs{}, errors.Wrap(err, "history: invalid end date")
		}
		parsed.end = timeutil.EndOfDay(end)
	}
	if !parsed.start.IsZero() && !parsed.end.IsZero() && parsed.end.Before(parsed.start) {
		return historyArgs{}, errors.New("history: end date is before start date")
	}
	return parsed, nil
}

// cleanDefaults — значения очистки из конфигурации, используемые как
// умолчания для флагов --no-links/--no-emoji.
type cleanDefaults struct {
	links bool
	emoji bool
}

// runHistory — разовая выгрузка истории канала в файл.
func (a *App) runHistory(args []string) error {
	parsed, err := parseHistoryArgs(args, cleanDefaults{links: a.cfg.CleanLinks, emoji: a.cfg.CleanEmoji})
	if err != nil {
		return err
	}

	tc := client.New(a.cfg)
	if parsed.reauth {
		if resetErr := tc.ResetSession(); resetErr != nil {
			return resetErr
		}
		logger.Info("Session cleared, interactive authorization will follow")
	}

	return tc.RunAuthorized(a.mainCtx, func(ctx context.Context) error {
		resolver, resErr := peers.NewResolver(tc.API(), a.cfg.PeersCache)
		if resErr != nil {
			return resErr
		}
		defer func() {
			if closeErr := resolver.Close(); closeErr != nil {
				logger.Errorf("close peers cache: %v", closeErr)
			}
		}()

		peer, resolveErr := resolver.Resolve(ctx, parsed.channel)
		if resolveErr != nil {
			return resolveErr
		}
		logger.Infof("Exporting history of %s (%d)", peer.Title, peer.ID)

		fetcher := history.NewFetcher(tc.API(), a.cfg.ThrottleRPS)
		records, collectErr := export.Collect(ctx, fetcher, peer, export.Options{
			Start:       parsed.start,
			End:         parsed.end,
			Limit:       parsed.limit,
			NewestFirst: parsed.newestFirst,
			Clean: clean.Options{
				StripLinks:    parsed.stripLinks,
				StripMentions: parsed.stripLinks,
				StripEmoji:    parsed.stripEmoji,
			},
		})
		if collectErr != nil {
			return collectErr
		}

		path := parsed.output
		if path == "" {
			path = export.DefaultPath(a.cfg.DownloadsDir, parsed.channel, parsed.format)
		}
		if writeErr := export.Write(path, records, parsed.format); writeErr != nil {
			return writeErr
		}

		pr.Printf("Exported %d messages to %s\n", len(records), path)
		logger.Infof("Export finished: %d messages -> %s", len(records), path)
		return nil
	})
}
