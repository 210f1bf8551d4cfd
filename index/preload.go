package index

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	// preloadWorkers bounds concurrent content reads during preload.
	preloadWorkers = 8

	// firstLineMaxRunes is the heading length kept before truncation.
	firstLineMaxRunes = 50
)

var headingPattern = regexp.MustCompile(`^#{1,4}\s+(.+)`)

// ExtractFirstLine returns the first level 1-4 markdown heading of text,
// truncated to 50 characters plus an ellipsis.
func ExtractFirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		match := headingPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		heading := strings.TrimSpace(match[1])
		if utf8.RuneCountInString(heading) > firstLineMaxRunes {
			runes := []rune(heading)
			return string(runes[:firstLineMaxRunes]) + "…"
		}
		return heading
	}
	return ""
}

// Preload reads every record's content once and caches the text and first
// heading. A failed read leaves the record with empty text and no heading;
// it never aborts the load. Preload returns early only when ctx is done.
func Preload(ctx context.Context, records []*DocumentRecord, logger *slog.Logger) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(preloadWorkers)

	for _, record := range records {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			text, err := readRecord(groupCtx, record)
			if err != nil {
				logger.Debug("preload read failed", "path", record.Path, "error", err)
				record.setCache("", "")
				return nil
			}
			record.setCache(text, ExtractFirstLine(text))
			return nil
		})
	}

	return group.Wait()
}

func readRecord(ctx context.Context, record *DocumentRecord) (string, error) {
	if record.read == nil {
		return "", nil
	}
	return record.read(ctx)
}
