package scoring

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gamescorer/internal/domain"
)

// CSVHeader is the first line of every export.
const CSVHeader = "id,name,genres,RecentReviews score,AllReviews score,Year score,Total reviews score,Score"

// WriteCSV writes the header and one row per game. Name and genres are always
// quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, games []domain.ScoredGame) error {
	buf := bufio.NewWriter(w)
	if _, err := buf.WriteString(CSVHeader + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, game := range games {
		if _, err := buf.WriteString(FormatRow(game) + "\n"); err != nil {
			return fmt.Errorf("write row %d: %w", game.ID, err)
		}
	}
	return buf.Flush()
}

// FormatRow renders a single CSV row without the line terminator.
func FormatRow(game domain.ScoredGame) string {
	return fmt.Sprintf("%d,%s,%s,%d,%d,%d,%d,%d",
		game.ID,
		quote(game.Name),
		quote(game.Genres),
		game.RecentScore,
		game.AllScore,
		game.YearScore,
		game.TotalReviewsScore,
		game.TotalScore,
	)
}

func quote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
