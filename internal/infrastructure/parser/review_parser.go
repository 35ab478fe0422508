package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

const (
	recentReviewsSubtitle = "Recent Reviews:"
	allReviewsSubtitle    = "All Reviews:"
)

var tooltipExpr = regexp.MustCompile(`(\d+)% of the ([\d,]+) user reviews`)

// ReviewParser reads the review summary rows of a Steam store page.
type ReviewParser struct{}

var _ ports.ReviewExtractor = (*ReviewParser)(nil)

// NewReviewParser returns a stateless extractor.
func NewReviewParser() *ReviewParser {
	return &ReviewParser{}
}

// ExtractReviewSummaries locates the "Recent Reviews" and "All Reviews" rows inside
// #userReviews and returns their labels and tooltip totals. Missing rows yield
// zero-valued summaries.
func (p *ReviewParser) ExtractReviewSummaries(page string) (recent, all domain.ReviewSummary, err error) {
	if strings.TrimSpace(page) == "" {
		return recent, all, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return recent, all, fmt.Errorf("parse store page: %w", err)
	}

	doc.Find("div#userReviews .user_reviews_summary_row").Each(func(_ int, row *goquery.Selection) {
		subtitle := strings.TrimSpace(row.Find("div.subtitle").First().Text())
		switch subtitle {
		case recentReviewsSubtitle:
			recent = summaryFromRow(row)
		case allReviewsSubtitle:
			all = summaryFromRow(row)
		}
	})

	return recent, all, nil
}

func summaryFromRow(row *goquery.Selection) domain.ReviewSummary {
	tooltip, _ := row.Attr("data-tooltip-html")
	return domain.ReviewSummary{
		Label:      strings.TrimSpace(row.Find("span.game_review_summary").First().Text()),
		TotalCount: parseTooltip(tooltip),
	}
}

// parseTooltip extracts M from "N% of the M user reviews", or 0.
func parseTooltip(tooltip string) int {
	match := tooltipExpr.FindStringSubmatch(tooltip)
	if match == nil {
		return 0
	}
	total, err := strconv.Atoi(strings.ReplaceAll(match[2], ",", ""))
	if err != nil {
		return 0
	}
	return total
}
