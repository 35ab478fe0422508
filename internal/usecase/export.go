package usecase

import (
	"context"
	"errors"
	"fmt"

	"gamescorer/internal/domain"
	"gamescorer/internal/scoring"
)

// Scores loads every stored game and scores it against the current year.
func (p *Pipeline) Scores(ctx context.Context) ([]domain.ScoredGame, error) {
	if p.repository == nil {
		return nil, errors.New("pipeline: scoring requires a repository")
	}
	games, err := p.repository.LoadAllGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	return scoring.ScoreAll(games, p.now().Year()), nil
}

// Export scores all stored games and writes them through the exporter. It returns
// the artifact location and the number of rows written.
func (p *Pipeline) Export(ctx context.Context) (string, int, error) {
	if p.exporter == nil {
		return "", 0, errors.New("pipeline: export requires an exporter")
	}

	p.info("SCORING", "Calculating game scores...")
	scored, err := p.Scores(ctx)
	if err != nil {
		return "", 0, err
	}

	path, err := p.exporter.Export(ctx, scored)
	if err != nil {
		return "", 0, fmt.Errorf("export scores: %w", err)
	}
	p.notify(domain.LevelSuccess, "EXPORT", fmt.Sprintf("Generated scores for %d games", len(scored)))
	return path, len(scored), nil
}
