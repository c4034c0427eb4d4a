package ratingservice

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// LeaderboardWorkbook renders a scope's standings as an xlsx workbook, one
// row per player.
func (s *RatingService) LeaderboardWorkbook(ctx context.Context, query LeaderboardQuery) ([]byte, error) {
	return withTelemetry(s, ctx, "LeaderboardWorkbook", func(ctx context.Context) ([]byte, error) {
		entries, err := s.Leaderboard(ctx, query)
		if err != nil {
			return nil, err
		}

		f := excelize.NewFile()
		defer f.Close()

		const sheet = "Leaderboard"
		index, err := f.NewSheet(sheet)
		if err != nil {
			return nil, fmt.Errorf("create sheet: %w", err)
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		header := []any{"Rank", "User", "Rating", "Wins", "Losses", "Played"}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}

		for i, e := range entries {
			cell := fmt.Sprintf("A%d", i+2)
			row := []any{e.Rank, string(e.UserID), e.Rating, e.Wins, e.Losses, e.Played}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+2, err)
			}
		}

		buffer, err := f.WriteToBuffer()
		if err != nil {
			return nil, fmt.Errorf("serialize workbook: %w", err)
		}
		return buffer.Bytes(), nil
	})
}
