package db

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"partydeck/internal/pools"
)

// LoadPools reads every pool item and groups them by game id, in insertion
// order, for the in-process content library.
func LoadPools(conn *gorm.DB) ([]pools.Pool, error) {
	var rows []PoolItem
	if err := conn.Order("game_id, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load pool items: %w", err)
	}
	byGame := make(map[string]*pools.Pool)
	var order []string
	for _, row := range rows {
		item := pools.Item{
			ID:     row.ItemID,
			Answer: row.Answer,
			Points: row.Points,
		}
		if len(row.Text) > 0 {
			if err := json.Unmarshal(row.Text, &item.Text); err != nil {
				return nil, fmt.Errorf("decode pool item %s/%s text: %w", row.GameID, row.ItemID, err)
			}
		}
		if len(row.Aliases) > 0 {
			if err := json.Unmarshal(row.Aliases, &item.Aliases); err != nil {
				return nil, fmt.Errorf("decode pool item %s/%s aliases: %w", row.GameID, row.ItemID, err)
			}
		}
		pool, ok := byGame[row.GameID]
		if !ok {
			pool = &pools.Pool{GameID: row.GameID}
			byGame[row.GameID] = pool
			order = append(order, row.GameID)
		}
		pool.Items = append(pool.Items, item)
	}
	out := make([]pools.Pool, 0, len(order))
	for _, gameID := range order {
		out = append(out, *byGame[gameID])
	}
	return out, nil
}
