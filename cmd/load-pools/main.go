package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"partydeck/internal/config"
	"partydeck/internal/db"
	"partydeck/internal/pools"

	"gorm.io/datatypes"
)

func main() {
	filePath := flag.String("file", "pools.json", "path to pools json")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	loaded, err := readPools(*filePath)
	if err != nil {
		log.Fatalf("failed to read pools: %v", err)
	}

	inserted := 0
	for _, pool := range loaded {
		for _, item := range pool.Items {
			row, err := toRow(pool.GameID, item)
			if err != nil {
				log.Fatalf("failed to encode item %s/%s: %v", pool.GameID, item.ID, err)
			}
			if err := conn.Where(db.PoolItem{GameID: pool.GameID, ItemID: item.ID}).Assign(row).FirstOrCreate(&db.PoolItem{}).Error; err != nil {
				log.Fatalf("failed to upsert pool item: %v", err)
			}
			inserted++
		}
	}

	log.Printf("loaded %d pool items across %d games", inserted, len(loaded))
}

func readPools(path string) ([]pools.Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var loaded []pools.Pool
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, err
	}
	return loaded, nil
}

func toRow(gameID string, item pools.Item) (db.PoolItem, error) {
	text, err := json.Marshal(item.Text)
	if err != nil {
		return db.PoolItem{}, err
	}
	row := db.PoolItem{
		GameID: gameID,
		ItemID: item.ID,
		Text:   datatypes.JSON(text),
		Answer: item.Answer,
		Points: item.Points,
	}
	if len(item.Aliases) > 0 {
		aliases, err := json.Marshal(item.Aliases)
		if err != nil {
			return db.PoolItem{}, err
		}
		row.Aliases = datatypes.JSON(aliases)
	}
	return row, nil
}
