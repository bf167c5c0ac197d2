package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Deletion order follows the foreign keys: reminders reference bookings.
var tables = []string{"reminders", "audit_events", "processed_updates", "bookings", "credits", "guests"}

// Wipes every table and all chat sessions. Development helper for resetting
// a studio between test runs.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	if strings.EqualFold(os.Getenv("ENV"), "production") {
		fmt.Println("Error: refusing to purge a production database")
		os.Exit(1)
	}
	if os.Getenv("PURGE_CONFIRM") != "yes" {
		fmt.Println("Error: set PURGE_CONFIRM=yes to confirm. This deletes every guest, pass, booking and reminder for good.")
		os.Exit(1)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Println("Error: DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fmt.Printf("Error pinging database: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Row counts before purge:")
	for _, table := range tables {
		var count int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			fmt.Printf("  %s: unavailable (%v)\n", table, err)
			continue
		}
		fmt.Printf("  %s: %d\n", table, count)
	}

	if _, err := db.ExecContext(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" CASCADE"); err != nil {
		fmt.Printf("Error truncating tables: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Tables truncated.")

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		defer rdb.Close()

		cleared := 0
		iter := rdb.Scan(ctx, 0, "session:*", 100).Iterator()
		for iter.Next(ctx) {
			if err := rdb.Del(ctx, iter.Val()).Err(); err == nil {
				cleared++
			}
		}
		if err := iter.Err(); err != nil {
			fmt.Printf("Warning: failed to scan redis sessions: %v\n", err)
		} else {
			fmt.Printf("Cleared %d chat sessions.\n", cleared)
		}
	}

	fmt.Println("Purge complete.")
}
