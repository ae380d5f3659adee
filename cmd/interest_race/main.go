package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/ventures/internal/adapter/storage"
	"github.com/rl1809/ventures/internal/core/service"
)

const totalRequests = 50

func main() {
	driver := flag.String("driver", "sqlite3", "mysql or sqlite3")
	dsn := flag.String("dsn", ":memory:", "database dsn")
	flag.Parse()

	ctx := context.Background()

	db, dialect, err := openDB(*driver, *dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	store := storage.NewSQLAdapter(db, dialect)
	if err := store.Migrate(ctx, nil); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Seed one founder, one investor and a pitch
	founder, investor := uuid.NewString(), uuid.NewString()
	for _, id := range []string{founder, investor} {
		if _, err := db.ExecContext(ctx, `INSERT INTO agents (id, name) VALUES (?, ?)`, id, "race-"+id[:8]); err != nil {
			log.Fatalf("failed to seed agent: %v", err)
		}
	}

	ventureService := service.NewVentureService(store, store, service.WithTransactor(store))
	pitch, err := ventureService.CreatePitch(ctx, service.PitchInput{
		FounderID: founder,
		Title:     "Race pitch",
		Vision:    "Many investors, one row",
	})
	if err != nil {
		log.Fatalf("failed to create pitch: %v", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	// Same investor, same pitch, concurrently
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			amount := float64(n)
			_, err := ventureService.ExpressInterest(ctx, service.InterestInput{
				PitchID:    pitch.ID,
				InvestorID: investor,
				Amount:     &amount,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== INTEREST RACE RESULTS ==========")
	fmt.Printf("Driver:           %s\n", *driver)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("===========================================")

	pass := color.New(color.FgGreen).Sprint("PASS")
	failMark := color.New(color.FgRed).Sprint("FAIL")

	if success == totalRequests {
		fmt.Printf("%s: all %d upserts succeeded\n", pass, totalRequests)
	} else {
		fmt.Printf("%s: expected %d successes, got %d\n", failMark, totalRequests, success)
	}

	var rows int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM venture_interests WHERE pitch_id = ? AND investor_id = ?`,
		pitch.ID, investor,
	).Scan(&rows); err != nil {
		log.Fatalf("failed to count interests: %v", err)
	}

	if rows == 1 {
		fmt.Printf("%s: exactly one interest row for the pair\n", pass)
	} else {
		fmt.Printf("%s: expected 1 interest row, got %d\n", failMark, rows)
	}
}

// openDB opens one of the database/sql backends. Seeding goes through raw
// SQL with ? placeholders, so postgres is rejected.
func openDB(driver, dsn string) (*sql.DB, storage.Dialect, error) {
	dialect, err := storage.ParseDialect(driver)
	if err != nil {
		return nil, "", err
	}

	switch dialect {
	case storage.DialectMySQL:
		db, err := sql.Open("mysql", dsn)
		return db, dialect, err
	case storage.DialectSQLite:
		db, err := storage.OpenSQLite(dsn)
		return db, dialect, err
	default:
		return nil, "", fmt.Errorf("driver %q not supported, use mysql or sqlite3", driver)
	}
}
