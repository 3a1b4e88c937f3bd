package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/scholarship-finder/backend/services/scholarships"
	"github.com/scholarship-finder/backend/supabase/client"
)

// seed-scholarships imports a scraped scholarship catalog (one JSON
// array) into the scholarships table. Rows that fail insert are logged
// and skipped so one bad record never aborts the import.
func main() {
	var (
		envFile = flag.String("env", ".env", "Path to .env with Supabase credentials")
		input   = flag.String("input", "scholarships.json", "Path to scholarship JSON array")
		dryRun  = flag.Bool("dry-run", false, "Parse and validate without writing")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("load env (%s): %v (continuing with process env)", *envFile, err)
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	serviceKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseURL == "" || serviceKey == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	raw, err := os.ReadFile(filepath.Clean(*input))
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var entries []scholarships.Scholarship
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatalf("parse input: %v", err)
	}
	log.Printf("parsed %d scholarships from %s", len(entries), *input)

	skipped := 0
	for i := range entries {
		if entries[i].Title == "" {
			log.Printf("skipping entry %d: missing title", i)
			skipped++
			continue
		}
	}
	if *dryRun {
		log.Printf("dry run: %d valid, %d skipped", len(entries)-skipped, skipped)
		return
	}

	db, err := client.New(client.Config{
		URL:    supabaseURL,
		APIKey: serviceKey,
		Retry:  client.DefaultRetryConfig(),
	})
	if err != nil {
		log.Fatalf("create supabase client: %v", err)
	}

	store := scholarships.NewSupabaseStore(db)
	ctx := context.Background()

	imported := 0
	for i := range entries {
		if entries[i].Title == "" {
			continue
		}
		entries[i].Active = true
		if _, err := store.Insert(ctx, &entries[i]); err != nil {
			log.Printf("insert %q: %v", entries[i].Title, err)
			skipped++
			continue
		}
		imported++
	}

	log.Printf("imported %d scholarships, skipped %d", imported, skipped)
}
