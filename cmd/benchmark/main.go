package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ragsearch/config"
	"ragsearch/internal/app"
)

func main() {
	dataDir := flag.String("dir", ".", "Data directory holding the collection")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	runs := flag.Int("n", 20, "Timed retrieval runs")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Collection state (backend, records, embedding model)")
		fmt.Println("  2. Similarity of the top passages to the query")
		fmt.Println("  3. Retrieval latency over repeated runs")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, app.Options{Dir: *dataDir}, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening collection: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	report := a.Collection.Health(ctx)
	if report.Records == 0 {
		fmt.Fprintf(os.Stderr, "No records in %s - run 'ragsearch ingest' first\n", report.Collection)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Collection: %s (%s)\n", report.Collection, report.Backend)
	fmt.Printf("Records:    %d\n", report.Records)
	fmt.Printf("Model:      %s (%d dimensions)\n", report.EmbeddingModel, report.EmbeddingDim)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	passages := a.Retrieve.Retrieve(ctx, *query, *topK)
	if len(passages) == 0 {
		fmt.Println("No passages retrieved.")
		os.Exit(1)
	}

	totalScore := 0.0
	for i, p := range passages {
		preview := strings.ReplaceAll(p.Text, "\n", " ")
		if r := []rune(preview); len(r) > 150 {
			preview = string(r[:150]) + "..."
		}
		totalScore += p.Score

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating(p.Score), p.Score, p.URL)
		fmt.Printf("   %s\n\n", preview)
	}

	var elapsed time.Duration
	for i := 0; i < *runs; i++ {
		start := time.Now()
		a.Retrieve.Retrieve(ctx, *query, *topK)
		elapsed += time.Since(start)
	}

	avgScore := totalScore / float64(len(passages))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", passages[0].Score)
	if *runs > 0 {
		fmt.Printf("  Mean latency:       %s over %d runs\n", elapsed/time.Duration(*runs), *runs)
	}

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - stored passages match the query well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - ingest more sources or use a stronger embedding model")
	}
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}
