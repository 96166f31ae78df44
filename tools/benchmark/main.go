package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "http://localhost:8080"
	progressEvery  = 100 // How often to print a progress line
)

type Config struct {
	BaseURL       string
	APIKey        string
	DebitAccount  uint64 // Pre-funded account the transfers debit
	CreditAccount uint64 // Account the transfers credit
	AssetID       uint64
	Amount        string        // Per-transfer amount
	Requests      int           // Total number of entries to post
	Concurrency   int           // Number of concurrent workers
	Timeout       time.Duration // Timeout for each request
	OutputFile    string        // Output markdown file path (optional)
	Debug         bool
}

// BenchmarkStats aggregates the outcome of a load run
type BenchmarkStats struct {
	StartTime time.Time
	EndTime   time.Time

	Total        int
	Created      int
	Duplicates   int
	Insufficient int
	Conflicts    int
	OtherErrors  int

	Latencies []time.Duration // Only successful posts

	errorSamples []string
}

func main() {
	cfg := parseFlags()

	if cfg.DebitAccount == 0 || cfg.CreditAccount == 0 {
		fmt.Println("Error: debit-account and credit-account are required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Printf("Target: %s\n", cfg.BaseURL)
	fmt.Printf("Transfers: %d x %s (account %d -> %d), concurrency %d\n\n",
		cfg.Requests, cfg.Amount, cfg.DebitAccount, cfg.CreditAccount, cfg.Concurrency)

	stats := runBenchmark(ctx, cfg)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BENCHMARK RESULTS")
	fmt.Println(strings.Repeat("=", 80))
	printStats(stats)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, cfg, stats); err != nil {
			fmt.Printf("\nWarning: failed to write markdown file: %v\n", err)
		} else {
			fmt.Printf("\nReport written to: %s\n", cfg.OutputFile)
		}
	}

	if stats.OtherErrors > 0 {
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.BaseURL, "base-url", defaultBaseURL, "Ledger API base URL")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for authentication")
	flag.Uint64Var(&cfg.DebitAccount, "debit-account", 0, "Pre-funded account ID the transfers debit (required)")
	flag.Uint64Var(&cfg.CreditAccount, "credit-account", 0, "Account ID the transfers credit (required)")
	flag.Uint64Var(&cfg.AssetID, "asset-id", 1, "Asset ID for the transfer lines")
	flag.StringVar(&cfg.Amount, "amount", "0.000001", "Per-transfer amount")
	flag.IntVar(&cfg.Requests, "requests", 1000, "Total number of entries to post")
	flag.IntVar(&cfg.Concurrency, "concurrency", 10, "Number of concurrent workers")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	var timeoutSeconds int
	flag.IntVar(&timeoutSeconds, "timeout", 10, "Timeout for each request in seconds")

	configFile := flag.String("config", "", "Path to config file (optional)")

	flag.Parse()

	cfg.Timeout = time.Duration(timeoutSeconds) * time.Second

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.Requests <= 0 {
		cfg.Requests = 1000
	}

	// Load from config file if specified
	if *configFile != "" {
		fileCfg, err := LoadConfig(*configFile)
		if err != nil {
			fmt.Printf("Warning: failed to load config file: %v\n", err)
		} else {
			if cfg.BaseURL == defaultBaseURL && fileCfg.BaseURL != "" {
				cfg.BaseURL = fileCfg.BaseURL
			}
			if cfg.APIKey == "" && fileCfg.APIKey != "" {
				cfg.APIKey = fileCfg.APIKey
			}
		}
	}

	return cfg
}

// runBenchmark posts cfg.Requests transfer entries through a worker pool and
// collects per-request outcomes. Every entry carries a unique reference so a
// retried request is counted as a duplicate, not a double spend.
func runBenchmark(ctx context.Context, cfg *Config) *BenchmarkStats {
	stats := &BenchmarkStats{StartTime: time.Now()}
	runID := uuid.NewString()[:8]

	client := &http.Client{Timeout: cfg.Timeout}

	var mu sync.Mutex
	var wg sync.WaitGroup
	workChan := make(chan int, cfg.Concurrency*2)

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for seq := range workChan {
				outcome, latency, errDetail := postTransfer(ctx, client, cfg, runID, seq)

				mu.Lock()
				stats.Total++
				switch outcome {
				case outcomeCreated:
					stats.Created++
					stats.Latencies = append(stats.Latencies, latency)
				case outcomeDuplicate:
					stats.Duplicates++
				case outcomeInsufficient:
					stats.Insufficient++
				case outcomeConflict:
					stats.Conflicts++
				default:
					stats.OtherErrors++
					if len(stats.errorSamples) < 5 {
						stats.errorSamples = append(stats.errorSamples, errDetail)
					}
				}
				done := stats.Total
				mu.Unlock()

				if cfg.Debug {
					fmt.Printf("[DEBUG] Worker %d seq %d: %s (%s)\n", workerID, seq, outcome, formatDuration(latency))
				} else if done%progressEvery == 0 {
					fmt.Printf("\r  Posted %d/%d entries...", done, cfg.Requests)
				}
			}
		}(i)
	}

	// Feed work to workers
feed:
	for seq := 0; seq < cfg.Requests; seq++ {
		select {
		case workChan <- seq:
		case <-ctx.Done():
			break feed
		}
	}
	close(workChan)

	wg.Wait()
	stats.EndTime = time.Now()
	return stats
}

type outcome string

const (
	outcomeCreated      outcome = "created"
	outcomeDuplicate    outcome = "duplicate"
	outcomeInsufficient outcome = "insufficient"
	outcomeConflict     outcome = "conflict"
	outcomeError        outcome = "error"
)

// postTransfer posts one balanced transfer entry and classifies the response.
func postTransfer(ctx context.Context, client *http.Client, cfg *Config, runID string, seq int) (outcome, time.Duration, string) {
	body := map[string]any{
		"type":      "transfer",
		"reference": fmt.Sprintf("bench:%s:%d", runID, seq),
		"lines": []map[string]any{
			{"account_id": cfg.DebitAccount, "asset_id": cfg.AssetID, "amount": "-" + cfg.Amount},
			{"account_id": cfg.CreditAccount, "asset_id": cfg.AssetID, "amount": cfg.Amount},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return outcomeError, 0, err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/v1/entries", bytes.NewReader(payload))
	if err != nil {
		return outcomeError, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "ApiKey "+cfg.APIKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return outcomeError, latency, err.Error()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusCreated:
		return outcomeCreated, latency, ""
	case resp.StatusCode == http.StatusConflict:
		var errResp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		switch errResp.Error.Code {
		case "duplicate_reference":
			return outcomeDuplicate, latency, ""
		case "insufficient_available":
			return outcomeInsufficient, latency, ""
		}
		return outcomeError, latency, fmt.Sprintf("409 %s", errResp.Error.Code)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return outcomeConflict, latency, ""
	default:
		return outcomeError, latency, fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
}

// percentile returns the p-th percentile of sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printStats(stats *BenchmarkStats) {
	elapsed := stats.EndTime.Sub(stats.StartTime)

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Run Summary:\n")
	fmt.Printf("  Duration:     %s\n", formatDuration(elapsed))
	fmt.Printf("  Total:        %d\n", stats.Total)
	fmt.Printf("  Created:      %d (%s)\n", stats.Created, percentageString(stats.Created, stats.Total))
	if stats.Duplicates > 0 {
		fmt.Printf("  Duplicates:   %d (%s)\n", stats.Duplicates, percentageString(stats.Duplicates, stats.Total))
	}
	if stats.Insufficient > 0 {
		fmt.Printf("  Insufficient: %d (%s)\n", stats.Insufficient, percentageString(stats.Insufficient, stats.Total))
	}
	if stats.Conflicts > 0 {
		fmt.Printf("  Conflicts:    %d (%s)\n", stats.Conflicts, percentageString(stats.Conflicts, stats.Total))
	}
	if stats.OtherErrors > 0 {
		fmt.Printf("  Errors:       %d (%s)\n", stats.OtherErrors, percentageString(stats.OtherErrors, stats.Total))
		for _, sample := range stats.errorSamples {
			fmt.Printf("    - %s\n", sample)
		}
	}
	fmt.Printf("  Throughput:   %s\n", formatRate(stats.Created, elapsed))
	fmt.Println()

	if len(stats.Latencies) == 0 {
		fmt.Println("No successful posts, skipping latency breakdown.")
		fmt.Println(strings.Repeat("-", 80))
		return
	}

	sorted := make([]time.Duration, len(stats.Latencies))
	copy(sorted, stats.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, l := range sorted {
		total += l
	}

	emoji := statusEmoji(stats.Created, stats.OtherErrors, 0)
	fmt.Printf("%s Latency (successful posts):\n", emoji)
	fmt.Printf("  Min:  %s\n", formatDuration(sorted[0]))
	fmt.Printf("  Avg:  %s\n", formatDuration(total/time.Duration(len(sorted))))
	fmt.Printf("  P50:  %s\n", formatDuration(percentile(sorted, 0.50)))
	fmt.Printf("  P95:  %s\n", formatDuration(percentile(sorted, 0.95)))
	fmt.Printf("  P99:  %s\n", formatDuration(percentile(sorted, 0.99)))
	fmt.Printf("  Max:  %s\n", formatDuration(sorted[len(sorted)-1]))
	fmt.Println(strings.Repeat("-", 80))
}

// writeMarkdownReport writes a markdown report of the benchmark run
func writeMarkdownReport(filepath string, cfg *Config, stats *BenchmarkStats) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	elapsed := stats.EndTime.Sub(stats.StartTime)

	_, _ = fmt.Fprintf(file, "# Ledger Benchmark Report\n\n")
	_, _ = fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	_, _ = fmt.Fprintf(file, "## Run\n\n")
	_, _ = fmt.Fprintf(file, "| Property | Value |\n")
	_, _ = fmt.Fprintf(file, "|----------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Target** | `%s` |\n", cfg.BaseURL)
	_, _ = fmt.Fprintf(file, "| **Accounts** | %d -> %d |\n", cfg.DebitAccount, cfg.CreditAccount)
	_, _ = fmt.Fprintf(file, "| **Amount** | %s |\n", cfg.Amount)
	_, _ = fmt.Fprintf(file, "| **Concurrency** | %d |\n", cfg.Concurrency)
	_, _ = fmt.Fprintf(file, "| **Duration** | %s |\n", formatDuration(elapsed))
	_, _ = fmt.Fprintf(file, "\n")

	_, _ = fmt.Fprintf(file, "## Outcomes\n\n")
	_, _ = fmt.Fprintf(file, "| Outcome | Count |\n")
	_, _ = fmt.Fprintf(file, "|---------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Created** | %d (%s) |\n", stats.Created, percentageString(stats.Created, stats.Total))
	if stats.Duplicates > 0 {
		_, _ = fmt.Fprintf(file, "| **Duplicates** | %d |\n", stats.Duplicates)
	}
	if stats.Insufficient > 0 {
		_, _ = fmt.Fprintf(file, "| **Insufficient** | %d |\n", stats.Insufficient)
	}
	if stats.Conflicts > 0 {
		_, _ = fmt.Fprintf(file, "| **Conflicts** | %d |\n", stats.Conflicts)
	}
	if stats.OtherErrors > 0 {
		_, _ = fmt.Fprintf(file, "| **Errors** | %d |\n", stats.OtherErrors)
	}
	_, _ = fmt.Fprintf(file, "| **Throughput** | %s |\n", formatRate(stats.Created, elapsed))
	_, _ = fmt.Fprintf(file, "\n")

	if len(stats.Latencies) == 0 {
		_, _ = fmt.Fprintf(file, "*No successful posts.*\n")
		return nil
	}

	sorted := make([]time.Duration, len(stats.Latencies))
	copy(sorted, stats.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, l := range sorted {
		total += l
	}

	_, _ = fmt.Fprintf(file, "## Latency\n\n")
	_, _ = fmt.Fprintf(file, "| Percentile | Value |\n")
	_, _ = fmt.Fprintf(file, "|------------|-------|\n")
	_, _ = fmt.Fprintf(file, "| **Min** | %s |\n", formatDuration(sorted[0]))
	_, _ = fmt.Fprintf(file, "| **Avg** | %s |\n", formatDuration(total/time.Duration(len(sorted))))
	_, _ = fmt.Fprintf(file, "| **P50** | %s |\n", formatDuration(percentile(sorted, 0.50)))
	_, _ = fmt.Fprintf(file, "| **P95** | %s |\n", formatDuration(percentile(sorted, 0.95)))
	_, _ = fmt.Fprintf(file, "| **P99** | %s |\n", formatDuration(percentile(sorted, 0.99)))
	_, _ = fmt.Fprintf(file, "| **Max** | %s |\n", formatDuration(sorted[len(sorted)-1]))

	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
