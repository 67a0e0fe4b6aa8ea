// Command loadtest drives the search service with a fixed query mix, spread
// over every weighting and combination mode, and reports latency per
// scoring configuration.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 16 -duration 30s
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

var queries = []string{
	"vector space model",
	"cosine similarity",
	"term frequency",
	"inverse document frequency",
	"sublinear scaling",
	"boolean retrieval",
	"ranking OR scoring",
	"search NOT index",
	"document length normalization",
	"query vector",
}

var (
	weightings   = []string{"basic", "sublinear", "boolean"}
	combinations = []string{"cosine", "overlap"}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results per query")
	flag.Parse()

	var names []string
	stats := make(map[string]*configStats)
	for _, w := range weightings {
		for _, c := range combinations {
			name := w + "+" + c
			names = append(names, name)
			stats[name] = newConfigStats()
		}
	}

	fmt.Printf("target %s, %d workers, %s, %d queries x %d configs\n\n",
		*baseURL, *concurrency, *duration, len(queries), len(names))

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *concurrency * 2,
			MaxIdleConnsPerHost: *concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var g errgroup.Group
	for worker := 0; worker < *concurrency; worker++ {
		worker := worker
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				w := weightings[i%len(weightings)]
				c := combinations[(i/len(weightings))%len(combinations)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d&weighting=%s&combination=%s",
					*baseURL, url.QueryEscape(queries[i%len(queries)]), *limit, w, c)
				d, status, hit, err := search(ctx, client, target)
				if ctx.Err() != nil {
					return nil
				}
				stats[w+"+"+c].record(d, status, hit, err)
			}
			return nil
		})
	}
	g.Wait()

	if printReport(os.Stdout, names, stats, time.Since(start)) == 0 {
		fmt.Println("\nno requests completed; is the search service running?")
		os.Exit(1)
	}
}

func search(ctx context.Context, client *http.Client, target string) (time.Duration, int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, false, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return time.Since(start), resp.StatusCode, resp.Header.Get("X-Cache") == "hit", nil
}
