package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
)

var benchTerms = []string{"vector", "space", "model", "ranking", "cosine", "query", "engine", "corpus"}

func BenchmarkEngineIndex(b *testing.B) {
	for _, preload := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			engine, err := NewEngine(config.IndexerConfig{DataDir: b.TempDir(), SegmentMaxSize: 100 << 20})
			if err != nil {
				b.Fatal(err)
			}
			defer engine.Close()
			for i := 0; i < preload; i++ {
				engine.IndexDocument(fmt.Sprintf("preload-%d", i), "preload doc", "preloading documents for benchmark warmup")
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := engine.IndexDocument(fmt.Sprintf("bench-%d", i), "benchmark title", "benchmark document body for indexing throughput"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEngineStatistics(b *testing.B) {
	engine, err := NewEngine(config.IndexerConfig{DataDir: b.TempDir(), SegmentMaxSize: 100 << 20})
	if err != nil {
		b.Fatal(err)
	}
	defer engine.Close()
	for i := 0; i < 10000; i++ {
		body := fmt.Sprintf("this document covers %s %s %s",
			benchTerms[i%len(benchTerms)], benchTerms[(i+2)%len(benchTerms)], benchTerms[(i+3)%len(benchTerms)])
		engine.IndexDocument(fmt.Sprintf("doc-%d", i), "", body)
	}
	if err := engine.Flush(); err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		docID := fmt.Sprintf("doc-%d", i%10000)
		if _, err := engine.TermFrequency(ctx, benchTerms[i%len(benchTerms)], docID); err != nil {
			b.Fatal(err)
		}
		if _, err := engine.FieldLength(ctx, docID); err != nil {
			b.Fatal(err)
		}
	}
}
