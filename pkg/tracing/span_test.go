package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "req-1")
	_, postings := StartChildSpan(ctx, "postings")
	postings.SetAttr("terms", 2)
	postings.End()
	_, rank := StartChildSpan(ctx, "rank")
	rank.End()
	root.End()

	assert.Same(t, root, FromContext(ctx))
	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "req-1", children[0].TraceID)
	assert.Equal(t, "rank", children[1].Name)
	assert.GreaterOrEqual(t, root.Duration, children[0].Duration)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(context.Background(), logger)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "span=search")
	assert.Contains(t, lines[1], "terms=2")
	assert.Contains(t, lines[2], "depth=1")
}

func TestDetachedChild(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	span.End()
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, FromContext(ctx))
}

func TestLogSkippedAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	_, span := StartSpan(context.Background(), "search", "x")
	span.End()
	span.Log(context.Background(), logger)
	assert.Empty(t, buf.String())
}
