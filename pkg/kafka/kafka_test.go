package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	DocumentID string `json:"document_id"`
	ShardID    int    `json:"shard_id"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[sample]([]byte(`{"document_id":"d-1","shard_id":3}`))
	require.NoError(t, err)
	assert.Equal(t, sample{DocumentID: "d-1", ShardID: 3}, got)
}

func TestDecodeJSONInvalid(t *testing.T) {
	_, err := DecodeJSON[sample]([]byte(`{not json`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

var _ Publisher = (*Producer)(nil)
