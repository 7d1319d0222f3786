// errors_test.go: structured error construction tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_CodesAndContext(t *testing.T) {
	err := NewDuplicateEngineError("Alpha")
	assert.Equal(t, ErrCodeDuplicateEngine, string(err.Code))
	assert.Equal(t, "Alpha", err.Context["engine_name"])

	err = NewResponseTooLargeError("https://e.example/big.xml", 2048, 1024)
	assert.Equal(t, ErrCodeResponseTooLarge, string(err.Code))
	assert.Equal(t, int64(2048), err.Context["size"])
	assert.Equal(t, int64(1024), err.Context["limit"])
}

func TestErrors_WrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewCacheWriteError("/p/search.json", cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable(), "persistence write failures are retryable")
}

func TestErrors_FetchFailuresRetryable(t *testing.T) {
	assert.True(t, NewEngineFetchFailedError("https://e.example/x.xml", nil).IsRetryable())
	assert.True(t, NewIconFetchFailedError("https://e.example/i.png", nil).IsRetryable())
	assert.False(t, NewInsecureUpdateURLError("Alpha", "http://e.example/x.xml").IsRetryable())
}
