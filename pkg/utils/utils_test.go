// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains([]int{}, 1))
}

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	assert.Len(t, id, 32)
	assert.False(t, strings.Contains(id, "-"))
	assert.NotEqual(t, id, GenerateUUID())
}

func TestGenerateMatchID(t *testing.T) {
	first := GenerateMatchID()
	assert.Len(t, first, 26)
	assert.Equal(t, strings.ToLower(first), first)
	assert.NotEqual(t, first, GenerateMatchID())
}
