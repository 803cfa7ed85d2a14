// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbs(t *testing.T) {
	assert.Equal(t, 5, Abs(-5))
	assert.Equal(t, 5, Abs(5))
	assert.Equal(t, 2.5, Abs(-2.5))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, 2, CeilDiv(16, 8))
	assert.Equal(t, 4, CeilDiv(10, 3))
	assert.Equal(t, 0, CeilDiv(10, 0))
}
