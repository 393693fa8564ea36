package utils

import (
	"testing"

	testifyassert "github.com/stretchr/testify/assert"
)

func TestSplitCommands(t *testing.T) {
	assert := testifyassert.New(t)

	assert.Equal([][]string{{"fetch", "10"}, {"ff", "100"}}, SplitCommands(" fetch  10 ;; ff 100; "))
	assert.Nil(SplitCommands(" ; "))
}
