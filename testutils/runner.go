package testutils

import (
	"testing"

	"github.com/leisurelyrcxf/tsoracle/types"
)

func RunTestForNRounds(t *testing.T, rounds int, testCase func(t types.T) (b bool)) {
	logEvery := rounds / 10
	if logEvery < 1 {
		logEvery = 1
	}
	for i := 0; i < rounds; i++ {
		if !testCase(t) {
			t.Errorf("%s failed @round %d", t.Name(), i)
			return
		}
		if i%logEvery == 0 {
			t.Logf("%s succeeded %d rounds", t.Name(), i)
		}
	}
}
