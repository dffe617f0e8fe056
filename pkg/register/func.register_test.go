package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testKey struct{}

func TestRegisterFunc(t *testing.T) {
	var calls []string
	RegisterFunc[string](testKey{}, "first", func(s string) { calls = append(calls, "first:"+s) })
	RegisterFunc[string](testKey{}, "second", func(s string) { calls = append(calls, "second:"+s) })
	RegisterFunc[int](testKey{}, "other-type", func(int) {})

	for _, h := range ResolveFuncHandlers[string](testKey{}) {
		h("x")
	}
	assert.Equal(t, []string{"first:x", "second:x"}, calls)
	assert.Equal(t, []string{"first", "second", "other-type"}, Names(testKey{}))

	assert.Panics(t, func() {
		RegisterFunc[string](testKey{}, "first", func(string) {})
	})
}
