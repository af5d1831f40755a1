package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels(t *testing.T) {
	t.Run("unsupported keeps context and sentinel", func(t *testing.T) {
		err := Unsupportedf("type tag %q", "String")

		assert.True(t, IsUnsupported(err))
		assert.False(t, IsInvalidConfig(err))
		assert.Contains(t, err.Error(), `type tag "String"`)
		assert.Contains(t, err.Error(), "unsupported construct")
	})

	t.Run("wrapped twice still matches", func(t *testing.T) {
		err := Wrap(Wrapf(ErrMalformedNamespace, "namespace %q", "A..B"), "building tree")

		assert.True(t, IsMalformedNamespace(err))
		assert.Contains(t, err.Error(), "building tree")
		assert.Contains(t, err.Error(), "A..B")
	})

	t.Run("hints survive wrapping", func(t *testing.T) {
		err := WithHint(Wrapf(ErrInvalidConfig, "key %q", "colour"), "accepted keys: minimal, sys")
		err = Wrap(err, "go backend")

		assert.True(t, IsInvalidConfig(err))
		assert.Contains(t, FlattenHints(err), "accepted keys")
	})

	t.Run("nil is never classified", func(t *testing.T) {
		assert.False(t, IsUnsupported(nil))
		assert.False(t, IsInvalidConfig(nil))
		assert.False(t, IsMalformedNamespace(nil))
	})
}
