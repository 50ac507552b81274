package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: errors.New("boom"), want: Unexpected},
		{name: "validation", err: NewValidation("template %q not found", "nope"), want: Validation},
		{name: "retryable", err: NewRetryable("pod %s not ready", "ws"), want: Retryable},
		{name: "permanent", err: NewPermanent("pod entered Failed"), want: Permanent},
		{name: "wrapped retryable", err: fmt.Errorf("create: %w", AsRetryable(errors.New("timeout"))), want: Retryable},
		{name: "outermost kind wins", err: AsPermanent(AsRetryable(errors.New("x"))), want: Permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorPreservesMessageAndChain(t *testing.T) {
	t.Parallel()
	base := errors.New("service unavailable")
	err := AsRetryable(base)

	assert.Equal(t, "service unavailable", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(nil))
	assert.NoError(t, AsRetryable(nil))
	assert.NoError(t, AsPermanent(nil))
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Validation", Validation.String())
	assert.Equal(t, "Retryable", Retryable.String())
	assert.Equal(t, "Permanent", Permanent.String())
	assert.Equal(t, "Unexpected", Unexpected.String())
}
