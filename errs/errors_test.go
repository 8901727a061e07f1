package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHelpersSeeThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("cycle 3: %w", NewFetch("de", "https://example.test/de", cause))

	assert.True(t, IsFetch(err))
	assert.False(t, IsExtraction(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindFetch, KindOf(err))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.False(t, IsComputation(nil))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "extraction",
			err:  NewExtraction("40299", "price"),
			want: `EXTRACTION: required field "price" not found (item=40299)`,
		},
		{
			name: "attachment",
			err:  NewAttachmentExhausted(10),
			want: "ATTACHMENT_EXHAUSTED: storefront collection not found after 10 attempts",
		},
		{
			name: "computation with cause",
			err:  NewComputation("7", "bad reference price", errors.New("zero")),
			want: "COMPUTATION: bad reference price (item=7): zero",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
