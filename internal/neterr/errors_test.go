package neterr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	t.Run("errors.Is matches kind", func(t *testing.T) {
		err := New(KindValidation, "serializer.http", "unacceptable status code 404")
		assert.True(t, errors.Is(err, KindValidation))
		assert.False(t, errors.Is(err, KindTransport))
	})

	t.Run("kind survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(KindDecode, "serializer.json", "bad body"))
		assert.True(t, HasKind(err, KindDecode))
		assert.Equal(t, KindDecode, KindOf(err))
	})

	t.Run("underlying error reachable", func(t *testing.T) {
		err := Wrap(KindTransport, "session.data", "request failed", io.ErrUnexpectedEOF)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
		assert.Contains(t, err.Error(), "session.data: request failed")
	})

	t.Run("plain errors have unknown kind", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
		assert.Equal(t, 0, StatusCode(errors.New("x")))
	})
}

func TestWithStatus(t *testing.T) {
	base := New(KindValidation, "op", "bad status")
	err := base.WithStatus(500)

	assert.Equal(t, 500, StatusCode(err))
	assert.Equal(t, 0, base.StatusCode)
}

func TestWithUnderlying(t *testing.T) {
	t.Run("fills empty cause", func(t *testing.T) {
		err := WithUnderlying(New(KindFilesystem, "op", "move failed"), io.EOF)
		assert.True(t, errors.Is(err, io.EOF))
		assert.True(t, errors.Is(err, KindFilesystem))
	})

	t.Run("keeps existing cause", func(t *testing.T) {
		first := Wrap(KindDecode, "op", "bad", io.ErrShortBuffer)
		err := WithUnderlying(first, io.EOF)
		assert.True(t, errors.Is(err, io.EOF))
		assert.True(t, errors.Is(err, io.ErrShortBuffer))
	})

	t.Run("nil handling", func(t *testing.T) {
		assert.Equal(t, io.EOF, WithUnderlying(nil, io.EOF))
		assert.Equal(t, io.EOF, WithUnderlying(io.EOF, nil))
	})
}

func TestTransportClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"canceled context", context.Canceled, KindCancellation},
		{"wrapped cancel", fmt.Errorf("get: %w", context.Canceled), KindCancellation},
		{"deadline", context.DeadlineExceeded, KindTransport},
		{"connection reset", errors.New("connection reset by peer"), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transport("session.data", tt.err)
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Kind)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "content-type", KindContentType.String())
	assert.Equal(t, "cancellation error", KindCancellation.Error())
	assert.Equal(t, "unknown", Kind(99).String())
}
