package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/victornm/fitscore/internal/errors"
)

func TestError_HTTPStatusCode(t *testing.T) {
	tests := map[string]struct {
		code errors.Code
		want int
	}{
		"invalid argument":    {code: errors.CodeInvalidArgument, want: http.StatusBadRequest},
		"not found":           {code: errors.CodeNotFound, want: http.StatusNotFound},
		"failed precondition": {code: errors.CodeFailedPrecondition, want: http.StatusUnprocessableEntity},
		"internal":            {code: errors.CodeInternal, want: http.StatusInternalServerError},
		"unmapped code":       {code: errors.Code(codes.DataLoss), want: http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.New(tt.code).HTTPStatusCode())
		})
	}
}

func TestConvert(t *testing.T) {
	sentinel := stderrors.New("boom")

	t.Run("plain errors become internal", func(t *testing.T) {
		e := errors.Convert(sentinel)
		assert.Equal(t, errors.CodeInternal, e.Code)
		assert.ErrorIs(t, e, sentinel)
	})

	t.Run("wrapped typed errors keep their code", func(t *testing.T) {
		err := fmt.Errorf("refresh: %w", errors.New(errors.CodeNotFound,
			errors.WithMessagef("challenge not found: challenge=%s", "c1"),
			errors.WithCause(sentinel),
		))

		e := errors.Convert(err)
		assert.Equal(t, errors.CodeNotFound, e.Code)
		assert.Equal(t, "challenge not found: challenge=c1", e.Message)
		assert.True(t, errors.IsCode(err, errors.CodeNotFound))
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("grpc status", func(t *testing.T) {
		s, ok := status.FromError(errors.New(errors.CodeInvalidArgument))
		require.True(t, ok)
		assert.Equal(t, codes.InvalidArgument, s.Code())
	})
}
