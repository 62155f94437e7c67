package multierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name         string
		errs         []error
		want         string
		wantContains []string
	}{
		{
			name: "empty",
			want: "<nil>",
		},
		{
			name: "single error",
			errs: []error{errors.New("test error")},
			want: "test error",
		},
		{
			name:         "multiple errors",
			errs:         []error{errors.New("error A"), errors.New("error B")},
			wantContains: []string{"2 errors", "error A", "error B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			var e Error
			for _, err := range tt.errs {
				e.Append(err)
			}
			if tt.want != "" {
				assert.Equal(tt.want, e.Error())
			}
			for _, s := range tt.wantContains {
				assert.Contains(e.Error(), s)
			}
		})
	}
}

func TestError_ErrOrNil(t *testing.T) {
	assert := assert.New(t)

	var e Error
	e.Append(nil)
	assert.NoError(e.ErrOrNil())

	single := errors.New("single")
	e.Append(single)
	assert.Equal(single, e.ErrOrNil())

	e.Append(errors.New("second"))
	merr, ok := e.ErrOrNil().(Error)
	if assert.True(ok) {
		assert.Len(merr, 2)
	}
}

func TestError_Is(t *testing.T) {
	sentinel := errors.New("sentinel")
	var e Error
	e.Append(errors.New("other"))
	e.Append(sentinel)
	assert.ErrorIs(t, e.ErrOrNil(), sentinel)
}

func TestError_AppendFlattens(t *testing.T) {
	var inner Error
	inner.Append(errors.New("a"))
	inner.Append(errors.New("b"))

	var outer Error
	outer.Append(errors.New("c"))
	outer.Append(inner)
	assert.Len(t, outer, 3)
}
