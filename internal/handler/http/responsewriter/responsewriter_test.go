package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_DefaultsAndReuse(t *testing.T) {
	rec := Wrap(httptest.NewRecorder())

	assert.Equal(t, http.StatusOK, rec.StatusCode())
	assert.Zero(t, rec.BytesWritten())
	assert.Same(t, rec, Wrap(rec), "middleware layers share one recorder")
}

func TestRecorder_FirstStatusWins(t *testing.T) {
	tests := []struct {
		name  string
		codes []int
		want  int
	}{
		{"created", []int{http.StatusCreated}, http.StatusCreated},
		{"conflict then 500", []int{http.StatusConflict, http.StatusInternalServerError}, http.StatusConflict},
		{"no content", []int{http.StatusNoContent, http.StatusOK}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := httptest.NewRecorder()
			rec := Wrap(inner)
			for _, c := range tt.codes {
				rec.WriteHeader(c)
			}
			assert.Equal(t, tt.want, rec.StatusCode())
			assert.Equal(t, tt.want, inner.Code)
		})
	}
}

func TestRecorder_WriteCountsBytes(t *testing.T) {
	inner := httptest.NewRecorder()
	rec := Wrap(inner)

	for _, chunk := range []string{`[{"id":1,`, `"status":"active"}]`, "\n"} {
		_, err := rec.Write([]byte(chunk))
		require.NoError(t, err)
	}

	assert.Equal(t, http.StatusOK, rec.StatusCode())
	assert.Equal(t, inner.Body.Len(), rec.BytesWritten())
	assert.Equal(t, "[{\"id\":1,\"status\":\"active\"}]\n", inner.Body.String())
}

func TestRecorder_Unwrap(t *testing.T) {
	inner := httptest.NewRecorder()
	assert.Same(t, inner, Wrap(inner).Unwrap())
}
