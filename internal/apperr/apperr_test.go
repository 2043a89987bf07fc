package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load post: %w", E(NotFound, "Post not found ID:%d", 7))

	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, Conflict))
	assert.Equal(t, "Post not found ID:7", Message(err))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(sql.ErrConnDone))
	assert.Equal(t, "internal error", Message(sql.ErrConnDone))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(InvalidCredentials, sql.ErrNoRows, "Invalid credentials")

	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.True(t, errors.Is(err, InvalidCredentials))
	assert.Equal(t, "Invalid credentials", Message(err))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{InvalidCredentials, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Validation, http.StatusUnprocessableEntity},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
