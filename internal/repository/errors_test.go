package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestWrapGetErr(t *testing.T) {
	err := wrapGetErr(sql.ErrNoRows, "claim abc")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "claim abc")

	other := wrapGetErr(errors.New("connection reset"), "claim abc")
	assert.False(t, errors.Is(other, ErrNotFound))
	assert.Contains(t, other.Error(), "failed to get claim abc")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
