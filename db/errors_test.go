package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsMalformedID(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "invalid uuid text", err: &pgconn.PgError{Code: InvalidTextRepresentation}, want: true},
		{name: "wrapped", err: fmt.Errorf("failed to get group: %w", &pgconn.PgError{Code: "22P02"}), want: true},
		{name: "other sqlstate", err: &pgconn.PgError{Code: UniqueViolation}},
		{name: "plain error", err: errors.New("22P02")},
		{name: "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMalformedID(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: UniqueViolation})

	assert.True(t, HasCode(err, UniqueViolation))
	assert.False(t, HasCode(err, InvalidTextRepresentation))
}
