package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"achievement-service/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	notFound := apperr.New(apperr.ErrNotFound, "achievement not found")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("title is required"), http.StatusBadRequest},
		{"forbidden", apperr.New(apperr.ErrForbidden, "not authorized"), http.StatusForbidden},
		{"not found", notFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", notFound), http.StatusNotFound},
		{"conflict", apperr.New(apperr.ErrConflict, "locked"), http.StatusConflict},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.Status(tt.err))
		})
	}
}

func TestNew_KeepsMessage(t *testing.T) {
	err := apperr.New(apperr.ErrConflict, "cannot edit an approved achievement")

	assert.Equal(t, "cannot edit an approved achievement", err.Error())
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}
