package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("customer: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"duplicate", fmt.Errorf("insert: %w", ErrDuplicate), http.StatusConflict, "DUPLICATE"},
		{"constraint", ErrConstraint, http.StatusBadRequest, "CONSTRAINT_VIOLATION"},
		{"conflict", ErrConflict, http.StatusConflict, "CONFLICT"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"app error passes through", BadRequest("CUSTOMER_HAS_DISCREPANCIES", "in use"), http.StatusBadRequest, "CUSTOMER_HAS_DISCREPANCIES"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	got := From(errors.New("pq: password authentication failed"))
	assert.Equal(t, "Internal server error", got.Message)
	assert.ErrorContains(t, got, "password authentication failed")
}

func TestNotFoundMatchesSentinel(t *testing.T) {
	assert.ErrorIs(t, NotFound("Discrepancy"), ErrNotFound)
}
