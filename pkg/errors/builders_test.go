// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("core_cnt", 0, "core_cnt[%d] must be nonzero", 0)
	assert.Equal(t, "core_cnt", err.Field)
	assert.Contains(t, err.Error(), "core_cnt[0] must be nonzero")
}

func TestGetErrorCodeAndCategory(t *testing.T) {
	err := NewUnsatisfiableError("job_test", "no row fits")
	assert.Equal(t, ErrorCodeUnsatisfiable, GetErrorCode(err))
	assert.Equal(t, CategoryInfeasible, GetErrorCategory(err))

	assert.Equal(t, ErrorCodeUnknown, GetErrorCode(fmt.Errorf("plain")))
	assert.Equal(t, CategoryUnknown, GetErrorCategory(fmt.Errorf("plain")))
}

func TestIsUnsatisfiable(t *testing.T) {
	assert.True(t, IsUnsatisfiable(NewUnsatisfiableError("resv_test", "")))
	assert.False(t, IsUnsatisfiable(NewValidationError(ErrorCodeValidationFailed, "x", "f", nil, nil)))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError(ErrorCodeValidationFailed, "x", "f", nil, nil)))
	assert.False(t, IsValidationError(NewUnsatisfiableError("job_test", "")))
}

func TestInvariantViolationPanicValue(t *testing.T) {
	defer func() {
		r := recover()
		if err, ok := r.(*SelectError); ok {
			assert.Equal(t, ErrorCodeInvariantViolation, err.Code)
		} else {
			t.Fatalf("expected *SelectError panic value, got %T", r)
		}
	}()
	panic(InvariantViolation("row %d bitmap disagrees with job list", 2))
}
