// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package helpers collects the small assertion wrappers shared across
// this repository's table-driven tests.
package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertNoError fails the test if err is not nil, without stopping
// execution of the remaining table cases.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	assert.NoError(t, err)
}

// AssertEqual is a thin assert.Equal wrapper so call sites read the
// same whether the expectation is a config field, a bitmap popcount,
// or an error value.
func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual)
}

// AssertNotNil fails the test if obj is nil.
func AssertNotNil(t *testing.T, obj interface{}) {
	t.Helper()
	assert.NotNil(t, obj)
}
