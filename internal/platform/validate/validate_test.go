// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/authgate/internal/platform/apperr"
	"github.com/taibuivan/authgate/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		hasError bool
	}{
		{"valid_string", "ana@school.edu", false},
		{"empty_string", "", true},
		{"whitespace_only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required("email", tt.value)

			if !tt.hasError {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
				return
			}

			ae := apperr.As(v.Err())
			require.NotNil(t, ae)
			assert.Equal(t, apperr.CodeValidation, ae.Code)
			assert.Equal(t, "email", ae.Details[0].Field)
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"subdomain", "ana@mail.school.edu", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"no_tld", "test@localhost", false},
		{"display_name", "Ana <ana@school.edu>", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_MaxBytes checks that the byte rule counts encoded bytes, not characters.
*/
func TestValidator_MaxBytes(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		hasError bool
	}{
		{"ascii_at_limit", strings.Repeat("a", 72), false},
		{"ascii_over_limit", strings.Repeat("a", 73), true},
		{"multibyte_under_char_limit", strings.Repeat("я", 40), true},
		{"multibyte_at_limit", strings.Repeat("я", 36), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.MaxLen("password", tt.value, 72).MaxBytes("password", tt.value, 72)
			assert.Equal(t, tt.hasError, v.HasErrors())
		})
	}
}

/*
TestValidator_FirstFailurePerField ensures one message per field.
*/
func TestValidator_FirstFailurePerField(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "").
		Email("email", "").
		MinLen("password", "123", 6).
		MaxLen("password", "123", 2).
		OneOf("role", "Root", "Admin", "Student")

	ae := apperr.As(v.Err())
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 3)
	assert.Equal(t, apperr.FieldError{Field: "email", Message: "This field is required"}, ae.Details[0])
	assert.Equal(t, apperr.FieldError{Field: "password", Message: "Minimum 6 characters"}, ae.Details[1])
	assert.Equal(t, apperr.FieldError{Field: "role", Message: "Must be one of: Admin, Student"}, ae.Details[2])
}
