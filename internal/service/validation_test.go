package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestValidateRequestInput(t *testing.T) {
	assert.NoError(t, ValidateRequestInput(aliceInput()))

	in := aliceInput()
	in.RequesterEmail = ""
	assert.NoError(t, ValidateRequestInput(in), "email is optional")

	cases := map[string]func(*RequestInput){
		"requester_name":  func(in *RequestInput) { in.RequesterName = "" },
		"requester_email": func(in *RequestInput) { in.RequesterEmail = "not-an-email" },
		"department":      func(in *RequestInput) { in.Department = strings.Repeat("d", 101) },
		"category":        func(in *RequestInput) { in.Category = "bogus" },
		"description":     func(in *RequestInput) { in.Description = "" },
	}
	for field, mutate := range cases {
		in := aliceInput()
		mutate(&in)
		err := ValidateRequestInput(in)
		require.Error(t, err, field)
		de := apperrors.ToDomainError(err)
		assert.Equal(t, apperrors.CodeValidation, de.Code)
		assert.Contains(t, de.Details, field)
	}
}

func TestValidateStatus(t *testing.T) {
	status, err := ValidateStatus(" resolved ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, status)

	for _, raw := range []string{"", "Resolved", "done"} {
		_, err := ValidateStatus(raw)
		assert.Error(t, err, raw)
	}
}

func TestValidateDepartmentInput(t *testing.T) {
	assert.NoError(t, ValidateDepartmentInput(DepartmentInput{Name: "IT", Code: "IT"}))

	err := ValidateDepartmentInput(DepartmentInput{Name: "IT", Code: "ELEVENCHARS"})
	require.Error(t, err)
	assert.Equal(t, "Ensure this field has no more than 10 characters.", apperrors.ToDomainError(err).Details["code"])
}
