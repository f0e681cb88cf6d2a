package service

import (
	"errors"
	"testing"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/stretchr/testify/require"
)

// requireDomainCode asserts that err is a typed domain error with the
// given code.
func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *domain.Error
	require.True(t, errors.As(err, &domainErr), "expected *domain.Error, got %T: %v", err, err)
	require.Equal(t, code, domainErr.Code, "unexpected error code, message: %s", domainErr.Message)
}
