package gantry

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrorKindValidation.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ErrorKindCredential.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, ErrorKindAuthentication.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorKindPlatformRejected.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, ErrorKindPlatformUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorKindUnknown.HTTPStatus())
}

func TestError(t *testing.T) {
	t.Run("MessageIncludesCause", func(t *testing.T) {
		cause := errors.New("underlying failure")
		err := WrapError(ErrorKindPlatformRejected, cause, "creating service")
		assert.Equal(t, "creating service: underlying failure", err.Error())
		assert.Equal(t, cause, err.Unwrap())
	})
	t.Run("ExplicitStatusOverridesKindDefault", func(t *testing.T) {
		err := NewError(ErrorKindPlatformRejected, "conflict").SetStatus(http.StatusConflict)
		assert.Equal(t, http.StatusConflict, err.HTTPStatus())
	})
	t.Run("ZeroStatusFallsBackToKindDefault", func(t *testing.T) {
		err := NewError(ErrorKindAuthentication, "rejected")
		assert.Equal(t, http.StatusUnauthorized, err.HTTPStatus())
	})
	t.Run("ErrorfFormatsMessage", func(t *testing.T) {
		err := Errorf(ErrorKindValidation, "port %d out of range", 70000)
		assert.Equal(t, "port 70000 out of range", err.Error())
	})
}

func TestAsError(t *testing.T) {
	t.Run("ExtractsDirectError", func(t *testing.T) {
		err := NewError(ErrorKindValidation, "bad request")
		gerr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, ErrorKindValidation, gerr.Kind)
	})
	t.Run("ExtractsThroughWrappingLayers", func(t *testing.T) {
		var err error = NewError(ErrorKindAuthentication, "rejected")
		err = errors.Wrap(err, "registering task definition")
		err = errors.Wrap(err, "deploying")

		gerr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, ErrorKindAuthentication, gerr.Kind)
	})
	t.Run("ReturnsFalseForForeignError", func(t *testing.T) {
		gerr, ok := AsError(errors.New("plain"))
		assert.False(t, ok)
		assert.Zero(t, gerr)
	})
	t.Run("ReturnsFalseForNil", func(t *testing.T) {
		_, ok := AsError(nil)
		assert.False(t, ok)
	})
}

func TestNormalizeError(t *testing.T) {
	t.Run("PassesThroughClassifiedErrors", func(t *testing.T) {
		err := errors.Wrap(NewError(ErrorKindPlatformUnavailable, "timeout"), "deploying")
		gerr := NormalizeError(err)
		require.NotZero(t, gerr)
		assert.Equal(t, ErrorKindPlatformUnavailable, gerr.Kind)
	})
	t.Run("CoercesForeignErrorsToUnknown", func(t *testing.T) {
		gerr := NormalizeError(errors.New("surprise"))
		require.NotZero(t, gerr)
		assert.Equal(t, ErrorKindUnknown, gerr.Kind)
		assert.Equal(t, http.StatusInternalServerError, gerr.HTTPStatus())
		assert.Contains(t, gerr.Error(), "surprise")
	})
	t.Run("ReturnsNilForNil", func(t *testing.T) {
		assert.Nil(t, NormalizeError(nil))
	})
}

func TestKindPredicates(t *testing.T) {
	for tName, tCase := range map[string]struct {
		kind  ErrorKind
		check func(error) bool
	}{
		"Validation":          {ErrorKindValidation, IsValidationError},
		"Credential":          {ErrorKindCredential, IsCredentialError},
		"Authentication":      {ErrorKindAuthentication, IsAuthenticationError},
		"PlatformRejected":    {ErrorKindPlatformRejected, IsPlatformRejectedError},
		"PlatformUnavailable": {ErrorKindPlatformUnavailable, IsPlatformUnavailableError},
	} {
		t.Run(tName, func(t *testing.T) {
			err := errors.Wrap(NewError(tCase.kind, "failure"), "wrapped")
			assert.True(t, tCase.check(err))
			assert.False(t, tCase.check(errors.New("plain")))
			assert.False(t, tCase.check(nil))
		})
	}
}
