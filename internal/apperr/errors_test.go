package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedChain(t *testing.T) {
	base := Unauthorized("Incorrect email or password")
	wrapped := fmt.Errorf("login: %w", base)

	assert.Equal(t, KindUnauthorized, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindUnauthorized))
	assert.Equal(t, http.StatusUnauthorized, KindOf(wrapped).StatusCode())
}

func TestKindOf_Unclassified(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, KindOf(err).StatusCode())
	assert.False(t, ClientFault(err))
}

func TestStatusCodes(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:       http.StatusBadRequest,
		KindInvalidOrExpired: http.StatusBadRequest,
		KindForbidden:        http.StatusForbidden,
		KindNotFound:         http.StatusNotFound,
		KindConflict:         http.StatusConflict,
		KindRateLimited:      http.StatusTooManyRequests,
		KindUpstream:         http.StatusBadGateway,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.StatusCode(), kind.String())
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := Upstream("There was an error sending the email", cause)

	assert.Equal(t, "There was an error sending the email: smtp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, ClientFault(err))
	assert.True(t, ClientFault(Validation("bad")))
}
