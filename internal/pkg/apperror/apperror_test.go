package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errExpired = Business("coupon_expired", "coupon has expired")

func TestSentinelSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("apply coupon: %w", errExpired.WithDetails(map[string]string{"code": "LOW50"}))

	assert.True(t, errors.Is(err, errExpired))
	assert.Equal(t, KindBusiness, KindOf(err))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(err))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"code": "LOW50"}, appErr.Details)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Validation("bad", "bad input"):      http.StatusBadRequest,
		NotFound("missing", "not found"):    http.StatusNotFound,
		Forbidden("denied", "denied"):       http.StatusForbidden,
		Conflict("busy", "in flight"):       http.StatusConflict,
		errors.New("connection reset"):      http.StatusInternalServerError,
		Business("rule", "not allowed now"): http.StatusUnprocessableEntity,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := New(KindInternal, "db", "failed to save order").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save order: deadlock detected", err.Error())
}
