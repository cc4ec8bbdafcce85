package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"loanbook/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidPaymentAmount:                        fiber.StatusBadRequest,
		domain.ErrTokenExpired:                                fiber.StatusUnauthorized,
		domain.ErrPermissionDenied:                            fiber.StatusForbidden,
		domain.ErrLoanNotFound:                                fiber.StatusNotFound,
		domain.ErrLoanVersionConflict:                         fiber.StatusConflict,
		domain.ErrLoanServiceUnavailable:                      fiber.StatusServiceUnavailable,
		fmt.Errorf("wrapped: %w", domain.ErrBorrowerRequired): fiber.StatusBadRequest,
		errors.New("boom"):                                    fiber.StatusInternalServerError,
	}

	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestFromError_HidesInternalErrors(t *testing.T) {
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return FromError(c, errors.New("dial tcp 10.0.0.3:3306: connection refused"))
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return FromError(c, domain.ErrLoanNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.False(t, body.Success)

	resp, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, domain.ErrLoanNotFound.Error(), decode(t, resp.Body).Message)
}

func decode(t *testing.T, r io.Reader) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}
