package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wxconsensus/engine/internal/errs"
)

// ErrorHandler centralizes error-to-HTTP-status translation so handlers only
// ever call c.Error(err) and return. Status codes follow the outward error
// taxonomy's kinds rather than any transport- or database-specific sentinel.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		requestID := c.GetString("request_id")

		status, message := statusFor(err)
		c.JSON(status, gin.H{
			"error":      message,
			"request_id": requestID,
		})
	}
}

func statusFor(err error) (int, string) {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "internal server error"
	}

	switch e.Kind {
	case errs.GeocodingNotFound:
		return http.StatusNotFound, e.Message
	case errs.GeocodingAmbiguous, errs.GeocodingInvalidInput, errs.InvalidInput:
		return http.StatusBadRequest, e.Message
	case errs.ApiRateLimited:
		return http.StatusTooManyRequests, e.Message
	case errs.ApiTimeout, errs.Cancelled:
		return http.StatusRequestTimeout, e.Message
	case errs.ApiUnavailable, errs.GeocodingServiceError:
		return http.StatusServiceUnavailable, e.Message
	case errs.ApiAuthFailed:
		return http.StatusUnauthorized, e.Message
	case errs.ApiInvalidResponse:
		return http.StatusBadGateway, e.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
