package middleware

import (
	"errors"
	"net/http"
	"time"

	"goldledger/internal/apierror"
	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// statusForKind maps ledger error kinds onto HTTP statuses.
var statusForKind = map[service.ErrorKind]int{
	service.KindInsufficientOwnership:     http.StatusConflict,
	service.KindCreditLimitExceeded:       http.StatusConflict,
	service.KindConflict:                  http.StatusConflict,
	service.KindPaymentExceedsOwed:        http.StatusUnprocessableEntity,
	service.KindInvalidConversionWeight:   http.StatusUnprocessableEntity,
	service.KindInvalidConsolidationInput: http.StatusUnprocessableEntity,
	service.KindInvalidInput:              http.StatusUnprocessableEntity,
	service.KindNotFound:                  http.StatusNotFound,
	service.KindInvalidMovement:           http.StatusInternalServerError,
}

// StatusForKind returns the HTTP status a ledger error kind is reported with.
func StatusForKind(kind service.ErrorKind) int {
	if status, ok := statusForKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Ledger rejections carry their kind and balance snapshot; anything else,
// and any invariant violation, is logged and reported as a bare 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		logFailure := func() *zerolog.Event {
			return log.Error().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Err(err)
		}

		if c.Writer.Written() {
			logFailure().Msg("error after response was written")
			return
		}

		var le *service.LedgerError
		if !errors.As(err, &le) {
			logFailure().Msg("unhandled error")
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("internal server error"))
			return
		}

		status := StatusForKind(le.Kind)
		if status == http.StatusInternalServerError {
			logFailure().Str("kind", string(le.Kind)).Msg("ledger invariant violated")
			c.AbortWithStatusJSON(status, apierror.NewKind(string(le.Kind), "internal server error", nil))
			return
		}
		if le.Kind == service.KindConflict {
			c.Header("Retry-After", "1")
		}
		var balance interface{}
		if le.Balance != nil {
			balance = le.Balance
		}
		c.AbortWithStatusJSON(status, apierror.NewKind(string(le.Kind), le.Message, balance))
	}
}

// Recovery handles panics and converts them into 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("internal server error"))
			}
		}()
		c.Next()
	}
}

// Logger logs each request with method, path, status, latency, request_id
// and the ledger error kind of a rejected command.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		event := log.Info().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start))
		if len(c.Errors) > 0 {
			if kind := service.KindOf(c.Errors.Last().Err); kind != "" {
				event = event.Str("kind", string(kind))
			}
		}
		event.Msg("request")
	}
}
