package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/logging"
)

// RequestLogger puts a request scoped logrus entry in the request context
// and logs one line per request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqID := req.Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			entry := logrus.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(logging.WithEntry(req.Context(), entry)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			}
			if err != nil {
				entry.WithFields(fields).WithError(err).Error("request failed")
			} else if c.Response().Status >= 500 {
				entry.WithFields(fields).Warn("request handled with server error")
			} else {
				entry.WithFields(fields).Info("request handled")
			}
			return nil
		}
	}
}
