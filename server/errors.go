package server

import (
	"net/http"
	"strings"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/dataset"
	"github.com/spektr-org/cropyield/engine"
)

type errorResponse struct {
	Message string `json:"message"`
}

var badRequest = []error{
	engine.ErrUnknownMetric,
	engine.ErrUnknownRatioKind,
	engine.ErrMetricNotAllowed,
	engine.ErrMissingSelection,
}

// statusFor maps an error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field())+" failed '"+fe.Tag()+"'")
		}
		return http.StatusBadRequest, "invalid request: " + strings.Join(fields, "; ")
	}

	for _, sentinel := range badRequest {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, err.Error()
		}
	}
	if errors.Is(err, dataset.ErrNoData) {
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request error", zap.String("path", c.Path()), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Message: msg})
	}
	if err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}
