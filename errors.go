package blogapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
)

type errorBody struct {
	Detail any `json:"detail"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// httpErrorHandler renders every error as {"detail": ...}. Taxonomy errors
// map through their Kind; echo's own errors keep their status. Anything else
// is a 500.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body errorBody

	var ve validator.ValidationErrors
	var ae *apperr.Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		code = http.StatusUnprocessableEntity
		body.Detail = validationDetails(ve)
	case errors.As(err, &ae):
		code = ae.Kind.Status()
		body.Detail = apperr.Message(err)
		if ae.Kind == apperr.InvalidCredentials {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
	case errors.As(err, &he):
		code = he.Code
		body.Detail = http.StatusText(code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			body.Detail = msg
		}
	}

	if code >= http.StatusInternalServerError {
		a.Logger.ErrorContext(c.Request().Context(), "server error",
			"err", err,
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		body.Detail = http.StatusText(code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		a.Logger.Error("write error response", "err", err)
	}
}

func validationDetails(ve validator.ValidationErrors) []fieldError {
	out := make([]fieldError, 0, len(ve))
	for _, fe := range ve {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out = append(out, fieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
