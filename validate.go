package blogapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eringen/blogapi/internal/apperr"
)

type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}
		return name
	})
	return &requestValidator{v: v}
}

func (r *requestValidator) Validate(i any) error {
	return r.v.Struct(i)
}

// bindValid decodes the request into dst and validates it. Malformed bodies
// are reported as validation failures.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		var he *echo.HTTPError
		msg := "Malformed request body"
		if errors.As(err, &he) {
			if he.Code == http.StatusRequestEntityTooLarge {
				return err
			}
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
		}
		return apperr.Wrap(apperr.Validation, err, msg)
	}
	return c.Validate(dst)
}
