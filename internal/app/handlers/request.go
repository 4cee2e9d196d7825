package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/linemk/commerce-core/internal/domain/models"
	"github.com/linemk/commerce-core/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/lib/apperr"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type decodeOpts struct {
	strict bool
}

// decodeRequest reads a JSON body into dst and validates it. Every failure is
// a validation error.
func decodeRequest(r *http.Request, dst any, opts ...decodeOpts) error {
	dec := json.NewDecoder(r.Body)
	for _, o := range opts {
		if o.strict {
			dec.DisallowUnknownFields()
		}
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return apperr.Wrap(apperr.KindValidation, "unknown field in request body", err)
		}
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, validationMessage(err), err)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "validation error"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", field))
		case "min":
			if fe.Kind() == reflect.String {
				msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
			}
		case "max":
			if fe.Kind() == reflect.String {
				msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
			}
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

// identityFrom fails the request with 401 when the auth middleware did not run.
func identityFrom(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Identity, bool) {
	identity, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("identity not found in context")
		response.Fail(w, logger, apperr.KindUnauthenticated, "unauthorized")
		return models.Identity{}, false
	}
	return identity, true
}
