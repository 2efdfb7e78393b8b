package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// fieldMessages phrase a failed tag for the details map. %s is the tag param.
var fieldMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gte":      "must be greater than or equal to %s",
	"email":    "must be a valid email",
	"uuid":     "must be a valid uuid",
}

// Field names in details follow the json tag.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// A request type implementing messenger picks the top-level message used
// when its tags fail.
type messenger interface {
	ValidationMessage() string
}

// DecodeJSONBody decodes r's body into dest and then validates it. An empty
// body decodes as {} so the validation tags decide what is missing.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer body.Close()

	err := json.NewDecoder(body).Decode(dest)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
	case errors.As(err, &tooLarge):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
			WithDetails(map[string]any{"limitBytes": tooLarge.Limit})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	return Validate(dest)
}

// Validate checks dest's validate tags. The failure details map each json
// field name to a short phrase.
func Validate(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	message := "validation failed"
	if m, ok := dest.(messenger); ok {
		message = m.ValidationMessage()
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	details := make(map[string]string, len(fields))
	for _, fe := range fields {
		phrase, ok := fieldMessages[fe.Tag()]
		switch {
		case !ok:
			phrase = "is invalid"
		case strings.Contains(phrase, "%s"):
			phrase = fmt.Sprintf(phrase, fe.Param())
		}
		details[fe.Field()] = phrase
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
