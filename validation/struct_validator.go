package validation

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/kbukum/speakerid/errors"
)

// structValidator is built on first use; validator caches struct metadata
// so a single instance is shared.
var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	return v
})

// tagName reports a field by its yaml name, then its json name, then its
// Go name in snake case. Config structs carry yaml tags and request
// payloads carry json tags.
func tagName(f reflect.StructField) string {
	for _, key := range []string{"yaml", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return toSnakeCase(f.Name)
}

// Validate checks `validate:"..."` struct tags and reports every failing
// field in one VALIDATION_ERROR.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	failed, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed")
	}
	fields := make([]FieldError, 0, len(failed))
	for _, fe := range failed {
		fields = append(fields, FieldError{Field: fieldPath(fe.Namespace()), Message: describe(fe)})
	}
	return fieldsError(fields)
}

// fixed holds tags whose message does not depend on the parameter.
var fixed = map[string]string{
	"required": "is required",
	"dir":      "must be an existing directory",
	"file":     "must be an existing file",
	"url":      "must be a valid URL",
}

// bounded holds tags rendered as "<phrase> <param>".
var bounded = map[string]string{
	"gte":   "must be greater than or equal to",
	"lte":   "must be less than or equal to",
	"gt":    "must be greater than",
	"lt":    "must be less than",
	"oneof": "must be one of:",
}

func describe(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	if msg, ok := fixed[tag]; ok {
		return msg
	}
	if phrase, ok := bounded[tag]; ok {
		return phrase + " " + param
	}
	var msg string
	switch tag {
	case "min":
		msg = "must be at least " + param
	case "max":
		msg = "must be at most " + param
	default:
		return "is invalid"
	}
	if !isNumeric(fe.Kind()) {
		msg += " characters"
	}
	return msg
}

// fieldPath drops the root struct name from a validator namespace
// ("Config.matching.similarity_threshold" -> "matching.similarity_threshold").
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return toSnakeCase(ns)
}

func isNumeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

func toSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
