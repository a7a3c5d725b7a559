package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/middleware"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e *ErrorBuilder) {
	writeJSON(w, e.Status, e.Create())
}

// internalError logs err against the request and answers with a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logRequestError(r, msg, err)
	writeError(w, InternalError("Internal server error"))
}

func logRequestError(r *http.Request, msg string, err error) {
	middleware.GetLoggerFromContext(r.Context()).Error(msg, "error", err)
}

// decodeJSON reads the body into dst and runs its validate tags.
func (s *Server) decodeJSON(r *http.Request, dst any) *ErrorBuilder {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ValidationErr("Request body is required", nil)
		}
		return ValidationErr("Malformed JSON body", []ErrorDetail{{Field: "body", Message: err.Error()}})
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(v any) *ErrorBuilder {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErr("Invalid request", nil)
	}
	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ErrorDetail{Field: fe.Field(), Message: describeTag(fe)})
	}
	return ValidationErr("Invalid request", details)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "slug":
		return "must be lowercase letters, digits and dashes"
	}
	return "failed " + fe.Tag() + " validation"
}

// newValidator registers the custom tags used by request bodies.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return isSlug(fl.Field().String())
	})
	return v
}

func isSlug(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

// uuidParam parses a chi path parameter.
func uuidParam(r *http.Request, name string) (uuid.UUID, *ErrorBuilder) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, ValidationErr("Invalid "+name, []ErrorDetail{{Field: name, Message: "must be a UUID"}})
	}
	return id, nil
}
