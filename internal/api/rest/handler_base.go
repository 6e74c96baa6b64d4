package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/domain/values"
)

// ResponseEnvelope wraps every JSON response
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta carries per-response metadata
type ResponseMeta struct {
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	ResponseTime int64     `json:"response_time_ms"`
}

// ErrorResponse is the error half of the envelope
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Fields  map[string]string      `json:"fields,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// BaseHandler holds what every endpoint needs to decode, validate and
// answer a request
type BaseHandler struct {
	validator    *validator.Validate
	logger       *zap.Logger
	version      string
	maxBodyBytes int64
}

// NewBaseHandler creates a base handler. maxBodyBytes <= 0 means 1 MiB.
func NewBaseHandler(logger *zap.Logger, version string, maxBodyBytes int64) *BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("contactkind", func(fl validator.FieldLevel) bool {
		_, ok := values.ParseContactKind(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &BaseHandler{
		validator:    v,
		logger:       logger,
		version:      version,
		maxBodyBytes: maxBodyBytes,
	}
}

// decode reads a JSON body into dst and validates it
func (h *BaseHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return h.validator.Struct(dst)
}

// validate checks a value assembled from query parameters
func (h *BaseHandler) validate(v interface{}) error {
	return h.validator.Struct(v)
}

func (h *BaseHandler) meta(r *http.Request) ResponseMeta {
	m := ResponseMeta{
		RequestID: RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	if start, ok := startTimeFromContext(r.Context()); ok {
		m.ResponseTime = time.Since(start).Milliseconds()
	}
	return m
}

func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.writeJSON(w, status, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    h.meta(r),
	})
}

func (h *BaseHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		body.TraceID = sc.TraceID().String()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	h.writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error:   body,
		Meta:    h.meta(r),
	})
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "contactkind":
		return "must be one of phone, email, website, organization, general"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
