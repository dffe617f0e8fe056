package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind 错误分类，决定重试策略与对外的 http 状态码
type Kind string

const (
	KindUnknown            Kind = ""
	KindConfiguration      Kind = "configuration"
	KindUpstreamGeneration Kind = "upstream_generation"
	KindContentExtraction  Kind = "content_extraction"
	KindPartialArtifact    Kind = "partial_artifact"
)

func (k Kind) HTTPStatus() int {
	switch k {
	case KindConfiguration:
		return http.StatusBadRequest
	case KindUpstreamGeneration:
		return http.StatusBadGateway
	case KindContentExtraction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type CustomizedError struct {
	cause   error
	message string
	trace   []string
	wrap    error
	code    int
	kind    Kind
	data    map[string]interface{}
}

func (e *CustomizedError) WithData(data map[string]interface{}) *CustomizedError {
	e.data = data
	return e
}

func (e *CustomizedError) Data() map[string]interface{} {
	return e.data
}

func (e *CustomizedError) Code(c int) *CustomizedError {
	e.code = c
	return e
}

func (e *CustomizedError) GetCode() int {
	return e.code
}

// Kind sets the error category. The http code follows the kind unless Code is called afterwards.
func (e *CustomizedError) Kind(k Kind) *CustomizedError {
	e.kind = k
	e.code = k.HTTPStatus()
	return e
}

func (e *CustomizedError) GetKind() Kind {
	return e.kind
}

func New(trace, message string, err error) *CustomizedError {
	code := http.StatusInternalServerError
	return &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		code:    code,
	}
}

func (e *CustomizedError) Trace(trace string) *CustomizedError {
	e.trace = append(e.trace, trace)
	return e
}

func Wrap(err error, trace, message string) *CustomizedError {
	ce := &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		wrap:    err,
		code:    http.StatusInternalServerError,
	}
	var income *CustomizedError
	if stderrors.As(err, &income) {
		ce.code = income.code
		ce.kind = income.kind
	}
	return ce
}

func Trace(trace string, err error) *CustomizedError {
	if ce, ok := err.(*CustomizedError); ok {
		ce.trace = append(ce.trace, trace)
		return ce
	}
	return Wrap(err, trace, err.Error())
}

func (e *CustomizedError) Unwrap() error {
	return e.cause
}

func (e *CustomizedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

// Detail 返回面向用户的描述：message 与底层原因拼接
func (e *CustomizedError) Detail() string {
	if e.cause == nil || e.cause.Error() == e.message {
		return e.Message()
	}
	return fmt.Sprintf("%s: %s", e.Message(), e.cause.Error())
}

func (e *CustomizedError) Error() string {
	otherDetails := `""`
	if ce, ok := e.wrap.(*CustomizedError); ok {
		otherDetails = ce.Error()
	} else if e.wrap != nil {
		otherDetails = fmt.Sprint("\"", e.wrap.Error(), "\"")
	}
	return fmt.Sprintf(`{"trace":"%s","code":%d,"kind":"%s","msg":"%s","error":"%v","wrapd":%s}`, strings.Join(e.trace, "->"), e.code, e.kind, e.message, e.cause, otherDetails)
}

// KindOf 返回错误链上第一个带分类的 CustomizedError 的 Kind
func KindOf(err error) Kind {
	for err != nil {
		if ce, ok := err.(*CustomizedError); ok && ce.kind != KindUnknown {
			return ce.kind
		}
		err = stderrors.Unwrap(err)
	}
	return KindUnknown
}

func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Describe 用于落库和日志的简短描述，不包含 trace
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var ce *CustomizedError
	if stderrors.As(err, &ce) {
		return ce.Detail()
	}
	return err.Error()
}
