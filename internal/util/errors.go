package util

import (
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k ErrorKind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// AppError 业务错误，带分类和可以直接返回给调用方的信息
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 让包装过的副本仍然匹配原来的哨兵错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap 返回带底层原因的副本，分类和信息不变
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Kind: e.Kind, Message: e.Message, Err: err}
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func NewBadRequest(message string) *AppError   { return NewError(KindBadRequest, message) }
func NewUnauthorized(message string) *AppError { return NewError(KindUnauthorized, message) }
func NewForbidden(message string) *AppError    { return NewError(KindForbidden, message) }
func NewNotFound(message string) *AppError     { return NewError(KindNotFound, message) }
func NewConflict(message string) *AppError     { return NewError(KindConflict, message) }

func NewInternal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

var (
	ErrUnauthorized        = NewUnauthorized("Unauthorized")
	ErrInvalidCredentials  = NewUnauthorized("Invalid email or password")
	ErrPermissionDenied    = NewForbidden("Forbidden")
	ErrNotEnrolled         = NewForbidden("You are not enrolled in this course")
	ErrUserNotFound        = NewNotFound("User not found")
	ErrCourseNotFound      = NewNotFound("Course not found")
	ErrQuizNotFound        = NewNotFound("Quiz not found")
	ErrSubmissionNotFound  = NewNotFound("Quiz submission not found")
	ErrLessonNotFound      = NewNotFound("Lesson not found in course syllabus")
	ErrEmailRegistered     = NewConflict("Email already registered")
	ErrAlreadyEnrolled     = NewConflict("Already enrolled in this course and batch")
	ErrAlreadySubmitted    = NewConflict("Quiz already submitted. Cannot submit twice.")
	ErrSelectedOptions     = NewBadRequest("selectedOptions array is required")
	ErrAnswerCountMismatch = NewBadRequest("Number of answers must match number of questions")
	ErrQuizCourseImmutable = NewBadRequest("courseId cannot be changed")
)
