package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "principal not found"},
			want: "principal not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "issue tokens",
				Cause:   errors.New("entropy exhausted"),
			},
			want: "issue tokens: entropy exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false, want true", err)
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "wrapped error"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeConflict, "sign up %s", "a@x.com")
	if err.Message != "sign up a@x.com" {
		t.Errorf("Wrapf().Message = %q", err.Message)
	}
	if err.Code != ErrCodeConflict {
		t.Errorf("Wrapf().Code = %v, want %v", err.Code, ErrCodeConflict)
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "email is required")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "email" {
		t.Errorf("ValidationField().Field = %v, want email", err.Field)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"not found", NotFound("x"), IsNotFound, true},
		{"not found formatted", NotFoundf("%s missing", "x"), IsNotFound, true},
		{"conflict", Conflict("x"), IsConflict, true},
		{"validation", Validation("x"), IsValidation, true},
		{"precondition", Precondition("x"), IsPrecondition, true},
		{"busy", &AppError{Code: ErrCodeBusy}, IsBusy, true},
		{"internal", Internal("x"), IsInternal, true},
		{"canceled", &AppError{Code: ErrCodeCanceled}, IsCanceled, true},
		{"wrapped by fmt", fmt.Errorf("outer: %w", Conflict("x")), IsConflict, true},
		{"other code", NotFound("x"), IsConflict, false},
		{"standard error", errors.New("x"), IsNotFound, false},
		{"nil error", nil, IsValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "app error", err: NotFound("not found"), want: ErrCodeNotFound},
		{name: "outermost wins", err: Wrap(Conflict("dup"), ErrCodeInternal, "outer"), want: ErrCodeInternal},
		{name: "standard error", err: errors.New("standard error"), want: ""},
		{name: "nil error", err: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetField(t *testing.T) {
	if got := GetField(ValidationField("password", "required")); got != "password" {
		t.Errorf("GetField() = %q, want password", got)
	}
	if got := GetField(errors.New("plain")); got != "" {
		t.Errorf("GetField() = %q, want empty", got)
	}
}
