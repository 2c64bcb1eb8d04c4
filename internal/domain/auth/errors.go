package auth

import apperrors "github.com/target/idflow/internal/errors"

// Flow errors. All are recoverable by the user: reissue a corrected command.
// Compare with errors.Is; the apperrors predicates work on them too.
var (
	ErrMissingCredentials  = apperrors.Validation("email and password are required")
	ErrDuplicateEmail      = apperrors.Conflict("user already exists")
	ErrPrincipalNotFound   = apperrors.NotFound("user not found")
	ErrNoRefreshToken      = apperrors.Precondition("no refresh token available")
	ErrNoActivePrincipal   = apperrors.Precondition("no active principal")
	ErrRefreshTokenExpired = apperrors.Precondition("refresh token expired")
	ErrTokenExpired        = apperrors.Precondition("token expired")
	ErrInvalidToken        = apperrors.Validation("invalid token")
	ErrUnsupportedProvider = apperrors.Validation("unsupported identity provider")
	ErrBusy                = &apperrors.AppError{Code: apperrors.ErrCodeBusy, Message: "another command is in progress"}
	ErrAborted             = &apperrors.AppError{Code: apperrors.ErrCodeCanceled, Message: "command aborted"}
)
