package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/idflow/internal/domain/auth"
	apperrors "github.com/target/idflow/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"busy sentinel", fmt.Errorf("sign in: %w", domainauth.ErrBusy), "busy"},
		{"conflict sentinel", fmt.Errorf("register: %w", domainauth.ErrDuplicateEmail), "conflict"},
		{"wrapped internal", apperrors.Wrap(goerrors.New("boom"), apperrors.ErrCodeInternal, "issue"), "internal"},
		{"context canceled", fmt.Errorf("wait: %w", context.Canceled), "canceled"},
		{"deadline", context.DeadlineExceeded, "deadline_exceeded"},
		{"plain", goerrors.New("x"), "errors_errorstring"},
		{"typed", fmt.Errorf("dial: %w", &net.OpError{Op: "dial"}), "net_operror"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
