package rpc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/splitplus/internal/auth"
	"github.com/mmynk/splitplus/internal/mirror"
	"github.com/mmynk/splitplus/internal/service"
)

var (
	errNotGroupMember = errors.New("caller is not a member of this group")
	errNotGroupAdmin  = errors.New("only the group creator can do this")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest checks msg's struct tags and reports the failed fields.
func validateRequest(msg any) error {
	err := validate.Struct(msg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return connect.NewError(connect.CodeInternal, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid request: %s", strings.Join(fields, "; ")))
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var remoteErr *mirror.RemoteError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errNotGroupMember), errors.Is(err, errNotGroupAdmin):
		return connect.NewError(connect.CodePermissionDenied, err)
	case service.IsValidationError(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrUsernameTaken):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrUsernameRequired):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, mirror.ErrNotMirrored):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &remoteErr), errors.Is(err, mirror.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
