package grpc

import (
	"errors"

	"github.com/dmitrijs2005/accounts/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusFromError converts service errors into gRPC statuses. Errors that
// already carry a status pass through; unknown errors become Internal
// without exposing their text.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorConflict):
		code = codes.AlreadyExists
	case errors.Is(err, common.ErrorValidation):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrorIllegalOperation):
		code = codes.FailedPrecondition
	case errors.Is(err, common.ErrorUnauthorized):
		code = codes.Unauthenticated
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return status.Error(code, err.Error())
}
