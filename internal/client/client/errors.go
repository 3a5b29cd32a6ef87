package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mapError translates a gRPC failure into the common error taxonomy. The
// original status stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", common.ErrNetwork, err)
		}
		return fmt.Errorf("%w: %w", common.ErrUnexpected, err)
	}

	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", common.ErrNetwork, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %w: %s", common.ErrServer, common.ErrValidation, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", common.ErrServer, st.Code(), st.Message())
	}
}
