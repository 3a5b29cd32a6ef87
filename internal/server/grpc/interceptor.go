package grpc

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AdminTokenHeaderName carries the admin token for Approve.
const AdminTokenHeaderName = "x-admin-token"

type ctxKey string

const UserIDKey ctxKey = "userID"

// UserIDFromContext returns the authenticated user of the call.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

var approveMethod = rpc.FullMethod(rpc.UserService, rpc.MethodApprove)

// protectedMethods need a valid access token.
var protectedMethods = func() map[string]struct{} {
	m := map[string]struct{}{
		rpc.FullMethod(rpc.UserService, rpc.MethodResetPin): {},
	}
	for _, r := range rpc.Resources {
		m[rpc.FullMethod(r.Service(), rpc.MethodPush)] = struct{}{}
		m[rpc.FullMethod(r.Service(), rpc.MethodPull)] = struct{}{}
	}
	return m
}()

func incomingValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod == approveMethod {
		given := incomingValue(ctx, AdminTokenHeaderName)
		if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(given), []byte(s.adminToken)) != 1 {
			return nil, status.Error(codes.PermissionDenied, "admin token required")
		}
		return handler(ctx, req)
	}

	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	accessToken := incomingValue(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, UserIDKey, userID), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	ctx = logging.WithFields(ctx, "method", info.FullMethod)
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc",
		"code", status.Code(err).String(), "took", time.Since(start))
	return resp, err
}
