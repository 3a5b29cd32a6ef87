package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func badRequest(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

// toStatus maps service errors onto gRPC status codes. Internal failures
// are logged and not described to the caller.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, store.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) userHandlers() map[string]rpc.Handler {
	return map[string]rpc.Handler{
		rpc.MethodRequestOtp: rpc.Unary(func(ctx context.Context, req *rpc.RequestOtpRequest) (*rpc.Empty, error) {
			if err := s.users.RequestOTP(ctx, req.UserID); err != nil {
				return nil, s.toStatus(ctx, rpc.MethodRequestOtp, err)
			}
			return &rpc.Empty{}, nil
		}, badRequest),

		rpc.MethodLogin: rpc.Unary(func(ctx context.Context, req *rpc.LoginRequest) (*rpc.AuthResponse, error) {
			resp, err := s.users.Login(ctx, req.PhoneNumber, req.PIN, req.OTP)
			return resp, s.toStatus(ctx, rpc.MethodLogin, err)
		}, badRequest),

		rpc.MethodRegister: rpc.Unary(func(ctx context.Context, req *rpc.RegisterRequest) (*rpc.AuthResponse, error) {
			resp, err := s.users.Register(ctx, req.User)
			return resp, s.toStatus(ctx, rpc.MethodRegister, err)
		}, badRequest),

		rpc.MethodFindUser: rpc.Unary(func(ctx context.Context, req *rpc.FindUserRequest) (*rpc.FindUserResponse, error) {
			u, err := s.users.FindUser(ctx, *req)
			if err != nil {
				return nil, s.toStatus(ctx, rpc.MethodFindUser, err)
			}
			return &rpc.FindUserResponse{User: *u}, nil
		}, badRequest),

		rpc.MethodResetPin: rpc.Unary(func(ctx context.Context, req *rpc.ResetPinRequest) (*rpc.AuthResponse, error) {
			userID, ok := UserIDFromContext(ctx)
			if !ok {
				return nil, status.Error(codes.Unauthenticated, "missing token")
			}
			resp, err := s.users.ResetPin(ctx, userID, req.PinDigest)
			return resp, s.toStatus(ctx, rpc.MethodResetPin, err)
		}, badRequest),

		rpc.MethodApprove: rpc.Unary(func(ctx context.Context, req *rpc.ApproveRequest) (*rpc.FindUserResponse, error) {
			u, err := s.users.Approve(ctx, req.UserID, req.Status)
			if err != nil {
				return nil, s.toStatus(ctx, rpc.MethodApprove, err)
			}
			return &rpc.FindUserResponse{User: *u}, nil
		}, badRequest),
	}
}

func (s *GRPCServer) syncHandlers(resource rpc.Resource) map[string]rpc.Handler {
	return map[string]rpc.Handler{
		rpc.MethodPush: rpc.Unary(func(ctx context.Context, req *rpc.PushRequest[json.RawMessage]) (*rpc.PushResponse, error) {
			rejected, err := s.records.Push(ctx, resource, req.Records)
			if err != nil {
				return nil, s.toStatus(ctx, rpc.MethodPush, err)
			}
			return &rpc.PushResponse{Errors: rejected}, nil
		}, badRequest),

		rpc.MethodPull: rpc.Unary(func(ctx context.Context, req *rpc.PullRequest) (*rpc.PullResponse[json.RawMessage], error) {
			resp, err := s.records.Pull(ctx, resource, req.Limit, req.ProcessToken)
			return resp, s.toStatus(ctx, rpc.MethodPull, err)
		}, badRequest),
	}
}
