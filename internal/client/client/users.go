package client

import (
	"context"

	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/google/uuid"
)

func userMethod(name string) string { return rpc.FullMethod(rpc.UserService, name) }

// RequestOTP asks the server to send a one-time password to the user.
func (c *GRPCClient) RequestOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := call[rpc.RequestOtpRequest, rpc.Empty](ctx, c, userMethod(rpc.MethodRequestOtp),
		&rpc.RequestOtpRequest{UserID: userID})
	return err
}

func (c *GRPCClient) Login(ctx context.Context, phoneNumber, pin, otp string) (*rpc.AuthResponse, error) {
	return call[rpc.LoginRequest, rpc.AuthResponse](ctx, c, userMethod(rpc.MethodLogin),
		&rpc.LoginRequest{PhoneNumber: phoneNumber, PIN: pin, OTP: otp})
}

// Register creates the user remotely. The PIN travels as a digest only.
func (c *GRPCClient) Register(ctx context.Context, u rpc.User) (*rpc.AuthResponse, error) {
	return call[rpc.RegisterRequest, rpc.AuthResponse](ctx, c, userMethod(rpc.MethodRegister),
		&rpc.RegisterRequest{User: u})
}

// FindUser looks a user up; an unknown user yields common.ErrNotFound.
func (c *GRPCClient) FindUser(ctx context.Context, req rpc.FindUserRequest) (*rpc.User, error) {
	resp, err := call[rpc.FindUserRequest, rpc.FindUserResponse](ctx, c, userMethod(rpc.MethodFindUser), &req)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ResetPin replaces the PIN digest of the authenticated user.
func (c *GRPCClient) ResetPin(ctx context.Context, pinDigest string) (*rpc.AuthResponse, error) {
	return call[rpc.ResetPinRequest, rpc.AuthResponse](ctx, c, userMethod(rpc.MethodResetPin),
		&rpc.ResetPinRequest{PinDigest: pinDigest})
}
