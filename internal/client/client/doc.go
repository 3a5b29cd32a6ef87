// Package client is the gRPC transport of the sync engine.
//
// # Overview
//
// GRPCClient owns one connection to the sync server. On top of it:
//  1. SyncAPI[T] pushes and pulls one resource (patients, blood pressures,
//     prescriptions, appointments, medical histories).
//  2. The user methods (RequestOTP, Login, Register, FindUser, ResetPin)
//     back the session flows.
//
// A unary interceptor attaches the access token read from a TokenSource to
// every call. When a call that carried a token is rejected with
// Unauthenticated, the registered unauthorized handler runs so the session
// can move to UNAUTHORIZED.
//
// # Error Handling
//
// gRPC status codes are translated in one place (mapError) into the
// sentinels of the common package: ErrNetwork, ErrServer, ErrUnauthorized,
// ErrNotFound, ErrValidation and ErrUnexpected.
package client
