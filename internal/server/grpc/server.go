// Package grpc exposes the users and records services over gRPC, using the
// structpb codec from the rpc package.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/records"
	"github.com/dmitrijs2005/clinicsync/internal/server/users"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address    string
	users      *users.Service
	records    *records.Service
	logger     logging.Logger
	jwtSecret  []byte
	adminToken string
}

func NewGRPCServer(address string, l logging.Logger, us *users.Service, rs *records.Service, secretKey, adminToken string) *GRPCServer {
	if l == nil {
		l = logging.Nop()
	}
	return &GRPCServer{
		address:    address,
		logger:     l.With("module", "grpc_server"),
		users:      us,
		records:    rs,
		jwtSecret:  []byte(secretKey),
		adminToken: adminToken,
	}
}

// NewServer builds a grpc.Server with the interceptors and every service
// registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

// Register adds the user service and one sync service per resource to srv.
func (s *GRPCServer) Register(srv grpc.ServiceRegistrar) {
	srv.RegisterService(rpc.ServiceDesc(rpc.UserService, s.userHandlers()), struct{}{})
	for _, r := range rpc.Resources {
		srv.RegisterService(rpc.ServiceDesc(r.Service(), s.syncHandlers(r)), struct{}{})
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
