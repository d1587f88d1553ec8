package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"user-directory-service/cmd/api/di"
	"user-directory-service/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
	GRPC   *grpc.Server
	Health *health.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	grpcServer, healthServer := SetupGRPC(l)
	return &Server{
		Config: cfg,
		Logger: l,
		Gin:    SetupGinServer(c, ginAddress(cfg), l),
		GRPC:   grpcServer,
		Health: healthServer,
	}
}

// Start runs the REST API and, when GRPC_PORT is set, the gRPC health
// server. A failure in one stops the other.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.startGin(); err != nil {
			s.GRPC.Stop()
			return fmt.Errorf("failed to start REST API: %w", err)
		}
		return nil
	})

	if s.Config.App.GRPCPort != "" {
		g.Go(func() error {
			if err := s.startGRPC(ctx); err != nil {
				_ = s.Gin.Close()
				return fmt.Errorf("failed to start gRPC server: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// startGRPC starts the gRPC server
func (s *Server) startGRPC(ctx context.Context) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.grpcAddress())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.Logger.Info("gRPC server running", zap.String("address", s.grpcAddress()))
	return s.GRPC.Serve(lis)
}

// startGin starts the REST API; a graceful shutdown is not an error
func (s *Server) startGin() error {
	s.Logger.Info("REST API running", zap.String("address", s.Gin.Addr))
	if err := s.Gin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// grpcAddress returns the gRPC server address
func (s *Server) grpcAddress() string {
	return ":" + s.Config.App.GRPCPort
}

func ginAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
