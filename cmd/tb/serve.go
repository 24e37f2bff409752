package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/alfredjeanlab/taskboard/internal/app"
	"github.com/alfredjeanlab/taskboard/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the live board over HTTP (SSE, websocket toasts) and gRPC health",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openSession(ctx, app.Options{WebToasts: true})
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a, a.Bus(), a.Toasts(), logger)
		defer srv.Close()
		grpcServer := srv.NewGRPCServer()
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			srv.SetServing(false)
			srv.Close()
			grpcServer.GracefulStop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		srv.SetServing(true)
		logger.Info("taskboard server started",
			"user", a.Session().UserID,
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr)

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}
