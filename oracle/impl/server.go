package impl

import (
	"context"
	"fmt"
	"net"

	"github.com/golang/glog"
	"google.golang.org/grpc"

	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/proto/oraclepb"
)

type OracleProxy struct {
	oraclepb.UnimplementedOracleServer

	registry *Registry
}

func (o *OracleProxy) Fetch(ctx context.Context, req *oraclepb.FetchRequest) (*oraclepb.FetchResponse, error) {
	s, err := o.registry.Get(ctx, req.Namespace)
	if err != nil {
		return &oraclepb.FetchResponse{Err: errors.ToPBError(err)}, nil
	}
	r, err := s.GetFreshTimestamps(ctx, req.Count)
	if err != nil {
		return &oraclepb.FetchResponse{Err: errors.ToPBError(err)}, nil
	}
	if glog.V(consts.DebugLevel) {
		glog.Infof("[OracleProxy] namespace '%s' fetched %s", req.Namespace, r)
	}
	return &oraclepb.FetchResponse{Lower: r.Lower, Upper: r.Upper}, nil
}

func (o *OracleProxy) FastForward(ctx context.Context, req *oraclepb.FastForwardRequest) (*oraclepb.FastForwardResponse, error) {
	s, err := o.registry.Get(ctx, req.Namespace)
	if err != nil {
		return &oraclepb.FastForwardResponse{Err: errors.ToPBError(err)}, nil
	}
	return &oraclepb.FastForwardResponse{Err: errors.ToPBError(s.FastForwardTimestamp(ctx, req.Timestamp))}, nil
}

func (o *OracleProxy) Invalidate(ctx context.Context, req *oraclepb.InvalidateRequest) (*oraclepb.InvalidateResponse, error) {
	s, err := o.registry.Get(ctx, req.Namespace)
	if err != nil {
		return &oraclepb.InvalidateResponse{Err: errors.ToPBError(err)}, nil
	}
	admin, ok := s.(oracle.TimestampAdminService)
	if !ok {
		return &oraclepb.InvalidateResponse{Err: errors.ToPBError(
			errors.Annotatef(errors.ErrNotSupported, "timestamps of namespace '%s' can't be invalidated", req.Namespace))}, nil
	}
	glog.Warningf("[OracleProxy] invalidating timestamps of namespace '%s'", req.Namespace)
	return &oraclepb.InvalidateResponse{Err: errors.ToPBError(admin.InvalidateTimestamps(ctx))}, nil
}

type Server struct {
	grpcServer *grpc.Server
	oracle     *OracleProxy

	port int
	lis  net.Listener
	Done chan struct{}
}

func NewServer(port int, registry *Registry) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(),
		oracle: &OracleProxy{
			registry: registry,
		},
		port: port,
		Done: make(chan struct{}),
	}
	oraclepb.RegisterOracleServer(s.grpcServer, s.oracle)
	return s
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		glog.Errorf("failed to listen: %v", err)
		return err
	}
	s.lis = lis

	go func() {
		defer close(s.Done)

		if err := s.grpcServer.Serve(lis); err != nil {
			glog.Errorf("oracle serve failed: %v", err)
		} else {
			glog.Infof("oracle server terminated successfully")
		}
	}()
	return nil
}

// Addr is the address the server listens on, valid after Start.
func (s *Server) Addr() string {
	return s.lis.Addr().String()
}

// Port is the port the server listens on, valid after Start.
func (s *Server) Port() int {
	return s.lis.Addr().(*net.TCPAddr).Port
}

// Stop stops serving and closes every service of the registry.
func (s *Server) Stop() {
	s.grpcServer.Stop()
	<-s.Done
	if err := s.oracle.registry.Close(); err != nil {
		glog.Errorf("close registry failed: %v", err)
	}
}
