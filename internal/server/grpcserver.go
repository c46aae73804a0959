package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/config"
	"github.com/S0me0neR0man/xmlocaf/internal/docstore"
	"github.com/S0me0neR0man/xmlocaf/internal/grpcproto"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
	"github.com/S0me0neR0man/xmlocaf/internal/token"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlldrivers"
)

var (
	errMissingMetadata = status.Errorf(codes.InvalidArgument, "missing metadata")
	errInvalidToken    = status.Errorf(codes.Unauthenticated, "invalid token")
	errRateLimited     = status.Errorf(codes.ResourceExhausted, "too many requests")
)

type GRPCServer struct {
	grpcproto.UnimplementedDocumentsServer

	store   *docstore.Store
	app     *app.Application
	conf    *config.Config
	limiter *rate.Limiter

	sugar *zap.SugaredLogger
	log   *zap.Logger
	gserv *grpc.Server

	wg sync.WaitGroup
}

func NewDocumentServer(store *docstore.Store, a *app.Application, conf *config.Config, logger *zap.Logger) *GRPCServer {
	ss := &GRPCServer{
		store: store,
		app:   a,
		conf:  conf,
		log:   logger,
		sugar: logger.Sugar(),
	}
	if conf.RateLimit > 0 {
		burst := int(conf.RateLimit)
		if burst < 1 {
			burst = 1
		}
		ss.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}
	return ss
}

// Start listens on the configured address and serves until ctx is done
func (ss *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", ss.conf.Listen)
	if err != nil {
		return err
	}
	return ss.Serve(ctx, lis)
}

func (ss *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(ss.rateLimit, ss.ensureValidToken),
	}

	ss.gserv = grpc.NewServer(opts...)
	grpcproto.RegisterDocumentsServer(ss.gserv, ss)
	ss.sugar.Infow("gprcserver start", "addr", lis.Addr().String())

	ss.wg.Add(2)
	go ss.saveToDisk(ctx)
	go ss.gracefulStop(ctx)

	return ss.gserv.Serve(lis)
}

func (ss *GRPCServer) saveToDisk(ctx context.Context) {
	defer ss.wg.Done()
	if ss.conf.StoreInterval == 0 {
		return
	}

	ticker := time.NewTicker(ss.conf.StoreInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := ss.store.SaveToDisk(ctx)
			if err != nil {
				ss.sugar.Errorw("store.SaveToDisk", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (ss *GRPCServer) gracefulStop(ctx context.Context) {
	defer ss.wg.Done()

	<-ctx.Done()
	ss.gserv.GracefulStop()
	if ss.conf.StoreInterval == 0 {
		return
	}
	if err := ss.store.SaveToDisk(context.Background()); err != nil {
		ss.sugar.Errorw("final store.SaveToDisk", "error", err)
	}
}

func (ss *GRPCServer) Wait() {
	ss.wg.Wait()
}

func (ss *GRPCServer) rateLimit(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if ss.limiter != nil && !ss.limiter.Allow() {
		ss.sugar.Debugw("rateLimit", "method", info.FullMethod)
		return nil, errRateLimited
	}
	return handler(ctx, req)
}

func (ss *GRPCServer) ensureValidToken(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if ss.conf.TokenSecret == "" {
		return handler(ctx, req)
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errMissingMetadata
	}

	// The keys within metadata.MD are normalized to lowercase.
	var value string
	if v := md.Get(token.MetadataKey); len(v) > 0 {
		value = v[0]
	}
	subject, err := token.Validate([]byte(ss.conf.TokenSecret), value)
	if err != nil {
		ss.sugar.Debugw("ensureValidToken", "method", info.FullMethod, "err", err)
		return nil, errInvalidToken
	}
	ss.sugar.Debugw("ensureValidToken", "method", info.FullMethod, "subject", subject)
	return handler(ctx, req)
}

// Store reads the uploaded document with the retrieval driver of its format
func (ss *GRPCServer) Store(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	msg := message.NewCollector(message.NewZapDriver(ss.log))
	doc, err := ss.app.Decode([]byte(in.GetValue()), "", msg)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := ss.store.Insert(doc)
	if err != nil {
		return nil, toStatus(err)
	}

	warnings := msg.Count(message.Warning)
	if err := grpc.SetHeader(ctx, metadata.Pairs(grpcproto.WarningsHeader, strconv.Itoa(warnings))); err != nil {
		ss.sugar.Debugw("SetHeader", "err", err)
	}
	ss.sugar.Debugw("Store", "id", id, "format", doc.StorageFormat, "version", doc.Version, "warnings", warnings)
	return wrapperspb.String(id.String()), nil
}

// Fetch writes the document with the storage driver of its format
func (ss *GRPCServer) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	id, err := uuid.Parse(in.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad document id %q", in.GetValue())
	}
	doc, err := ss.store.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}

	var buf bytes.Buffer
	if err := ss.app.Encode(doc, &buf, message.NewZapDriver(ss.log)); err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(buf.String()), nil
}

func (ss *GRPCServer) Remove(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id, err := uuid.Parse(in.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad document id %q", in.GetValue())
	}
	if err := ss.store.Remove(id); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, docstore.ErrDocumentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, docstore.ErrNilDocument), errors.Is(err, app.ErrUnknownFormat), errors.Is(err, app.ErrNoFormat):
		return status.Error(codes.InvalidArgument, err.Error())
	}

	switch xmlldrivers.StatusOf(err) {
	case xmlldrivers.StatusHeaderError, xmlldrivers.StatusFormatMismatch, xmlldrivers.StatusUnsupportedVersion:
		return status.Error(codes.InvalidArgument, err.Error())
	case xmlldrivers.StatusNewerVersion:
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
