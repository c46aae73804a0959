package client

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/S0me0neR0man/xmlocaf/internal/grpcproto"
)

type GRPCClient struct {
	conn   *grpc.ClientConn
	client grpcproto.DocumentsClient
}

// NewGRPClient creds may be nil for servers without authentication
func NewGRPClient(target string, creds credentials.PerRPCCredentials, extra ...grpc.DialOption) (*GRPCClient, error) {
	c := GRPCClient{}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if creds != nil {
		opts = append(opts, grpc.WithPerRPCCredentials(creds))
	}
	opts = append(opts, extra...)

	var err error
	c.conn, err = grpc.Dial(target, opts...)
	if err != nil {
		return nil, err
	}
	c.client = grpcproto.NewDocumentsClient(c.conn)

	return &c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Store uploads an XML document, returns its id and the number of diagnostics the server got while reading it
func (c *GRPCClient) Store(ctx context.Context, xml []byte) (string, int, error) {
	var header metadata.MD
	resp, err := c.client.Store(ctx, wrapperspb.String(string(xml)), grpc.Header(&header))
	if err != nil {
		return "", 0, err
	}

	warnings := 0
	if v := header.Get(grpcproto.WarningsHeader); len(v) > 0 {
		warnings, _ = strconv.Atoi(v[0])
	}
	return resp.GetValue(), warnings, nil
}

func (c *GRPCClient) Fetch(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.client.Fetch(ctx, wrapperspb.String(id))
	if err != nil {
		return nil, err
	}
	return []byte(resp.GetValue()), nil
}

func (c *GRPCClient) Remove(ctx context.Context, id string) error {
	_, err := c.client.Remove(ctx, wrapperspb.String(id))
	return err
}
