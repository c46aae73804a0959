package server

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/attrs"
	"github.com/S0me0neR0man/xmlocaf/internal/client"
	"github.com/S0me0neR0man/xmlocaf/internal/config"
	"github.com/S0me0neR0man/xmlocaf/internal/docstore"
	"github.com/S0me0neR0man/xmlocaf/internal/ocaf"
	"github.com/S0me0neR0man/xmlocaf/internal/shapes"
	"github.com/S0me0neR0man/xmlocaf/internal/token"
	"github.com/S0me0neR0man/xmlocaf/internal/xmldrivers"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlldrivers"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlmdf"
)

type testEnv struct {
	app    *app.Application
	dir    string
	client *client.GRPCClient
	stop   func()
}

func startServer(t *testing.T, conf *config.Config, creds credentials.PerRPCCredentials) *testEnv {
	logger := zaptest.NewLogger(t)
	a := app.New(logger)
	xmldrivers.DefineFormat(a)
	xmlldrivers.DefineFormat(a)

	dir := t.TempDir()
	ss := NewDocumentServer(docstore.New(a, dir, logger), a, conf, logger)
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ss.Serve(ctx, lis)
	}()

	c, err := client.NewGRPClient("bufnet", creds, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)

	env := &testEnv{app: a, dir: dir, client: c}
	stopped := false
	env.stop = func() {
		if stopped {
			return
		}
		stopped = true
		_ = c.Close()
		cancel()
		require.NoError(t, <-done)
		ss.Wait()
	}
	t.Cleanup(env.stop)
	return env
}

func testConfig() *config.Config {
	c := config.Default()
	c.StoreInterval = 0
	return c
}

func encode(t *testing.T, a *app.Application, doc *ocaf.Document) []byte {
	var buf bytes.Buffer
	require.NoError(t, a.Encode(doc, &buf, nil))
	return buf.Bytes()
}

func sampleDocument(t *testing.T) *ocaf.Document {
	doc := ocaf.NewDocument(xmldrivers.FormatName)
	l := doc.Root.NewChild()
	require.NoError(t, l.AddAttribute(&attrs.Name{Value: "bracket"}))
	require.NoError(t, l.AddAttribute(&attrs.Integer{Value: 42}))
	require.NoError(t, l.AddAttribute(&shapes.NamedShape{Shape: &shapes.Mesh{Vertices: []shapes.Vertex{{X: 1, Y: 2, Z: 3}}}}))
	return doc
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, status.Code(err), "error %v", err)
}

func TestGRPCServer_StoreFetchRemove(t *testing.T) {
	env := startServer(t, testConfig(), nil)
	ctx := context.Background()

	id, warnings, err := env.client.Store(ctx, encode(t, env.app, sampleDocument(t)))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Zero(t, warnings)

	xml, err := env.client.Fetch(ctx, id)
	require.NoError(t, err)
	doc, err := env.app.Decode(xml, "", nil)
	require.NoError(t, err)
	require.Equal(t, xmldrivers.FormatName, doc.StorageFormat)
	require.Equal(t, 3, doc.NbAttributes())

	require.NoError(t, env.client.Remove(ctx, id))
	_, err = env.client.Fetch(ctx, id)
	requireCode(t, err, codes.NotFound)
	requireCode(t, env.client.Remove(ctx, id), codes.NotFound)
}

func TestGRPCServer_StoreDiagnostics(t *testing.T) {
	env := startServer(t, testConfig(), nil)
	ctx := context.Background()

	src := `<document format="XmlOcaf"><info DocVersion="3"/>
<label tag="0"><XCAFDoc_Color guid="efd212ed-6dfd-11d4-b9c8-0060b0ee281b"/></label>
<shapes nb="0"/></document>`
	_, warnings, err := env.client.Store(ctx, []byte(src))
	require.NoError(t, err)
	require.Equal(t, 1, warnings)

	inflated := `<document format="XmlOcaf"><info DocVersion="3"/><label tag="0"/><shapes nb="999999999999999"/></document>`
	_, warnings, err = env.client.Store(ctx, []byte(inflated))
	require.NoError(t, err)
	require.Equal(t, 2, warnings)

	_, _, err = env.client.Store(ctx, []byte("<document"))
	requireCode(t, err, codes.InvalidArgument)

	_, _, err = env.client.Store(ctx, []byte(`<document format="Binary"/>`))
	requireCode(t, err, codes.InvalidArgument)

	newer := `<document format="XmlOcaf"><info DocVersion="9"/><label tag="0"/></document>`
	_, _, err = env.client.Store(ctx, []byte(newer))
	requireCode(t, err, codes.FailedPrecondition)

	_, err = env.client.Fetch(ctx, "not-an-id")
	requireCode(t, err, codes.InvalidArgument)
}

func TestToStatus(t *testing.T) {
	requireCode(t, toStatus(fmt.Errorf("%w: 9", xmlldrivers.ErrVersion)), codes.InvalidArgument)
	requireCode(t, toStatus(fmt.Errorf("%w: bad", xmlmdf.ErrEncode)), codes.Internal)
	requireCode(t, toStatus(docstore.ErrDocumentNotFound), codes.NotFound)
}

func TestGRPCServer_Auth(t *testing.T) {
	conf := testConfig()
	conf.TokenSecret = "secret"

	anonymous := startServer(t, conf, nil)
	_, _, err := anonymous.client.Store(context.Background(), encode(t, anonymous.app, sampleDocument(t)))
	requireCode(t, err, codes.Unauthenticated)

	forged := startServer(t, conf, token.NewTokens("other", "ocafcheck", time.Minute))
	_, err = forged.client.Fetch(context.Background(), "not-an-id")
	requireCode(t, err, codes.Unauthenticated)

	signed := startServer(t, conf, token.NewTokens("secret", "ocafcheck", time.Minute))
	_, _, err = signed.client.Store(context.Background(), encode(t, signed.app, sampleDocument(t)))
	require.NoError(t, err)
}

func TestGRPCServer_RateLimit(t *testing.T) {
	conf := testConfig()
	conf.RateLimit = 1
	env := startServer(t, conf, nil)

	_, err := env.client.Fetch(context.Background(), "not-an-id")
	requireCode(t, err, codes.InvalidArgument)
	_, err = env.client.Fetch(context.Background(), "not-an-id")
	requireCode(t, err, codes.ResourceExhausted)
}

func TestGRPCServer_SavesOnShutdown(t *testing.T) {
	conf := testConfig()
	conf.StoreInterval = time.Hour
	env := startServer(t, conf, nil)

	id, _, err := env.client.Store(context.Background(), encode(t, env.app, sampleDocument(t)))
	require.NoError(t, err)
	env.stop()

	doc, err := env.app.Open(filepath.Join(env.dir, id+".xml"), "", nil)
	require.NoError(t, err)
	require.Equal(t, 3, doc.NbAttributes())

	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
