package server

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"originserver/internal/conndriver"
	"originserver/internal/handler"
	"originserver/internal/httpstatus"
	"originserver/internal/observability"
	"originserver/internal/request"
	"originserver/internal/response"
)

func TestServeAcceptsAndDispatchesConnections(t *testing.T) {
	h := handler.HandlerFunc(func(req *request.Request) *response.Response {
		return response.New().Status(httpstatus.OK).BodyString("hi")
	})
	parser := request.New(request.DefaultLimits)
	metrics := observability.NewPromMetrics(prometheus.NewRegistry())
	accessLog := observability.NewAccessLogger(zap.NewNop(), false)
	driver := conndriver.New(parser, h, 2*time.Second, metrics, accessLog)

	srv, err := Serve("127.0.0.1:0", driver)
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "200 OK")
}

func TestCloseIsIdempotent(t *testing.T) {
	parser := request.New(request.DefaultLimits)
	driver := conndriver.New(parser, handler.HandlerFunc(func(req *request.Request) *response.Response {
		return response.New()
	}), time.Second, nil, nil)

	srv, err := Serve("127.0.0.1:0", driver)
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())
}
