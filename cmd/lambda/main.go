// Command lambda serves the canvas API behind an API Gateway HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nodal/infrastructure/config"
	"nodal/infrastructure/di"
)

// gateway adapts API Gateway events to the chi router. Lambda freezes the
// process between invocations and never runs the container cleanup, so
// pending saves are flushed before each response is returned.
type gateway struct {
	proxy     *chiadapter.ChiLambdaV2
	container *di.Container
	warm      bool
}

func newGateway(ctx context.Context) (*gateway, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	container, _, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mux, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		return nil, errNotChi
	}
	return &gateway{proxy: chiadapter.NewV2(mux), container: container}, nil
}

func (g *gateway) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	logger := g.container.Logger.With(zap.String("requestID", req.RequestContext.RequestID))

	resp, err := g.proxy.ProxyWithContextV2(ctx, req)
	if flushErr := g.container.Workspaces.Flush(ctx); flushErr != nil {
		logger.Error("Canvas saves not flushed", zap.Error(flushErr))
	}

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	if !g.warm {
		resp.Headers["X-Cold-Start"] = "true"
		g.warm = true
	}
	if id := req.RequestContext.RequestID; id != "" {
		resp.Headers["X-Request-ID"] = id
	}
	if resp.StatusCode >= 500 {
		logger.Error("Invocation failed",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status", resp.StatusCode))
	}
	return resp, err
}

var errNotChi = errors.New("router is not a chi mux")

func main() {
	start := time.Now()
	g, err := newGateway(context.Background())
	if err != nil {
		log.Fatalf("lambda init: %v", err)
	}
	g.container.Logger.Info("Cold start complete", zap.Duration("duration", time.Since(start)))
	lambda.Start(g.handle)
}
