package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"ex-wechaty/pkg/puppet"
)

// servicePath prefixes every full method name of the puppet service.
const servicePath = "/wechaty.Puppet/"

var eventStreamDesc = &grpc.StreamDesc{
	StreamName:    "Event",
	ServerStreams: true,
}

// driverConfig contains runtime controls for call timeouts and error reporting.
type driverConfig struct {
	name           string
	callTimeout    time.Duration
	publishTimeout time.Duration
	onAsyncError   func(context.Context, error)
}

// Option mutates service driver configuration.
type Option func(*driverConfig)

// WithName configures the driver identity exposed to the kernel.
func WithName(name string) Option {
	return func(cfg *driverConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithCallTimeout bounds every unary call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(cfg *driverConfig) {
		if timeout > 0 {
			cfg.callTimeout = timeout
		}
	}
}

// WithPublishTimeout configures sink publish timeout per event.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(cfg *driverConfig) {
		if timeout > 0 {
			cfg.publishTimeout = timeout
		}
	}
}

// WithErrorHandler configures async event stream errors.
func WithErrorHandler(handler func(context.Context, error)) Option {
	return func(cfg *driverConfig) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}

// Driver talks to a remote puppet service over gRPC. Requests and responses
// are google.protobuf.Struct messages.
type Driver struct {
	cfg  driverConfig
	conn grpc.ClientConnInterface
}

// NewDriver creates a driver over conn. The driver closes conn on Shutdown
// when conn implements io.Closer.
func NewDriver(conn grpc.ClientConnInterface, options ...Option) (*Driver, error) {
	if conn == nil {
		return nil, fmt.Errorf("new service driver: nil connection")
	}

	cfg := driverConfig{
		name:           DriverType,
		callTimeout:    defaultCallTimeout,
		publishTimeout: defaultPublishTimeout,
		onAsyncError:   func(context.Context, error) {},
	}
	for _, option := range options {
		option(&cfg)
	}

	return &Driver{
		cfg:  cfg,
		conn: conn,
	}, nil
}

// BuildRuntimeFromConfig builds one service driver from config payload,
// discovering the endpoint from the token when none is configured.
func BuildRuntimeFromConfig(
	ctx context.Context,
	name string,
	logger *slog.Logger,
	rawConfig []byte,
) (*Driver, error) {
	cfg, err := parseRuntimeConfig(rawConfig, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("parse service runtime config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.endpoint
	if endpoint == "" {
		discoveryCtx, cancel := context.WithTimeout(ctx, cfg.discoveryTimeout)
		defer cancel()

		endpoint, err = discoverEndpoint(discoveryCtx, http.DefaultClient, cfg.discoveryURL, cfg.token)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "service endpoint discovered", "endpoint", endpoint)
	}

	dialOptions := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if cfg.token != "" {
		dialOptions = append(dialOptions, grpc.WithPerRPCCredentials(tokenCredentials{token: cfg.token}))
	}
	conn, err := grpc.NewClient(endpoint, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("new service client %s: %w", endpoint, err)
	}

	driver, err := NewDriver(
		conn,
		WithName(name),
		WithCallTimeout(cfg.callTimeout),
		WithPublishTimeout(cfg.publishTimeout),
		WithErrorHandler(func(ctx context.Context, err error) {
			logger.ErrorContext(ctx, "service driver async error", "error", err)
		}),
	)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return driver, nil
}

// Name returns the stable driver identifier.
func (d *Driver) Name() string {
	return d.cfg.name
}

// Start asks the service to start the puppet and relays its event stream.
func (d *Driver) Start(ctx context.Context, sink puppet.EventSink) error {
	if sink == nil {
		return fmt.Errorf("start service driver: nil sink")
	}

	if _, err := d.call(ctx, "Start", "start", nil); err != nil {
		if isContextCancellation(ctx, err) {
			return nil
		}
		return fmt.Errorf("start service driver: %w", err)
	}

	if err := d.consume(ctx, sink); err != nil {
		if isContextCancellation(ctx, err) {
			return nil
		}
		return fmt.Errorf("start service driver: consume events: %w", err)
	}

	return nil
}

// consume reads the event stream until it ends or ctx is cancelled.
func (d *Driver) consume(ctx context.Context, sink puppet.EventSink) error {
	stream, err := d.conn.NewStream(ctx, eventStreamDesc, servicePath+"Event")
	if err != nil {
		return mapCallError("event", err)
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return mapCallError("event", err)
	}
	if err := stream.CloseSend(); err != nil {
		return mapCallError("event", err)
	}

	for {
		message := &structpb.Struct{}
		if err := stream.RecvMsg(message); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return mapCallError("event", err)
		}

		if err := d.handleMessage(ctx, message, sink); err != nil {
			d.cfg.onAsyncError(ctx, err)
		}
	}
}

// handleMessage decodes one streamed message and publishes it with bounded latency.
func (d *Driver) handleMessage(ctx context.Context, message *structpb.Struct, sink puppet.EventSink) error {
	event, err := d.decodeSafely(message)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, d.cfg.publishTimeout)
	defer cancel()

	if err := sink.Publish(publishCtx, event); err != nil {
		return fmt.Errorf("handle event %s publish: %w", event.Kind, err)
	}

	return nil
}

// decodeSafely protects decoder panics at the adapter boundary.
func (d *Driver) decodeSafely(message *structpb.Struct) (decoded *puppet.Event, err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("decode service event panic: %v", recovered)
	}()

	return decodeEvent(message)
}

// Shutdown asks the service to stop the puppet and closes the connection.
func (d *Driver) Shutdown(ctx context.Context) error {
	var shutdownErr error
	if _, err := d.call(ctx, "Stop", "stop", nil); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("stop service puppet: %w", err))
	}
	if closer, ok := d.conn.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close service connection: %w", err))
		}
	}

	return shutdownErr
}

// call performs one unary call with the configured timeout.
func (d *Driver) call(
	ctx context.Context,
	method string,
	operation string,
	fields map[string]any,
) (*structpb.Struct, error) {
	request, err := newRequest(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.callTimeout)
	defer cancel()

	response := &structpb.Struct{}
	if err := d.conn.Invoke(callCtx, servicePath+method, request, response); err != nil {
		return nil, mapCallError(operation, err)
	}

	return response, nil
}

// isContextCancellation reports whether err only reflects ctx ending.
func isContextCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// tokenCredentials attaches the service token to every call.
type tokenCredentials struct {
	token string
}

// GetRequestMetadata returns the authorization header.
func (c tokenCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Wechaty " + c.token}, nil
}

// RequireTransportSecurity allows plaintext connections.
func (tokenCredentials) RequireTransportSecurity() bool {
	return false
}

var _ puppet.Driver = (*Driver)(nil)
