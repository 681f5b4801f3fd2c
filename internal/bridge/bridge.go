// Package bridge connects the planner to the vehicle stack over socket.io.
//
// Inbound events are decoded into feed events and pushed into a feed.Channels
// hub. Published paths, status and overlays are emitted back on the same
// connection, so a Bridge doubles as a feed.OutputSink.
package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/metrics"
)

// DefaultConnectTimeout bounds the initial connection attempt.
const DefaultConnectTimeout = 15 * time.Second

// Config describes the socket.io endpoint.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Bridge is a connected socket.io client.
type Bridge struct {
	io     *socket.Socket
	hub    *feed.Channels
	logger *slog.Logger
}

// Dial connects to the endpoint and starts forwarding inbound events into hub.
func Dial(ctx context.Context, cfg Config, hub *feed.Channels) (*Bridge, error) {
	logger := ctxlog.FromContext(ctx).With("component", "bridge", "url", cfg.URL)
	logger.Info("Connecting to vehicle bridge...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	b := &Bridge{io: io, hub: hub, logger: logger}
	b.subscribe()

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Warn("Disconnected from vehicle bridge.", "reason", reason)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return b, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Close disconnects the client.
func (b *Bridge) Close() error {
	b.logger.Info("Closing vehicle bridge", "sid", b.io.Id())
	b.io.Disconnect()
	return nil
}

func (b *Bridge) subscribe() {
	b.on(EventCurrentPose, func(data []any) error {
		ev, err := decodePose(data)
		if err == nil {
			b.hub.SendPose(ev)
		}
		return err
	})
	b.on(EventVehicleStatus, func(data []any) error {
		ev, err := decodeStatus(data)
		if err == nil {
			b.hub.SendStatus(ev)
		}
		return err
	})
	b.on(EventMapFragment, func(data []any) error {
		ev, err := decodeFragment(data)
		if err == nil {
			b.hub.SendMap(ev)
		}
		return err
	})
	b.on(EventMapBlob, func(data []any) error {
		ev, err := decodeBlob(data)
		if err == nil {
			b.hub.SendMap(ev)
		}
		return err
	})
	b.on(EventCostUpdate, func(data []any) error {
		ev, err := decodeCost(data)
		if err == nil {
			b.hub.SendCost(ev)
		}
		return err
	})
	b.on(EventDestinations, func(data []any) error {
		b.hub.SendGoal(decodeDestinations(data))
		return nil
	})
	b.on(EventGoalPose, func(data []any) error {
		ev, err := decodeGoalPose(data)
		if err == nil {
			b.hub.SendGoal(ev)
		}
		return err
	})
	b.on(EventMissionOverride, func(data []any) error {
		ev, err := decodeOverride(data)
		if err == nil {
			b.hub.SendOverride(ev)
		}
		return err
	})
}

func (b *Bridge) on(event string, handle func(data []any) error) {
	b.io.On(types.EventName(event), func(data ...any) {
		metrics.BridgeEvents.WithLabelValues("in", event).Inc()
		if err := handle(data); err != nil {
			b.logger.Warn("Dropping malformed event.", "event", event, "error", err)
		}
	})
}

func (b *Bridge) emit(ctx context.Context, event string, v any) error {
	payload, err := outbound(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event, err)
	}
	if !b.io.Connected() {
		return fmt.Errorf("cannot emit %s: bridge not connected", event)
	}
	ctxlog.FromContext(ctx).Debug("Emitting event", "event", event)
	b.io.Emit(event, payload)
	metrics.BridgeEvents.WithLabelValues("out", event).Inc()
	return nil
}

func (b *Bridge) PublishPaths(ctx context.Context, ps feed.PathSet) error {
	return b.emit(ctx, EventGlobalPaths, ps)
}

func (b *Bridge) PublishStatus(ctx context.Context, st feed.MissionStatus) error {
	return b.emit(ctx, EventMissionStatus, st)
}

func (b *Bridge) PublishOverlay(ctx context.Context, ov feed.Overlay) error {
	return b.emit(ctx, EventOverlay, ov)
}
