package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"nmea-ng/internal/config"
	"nmea-ng/internal/feed"
	"nmea-ng/internal/nmea"
	"nmea-ng/internal/replay"
	"nmea-ng/internal/sink"
	"nmea-ng/internal/udp"
	"nmea-ng/internal/web"
)

// liveRuntime owns everything built from one config: the parser, the feed
// and every subscriber.
type liveRuntime struct {
	cfg    config.Config
	parser *nmea.Parser
	feed   *feed.Service

	recorder  *replay.Writer
	forwarder *udp.Forwarder
	mqtt      *sink.MQTT
	redis     *sink.Redis
	hub       *web.Hub

	status  *web.Status
	handler http.Handler
	sinks   []string
	subIDs  []string
}

func feedConfig(c config.Config) feed.Config {
	fc := feed.Config{
		Source:         c.Input.Source,
		Device:         c.Input.Serial.Device,
		Make:           c.Input.Serial.Make,
		Model:          c.Input.Serial.Model,
		Driver:         c.Input.Serial.Driver,
		ReplayPath:     c.Input.Replay.Path,
		ReplaySpeed:    c.Input.Replay.Speed,
		ReplayLoop:     c.Input.Replay.Loop,
		ReplayInterval: c.Input.Replay.Interval,
		Addr:           c.Input.TCP.Addr,
		ReconnectDelay: c.Input.TCP.ReconnectDelay,
	}
	if c.Input.Source == config.SourceGPSD {
		fc.Addr = c.Input.GPSD.Addr
		fc.ReconnectDelay = c.Input.GPSD.ReconnectDelay
	}
	return fc
}

func inputDescription(c config.Config) string {
	switch c.Input.Source {
	case config.SourceReplay:
		return "replay:" + c.Input.Replay.Path
	case config.SourceTCP:
		return "tcp:" + c.Input.TCP.Addr
	case config.SourceGPSD:
		return "gpsd:" + c.Input.GPSD.Addr
	default:
		dev := c.Input.Serial.Device
		if dev == "" {
			dev = "auto"
		}
		return fmt.Sprintf("serial:%s %s/%s", dev, c.Input.Serial.Make, c.Input.Serial.Model)
	}
}

// newLiveRuntime connects the configured sinks and builds the feed. It does
// not start reading; call Run. On error everything opened so far is closed.
func newLiveRuntime(ctx context.Context, cfg config.Config, logs *web.LogBuffer) (rt *liveRuntime, err error) {
	r := &liveRuntime{cfg: cfg}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	r.parser = nmea.NewParser(nmea.DefaultRegistry(),
		nmea.WithEvents(cfg.Events.Enable),
		nmea.WithErrorHandler(func(err error) {
			log.Printf("subscriber failed: %v", err)
		}),
	)

	if cfg.UDP.Dest != "" {
		if r.forwarder, err = udp.NewForwarder(cfg.UDP.Dest); err != nil {
			return nil, fmt.Errorf("udp forwarder init failed: %w", err)
		}
		r.subscribe("udp", r.forwarder.Handle)
		log.Printf("udp forward dest=%s", cfg.UDP.Dest)
	}

	if cfg.MQTT.Enable {
		r.mqtt, err = sink.DialMQTT(sink.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Retain:      cfg.MQTT.Retain,
		})
		if err != nil {
			return nil, err
		}
		r.subscribe("mqtt", r.mqtt.Handle)
	}

	if cfg.Redis.Enable {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		r.redis, err = sink.DialRedis(dialCtx, sink.RedisConfig{
			Addr:          cfg.Redis.Addr,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
		})
		cancel()
		if err != nil {
			return nil, err
		}
		r.subscribe("redis", r.redis.Handle)
	}

	if cfg.Web.Listen != "" {
		r.hub = web.NewHub()
		r.subscribe("stream", r.hub.Handle)
	}

	var opts []feed.Option
	if cfg.Record.Enable {
		r.recorder, err = replay.CreateWriter(replay.WriterConfig{
			Path:       cfg.Record.Path,
			MaxSizeMB:  cfg.Record.MaxSizeMB,
			MaxBackups: cfg.Record.MaxBackups,
			Compress:   cfg.Record.Compress,
		})
		if err != nil {
			return nil, fmt.Errorf("record init failed: %w", err)
		}
		opts = append(opts, feed.WithRecorder(r.recorder))
		log.Printf("record started path=%s", cfg.Record.Path)
	}

	r.feed = feed.New(feedConfig(cfg), r.parser, opts...)

	r.status = web.NewStatus(r.feed.Snapshot, r.parser.Registry().Tags(), r.hub)
	r.status.SetStatic(inputDescription(cfg), r.sinks)
	if fw := r.forwarder; fw != nil {
		r.status.SetForwarder(func() web.ForwardStats {
			sent, failed := fw.Stats()
			return web.ForwardStats{Dest: fw.Dest(), Sent: sent, Failed: failed}
		})
	}
	r.handler = web.Handler(r.status, r.hub, logs)
	return r, nil
}

// subscribe registers a sink; its errors are logged with the sink name.
func (r *liveRuntime) subscribe(name string, fn nmea.Subscriber) {
	r.subIDs = append(r.subIDs, r.parser.SubscribeAll(func(msg nmea.Message) error {
		if err := fn(msg); err != nil {
			return fmt.Errorf("sink=%s: %w", name, err)
		}
		return nil
	}))
	r.sinks = append(r.sinks, name)
}

// Run reads the input until ctx is cancelled or the feed ends on its own
// (a non-looping replay).
func (r *liveRuntime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.feed.Start(ctx); err != nil {
		return fmt.Errorf("feed start failed: %w", err)
	}
	log.Printf("nmea-ng running input=%s sinks=%v events=%t", inputDescription(r.cfg), r.sinks, r.cfg.Events.Enable)

	webErr := make(chan error, 1)
	if r.cfg.Web.Listen != "" {
		log.Printf("web listening on %s", r.cfg.Web.Listen)
		go func() { webErr <- web.Serve(ctx, r.cfg.Web.Listen, r.handler) }()
	}

	select {
	case <-ctx.Done():
		return nil
	case <-r.feed.Done():
		snap := r.feed.Snapshot()
		log.Printf("feed finished state=%s lines=%d parsed=%d checksum_failures=%d parse_errors=%d",
			snap.State, snap.Lines, snap.Parsed, snap.ChecksumFailures, snap.ParseErrors)
		if snap.State == "error" {
			return fmt.Errorf("feed stopped: %s", snap.LastError)
		}
		return nil
	case err := <-webErr:
		if err != nil {
			return fmt.Errorf("web server stopped: %w", err)
		}
		return nil
	}
}

func (r *liveRuntime) Close() error {
	if r == nil {
		return nil
	}
	if r.feed != nil {
		r.feed.Close()
	}
	if r.parser != nil {
		for _, id := range r.subIDs {
			r.parser.Unsubscribe(id)
		}
	}
	var err error
	if r.recorder != nil {
		err = multierr.Append(err, r.recorder.Close())
	}
	if r.forwarder != nil {
		err = multierr.Append(err, r.forwarder.Close())
	}
	if r.mqtt != nil {
		err = multierr.Append(err, r.mqtt.Close())
	}
	if r.redis != nil {
		err = multierr.Append(err, r.redis.Close())
	}
	return err
}
