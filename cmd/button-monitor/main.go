// Command button-monitor debounces a push button on a GPIO pin and publishes
// presses and releases to MQTT.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/debounced-button/internal/config"
	"github.com/sweeney/debounced-button/internal/gpio"
	"github.com/sweeney/debounced-button/internal/logic"
	"github.com/sweeney/debounced-button/internal/metrics"
	"github.com/sweeney/debounced-button/internal/mqtt"
	"github.com/sweeney/debounced-button/internal/status"
	"github.com/sweeney/debounced-button/internal/web"
)

func main() {
	cfg := config.Default()
	cfg.Bind(pflag.CommandLine)
	pflag.Parse()

	if err := cfg.Validate(); err != nil {
		Exitf("Invalid configuration: %v\n", err)
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// Exitf prints the given error message and exits with code 1.
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}

func run(cfg config.Config, log zerolog.Logger) error {
	polarity, err := cfg.ParsePolarity()
	if err != nil {
		return err
	}
	pull, err := gpio.ParsePull(cfg.Pull)
	if err != nil {
		return err
	}

	reader, err := gpio.Open(gpio.Backend(cfg.Backend), cfg.Chip, cfg.Pin, pull)
	if err != nil {
		return errors.Wrap(err, "init gpio")
	}
	defer reader.Close()

	// Print state mode
	if cfg.PrintState {
		l, err := reader.Read()
		if err != nil {
			return errors.Wrap(err, "read gpio")
		}
		fmt.Printf("pin %d: level=%s %s\n", cfg.Pin, l, stateString(l, polarity))
		return nil
	}

	if cfg.PollSlowerThanDebounce() {
		log.Warn().Dur("poll", cfg.Poll).Dur("debounce", cfg.Debounce).Msg("poll interval does not resolve the debounce interval")
	}

	m := metrics.New(polarity)
	sampler := gpio.NewSampler(reader, polarity.RestLevel(), log, m.ReadError)
	button := logic.NewButton(cfg.Pin, sampler,
		logic.WithPolarity(polarity),
		logic.WithDebounce(cfg.DebounceMs()),
		logic.WithSink(transitionSink(log, m)),
	)

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Discard{}
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, cfg.Pin, log)
		if err != nil {
			return errors.Wrap(err, "init mqtt")
		}
		publisher = p
	}
	defer publisher.Close()

	startTime := time.Now()
	tracker := status.NewTracker(startTime, status.Config{
		Pin:         cfg.Pin,
		Backend:     cfg.Backend,
		Polarity:    polarity.String(),
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.DebounceMs(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(button.State(), button.Level(), time.Time{}, logic.EventCounts{})
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	}

	l := &loop{
		log:        log,
		monitor:    logic.NewMonitor(button, startTime),
		sampler:    sampler,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    m,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}

	log.Info().
		Int("pin", cfg.Pin).
		Str("backend", cfg.Backend).
		Str("polarity", polarity.String()).
		Dur("poll", cfg.Poll).
		Dur("debounce", cfg.Debounce).
		Str("broker", cfg.Broker).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return l.run(ctx, ticker.C, sigCh)
	})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler())
		g.Go(func() error {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "http server")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	return g.Wait()
}

// transitionSink logs every accepted transition and feeds it to the metrics.
func transitionSink(log zerolog.Logger, m *metrics.Metrics) logic.Sink {
	return logic.SinkFunc(func(t logic.Transition) {
		log.Debug().Int("pin", t.Pin).Uint8("level", uint8(t.Level)).Int64("at_ms", t.At).Msg("transition accepted")
		m.Transition(t)
	})
}

// loop owns the monitor and everything it reports to.
type loop struct {
	log        zerolog.Logger
	monitor    *logic.Monitor
	sampler    *gpio.Sampler
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	heartbeat  time.Duration
	now        func() time.Time
}

// run polls the button on every tick until a terminating signal arrives or
// ctx is cancelled. SIGHUP resets the debouncer.
func (l *loop) run(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case <-ctx.Done():
			l.shutdown("CANCELLED")
			return nil

		case s := <-sig:
			if s == syscall.SIGHUP {
				l.monitor.Reset()
				if l.metrics != nil {
					l.metrics.Reset(l.monitor.Button().Pin())
				}
				l.updateTracker()
				l.log.Info().Msg("received SIGHUP, debouncer reset")
				continue
			}
			l.log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			l.shutdown(signalName)
			return nil

		case <-tick:
			l.poll()
		}
	}
}

func (l *loop) poll() {
	t := l.now()
	events := l.monitor.Process(t)
	if l.metrics != nil {
		l.metrics.Poll()
	}

	for _, event := range events {
		l.log.Info().Str("event", string(event.Type)).Int("pin", event.Pin).Str("state", string(event.State)).Msg("event")
		if err := l.publisher.Publish(event); err != nil {
			// Don't crash on publish failure
			l.log.Warn().Err(err).Msg("publish error")
		}
	}

	l.updateTracker()

	if hbData := l.monitor.CheckHeartbeat(t, l.heartbeat); hbData != nil {
		l.log.Info().
			Dur("uptime", hbData.Uptime).
			Int("pressed", hbData.Counts.Presses).
			Int("released", hbData.Counts.Releases).
			Msg("heartbeat")

		hbEvent := mqtt.SystemEvent{
			Timestamp: hbData.Timestamp,
			Event:     "HEARTBEAT",
		}
		if l.tracker != nil {
			if net := readNetworkInfo(); net != nil {
				l.tracker.SetNetwork(net)
			}
			hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
		}
		if err := l.publisher.PublishSystem(hbEvent); err != nil {
			l.log.Warn().Err(err).Msg("heartbeat publish error")
		}
	}
}

// updateTracker copies the current state into the status tracker for HTTP consumers.
func (l *loop) updateTracker() {
	if l.tracker == nil {
		return
	}
	b := l.monitor.Button()
	l.tracker.Update(b.State(), b.Level(), l.monitor.LastChange(), l.monitor.EventCountsSnapshot())
	if l.sampler != nil {
		l.tracker.SetReadErrors(l.sampler.Errors())
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) shutdown(reason string) {
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		l.updateTracker()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warn().Err(err).Msg("failed to publish shutdown event")
	} else {
		l.log.Info().Msg("published shutdown event")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(l logic.Level, p logic.Polarity) logic.State {
	if l == p.ActiveLevel() {
		return logic.StateDown
	}
	return logic.StateUp
}
