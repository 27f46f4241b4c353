package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/core/services"
	"streamlink/internal/infrastructure/monitoring"
	"streamlink/internal/infrastructure/relay"
	"streamlink/internal/infrastructure/webrtc"
	"streamlink/pkg/config"
	"streamlink/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Interactive chat client. Lines typed on stdin become chat messages;
// "/interrupt" cancels the remote response in flight.
func main() {
	configPath := flag.String("config", "", "path to YAML config")
	relayURL := flag.String("url", "", "relay WebSocket URL (relay backend)")
	signalURL := flag.String("signal", "", "HTTP signaling endpoint (webrtc backend)")
	room := flag.String("room", "", "room name (webrtc backend)")
	token := flag.String("token", "", "session token")
	metricsAddr := flag.String("metrics", ":9091", "prometheus metrics listen address")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	zlog := logger.New(cfg.Logging.Level)
	defer zlog.Sync()

	var collector *monitoring.Collector
	if cfg.Monitoring.PrometheusEnabled {
		collector = monitoring.NewCollector(prometheus.DefaultRegisterer)
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				zlog.Sugar().Warnw("metrics server stopped", "error", err)
			}
		}()
	}

	var controllers ports.ControllerSet
	var creds domain.Credentials
	switch cfg.Backend.Name {
	case "webrtc":
		signaler := &webrtc.HTTPSignaler{Endpoint: *signalURL}
		controllers = webrtc.NewBackend(webrtc.ConfigFromApp(cfg), signaler, zlog).Controllers()
		creds = &domain.WebRTCCredentials{Room: *room, Token: *token}
	case "relay":
		controllers = relay.NewBackend(relay.ConfigFromApp(cfg), zlog).Controllers()
		creds = &domain.RelayCredentials{URL: *relayURL, Token: *token}
	default:
		log.Fatalf("unknown backend %q", cfg.Backend.Name)
	}

	provider := services.NewProviderService(controllers, cfg, collector, zlog)
	defer provider.Cleanup()

	unsubscribe := provider.Subscribe(func(state domain.StreamingState) {
		if state.Err != nil {
			fmt.Printf("! %v\n", state.Err)
		}
	})
	defer unsubscribe()

	provider.OnMessage(string(domain.MessageTypeChatResponse), func(_ string, payload json.RawMessage) {
		var resp domain.ChatResponsePayload
		if err := json.Unmarshal(payload, &resp); err != nil {
			return
		}
		fmt.Printf("< %s\n", resp.Text)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := provider.Connect(ctx, creds); err != nil {
		log.Fatalf("connect: %v", err)
	}
	fmt.Println("connected, type messages (Ctrl-C to quit)")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var err error
			if line == "/interrupt" {
				err = provider.SendInterrupt(ctx)
			} else {
				err = provider.SendMessage(ctx, line)
			}
			if err != nil {
				fmt.Printf("! send: %v\n", err)
			}
		}
		stop()
	}()

	<-ctx.Done()
	if err := provider.Disconnect(context.Background()); err != nil {
		zlog.Sugar().Warnw("disconnect", "error", err)
	}
}
