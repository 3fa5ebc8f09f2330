package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aikonstudios/aikon/internal/chat"
	"github.com/aikonstudios/aikon/internal/config"
	"github.com/aikonstudios/aikon/internal/genai"
	"github.com/aikonstudios/aikon/internal/httpapi"
	"github.com/aikonstudios/aikon/internal/live"
	"github.com/aikonstudios/aikon/internal/observability"
	"github.com/aikonstudios/aikon/internal/persona"
	"github.com/aikonstudios/aikon/internal/reliability"
	"github.com/aikonstudios/aikon/internal/session"
	"github.com/aikonstudios/aikon/internal/store"
	"github.com/aikonstudios/aikon/internal/tasks"
	"github.com/aikonstudios/aikon/internal/tools"
)

const storeConnectAttempts = 5

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := connectStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer st.Close()

	adapter, err := genai.NewAdapter(genai.Config{
		Mode:    cfg.GenAIAdapterMode,
		HTTPURL: cfg.GenAIHTTPURL,
		APIKey:  cfg.GenAIAPIKey,
		Model:   cfg.GenAIModel,
	})
	if err != nil {
		log.Fatalf("genai adapter init failed: %v", err)
	}

	var weather tools.WeatherClient = tools.NewMockWeatherClient()
	if strings.TrimSpace(cfg.OpenWeatherAPIKey) != "" {
		weather = tools.NewHTTPWeatherClient(cfg.OpenWeatherURL, cfg.OpenWeatherAPIKey)
		log.Printf("weather client: openweather")
	} else {
		log.Printf("weather client: mock")
	}

	var mailer tools.EmailSender = tools.NewMockEmailSender()
	if strings.TrimSpace(cfg.MailEndpoint) != "" {
		mailer = tools.NewHTTPEmailSender(cfg.MailEndpoint, cfg.MailAuthToken)
		log.Printf("email sender: http")
	} else {
		log.Printf("email sender: mock")
	}

	var generator tools.Generator = tools.NewMockGenerator()
	if strings.TrimSpace(cfg.GeneratorURL) != "" {
		generator = tools.NewHTTPGenerator(cfg.GeneratorURL, cfg.GeneratorAPIKey)
		log.Printf("generator: http")
	} else {
		log.Printf("generator: mock")
	}

	dispatcher := tools.NewDispatcher(weather, mailer, generator, cfg.ToolDispatchTimeout)

	var endpoint live.Endpoint = live.NewMockEndpoint()
	if strings.TrimSpace(cfg.LiveEndpointURL) != "" {
		endpoint = live.NewWSEndpoint(live.WSEndpointConfig{
			BaseURL: cfg.LiveEndpointURL,
			APIKey:  cfg.LiveEndpointAPIKey,
		})
		log.Printf("live endpoint: websocket")
	} else {
		log.Printf("live endpoint: mock")
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	personas := persona.NewRegistry(st)
	taskService := tasks.NewService(st)

	orchestrator := chat.NewOrchestrator(
		sessions,
		adapter,
		st,
		dispatcher,
		personas,
		metrics,
		cfg.StreamMinChars,
	)
	bridge := live.NewBridge(endpoint, sessions, metrics)

	api := httpapi.New(cfg, sessions, orchestrator, bridge, st, personas, taskService, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func connectStore(ctx context.Context, databaseURL string) (store.Store, error) {
	var lastErr error
	for attempt := 0; attempt < storeConnectAttempts; attempt++ {
		st, err := store.New(ctx, databaseURL)
		if err == nil {
			return st, nil
		}
		lastErr = err
		wait := reliability.ExponentialBackoff(attempt, 500*time.Millisecond, 5*time.Second)
		log.Printf("store connect attempt %d failed: %v (retrying in %s)", attempt+1, err, wait)
		time.Sleep(wait)
	}
	return nil, lastErr
}
