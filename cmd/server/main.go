// Command server wires the full SDR conversation engine: webhook receiver
// -> buffer -> session manager -> context builder -> agent orchestrator ->
// humanizer, plus the out-of-band follow-up scheduler, behind one gin HTTP
// server and a background worker pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/llmclient"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/policy"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/toolcatalog"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/buffer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/calendar"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/config"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/convcontext"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/crm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/dedup"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup"
	followupengine "github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine/inmem"
	followuptemporal "github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine/temporal"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/gateway"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/humanizer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/media"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/session"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store/postgres"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/telemetry"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.Production)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := postgres.Migrate("internal/store/postgres/migrations", cfg.PostgresDSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st, pool, err := postgres.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer pool.Close()

	dedupCache := newDedupCache(cfg, logger)

	gw := gateway.New(cfg.GatewayURL, cfg.GatewayKey, cfg.InstanceName)
	crmClient := crm.New(cfg.CRMBaseURL, cfg.CRMAPIKey)
	calendarClient := calendar.New(cfg.CalendarBaseURL, cfg.CalendarAPIKey)
	mediaResolver := media.New(cfg.MediaBaseURL, cfg.MediaAPIKey)

	locale, err := humanizer.LoadLocale("internal/humanizer/locales/" + cfg.LocaleBundle + ".yaml")
	if err != nil {
		return fmt.Errorf("humanizer locale: %w", err)
	}
	hzCfg := humanizer.DefaultConfig()
	hzCfg.WPMMin, hzCfg.WPMMax = cfg.TypingWPMMin, cfg.TypingWPMMax
	hzCfg.ChunkWordMin, hzCfg.ChunkWordMax = cfg.ChunkWordMin, cfg.ChunkWordMax
	humanizerEngine := humanizer.New(hzCfg, locale, time.Now().UnixNano())

	primaryModel := llmclient.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.ReasoningModel, 1024)
	personaModel := llmclient.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	catalog := toolcatalog.NewCatalog()
	toolcatalog.RegisterAll(catalog, toolcatalog.Dependencies{
		Gateway:  gw,
		CRM:      crmClient,
		Calendar: calendarClient,
		Store:    st,
		Media:    mediaResolver,
		Analyzer: noopAnalyzer{},
	})

	retryer := policy.NewRetryer(policy.DefaultBackoff(), time.Now().UnixNano())
	sendGate := policy.NewSendGate(dedupCache)
	orchestrator := agent.New(primaryModel, catalog, retryer, sendGate, agent.Config{
		MaxToolHops:  cfg.MaxToolHops,
		SystemPrompt: systemPrompt,
	}, logger)

	ctxBuilder := convcontext.NewBuilder(convcontext.QualificationThresholds{
		CommercialMinBill:  cfg.QualificationMinBillCommercial,
		ResidentialMinBill: cfg.QualificationMinBillResidential,
	})

	followupScheduler, err := newFollowUpScheduler(ctx, cfg, st, humanizerEngine, gw, personaModel, logger)
	if err != nil {
		return fmt.Errorf("followup scheduler: %w", err)
	}

	sessions := session.New(session.Timeouts{
		SessionTimeout:     cfg.SessionTimeout,
		IdleWarning:        cfg.IdleWarning,
		MaxSessionDuration: cfg.MaxSessionDuration,
		MaxMessages:        cfg.MaxMessagesPerSession,
	}, st, logger, func(ctx context.Context, leadID, phone string) {
		if err := followupScheduler.ScheduleFirstTouch(ctx, leadID); err != nil {
			logger.Error("schedule first-touch follow-up failed", zap.Error(err), telemetry.PhoneField(phone))
		}
	})

	engine := &turnEngine{
		store:      st,
		sessions:   sessions,
		builder:    ctxBuilder,
		agent:      orchestrator,
		humanizer:  humanizerEngine,
		gateway:    gw,
		log:        logger,
	}

	buf, err := buffer.New(buffer.Config{
		Window:      cfg.BufferWindow,
		PerPhoneCap: cfg.BufferCap,
		DedupSize:   1000,
	}, engine.handleTurn, logger)
	if err != nil {
		return fmt.Errorf("buffer: %w", err)
	}

	webhookHandler := webhook.New(webhook.Config{
		Secret:     cfg.WebhookSecret,
		AllowedIPs: cfg.WebhookAllowlistIPs,
	}, buf, logger)

	go sessions.Run(ctx, 60*time.Second)
	go followupScheduler.Run(ctx)

	if !cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/webhook", webhookHandler.Handle)
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("sdr conversation engine listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	sessions.Stop()
	return nil
}

const systemPrompt = `Você é uma SDR de uma empresa de energia solar, conversando via WhatsApp.
Seja cordial, objetiva, e conduza o lead pelo funil de qualificação. Use as ferramentas
disponíveis para consultar e atualizar o CRM, agendar reuniões e registrar o progresso.`

func newDedupCache(cfg *config.Config, logger *zap.Logger) dedup.Cache {
	if cfg.RedisAddr == "" {
		c, err := dedup.NewLRUCache(10_000)
		if err != nil {
			logger.Fatal("lru dedup cache", zap.Error(err))
		}
		return c
	}
	return dedup.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
}

func newFollowUpScheduler(ctx context.Context, cfg *config.Config, st *store.Store, hz *humanizer.Humanizer, gw humanizer.Gateway, persona llmclient.Client, logger *zap.Logger) (*followup.Scheduler, error) {
	var eng followupengine.Engine
	if cfg.Production {
		temporalClient, err := client.Dial(client.Options{HostPort: cfg.TemporalHostPort, Namespace: cfg.TemporalNamespace})
		if err != nil {
			return nil, fmt.Errorf("temporal dial: %w", err)
		}
		temporalEngine := followuptemporal.New(followuptemporal.Options{Client: temporalClient, TaskQueue: cfg.TemporalTaskQueue})
		eng = temporalEngine
	} else {
		eng = inmem.New()
	}

	schedCfg := followup.DefaultConfig()
	schedCfg.TaskQueue = cfg.TemporalTaskQueue
	scheduler := followup.New(st, eng, hz, gw, persona, schedCfg, logger)
	if err := scheduler.Register(ctx); err != nil {
		return nil, err
	}
	if te, ok := eng.(*followuptemporal.Engine); ok {
		if err := te.StartWorker(); err != nil {
			return nil, fmt.Errorf("temporal worker start: %w", err)
		}
	}
	return scheduler, nil
}

// noopAnalyzer is the unwired media-analysis seam (see DESIGN.md): no
// vision/ASR/document provider is configured, so every call surfaces as a
// tool-domain error the orchestrator can recover from and continue the
// conversation without media content (§7).
type noopAnalyzer struct{}

func (noopAnalyzer) AnalyzeImage(context.Context, []byte) (string, error) {
	return "", domain.NewError(domain.ErrToolDomain, errors.New("media analysis provider not configured"))
}

func (noopAnalyzer) TranscribeAudio(context.Context, []byte) (string, error) {
	return "", domain.NewError(domain.ErrToolDomain, errors.New("media analysis provider not configured"))
}

func (noopAnalyzer) ExtractDocumentText(context.Context, []byte) (string, error) {
	return "", domain.NewError(domain.ErrToolDomain, errors.New("media analysis provider not configured"))
}
