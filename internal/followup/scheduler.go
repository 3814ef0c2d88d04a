// Package followup implements the durable re-engagement scheduler (§4.E):
// a Postgres table of FollowUp rows is the source of truth; a poller claims
// due rows with SELECT ... FOR UPDATE SKIP LOCKED (internal/store/postgres)
// and drives each one through a durable workflow so a crash mid-send can
// never double-fire a nudge.
package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/llmclient"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/humanizer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
)

const (
	activityLoadFollowUp = "LoadFollowUp"
	activityLoadLead     = "LoadLead"
	activityMarkSkipped  = "MarkSkipped"
	activityReschedule   = "Reschedule"
	activityCompose      = "ComposeNudge"
	activitySend         = "SendNudge"
	activityMarkFailed   = "MarkFailed"
	activityFinalize     = "Finalize"
)

// Config holds the scheduler's tunables (§6 config table).
type Config struct {
	PollInterval  time.Duration // >= 60s per §4.E
	BatchSize     int
	BusinessHours BusinessHours
	TaskQueue     string
	PersonaModel  string
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  60 * time.Second,
		BatchSize:     50,
		BusinessHours: DefaultBusinessHours(),
		TaskQueue:     "sdr-followups",
	}
}

// Scheduler wires the engine abstraction to the store, the outbound
// humanizer, and a lightweight persona model for generated nudges.
type Scheduler struct {
	store         *store.Store
	engine        engine.Engine
	humanizer     *humanizer.Humanizer
	gateway       humanizer.Gateway
	persona       llmclient.Client
	businessHours BusinessHours
	cfg           Config
	log           *zap.Logger
}

func New(st *store.Store, eng engine.Engine, hz *humanizer.Humanizer, gw humanizer.Gateway, persona llmclient.Client, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.PollInterval < 60*time.Second {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Scheduler{
		store: st, engine: eng, humanizer: hz, gateway: gw, persona: persona,
		businessHours: cfg.BusinessHours, cfg: cfg, log: log,
	}
}

// Register binds the workflow and its activities to the engine. Must be
// called once before Run.
func (s *Scheduler) Register(ctx context.Context) error {
	if err := s.engine.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: WorkflowName, TaskQueue: s.cfg.TaskQueue, Handler: s.runHop,
	}); err != nil {
		return err
	}

	activities := []engine.ActivityDefinition{
		{Name: activityLoadFollowUp, Handler: s.activityLoadFollowUp},
		{Name: activityLoadLead, Handler: s.activityLoadLead},
		{Name: activityMarkSkipped, Handler: s.activityMarkSkipped},
		{Name: activityReschedule, Handler: s.activityReschedule},
		{Name: activityCompose, Handler: s.activityCompose},
		{Name: activitySend, Handler: s.activitySend},
		{Name: activityMarkFailed, Handler: s.activityMarkFailedFn},
		{Name: activityFinalize, Handler: s.activityFinalize},
	}
	for _, a := range activities {
		if err := s.engine.RegisterActivity(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Run polls for due FollowUp rows every cfg.PollInterval and starts one
// durable workflow per row (§4.E "a single worker wakes every >= 60s").
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.store.FollowUps.DuePending(ctx, time.Now(), s.cfg.BatchSize)
	if err != nil {
		s.log.Error("followup: poll failed", zap.Error(err))
		return
	}
	for _, row := range due {
		if _, err := s.engine.StartWorkflow(ctx, engine.WorkflowStartRequest{
			ID:        "followup-" + row.ID,
			Workflow:  WorkflowName,
			TaskQueue: s.cfg.TaskQueue,
			Input:     hopInput{FollowUpID: row.ID},
		}); err != nil {
			s.log.Error("followup: start workflow failed", zap.String("follow_up_id", row.ID), zap.Error(err))
		}
	}
}

// ScheduleFirstTouch inserts, at abandonment time, the first-hop follow-up
// an abandoned session triggers; the row falls due after the reminder
// delay (30 minutes).
func (s *Scheduler) ScheduleFirstTouch(ctx context.Context, leadID string) error {
	_, err := s.store.FollowUps.Insert(ctx, &domain.FollowUp{
		LeadID:       leadID,
		Type:         domain.FollowUpReminder,
		ScheduledFor: time.Now().Add(domain.FollowUpReminder.Delay()),
		Status:       domain.FollowUpPending,
	})
	return err
}

// --- activities: all I/O lives here, never in runHop ---

func (s *Scheduler) activityLoadFollowUp(ctx context.Context, input any) (any, error) {
	id, _ := input.(string)
	row, err := s.store.FollowUps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return *row, nil
}

func (s *Scheduler) activityLoadLead(ctx context.Context, input any) (any, error) {
	leadID, _ := input.(string)
	lead, err := s.store.Leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, fmt.Errorf("followup: lead %q not found", leadID)
	}
	return *lead, nil
}

func (s *Scheduler) activityMarkSkipped(ctx context.Context, input any) (any, error) {
	id, _ := input.(string)
	return nil, s.store.FollowUps.MarkSkipped(ctx, id)
}

func (s *Scheduler) activityReschedule(ctx context.Context, input any) (any, error) {
	in, _ := input.(rescheduleInput)
	return nil, s.store.FollowUps.Reschedule(ctx, in.FollowUpID, in.NewTime)
}

// activityCompose implements §4.E step 3: use message_override, or ask the
// persona model for a short nudge. Either text is truncated to two
// sentences.
func (s *Scheduler) activityCompose(ctx context.Context, input any) (any, error) {
	in, _ := input.(composeInput)
	if in.FollowUp.MessageOverride != "" {
		return truncateToSentences(in.FollowUp.MessageOverride, 2), nil
	}

	resp, err := s.persona.Generate(ctx, llmclient.Request{
		SystemPrompt: "Você escreve lembretes curtos de WhatsApp para uma vendedora de energia solar. No máximo 2 frases, tom cordial.",
		Messages: []llmclient.Message{{
			Role: llmclient.RoleUser,
			Text: fmt.Sprintf("Escreva um lembrete de follow-up tipo %q para %s.", in.FollowUp.Type, nameOrFallback(in.Lead.Name)),
		}},
	})
	if err != nil {
		return nil, err
	}
	return truncateToSentences(resp.Text, 2), nil
}

// truncateToSentences bounds nudge text to its first n sentences (§9's
// "length-bounded at composition time (truncate to first two sentences)"),
// cutting right after the nth terminator. Text with fewer than n sentences
// is returned unchanged.
func truncateToSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || text == "" {
		return text
	}
	count := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?':
			count++
			if count == n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return text
}

func nameOrFallback(name string) string {
	if name == "" {
		return "o lead"
	}
	return name
}

func (s *Scheduler) activitySend(ctx context.Context, input any) (any, error) {
	in, _ := input.(sendInput)
	plan := s.humanizer.Plan(in.Text, humanizer.StateNeutral, false)
	return nil, humanizer.Execute(ctx, plan, in.Phone, s.gateway)
}

func (s *Scheduler) activityMarkFailedFn(ctx context.Context, input any) (any, error) {
	in, _ := input.(markFailedInput)
	return nil, s.store.FollowUps.MarkFailed(ctx, in.FollowUpID, in.Cause)
}

// activityFinalize implements §4.E steps 5/6: mark executed, chain the next
// cadence hop if one exists.
func (s *Scheduler) activityFinalize(ctx context.Context, input any) (any, error) {
	in, _ := input.(finalizeInput)
	now := time.Now()
	if err := s.store.FollowUps.MarkExecuted(ctx, in.FollowUp.ID, now); err != nil {
		return nil, err
	}

	nextType, ok := in.FollowUp.Type.NextType()
	if !ok {
		return nil, nil
	}
	_, err := s.store.FollowUps.Insert(ctx, &domain.FollowUp{
		LeadID:       in.FollowUp.LeadID,
		Type:         nextType,
		ScheduledFor: now.Add(nextType.Delay()),
		Status:       domain.FollowUpPending,
	})
	return nil, err
}
