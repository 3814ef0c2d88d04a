package followup

import (
	"fmt"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine"
)

// WorkflowName is the logical name the follow-up hop is registered under.
const WorkflowName = "follow_up_hop"

// hopInput is what the scheduler hands to one workflow execution: just the
// FollowUp row id — everything else is (re)loaded by activities so a replay
// always sees current state, never a stale copy captured at start time.
type hopInput struct {
	FollowUpID string
}

type hopOutcome struct {
	Status domain.FollowUpStatus
}

// runHop implements §4.E's execution loop for one FollowUp row as an
// engine.WorkflowFunc: deterministic control flow, all I/O pushed into
// activities. Grounded on goa-ai's workflowLoop shape — call a step,
// inspect its result, branch, repeat — generalized here from "call model,
// run tools" to "load lead, gate, compose, send, finalize".
func (s *Scheduler) runHop(wf engine.WorkflowContext, input any) (any, error) {
	in, ok := input.(hopInput)
	if !ok {
		return nil, fmt.Errorf("followup: unexpected workflow input %T", input)
	}

	var row domain.FollowUp
	if err := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{Name: activityLoadFollowUp, Input: in.FollowUpID}, &row); err != nil {
		return nil, err
	}

	var lead domain.Lead
	if err := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{Name: activityLoadLead, Input: row.LeadID}, &lead); err != nil {
		return nil, err
	}

	// Step 1: a lead that already booked or finished skips the nudge.
	if lead.Stage == domain.StageScheduling || lead.MetaBool("meeting_scheduled") || lead.Stage == domain.StageQualified {
		if err := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{Name: activityMarkSkipped, Input: row.ID}, nil); err != nil {
			return nil, err
		}
		return hopOutcome{Status: domain.FollowUpSkipped}, nil
	}

	// Step 2: business-hours gate. Deterministic — uses the workflow's
	// replay-safe clock, no I/O — so it's safe to evaluate inline rather
	// than as an activity.
	if next, ok := s.businessHours.NextWindowStart(wf.Now()); ok {
		if err := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{
			Name:  activityReschedule,
			Input: rescheduleInput{FollowUpID: row.ID, NewTime: next},
		}, nil); err != nil {
			return nil, err
		}
		return hopOutcome{Status: domain.FollowUpPending}, nil
	}

	// Step 3: compose the nudge text.
	var text string
	if err := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{
		Name:  activityCompose,
		Input: composeInput{FollowUp: row, Lead: lead},
	}, &text); err != nil {
		return nil, err
	}

	// Step 4: send it.
	sendErr := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{
		Name:  activitySend,
		Input: sendInput{Phone: lead.Phone, Text: text},
	}, nil)
	if sendErr != nil {
		_ = wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{
			Name:  activityMarkFailed,
			Input: markFailedInput{FollowUpID: row.ID, Cause: sendErr.Error()},
		}, nil)
		return hopOutcome{Status: domain.FollowUpFailed}, nil
	}

	// Step 5/6: mark executed, schedule the next hop in the cadence if any.
	if err := wf.ExecuteActivity(wf.Context(), engine.ActivityRequest{
		Name:  activityFinalize,
		Input: finalizeInput{FollowUp: row},
	}, nil); err != nil {
		return nil, err
	}
	return hopOutcome{Status: domain.FollowUpExecuted}, nil
}

type rescheduleInput struct {
	FollowUpID string
	NewTime    time.Time
}

type composeInput struct {
	FollowUp domain.FollowUp
	Lead     domain.Lead
}

type sendInput struct {
	Phone string
	Text  string
}

type markFailedInput struct {
	FollowUpID string
	Cause      string
}

type finalizeInput struct {
	FollowUp domain.FollowUp
}

// BusinessHours is the §4.E business-hours gate: Start to End, Monday to
// Friday, in Location. DefaultBusinessHours is 08:00-18:00 in UTC.
type BusinessHours struct {
	Start    int // hour, 0-23
	End      int // hour, 0-23
	Location *time.Location
}

func DefaultBusinessHours() BusinessHours {
	return BusinessHours{Start: 8, End: 18, Location: time.UTC}
}

// NextWindowStart reports whether now falls outside the business-hours
// window and, if so, when the next window opens.
func (b BusinessHours) NextWindowStart(now time.Time) (time.Time, bool) {
	local := now.In(b.Location)
	if local.Weekday() >= time.Monday && local.Weekday() <= time.Friday &&
		local.Hour() >= b.Start && local.Hour() < b.End {
		return time.Time{}, false
	}

	candidate := time.Date(local.Year(), local.Month(), local.Day(), b.Start, 0, 0, 0, b.Location)
	if local.Hour() >= b.End {
		candidate = candidate.AddDate(0, 0, 1)
	}
	for candidate.Weekday() == time.Saturday || candidate.Weekday() == time.Sunday {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.In(time.UTC), true
}
