package humanizer

import (
	"context"
	"time"
)

// Gateway is the narrow outbound surface Execute needs: show/hide a typing
// indicator and send a text chunk. internal/gateway's WhatsApp client
// satisfies this without humanizer importing it, keeping the dependency
// one-directional.
type Gateway interface {
	SetTyping(ctx context.Context, phone string, on bool) error
	SendText(ctx context.Context, phone, text string) error
}

// Execute implements §4.A's execute(plan, phone, gateway): for each chunk,
// sleep pre_pause, signal typing for typing_duration, sleep typing_duration,
// send text, sleep post_pause. Each send is idempotent from the humanizer's
// view — on a gateway error, Execute stops and returns the error for the
// caller to decide whether to retry; it never retries internally.
func Execute(ctx context.Context, plan ChunkPlan, phone string, gw Gateway) error {
	for _, chunk := range plan.Chunks {
		if err := sleepCtx(ctx, chunk.PrePause); err != nil {
			return err
		}

		if err := gw.SetTyping(ctx, phone, true); err != nil {
			return err
		}
		if err := sleepCtx(ctx, chunk.TypingDuration); err != nil {
			_ = gw.SetTyping(ctx, phone, false)
			return err
		}
		_ = gw.SetTyping(ctx, phone, false)

		if err := gw.SendText(ctx, phone, chunk.Text); err != nil {
			return err
		}

		if err := sleepCtx(ctx, chunk.PostPause); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
