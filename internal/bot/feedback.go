package bot

import (
	"context"
	"errors"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/internal/notifier"
	"motivator/internal/transport/telegram/router"
	logx "motivator/pkg/logx"
)

// handleFeedback stores the first rating of a delivered message. The answer
// is shown as a callback toast.
func (b *Bot) handleFeedback(ctx context.Context, req *router.Request) error {
	score, ok := notifier.FeedbackScore(req.Callback.Data)
	if !ok {
		return nil
	}
	lang := b.language(ctx, req)
	rec, err := b.d.Store.RecordEngagement(ctx, req.Chat.ChatID, req.Callback.MessageID, score, b.d.Now())
	switch {
	case errors.Is(err, domain.ErrAlreadyRated):
		req.Answer = tr(lang, txtFeedbackDuplicate)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		req.Answer = tr(lang, txtFeedbackExpired)
		return nil
	case err != nil:
		b.fail(ctx, req, lang, err)
		return err
	}

	req.Logger.Info("feedback recorded",
		logx.Int("message_id", rec.MessageID),
		logx.Float64("score", score),
		logx.String("kind", string(rec.Kind)),
	)
	b.publish(eventbus.TypeFeedback, FeedbackEvent{
		UserID:    rec.UserID,
		MessageID: rec.MessageID,
		Score:     score,
		Kind:      string(rec.Kind),
		At:        b.d.Now(),
	})
	req.Answer = tr(lang, feedbackThanks(score))
	return nil
}

func feedbackThanks(score float64) textKey {
	switch score {
	case domain.EngagementLove:
		return txtFeedbackLove
	case domain.EngagementLike:
		return txtFeedbackLike
	default:
		return txtFeedbackDislike
	}
}
