package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"motivator/internal/domain"
	"motivator/internal/eventbus"
	"motivator/internal/schedule"
	kit "motivator/internal/transport"
	logx "motivator/pkg/logx"
)

const historyLimit = 300

// Service implements schedule.Messenger. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	adapter kit.Adapter
	bus     eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	// onGone is called when a recipient blocked the bot.
	onGone func(ctx context.Context, userID int64)

	now func() time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

var _ schedule.Messenger = (*Service)(nil)

func New(cfg Config, adapter kit.Adapter, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		adapter: adapter,
		log:     log,
		bus:     bus,
		now:     time.Now,
	}
	s.applyLocked(cfg)
	return s
}

// OnRecipientGone installs the hook run when a user blocked the bot.
func (s *Service) OnRecipientGone(fn func(ctx context.Context, userID int64)) {
	s.mu.Lock()
	s.onGone = fn
	s.mu.Unlock()
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultConfig().RatePerSec
	}
	s.cfg = cfg
	// burst = rate, so a tick's first sends go out immediately.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Deliver sends one content item in a single attempt. A failure is left to
// the next tick's draw; resending here could duplicate a message Telegram
// already accepted.
func (s *Service) Deliver(ctx context.Context, userID int64, item domain.ContentItem) (schedule.Receipt, error) {
	s.mu.Lock()
	opt := &kit.SendOptions{ParseMode: s.cfg.ParseMode}
	if s.cfg.FeedbackButtons {
		opt.Buttons = FeedbackKeyboard()
	}
	s.mu.Unlock()
	return s.send(ctx, userID, KindContent, item.ID, Format(item), opt)
}

// Remind sends the daily mood check-in text.
func (s *Service) Remind(ctx context.Context, userID int64, text string) (schedule.Receipt, error) {
	s.mu.Lock()
	opt := &kit.SendOptions{ParseMode: s.cfg.ParseMode}
	s.mu.Unlock()
	return s.send(ctx, userID, KindReminder, 0, text, opt)
}

func (s *Service) send(ctx context.Context, userID int64, kind Kind, contentID int64, text string, opt *kit.SendOptions) (schedule.Receipt, error) {
	s.mu.Lock()
	lim := s.limiter
	ad := s.adapter
	onGone := s.onGone
	s.mu.Unlock()

	if ad == nil {
		return schedule.Receipt{}, &domain.DeliveryError{UserID: userID, Err: errors.New("no transport")}
	}

	to := kit.ChatTarget{ChatID: userID}
	err := lim.Wait(ctx)
	if err == nil {
		var ref kit.MessageRef
		if ref, err = ad.SendText(ctx, to, text, opt); err == nil {
			r := schedule.Receipt{MessageID: ref.MessageID, At: s.now()}
			s.record(HistoryItem{At: r.At, UserID: userID, Kind: kind, ContentID: contentID, MessageID: ref.MessageID})
			s.publish(DeliveryEvent{UserID: userID, Kind: kind, ContentID: contentID, MessageID: ref.MessageID, At: r.At})
			return r, nil
		}
		if errors.Is(err, kit.ErrRecipientGone) && onGone != nil {
			onGone(context.WithoutCancel(ctx), userID)
		}
	}
	err = ctxErr(ctx, err)

	var ra *kit.RetryAfterError
	if errors.As(err, &ra) {
		s.log.Warn("telegram flood wait", logx.Int64("user", userID), logx.Duration("after", ra.After))
	}

	at := s.now()
	s.record(HistoryItem{At: at, UserID: userID, Kind: kind, ContentID: contentID, Err: err.Error()})
	s.publish(DeliveryEvent{UserID: userID, Kind: kind, ContentID: contentID, At: at, Error: err.Error()})
	return schedule.Receipt{}, &domain.DeliveryError{
		UserID:  userID,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// ctxErr prefers the context's error so deadlines are reported as timeouts.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

func (s *Service) publish(ev DeliveryEvent) {
	if s.bus == nil {
		return
	}
	typ := eventbus.TypeDelivered
	if ev.Error != "" {
		typ = eventbus.TypeDeliveryFailed
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}

// History returns recent deliveries, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) record(it HistoryItem) {
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.hmu.Unlock()
}
