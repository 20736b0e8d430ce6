package router

import (
	"context"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rtsup "motivator/internal/runtime/supervisor"
	kit "motivator/internal/transport"
	logx "motivator/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Aliases     []string
	Description string // shown in the Telegram command menu
	Access      Access
	Timeout     time.Duration // 0 uses Options.DefaultTimeout
	Hidden      bool          // kept out of the command menu
	Handle      HandlerFunc
}

// CallbackRoute handles inline-button data of the form "<prefix>:<payload>".
type CallbackRoute struct {
	Prefix  string
	Access  Access
	Timeout time.Duration
	Handle  HandlerFunc
}

// Request is one routed update. Exactly one of Message and Callback is set.
type Request struct {
	Chat     kit.ChatTarget
	FromID   int64
	Message  *kit.Message
	Callback *kit.Callback

	Command string
	Args    []string
	// Rest is the raw text after the command word.
	Rest    string
	Payload string

	ReqID   string
	Owner   bool
	Adapter kit.Adapter
	Logger  logx.Logger

	// Answer is shown as the callback toast once the handler returns.
	Answer string
}

func (r *Request) Kind() kit.UpdateKind {
	if r.Callback != nil {
		return kit.UpdateCallback
	}
	return kit.UpdateMessage
}

// Reply sends text to the chat the request came from.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return r.Adapter.SendText(ctx, r.Chat, text, opt)
}

type Options struct {
	Workers        int
	QueueSize      int
	DefaultTimeout time.Duration
	// Unknown handles commands with no registered route. nil ignores them.
	Unknown HandlerFunc
}

// Router dispatches updates to command and callback handlers on a bounded
// worker pool.
type Router struct {
	mu        sync.RWMutex
	commands  map[string]*Command
	callbacks map[string]CallbackRoute
	owners    []int64

	log     logx.Logger
	adapter kit.Adapter
	opt     Options

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor

	jobs chan func()
}

func New(adapter kit.Adapter, log logx.Logger, opt Options) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 256
	}
	if opt.DefaultTimeout <= 0 {
		opt.DefaultTimeout = 15 * time.Second
	}
	return &Router{
		commands:  map[string]*Command{},
		callbacks: map[string]CallbackRoute{},
		log:       log,
		adapter:   adapter,
		opt:       opt,
		jobs:      make(chan func(), opt.QueueSize),
	}
}

// Supervisor returns the worker pool supervisor (nil if not running).
func (m *Router) Supervisor() *rtsup.Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

func (m *Router) setSupervisor(sup *rtsup.Supervisor, running bool) {
	m.runMu.Lock()
	m.sup = sup
	m.running = running
	m.runMu.Unlock()
}

// SetOwners updates the owner list used for AccessOwnerOnly checks.
// Safe to call during hot reload.
func (m *Router) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	m.mu.Lock()
	m.owners = cp
	m.mu.Unlock()
}

func (m *Router) isOwner(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.owners, id)
}

// SetRegistry replaces all routes and refreshes the platform command menu.
func (m *Router) SetRegistry(cmds []Command, cbs []CallbackRoute) {
	byName := map[string]*Command{}
	menu := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		cc := c
		byName[name] = &cc
		for _, a := range c.Aliases {
			if a = sanitizeCommand(a); a != "" {
				if _, exists := byName[a]; !exists {
					byName[a] = &cc
				}
			}
		}
		if !c.Hidden && c.Access == AccessEveryone {
			menu = append(menu, kit.BotCommand{Command: name, Description: menuDescription(c.Description, name)})
		}
	}

	cb := map[string]CallbackRoute{}
	for _, r := range cbs {
		p := strings.TrimSpace(r.Prefix)
		if p == "" || r.Handle == nil {
			continue
		}
		cb[p] = r
	}

	m.mu.Lock()
	m.commands = byName
	m.callbacks = cb
	m.mu.Unlock()

	if up, ok := m.adapter.(kit.CommandMenuUpdater); ok {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(ctx, menu); err != nil {
				m.log.Warn("menu update failed", logx.Err(err))
			}
		}()
	}
}

func (m *Router) tryEnqueue(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// DispatchLoop consumes updates until ctx is done or updates is closed.
func (m *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(m.log),
		rtsup.WithCancelOnError(false),
	)
	m.setSupervisor(sup, true)
	m.log.Info("dispatcher started", logx.Int("workers", m.opt.Workers), logx.Int("queue_cap", cap(m.jobs)))

	for i := 0; i < m.opt.Workers; i++ {
		idx := i
		sup.GoRestart("worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					m.runJob(idx, job)
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		m.setSupervisor(sup, false)
		close(m.jobs)
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.setSupervisor(nil, false)
		m.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.Route(ctx, up)
		}
	}
}

func (m *Router) runJob(worker int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic in job", logx.Int("worker", worker), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	job()
}

// Route matches an update and enqueues its handler.
func (m *Router) Route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		if up.Message != nil {
			m.routeMessage(ctx, up.Message)
		}
	case kit.UpdateCallback:
		if up.Callback != nil {
			m.routeCallback(ctx, up.Callback)
		}
	}
}

func (m *Router) routeMessage(ctx context.Context, msg *kit.Message) {
	word, rest, ok := splitCommand(msg.Text)
	if !ok {
		return
	}
	m.mu.RLock()
	cmd := m.commands[word]
	m.mu.RUnlock()

	req := m.newRequest(kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, msg.FromID, "/"+word)
	req.Message = msg
	req.Rest = rest
	req.Args = strings.Fields(rest)

	var (
		h       HandlerFunc
		timeout time.Duration
	)
	switch {
	case cmd == nil:
		if m.opt.Unknown == nil {
			return
		}
		h = m.opt.Unknown
	case cmd.Access == AccessOwnerOnly && !req.Owner:
		_, _ = req.Reply(ctx, "unauthorized", nil)
		return
	default:
		h, timeout = cmd.Handle, cmd.Timeout
	}

	if !m.tryEnqueue(func() { _ = m.chain(h, timeout)(ctx, req) }) {
		_, _ = req.Reply(ctx, "busy, try again", nil)
	}
}

func (m *Router) routeCallback(ctx context.Context, cb *kit.Callback) {
	prefix, payload, _ := strings.Cut(strings.TrimSpace(cb.Data), ":")
	m.mu.RLock()
	route, ok := m.callbacks[prefix]
	m.mu.RUnlock()
	if !ok {
		_ = m.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}

	req := m.newRequest(kit.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID}, cb.FromID, "cb:"+prefix)
	req.Callback = cb
	req.Payload = payload
	if route.Access == AccessOwnerOnly && !req.Owner {
		_ = m.adapter.AnswerCallback(ctx, cb.ID, "forbidden")
		return
	}

	final := m.chain(route.Handle, route.Timeout)
	if !m.tryEnqueue(func() {
		_ = final(ctx, req)
		_ = m.adapter.AnswerCallback(ctx, cb.ID, req.Answer)
	}) {
		_ = m.adapter.AnswerCallback(ctx, cb.ID, "busy")
	}
}

func (m *Router) newRequest(chat kit.ChatTarget, from int64, command string) *Request {
	rid := uuid.NewString()[:8]
	return &Request{
		Chat:    chat,
		FromID:  from,
		Command: command,
		ReqID:   rid,
		Owner:   m.isOwner(from),
		Adapter: m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.Int64("from_id", from),
			logx.String("cmd", command),
		),
	}
}

func (m *Router) chain(h HandlerFunc, timeout time.Duration) HandlerFunc {
	if timeout <= 0 {
		timeout = m.opt.DefaultTimeout
	}
	return Chain(h,
		MWPanicRecover(m.log),
		MWRequestLog(m.log),
		MWTimeout(timeout),
	)
}

// splitCommand extracts the command word (without "/" and "@botname") and the
// raw remainder.
func splitCommand(text string) (word, rest string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	word = strings.ToLower(head)
	if word == "" {
		return "", "", false
	}
	return word, strings.TrimSpace(rest), true
}
