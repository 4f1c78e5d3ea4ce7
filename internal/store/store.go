package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/comigor/chatstore/internal/config"
	"github.com/comigor/chatstore/internal/llm"
	"github.com/comigor/chatstore/internal/logger"
	"github.com/comigor/chatstore/internal/persist"
	"github.com/comigor/chatstore/internal/session"
)

// Request lifecycle states. At most one completion request is in
// flight per store; the FSM guards the transitions.
type lifecycleState stateless.State

var (
	stateIdle     lifecycleState = "Idle"
	stateAwaiting lifecycleState = "AwaitingResponse"
)

type lifecycleTrigger stateless.Trigger

var (
	triggerSend    lifecycleTrigger = "Send"
	triggerSucceed lifecycleTrigger = "Succeed"
	triggerFail    lifecycleTrigger = "Fail"
	triggerCancel  lifecycleTrigger = "Cancel"
)

const defaultSessionTitle = "New conversation"

// Store owns all session state, mediates every mutation, and
// coordinates the single external call to the completion endpoint.
// All mutations are serialized behind one mutex, so the store is safe
// outside a single-threaded event loop too.
type Store struct {
	mu        sync.Mutex
	cfg       config.Config
	client    llm.Client
	persister persist.Store

	sessions []*session.Session // most-recent-first
	activeID string
	lastErr  error

	fsm            *stateless.StateMachine
	saver          *Debouncer
	cancelInflight context.CancelFunc
	generation     uint64

	tracer   trace.Tracer
	requests metric.Int64Counter
	failures metric.Int64Counter
	tokens   metric.Int64Counter
}

// Option configures optional store collaborators.
type Option func(*Store)

// WithTracer attaches a tracer; each completion call gets a span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// WithMeter attaches a meter; the store records request, failure and
// token counters.
func WithMeter(m metric.Meter) Option {
	return func(s *Store) {
		var err error
		if s.requests, err = m.Int64Counter("chatstore.completion.requests"); err != nil {
			logger.L.Warn("request counter unavailable", "error", err)
		}
		if s.failures, err = m.Int64Counter("chatstore.completion.failures"); err != nil {
			logger.L.Warn("failure counter unavailable", "error", err)
		}
		if s.tokens, err = m.Int64Counter("chatstore.completion.tokens"); err != nil {
			logger.L.Warn("token counter unavailable", "error", err)
		}
	}
}

// New creates a store, loading any persisted session set. Load
// failures never surface here: drivers recover to an empty set.
func New(cfg config.Config, client llm.Client, persister persist.Store, opts ...Option) *Store {
	s := &Store{
		cfg:       cfg,
		client:    client,
		persister: persister,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.fsm = stateless.NewStateMachine(stateIdle)
	s.fsm.Configure(stateIdle).
		Permit(triggerSend, stateAwaiting)
	s.fsm.Configure(stateAwaiting).
		PermitReentry(triggerSend).
		Permit(triggerSucceed, stateIdle).
		Permit(triggerFail, stateIdle).
		Permit(triggerCancel, stateIdle)

	s.saver = NewDebouncer(time.Duration(cfg.Storage.DebounceMs)*time.Millisecond, s.persistNow)

	if persister != nil {
		loaded, err := persister.Load(context.Background())
		if err != nil {
			logger.L.Warn("session load failed; starting empty", "error", err)
			loaded = []*session.Session{}
		}
		sort.Slice(loaded, func(i, j int) bool {
			return loaded[i].UpdatedAt.After(loaded[j].UpdatedAt)
		})
		s.sessions = loaded
		if len(loaded) > 0 {
			s.activeID = loaded[0].ID
		}
	}
	return s
}

// fire drives the lifecycle FSM; transitions are configured
// exhaustively, so a rejection indicates a store bug worth logging.
func (s *Store) fire(t lifecycleTrigger) {
	if err := s.fsm.Fire(t); err != nil {
		logger.L.Error("lifecycle transition rejected", "trigger", t, "error", err)
	}
}

// find returns the session with the given id, or nil. Callers hold the
// mutex.
func (s *Store) find(id string) *session.Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// CreateSession generates a session, inserts it at the front of the
// set and marks it active. Always succeeds.
func (s *Store) CreateSession(title string) *session.Session {
	if strings.TrimSpace(title) == "" {
		title = defaultSessionTitle
	}
	sess := session.New(title)

	s.mu.Lock()
	s.sessions = append([]*session.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.mu.Unlock()
	s.schedulePersist()

	logger.L.Info("session created", "session_id", sess.ID, "title", title)
	return sess
}

// SelectSession sets the active session if id exists in the set;
// otherwise it is a no-op. Selecting clears the error state.
func (s *Store) SelectSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(id) == nil {
		return false
	}
	s.activeID = id
	s.lastErr = nil
	return true
}

// DeleteSession removes a session. When the active session is deleted
// the first remaining session becomes active, or none if the set is
// empty.
func (s *Store) DeleteSession(id string) bool {
	deleted := false
	defer func() {
		if deleted {
			s.schedulePersist()
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, sess := range s.sessions {
		if sess.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		} else {
			s.activeID = ""
		}
	}
	deleted = true
	return true
}

// ClearSession empties a session's message list in place, leaving the
// session in the set.
func (s *Store) ClearSession(id string) bool {
	s.mu.Lock()
	sess := s.find(id)
	if sess == nil {
		s.mu.Unlock()
		return false
	}
	sess.Clear()
	s.mu.Unlock()
	s.schedulePersist()
	return true
}

// SendMessage sends to the active session, creating one when none is
// active. See SendMessageTo.
func (s *Store) SendMessage(ctx context.Context, content string) *session.Message {
	return s.SendMessageTo(ctx, "", content)
}

// SendMessageTo appends a user message to the target session and
// requests a completion for its full history. Empty-after-trim content
// is a no-op returning nil. Exactly one request is outstanding per
// store: a new call cancels any still-pending prior request.
//
// The returned message is the appended assistant message: the model's
// reply on success, a synthesized error-content message on failure,
// nil when the request was superseded or cancelled. Remote errors are
// never returned to the caller; they land in LastError and in the
// conversation.
func (s *Store) SendMessageTo(ctx context.Context, sessionID, content string) *session.Message {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	s.mu.Lock()
	sess := s.resolve(sessionID)

	userMsg := session.NewMessage(session.RoleUser, content)
	userMsg.TokenCount = session.EstimateTokens(content)
	sess.Append(userMsg)

	// Cancel-and-replace: the previous pending request, if any, is
	// cooperatively cancelled and its response suppressed.
	if s.cancelInflight != nil {
		s.cancelInflight()
	}
	s.generation++
	gen := s.generation
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancelInflight = cancel

	s.fire(triggerSend)

	history := make([]session.Message, len(sess.Messages))
	copy(history, sess.Messages)
	targetID := sess.ID
	s.mu.Unlock()
	s.schedulePersist()

	if s.requests != nil {
		s.requests.Add(reqCtx, 1)
	}
	var span trace.Span
	if s.tracer != nil {
		reqCtx, span = s.tracer.Start(reqCtx, "completion",
			trace.WithAttributes(attribute.String("model", s.cfg.LLM.Model)))
	}

	result, cerr := llm.Complete(reqCtx, s.client, s.cfg.LLM, history)

	needPersist := false
	defer func() {
		if needPersist {
			s.schedulePersist()
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// Superseded by a newer SendMessage; the newer call owns the
		// lifecycle state now. Drop this response on the floor.
		if span != nil {
			span.SetStatus(codes.Error, "superseded")
			span.End()
		}
		return nil
	}
	s.cancelInflight = nil
	wasCancelled := reqCtx.Err() == context.Canceled
	cancel()

	if cerr != nil && wasCancelled {
		// Cancelled from outside rather than replaced.
		s.fire(triggerCancel)
		if span != nil {
			span.SetStatus(codes.Error, "cancelled")
			span.End()
		}
		return nil
	}

	target := s.find(targetID)

	if cerr != nil {
		s.fire(triggerFail)
		s.lastErr = cerr
		if s.failures != nil {
			s.failures.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("kind", cerr.Kind.String())))
		}
		if span != nil {
			span.SetStatus(codes.Error, cerr.Kind.String())
			span.End()
		}
		if target == nil {
			// Session deleted while the request was in flight.
			return nil
		}
		errMsg := session.NewMessage(session.RoleAssistant, cerr.UserMessage())
		target.Append(errMsg)
		needPersist = true
		return &target.Messages[len(target.Messages)-1]
	}

	s.fire(triggerSucceed)
	s.lastErr = nil
	if s.tokens != nil {
		s.tokens.Add(context.Background(), int64(result.TotalTokens))
	}
	if span != nil {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
	if target == nil {
		return nil
	}
	reply := session.NewMessage(session.RoleAssistant, result.Content)
	reply.TokenCount = result.TotalTokens
	target.Append(reply)
	needPersist = true
	return &target.Messages[len(target.Messages)-1]
}

// resolve picks the target session for a send: the explicit id when it
// exists, else the active session, else a freshly created one. Callers
// hold the mutex.
func (s *Store) resolve(sessionID string) *session.Session {
	if sessionID != "" {
		if sess := s.find(sessionID); sess != nil {
			return sess
		}
	}
	if sess := s.find(s.activeID); sess != nil {
		return sess
	}
	sess := session.New(defaultSessionTitle)
	s.sessions = append([]*session.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	return sess
}

// TotalTokensUsed sums the token counts recorded on assistant messages
// of one session. Missing counts are zero.
func (s *Store) TotalTokensUsed(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(sessionID)
	if sess == nil {
		return 0
	}
	return assistantTokens(sess)
}

// TotalTokensUsedAll sums assistant token counts across all sessions.
func (s *Store) TotalTokensUsedAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, sess := range s.sessions {
		total += assistantTokens(sess)
	}
	return total
}

func assistantTokens(sess *session.Session) int {
	total := 0
	for _, m := range sess.Messages {
		if m.Role == session.RoleAssistant {
			total += m.TokenCount
		}
	}
	return total
}

// SessionCost derives an estimated cost for a session: assistant
// tokens times the per-model unit price. Display-only; not a contract
// with the provider.
func (s *Store) SessionCost(sessionID string) float64 {
	tokens := s.TotalTokensUsed(sessionID)
	return float64(tokens) / 1000.0 * pricePer1k(s.cfg.Pricing, s.cfg.LLM.Model)
}

// Sessions returns the session set, most recent first.
func (s *Store) Sessions() []*session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Active returns the active session, or nil when none is set.
func (s *Store) Active() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(s.activeID)
}

// Loading reports whether a completion request is in flight.
func (s *Store) Loading() bool {
	return s.fsm.MustState() == stateAwaiting
}

// LastError returns the store-level error state from the most recent
// failed completion, or nil.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// schedulePersist queues a debounced write of the full session set.
// Must be called without the mutex held: at debounce zero the write
// runs synchronously and takes the lock itself.
func (s *Store) schedulePersist() {
	if s.persister == nil {
		return
	}
	s.saver.Trigger()
}

// persistNow serializes the current session set. Persistence is
// best-effort: a capacity failure truncates to the newest configured
// cap and retries once; a second failure is logged and swallowed.
func (s *Store) persistNow() {
	if s.persister == nil {
		return
	}
	s.mu.Lock()
	snapshot := make([]*session.Session, len(s.sessions))
	copy(snapshot, s.sessions)
	max := s.cfg.Storage.MaxSessions
	s.mu.Unlock()

	ctx := context.Background()
	err := s.persister.Save(ctx, snapshot)
	if err == nil {
		return
	}
	if max <= 0 {
		max = 10
	}
	logger.L.Warn("session save failed; truncating to newest and retrying",
		"error", err, "cap", max)
	if len(snapshot) > max {
		snapshot = snapshot[:max]
	}
	if err := s.persister.Save(ctx, snapshot); err != nil {
		logger.L.Error("session save failed after truncation; giving up", "error", err)
	}
}

// Flush forces any pending persistence write to run now.
func (s *Store) Flush() {
	s.saver.Flush()
}

// Close cancels any in-flight request, flushes pending persistence and
// closes the driver.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.cancelInflight != nil {
		s.cancelInflight()
		s.cancelInflight = nil
	}
	s.mu.Unlock()

	s.saver.Flush()
	s.saver.Stop()
	if s.persister != nil {
		return s.persister.Close()
	}
	return nil
}
