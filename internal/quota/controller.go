// Package quota enforces the rolling translation limit for the signed-in user
// on this device. A Controller owns the persisted window state, re-derives its
// validity from the stored reset time on every call so suspension and restarts
// cannot stretch a window, escalates to administrators once per exhausted
// window and restores the quota when the window ends.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
	"translator/internal/models"
	"translator/internal/storage"

	"k8s.io/utils/clock"
)

// Unlimited is the Remaining value reported for exempt actors.
const Unlimited = math.MaxInt

// DefaultDispatchTimeout bounds a single notification delivery.
const DefaultDispatchTimeout = 10 * time.Second

// Config fixes the window. It is read once at construction.
type Config struct {
	Limit    int
	Window   time.Duration
	StateKey string
}

func (c Config) validate() error {
	if c.Limit <= 0 {
		return errors.New("limit must be positive")
	}
	if c.Window <= 0 {
		return errors.New("window must be positive")
	}
	if c.StateKey == "" {
		return errors.New("state key cannot be empty")
	}
	return nil
}

// RoleProvider reports whether the signed-in identity is exempt from the quota.
type RoleProvider interface {
	IsExempt(ctx context.Context) (bool, error)
}

// Dispatcher delivers the restored notice to the local user and the limit
// escalation to administrators. Both calls are fire-and-forget for the
// controller; errors are logged and never retried.
type Dispatcher interface {
	NotifyLocal(ctx context.Context, n models.LocalNotification) error
	NotifyRemote(ctx context.Context, audience string, payload models.Escalation) error
}

// Eligibility is the answer to "may the actor translate now".
type Eligibility struct {
	Allowed   bool
	Remaining int
	Limit     int
	Exempt    bool
	// TimeUntilReset is nil for exempt actors. It is for display only;
	// gating uses the usage count.
	TimeUntilReset *time.Duration
	ResetAt        time.Time
}

// Controller is the quota state machine. All operations are serialized by an
// internal mutex held across persistence, so concurrent callers cannot lose
// increments.
type Controller struct {
	cfg             Config
	store           storage.Store
	roles           RoleProvider
	dispatcher      Dispatcher
	clock           clock.WithDelayedExecution
	logger          *slog.Logger
	recorder        Recorder
	dispatchTimeout time.Duration
	restored        models.LocalNotification

	mu     sync.Mutex
	state  *State
	timer  clock.Timer
	closed bool

	// armed counts scheduled timers until they are stopped or their callback
	// returns. It only grows under mu while the controller is open.
	armed sync.WaitGroup
	// tasks counts fired timer callbacks and notification deliveries.
	tasks *tracker
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock, typically with a fake in tests.
func WithClock(c clock.WithDelayedExecution) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(ctrl *Controller) { ctrl.logger = logger }
}

func WithRecorder(r Recorder) Option {
	return func(ctrl *Controller) { ctrl.recorder = r }
}

func WithDispatchTimeout(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.dispatchTimeout = d }
}

// WithRestoredNotification sets the title and body of the notice shown when
// the quota comes back.
func WithRestoredNotification(title, body string) Option {
	return func(ctrl *Controller) {
		ctrl.restored.Title = title
		ctrl.restored.Body = body
	}
}

// NewController creates a controller. No I/O happens until Load or the first
// operation.
func NewController(cfg Config, store storage.Store, roles RoleProvider, dispatcher Dispatcher, opts ...Option) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid quota config: %w", err)
	}
	if store == nil || roles == nil || dispatcher == nil {
		return nil, errors.New("store, role provider and dispatcher are required")
	}

	c := &Controller{
		cfg:             cfg,
		store:           store,
		roles:           roles,
		dispatcher:      dispatcher,
		clock:           clock.RealClock{},
		logger:          slog.Default(),
		recorder:        nopRecorder{},
		dispatchTimeout: DefaultDispatchTimeout,
		tasks:           newTracker(),
		restored: models.LocalNotification{
			Title: "Translation limit restored",
			Body:  "Your translation limit has been restored. You can translate again!",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "quota")

	return c, nil
}

// Load reads the persisted window, replacing it silently when it is missing,
// unreadable or already expired, and re-arms the reset timer for an exhausted
// window. Calling Load is optional; every operation initializes lazily.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initLocked(ctx)
}

// CheckEligibility reports whether the actor may translate now. An expired
// window is rolled over before answering.
func (c *Controller) CheckEligibility(ctx context.Context, actor models.Actor) Eligibility {
	if c.isExempt(ctx) {
		c.recorder.Checked(true, true)
		return c.exemptEligibility()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.initLocked(ctx)
	now := c.clock.Now()
	c.repairLocked(ctx, now)

	e := c.eligibilityLocked(now)
	c.recorder.Checked(e.Allowed, false)
	return e
}

// RegisterUsage counts one successful translation against the window. The
// call that exhausts the window sends the administrator escalation, once per
// window, and arms the reset timer.
func (c *Controller) RegisterUsage(ctx context.Context, actor models.Actor) Eligibility {
	if c.isExempt(ctx) {
		return c.exemptEligibility()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.initLocked(ctx)
	now := c.clock.Now()
	c.repairLocked(ctx, now)

	c.state.UsedCount++
	c.recorder.UsageRegistered()

	escalate := c.state.exhausted(c.cfg.Limit) && !c.state.EscalationSent
	if escalate {
		c.state.EscalationSent = true
	}
	c.persistLocked(ctx)

	if escalate {
		c.escalateLocked(ctx, actor, c.state.ResetAt)
		c.armLocked(now)
	}

	c.logger.DebugContext(ctx, "Usage registered",
		"used_count", c.state.UsedCount,
		"limit", c.cfg.Limit,
		"reset_at", c.state.ResetAt)

	return c.eligibilityLocked(now)
}

// Reset starts a brand-new window at the current time and tells the user the
// quota is back. When no window was ever persisted it only initializes.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	first := false
	if c.state == nil {
		// Not loaded yet; a persisted window still counts as a prior one.
		_, found, err := c.readLocked(ctx, now)
		first = err == nil && !found
	}
	c.stopTimerLocked()

	fresh := newWindow(now, c.cfg.Window)
	c.state = &fresh
	c.persistLocked(ctx)
	c.recorder.RolledOver(RolloverReset)

	if first {
		c.logger.InfoContext(ctx, "Quota window initialized", "reset_at", fresh.ResetAt)
		return
	}

	c.logger.InfoContext(ctx, "Quota window reset", "reset_at", fresh.ResetAt)
	if !c.isExempt(ctx) {
		c.notifyRestoredLocked(ctx)
	}
}

// Snapshot returns a copy of the current window state, and false when the
// controller has not been initialized.
func (c *Controller) Snapshot() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return State{}, false
	}
	return *c.state, true
}

// Drain waits for fired timer callbacks and notification deliveries. A timer
// that has not fired yet is not waited for.
func (c *Controller) Drain() {
	c.tasks.wait()
}

// Close stops the reset timer and waits for in-flight work. The persisted
// state is left as is. Operations after Close still answer but start no
// background work.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	c.armed.Wait()
	c.tasks.wait()
}

func (c *Controller) exemptEligibility() Eligibility {
	return Eligibility{
		Allowed:   true,
		Remaining: Unlimited,
		Limit:     c.cfg.Limit,
		Exempt:    true,
	}
}

func (c *Controller) eligibilityLocked(now time.Time) Eligibility {
	remaining := c.state.remaining(c.cfg.Limit)
	until := max(0, c.state.ResetAt.Sub(now))
	return Eligibility{
		Allowed:        remaining > 0,
		Remaining:      remaining,
		Limit:          c.cfg.Limit,
		TimeUntilReset: &until,
		ResetAt:        c.state.ResetAt,
	}
}

// isExempt fails closed: a role lookup error keeps the quota in force.
func (c *Controller) isExempt(ctx context.Context) bool {
	exempt, err := c.roles.IsExempt(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Role lookup failed, applying quota", "error", err)
		return false
	}
	return exempt
}

func (c *Controller) initLocked(ctx context.Context) {
	if c.state != nil {
		return
	}

	now := c.clock.Now()
	loaded, found, err := c.readLocked(ctx, now)
	if err != nil {
		// Keep the unreadable record untouched; the fresh window lives in
		// memory until the next write.
		c.logger.ErrorContext(ctx, "Failed to read quota state, using a fresh window", "error", err)
		fresh := newWindow(now, c.cfg.Window)
		c.state = &fresh
		return
	}

	if found && !loaded.stale(now) {
		c.state = &loaded
		c.logger.InfoContext(ctx, "Quota window loaded",
			"used_count", loaded.UsedCount,
			"reset_at", loaded.ResetAt)
		if loaded.exhausted(c.cfg.Limit) {
			c.armLocked(now)
		}
		return
	}

	fresh := newWindow(now, c.cfg.Window)
	c.state = &fresh
	if found {
		c.recorder.RolledOver(RolloverLoad)
		c.logger.InfoContext(ctx, "Stored quota window expired, starting a new one", "reset_at", fresh.ResetAt)
	}
	c.persistLocked(ctx)
}

// readLocked returns the persisted state when one exists and can be trusted.
// Only store failures are returned as errors; a record that cannot be used is
// reported as not found.
func (c *Controller) readLocked(ctx context.Context, now time.Time) (State, bool, error) {
	raw, err := c.store.Get(context.WithoutCancel(ctx), c.cfg.StateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}

	loaded, err := decodeState(raw, c.cfg.Window)
	if err != nil {
		c.logger.WarnContext(ctx, "Discarding stored quota state", "error", err)
		return State{}, false, nil
	}

	// A window that starts in the future means the wall clock moved back;
	// honoring it would lock the user out for longer than one window.
	if loaded.WindowStartedAt.After(now) {
		c.logger.WarnContext(ctx, "Stored quota window starts in the future, discarding",
			"window_started_at", loaded.WindowStartedAt)
		return State{}, false, nil
	}

	return loaded, true, nil
}

// repairLocked rolls an expired window over. Replacing an exhausted window
// tells the user their quota is back.
func (c *Controller) repairLocked(ctx context.Context, now time.Time) {
	if !c.state.stale(now) {
		return
	}
	c.rolloverLocked(ctx, now, RolloverLazy, true)
}

func (c *Controller) rolloverLocked(ctx context.Context, now time.Time, reason string, notify bool) {
	wasExhausted := c.state.exhausted(c.cfg.Limit)
	c.stopTimerLocked()

	fresh := newWindow(now, c.cfg.Window)
	c.state = &fresh
	c.persistLocked(ctx)
	c.recorder.RolledOver(reason)

	c.logger.InfoContext(ctx, "Quota window rolled over",
		"reason", reason,
		"reset_at", fresh.ResetAt)

	if notify && wasExhausted {
		c.notifyRestoredLocked(ctx)
	}
}

// persistLocked writes the current state. Failures are logged; the in-memory
// transition stands.
func (c *Controller) persistLocked(ctx context.Context) {
	value, err := encodeState(*c.state)
	if err == nil {
		err = c.store.Set(context.WithoutCancel(ctx), c.cfg.StateKey, value)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to persist quota state", "error", err)
	}
}

// armLocked schedules expiry of the current window at its persisted reset
// time. The callback carries the reset time it was armed for so a timer that
// outlives its window does nothing.
func (c *Controller) armLocked(now time.Time) {
	c.stopTimerLocked()
	if c.closed {
		return
	}

	armedFor := c.state.ResetAt
	delay := max(0, armedFor.Sub(now))
	c.armed.Add(1)
	c.timer = c.clock.AfterFunc(delay, func() {
		// Fake clocks run callbacks while holding their own lock; hand off
		// so expire can read the clock.
		c.tasks.add()
		go func() {
			defer c.armed.Done()
			defer c.tasks.done()
			c.expire(armedFor)
		}()
	})
}

// stopTimerLocked releases the armed count only when the callback will never
// run; a fired callback releases it itself.
func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		if c.timer.Stop() {
			c.armed.Done()
		}
		c.timer = nil
	}
}

func (c *Controller) expire(armedFor time.Time) {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state == nil || !c.state.ResetAt.Equal(armedFor) {
		c.logger.Debug("Ignoring stale reset timer", "armed_for", armedFor)
		return
	}
	c.timer = nil

	now := c.clock.Now()
	if !c.state.stale(now) {
		c.armLocked(now)
		return
	}

	// The window rolls over even for an exempt actor; only the notice is withheld.
	c.rolloverLocked(ctx, now, RolloverTimer, !c.isExempt(ctx))
}

func (c *Controller) notifyRestoredLocked(ctx context.Context) {
	n := models.LocalNotification{
		Title:    c.restored.Title,
		Body:     c.restored.Body,
		Metadata: map[string]string{"type": models.NotificationTypeQuotaRestored},
	}
	c.dispatch(ctx, "restored notification", func(ctx context.Context) error {
		return c.dispatcher.NotifyLocal(ctx, n)
	})
}

func (c *Controller) escalateLocked(ctx context.Context, actor models.Actor, resetAt time.Time) {
	c.recorder.Escalated()

	if actor.ID == "" {
		c.logger.WarnContext(ctx, "No signed-in identity, skipping administrator escalation")
		return
	}

	payload := models.Escalation{
		UserID:   actor.ID,
		UserName: actor.DisplayName(),
		ResetAt:  resetAt,
	}
	c.logger.InfoContext(ctx, "Quota exhausted, escalating to administrators", "user_id", actor.ID)
	c.dispatch(ctx, "administrator escalation", func(ctx context.Context) error {
		return c.dispatcher.NotifyRemote(ctx, models.AudienceAdmins, payload)
	})
}

// dispatch delivers in the background under its own deadline; the caller's
// cancellation does not abort it. The caller holds mu.
func (c *Controller) dispatch(ctx context.Context, what string, send func(context.Context) error) {
	if c.closed {
		c.logger.DebugContext(ctx, "Controller closed, dropping notification", "notification", what)
		return
	}

	c.tasks.add()
	go func() {
		defer c.tasks.done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.dispatchTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			c.logger.WarnContext(ctx, "Notification delivery failed", "notification", what, "error", err)
		}
	}()
}
