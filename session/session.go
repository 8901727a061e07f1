// Package session keeps comparison fragments in sync with a live storefront.
// A Session owns one cart (or product) view: it waits for the collection to
// appear, recomputes when the cart fingerprint changes, and re-inserts its
// cached fragments when the storefront wipes them without changing the cart.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"price-scout/config"
	"price-scout/errs"
	"price-scout/models"
	"price-scout/rates"
	"price-scout/services"
	"price-scout/storefront"
	"price-scout/utils"
)

type State int

const (
	StateIdle State = iota
	StateFetching
	StateReady
	StateReapplying
	StateRecomputing
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateReapplying:
		return "reapplying"
	case StateRecomputing:
		return "recomputing"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Deps are the collaborators a session needs. Extractor, Sink and Observer
// are usually the same storefront value.
type Deps struct {
	Extractor   storefront.Extractor
	Sink        storefront.Sink
	Observer    storefront.Observer
	Preferences storefront.Preferences
	Rates       rates.Source
	Comparer    *services.Comparer
	Renderer    FragmentRenderer
}

// FragmentRenderer turns comparison results into HTML fragments.
// *render.Renderer is the production implementation.
type FragmentRenderer interface {
	Item(item models.LineItem) (string, error)
	Summary(items []models.LineItem, summary models.SavingsSummary) (string, error)
}

func (d Deps) validate() error {
	switch {
	case d.Extractor == nil:
		return errs.NewConfig("session needs an extractor", nil)
	case d.Sink == nil:
		return errs.NewConfig("session needs a sink", nil)
	case d.Observer == nil:
		return errs.NewConfig("session needs an observer", nil)
	case d.Preferences == nil:
		return errs.NewConfig("session needs market preferences", nil)
	case d.Rates == nil:
		return errs.NewConfig("session needs a rate source", nil)
	case d.Comparer == nil:
		return errs.NewConfig("session needs a comparer", nil)
	case d.Renderer == nil:
		return errs.NewConfig("session needs a renderer", nil)
	}
	return nil
}

type Option func(*Session)

func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounceDelay = d }
}

func WithAttach(interval time.Duration, attempts int) Option {
	return func(s *Session) {
		s.attachInterval = interval
		s.attachAttempts = attempts
	}
}

func WithResizeThreshold(px float64) Option {
	return func(s *Session) { s.resizeThreshold = px }
}

// WithConfig applies the timing settings from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		s.debounceDelay = cfg.DebounceDelay
		s.attachInterval = cfg.AttachInterval
		s.attachAttempts = cfg.AttachAttempts
		s.resizeThreshold = cfg.ResizeThreshold
	}
}

// Status is a point-in-time view of a session.
type Status struct {
	ID           string         `json:"id"`
	State        string         `json:"state"`
	Inert        bool           `json:"inert"`
	Markets      []string       `json:"markets"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
	CartState    string         `json:"cart_state,omitempty"`
	Cycles       int            `json:"cycles"`
	Reapplies    int            `json:"reapplies"`
	QuickUpdates int            `json:"quick_updates"`
	CacheKeys    []string       `json:"cache_keys"`
	Attempts     int            `json:"attach_attempts"`
	LastError    string         `json:"last_error,omitempty"`
	UnknownRates map[string]int `json:"unknown_rates,omitempty"`
	InFlight     bool           `json:"in_flight"`
}

// cycleResult is what a recompute worker posts back to the loop.
type cycleResult struct {
	cycle       int
	fingerprint string
	cartState   string
	items       []models.LineItem
	summary     models.SavingsSummary
	norm        *services.Normalizer
	batch       map[string]Fragment
	err         error
}

// Session is a single-writer state machine. Every field below the queue is
// owned by the Run goroutine; other goroutines only post events.
type Session struct {
	id      string
	deps    Deps
	markets []models.Market
	inert   bool

	clock           Clock
	debounceDelay   time.Duration
	attachInterval  time.Duration
	attachAttempts  int
	resizeThreshold float64

	queue     *eventQueue
	debouncer *Debouncer
	cache     *RenderCache
	workers   sync.WaitGroup

	lifeMu   sync.Mutex
	started  bool
	disposed bool
	done     chan struct{}

	statusMu    sync.RWMutex
	status      Status
	changed     chan struct{}
	lastItems   []models.LineItem
	lastSummary models.SavingsSummary

	// loop-owned
	state       State
	attacher    *Attacher
	attachTimer Timer
	resize      *ResizeFilter
	accepted    string
	cycle       int
	inFlight    bool
	cancelCycle context.CancelFunc
	items       []models.LineItem
	summary     models.SavingsSummary
	norm        *services.Normalizer
	reapplies   int
	quick       int
	lastErr     error
}

// NewSession loads the market preferences once and returns a session ready
// to Run. An empty preference list yields an inert session that never
// fetches or renders.
func NewSession(ctx context.Context, deps Deps, opts ...Option) (*Session, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:              uuid.NewString(),
		deps:            deps,
		clock:           RealClock{},
		debounceDelay:   500 * time.Millisecond,
		attachInterval:  500 * time.Millisecond,
		attachAttempts:  10,
		resizeThreshold: 50,
		queue:           newEventQueue(),
		cache:           NewRenderCache(),
		done:            make(chan struct{}),
		changed:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	markets, err := deps.Preferences.Markets(ctx)
	if err != nil {
		return nil, errs.NewConfig("load market preferences", err)
	}
	s.markets = markets
	s.inert = len(markets) == 0

	s.debouncer = NewDebouncer(s.clock, s.debounceDelay, func() {
		s.queue.Enqueue(event{kind: evMutation})
	})
	s.resize = NewResizeFilter(s.resizeThreshold)
	s.attacher = NewAttacher(s.attachAttempts, s.tryAttach)
	s.publish()

	utils.Log().Info().Str("session", s.id).Int("markets", len(markets)).Bool("inert", s.inert).Msg("session created")
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Run processes events until ctx is cancelled or Dispose is called. It
// must be called at most once.
func (s *Session) Run(ctx context.Context) error {
	s.lifeMu.Lock()
	if s.disposed {
		s.lifeMu.Unlock()
		return nil
	}
	s.started = true
	s.lifeMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !s.inert {
		s.queue.Enqueue(event{kind: evAttachTick})
	}

	for {
		for {
			ev, ok := s.queue.TryDequeue()
			if !ok {
				break
			}
			if s.handle(runCtx, ev) {
				return nil
			}
			s.publish()
		}

		select {
		case <-ctx.Done():
			s.dispose()
			return ctx.Err()
		case <-s.queue.Wait():
		}
	}
}

// Dispose stops the session: observers are detached, timers stopped, the
// cache cleared and any in-flight cycle cancelled. It blocks until the
// loop has exited.
func (s *Session) Dispose() {
	s.lifeMu.Lock()
	if s.disposed {
		s.lifeMu.Unlock()
		<-s.done
		return
	}
	if !s.started {
		s.disposed = true
		s.lifeMu.Unlock()
		s.dispose()
		return
	}
	s.lifeMu.Unlock()

	s.queue.Enqueue(event{kind: evDispose})
	<-s.done
}

// QuantityChanged rescales one item and its summary without fetching. It
// does not touch the accepted fingerprint, so a later cart mutation still
// triggers a full recompute.
func (s *Session) QuantityChanged(itemID string, quantity int) {
	s.queue.Enqueue(event{kind: evQuantity, itemID: itemID, quantity: quantity})
}

// Listener returns the storefront listener that feeds this session.
func (s *Session) Listener() storefront.Listener {
	return sessionListener{s: s}
}

type sessionListener struct{ s *Session }

func (l sessionListener) OnMutation() { l.s.debouncer.Trigger() }

func (l sessionListener) OnResize(width float64) {
	l.s.queue.Enqueue(event{kind: evResize, width: width})
}

func (s *Session) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// WaitFor blocks until cond holds for the current status or ctx ends.
func (s *Session) WaitFor(ctx context.Context, cond func(Status) bool) (Status, error) {
	for {
		s.statusMu.RLock()
		st, ch := s.status, s.changed
		s.statusMu.RUnlock()
		if cond(st) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ch:
		}
	}
}

// Settled reports a status with no pending work after at least one cycle,
// or a terminal state.
func Settled(st Status) bool {
	switch st.State {
	case StateFailed.String(), StateDisposed.String():
		return true
	case StateReady.String():
		return !st.InFlight
	}
	return st.Inert
}

// handle applies one event. It reports true when the loop must exit.
func (s *Session) handle(ctx context.Context, ev event) bool {
	if s.state == StateDisposed {
		return true
	}
	switch ev.kind {
	case evAttachTick:
		s.onAttachTick(ctx)
	case evMutation:
		s.onMutation(ctx)
	case evQuantity:
		s.onQuantity(ctx, ev.itemID, ev.quantity)
	case evResize:
		s.onResize(ctx, ev.width)
	case evRecomputed:
		s.onRecomputed(ctx, ev.result)
	case evDispose:
		s.dispose()
		return true
	}
	return false
}

func (s *Session) tryAttach() bool {
	width, ok := s.deps.Observer.Attach(s.Listener())
	if ok {
		s.resize.Observe(width)
	}
	return ok
}

func (s *Session) onAttachTick(ctx context.Context) {
	if s.state == StateFailed {
		return
	}
	s.attachTimer = nil

	switch s.attacher.Tick() {
	case Attached:
		utils.Log().Debug().Str("session", s.id).Int("attempts", s.attacher.Attempts()).Msg("observer attached")
		if s.accepted != "" {
			s.reapply()
			return
		}
		if s.inFlight {
			// The running cycle renders once it completes.
			return
		}
		s.startCycle(ctx, true)
	case AttachPending:
		s.attachTimer = s.clock.AfterFunc(s.attachInterval, func() {
			s.queue.Enqueue(event{kind: evAttachTick})
		})
	case AttachExhausted:
		err := s.attacher.Err()
		utils.Log().Error().Str("session", s.id).Err(err).Msg("giving up on storefront")
		s.lastErr = err
		s.state = StateFailed
		s.deps.Sink.ShowError(err.Error())
	}
}

func (s *Session) attached() bool {
	return s.attacher.State() == Attached
}

func (s *Session) onMutation(ctx context.Context) {
	if !s.attached() || s.state == StateFailed {
		return
	}
	if s.inFlight {
		// The completion handler re-reads the fingerprint.
		return
	}
	fp := Fingerprint(s.deps.Extractor.ListEntries())
	if fp == s.accepted {
		s.reapply()
		return
	}
	s.startCycle(ctx, false)
}

// startCycle extracts fields on the loop goroutine and hands fetching,
// aggregation and rendering to a worker.
func (s *Session) startCycle(ctx context.Context, first bool) {
	entries := s.deps.Extractor.ListEntries()
	fp := Fingerprint(entries)
	cartState := CartState(entries)

	fields := make([]models.ItemFields, 0, len(entries))
	for _, e := range entries {
		f, err := s.deps.Extractor.ExtractFields(e)
		if err != nil {
			utils.Log().Warn().Str("session", s.id).Str("item", e.ID).Err(err).Msg("item skipped")
			continue
		}
		fields = append(fields, f)
	}
	if len(entries) > 0 && len(fields) == 0 {
		err := errs.NewExtraction("", "line items")
		s.lastErr = err
		s.state = StateReady
		s.deps.Sink.ShowError("Could not read any cart item, price comparison is unavailable.")
		utils.Log().Error().Str("session", s.id).Err(err).Msg("no item could be extracted")
		return
	}

	if first {
		s.state = StateFetching
	} else {
		s.state = StateRecomputing
	}
	s.cycle++
	s.inFlight = true
	cycleCtx, cancel := context.WithCancel(ctx)
	s.cancelCycle = cancel

	cycle := s.cycle
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		defer cancel()
		res := s.compute(cycleCtx, fields)
		res.cycle = cycle
		res.fingerprint = fp
		res.cartState = cartState
		s.queue.Enqueue(event{kind: evRecomputed, result: res})
	}()
}

// compute runs off the loop goroutine and touches no loop-owned state.
func (s *Session) compute(ctx context.Context, fields []models.ItemFields) *cycleResult {
	r, err := s.deps.Rates.Rates(ctx)
	if err != nil {
		return &cycleResult{err: fmt.Errorf("load rates: %w", err)}
	}
	norm := services.NewNormalizer(r)

	items, err := s.deps.Comparer.BuildItems(ctx, fields, s.markets, norm)
	if err != nil {
		return &cycleResult{err: err}
	}
	summary := services.Aggregate(items)

	batch, err := s.renderAll(items, summary)
	if err != nil {
		return &cycleResult{err: err}
	}
	return &cycleResult{items: items, summary: summary, norm: norm, batch: batch}
}

func (s *Session) renderAll(items []models.LineItem, summary models.SavingsSummary) (map[string]Fragment, error) {
	batch := make(map[string]Fragment, len(items)+1)
	for _, it := range items {
		html, err := s.renderItem(it)
		if err != nil {
			return nil, err
		}
		batch[ItemKey(it.ID)] = Fragment{Anchor: it.ID, HTML: html}
	}
	if len(items) > 0 {
		html, err := s.deps.Renderer.Summary(items, summary)
		if err != nil {
			return nil, errs.NewComputation("", "render summary", err)
		}
		batch[SummaryKey] = Fragment{Anchor: storefront.SummaryAnchor, HTML: html}
	}
	return batch, nil
}

// renderItem falls back to the degraded block when an item's comparison
// cannot be rendered.
func (s *Session) renderItem(it models.LineItem) (string, error) {
	html, err := s.deps.Renderer.Item(it)
	if err != nil && !it.Degraded {
		utils.Log().Warn().Str("session", s.id).Str("item", it.ID).Err(err).Msg("item rendered as unavailable")
		degraded := it.Clone()
		degraded.Degraded = true
		degraded.Err = err
		html, err = s.deps.Renderer.Item(degraded)
	}
	if err != nil {
		return "", errs.NewComputation(it.ID, "render item", err)
	}
	return html, nil
}

func (s *Session) onRecomputed(ctx context.Context, res *cycleResult) {
	if res == nil || res.cycle != s.cycle {
		return
	}
	s.inFlight = false
	s.cancelCycle = nil

	if res.err != nil {
		s.lastErr = res.err
		s.state = StateReady
		utils.Log().Error().Str("session", s.id).Int("cycle", res.cycle).Err(res.err).Msg("recompute failed, keeping previous output")
		if current := Fingerprint(s.deps.Extractor.ListEntries()); current != res.fingerprint {
			s.startCycle(ctx, false)
		}
		return
	}

	if current := Fingerprint(s.deps.Extractor.ListEntries()); current != res.fingerprint {
		utils.Log().Debug().Str("session", s.id).Int("cycle", res.cycle).Msg("cart moved during recompute, starting over")
		s.startCycle(ctx, false)
		return
	}

	for _, key := range s.cache.Commit(res.batch) {
		s.deps.Sink.Remove(key)
	}
	s.push(res.batch)
	s.accepted = res.fingerprint
	s.items = res.items
	s.summary = res.summary
	s.norm = res.norm
	s.lastErr = nil
	s.state = StateReady
	s.setCartState(res.cartState)
	utils.Log().Info().Str("session", s.id).Int("cycle", res.cycle).Int("items", len(res.items)).Msg("comparison rendered")
}

// push writes fragments to the sink, replacing content of nodes that are
// still present and re-inserting the rest.
func (s *Session) push(batch map[string]Fragment) {
	for key, f := range batch {
		if s.deps.Sink.Present(key) {
			s.deps.Sink.ReplaceContent(key, f.HTML)
			continue
		}
		s.deps.Sink.InsertAfter(f.Anchor, key, f.HTML)
	}
}

// reapply re-inserts cached fragments the storefront dropped. It never
// fetches.
func (s *Session) reapply() {
	s.state = StateReapplying
	restored := 0
	for _, key := range s.cache.Keys() {
		if s.deps.Sink.Present(key) {
			continue
		}
		f, _ := s.cache.Get(key)
		s.deps.Sink.InsertAfter(f.Anchor, key, f.HTML)
		restored++
	}
	s.reapplies++
	s.state = StateReady
	if restored > 0 {
		utils.Log().Debug().Str("session", s.id).Int("restored", restored).Msg("cached fragments reapplied")
	}
}

func (s *Session) onQuantity(ctx context.Context, itemID string, quantity int) {
	if s.state != StateReady || s.norm == nil {
		return
	}
	idx := -1
	for i, it := range s.items {
		if it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	old := s.items[idx]
	updated, err := services.Rescale(old, quantity, s.norm)
	if err != nil {
		s.lastErr = err
		utils.Log().Warn().Str("session", s.id).Str("item", itemID).Err(err).Msg("quantity rejected")
		return
	}

	items := append([]models.LineItem(nil), s.items...)
	items[idx] = updated
	summary := cloneSummary(s.summary)
	if err := services.ApplyItem(&summary, old, updated); err != nil {
		summary = services.Aggregate(items)
	}

	itemHTML, err := s.renderItem(updated)
	if err != nil {
		s.lastErr = err
		return
	}
	summaryHTML, err := s.deps.Renderer.Summary(items, summary)
	if err != nil {
		s.lastErr = errs.NewComputation("", "render summary", err)
		return
	}

	batch := map[string]Fragment{
		ItemKey(itemID): {Anchor: itemID, HTML: itemHTML},
		SummaryKey:      {Anchor: storefront.SummaryAnchor, HTML: summaryHTML},
	}
	s.cache.Merge(batch)
	s.push(batch)
	s.items = items
	s.summary = summary
	s.quick++
}

func (s *Session) onResize(ctx context.Context, width float64) {
	if !s.attached() || !s.resize.Observe(width) {
		return
	}
	utils.Log().Debug().Str("session", s.id).Float64("width", width).Msg("layout changed, reattaching")
	s.deps.Observer.Detach()
	s.attacher = NewAttacher(s.attachAttempts, s.tryAttach)
	s.onAttachTick(ctx)
}

func (s *Session) dispose() {
	s.lifeMu.Lock()
	s.disposed = true
	s.lifeMu.Unlock()

	s.queue.Close()
	s.debouncer.Stop()
	if s.attachTimer != nil {
		s.attachTimer.Stop()
		s.attachTimer = nil
	}
	if s.cancelCycle != nil {
		s.cancelCycle()
		s.cancelCycle = nil
	}
	s.workers.Wait()
	s.inFlight = false
	s.deps.Observer.Detach()
	s.cache.Clear()
	s.state = StateDisposed
	s.publish()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
	utils.Log().Info().Str("session", s.id).Msg("session disposed")
}

func (s *Session) setCartState(state string) {
	s.statusMu.Lock()
	s.status.CartState = state
	s.statusMu.Unlock()
}

// publish snapshots loop-owned state and wakes WaitFor callers.
func (s *Session) publish() {
	ids := make([]string, len(s.markets))
	for i, m := range s.markets {
		ids[i] = m.ID
	}
	var lastErr string
	if s.lastErr != nil {
		lastErr = s.lastErr.Error()
	}
	var unknown map[string]int
	if s.norm != nil {
		unknown = s.norm.UnknownRateHits()
	}

	s.statusMu.Lock()
	s.status = Status{
		ID:           s.id,
		State:        s.state.String(),
		Inert:        s.inert,
		Markets:      ids,
		Fingerprint:  s.accepted,
		CartState:    s.status.CartState,
		Cycles:       s.cycle,
		Reapplies:    s.reapplies,
		QuickUpdates: s.quick,
		CacheKeys:    s.cache.Keys(),
		Attempts:     s.attacher.Attempts(),
		LastError:    lastErr,
		UnknownRates: unknown,
		InFlight:     s.inFlight,
	}
	s.lastItems = s.items
	s.lastSummary = s.summary
	close(s.changed)
	s.changed = make(chan struct{})
	s.statusMu.Unlock()
}

// Items returns the last accepted line items and summary.
func (s *Session) Items() ([]models.LineItem, models.SavingsSummary) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return append([]models.LineItem(nil), s.lastItems...), s.lastSummary
}

func cloneSummary(in models.SavingsSummary) models.SavingsSummary {
	out := models.NewSavingsSummary()
	for k, v := range in.TotalDifference {
		out.TotalDifference[k] = v
	}
	for k, v := range in.CheaperOnlyDifference {
		out.CheaperOnlyDifference[k] = v
	}
	for k, v := range in.UnavailableCount {
		out.UnavailableCount[k] = v
	}
	for k, v := range in.UnavailableItems {
		out.UnavailableItems[k] = append([]string(nil), v...)
	}
	out.PerItemBestStrategy = append(out.PerItemBestStrategy, in.PerItemBestStrategy...)
	return out
}
