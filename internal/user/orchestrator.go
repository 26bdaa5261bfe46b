package user

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/utilities"
)

// DefaultPageSize is the number of users requested per list call.
const DefaultPageSize = 10

var (
	ErrNotMounted      = errors.New("user list is not mounted")
	ErrWrongMode       = errors.New("operation not available in the current mode")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrInvalidInterval = errors.New("refresh interval must be one of 5, 10, 20, 30 or 60 seconds")
)

// Fetcher is the part of the remote the list needs.
type Fetcher interface {
	FetchPage(ctx context.Context, limit, offset int) (*entity.Page, error)
}

type Options struct {
	PageSize        int
	RefreshInterval int
	AutoRefresh     bool
	Clock           clockwork.Clock
	Logger          *zap.SugaredLogger
}

// Snapshot is the read-only view of the list handed to presentation.
type Snapshot struct {
	Session        string        `json:"session"`
	Mounted        bool          `json:"mounted"`
	Mode           Mode          `json:"mode"`
	Users          []entity.User `json:"users"`
	Total          int           `json:"total"`
	Cursor         int           `json:"cursor"`
	PageIndex      int           `json:"page_index"`
	PageCount      int           `json:"page_count"`
	HasMore        bool          `json:"has_more"`
	IsLoading      bool          `json:"is_loading"`
	IsFetchingMore bool          `json:"is_fetching_more"`
	Error          string        `json:"error,omitempty"`
	Refresh        RefreshPolicy `json:"refresh"`
	Pending        []Ticket      `json:"pending"`
	Notice         *Notice       `json:"notice,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type retrievalState struct {
	session      string
	mode         Mode
	pages        []entity.Page // Paged mode holds at most one
	cursor       int
	pageIndex    int
	loading      bool
	fetchingMore bool
	latest       uint64
	moreSeq      uint64
	err          string
	updatedAt    time.Time
}

func (st *retrievalState) total() int {
	if len(st.pages) == 0 {
		return 0
	}
	return st.pages[len(st.pages)-1].Total
}

func (st *retrievalState) hasMore(pageSize int) bool {
	if len(st.pages) == 0 {
		return false
	}
	if st.mode == ModePaged {
		return st.pageIndex+1 < pageCount(st.total(), pageSize)
	}
	last := st.pages[len(st.pages)-1]
	return last.Len() > 0 && st.cursor < last.Total
}

func pageCount(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

type fetchKind int

const (
	replaceFetch fetchKind = iota
	appendFetch
)

type fetchReq struct {
	session   string
	seq       uint64
	kind      fetchKind
	offset    int
	count     int
	pageIndex int
}

// Orchestrator owns the retrieval state and the refresh policy. The mutex
// is never held across a remote call; a result is applied only when its
// sequence number is still the latest issued for the current session.
type Orchestrator struct {
	fetcher  Fetcher
	pageSize int
	clock    clockwork.Clock
	logger   *zap.SugaredLogger
	tickets  *Tickets
	notices  *Notifier

	mu           sync.Mutex
	state        *retrievalState
	policy       RefreshPolicy
	seq          uint64
	listeners    map[int]func(Snapshot)
	nextListener int
}

func NewOrchestrator(f Fetcher, opts Options) *Orchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if !ValidInterval(opts.RefreshInterval) {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	o := &Orchestrator{
		fetcher:  f,
		pageSize: opts.PageSize,
		clock:    opts.Clock,
		logger:   opts.Logger,
		policy: RefreshPolicy{
			Enabled:          opts.AutoRefresh,
			IntervalSeconds:  opts.RefreshInterval,
			RemainingSeconds: opts.RefreshInterval,
		},
	}
	o.tickets = newTickets(o.publish)
	o.notices = newNotifier(o.clock, o.publish)
	return o
}

// PageSize is the number of users requested per page.
func (o *Orchestrator) PageSize() int { return o.pageSize }

// Tickets returns the pending-mutation markers shown on snapshots.
func (o *Orchestrator) Tickets() *Tickets { return o.tickets }

// Notices returns the success notice shown on snapshots.
func (o *Orchestrator) Notices() *Notifier { return o.notices }

func (o *Orchestrator) Clock() clockwork.Clock { return o.clock }

// Mount creates a fresh retrieval state for mode and fetches its first page.
// Mounting an already mounted list starts it over.
func (o *Orchestrator) Mount(ctx context.Context, mode Mode) error {
	return o.rebuild(ctx, mode, false)
}

// Unmount discards the retrieval state. Results still in flight are dropped
// when they arrive.
func (o *Orchestrator) Unmount() {
	o.mu.Lock()
	o.state = nil
	o.mu.Unlock()
	metrics.SetCachedUsers(0)
	o.publish()
}

// SwitchMode throws away every cached page and starts mode from its first page.
func (o *Orchestrator) SwitchMode(ctx context.Context, mode Mode) error {
	return o.rebuild(ctx, mode, true)
}

// Reset starts the current mode over from its first page.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	if o.state == nil {
		o.mu.Unlock()
		return ErrNotMounted
	}
	mode := o.state.mode
	o.mu.Unlock()
	return o.rebuild(ctx, mode, true)
}

func (o *Orchestrator) rebuild(ctx context.Context, mode Mode, mustBeMounted bool) error {
	if mode != ModeIncremental && mode != ModePaged {
		return ErrInvalidMode
	}
	o.mu.Lock()
	if mustBeMounted && o.state == nil {
		o.mu.Unlock()
		return ErrNotMounted
	}
	o.state = &retrievalState{session: utilities.NewSessionID(), mode: mode}
	req := o.issueLocked(replaceFetch, 0, 1, 0)
	o.mu.Unlock()

	o.logger.Debugw("list session started", "session", req.session, "mode", mode.String())
	return o.execute(ctx, req)
}

// LoadMore appends the next page in Incremental mode. It does nothing while
// another page is loading, while a replacing fetch is in flight, or once
// every user has been retrieved.
func (o *Orchestrator) LoadMore(ctx context.Context) error {
	o.mu.Lock()
	st := o.state
	if st == nil {
		o.mu.Unlock()
		return ErrNotMounted
	}
	if st.mode != ModeIncremental {
		o.mu.Unlock()
		return ErrWrongMode
	}
	if st.fetchingMore || st.loading || !st.hasMore(o.pageSize) {
		o.mu.Unlock()
		return nil
	}
	req := o.issueLocked(appendFetch, st.cursor, 1, 0)
	o.mu.Unlock()
	return o.execute(ctx, req)
}

// GoToPage loads page n in Paged mode, clamping n to the known page range.
func (o *Orchestrator) GoToPage(ctx context.Context, n int) error {
	o.mu.Lock()
	st := o.state
	if st == nil {
		o.mu.Unlock()
		return ErrNotMounted
	}
	if st.mode != ModePaged {
		o.mu.Unlock()
		return ErrWrongMode
	}
	if last := pageCount(st.total(), o.pageSize) - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	req := o.issueLocked(replaceFetch, n*o.pageSize, 1, n)
	o.mu.Unlock()
	return o.execute(ctx, req)
}

// Refresh re-fetches the data on display in place and restarts the countdown.
// Incremental mode re-reads every cached page in order from offset zero.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	if o.state == nil {
		o.mu.Unlock()
		return ErrNotMounted
	}
	o.policy.reset()
	req := o.refreshLocked()
	o.mu.Unlock()
	return o.execute(ctx, req)
}

// SetRefreshInterval changes the countdown length. It does not fetch.
func (o *Orchestrator) SetRefreshInterval(seconds int) error {
	if !ValidInterval(seconds) {
		return ErrInvalidInterval
	}
	o.mu.Lock()
	o.policy.IntervalSeconds = seconds
	o.policy.reset()
	o.mu.Unlock()
	o.publish()
	return nil
}

// ToggleAutoRefresh flips auto-refresh and returns the resulting policy.
func (o *Orchestrator) ToggleAutoRefresh() RefreshPolicy {
	o.mu.Lock()
	o.policy.Enabled = !o.policy.Enabled
	if o.policy.Enabled {
		o.policy.reset()
	}
	p := o.policy
	o.mu.Unlock()
	o.publish()
	return p
}

// Tick advances the countdown by one second. When it runs out the current
// data is re-fetched in place and the countdown starts over.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.mu.Lock()
	if !o.policy.Enabled || o.state == nil {
		o.mu.Unlock()
		return nil
	}
	o.policy.RemainingSeconds--
	if o.policy.RemainingSeconds > 0 {
		o.mu.Unlock()
		o.publish()
		return nil
	}
	o.policy.reset()
	req := o.refreshLocked()
	o.mu.Unlock()
	return o.execute(ctx, req)
}

// Policy returns the current refresh policy.
func (o *Orchestrator) Policy() RefreshPolicy {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.policy
}

// Mode returns the mode of the mounted list.
func (o *Orchestrator) Mode() (Mode, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil {
		return 0, ErrNotMounted
	}
	return o.state.mode, nil
}

// Snapshot returns the current view, users merged across pages with
// duplicates removed.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	snap := Snapshot{Refresh: o.policy, Users: []entity.User{}}
	if st := o.state; st != nil {
		snap.Session = st.session
		snap.Mounted = true
		snap.Mode = st.mode
		snap.Users = mergeUsers(st.pages)
		snap.Total = st.total()
		snap.Cursor = st.cursor
		snap.PageIndex = st.pageIndex
		snap.PageCount = pageCount(snap.Total, o.pageSize)
		snap.HasMore = st.hasMore(o.pageSize)
		snap.IsLoading = st.loading
		snap.IsFetchingMore = st.fetchingMore
		snap.Error = st.err
		snap.UpdatedAt = st.updatedAt
	}
	o.mu.Unlock()

	snap.Pending = o.tickets.List()
	snap.Notice = o.notices.Current()
	return snap
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func removes it. fn runs on the goroutine that made the change.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	o.mu.Lock()
	if o.listeners == nil {
		o.listeners = make(map[int]func(Snapshot))
	}
	o.nextListener++
	id := o.nextListener
	o.listeners[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Orchestrator) publish() {
	o.mu.Lock()
	if len(o.listeners) == 0 {
		o.mu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	snap := o.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

func (o *Orchestrator) refreshLocked() fetchReq {
	st := o.state
	if st.mode == ModePaged {
		return o.issueLocked(replaceFetch, st.pageIndex*o.pageSize, 1, st.pageIndex)
	}
	count := len(st.pages)
	if count == 0 {
		count = 1
	}
	return o.issueLocked(replaceFetch, 0, count, 0)
}

func (o *Orchestrator) issueLocked(kind fetchKind, offset, count, pageIndex int) fetchReq {
	o.seq++
	st := o.state
	st.latest = o.seq
	if kind == appendFetch {
		st.fetchingMore = true
		st.moreSeq = o.seq
	} else {
		st.loading = true
	}
	return fetchReq{
		session:   st.session,
		seq:       o.seq,
		kind:      kind,
		offset:    offset,
		count:     count,
		pageIndex: pageIndex,
	}
}

func (o *Orchestrator) execute(ctx context.Context, req fetchReq) error {
	o.publish()
	pages, err := o.load(ctx, req)
	return o.apply(ctx, req, pages, err)
}

// load reads req.count consecutive pages starting at req.offset, stopping
// early on a short page.
func (o *Orchestrator) load(ctx context.Context, req fetchReq) ([]entity.Page, error) {
	o.logger.Debugw("fetch issued",
		"session", req.session,
		"seq", req.seq,
		"offset", req.offset,
		"pages", req.count,
	)
	out := make([]entity.Page, 0, req.count)
	offset := req.offset
	for i := 0; i < req.count; i++ {
		p, err := o.fetcher.FetchPage(ctx, o.pageSize, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
		offset += p.Len()
		if p.Len() < o.pageSize {
			break
		}
	}
	return out, nil
}

func (o *Orchestrator) apply(ctx context.Context, req fetchReq, pages []entity.Page, err error) error {
	o.mu.Lock()
	st := o.state
	if st == nil || st.session != req.session {
		o.mu.Unlock()
		o.dropped(req, "session ended")
		return nil
	}
	if req.seq != st.latest {
		if req.kind == appendFetch && st.moreSeq == req.seq {
			st.fetchingMore = false
		}
		o.mu.Unlock()
		o.dropped(req, "superseded")
		o.publish()
		return nil
	}

	st.loading = false
	st.fetchingMore = false
	st.updatedAt = o.clock.Now()
	o.policy.reset()
	if err != nil {
		st.err = DisplayMessage(err)
		o.mu.Unlock()
		o.logger.Warnw("fetch failed", "session", req.session, "seq", req.seq, "err", err)
		o.publish()
		return err
	}

	st.err = ""
	if req.kind == replaceFetch && st.mode == ModePaged && len(pages) > 0 {
		// the page on display can fall off the end after a delete
		if last := pageCount(pages[0].Total, o.pageSize) - 1; last >= 0 && req.pageIndex > last {
			next := o.issueLocked(replaceFetch, last*o.pageSize, 1, last)
			o.mu.Unlock()
			o.logger.Debugw("page out of range, clamping", "page", req.pageIndex, "last", last)
			return o.execute(ctx, next)
		}
	}
	switch {
	case req.kind == appendFetch:
		st.pages = append(st.pages, pages...)
		for _, p := range pages {
			st.cursor += p.Len()
		}
	case st.mode == ModePaged:
		st.pages = pages
		st.pageIndex = req.pageIndex
		st.cursor = req.offset
	default:
		st.pages = pages
		st.cursor = 0
		for _, p := range pages {
			st.cursor += p.Len()
		}
	}
	cached := 0
	for _, p := range st.pages {
		cached += p.Len()
	}
	o.mu.Unlock()

	metrics.SetCachedUsers(cached)
	o.publish()
	return nil
}

func (o *Orchestrator) dropped(req fetchReq, reason string) {
	metrics.StaleDropped()
	o.logger.Debugw("fetch result dropped", "session", req.session, "seq", req.seq, "reason", reason)
}

func mergeUsers(pages []entity.Page) []entity.User {
	seen := make(map[int64]struct{})
	out := make([]entity.User, 0)
	for _, p := range pages {
		for _, u := range p.Users {
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// DisplayMessage turns an error into the text shown to the user.
func DisplayMessage(err error) string {
	var re *userrepo.RequestError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
