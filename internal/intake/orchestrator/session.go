// Package orchestrator drives one intake session. Edits are masked and
// applied synchronously and available power is derived inline. The postal and
// geocoding branches resolve in the background, and only the most recently
// initiated request of each branch may change the snapshot.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/events"
	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
	"solarintake/internal/intake/power"
	"solarintake/internal/intake/validation"
	"solarintake/internal/lookup/geocoding"
	"solarintake/internal/lookup/metrics"
	"solarintake/internal/lookup/postal"
	"solarintake/internal/lookup/providers"
	"solarintake/internal/proposal"
	dErrors "solarintake/pkg/domain-errors"
	"solarintake/pkg/platform/sentinel"
	"solarintake/pkg/requestcontext"
)

// PostalResolver resolves an 8-digit postal code to an address fragment.
type PostalResolver interface {
	Resolve(ctx context.Context, code string) (*models.AddressFragment, error)
}

// Geocoder resolves a free-text query to a coordinate.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (geodesy.Coordinate, error)
}

// ProposalGenerator never fails; see proposal.Service.
type ProposalGenerator interface {
	Generate(ctx context.Context, req proposal.Request) string
}

const (
	DefaultDebounceWindow = time.Second

	branchPostal    = "postal"
	branchGeocoding = "geocoding"
)

type branch struct {
	state      State
	outcome    Outcome
	generation uint64
	cancel     context.CancelFunc
	requestID  string
}

// supersede invalidates whatever the branch is doing and returns the new
// generation.
func (b *branch) supersede() uint64 {
	b.generation++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.state = StateIdle
	return b.generation
}

func (b *branch) status() BranchStatus {
	return BranchStatus{State: b.state, Outcome: b.outcome, Generation: b.generation}
}

// Session owns one form snapshot. All methods are safe for concurrent use.
type Session struct {
	id        uuid.UUID
	postal    PostalResolver
	geocoder  Geocoder
	proposals ProposalGenerator
	emitter   events.Emitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     Clock
	observer  func(View)
	debounce  time.Duration
	qualifier string

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.Mutex
	snap       models.Snapshot
	errs       map[models.FieldName]validation.ErrorKind
	coord      *geodesy.Coordinate
	projected  geodesy.Projected
	postalBr   branch
	lastPostal string
	geoBr      branch
	timer      Timer
	version    uint64
	lastActive time.Time
	closed     bool
}

type Option func(*Session)

func WithDebounce(d time.Duration) Option { return func(s *Session) { s.debounce = d } }

func WithCountryQualifier(q string) Option { return func(s *Session) { s.qualifier = q } }

func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

func WithEmitter(e events.Emitter) Option { return func(s *Session) { s.emitter = e } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Session) { s.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

func WithProposals(p ProposalGenerator) Option { return func(s *Session) { s.proposals = p } }

// WithObserver registers a callback invoked after every state change, outside
// the session lock. Deliveries from background lookups may interleave; use
// View.Version to order them.
func WithObserver(fn func(View)) Option { return func(s *Session) { s.observer = fn } }

func NewSession(id uuid.UUID, postalResolver PostalResolver, geocoder Geocoder, opts ...Option) *Session {
	s := &Session{
		id:        id,
		postal:    postalResolver,
		geocoder:  geocoder,
		debounce:  DefaultDebounceWindow,
		qualifier: geocoding.DefaultCountryQualifier,
		clock:     systemClock{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		snap:      models.NewSnapshot(),
		errs:      make(map[models.FieldName]validation.ErrorKind),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.proposals == nil {
		s.proposals = proposal.NewService(nil, s.logger)
	}
	s.logger = s.logger.With("session_id", id.String())
	s.ctx, s.stop = context.WithCancel(requestcontext.WithSessionID(context.Background(), id))
	s.postalBr.state = StateIdle
	s.geoBr.state = StateIdle
	s.lastActive = s.clock.Now()
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

// LastActive is the time of the last edit, prefill, or finalize.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Apply masks and stores one edit, recomputes available power, and starts
// the lookups the edit qualifies for. It never blocks on a lookup.
func (s *Session) Apply(ctx context.Context, edit models.RawFieldEdit) (View, error) {
	if !edit.Field.IsValid() {
		return View{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown field %q", edit.Field))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, sentinel.ErrClosed
	}
	s.applyLocked(requestcontext.RequestID(ctx), edit.Field, edit.Value)
	view := s.changedLocked()
	s.mu.Unlock()

	s.notify(view)
	return view, nil
}

func (s *Session) applyLocked(requestID string, f models.FieldName, raw string) {
	before := s.snap.Get(f)
	s.snap.Set(f, masking.Mask(masking.ForField(f, s.snap.Personal.IDDocType), raw))
	delete(s.errs, f)

	if f == models.FieldIDDocType {
		kind := masking.ForField(models.FieldIDDocNumber, s.snap.Personal.IDDocType)
		s.snap.Personal.IDDocNumber = masking.Mask(kind, s.snap.Personal.IDDocNumber)
	}
	power.Apply(&s.snap.Electrical)

	if f == models.FieldPostalCode {
		s.postalEditedLocked(requestID)
	}
	if f.IsAddressField() && s.snap.Get(f) != before {
		s.scheduleGeocodeLocked(requestID)
	}
	s.lastActive = s.clock.Now()
}

// Prefill replaces the snapshot with an existing client record. The address
// change counts as a qualifying geocoding edit; the postal code is taken as
// already resolved.
func (s *Session) Prefill(ctx context.Context, c models.ExistingClient) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, sentinel.ErrClosed
	}

	before := s.snap.Address
	snap := models.NewSnapshot()
	snap.Personal.Name = c.Name
	snap.Personal.Email = masking.Mask(masking.Email, c.Email)
	snap.Personal.Phone = masking.Mask(masking.Phone, c.Phone)
	if c.Status != "" {
		snap.Personal.ClientStatus = c.Status
	}
	snap.Installation.Consumption = strconv.FormatFloat(c.AvgConsumption, 'f', -1, 64)
	snap.Address.Street, snap.Address.Number = models.SplitStreetNumber(c.InstallationAddress)
	snap.Address.City = c.City
	snap.Address.Region = c.State
	snap.Address.PostalCode = masking.Mask(masking.PostalCode, c.PostalCode)
	if p, ok := models.ParsePhase(c.ConnectionType); ok {
		snap.Electrical.Phase = p
	}
	power.Apply(&snap.Electrical)

	s.snap = snap
	s.errs = make(map[models.FieldName]validation.ErrorKind)
	s.postalBr.supersede()
	s.lastPostal = ""
	if digits := masking.Digits(snap.Address.PostalCode, 0); len(digits) == postal.CodeLength {
		s.lastPostal = digits
	}

	requestID := requestcontext.RequestID(ctx)
	if snap.Address != before {
		s.scheduleGeocodeLocked(requestID)
	}
	s.lastActive = s.clock.Now()
	view := s.changedLocked()
	s.mu.Unlock()

	s.notify(view)
	return view, nil
}

// Validate runs every field rule and records the result as the session's
// field errors. A postal lookup error survives unless the postal code itself
// fails validation. Lookup errors do not make the result invalid.
func (s *Session) Validate(ctx context.Context) (View, validation.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, nil, sentinel.ErrClosed
	}

	res := validation.Validate(s.snap)
	lookupErr, hadLookupErr := s.errs[models.FieldPostalCode]
	s.errs = make(map[models.FieldName]validation.ErrorKind, len(res))
	for f, kind := range res {
		s.errs[f] = kind
	}
	if _, invalid := res[models.FieldPostalCode]; hadLookupErr && !invalid && isLookupError(lookupErr) {
		s.errs[models.FieldPostalCode] = lookupErr
	}
	view := s.changedLocked()
	s.mu.Unlock()

	if !res.Valid() {
		s.logger.InfoContext(ctx, "intake validation failed", "fields", len(res))
	}
	s.notify(view)
	return view, res, nil
}

// Proposal is the finalized output handed back to the caller.
type Proposal struct {
	Request proposal.Request `json:"request"`
	Text    string           `json:"text"`
}

// Finalize validates the snapshot and, when it is valid, asks the proposal
// generator for the commercial text. Only the client name, consumption, and
// city leave the session.
func (s *Session) Finalize(ctx context.Context) (Proposal, validation.Result, error) {
	_, res, err := s.Validate(ctx)
	if err != nil {
		return Proposal{}, nil, err
	}
	if !res.Valid() {
		return Proposal{}, res, dErrors.New(dErrors.CodeValidation, "intake has invalid fields")
	}

	s.mu.Lock()
	req := proposal.RequestFromSnapshot(s.snap)
	s.lastActive = s.clock.Now()
	s.mu.Unlock()

	return Proposal{Request: req, Text: s.proposals.Generate(ctx, req)}, res, nil
}

// Close cancels the debounce timer and in-flight lookups and waits for the
// lookup goroutines to return. Further calls fail with sentinel.ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.postalBr.supersede()
	s.geoBr.supersede()
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

func (s *Session) postalEditedLocked(requestID string) {
	digits := masking.Digits(s.snap.Address.PostalCode, 0)
	if digits == s.lastPostal {
		return
	}
	if len(digits) != postal.CodeLength {
		s.postalBr.supersede()
		s.lastPostal = ""
		return
	}
	s.lastPostal = digits
	s.startPostalLocked(requestID, digits)
}

func (s *Session) startPostalLocked(requestID, code string) {
	gen := s.postalBr.supersede()
	ctx, cancel := context.WithCancel(requestcontext.WithRequestID(s.ctx, requestID))
	s.postalBr.cancel = cancel
	s.postalBr.state = StateResolving
	s.postalBr.requestID = requestID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		frag, err := s.postal.Resolve(ctx, code)
		s.completePostal(ctx, gen, code, frag, err)
	}()
}

func (s *Session) completePostal(ctx context.Context, gen uint64, code string, frag *models.AddressFragment, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if gen != s.postalBr.generation {
		s.mu.Unlock()
		s.metrics.RecordStaleResult(branchPostal)
		s.logger.DebugContext(ctx, "discarded stale postal result", "postal_code", code, "generation", gen)
		return
	}

	s.postalBr.cancel = nil
	s.postalBr.state = StateIdle
	ev := events.Event{SessionID: s.id, Generation: gen, PostalCode: code}

	if err != nil || frag == nil {
		kind := validation.LookupUnavailable
		if providers.IsNotFound(err) {
			kind = validation.NotFound
		}
		s.postalBr.outcome = OutcomeFailed
		s.errs[models.FieldPostalCode] = kind
		ev.Type = events.PostalLookupFailed
		ev.Reason = string(providers.GetCategory(err))
		s.logger.InfoContext(ctx, "postal lookup failed", "postal_code", code, "reason", ev.Reason, "error", err)
	} else {
		s.postalBr.outcome = OutcomeResolved
		frag.Apply(&s.snap.Address)
		delete(s.errs, models.FieldPostalCode)
		ev.Type = events.AddressResolved
		ev.Address = frag
		s.scheduleGeocodeLocked(s.postalBr.requestID)
	}
	view := s.changedLocked()
	s.mu.Unlock()

	s.emit(ctx, ev)
	s.notify(view)
}

// scheduleGeocodeLocked restarts the debounce window. An insufficient
// address leaves the branch idle.
func (s *Session) scheduleGeocodeLocked(requestID string) {
	gen := s.geoBr.supersede()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.geoBr.requestID = requestID
	if !geocoding.Sufficient(s.snap.Address) {
		return
	}
	s.geoBr.state = StatePendingDebounce
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fireGeocode(gen) })
}

func (s *Session) fireGeocode(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.geoBr.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	// the query is built from the snapshot as it is now, not as it was when
	// the window opened
	query, ok := geocoding.BuildQuery(s.snap.Address, s.qualifier)
	if !ok {
		s.geoBr.state = StateIdle
		view := s.changedLocked()
		s.mu.Unlock()
		s.notify(view)
		return
	}

	ctx, cancel := context.WithCancel(requestcontext.WithRequestID(s.ctx, s.geoBr.requestID))
	s.geoBr.cancel = cancel
	s.geoBr.state = StateResolving
	s.wg.Add(1)
	view := s.changedLocked()
	s.mu.Unlock()

	s.notify(view)
	go func() {
		defer s.wg.Done()
		defer cancel()
		coord, err := s.geocoder.Resolve(ctx, query.Text)
		s.completeGeocode(ctx, gen, query.Text, coord, err)
	}()
}

func (s *Session) completeGeocode(ctx context.Context, gen uint64, query string, coord geodesy.Coordinate, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if gen != s.geoBr.generation {
		s.mu.Unlock()
		s.metrics.RecordStaleResult(branchGeocoding)
		s.logger.DebugContext(ctx, "discarded stale geocoding result", "generation", gen)
		return
	}

	s.geoBr.cancel = nil
	s.geoBr.state = StateIdle
	ev := events.Event{SessionID: s.id, Generation: gen, Query: query}

	if err != nil {
		// the previous coordinate stays; no field error is raised
		s.geoBr.outcome = OutcomeFailed
		ev.Type = events.GeocodingFailed
		ev.Reason = string(providers.GetCategory(err))
		s.logger.InfoContext(ctx, "geocoding failed", "reason", ev.Reason, "error", err)
	} else {
		c := coord
		projected := geodesy.ProjectCoordinate(c)
		s.coord = &c
		s.projected = projected
		s.geoBr.outcome = OutcomeResolved
		ev.Type = events.CoordinateResolved
		ev.Coordinate = &coord
		ev.Projected = &projected
	}
	view := s.changedLocked()
	s.mu.Unlock()

	s.emit(ctx, ev)
	s.notify(view)
}

func (s *Session) changedLocked() View {
	s.version++
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID: s.id,
		Version:   s.version,
		Snapshot:  s.snap,
		Postal:    s.postalBr.status(),
		Geocoding: s.geoBr.status(),
	}
	if len(s.errs) > 0 {
		v.Errors = make(map[models.FieldName]FieldError, len(s.errs))
		for f, kind := range s.errs {
			v.Errors[f] = FieldError{Kind: kind, Message: kind.Message()}
		}
	}
	if s.coord != nil {
		c := *s.coord
		v.Coordinate = &c
		if !s.projected.IsZero() {
			p := s.projected
			v.Projection = &p
		}
	}
	return v
}

func (s *Session) notify(v View) {
	if s.observer != nil {
		s.observer(v)
	}
}

func (s *Session) emit(ctx context.Context, e events.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(context.WithoutCancel(ctx), e); err != nil {
		s.logger.WarnContext(ctx, "failed to emit intake event", "type", e.Type, "error", err)
	}
}

func isLookupError(kind validation.ErrorKind) bool {
	return kind == validation.NotFound || kind == validation.LookupUnavailable
}
