package viewstate

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
	"github.com/naughtyden-us/naughty-den/pkg/verification"
)

// ProfileStore is the document store the session reads and writes profiles through.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
	Create(ctx context.Context, p models.Profile) (models.Profile, error)
	Update(ctx context.Context, uid string, patch models.ProfilePatch) (models.Profile, error)
}

// Auth is the per-session identity provider client. Sign-in results arrive
// through the OnAuthStateChanged listener, not through the return values.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (models.User, error)
	SignUp(ctx context.Context, email, password, displayName string) (models.User, error)
	SignInAnonymously(ctx context.Context) (models.User, error)
	SignInWithCustomToken(ctx context.Context, token string) (models.User, error)
	SignOut(ctx context.Context) error
	OnAuthStateChanged(fn func(*models.User)) func()
}

// Content supplies the listing data loaded at boot.
type Content interface {
	Creators() []models.Creator
	Posts(req models.PageRequest) ([]models.Post, models.PaginationResponse)
}

type Deps struct {
	Profiles  ProfileStore
	Auth      Auth
	Verifier  verification.Adapter
	Persister Persister
	Content   Content
}

type Options struct {
	BootDelay    time.Duration
	DeclineURL   string
	Verification verification.SessionConfig
	Retries      int
	RetryDelay   time.Duration
}

var (
	ErrGated               = apperr.Newf(apperr.ContentAccessDenied, "Please confirm you are 18 or older to continue")
	ErrVerificationPending = apperr.Newf(apperr.ContentAccessDenied, "A verification is already in progress")
	errNoProfile           = apperr.New(apperr.AuthRequired)
	errUnavailable         = apperr.Newf(apperr.SystemError, "This feature is not available")
)

// Session drives one client's State. All state changes go through dispatch,
// which applies Reduce under the session lock.
type Session struct {
	id   string
	opts Options
	deps Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  func()

	mu             sync.Mutex
	state          State
	gen            uint64
	saved          []byte
	subs           map[int]func(State)
	nextSub        int
	pendingCreator bool
	lastActive     time.Time
	kyc            *pendingVerification
}

func NewSession(id string, opts Options, deps Deps) *Session {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		opts:       opts,
		deps:       deps,
		ctx:        ctx,
		cancel:     cancel,
		state:      Initial(),
		subs:       make(map[int]func(State)),
		lastActive: timeutil.Now(),
	}
	if deps.Auth != nil {
		s.unsub = deps.Auth.OnAuthStateChanged(func(u *models.User) {
			_ = s.OnAuthStateChanged(s.ctx, u)
		})
	}
	return s
}

func (s *Session) ID() string { return s.id }

// LastActive is the time of the most recent dispatch.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns the current state. Callers must treat its slices as read-only.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new state.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Dispatch applies a and returns the resulting state.
func (s *Session) Dispatch(a Action) State {
	st, _ := s.dispatch(0, a)
	return st
}

// dispatch applies a unless gen is non-zero and a newer auth event superseded it.
func (s *Session) dispatch(gen uint64, a Action) (State, bool) {
	s.mu.Lock()
	if gen != 0 && gen != s.gen {
		st := s.state
		s.mu.Unlock()
		return st, false
	}
	if d, ok := a.(DeclineDisclaimer); ok && d.URL == "" {
		d.URL = s.opts.DeclineURL
		a = d
	}
	s.state = Reduce(s.state, a)
	s.lastActive = timeutil.Now()
	s.persistLocked()
	st := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	logger.Debug("session_dispatch", "session_id", s.id, "action", actionName(a))
	for _, fn := range fns {
		fn(st)
	}
	return st, true
}

func (s *Session) persistLocked() {
	if s.deps.Persister == nil {
		return
	}
	enc := encodePersisted(s.state.Persisted())
	if bytes.Equal(enc, s.saved) {
		return
	}
	if err := s.deps.Persister.Save(context.Background(), s.state.Persisted()); err != nil {
		logger.Warn("session_persist_failed", "session_id", s.id, "error", err)
		return
	}
	s.saved = enc
}

// Boot restores the persisted slice, loads listings, waits out the boot
// delay and then finishes loading.
func (s *Session) Boot(ctx context.Context) error {
	if p := s.deps.Persister; p != nil {
		saved, ok, err := p.Load(ctx)
		switch {
		case err != nil:
			logger.Warn("session_restore_failed", "session_id", s.id, "error", err)
		case ok:
			s.mu.Lock()
			s.saved = encodePersisted(saved)
			s.mu.Unlock()
			s.Dispatch(Restored{Persisted: saved})
		}
	}
	if c := s.deps.Content; c != nil {
		s.Dispatch(SetCreators{Creators: c.Creators()})
		posts, _ := c.Posts(models.PageRequest{})
		s.Dispatch(SetPosts{Posts: posts})
	}

	if d := s.opts.BootDelay; d > 0 {
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-s.ctx.Done():
			t.Stop()
			return s.ctx.Err()
		case <-t.C:
		}
	}
	s.Dispatch(BootFinished{})
	logger.Info("session_booted", "session_id", s.id)
	return nil
}

func (s *Session) bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// OnAuthStateChanged handles an identity provider event. A nil user signs
// the session out. For a signed-in user the profile is looked up, created
// once if absent, and the result applied only if no newer event arrived
// in the meantime.
func (s *Session) OnAuthStateChanged(ctx context.Context, u *models.User) error {
	gen := s.bump()
	s.abandonVerification("auth_changed")
	if u == nil {
		s.dispatch(gen, SignedOut{})
		return nil
	}
	p, created, err := s.loadOrCreate(ctx, *u)
	if err != nil {
		e := apperr.Translate(err)
		logger.Error("profile_load_failed", "session_id", s.id, "uid", u.UID, "error", err)
		s.dispatch(gen, SetError{Err: e})
		return e
	}
	if _, ok := s.dispatch(gen, SignedIn{User: *u, Profile: p, Created: created}); !ok {
		logger.Debug("auth_result_discarded", "session_id", s.id, "uid", u.UID)
		return nil
	}
	s.mu.Lock()
	stale := s.kyc != nil && s.kyc.uid != u.UID
	s.mu.Unlock()
	if stale {
		s.abandonVerification("account_changed")
	}
	logger.Info("session_signed_in", "session_id", s.id, "uid", u.UID, "profile_created", created)
	return nil
}

func (s *Session) loadOrCreate(ctx context.Context, u models.User) (models.Profile, bool, error) {
	if s.deps.Profiles == nil {
		return models.Profile{}, false, errUnavailable
	}
	p, err := apperr.Retry(ctx, func(ctx context.Context) (models.Profile, error) {
		return s.deps.Profiles.Get(ctx, u.UID)
	}, s.opts.Retries, s.opts.RetryDelay)
	if err == nil {
		return p, false, nil
	}
	if apperr.Translate(err).Code != apperr.StorageNotFound {
		return models.Profile{}, false, err
	}

	s.mu.Lock()
	np := models.NewProfile(u, timeutil.Now().UTC())
	np.IsCreator = s.pendingCreator
	s.pendingCreator = false
	s.mu.Unlock()

	created, err := s.deps.Profiles.Create(ctx, np)
	if err != nil {
		// another writer created it first
		if existing, gerr := s.deps.Profiles.Get(ctx, u.UID); gerr == nil {
			return existing, false, nil
		}
		return models.Profile{}, false, err
	}
	return created, true, nil
}

// Credentials select one sign-in method.
type Credentials struct {
	Method      string `json:"method"` // password | signup | anonymous | token
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	IsCreator   bool   `json:"isCreator,omitempty"`
	Token       string `json:"token,omitempty"`
}

// SignIn runs one sign-in method against the identity provider.
func (s *Session) SignIn(ctx context.Context, c Credentials) (models.User, error) {
	if s.deps.Auth == nil {
		return models.User{}, errUnavailable
	}
	if s.Snapshot().gated() {
		return models.User{}, ErrGated
	}

	var (
		u   models.User
		err error
	)
	switch c.Method {
	case "password":
		if err := validation.Login(validation.LoginForm{Email: c.Email, Password: c.Password}).Err(); err != nil {
			return models.User{}, err
		}
		u, err = s.deps.Auth.SignInWithPassword(ctx, c.Email, c.Password)
	case "signup":
		form := validation.SignupForm{Email: c.Email, Password: c.Password, DisplayName: c.DisplayName, IsCreator: c.IsCreator}
		if err := validation.Signup(form).Err(); err != nil {
			return models.User{}, err
		}
		s.mu.Lock()
		s.pendingCreator = c.IsCreator
		s.mu.Unlock()
		u, err = s.deps.Auth.SignUp(ctx, c.Email, c.Password, c.DisplayName)
	case "anonymous":
		u, err = s.deps.Auth.SignInAnonymously(ctx)
	case "token":
		if c.Token == "" {
			return models.User{}, apperr.Newf(apperr.ValidationRequiredField, "Validation failed").
				WithDetails(map[string]any{"token": "Token is required"})
		}
		u, err = s.deps.Auth.SignInWithCustomToken(ctx, c.Token)
	default:
		return models.User{}, apperr.Newf(apperr.ValidationRequiredField, "Validation failed").
			WithDetails(map[string]any{"method": "Unknown sign-in method"})
	}
	if err != nil {
		e := apperr.Translate(err)
		s.Dispatch(SetError{Err: e})
		return models.User{}, e
	}
	return u, nil
}

// SignOut signs the session out of the identity provider.
func (s *Session) SignOut(ctx context.Context) error {
	if s.deps.Auth == nil {
		return s.OnAuthStateChanged(ctx, nil)
	}
	if err := s.deps.Auth.SignOut(ctx); err != nil {
		return apperr.Translate(err)
	}
	return nil
}

func (s *Session) currentProfile() (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Profile == nil || !s.state.IsAuthenticated {
		return models.Profile{}, errNoProfile
	}
	if s.deps.Profiles == nil {
		return models.Profile{}, errUnavailable
	}
	return s.state.Profile.Clone(), nil
}

// SaveProfile validates form, stores it and marks the profile complete.
func (s *Session) SaveProfile(ctx context.Context, form validation.ProfileForm) (models.Profile, error) {
	cur, err := s.currentProfile()
	if err != nil {
		return models.Profile{}, err
	}
	if err := validation.Profile(form).Err(); err != nil {
		return models.Profile{}, err
	}

	complete := true
	name, bio := form.DisplayName, form.Bio
	cats := form.Categories
	if cats == nil {
		cats = []string{}
	}
	patch := models.ProfilePatch{DisplayName: &name, Bio: &bio, Categories: cats, IsProfileComplete: &complete}
	if form.PhotoURL != "" {
		photo := form.PhotoURL
		patch.PhotoURL = &photo
	}

	p, err := s.deps.Profiles.Update(ctx, cur.UID, patch)
	if err != nil {
		e := apperr.Translate(err)
		s.Dispatch(SetError{Err: e})
		return models.Profile{}, e
	}
	s.Dispatch(ProfileSaved{Profile: p})
	logger.Info("profile_saved", "session_id", s.id, "uid", p.UID)
	return p, nil
}

// ToggleCreator flips the creator flag and clears profile completion in one write.
func (s *Session) ToggleCreator(ctx context.Context) (models.Profile, error) {
	cur, err := s.currentProfile()
	if err != nil {
		return models.Profile{}, err
	}
	if s.Snapshot().gated() {
		return models.Profile{}, ErrGated
	}
	flip, incomplete := !cur.IsCreator, false
	p, err := s.deps.Profiles.Update(ctx, cur.UID, models.ProfilePatch{IsCreator: &flip, IsProfileComplete: &incomplete})
	if err != nil {
		e := apperr.Translate(err)
		s.Dispatch(SetError{Err: e})
		return models.Profile{}, e
	}
	s.Dispatch(ToggleCreator{Stored: &p})
	logger.Info("creator_toggled", "session_id", s.id, "uid", p.UID, "is_creator", p.IsCreator)
	return p, nil
}

// pendingVerification ties a vendor session to the account and auth
// generation that started it.
type pendingVerification struct {
	uid      string
	gen      uint64
	vendorID string
}

// StartVerification opens the verification panel and starts a vendor
// session for the signed-in account. It returns the URL to render; the
// finish event is consumed in the background. Only one verification runs
// per session, and any auth change abandons it.
func (s *Session) StartVerification(ctx context.Context) (string, error) {
	if s.deps.Verifier == nil || s.deps.Profiles == nil {
		return "", errUnavailable
	}

	s.mu.Lock()
	if s.state.Profile == nil || !s.state.IsAuthenticated {
		s.mu.Unlock()
		return "", errNoProfile
	}
	if s.state.gated() {
		s.mu.Unlock()
		return "", ErrGated
	}
	if s.kyc != nil {
		s.mu.Unlock()
		return "", ErrVerificationPending
	}
	k := &pendingVerification{uid: s.state.Profile.UID, gen: s.gen}
	s.kyc = k
	s.mu.Unlock()

	s.dispatch(k.gen, StartVerification{})

	cfg := s.opts.Verification
	cfg.VendorData = k.uid
	events, err := s.deps.Verifier.StartVerification(ctx, cfg)
	if err != nil {
		s.takeVerification(k)
		return "", s.verificationFailed(err)
	}

	var ev verification.Event
	select {
	case e, ok := <-events:
		if !ok {
			s.takeVerification(k)
			return "", s.verificationFailed(errors.New("verification session closed"))
		}
		ev = e
	case <-ctx.Done():
		s.takeVerification(k)
		return "", s.verificationFailed(ctx.Err())
	}
	if ev.Err != nil {
		s.takeVerification(k)
		return "", s.verificationFailed(ev.Err)
	}

	s.mu.Lock()
	live := s.kyc == k && s.gen == k.gen && s.state.Profile != nil && s.state.Profile.UID == k.uid
	if live {
		k.vendorID = ev.SessionID
	}
	s.mu.Unlock()
	if !live {
		s.deps.Verifier.Cancel(ev.SessionID)
		logger.Info("verification_abandoned", "session_id", s.id, "uid", k.uid, "vendor_session", ev.SessionID, "reason", "auth_changed")
		return "", errNoProfile
	}

	s.dispatch(k.gen, VerificationReady{URL: ev.URL})
	logger.Info("verification_started", "session_id", s.id, "uid", k.uid, "vendor_session", ev.SessionID)

	s.wg.Add(1)
	go s.awaitFinish(events, k)
	return ev.URL, nil
}

func (s *Session) verificationFailed(err error) error {
	e := apperr.Translate(err)
	s.Dispatch(CloseVerification{})
	s.Dispatch(SetError{Err: e})
	logger.Warn("verification_start_failed", "session_id", s.id, "error", err)
	return e
}

// takeVerification clears k if it is still the session's verification and
// reports whether the account and auth generation it started under are
// still current.
func (s *Session) takeVerification(k *pendingVerification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kyc != k {
		return false
	}
	s.kyc = nil
	return s.gen == k.gen && s.state.Profile != nil && s.state.Profile.UID == k.uid
}

// abandonVerification cancels the running vendor session, if any.
func (s *Session) abandonVerification(reason string) {
	s.mu.Lock()
	k := s.kyc
	s.kyc = nil
	var vendorID string
	if k != nil {
		vendorID = k.vendorID
	}
	s.mu.Unlock()
	if k == nil {
		return
	}
	if vendorID != "" {
		s.deps.Verifier.Cancel(vendorID)
	}
	logger.Info("verification_abandoned", "session_id", s.id, "uid", k.uid, "vendor_session", vendorID, "reason", reason)
}

func (s *Session) awaitFinish(events <-chan verification.Event, k *pendingVerification) {
	defer s.wg.Done()
	select {
	case ev, ok := <-events:
		live := s.takeVerification(k)
		if !ok || ev.Kind != verification.EventFinished {
			return
		}
		if !live {
			logger.Info("verification_result_dropped", "session_id", s.id, "uid", k.uid, "vendor_session", ev.SessionID)
			return
		}
		if _, err := s.recordVerification(s.ctx, k.uid, k.gen, verification.MapFinish(ev.Err, ev.Code)); err != nil {
			logger.Error("verification_finish_failed", "session_id", s.id, "uid", k.uid, "error", err)
		}
	case <-s.ctx.Done():
	}
}

// FinishVerification records a verification outcome for the signed-in
// account and closes the panel. Success also sets the permanent verified flag.
func (s *Session) FinishVerification(ctx context.Context, result verification.Result) (models.Profile, error) {
	cur, err := s.currentProfile()
	if err != nil {
		s.Dispatch(CloseVerification{})
		return models.Profile{}, err
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.recordVerification(ctx, cur.UID, gen, result)
}

// recordVerification patches uid's stored profile. The view is only
// updated while gen is still the current auth generation.
func (s *Session) recordVerification(ctx context.Context, uid string, gen uint64, result verification.Result) (models.Profile, error) {
	status := verificationStatus(result)
	patch := models.ProfilePatch{VerificationStatus: &status}
	if result == verification.ResultSuccess {
		yes := true
		patch.IsVerified = &yes
	}
	p, err := s.deps.Profiles.Update(ctx, uid, patch)
	if err != nil {
		e := apperr.Translate(err)
		s.dispatch(gen, CloseVerification{})
		s.dispatch(gen, SetError{Err: e})
		return models.Profile{}, e
	}
	s.dispatch(gen, VerificationFinished{Status: result})
	logger.Info("verification_recorded", "session_id", s.id, "uid", p.UID, "status", status)
	return p, nil
}

// Close stops background work and detaches from the identity provider.
func (s *Session) Close() {
	s.cancel()
	s.abandonVerification("closed")
	if s.unsub != nil {
		s.unsub()
	}
	s.wg.Wait()
}
