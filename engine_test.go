package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

/* ==== TEST HARNESS ==== */

// memDirectory is the in-memory Directory used across the engine tests.
type memDirectory struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (d *memDirectory) FindByID(_ context.Context, id string) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	acct, ok := d.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acct
	return &out, nil
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (*Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *d.byID[id]
	return &out, nil
}

func (d *memDirectory) Create(_ context.Context, acct *Account) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[acct.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	stored := *acct
	d.byID[stored.ID] = &stored
	d.byEmail[stored.Email] = stored.ID

	out := stored
	return &out, nil
}

func (d *memDirectory) Update(_ context.Context, acct *Account) (*Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.byID[acct.ID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if other, exists := d.byEmail[acct.Email]; exists && other != acct.ID {
		return nil, ErrDuplicateEmail
	}

	delete(d.byEmail, current.Email)
	stored := *acct
	d.byID[stored.ID] = &stored
	d.byEmail[stored.Email] = stored.ID

	out := stored
	return &out, nil
}

func (d *memDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(d.byEmail, acct.Email)
	delete(d.byID, id)
	return nil
}

// mutate edits the stored account directly, bypassing the engine. Tests use
// it to back-date code expiries.
func (d *memDirectory) mutate(t *testing.T, email string, fn func(acct *Account)) {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byEmail[email]
	if !ok {
		t.Fatalf("mutate: no account for %s", email)
	}
	fn(d.byID[id])
}

// recordingMailer captures outbound mail and can be told to fail per class.
type recordingMailer struct {
	mu sync.Mutex

	verificationCodes map[string]string
	resetCodes        map[string]string
	welcomed          []string

	failVerification bool
	failWelcome      bool
	failReset        bool
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		verificationCodes: make(map[string]string),
		resetCodes:        make(map[string]string),
	}
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, email, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failVerification {
		return errors.New("smtp unavailable")
	}
	m.verificationCodes[email] = code
	return nil
}

func (m *recordingMailer) SendWelcome(_ context.Context, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWelcome {
		return errors.New("smtp unavailable")
	}
	m.welcomed = append(m.welcomed, email)
	return nil
}

func (m *recordingMailer) SendPasswordResetCode(_ context.Context, email, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReset {
		return errors.New("smtp unavailable")
	}
	m.resetCodes[email] = code
	return nil
}

func (m *recordingMailer) lastVerificationCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verificationCodes[email]
}

func (m *recordingMailer) lastResetCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCodes[email]
}

func (m *recordingMailer) setFail(verification, welcome, reset bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failVerification = verification
	m.failWelcome = welcome
	m.failReset = reset
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret")
	cfg.Password.Cost = 4
	return cfg
}

type testFixture struct {
	engine    *Engine
	directory *memDirectory
	mailer    *recordingMailer
	redis     *miniredis.Miniredis
}

func newTestEngine(t *testing.T, opts ...func(*Builder)) *testFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	directory := newMemDirectory()
	mailer := newRecordingMailer()

	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithDirectory(directory).
		WithMailer(mailer)
	for _, opt := range opts {
		opt(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testFixture{
		engine:    engine,
		directory: directory,
		mailer:    mailer,
		redis:     mr,
	}
}

// registerVerified runs the register and verify flow and returns the profile.
func registerVerified(t *testing.T, f *testFixture, email, pass string) Profile {
	t.Helper()
	ctx := context.Background()

	result, err := f.engine.Register(ctx, RegisterInput{
		Email:     email,
		Password:  pass,
		FirstName: "Test",
		LastName:  "Account",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	code := f.mailer.lastVerificationCode(email)
	if code == "" {
		t.Fatal("no verification code was mailed")
	}
	if _, err := f.engine.VerifyEmail(ctx, email, code); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	return result.User
}

/* ==== LOGIN ==== */

func TestLoginUnknownEmail(t *testing.T) {
	f := newTestEngine(t)

	_, err := f.engine.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newTestEngine(t)
	registerVerified(t, f, "ada@example.com", "correct-horse")

	_, err := f.engine.Login(context.Background(), "ada@example.com", "wrong-horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginIndistinguishableFailures(t *testing.T) {
	f := newTestEngine(t)
	registerVerified(t, f, "ada@example.com", "correct-horse")

	_, unknownErr := f.engine.Login(context.Background(), "nobody@example.com", "whatever")
	_, mismatchErr := f.engine.Login(context.Background(), "ada@example.com", "wrong-horse")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(mismatchErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", unknownErr, mismatchErr)
	}
	if unknownErr.Error() != mismatchErr.Error() {
		t.Fatalf("failure messages must match: %q vs %q", unknownErr, mismatchErr)
	}
}

func TestLoginUnverifiedAccount(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, RegisterInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestLoginSuccessMintsTokenPair(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	profile := registerVerified(t, f, "ada@example.com", "correct-horse")

	session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected both tokens in the session")
	}
	if session.User.ID != profile.ID {
		t.Fatalf("expected profile %s, got %s", profile.ID, session.User.ID)
	}
	if !session.User.EmailVerified {
		t.Fatal("expected a verified profile")
	}

	identity, err := f.engine.Authenticate(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed on fresh access token: %v", err)
	}
	if identity.AccountID != profile.ID || identity.Email != "ada@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := f.engine.Refresh(ctx, session.RefreshToken); err != nil {
		t.Fatalf("Refresh failed on fresh refresh token: %v", err)
	}
}

func TestLoginEmailHandling(t *testing.T) {
	f := newTestEngine(t)
	registerVerified(t, f, "ada@example.com", "correct-horse")

	if _, err := f.engine.Login(context.Background(), "  ada@example.com ", "correct-horse"); err != nil {
		t.Fatalf("expected whitespace-trimmed login to succeed, got %v", err)
	}

	// Emails are case-sensitive; a case variant is an unknown account.
	if _, err := f.engine.Login(context.Background(), "ADA@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for case variant, got %v", err)
	}
}

/* ==== LOGOUT ==== */

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	registerVerified(t, f, "ada@example.com", "correct-horse")

	session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := f.engine.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := f.engine.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	registerVerified(t, f, "ada@example.com", "correct-horse")

	session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := f.engine.Logout(ctx, session.RefreshToken); err != nil {
			t.Fatalf("Logout round %d failed: %v", i, err)
		}
	}
	if err := f.engine.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("Logout of unknown token must be a no-op, got %v", err)
	}
}

/* ==== AUTHENTICATE ==== */

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newTestEngine(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := f.engine.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	registerVerified(t, f, "ada@example.com", "correct-horse")

	session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := f.engine.Authenticate(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for refresh token, got %v", err)
	}
}

func TestAuthenticateRejectsDeletedAccount(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	profile := registerVerified(t, f, "ada@example.com", "correct-horse")

	session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := f.directory.Delete(ctx, profile.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := f.engine.Authenticate(ctx, session.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for deleted account, got %v", err)
	}
}

func TestAuthenticateRejectsDeverifiedAccount(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	registerVerified(t, f, "ada@example.com", "correct-horse")

	session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	f.directory.mutate(t, "ada@example.com", func(acct *Account) {
		acct.EmailVerified = false
	})
	if _, err := f.engine.Authenticate(ctx, session.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for de-verified account, got %v", err)
	}
}

/* ==== END TO END ==== */

func TestFullAccountLifecycle(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	result, err := f.engine.Register(ctx, RegisterInput{
		Email:     "grace@example.com",
		Password:  "enigma-1944",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if result.User.EmailVerified {
		t.Fatal("fresh registration must start unverified")
	}

	code := f.mailer.lastVerificationCode("grace@example.com")
	verified, err := f.engine.VerifyEmail(ctx, "grace@example.com", code)
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if verified.AccessToken == "" || verified.RefreshToken == "" {
		t.Fatal("verification must mint the first token pair")
	}
	if _, err := f.engine.Authenticate(ctx, verified.AccessToken); err != nil {
		t.Fatalf("Authenticate failed on post-verification token: %v", err)
	}

	session, err := f.engine.Login(ctx, "grace@example.com", "enigma-1944")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := f.engine.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.RefreshToken != session.RefreshToken {
		t.Fatal("refresh must echo the presented refresh token")
	}
	if _, err := f.engine.Authenticate(ctx, refreshed.AccessToken); err != nil {
		t.Fatalf("Authenticate failed on refreshed access token: %v", err)
	}

	if err := f.engine.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := f.engine.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestConcurrentLogins(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	registerVerified(t, f, "ada@example.com", "correct-horse")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := f.engine.Login(ctx, "ada@example.com", "correct-horse")
			if err != nil {
				errs <- err
				return
			}
			if _, err := f.engine.Refresh(ctx, session.RefreshToken); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent login/refresh failed: %v", err)
	}
}

func TestEngineCloseIsIdempotent(t *testing.T) {
	f := newTestEngine(t)

	f.engine.Close()
	f.engine.Close()

	// The engine still answers read-only queries after Close.
	_ = f.engine.MetricsSnapshot()
	_ = f.engine.AuditDropped()
}
