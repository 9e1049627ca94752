package auth_test

import (
	"context"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/yapyap/go-auth"
	"github.com/yapyap/go-auth/store"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type testConfig struct {
	signingKey     string
	issuer         string
	pendingTTL     time.Duration
	sessionTTL     time.Duration
	cookieName     string
	cookieSecure   bool
	cookieSameSite string
	clientBaseURL  string
	useHashid      bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:     testSigningKey,
		issuer:         "yapyap-test",
		pendingTTL:     30 * time.Minute,
		sessionTTL:     7 * 24 * time.Hour,
		cookieName:     "jwt",
		cookieSecure:   true,
		cookieSameSite: "strict",
		clientBaseURL:  "https://chat.yapyap.test",
	}
}

func (c *testConfig) GetSigningKey() string             { return c.signingKey }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetPendingTokenTTL() time.Duration { return c.pendingTTL }
func (c *testConfig) GetSessionTTL() time.Duration      { return c.sessionTTL }
func (c *testConfig) GetCookieName() string             { return c.cookieName }
func (c *testConfig) GetCookieSecure() bool             { return c.cookieSecure }
func (c *testConfig) GetCookieSameSite() string         { return c.cookieSameSite }
func (c *testConfig) GetClientBaseURL() string          { return c.clientBaseURL }
func (c *testConfig) GetPasswordHashCost() int          { return bcrypt.MinCost }
func (c *testConfig) GetUseHashid() bool                { return c.useHashid }
func (c *testConfig) GetDebug() bool                    { return false }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// testClock is a settable clock shared by the codec under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, html string) error {
	args := m.Called(ctx, to, subject, html)
	return args.Error(0)
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

// recordingMailer keeps every message. Safe for concurrent use.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (r *recordingMailer) Sent() []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMail(nil), r.sent...)
}

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_\-.]+)`)

// lastToken extracts the verification token from the latest message.
func (r *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	sent := r.Sent()
	require.NotEmpty(t, sent, "no mail sent")
	m := tokenPattern.FindStringSubmatch(sent[len(sent)-1].HTML)
	require.Len(t, m, 2, "no token in mail body")
	return m[1]
}

// MockBlobStore implements auth.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

// MockMetrics implements auth.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordOutcome(operation, outcome string) {
	m.Called(operation, outcome)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, store.Options{
		Driver: store.DriverSQLite,
		DSN:    ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.Migrate(ctx, db))
	return db
}

type fixture struct {
	cfg    *testConfig
	clock  *testClock
	db     *bun.DB
	repo   auth.RepositoryManager
	codec  *auth.TokenCodecImpl
	mailer *recordingMailer
	blobs  *MockBlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := newTestConfig()
	clock := newTestClock()
	db := newTestDB(t)

	return &fixture{
		cfg:    cfg,
		clock:  clock,
		db:     db,
		repo:   auth.NewRepositoryManager(db),
		codec:  auth.NewTokenCodec([]byte(cfg.signingKey), cfg.issuer, auth.WithCodecClock(clock.Now), auth.WithCodecLogger(nopLogger{})),
		mailer: &recordingMailer{},
		blobs:  new(MockBlobStore),
	}
}

func (f *fixture) deps() auth.Dependencies {
	return auth.Dependencies{
		Config: f.cfg,
		Logger: nopLogger{},
		Repo:   f.repo,
		Codec:  f.codec,
		Mailer: f.mailer,
		Blobs:  f.blobs,
	}
}

// createAccount stores an account directly, bypassing the signup flow.
func (f *fixture) createAccount(t *testing.T, fullName, email, password string, verified bool) *auth.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	account, err := f.repo.Accounts().Create(context.Background(), &auth.Account{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		IsVerified:   verified,
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) countAccounts(t *testing.T) int {
	t.Helper()
	n, err := f.db.NewSelect().Model((*auth.Account)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}
