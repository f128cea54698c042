package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	auditdomain "careers-portal/backend/internal/audit/domain"
	"careers-portal/backend/internal/magiclink/domain"
	"careers-portal/backend/internal/magiclink/repository"
	"careers-portal/backend/internal/mail"
	"careers-portal/backend/internal/platform/autherr"
	"careers-portal/backend/internal/platform/detached"
	"careers-portal/backend/internal/security"
)

type recordedEvent struct {
	action string
	email  string
	meta   map[string]string
}

type memAudit struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *memAudit) Record(_ context.Context, action, email string, meta map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{action, email, meta})
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	for i, e := range a.events {
		out[i] = e.action
	}
	return out
}

type memOutbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (o *memOutbox) Put(email, link string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.links == nil {
		o.links = make(map[string]string)
	}
	o.links[email] = link
}

// failingRepo fails every call.
type failingRepo struct{ err error }

func (r failingRepo) Create(context.Context, *domain.AccessToken) error { return r.err }
func (r failingRepo) GetByHash(context.Context, string) (*domain.AccessToken, error) {
	return nil, r.err
}
func (r failingRepo) Claim(context.Context, string, time.Time) (bool, error) { return false, r.err }

var testNow = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

func newTestIssuer(t *testing.T, repo repository.Repository, sender mail.Sender, audit AuditRecorder) (*Issuer, *detached.Group) {
	t.Helper()
	workers := detached.NewGroup(5*time.Second, zap.NewNop())
	iss, err := NewIssuer(repo, sender, audit, workers, zap.NewNop(), IssuerConfig{
		PublicBaseURL: "https://careers.example.com",
		TokenTTL:      20 * time.Minute,
		MailTimeout:   time.Second,
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	iss.NowFunc = func() time.Time { return testNow }
	return iss, workers
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return u.Query().Get("token")
}

func TestNewIssuer_Misconfigured(t *testing.T) {
	workers := detached.NewGroup(time.Second, nil)
	_, err := NewIssuer(repository.NewMemoryRepository(), &mail.MemorySender{}, &memAudit{}, workers, zap.NewNop(),
		IssuerConfig{PublicBaseURL: "not a url", TokenTTL: time.Minute})
	if !errors.Is(err, autherr.ErrMisconfigured) {
		t.Errorf("err = %v, want ErrMisconfigured", err)
	}
}

func TestIssuer_IssueTokenPersistsAndSends(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sender := &mail.MemorySender{}
	outbox := &memOutbox{}
	iss, workers := newTestIssuer(t, repo, sender, &memAudit{})
	iss.WithOutbox(outbox)

	iss.IssueToken(context.Background(), "  Ada@Example.com ", "/jobs/42")
	workers.Wait()

	toks := repo.All()
	if len(toks) != 1 {
		t.Fatalf("tokens = %d, want 1", len(toks))
	}
	tok := toks[0]
	if tok.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", tok.Email)
	}
	if !tok.ExpiresAt.Equal(testNow.Add(20 * time.Minute)) {
		t.Errorf("expires_at = %v, want created_at+20m", tok.ExpiresAt)
	}
	if tok.UsedAt != nil {
		t.Error("new token should be unused")
	}

	msgs := sender.Messages()
	if len(msgs) != 1 || msgs[0].To != "ada@example.com" {
		t.Fatalf("messages = %+v", msgs)
	}
	link := outbox.links["ada@example.com"]
	if !strings.Contains(msgs[0].Body, link) {
		t.Error("mail body should contain the outbox link")
	}
	u, _ := url.Parse(link)
	if u.Host != "careers.example.com" || u.Path != VerifyPath || u.Query().Get("next") != "/jobs/42" {
		t.Errorf("link = %q", link)
	}
	raw := tokenFromLink(t, link)
	if tok.TokenHash != security.HashSecret(raw) {
		t.Error("stored hash should be the hash of the link secret")
	}
	if tok.TokenHash == raw {
		t.Error("raw secret must not be stored")
	}
}

func TestIssuer_InvalidEmailSilentlyDropped(t *testing.T) {
	repo := repository.NewMemoryRepository()
	sender := &mail.MemorySender{}
	iss, workers := newTestIssuer(t, repo, sender, &memAudit{})

	iss.IssueToken(context.Background(), "not-an-email", "")
	workers.Wait()

	if len(repo.All()) != 0 || len(sender.Messages()) != 0 {
		t.Error("invalid email should not persist or send")
	}
}

func TestIssuer_EachRequestCreatesNewToken(t *testing.T) {
	repo := repository.NewMemoryRepository()
	iss, workers := newTestIssuer(t, repo, &mail.MemorySender{}, &memAudit{})
	for i := 0; i < 3; i++ {
		iss.IssueToken(context.Background(), "ada@example.com", "")
	}
	workers.Wait()
	if n := len(repo.All()); n != 3 {
		t.Errorf("tokens = %d, want 3", n)
	}
}

func TestIssuer_DeliveryFailureAudited(t *testing.T) {
	repo := repository.NewMemoryRepository()
	audit := &memAudit{}
	sender := &mail.MemorySender{Err: errors.New("smtp down")}
	iss, _ := newTestIssuer(t, repo, sender, audit)

	err := iss.Issue(context.Background(), "ada@example.com", "")
	if err == nil {
		t.Fatal("Issue should report delivery failure")
	}
	if len(repo.All()) != 1 {
		t.Error("token should still be persisted")
	}
	if got := audit.actions(); len(got) != 1 || got[0] != auditdomain.ActionLinkDeliveryFailed {
		t.Errorf("audit = %v, want [link_delivery_failed]", got)
	}
}

func TestIssuer_PersistFailureIsUnavailable(t *testing.T) {
	sender := &mail.MemorySender{}
	iss, _ := newTestIssuer(t, failingRepo{err: errors.New("conn refused")}, sender, &memAudit{})
	err := iss.Issue(context.Background(), "ada@example.com", "")
	if !errors.Is(err, autherr.ErrDependencyUnavailable) {
		t.Errorf("err = %v, want ErrDependencyUnavailable", err)
	}
	if len(sender.Messages()) != 0 {
		t.Error("nothing should be sent when the token was not persisted")
	}
}

func issueRaw(t *testing.T, repo repository.Repository, email string, now time.Time) string {
	t.Helper()
	secret, err := security.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	err = repo.Create(context.Background(), &domain.AccessToken{
		ID:        email + "-" + secret.Reveal()[:8],
		Email:     email,
		TokenHash: security.HashSecret(secret.Reveal()),
		ExpiresAt: now.Add(20 * time.Minute),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return secret.Reveal()
}

func TestVerifier_RedeemOnce(t *testing.T) {
	repo := repository.NewMemoryRepository()
	raw := issueRaw(t, repo, "ada@example.com", testNow)
	v := NewVerifier(repo)
	v.NowFunc = func() time.Time { return testNow.Add(time.Minute) }

	email, err := v.Redeem(context.Background(), raw)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("email = %q", email)
	}

	_, err = v.Redeem(context.Background(), raw)
	if !errors.Is(err, autherr.ErrTokenUsed) {
		t.Errorf("second Redeem err = %v, want ErrTokenUsed", err)
	}
	if autherr.Reason(err) != autherr.ReasonUsed {
		t.Errorf("reason = %q, want used", autherr.Reason(err))
	}
}

func TestVerifier_Failures(t *testing.T) {
	repo := repository.NewMemoryRepository()
	raw := issueRaw(t, repo, "ada@example.com", testNow)
	v := NewVerifier(repo)

	tests := []struct {
		name   string
		raw    string
		now    time.Time
		want   error
		reason string
	}{
		{"missing", "", testNow, autherr.ErrMissingToken, autherr.ReasonMissingToken},
		{"unknown", "no-such-token", testNow, autherr.ErrTokenNotFound, autherr.ReasonNotFound},
		{"expiry boundary", raw, testNow.Add(20 * time.Minute), autherr.ErrTokenExpired, autherr.ReasonExpired},
		{"long expired", raw, testNow.Add(24 * time.Hour), autherr.ErrTokenExpired, autherr.ReasonExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.NowFunc = func() time.Time { return tt.now }
			_, err := v.Redeem(context.Background(), tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if got := autherr.Reason(err); got != tt.reason {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
		})
	}

	// Expired attempts must not consume the token.
	for _, tok := range repo.All() {
		if tok.UsedAt != nil {
			t.Error("failed redemptions must not set used_at")
		}
	}
}

func TestVerifier_ExpiredCheckedBeforeUsed(t *testing.T) {
	repo := repository.NewMemoryRepository()
	raw := issueRaw(t, repo, "ada@example.com", testNow)
	v := NewVerifier(repo)
	v.NowFunc = func() time.Time { return testNow }
	if _, err := v.Redeem(context.Background(), raw); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	v.NowFunc = func() time.Time { return testNow.Add(time.Hour) }
	if _, err := v.Redeem(context.Background(), raw); !errors.Is(err, autherr.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifier_OutcomeFollowsTokenState(t *testing.T) {
	used := testNow.Add(-time.Minute)
	tests := []struct {
		name      string
		expiresAt time.Time
		usedAt    *time.Time
		state     domain.TokenState
		want      error
	}{
		{"unredeemed", testNow.Add(time.Minute), nil, domain.StateUnredeemed, nil},
		{"redeemed", testNow.Add(time.Minute), &used, domain.StateRedeemed, autherr.ErrTokenUsed},
		{"expired", testNow, nil, domain.StateExpired, autherr.ErrTokenExpired},
		{"expired and redeemed", testNow.Add(-time.Second), &used, domain.StateExpired, autherr.ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryRepository()
			tok := &domain.AccessToken{
				ID:        "tok-1",
				Email:     "ada@example.com",
				TokenHash: security.HashSecret("raw-" + tt.name),
				ExpiresAt: tt.expiresAt,
				UsedAt:    tt.usedAt,
				CreatedAt: testNow.Add(-10 * time.Minute),
			}
			if err := repo.Create(context.Background(), tok); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if got := tok.State(testNow); got != tt.state {
				t.Fatalf("State = %v, want %v", got, tt.state)
			}
			v := NewVerifier(repo)
			v.NowFunc = func() time.Time { return testNow }
			_, err := v.Redeem(context.Background(), "raw-"+tt.name)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Redeem: %v", err)
				}
				if got := repo.All()[0].State(testNow); got != domain.StateRedeemed {
					t.Errorf("state after redeem = %v, want redeemed", got)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifier_ConcurrentRedeemExactlyOnce(t *testing.T) {
	repo := repository.NewMemoryRepository()
	raw := issueRaw(t, repo, "ada@example.com", testNow)
	v := NewVerifier(repo)
	v.NowFunc = func() time.Time { return testNow.Add(time.Minute) }

	const n = 50
	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		used      atomic.Int64
		start     = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := v.Redeem(context.Background(), raw)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, autherr.ErrTokenUsed):
				used.Add(1)
			default:
				t.Errorf("unexpected err: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("successes = %d, want exactly 1", successes.Load())
	}
	if used.Load() != n-1 {
		t.Errorf("already-used failures = %d, want %d", used.Load(), n-1)
	}
}

// raceRepo returns an unused token from GetByHash but reports the claim lost, as when a
// concurrent redemption wins between the read and the conditional update.
type raceRepo struct{ tok *domain.AccessToken }

func (r raceRepo) Create(context.Context, *domain.AccessToken) error { return nil }
func (r raceRepo) GetByHash(context.Context, string) (*domain.AccessToken, error) {
	cp := *r.tok
	return &cp, nil
}
func (r raceRepo) Claim(context.Context, string, time.Time) (bool, error) { return false, nil }

func TestVerifier_RaceLost(t *testing.T) {
	repo := raceRepo{tok: &domain.AccessToken{ID: "t1", Email: "ada@example.com", ExpiresAt: testNow.Add(time.Hour)}}
	v := NewVerifier(repo)
	v.NowFunc = func() time.Time { return testNow }
	_, err := v.Redeem(context.Background(), "whatever")
	if !errors.Is(err, autherr.ErrClaimRaceLost) || !errors.Is(err, autherr.ErrTokenUsed) {
		t.Errorf("err = %v, want ErrClaimRaceLost (is ErrTokenUsed)", err)
	}
	if autherr.Reason(err) != autherr.ReasonRaceLost {
		t.Errorf("reason = %q, want race_lost", autherr.Reason(err))
	}
}

func TestVerifier_DatastoreFailure(t *testing.T) {
	v := NewVerifier(failingRepo{err: errors.New("timeout")})
	_, err := v.Redeem(context.Background(), "abc")
	if !errors.Is(err, autherr.ErrDependencyUnavailable) {
		t.Errorf("err = %v, want ErrDependencyUnavailable", err)
	}
}
