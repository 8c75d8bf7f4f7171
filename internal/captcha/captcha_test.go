package captcha

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"zeroforums/internal/domain"
)

func TestIssueProducesSolvableChallenge(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	rec, err := svc.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rec.Token == "" || rec.Challenge == "" || rec.Solution == "" {
		t.Fatalf("incomplete record: %+v", rec)
	}

	parts := strings.Split(rec.Challenge, " + ")
	if len(parts) != 2 {
		t.Fatalf("unexpected challenge format %q", rec.Challenge)
	}
	a, _ := strconv.Atoi(parts[0])
	b, _ := strconv.Atoi(parts[1])
	if strconv.Itoa(a+b) != rec.Solution {
		t.Fatalf("solution %q does not match challenge %q", rec.Solution, rec.Challenge)
	}
}

func TestValidateAcceptsCorrectAnswerOnce(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	rec, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Validate(ctx, rec.Token, rec.Solution); err != nil {
		t.Fatalf("validate: %v", err)
	}
	// Single use: the same token cannot validate twice.
	if err := svc.Validate(ctx, rec.Token, rec.Solution); err != domain.ErrCaptchaFailed {
		t.Fatalf("expected ErrCaptchaFailed on reuse, got %v", err)
	}
}

func TestValidateRejectsWrongAnswer(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	ctx := context.Background()

	rec, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Validate(ctx, rec.Token, rec.Solution+"0"); err != domain.ErrCaptchaFailed {
		t.Fatalf("expected ErrCaptchaFailed, got %v", err)
	}
	// A failed attempt does not consume the token.
	if err := svc.Validate(ctx, rec.Token, rec.Solution); err != nil {
		t.Fatalf("correct answer after failed attempt: %v", err)
	}
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute)
	if err := svc.Validate(context.Background(), "no-such-token", "7"); err != domain.ErrCaptchaFailed {
		t.Fatalf("expected ErrCaptchaFailed, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryStore(), 5*time.Minute)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	rec, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(5*time.Minute + time.Second)
	if err := svc.Validate(ctx, rec.Token, rec.Solution); err != domain.ErrCaptchaFailed {
		t.Fatalf("expected expiry rejection, got %v", err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	svc := NewService(store, time.Minute)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	rec, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := svc.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, err := store.Get(ctx, rec.Token); err != domain.ErrNotFound {
		t.Fatalf("expected swept token to be gone, got %v", err)
	}
}
