package authflow

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	result, err := f.engine.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if result.User.ID == "" {
		t.Fatal("expected a generated account ID")
	}
	if result.User.Email != "ada@example.com" {
		t.Fatalf("unexpected profile email %q", result.User.Email)
	}
	if result.User.EmailVerified {
		t.Fatal("fresh registration must start unverified")
	}
	if result.User.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	acct, err := f.directory.FindByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if !acct.HasPendingVerification() {
		t.Fatal("expected a pending verification challenge on the account")
	}
	if acct.VerificationCode != f.mailer.lastVerificationCode("ada@example.com") {
		t.Fatal("mailed code must match the stored challenge")
	}
	if strings.Contains(acct.PasswordHash, "correct-horse") {
		t.Fatal("password must not be stored in the clear")
	}
}

func TestRegisterTrimsEmailWhitespace(t *testing.T) {
	f := newTestEngine(t)

	result, err := f.engine.Register(context.Background(), RegisterInput{
		Email:    "  Ada@example.com ",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	// Emails are stored case-sensitively; only whitespace is stripped.
	if result.User.Email != "Ada@example.com" {
		t.Fatalf("expected trimmed email, got %q", result.User.Email)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, RegisterInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := f.engine.Register(ctx, RegisterInput{
		Email:    "ada@example.com",
		Password: "another-pass",
	})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	// Emails are case-sensitive; a case variant is a distinct account.
	if _, err := f.engine.Register(ctx, RegisterInput{
		Email:    "ADA@example.com",
		Password: "another-pass",
	}); err != nil {
		t.Fatalf("case variant must register as a distinct account, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := newTestEngine(t)

	_, err := f.engine.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Password: "tiny",
	})
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	// The rejected registration must not leave a half-created account.
	if _, err := f.directory.FindByEmail(context.Background(), "ada@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected no account after rejected registration, got %v", err)
	}
}

func TestRegisterMailFailureKeepsAccount(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.mailer.setFail(true, false, false)

	_, err := f.engine.Register(ctx, RegisterInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	})
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}

	// The account survives so the code can be re-sent later.
	if _, err := f.directory.FindByEmail(ctx, "ada@example.com"); err != nil {
		t.Fatalf("expected account to survive mail failure, got %v", err)
	}

	f.mailer.setFail(false, false, false)
	if err := f.engine.ResendVerificationCode(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ResendVerificationCode failed: %v", err)
	}
	code := f.mailer.lastVerificationCode("ada@example.com")
	if _, err := f.engine.VerifyEmail(ctx, "ada@example.com", code); err != nil {
		t.Fatalf("VerifyEmail after resend failed: %v", err)
	}
}

func TestResendVerificationCodeReplacesChallenge(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	if _, err := f.engine.Register(ctx, RegisterInput{
		Email:    "ada@example.com",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	first := f.mailer.lastVerificationCode("ada@example.com")

	if err := f.engine.ResendVerificationCode(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ResendVerificationCode failed: %v", err)
	}
	second := f.mailer.lastVerificationCode("ada@example.com")

	acct, err := f.directory.FindByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if acct.VerificationCode != second {
		t.Fatal("stored challenge must carry the latest code")
	}

	// The replaced code stops working even when it happens to differ.
	if first != second {
		if _, err := f.engine.VerifyEmail(ctx, "ada@example.com", first); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("expected ErrCodeMismatch for stale code, got %v", err)
		}
	}
	if _, err := f.engine.VerifyEmail(ctx, "ada@example.com", second); err != nil {
		t.Fatalf("VerifyEmail with fresh code failed: %v", err)
	}
}

func TestResendVerificationCodeOnVerifiedAccount(t *testing.T) {
	f := newTestEngine(t)
	registerVerified(t, f, "ada@example.com", "correct-horse")

	err := f.engine.ResendVerificationCode(context.Background(), "ada@example.com")
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestResendVerificationCodeUnknownAccount(t *testing.T) {
	f := newTestEngine(t)

	err := f.engine.ResendVerificationCode(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
