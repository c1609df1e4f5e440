package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewAndIs(t *testing.T) {
	err := New(ErrCodeInvalidKey, "invalid key: %q", "a b")

	if !Is(err, ErrCodeInvalidKey) {
		t.Error("Is should match the code")
	}
	if Is(err, ErrCodeNotFound) {
		t.Error("Is should not match a different code")
	}
	if got := err.Error(); !strings.Contains(got, "INVALID_KEY") || !strings.Contains(got, `"a b"`) {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeStore, cause, "load workspace %s", "ws-1")

	if !Is(err, ErrCodeStore) {
		t.Error("Is should match the wrapping code")
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should satisfy errors.Is on the cause")
	}
	// wrapping again keeps the outermost code
	outer := fmt.Errorf("request: %w", err)
	if GetCode(outer) != ErrCodeStore {
		t.Errorf("GetCode(outer) = %q", GetCode(outer))
	}
}

func TestGetCodePlainError(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeWorkspaceNotFound, "workspace %q not found", "ws-1")
	if got := UserMessage(err); got != `workspace "ws-1" not found` {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("UserMessage plain = %q", got)
	}
}

func TestSyntaxError(t *testing.T) {
	err := &SyntaxError{Pos: 5, Token: "AND", Message: "expected tag"}

	if !IsSyntax(err) {
		t.Error("IsSyntax should detect a SyntaxError")
	}
	if !IsSyntax(fmt.Errorf("parse: %w", err)) {
		t.Error("IsSyntax should unwrap")
	}
	if IsSyntax(stderrors.New("other")) {
		t.Error("IsSyntax should reject unrelated errors")
	}
	if got := err.Error(); !strings.Contains(got, "position 5") || !strings.Contains(got, `"AND"`) {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"billing", "billing:invoice", "team-pay", "a_b", "A9"}
	for _, key := range valid {
		if err := ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q) = %v, want nil", key, err)
		}
	}

	invalid := []string{"", "-starts-bad", "has space", ":lead", strings.Repeat("x", 257)}
	for _, key := range invalid {
		if err := ValidateKey(key); !Is(err, ErrCodeInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want INVALID_KEY", key, err)
		}
	}
}

func TestValidateTag(t *testing.T) {
	if err := ValidateTag("payment api"); err != nil {
		t.Errorf("tags may contain spaces: %v", err)
	}
	if err := ValidateTag(`has"quote`); !Is(err, ErrCodeInvalidInput) {
		t.Errorf("quoted tag = %v, want INVALID_INPUT", err)
	}
	if err := ValidateTag(""); !Is(err, ErrCodeInvalidInput) {
		t.Errorf("empty tag = %v, want INVALID_INPUT", err)
	}
}
