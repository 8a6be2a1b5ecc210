package ticket

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
)

func testClaims() Claims {
	return Claims{
		Role:    RoleQueen,
		Subject: "queen-0",
		Scopes:  []string{"/queen/ctl", "/log/queen.log"},
		Budget:  Budget{TTLSeconds: 60, Ops: 100, Bytes: 4096},
	}
}

func TestMintVerifyRoundTrip(t *testing.T) {
	key := []byte("test-hive-key-0123456789abcdef0")
	tk, err := Mint(key, testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := Verify(key, tk); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestTamperedClaimsFailVerify(t *testing.T) {
	key := []byte("test-hive-key-0123456789abcdef0")
	tk, err := Mint(key, testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	tk.Claims.Subject = "attacker"
	if err := Verify(key, tk); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for tampered claims, got %v", err)
	}
}

func TestWrongKeyFailsVerify(t *testing.T) {
	key := []byte("test-hive-key-0123456789abcdef0")
	other := []byte("different-hive-key-fedcba987654")
	tk, err := Mint(key, testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := Verify(other, tk); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for wrong key, got %v", err)
	}
}

func TestTooManyScopesRejected(t *testing.T) {
	c := testClaims()
	c.Scopes = make([]string, 9)
	for i := range c.Scopes {
		c.Scopes[i] = "/x"
	}
	if _, err := Mint([]byte("k"), c); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for too many scopes, got %v", err)
	}
}

func TestBudgetStateExhaustion(t *testing.T) {
	bs := NewBudgetState(Budget{TTLSeconds: 1, Ops: 2, Bytes: 10}, CursorLimits{}, 200)
	if err := bs.ConsumeOp(4); err != nil {
		t.Fatalf("first op should succeed: %v", err)
	}
	if err := bs.ConsumeOp(4); err != nil {
		t.Fatalf("second op should succeed: %v", err)
	}
	if err := bs.ConsumeOp(1); errcode.CodeOf(err) != errcode.RateLimited {
		t.Fatalf("expected RateLimited after ops exhausted, got %v", err)
	}
}

func TestBudgetStateTTLExpiry(t *testing.T) {
	bs := NewBudgetState(Budget{TTLSeconds: 1, Ops: 100}, CursorLimits{}, 2)
	if bs.Tick() {
		t.Fatalf("should not expire on first tick")
	}
	if !bs.Tick() {
		t.Fatalf("should expire on second tick")
	}
}
