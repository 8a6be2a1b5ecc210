package ticket

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key := []byte("test-hive-key-0123456789abcdef0")
	tk, err := Mint(key, testClaims())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	raw, err := Encode(tk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := Verify(key, decoded); err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
	if decoded.Claims.Subject != tk.Claims.Subject {
		t.Fatalf("subject mismatch after round trip")
	}
}
