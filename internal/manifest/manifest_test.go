package manifest

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
)

func TestDefaultManifestValidates(t *testing.T) {
	if err := Validate(DefaultManifest()); err != nil {
		t.Fatalf("default manifest should validate: %v", err)
	}
}

func TestParseEmptyFallsBackToDefaults(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Bounds.Msize != DefaultManifest().Bounds.Msize {
		t.Fatalf("expected default msize")
	}
}

func TestParseOverridesField(t *testing.T) {
	m, err := Parse([]byte(`{"bounds":{"tags_per_session":16}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Bounds.TagsPerSession != 16 {
		t.Fatalf("expected overridden tags_per_session, got %d", m.Bounds.TagsPerSession)
	}
	if m.Bounds.Msize != DefaultManifest().Bounds.Msize {
		t.Fatalf("expected untouched fields to keep their defaults")
	}
}

func TestValidateRejectsNonPowerOfTwoRing(t *testing.T) {
	m := DefaultManifest()
	m.Ring.BytesPerWorker = 5 << 20
	if err := Validate(m); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid, got %v", err)
	}
}

func TestValidateRejectsChunkBytesLargerThanMsize(t *testing.T) {
	m := DefaultManifest()
	m.CAS.ChunkBytes = uint64(m.Bounds.Msize) + 1
	if err := Validate(m); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid, got %v", err)
	}
}

func TestPolicyEnableDefaultsOffAndParses(t *testing.T) {
	if DefaultManifest().Policy.Enable {
		t.Fatalf("expected policy gate to default off")
	}
	m, err := Parse([]byte(`{"policy":{"enable":true}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.Policy.Enable {
		t.Fatalf("expected policy.enable to parse true")
	}
}
