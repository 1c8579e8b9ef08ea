package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	// WHAT: UUIDv7 generator produces 36-char 5-part UUIDs.
	// WHY: Session listings sort by ID; the format must be stable.
	gen := UUIDv7()
	id := gen()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		seen[id] = struct{}{}
	}
}

func TestNanoID_LengthAndAlphabet(t *testing.T) {
	for _, length := range []int{8, 12, 24} {
		id := NanoID(length)()
		if len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("NanoID: unexpected character %q in %q", c, id)
			}
		}
	}
}

func TestSession_Prefix(t *testing.T) {
	// WHAT: Session generator prepends "qz_" to a UUIDv7.
	// WHY: Session IDs must be recognisable in logs and store rows.
	id := Session()
	if !strings.HasPrefix(id, "qz_") {
		t.Fatalf("Session: expected prefix 'qz_', got %q", id)
	}
	if len(id) != 3+36 {
		t.Fatalf("Session: expected length 39, got %d", len(id))
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("pg_", NanoID(8))
	id := gen()
	if !strings.HasPrefix(id, "pg_") {
		t.Fatalf("Prefixed: expected prefix 'pg_', got %q", id)
	}
	if len(id) != 3+8 {
		t.Fatalf("Prefixed: expected length 11, got %d", len(id))
	}
}
