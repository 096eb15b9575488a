package api

import (
	"testing"

	"todoweb/domain"
)

func TestUserIDFromReference(t *testing.T) {
	cases := map[string]string{
		"/api/v1/user/abc-123/": "abc-123",
		"/api/v1/user/abc-123":  "abc-123",
		"abc-123":               "abc-123",
	}
	for ref, want := range cases {
		if got := userIDFromReference(ref); got != want {
			t.Fatalf("userIDFromReference(%q) = %q, want %q", ref, got, want)
		}
	}
}

func TestPayloadDefaultsPriority(t *testing.T) {
	sub, err := itemPayload{Name: "x"}.toSubmission()
	if err != nil {
		t.Fatalf("toSubmission: %v", err)
	}
	if sub.Priority != domain.DefaultPriority {
		t.Fatalf("expected default priority, got %d", sub.Priority)
	}
	if sub.ClaimedOwnerID != "" || sub.ClaimedCreated != nil {
		t.Fatalf("unexpected claims: %#v", sub)
	}
}

func TestPayloadExplicitUrgentPriority(t *testing.T) {
	zero := 0
	sub, err := itemPayload{Name: "x", Priority: &zero}.toSubmission()
	if err != nil {
		t.Fatalf("toSubmission: %v", err)
	}
	if sub.Priority != domain.PriorityUrgent {
		t.Fatalf("explicit 0 must mean urgent, got %d", sub.Priority)
	}
}
