package models

import (
	"testing"
	"time"
)

func TestReview_IdentityKey(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := Review{Reviewer: "alice", SubmittedAt: at}

	if got, want := a.IdentityKey("proj-1"), a.IdentityKey("proj-1"); got != want {
		t.Errorf("identical reviews should share a key: %q vs %q", got, want)
	}
	if a.IdentityKey("proj-1") == a.IdentityKey("proj-2") {
		t.Error("same review against different projects should have different keys")
	}

	b := Review{Reviewer: "bob", SubmittedAt: at}
	if a.IdentityKey("proj-1") == b.IdentityKey("proj-1") {
		t.Error("different reviewers should have different keys")
	}

	later := Review{Reviewer: "alice", SubmittedAt: at.Add(time.Nanosecond)}
	if a.IdentityKey("proj-1") == later.IdentityKey("proj-1") {
		t.Error("different submission times should have different keys")
	}
}

func TestReview_IdentityKeyNormalizesZone(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	est := at.In(time.FixedZone("EST", -5*3600))

	utc := Review{Reviewer: "alice", SubmittedAt: at}
	local := Review{Reviewer: "alice", SubmittedAt: est}
	if utc.IdentityKey("p") != local.IdentityKey("p") {
		t.Error("identity key should be independent of the wall-clock zone")
	}
}

func TestProject_NetInterest(t *testing.T) {
	p := &Project{Upvotes: 7, Downvotes: 3}
	if got := p.NetInterest(); got != 4 {
		t.Errorf("NetInterest() = %d, want 4", got)
	}
	p = &Project{Upvotes: 1, Downvotes: 5}
	if got := p.NetInterest(); got != -4 {
		t.Errorf("NetInterest() = %d, want -4", got)
	}
}

func TestArtifacts_HasSet(t *testing.T) {
	var a Artifacts
	for _, kind := range ArtifactKinds() {
		if a.Has(kind) {
			t.Errorf("zero value should not have %q", kind)
		}
		a.Set(kind, true)
		if !a.Has(kind) {
			t.Errorf("Set(%q, true) did not register", kind)
		}
	}
	a.Set(ArtifactCode, false)
	if a.Has(ArtifactCode) {
		t.Error("Set(code, false) did not clear")
	}
	if a.Has(ArtifactKind("binary")) {
		t.Error("unknown kind should never be present")
	}
}
