package authz

import (
	"testing"
	"time"

	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

func TestCapabilityIsValid(t *testing.T) {
	for _, c := range Capabilities() {
		if !c.IsValid() {
			t.Fatalf("IsValid(%q) = false, want true", c)
		}
	}
	for _, c := range []Capability{"", "treasury.deposit", "TREASURY.WITHDRAW"} {
		if c.IsValid() {
			t.Fatalf("IsValid(%q) = true, want false", c)
		}
	}
}

func TestParseCapability(t *testing.T) {
	tests := []struct {
		in      string
		want    Capability
		wantErr bool
	}{
		{in: "treasury.withdraw", want: CapabilityWithdrawTreasury},
		{in: "FEES.SET", want: CapabilitySetFees},
		{in: "  campaigns.launch  ", want: CapabilityLaunchCampaigns},
		{in: "", wantErr: true},
		{in: "pools.drain", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseCapability(tt.in)
		if tt.wantErr {
			if !apperrors.IsCode(err, apperrors.CodeAuthzUnknownCapability) {
				t.Fatalf("ParseCapability(%q) error = %v, want code %v", tt.in, err, apperrors.CodeAuthzUnknownCapability)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseCapability(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseCapability(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePrincipal(t *testing.T) {
	got, err := NormalizePrincipal("  alice  ")
	if err != nil {
		t.Fatalf("NormalizePrincipal() error = %v", err)
	}
	if got != "alice" {
		t.Fatalf("NormalizePrincipal() = %q, want %q", got, "alice")
	}

	if _, err := NormalizePrincipal("   "); !apperrors.IsCode(err, apperrors.CodeAuthzPrincipalEmpty) {
		t.Fatalf("NormalizePrincipal(blank) error = %v, want code %v", err, apperrors.CodeAuthzPrincipalEmpty)
	}
}

func TestNewGrant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	grant, err := NewGrant(" alice ", CapabilitySetFees, "owner-1", now)
	if err != nil {
		t.Fatalf("NewGrant() error = %v", err)
	}
	if grant.Principal != "alice" || grant.Capability != CapabilitySetFees || grant.GrantedBy != "owner-1" {
		t.Fatalf("NewGrant() = %+v, want alice/fees.set/owner-1", grant)
	}
	if !grant.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt = %v, want %v", grant.UpdatedAt, now)
	}

	if _, err := NewGrant("", CapabilitySetFees, "owner-1", now); !apperrors.IsCode(err, apperrors.CodeAuthzPrincipalEmpty) {
		t.Fatalf("NewGrant(blank principal) error = %v, want code %v", err, apperrors.CodeAuthzPrincipalEmpty)
	}
	if _, err := NewGrant("alice", Capability("pools.drain"), "owner-1", now); !apperrors.IsCode(err, apperrors.CodeAuthzUnknownCapability) {
		t.Fatalf("NewGrant(unknown capability) error = %v, want code %v", err, apperrors.CodeAuthzUnknownCapability)
	}
	if _, err := NewGrant("alice", CapabilitySetFees, "", now); !apperrors.IsCode(err, apperrors.CodeAuthzPrincipalEmpty) {
		t.Fatalf("NewGrant(blank grantedBy) error = %v, want code %v", err, apperrors.CodeAuthzPrincipalEmpty)
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		owner      string
		principal  string
		hasGrant   bool
		want       bool
		wantReason string
	}{
		{name: "owner holds everything", owner: "owner-1", principal: "owner-1", want: true, wantReason: ReasonOwner},
		{name: "explicit grant", owner: "owner-1", principal: "alice", hasGrant: true, want: true, wantReason: ReasonGranted},
		{name: "no grant", owner: "owner-1", principal: "alice", want: false, wantReason: ReasonMissingGrant},
		{name: "empty owner never matches", owner: "", principal: "", want: false, wantReason: ReasonMissingGrant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.owner, tt.principal, CapabilityWithdrawTreasury, tt.hasGrant)
			if d.Allowed != tt.want || d.ReasonCode != tt.wantReason {
				t.Fatalf("Decide() = %+v, want Allowed=%v ReasonCode=%s", d, tt.want, tt.wantReason)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	if err := Authorize("owner-1", "owner-1", CapabilitySetFees, false); err != nil {
		t.Fatalf("Authorize(owner) error = %v", err)
	}
	if err := Authorize("owner-1", "alice", CapabilitySetFees, true); err != nil {
		t.Fatalf("Authorize(granted) error = %v", err)
	}

	err := Authorize("owner-1", "alice", CapabilityWithdrawTreasury, false)
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("Authorize() error = %v, want code %v", err, apperrors.CodeUnauthorized)
	}
	meta := apperrors.GetMetadata(err)
	if meta["Principal"] != "alice" || meta["Capability"] != "treasury.withdraw" {
		t.Fatalf("metadata = %v, want Principal=alice Capability=treasury.withdraw", meta)
	}

	if err := Authorize("owner-1", "   ", CapabilitySetFees, true); !apperrors.IsCode(err, apperrors.CodeAuthzPrincipalEmpty) {
		t.Fatalf("Authorize(blank principal) error = %v, want code %v", err, apperrors.CodeAuthzPrincipalEmpty)
	}
}

func TestCanAdminister(t *testing.T) {
	if !CanAdminister("owner-1", "owner-1") {
		t.Fatal("CanAdminister(owner) = false, want true")
	}
	if CanAdminister("owner-1", "alice") {
		t.Fatal("CanAdminister(non-owner) = true, want false")
	}
	if CanAdminister("", "") {
		t.Fatal("CanAdminister(empty owner) = true, want false")
	}
}
