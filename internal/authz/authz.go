// Package authz provides capability-based authorization decisions for
// restricted engine operations.
//
// The model is a flat grant table: a principal either holds a capability or
// it does not. The configured owner principal implicitly holds every
// capability and is the only principal that can administer grants.
package authz

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// Capability names one restricted operation a principal may be granted.
type Capability string

const (
	// CapabilityWithdrawTreasury allows withdrawing from the protocol treasury.
	CapabilityWithdrawTreasury Capability = "treasury.withdraw"
	// CapabilitySetFees allows changing the runtime fee configuration.
	CapabilitySetFees Capability = "fees.set"
	// CapabilityLaunchCampaigns allows launching campaigns on deployments
	// that restrict launch. Open deployments never consult it.
	CapabilityLaunchCampaigns Capability = "campaigns.launch"
)

// Capabilities lists every grantable capability.
func Capabilities() []Capability {
	return []Capability{
		CapabilityWithdrawTreasury,
		CapabilitySetFees,
		CapabilityLaunchCampaigns,
	}
}

// IsValid reports whether the capability is a known one.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityWithdrawTreasury, CapabilitySetFees, CapabilityLaunchCampaigns:
		return true
	default:
		return false
	}
}

// ParseCapability canonicalizes a capability label.
func ParseCapability(value string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", apperrors.WithMetadata(apperrors.CodeAuthzUnknownCapability,
			fmt.Sprintf("unknown capability %q", value),
			map[string]string{"Capability": value})
	}
	return c, nil
}

// NormalizePrincipal trims a principal identifier and rejects blanks.
func NormalizePrincipal(value string) (string, error) {
	principal := strings.TrimSpace(value)
	if principal == "" {
		return "", apperrors.New(apperrors.CodeAuthzPrincipalEmpty, "principal cannot be empty")
	}
	return principal, nil
}

// Grant records that a principal holds one capability.
type Grant struct {
	Principal  string
	Capability Capability
	// GrantedBy is the owner principal that issued the grant.
	GrantedBy string
	UpdatedAt time.Time
}

// NewGrant validates and builds a grant.
func NewGrant(principal string, capability Capability, grantedBy string, at time.Time) (Grant, error) {
	principal, err := NormalizePrincipal(principal)
	if err != nil {
		return Grant{}, err
	}
	if !capability.IsValid() {
		return Grant{}, apperrors.WithMetadata(apperrors.CodeAuthzUnknownCapability,
			fmt.Sprintf("unknown capability %q", capability),
			map[string]string{"Capability": string(capability)})
	}
	grantedBy, err = NormalizePrincipal(grantedBy)
	if err != nil {
		return Grant{}, err
	}
	return Grant{
		Principal:  principal,
		Capability: capability,
		GrantedBy:  grantedBy,
		UpdatedAt:  at.UTC(),
	}, nil
}

// Reason codes carried on a Decision.
const (
	// ReasonOwner marks the owner's implicit hold on every capability.
	ReasonOwner = "OWNER"
	// ReasonGranted marks an explicit grant.
	ReasonGranted = "GRANTED"
	// ReasonMissingGrant marks a principal with no matching grant.
	ReasonMissingGrant = "MISSING_GRANT"
)

// Decision explains one authorization check.
type Decision struct {
	Allowed    bool
	ReasonCode string
}

// Decide reports whether the principal may exercise the capability. hasGrant
// is the caller's lookup against the grant table; the owner is allowed
// without one.
func Decide(owner, principal string, capability Capability, hasGrant bool) Decision {
	if owner != "" && principal == owner {
		return Decision{Allowed: true, ReasonCode: ReasonOwner}
	}
	if hasGrant {
		return Decision{Allowed: true, ReasonCode: ReasonGranted}
	}
	return Decision{Allowed: false, ReasonCode: ReasonMissingGrant}
}

// Authorize converts a denied Decision into an error the transport layers
// can classify.
func Authorize(owner, principal string, capability Capability, hasGrant bool) error {
	principal, err := NormalizePrincipal(principal)
	if err != nil {
		return err
	}
	if d := Decide(owner, principal, capability, hasGrant); !d.Allowed {
		return apperrors.WithMetadata(apperrors.CodeUnauthorized,
			fmt.Sprintf("principal %s lacks capability %s", principal, capability),
			map[string]string{
				"Principal":  principal,
				"Capability": string(capability),
			})
	}
	return nil
}

// CanAdminister reports whether the principal may grant or revoke
// capabilities. Only the owner can.
func CanAdminister(owner, principal string) bool {
	return owner != "" && principal == owner
}
