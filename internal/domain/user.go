package domain

import (
	"maps"
	"strings"
)

// PlanTier enumerates billing plans.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanBasic      PlanTier = "basic"
	PlanPremium    PlanTier = "premium"
	PlanEnterprise PlanTier = "enterprise"
)

// Valid reports whether p is a known plan tier.
func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

const (
	DefaultCredits    = 50
	DefaultMaxCredits = 100
)

// Profile represents the authenticated account: plan, credits and usage.
type Profile struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Plan       PlanTier         `json:"plan"`
	Credits    int              `json:"credits"`
	MaxCredits int              `json:"max_credits"`
	Usage      map[ToolKind]int `json:"usage"`
}

// DefaultProfile returns the profile a brand new account starts with.
func DefaultProfile(id, email, name string) Profile {
	if strings.TrimSpace(name) == "" {
		name = DisplayNameFromEmail(email)
	}
	usage := make(map[ToolKind]int, len(ToolKinds))
	for _, k := range ToolKinds {
		usage[k] = 0
	}
	return Profile{
		ID:         id,
		Name:       name,
		Email:      email,
		Plan:       PlanFree,
		Credits:    DefaultCredits,
		MaxCredits: DefaultMaxCredits,
		Usage:      usage,
	}
}

// DisplayNameFromEmail derives a display name from the local part of an email.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local = strings.TrimSpace(local); local == "" {
		return "User"
	}
	return local
}

// UsageCount returns the usage counter for a tool.
func (p Profile) UsageCount(k ToolKind) int {
	return p.Usage[k]
}

// Clone returns a deep copy so callers can never mutate a cached profile.
func (p Profile) Clone() Profile {
	p.Usage = maps.Clone(p.Usage)
	if p.Usage == nil {
		p.Usage = map[ToolKind]int{}
	}
	return p
}

// ProfilePatch is a partial profile update. Nil fields are left untouched and
// Usage entries carry absolute counter values.
type ProfilePatch struct {
	Name       *string          `json:"name,omitempty"`
	Plan       *PlanTier        `json:"plan,omitempty"`
	Credits    *int             `json:"credits,omitempty"`
	MaxCredits *int             `json:"max_credits,omitempty"`
	Usage      map[ToolKind]int `json:"usage,omitempty"`
}

// Empty reports whether the patch carries no field.
func (pp ProfilePatch) Empty() bool {
	return pp.Name == nil && pp.Plan == nil && pp.Credits == nil && pp.MaxCredits == nil && len(pp.Usage) == 0
}

// Validate rejects patches that would break profile invariants.
func (pp ProfilePatch) Validate() error {
	if pp.Plan != nil && !pp.Plan.Valid() {
		return ErrUnsupportedPlan
	}
	if pp.Credits != nil && *pp.Credits < 0 {
		return Validation("credits must not be negative")
	}
	if pp.MaxCredits != nil && *pp.MaxCredits < 0 {
		return Validation("max_credits must not be negative")
	}
	for k, v := range pp.Usage {
		if !k.Valid() {
			return Validation("unknown tool %q", k)
		}
		if v < 0 {
			return Validation("usage for %s must not be negative", k)
		}
	}
	return nil
}

// Apply returns p with the patch merged in.
func (pp ProfilePatch) Apply(p Profile) Profile {
	out := p.Clone()
	if pp.Name != nil {
		out.Name = *pp.Name
	}
	if pp.Plan != nil {
		out.Plan = *pp.Plan
	}
	if pp.Credits != nil {
		out.Credits = *pp.Credits
	}
	if pp.MaxCredits != nil {
		out.MaxCredits = *pp.MaxCredits
	}
	for k, v := range pp.Usage {
		out.Usage[k] = v
	}
	return out
}
