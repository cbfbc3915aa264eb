// Package types contains the shared result types for verimail.
// This package does not import anything from other verimail packages
// to avoid circular imports.
package types

import "time"

// Deliverability is the engine's qualitative verdict about whether mail
// can likely be delivered to the address.
type Deliverability string

const (
	Deliverable   Deliverability = "deliverable"
	Risky         Deliverability = "risky"
	Undeliverable Deliverability = "undeliverable"
	Unknown       Deliverability = "unknown"
)

// Risk classifies how dangerous it is to accept the address.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Existence is the tri-state answer of probes that cannot always decide.
type Existence string

const (
	ExistsYes     Existence = "yes"
	ExistsNo      Existence = "no"
	ExistsUnknown Existence = "unknown"
)

// SyntaxCheck is the outcome of the lexical probe.
type SyntaxCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// DomainCheck reports on the format of the domain part. Exists is
// optimistic; actual existence is settled by the MX probe.
type DomainCheck struct {
	Valid   bool   `json:"valid"`
	Exists  bool   `json:"exists"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// MXCheck reports mail-exchanger resolution. When a domain has no MX but
// does have an A record, Records contains the "[A record fallback]" marker.
type MXCheck struct {
	Valid   bool     `json:"valid"`
	Records []string `json:"records,omitempty"`
	Stale   bool     `json:"stale,omitempty"`
	Skipped bool     `json:"skipped,omitempty"`
	Message string   `json:"message,omitempty"`
}

// DisposableCheck reports whether the domain belongs to a throwaway
// mail provider.
type DisposableCheck struct {
	IsDisposable bool   `json:"isDisposable"`
	Matched      string `json:"matched,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// RoleCheck reports role-based local parts (admin@, support@, ...).
type RoleCheck struct {
	IsRoleBased bool   `json:"isRoleBased"`
	Role        string `json:"role,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
}

// TypoCheck reports likely misspellings of well-known domains.
type TypoCheck struct {
	HasTypo    bool   `json:"hasTypo"`
	Suggestion string `json:"suggestion,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
}

// FreeProviderCheck reports free mailbox providers with a display name.
type FreeProviderCheck struct {
	IsFree   bool   `json:"isFree"`
	Provider string `json:"provider,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// BlacklistCheck reports DNSBL listings for the domain.
type BlacklistCheck struct {
	Blacklisted bool     `json:"blacklisted"`
	Lists       []string `json:"lists,omitempty"`
	Stale       bool     `json:"stale,omitempty"`
	Skipped     bool     `json:"skipped,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// CatchAllCheck reports whether the domain accepts any local part.
// Checked is false when no SMTP evidence for the domain exists yet.
type CatchAllCheck struct {
	Checked    bool   `json:"checked"`
	IsCatchAll bool   `json:"isCatchAll"`
	Skipped    bool   `json:"skipped,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SMTPCheck is the outcome of the live mailbox probe.
type SMTPCheck struct {
	Checked    bool      `json:"checked"`
	Exists     Existence `json:"exists"`
	CatchAll   bool      `json:"catchAll,omitempty"`
	Greylisted bool      `json:"greylisted,omitempty"`
	Code       int       `json:"code,omitempty"`
	MXHost     string    `json:"mxHost,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// AuthStrength grades an SPF or DMARC policy.
type AuthStrength string

const (
	StrengthStrong   AuthStrength = "strong"
	StrengthModerate AuthStrength = "moderate"
	StrengthWeak     AuthStrength = "weak"
	StrengthNone     AuthStrength = "none"
)

// SPFResult is the parsed SPF policy of a domain.
type SPFResult struct {
	Found      bool         `json:"found"`
	Record     string       `json:"record,omitempty"`
	Mechanisms []string     `json:"mechanisms,omitempty"`
	Redirect   string       `json:"redirect,omitempty"`
	Strength   AuthStrength `json:"strength"`
	Message    string       `json:"message,omitempty"`
}

// DMARCResult is the parsed DMARC policy of a domain.
type DMARCResult struct {
	Found           bool         `json:"found"`
	Record          string       `json:"record,omitempty"`
	Policy          string       `json:"policy,omitempty"`
	SubdomainPolicy string       `json:"subdomainPolicy,omitempty"`
	Percent         int          `json:"percent,omitempty"`
	RUA             string       `json:"rua,omitempty"`
	RUF             string       `json:"ruf,omitempty"`
	ADKIM           string       `json:"adkim,omitempty"`
	ASPF            string       `json:"aspf,omitempty"`
	Strength        AuthStrength `json:"strength"`
}

// DKIMResult lists DKIM selectors found for a domain.
type DKIMResult struct {
	Found     bool     `json:"found"`
	Selectors []string `json:"selectors,omitempty"`
	Revoked   []string `json:"revoked,omitempty"`
}

// AuthCheck aggregates SPF, DMARC and DKIM into a 0..100 score.
type AuthCheck struct {
	Checked bool        `json:"checked"`
	SPF     SPFResult   `json:"spf"`
	DMARC   DMARCResult `json:"dmarc"`
	DKIM    DKIMResult  `json:"dkim"`
	Score   int         `json:"score"`
	Stale   bool        `json:"stale,omitempty"`
	Message string      `json:"message,omitempty"`
}

// DomainAge is the RDAP-derived registration age of a domain.
// AgeInDays is nil when the age could not be determined.
type DomainAge struct {
	AgeInDays    *int       `json:"ageInDays"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
	IsNew        bool       `json:"isNew,omitempty"`
	IsYoung      bool       `json:"isYoung,omitempty"`
	Message      string     `json:"message,omitempty"`
}

// ReputationFactor is one signed contribution to the reputation score.
type ReputationFactor struct {
	Name  string `json:"name"`
	Delta int    `json:"delta"`
}

// ReputationRisk grades the reputation score.
type ReputationRisk string

const (
	RepRiskLow      ReputationRisk = "low"
	RepRiskMedium   ReputationRisk = "medium"
	RepRiskHigh     ReputationRisk = "high"
	RepRiskCritical ReputationRisk = "critical"
)

// ReputationCheck is the aggregate domain reputation verdict.
type ReputationCheck struct {
	Checked  bool               `json:"checked"`
	Score    int                `json:"score"`
	Risk     ReputationRisk     `json:"risk"`
	Age      DomainAge          `json:"age"`
	Listings []string           `json:"listings,omitempty"`
	Factors  []ReputationFactor `json:"factors,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// GravatarCheck reports whether the address has a Gravatar avatar.
type GravatarCheck struct {
	Checked    bool   `json:"checked"`
	Exists     bool   `json:"exists"`
	Hash       string `json:"hash,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	ProfileURL string `json:"profileUrl,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Checks is the fixed tuple of probe sub-results in a ValidationResult.
// Optional probes are nil unless their flag was enabled.
type Checks struct {
	Syntax       SyntaxCheck       `json:"syntax"`
	Domain       DomainCheck       `json:"domain"`
	MX           MXCheck           `json:"mx"`
	Disposable   DisposableCheck   `json:"disposable"`
	RoleBased    RoleCheck         `json:"roleBased"`
	Typo         TypoCheck         `json:"typo"`
	FreeProvider FreeProviderCheck `json:"freeProvider"`
	Blacklist    BlacklistCheck    `json:"blacklist"`
	CatchAll     CatchAllCheck     `json:"catchAll"`

	SMTP       *SMTPCheck       `json:"smtp,omitempty"`
	Auth       *AuthCheck       `json:"authentication,omitempty"`
	Reputation *ReputationCheck `json:"reputation,omitempty"`
	Gravatar   *GravatarCheck   `json:"gravatar,omitempty"`
}
