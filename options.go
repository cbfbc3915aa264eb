package verimail

import (
	"strings"
	"time"
)

// Options are the per-validation opt-in flags. The zero value runs only
// the core pipeline (syntax, domain, MX, static lists, blocklist).
type Options struct {
	// ClientID, when set, is charged against the "single" rate-limit
	// scope. A blocked call returns a *RateLimitError.
	ClientID string

	// SMTP enables the live mailbox probe. Default timeout: 10s.
	SMTP        bool
	SMTPTimeout time.Duration

	// Auth enables the SPF/DMARC/DKIM probe. Default timeout: 10s.
	Auth        bool
	AuthTimeout time.Duration

	// Reputation enables the domain reputation probe. Default timeout: 15s.
	Reputation        bool
	ReputationTimeout time.Duration

	// Gravatar enables the avatar probe. Default timeout: 5s.
	Gravatar        bool
	GravatarTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SMTPTimeout <= 0 {
		o.SMTPTimeout = 10 * time.Second
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 10 * time.Second
	}
	if o.ReputationTimeout <= 0 {
		o.ReputationTimeout = 15 * time.Second
	}
	if o.GravatarTimeout <= 0 {
		o.GravatarTimeout = 5 * time.Second
	}
	return o
}

// anyOptional reports whether any opt-in probe is enabled.
func (o Options) anyOptional() bool {
	return o.SMTP || o.Auth || o.Reputation || o.Gravatar
}

// cacheKey builds the suffix-inclusive key used by the full-result cache
// and the coalescer. The same key is used for both read and write.
func (o Options) cacheKey(normalizedEmail string) string {
	var sb strings.Builder
	sb.WriteString(normalizedEmail)
	if o.SMTP {
		sb.WriteString(":smtp")
	}
	if o.Auth {
		sb.WriteString(":auth")
	}
	if o.Reputation {
		sb.WriteString(":rep")
	}
	if o.Gravatar {
		sb.WriteString(":grav")
	}
	return sb.String()
}

// BulkOptions configure a ValidateBulk call.
type BulkOptions struct {
	// ClientID, when set, is charged against the "bulk" rate-limit
	// scope. A blocked call returns a *RateLimitError.
	ClientID string

	// MaxTimeout is the global deadline for the whole job. Default: 30s.
	MaxTimeout time.Duration
	// Progress, when set, is invoked with (completed, total) after every
	// finished batch.
	Progress func(completed, total int)
}

func (o BulkOptions) withDefaults() BulkOptions {
	if o.MaxTimeout <= 0 {
		o.MaxTimeout = 30 * time.Second
	}
	return o
}
