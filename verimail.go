// Package verimail is an email validation engine. It scores addresses
// from 0 to 100 by combining lexical checks, DNS resolution over
// DNS-over-HTTPS with classic fallback, static disposable/role/typo
// lists, DNSBL blocklists, and opt-in SMTP, authentication (SPF/DMARC/
// DKIM), domain reputation and Gravatar probes.
//
// Basic usage:
//
//	v := verimail.New(verimail.Config{})
//	defer v.Close()
//	result, err := v.Validate(ctx, "user@example.com", verimail.Options{})
//
// Full pipeline:
//
//	result, err := v.Validate(ctx, "user@example.com", verimail.Options{
//	    SMTP:       true,
//	    Auth:       true,
//	    Reputation: true,
//	    Gravatar:   true,
//	})
package verimail

import "github.com/optimode/verimail/types"

// Checks is a re-export from the types package so that consumers don't
// need to import the types package directly.
type Checks = types.Checks

// Deliverability is a re-export.
type Deliverability = types.Deliverability

// Risk is a re-export.
type Risk = types.Risk

// Deliverability constants re-exported.
const (
	Deliverable   = types.Deliverable
	Risky         = types.Risky
	Undeliverable = types.Undeliverable
	Unknown       = types.Unknown
)

// Risk constants re-exported.
const (
	RiskLow    = types.RiskLow
	RiskMedium = types.RiskMedium
	RiskHigh   = types.RiskHigh
)
