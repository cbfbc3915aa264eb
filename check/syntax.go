package check

import (
	"regexp"
	"strings"

	"github.com/optimode/verimail/types"
)

// SyntaxChecker validates the lexical form of an address. The rules are
// applied in order and the first failure wins; the message strings are
// stable and part of the public contract.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

var (
	labelRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

	// Permissive RFC-5322-inspired grammar: dot-atom or quoted-string
	// local part, labels-plus-TLD or bracketed IPv4 domain.
	emailRe = regexp.MustCompile(
		"^(?:[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+)*" +
			"|\"(?:[^\"\\\\]|\\\\.)*\")" +
			"@(?:(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\\.)+[A-Za-z]{2,}" +
			"|\\[(?:[0-9]{1,3}\\.){3}[0-9]{1,3}\\])$")
)

// Check validates raw. It operates on the raw string because an Address
// only exists once syntax has passed.
func (c *SyntaxChecker) Check(raw string) types.SyntaxCheck {
	email := strings.TrimSpace(raw)

	if email == "" {
		return fail("email address is empty")
	}
	if len(email) > 254 {
		return fail("email address exceeds 254 characters")
	}

	atIdx := strings.LastIndex(email, "@")
	if atIdx < 0 {
		return fail("email address must contain an @ symbol")
	}
	local := email[:atIdx]
	domain := email[atIdx+1:]

	quotedLocal := strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`) && len(local) >= 2
	if !quotedLocal && strings.Count(email, "@") != 1 {
		return fail("email address must contain exactly one @ symbol")
	}

	if local == "" {
		return fail("local part is empty")
	}
	if len(local) > 64 {
		return fail("local part exceeds 64 characters")
	}
	if domain == "" {
		return fail("domain is empty")
	}
	if len(domain) > 253 {
		return fail("domain exceeds 253 characters")
	}

	if strings.Contains(email, "..") {
		return fail("consecutive dots are not allowed")
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return fail("local part cannot start or end with a dot")
	}

	ipLiteral := strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]")
	if !ipLiteral {
		if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
			return fail("domain cannot start or end with a dot")
		}
		if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
			return fail("domain cannot start or end with a hyphen")
		}
		if !strings.Contains(domain, ".") {
			return fail("domain must contain at least one dot")
		}

		labels := strings.Split(domain, ".")
		tld := labels[len(labels)-1]
		if len(tld) < 2 {
			return fail("top-level domain must be at least 2 characters")
		}
		for _, label := range labels {
			if !labelRe.MatchString(label) {
				return fail("domain contains an invalid label: " + label)
			}
		}
	}

	if !emailRe.MatchString(email) {
		return fail("email address has invalid syntax")
	}

	return types.SyntaxCheck{Valid: true, Message: "syntax ok"}
}

func fail(msg string) types.SyntaxCheck {
	return types.SyntaxCheck{Valid: false, Message: msg}
}
