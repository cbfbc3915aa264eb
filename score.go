package verimail

import "github.com/optimode/verimail/types"

// Weighted contributions of the core checks. They sum to 100.
const (
	weightSyntax        = 20
	weightDomain        = 20
	weightMX            = 25
	weightNotDisposable = 15
	weightNotRole       = 5
	weightNotTypo       = 10
	weightNotListed     = 5
)

// baseScore folds the core checks into the 0..100 confidence score.
func baseScore(c types.Checks) int {
	score := 0
	if c.Syntax.Valid {
		score += weightSyntax
	}
	if c.Domain.Valid {
		score += weightDomain
	}
	if c.MX.Valid {
		score += weightMX
	}
	if !c.Disposable.IsDisposable {
		score += weightNotDisposable
	}
	if !c.RoleBased.IsRoleBased {
		score += weightNotRole
	}
	if !c.Typo.HasTypo {
		score += weightNotTypo
	}
	if !c.Blacklist.Blacklisted {
		score += weightNotListed
	}
	return score
}

// applyVerdicts sets IsValid, Deliverability and Risk from the core
// checks and the base score.
func applyVerdicts(r *ValidationResult) {
	c := r.Checks
	r.IsValid = c.Syntax.Valid && c.Domain.Valid && c.MX.Valid && !c.Typo.HasTypo

	switch {
	case !c.Syntax.Valid || !c.Domain.Valid:
		r.Deliverability = types.Undeliverable
	case !c.MX.Valid:
		r.Deliverability = types.Unknown
	case c.Disposable.IsDisposable || c.Blacklist.Blacklisted:
		r.Deliverability = types.Risky
	default:
		r.Deliverability = types.Deliverable
	}

	switch {
	case r.Score < 50 || c.Typo.HasTypo || c.Blacklist.Blacklisted:
		r.Risk = types.RiskHigh
	case c.Disposable.IsDisposable || c.RoleBased.IsRoleBased || c.CatchAll.IsCatchAll || r.Score < 80:
		r.Risk = types.RiskMedium
	default:
		r.Risk = types.RiskLow
	}
}

// applyAdjustments folds the optional probe outcomes into the verdict.
// Order matters: SMTP first, then authentication, then reputation.
func applyAdjustments(r *ValidationResult) {
	if smtp := r.Checks.SMTP; smtp != nil && smtp.Checked {
		if smtp.Exists == types.ExistsNo {
			r.IsValid = false
			r.Deliverability = types.Undeliverable
			r.Risk = types.RiskHigh
			if r.Score > 20 {
				r.Score = 20
			}
		}
		if smtp.CatchAll {
			r.Score -= 10
			if r.Risk == types.RiskLow {
				r.Risk = types.RiskMedium
			}
		}
	}

	if auth := r.Checks.Auth; auth != nil && auth.Checked {
		switch {
		case auth.Score >= 80:
			r.Score += 5
		case auth.Score == 0:
			r.Score -= 5
		}
	}

	if rep := r.Checks.Reputation; rep != nil && rep.Checked {
		switch {
		case rep.Score < 40:
			if r.Score > 40 {
				r.Score = 40
			}
			r.Risk = types.RiskHigh
		case rep.Score < 60:
			r.Score -= 15
			if r.Risk == types.RiskLow {
				r.Risk = types.RiskMedium
			}
		case rep.Score >= 80:
			r.Score += 3
		}
	}

	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
}
