package check

import (
	"strings"

	"github.com/optimode/verimail/internal/datasets"
	"github.com/optimode/verimail/types"
)

// FreeProviderChecker reports free mailbox providers with their display
// name ("Gmail", "Yahoo", ...).
type FreeProviderChecker struct{}

func NewFreeProviderChecker() *FreeProviderChecker {
	return &FreeProviderChecker{}
}

func (c *FreeProviderChecker) Check(domain string) types.FreeProviderCheck {
	if name, ok := datasets.FreeProviders[strings.ToLower(domain)]; ok {
		return types.FreeProviderCheck{IsFree: true, Provider: name}
	}
	return types.FreeProviderCheck{IsFree: false}
}
