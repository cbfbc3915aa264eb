// Package check contains the individual probes of the validation
// pipeline: the pure lexical probes, the DNS-backed domain probes, and
// the network probes (SMTP, authentication records, reputation,
// Gravatar). Each probe is self-contained and returns its own typed
// sub-result; the orchestrator in the root package composes them.
package check
