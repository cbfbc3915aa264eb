package verimail_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verimail "github.com/optimode/verimail"
	"github.com/optimode/verimail/internal/ratelimit"
)

func TestValidateBulk_MixedList(t *testing.T) {
	dns := (&scriptDNS{}).
		withMX("example.com", "mx.example.com").
		withMX("mailinator.com", "mx.mailinator.com")
	v := newTestValidator(t, dns, nil)

	emails := []string{
		"alice@example.com",
		"ALICE@example.com", // duplicate after normalization
		"burner@mailinator.com",
		"no-at-sign", // dropped by sanitisation
		"ghost@no-mx.example",
	}
	out, err := v.ValidateBulk(context.Background(), emails, verimail.Options{}, verimail.BulkOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Metadata.Total)
	assert.Equal(t, 3, out.Metadata.Completed)
	assert.Equal(t, 1, out.Metadata.DuplicatesRemoved)
	assert.Equal(t, 1, out.Metadata.InvalidRemoved)
	assert.False(t, out.Metadata.TimedOut)
	assert.Greater(t, out.Metadata.ProcessingTime, time.Duration(0))

	require.Len(t, out.Results, 3)
	byEmail := make(map[string]verimail.ValidationResult, len(out.Results))
	for _, r := range out.Results {
		byEmail[r.Email] = r
	}
	assert.True(t, byEmail["alice@example.com"].IsValid)
	assert.True(t, byEmail["burner@mailinator.com"].Checks.Disposable.IsDisposable)
	assert.False(t, byEmail["ghost@no-mx.example"].Checks.MX.Valid)
}

func TestValidateBulk_PreservesOrder(t *testing.T) {
	dns := (&scriptDNS{}).withMX("example.com", "mx.example.com")
	v := newTestValidator(t, dns, nil)

	emails := []string{"c@example.com", "a@example.com", "b@example.com"}
	out, err := v.ValidateBulk(context.Background(), emails, verimail.Options{}, verimail.BulkOptions{})
	require.NoError(t, err)

	require.Len(t, out.Results, 3)
	for i, email := range emails {
		assert.Equal(t, email, out.Results[i].Email)
	}
}

func TestValidateBulk_Progress(t *testing.T) {
	dns := (&scriptDNS{}).withMX("example.com", "mx.example.com")
	v := newTestValidator(t, dns, nil)

	var calls [][2]int
	_, err := v.ValidateBulk(context.Background(),
		[]string{"a@example.com", "b@example.com"},
		verimail.Options{},
		verimail.BulkOptions{Progress: func(completed, total int) {
			calls = append(calls, [2]int{completed, total})
		}})
	require.NoError(t, err)

	require.Len(t, calls, 1, "two entries fit in a single batch")
	assert.Equal(t, [2]int{2, 2}, calls[0])
}

func TestValidateBulk_ProgressAcrossBatches(t *testing.T) {
	dns := (&scriptDNS{}).withMX("example.com", "mx.example.com")
	v := newTestValidator(t, dns, nil)

	emails := make([]string, 125)
	for i := range emails {
		emails[i] = fmt.Sprintf("user%03d@example.com", i)
	}

	var calls [][2]int
	out, err := v.ValidateBulk(context.Background(), emails, verimail.Options{},
		verimail.BulkOptions{Progress: func(completed, total int) {
			calls = append(calls, [2]int{completed, total})
		}})
	require.NoError(t, err)

	assert.Equal(t, 125, out.Metadata.Completed)
	assert.Equal(t, [][2]int{{50, 125}, {100, 125}, {125, 125}}, calls)
}

func TestValidateBulk_SizeLimit(t *testing.T) {
	dns := (&scriptDNS{}).withMX("example.com", "mx.example.com")
	v := newTestValidator(t, dns, func(cfg *verimail.Config) {
		cfg.MaxBulkSize = 2
	})

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	_, err := v.ValidateBulk(context.Background(), emails, verimail.Options{}, verimail.BulkOptions{})
	assert.ErrorIs(t, err, verimail.ErrInvalidBulkSize)
}

func TestValidateBulk_Timeout(t *testing.T) {
	dns := (&scriptDNS{}).withMX("example.com", "mx.example.com")
	v := newTestValidator(t, dns, nil)

	// A budget below the per-batch minimum means no batch ever starts.
	out, err := v.ValidateBulk(context.Background(),
		[]string{"a@example.com", "b@example.com"},
		verimail.Options{},
		verimail.BulkOptions{MaxTimeout: time.Second})
	require.NoError(t, err)

	assert.True(t, out.Metadata.TimedOut)
	assert.Zero(t, out.Metadata.Completed)
	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.False(t, r.IsValid)
		assert.Equal(t, verimail.Unknown, r.Deliverability)
		assert.Equal(t, verimail.RiskHigh, r.Risk)
		assert.Equal(t, "Validation timed out", r.Message)
	}
}

func TestValidateBulk_RateLimited(t *testing.T) {
	dns := (&scriptDNS{}).withMX("example.com", "mx.example.com")
	v := newTestValidator(t, dns, func(cfg *verimail.Config) {
		cfg.RateRules = map[ratelimit.Scope]ratelimit.Rule{
			ratelimit.ScopeBulk: {Limit: 1, Window: time.Minute},
		}
	})

	ctx := context.Background()
	bulkOpts := verimail.BulkOptions{ClientID: "tenant-1"}
	emails := []string{"a@example.com"}

	_, err := v.ValidateBulk(ctx, emails, verimail.Options{}, bulkOpts)
	require.NoError(t, err)

	_, err = v.ValidateBulk(ctx, emails, verimail.Options{}, bulkOpts)
	var rl *verimail.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "bulk", rl.Scope)
}

func TestValidateBulk_EmptyAfterSanitisation(t *testing.T) {
	v := newTestValidator(t, &scriptDNS{}, nil)

	out, err := v.ValidateBulk(context.Background(), []string{"garbage", ""}, verimail.Options{}, verimail.BulkOptions{})
	require.NoError(t, err)
	assert.Zero(t, out.Metadata.Total)
	assert.Empty(t, out.Results)
	assert.Equal(t, 2, out.Metadata.InvalidRemoved)
}

func TestValidateBulk_ClosedValidator(t *testing.T) {
	v := newTestValidator(t, &scriptDNS{}, nil)
	require.NoError(t, v.Close())

	_, err := v.ValidateBulk(context.Background(), []string{"a@example.com"}, verimail.Options{}, verimail.BulkOptions{})
	assert.ErrorIs(t, err, verimail.ErrClosed)
}
