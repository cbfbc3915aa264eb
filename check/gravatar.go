package check

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/optimode/verimail/internal/ttlcache"
	"github.com/optimode/verimail/types"
)

const gravatarTimeout = 5 * time.Second

// GravatarChecker asks gravatar.com whether the address has an avatar:
// HEAD /avatar/<md5>?d=404&s=1 answers 2xx when one exists.
type GravatarChecker struct {
	cache      *ttlcache.Cache[types.GravatarCheck]
	httpClient *http.Client
	baseURL    string
}

// NewGravatarChecker creates a Gravatar checker backed by the given cache
// (typically 500 entries, 1 hour TTL).
func NewGravatarChecker(cache *ttlcache.Cache[types.GravatarCheck]) *GravatarChecker {
	return &GravatarChecker{
		cache:      cache,
		httpClient: &http.Client{},
		baseURL:    "https://www.gravatar.com",
	}
}

// SetBaseURL overrides the endpoint (tests point it at a local server).
func (c *GravatarChecker) SetBaseURL(u string) { c.baseURL = u }

// SetHTTPClient overrides the HTTP client.
func (c *GravatarChecker) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

func (c *GravatarChecker) Check(ctx context.Context, email string) types.GravatarCheck {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))
	hash := hex.EncodeToString(sum[:])

	if c.cache != nil {
		if cached, ok := c.cache.Get(hash); ok {
			return cached
		}
	}

	res := c.probe(ctx, hash)
	if c.cache != nil && res.Checked {
		c.cache.Set(hash, res)
	}
	return res
}

func (c *GravatarChecker) probe(ctx context.Context, hash string) types.GravatarCheck {
	res := types.GravatarCheck{
		Hash:       hash,
		AvatarURL:  c.baseURL + "/avatar/" + hash,
		ProfileURL: c.baseURL + "/" + hash,
	}

	reqCtx, cancel := context.WithTimeout(ctx, gravatarTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, c.baseURL+"/avatar/"+hash+"?d=404&s=1", nil)
	if err != nil {
		res.Message = "gravatar request could not be built"
		return res
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		res.Message = "gravatar unreachable"
		return res
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		res.Checked = true
		res.Exists = true
	case resp.StatusCode == http.StatusNotFound:
		res.Checked = true
		res.Exists = false
	default:
		res.Message = "unexpected gravatar status"
	}
	return res
}
