package relay

import (
	"net/url"
	"path"
	"strings"

	"tubeshelf/internal/apperrors"
	"tubeshelf/internal/domain/consts"
)

const invalidTargetMsg = "Invalid URL. Must be a GitHub release download URL"

// Policy decides which upstream URLs the relay may fetch.
type Policy struct {
	// Hosts are the exact hostnames a target may name.
	Hosts []string
	// RedirectHosts are the hosts an upstream may redirect to. An entry
	// starting with "." matches any subdomain.
	RedirectHosts []string
}

// DefaultPolicy trusts GitHub release downloads and GitHub's asset CDN.
func DefaultPolicy() Policy {
	return Policy{
		Hosts:         []string{consts.DefaultProxyHost},
		RedirectHosts: []string{consts.DefaultProxyHost, ".githubusercontent.com"},
	}
}

// Target is an upstream URL that passed the policy.
type Target struct {
	URL   *url.URL
	Asset string
}

// Validate checks raw against the policy.
//
// Accepted URLs look like https://<host>/<owner>/<repo>/releases/download/<tag>/<asset>.
func (p Policy) Validate(raw string) (*Target, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.BadRequest("Missing url parameter")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.BadRequest(invalidTargetMsg)
	}
	if u.Scheme != "https" || u.User != nil || u.Opaque != "" {
		return nil, apperrors.BadRequest(invalidTargetMsg)
	}
	if port := u.Port(); port != "" && port != "443" {
		return nil, apperrors.BadRequest(invalidTargetMsg)
	}
	if !matchHost(strings.ToLower(u.Hostname()), p.Hosts, false) {
		return nil, apperrors.BadRequest(invalidTargetMsg)
	}

	segs := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segs) != 6 || path.Join(segs[2], segs[3]) != consts.ReleaseDownloadSegment {
		return nil, apperrors.BadRequest(invalidTargetMsg)
	}
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return nil, apperrors.BadRequest(invalidTargetMsg)
		}
	}

	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	return &Target{URL: &clean, Asset: segs[5]}, nil
}

// AllowsRedirect reports whether the relay may follow a redirect to u.
func (p Policy) AllowsRedirect(u *url.URL) bool {
	if u.Scheme != "https" || u.User != nil {
		return false
	}
	return matchHost(strings.ToLower(u.Hostname()), p.RedirectHosts, true)
}

func matchHost(host string, allowed []string, suffixes bool) bool {
	if host == "" {
		return false
	}
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case a == "":
			continue
		case suffixes && strings.HasPrefix(a, "."):
			if strings.HasSuffix(host, a) {
				return true
			}
		case host == a:
			return true
		}
	}
	return false
}
