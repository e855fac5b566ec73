// Package endpoint normalizes and validates the base URLs of the remote
// providers (caption source, completion API).
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize trims whitespace and trailing slashes, substituting def when
// baseURL is empty.
func Normalize(baseURL, def string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = def
	}
	return strings.TrimRight(baseURL, "/")
}

// Rule describes what a provider's base URL may look like. Env names the
// variable the value came from so errors point the user at it.
type Rule struct {
	Env          string
	Default      string
	DefaultHosts []string
	AllowedEnv   string
}

// Validate requires an absolute https URL without userinfo, query or
// fragment whose host is in allowedHosts (or the rule's defaults when
// allowedHosts is empty).
func (r Rule) Validate(baseURL string, allowedHosts []string) error {
	baseURL = Normalize(baseURL, r.Default)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", r.Env, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid %s %q: absolute URL with host is required", r.Env, baseURL)
	}
	if u.User != nil {
		return fmt.Errorf("invalid %s %q: userinfo is not allowed", r.Env, baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid %s %q: query and fragment are not allowed", r.Env, baseURL)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid %s %q: host is required", r.Env, baseURL)
	}
	if strings.ToLower(u.Scheme) != "https" {
		return fmt.Errorf("invalid %s %q: https is required", r.Env, baseURL)
	}

	allowed := r.allowedHosts(allowedHosts)
	if _, ok := allowed[host]; !ok {
		return fmt.Errorf("invalid %s %q: host %q is not in %s", r.Env, baseURL, host, r.AllowedEnv)
	}
	return nil
}

func (r Rule) allowedHosts(extra []string) map[string]struct{} {
	out := hostSet(extra)
	if len(out) == 0 {
		return hostSet(r.DefaultHosts)
	}
	return out
}

func hostSet(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	return out
}
