package openrouter

import "github.com/forPelevin/fallacycheck/internal/ports/adapters/endpoint"

const defaultBaseURL = "https://openrouter.ai"

var baseURLRule = endpoint.Rule{
	Env:          "OPENROUTER_BASE_URL",
	Default:      defaultBaseURL,
	DefaultHosts: []string{"openrouter.ai", "api.openrouter.ai"},
	AllowedEnv:   "OPENROUTER_ALLOWED_HOSTS",
}

func normalizeBaseURL(baseURL string) string {
	return endpoint.Normalize(baseURL, defaultBaseURL)
}

func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	return baseURLRule.Validate(baseURL, allowedHosts)
}
