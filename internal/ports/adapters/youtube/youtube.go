// Package youtube fetches caption transcripts through the web client's
// get_transcript endpoint, signing each request with the session's SAPISID.
package youtube

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/domain/transcript"
	"github.com/forPelevin/fallacycheck/internal/ports/adapters/endpoint"
	"github.com/forPelevin/fallacycheck/internal/types"
)

const (
	provider       = "youtube"
	defaultBaseURL = "https://www.youtube.com"
	origin         = "https://www.youtube.com"
	authScheme     = "SAPISIDHASH"
	clientName     = "WEB"
	clientVersion  = "2.20250101.00.00"
	requestTimeout = 30 * time.Second
)

var baseURLRule = endpoint.Rule{
	Env:          "YOUTUBE_BASE_URL",
	Default:      defaultBaseURL,
	DefaultHosts: []string{"www.youtube.com", "youtube.com", "m.youtube.com"},
	AllowedEnv:   "YOUTUBE_ALLOWED_HOSTS",
}

func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	return baseURLRule.Validate(baseURL, allowedHosts)
}

type Config struct {
	BaseURL string
	// Cookie is a raw Cookie header copied from a signed-in browser session.
	// It is forwarded as-is and SAPISID is read from it unless SAPISID is set.
	Cookie  string
	SAPISID string
	Now     func() time.Time
}

type Adapter struct {
	baseURL string
	cookie  string
	sapisid string
	now     func() time.Time
	client  *http.Client
	log     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Adapter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		baseURL: endpoint.Normalize(cfg.BaseURL, defaultBaseURL),
		cookie:  strings.TrimSpace(cfg.Cookie),
		sapisid: strings.TrimSpace(cfg.SAPISID),
		now:     cfg.Now,
		client:  &http.Client{Timeout: time.Minute},
		log:     logger.With("component", "youtube"),
	}
}

// Fetch returns one "<ts> - <text>" line per caption segment.
func (a *Adapter) Fetch(ctx context.Context, videoID string) (string, error) {
	secret, ok := a.sessionSecret()
	if !ok {
		return "", fmt.Errorf("SAPISID cookie not found: %w", apperr.ErrAuthRequired)
	}

	body, err := json.Marshal(buildPayload(videoID))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := a.baseURL + "/youtubei/v1/get_transcript?prettyPrint=false"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", AuthHeader(a.now(), secret, origin))
	req.Header.Set("X-Origin", origin)
	req.Header.Set("Origin", origin)
	if a.cookie != "" {
		req.Header.Set("Cookie", a.cookie)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &apperr.UpstreamError{Provider: provider, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(rb))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &apperr.UpstreamError{Provider: provider, Status: resp.StatusCode, Message: msg}
	}

	var raw transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", &apperr.UpstreamError{Provider: provider, Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}

	segs, err := raw.segments()
	if err != nil {
		return "", err
	}
	a.log.Debug("transcript fetched", "video", videoID, "segments", len(segs))

	out := transcript.Format(segs)
	if out == "" {
		return "", apperr.ErrNoTranscript
	}
	return out, nil
}

func (a *Adapter) sessionSecret() (string, bool) {
	if a.sapisid != "" {
		return a.sapisid, true
	}
	return CookieValue(a.cookie, "SAPISID")
}

// AuthHeader builds "SAPISIDHASH <unix>_<sha1hex>" where the digest covers
// "<unix>_<secret>_<origin>". It embeds the time, so it is computed per request.
func AuthHeader(now time.Time, secret, origin string) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	sum := sha1.Sum([]byte(ts + "_" + secret + "_" + origin))
	return authScheme + " " + ts + "_" + hex.EncodeToString(sum[:])
}

// CookieValue reads one cookie out of a raw Cookie header.
func CookieValue(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name && v != "" {
			return v, true
		}
	}
	return "", false
}

type payload struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
		} `json:"client"`
		Request struct {
			UseSSL bool `json:"useSsl"`
		} `json:"request"`
	} `json:"context"`
	Params string `json:"params"`
}

func buildPayload(videoID string) payload {
	var p payload
	p.Context.Client.ClientName = clientName
	p.Context.Client.ClientVersion = clientVersion
	p.Context.Request.UseSSL = true
	p.Params = transcriptParams(videoID)
	return p
}

// transcriptParams encodes the protobuf message selecting the searchable
// transcript engagement panel (English track) for videoID.
func transcriptParams(videoID string) string {
	var b bytes.Buffer
	b.WriteByte(0x0a)
	b.WriteByte(byte(len(videoID)))
	b.WriteString(videoID)
	b.WriteString("\x12\x12CgNhc3ISAmVuGgA%3D\x18\x01*3engagement-panel-searchable-transcript-search-panel0\x008\x01@\x01")
	return base64.StdEncoding.EncodeToString(b.Bytes())
}

type transcriptResponse struct {
	Actions []struct {
		UpdateEngagementPanelAction struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []segmentWrapper `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

type segmentWrapper struct {
	Renderer *struct {
		StartMs string `json:"startMs"`
		Snippet struct {
			Runs []struct {
				Text string `json:"text"`
			} `json:"runs"`
		} `json:"snippet"`
	} `json:"transcriptSegmentRenderer"`
}

var errNoSegments = fmt.Errorf("no transcript segments in response: %w", apperr.ErrNoTranscript)

func (r transcriptResponse) segments() ([]types.Segment, error) {
	if len(r.Actions) == 0 {
		return nil, errNoSegments
	}
	raw := r.Actions[0].UpdateEngagementPanelAction.Content.TranscriptRenderer.Content.
		TranscriptSearchPanelRenderer.Body.TranscriptSegmentListRenderer.InitialSegments
	if len(raw) == 0 {
		return nil, errNoSegments
	}

	out := make([]types.Segment, 0, len(raw))
	for _, w := range raw {
		// Section headers and other non-caption entries carry no renderer.
		if w.Renderer == nil {
			continue
		}
		var b strings.Builder
		for _, run := range w.Renderer.Snippet.Runs {
			b.WriteString(run.Text)
		}
		text := strings.Join(strings.Fields(b.String()), " ")
		if text == "" {
			continue
		}
		ms, err := strconv.ParseInt(w.Renderer.StartMs, 10, 64)
		if err != nil || ms < 0 {
			ms = 0
		}
		out = append(out, types.Segment{Timestamp: int(ms / 1000), Text: text})
	}
	return out, nil
}
