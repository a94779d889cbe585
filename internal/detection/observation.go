package detection

import (
	"bytes"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"time"
)

// MaxBodyBytes caps how much of a probe body is kept for classification.
const MaxBodyBytes = 64 << 10

// UnknownSource is used when the remote address cannot be determined.
const UnknownSource = "unknown"

// Observation is one inbound probe. Missing fields are empty strings.
type Observation struct {
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	UserAgent string    `json:"user_agent"`
	Body      string    `json:"body"`
	SourceIP  string    `json:"source_ip"`
	Arrival   time.Time `json:"arrival"`
}

// Source returns the source identity, falling back to UnknownSource.
func (o Observation) Source() string {
	if o.SourceIP == "" {
		return UnknownSource
	}
	return o.SourceIP
}

// ObservationFromRequest extracts an Observation from an HTTP request.
// The query string and form-urlencoded bodies are percent-decoded so
// signatures see what the target application would see. The body is read up
// to MaxBodyBytes and restored on r so later readers see it.
func ObservationFromRequest(r *http.Request, now time.Time) Observation {
	obs := Observation{
		Method:    r.Method,
		UserAgent: r.UserAgent(),
		SourceIP:  remoteIP(r.RemoteAddr),
		Arrival:   now,
	}

	if r.URL != nil {
		obs.Path = r.URL.Path
		if r.URL.RawQuery != "" {
			obs.Path += "?" + unescape(r.URL.RawQuery)
		}
	}

	if r.Body != nil {
		bodyBytes, _ := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		obs.Body = string(bodyBytes)
		if isFormEncoded(r.Header.Get("Content-Type")) {
			obs.Body = unescape(obs.Body)
		}
	}

	return obs
}

func remoteIP(addr string) string {
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// unescape decodes query-style text, keeping the raw text when it is not
// valid percent-encoding.
func unescape(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func isFormEncoded(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
