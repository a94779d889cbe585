package payload

import (
	"math/rand/v2"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

// PayloadResponse is the fabricated answer sent back to the prober.
type PayloadResponse struct {
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body"`
	ContentType string            `json:"content_type"`
	Delay       time.Duration     `json:"delay"`
}

// Template is the response shape for one severity.
type Template struct {
	Severity   detection.Severity
	StatusCode int
	Delay      time.Duration
	Messages   []string
}

const contentTypeText = "text/plain"

var defaultMessages = map[detection.Severity][]string{
	detection.SeverityCritical: {
		"Error: Device firmware corrupted. Rebooting...",
		"Bootloader: Verifying system integrity...",
		"Security: Unauthorized access detected. Initiating safe mode...",
		"IoT Device: Critical error. Contact administrator.",
		"System: Performing emergency security scan...",
		"Firmware: Checksum verification failed. Recovery mode activated.",
	},
	detection.SeverityHigh: {
		"Admin: Session expired. Please re-authenticate.",
		"Security: Too many failed login attempts. Try again in 5 minutes.",
		"Device: Rate limit exceeded. Temporary lockout activated.",
		"System: Unusual activity detected. Enhanced verification required.",
		"Access: Administrator privileges required for this operation.",
	},
	detection.SeverityMedium: {
		"404: Page not found",
		"Service: Temporarily unavailable",
		"Device: Busy processing previous request",
		"Error: Invalid request format",
		"Status: Device undergoing maintenance",
	},
	detection.SeverityLow: {
		"IoT Device Ready",
		"Status: Online - All systems operational",
		"Welcome to Smart Device Interface",
		"Device: Connected and responding",
		"System: Normal operation",
	},
}

// DefaultTemplates pairs each policy action with its built-in message pool.
func DefaultTemplates() map[detection.Severity]Template {
	out := make(map[detection.Severity]Template, len(policy.Actions))
	for _, action := range policy.Actions {
		out[action.Severity] = Template{
			Severity:   action.Severity,
			StatusCode: action.StatusCode,
			Delay:      action.Delay,
			Messages:   append([]string(nil), defaultMessages[action.Severity]...),
		}
	}
	return out
}

// Generator turns a final severity into a PayloadResponse and stalls for the
// template's delay before returning.
type Generator struct {
	templates map[detection.Severity]Template
	pick      func(n int) int
	sleep     func(time.Duration)
}

// Option configures a Generator.
type Option func(*Generator)

// WithSleep replaces time.Sleep, e.g. to skip the stall in tests or dry runs.
func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Generator) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// WithPicker replaces the uniform message picker.
func WithPicker(pick func(n int) int) Option {
	return func(g *Generator) {
		if pick != nil {
			g.pick = pick
		}
	}
}

// WithMessages overrides the message pool for one severity. Empty pools are
// ignored.
func WithMessages(s detection.Severity, messages []string) Option {
	return func(g *Generator) {
		tmpl, ok := g.templates[s]
		if !ok || len(messages) == 0 {
			return
		}
		tmpl.Messages = append([]string(nil), messages...)
		g.templates[s] = tmpl
	}
}

// NoDelay disables the stall entirely.
func NoDelay() Option {
	return WithSleep(func(time.Duration) {})
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		templates: DefaultTemplates(),
		pick:      rand.IntN,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build returns the response for s without stalling.
func (g *Generator) Build(s detection.Severity) PayloadResponse {
	tmpl, ok := g.templates[s]
	if !ok {
		tmpl = g.templates[detection.SeverityLow]
	}

	body := ""
	if n := len(tmpl.Messages); n > 0 {
		body = tmpl.Messages[g.pick(n)]
	}

	return PayloadResponse{
		StatusCode:  tmpl.StatusCode,
		Headers:     map[string]string{"Content-Type": contentTypeText},
		Body:        body,
		ContentType: contentTypeText,
		Delay:       tmpl.Delay,
	}
}

// Respond builds the response for s and blocks for its delay. Callers must
// not hold shared locks across this call.
func (g *Generator) Respond(s detection.Severity) PayloadResponse {
	resp := g.Build(s)
	g.sleep(resp.Delay)
	return resp
}

// Templates returns a copy of the configured templates.
func (g *Generator) Templates() map[detection.Severity]Template {
	out := make(map[detection.Severity]Template, len(g.templates))
	for k, v := range g.templates {
		v.Messages = append([]string(nil), v.Messages...)
		out[k] = v
	}
	return out
}
