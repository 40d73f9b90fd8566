package render

import (
	"strings"
	"text/template"

	"github.com/rs/zerolog"
)

// Renderer turns a template key plus variables into outbound chat text.
// Rendering is pure; a missing key logs a warning and returns ok=false, and
// callers must guard against that themselves.
type Renderer struct {
	templates map[string]*template.Template
	logger    zerolog.Logger
}

// New parses the given key→template map. Invalid templates are rejected at
// construction so a bad deploy fails at startup, not mid-conversation.
func New(sources map[string]string, logger zerolog.Logger) (*Renderer, error) {
	parsed := make(map[string]*template.Template, len(sources))
	for key, src := range sources {
		tpl, err := template.New(key).Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, err
		}
		parsed[key] = tpl
	}
	return &Renderer{
		templates: parsed,
		logger:    logger.With().Str("component", "renderer").Logger(),
	}, nil
}

// MustNew is New for the built-in template set.
func MustNew(sources map[string]string, logger zerolog.Logger) *Renderer {
	r, err := New(sources, logger)
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes the template for key with vars. vars may be nil.
func (r *Renderer) Render(key string, vars map[string]any) (string, bool) {
	tpl, ok := r.templates[key]
	if !ok {
		r.logger.Warn().Str("key", key).Msg("unknown template key")
		return "", false
	}
	if vars == nil {
		vars = map[string]any{}
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, vars); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("template execution failed")
		return "", false
	}
	return sb.String(), true
}
