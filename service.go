package tmpl2pdf

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service turns template requests into PDF (or HTML preview) renditions.
// It owns one lazily-launched browser shared by all requests; each
// request renders on its own page, so concurrent calls are safe.
type Service struct {
	cfg       *Config
	logger    *zap.Logger
	merger    PageMerger
	session   renderSession
	assembler *assembler
	generator *generator
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMerger enables the two-pass total-page measurement and range
// merging. Without a merger, totalPages is reported as 0 and custom
// range captures are returned unmerged.
func WithMerger(merger PageMerger) Option {
	return func(s *Service) {
		s.merger = merger
	}
}

// withSession injects a renderer session (tests).
func withSession(session renderSession) Option {
	return func(s *Service) {
		s.session = session
	}
}

// New creates a Service for the given configuration. The browser is not
// launched until the first render.
func New(cfg *Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = &Config{}
	}

	s := &Service{
		cfg:    cfg.withDefaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.session == nil {
		s.session = newRodSession(s.cfg, s.logger)
	}
	s.assembler = newAssembler(s.cfg, s.logger)
	s.generator = &generator{
		cfg:     s.cfg,
		session: s.session,
		merger:  s.merger,
		logger:  s.logger,
	}
	return s
}

// ProcessTemplate assembles the requested document, renders it and
// returns the resulting buffers. The staging HTML file and the page
// opened for the request are released on every path.
func (s *Service) ProcessTemplate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, ErrRequestRequired
	}
	if req.ParamsOnly {
		return nil, fmt.Errorf("%w: params-only request is not renderable", ErrRequestRequired)
	}

	requestID := uuid.NewString()
	tmpl, err := s.assembler.prepare(req)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.run(ctx, tmpl, requestID)
	if err != nil {
		s.logger.Error("template processing failed",
			zap.String("request_id", requestID),
			zap.String("template", tmpl.name),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// TemplateParameters returns the placeholder tree the named template
// expects, without rendering anything.
func (s *Service) TemplateParameters(templateName string) (ParamTree, error) {
	return s.assembler.templateParameters(templateName)
}

// Dispose releases the browser and all open pages. The service remains
// usable: the next render launches a fresh browser.
func (s *Service) Dispose() error {
	return s.session.Dispose()
}
