package attribution

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/enrollment"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/matching"
	"github.com/kbukum/speakerid/media"
	"github.com/kbukum/speakerid/segment"
)

const serviceName = "attribution"

var (
	_ component.Component   = (*Service)(nil)
	_ component.Describable = (*Service)(nil)
)

// Deps are the collaborators of a Service.
type Deps struct {
	Embedder   embedding.Embedder
	Aggregator *enrollment.Aggregator
	Loader     media.Loader
	Workspace  *media.Workspace
	Directory  *identity.Directory
}

// Request is one attribution job.
type Request struct {
	Recording audio.Clip
	Segments  []segment.Segment
	// Participants restricts the enrolled set for this job.
	Participants []string
	// Strategy and Smoothing override the configured matcher when set.
	Strategy  string
	Smoothing *bool
}

// Service runs attributions against an enrolled set that is built on
// first use and kept until Reload.
type Service struct {
	deps     Deps
	dir      string
	matching matching.Config
	opts     []Option
	log      *logger.Logger

	mu      sync.Mutex
	set     *enrollment.Set
	report  enrollment.Report
	lastErr error
}

// NewService creates a service enrolling from dir. opts configure every
// Engine the service creates.
func NewService(deps Deps, dir string, cfg matching.Config, opts ...Option) *Service {
	return &Service{
		deps:     deps,
		dir:      dir,
		matching: cfg,
		opts:     opts,
		log:      logger.Get(serviceName),
	}
}

// Directory returns the display-name directory.
func (s *Service) Directory() *identity.Directory { return s.deps.Directory }

// Enrollment returns the enrolled set, building it on first call. A
// failed build is not cached.
func (s *Service) Enrollment(ctx context.Context) (*enrollment.Set, enrollment.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set != nil {
		return s.set, s.report, nil
	}
	return s.buildLocked(ctx)
}

// Reload rebuilds the enrolled set from the directory.
func (s *Service) Reload(ctx context.Context) (*enrollment.Set, enrollment.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked(ctx)
}

func (s *Service) buildLocked(ctx context.Context) (*enrollment.Set, enrollment.Report, error) {
	set, report, err := s.deps.Aggregator.Build(ctx, s.dir)
	s.lastErr = err
	if err != nil {
		return nil, report, err
	}
	s.set, s.report = set, report
	return set, report, nil
}

// Attribute runs one job.
func (s *Service) Attribute(ctx context.Context, req Request) (*Result, error) {
	set, _, err := s.Enrollment(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Participants) > 0 {
		set = set.Filter(req.Participants)
		if set.Len() == 0 {
			return nil, apperrors.NoEnrollment(s.dir).
				WithDetail("participants", strings.Join(req.Participants, ","))
		}
	}

	cfg := s.matching
	if req.Strategy != "" {
		cfg.Strategy = req.Strategy
	}
	if req.Smoothing != nil {
		cfg.Smoothing = *req.Smoothing
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := append(slices.Clone(s.opts), WithMatching(cfg))
	return NewEngine(s.deps.Embedder, set, opts...).Run(ctx, req.Recording, req.Segments)
}

// LoadRecording stores an uploaded recording in the scratch workspace,
// decodes it with the configured loader, and removes the copy.
func (s *Service) LoadRecording(ctx context.Context, name string, r io.Reader) (audio.Clip, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !media.Supports(s.deps.Loader, "upload"+ext) {
		return audio.Clip{}, apperrors.InvalidInput("audio",
			fmt.Sprintf("unsupported format %q (accepted: %s)", ext, strings.Join(s.deps.Loader.Extensions(), " ")))
	}
	path, err := s.deps.Workspace.Path("upload-" + uuid.NewString() + ext)
	if err != nil {
		return audio.Clip{}, apperrors.Internal(err)
	}
	defer os.Remove(path)

	f, err := os.Create(path)
	if err != nil {
		return audio.Clip{}, apperrors.Internal(err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return audio.Clip{}, apperrors.InvalidInput("audio", err.Error())
	}
	if err := f.Close(); err != nil {
		return audio.Clip{}, apperrors.Internal(err)
	}
	return s.deps.Loader.Load(ctx, path)
}

// Name returns the component name.
func (s *Service) Name() string { return serviceName }

// Start is a no-op; enrollment is built on first use.
func (s *Service) Start(_ context.Context) error { return nil }

// Stop drops the enrolled set.
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = nil
	return nil
}

// Health reports degraded when the last enrollment build failed.
func (s *Service) Health(_ context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := component.Health{Name: serviceName, Status: component.StatusHealthy}
	switch {
	case s.set == nil && s.lastErr != nil:
		h.Status = component.StatusDegraded
		h.Message = s.lastErr.Error()
	case s.set == nil:
		h.Message = "enrollment not loaded"
	default:
		h.Message = fmt.Sprintf("%d identities enrolled", s.set.Len())
	}
	return h
}

// Describe returns the startup summary line.
func (s *Service) Describe() component.Description {
	return component.Description{
		Name:    "Attribution",
		Type:    "pipeline",
		Details: fmt.Sprintf("enroll=%s strategy=%s", s.dir, s.matching.Strategy),
	}
}
