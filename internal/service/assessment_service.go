package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
)

// AssessmentService validates, scores and stores submissions and serves the
// analytics views over the stored collection.
type AssessmentService struct {
	repo    domain.AssessmentRepository
	reports domain.ReportRepository
	logger  *logrus.Logger
	now     func() time.Time

	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
}

// Option configures an AssessmentService.
type Option func(*AssessmentService)

// WithReportRepository stores a generated report for every submission.
func WithReportRepository(r domain.ReportRepository) Option {
	return func(s *AssessmentService) { s.reports = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *AssessmentService) { s.now = now }
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(repo domain.AssessmentRepository, logger *logrus.Logger, opts ...Option) *AssessmentService {
	s := &AssessmentService{
		repo:        repo,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitResult is the stored assessment with its report, when one was made.
type SubmitResult struct {
	Assessment *domain.Assessment `json:"assessment"`
	Report     *domain.Report     `json:"report,omitempty"`
}

// Submit validates and scores a submission and stores it. Nothing is stored
// when validation fails. A report that cannot be saved is logged and left
// out of the result.
func (s *AssessmentService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":      req.UserID,
			"disease_type": req.DiseaseType,
		}).WithError(err).Info("Rejected assessment submission")
		return nil, err
	}

	disease, _ := domain.ParseDiseaseType(req.DiseaseType)
	region, err := NormalizeRegion(req.Region)
	if err != nil {
		return nil, err
	}
	answers, err := domain.DecodeAnswers(disease, req.Answers)
	if err != nil {
		return nil, domain.NewValidationError("diseaseType", err.Error(), req.DiseaseType)
	}

	result := Score(answers)
	a := &domain.Assessment{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		DiseaseType:  disease,
		SubmittedAt:  s.now().UTC(),
		Answers:      answers,
		RiskScore:    result.Score,
		RiskLevel:    result.Level,
		Region:       region,
		Demographics: req.Demographics,
	}

	var report *domain.Report
	if s.reports != nil {
		if report, err = GenerateReport(a, s.now()); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Add(ctx, a); err != nil {
		s.logger.WithFields(a.LogFields()).WithError(err).Error("Failed to store assessment")
		return nil, fmt.Errorf("storing assessment: %w", err)
	}
	s.logger.WithFields(a.LogFields()).Info("Assessment stored")

	// Report failures do not undo the stored assessment.
	out := &SubmitResult{Assessment: a}
	if report != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			s.logger.WithFields(a.LogFields()).WithError(err).Error("Failed to store report")
		} else {
			out.Report = report
		}
	}

	s.notify()
	return out, nil
}

// Get returns one assessment by id.
func (s *AssessmentService) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns the assessments submitted by one user.
func (s *AssessmentService) ListByUser(ctx context.Context, userID string) ([]domain.Assessment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetReport returns one stored report.
func (s *AssessmentService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	if s.reports == nil {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	return s.reports.Get(ctx, id)
}

// ListReportsByUser returns the reports generated for one user.
func (s *AssessmentService) ListReportsByUser(ctx context.Context, userID string) ([]domain.Report, error) {
	if s.reports == nil {
		return []domain.Report{}, nil
	}
	return s.reports.ListByUser(ctx, userID)
}

// Count returns the number of stored assessments.
func (s *AssessmentService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Summary takes a fresh snapshot, applies the filter and summarizes it.
func (s *AssessmentService) Summary(ctx context.Context, f Filter) (domain.AnalyticsSummary, error) {
	snap, err := s.snapshot(ctx, f)
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	return Summarize(snap), nil
}

// Regional returns the regional breakdown of the filtered snapshot.
func (s *AssessmentService) Regional(ctx context.Context, f Filter, by RegionSort, limit int) ([]domain.RegionStat, error) {
	snap, err := s.snapshot(ctx, f)
	if err != nil {
		return nil, err
	}
	return RegionalBreakdown(snap, by, limit), nil
}

// Diseases returns the per-disease risk distribution of the filtered snapshot.
func (s *AssessmentService) Diseases(ctx context.Context, f Filter) ([]domain.DiseaseRiskBreakdown, error) {
	snap, err := s.snapshot(ctx, f)
	if err != nil {
		return nil, err
	}
	return DiseaseBreakdown(snap), nil
}

func (s *AssessmentService) snapshot(ctx context.Context, f Filter) ([]domain.Assessment, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading assessments: %w", err)
	}
	filtered := f.Apply(snap)
	s.logger.WithFields(logrus.Fields{
		"total":    len(snap),
		"filtered": len(filtered),
	}).Debug("Loaded assessment snapshot")
	return filtered, nil
}

// Subscribe returns a channel that receives a signal after every stored
// assessment, and a function that cancels the subscription. Signals are
// coalesced: a slow reader sees at most one pending signal.
func (s *AssessmentService) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

func (s *AssessmentService) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
