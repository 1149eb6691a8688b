package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"qbank_backend/internal/model"
	"qbank_backend/internal/paper"
	"qbank_backend/internal/repository"
	"qbank_backend/internal/util"
	"qbank_backend/pkg/logger"
	"qbank_backend/pkg/monitoring"
	"qbank_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidDistribution = errors.New("difficulty distribution must be non-negative fractions summing to 1")

// distributionTolerance accepts fractions such as 0.33/0.33/0.34 typed by hand.
const distributionTolerance = 0.01

// PaperOptions configures generation. DurationMinutes is the default exam length.
type PaperOptions struct {
	OutputDir       string
	DurationMinutes int
	Layout          paper.Options
}

type GeneratePaperRequest struct {
	Title                  string                        `json:"title"`
	SubjectID              uint                          `json:"subjectId" binding:"required"`
	UnitIDs                []uint                        `json:"unitIds"`
	TopicIDs               []uint                        `json:"topicIds"`
	TotalMarks             int                           `json:"totalMarks" binding:"required,min=1"`
	DurationMinutes        int                           `json:"durationMinutes"`
	DifficultyDistribution *model.DifficultyDistribution `json:"difficultyDistribution"`
}

type GeneratePaperResult struct {
	Paper     *model.GeneratedQuestionPaper `json:"paper"`
	Filename  string                        `json:"filename"`
	FilePath  string                        `json:"filePath"`
	Questions []model.Question              `json:"questions"`
	Skipped   []string                      `json:"skipped,omitempty"`
}

type QuestionPaperService struct {
	questionRepo *repository.QuestionRepository
	taxonomyRepo *repository.TaxonomyRepository
	paperRepo    *repository.GeneratedPaperRepository
	storage      *StorageService

	mu   sync.RWMutex
	opts PaperOptions
}

func NewQuestionPaperService(
	questionRepo *repository.QuestionRepository,
	taxonomyRepo *repository.TaxonomyRepository,
	paperRepo *repository.GeneratedPaperRepository,
	storage *StorageService,
	opts PaperOptions,
) *QuestionPaperService {
	return &QuestionPaperService{
		questionRepo: questionRepo,
		taxonomyRepo: taxonomyRepo,
		paperRepo:    paperRepo,
		storage:      storage,
		opts:         opts,
	}
}

func (s *QuestionPaperService) SetOptions(opts PaperOptions) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

func (s *QuestionPaperService) options() PaperOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// ValidateDistribution rejects negative shares and sums away from 1. A nil
// distribution is valid and means the default split.
func ValidateDistribution(d *model.DifficultyDistribution) error {
	if d == nil {
		return nil
	}
	if d.Easy < 0 || d.Medium < 0 || d.Hard < 0 {
		return ErrInvalidDistribution
	}
	if math.Abs(d.Easy+d.Medium+d.Hard-1) > distributionTolerance {
		return ErrInvalidDistribution
	}
	return nil
}

// PaperFilename returns question_paper_YYYYMMDD_HHMMSS_<8 hex>.pdf.
func PaperFilename(now time.Time) string {
	return fmt.Sprintf("question_paper_%s_%s.pdf", now.Format("20060102_150405"), model.GenerateUUID()[:8])
}

// GeneratePaper selects questions for the request, renders them and records the paper.
// ErrNoQuestionsSelected is returned when nothing matched; a paper holding fewer
// marks than requested is still a success.
func (s *QuestionPaperService) GeneratePaper(ctx context.Context, req GeneratePaperRequest) (res *GeneratePaperResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "paper.generate",
		attribute.Int64("subject.id", int64(req.SubjectID)),
		attribute.Int("total_marks", req.TotalMarks))
	defer func() {
		result := "ok"
		switch {
		case errors.Is(err, ErrNoQuestionsSelected):
			result = "empty"
		case err != nil:
			result = "error"
		}
		monitoring.PapersGenerated.WithLabelValues(result).Inc()
		tracing.EndSpan(span, err)
	}()

	if req.TotalMarks <= 0 {
		return nil, fmt.Errorf("total marks must be positive, got %d", req.TotalMarks)
	}
	if err := ValidateDistribution(req.DifficultyDistribution); err != nil {
		return nil, err
	}
	opts := s.options()

	subject, err := s.taxonomyRepo.FindSubject(req.SubjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}

	candidates, err := s.questionRepo.FindCandidates(req.SubjectID, req.UnitIDs, req.TopicIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	dist := paper.DefaultDistribution
	if req.DifficultyDistribution != nil {
		dist = *req.DifficultyDistribution
	}
	selected := paper.Select(candidates, req.TotalMarks, dist)
	if len(selected) == 0 {
		logger.Log.Info("No questions selected",
			zap.Uint("subjectId", req.SubjectID),
			zap.Int("candidates", len(candidates)),
			zap.Int("totalMarks", req.TotalMarks))
		return nil, ErrNoQuestionsSelected
	}

	header, err := s.header(subject, req, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	filename := PaperFilename(header.GeneratedAt)
	path := filepath.Join(opts.OutputDir, filename)

	rendered, err := paper.NewRenderer(opts.Layout).Render(path, header, selected)
	if err != nil {
		return nil, err
	}
	for _, skipped := range rendered.Skipped {
		logger.Log.Warn("Paper rendered without resource",
			zap.String("filename", filename),
			zap.String("resource", skipped))
	}

	url, err := s.storage.UploadFile(ctx, PaperKey(filename), path, util.MimePDF)
	if err != nil {
		logger.Log.Warn("Failed to publish generated paper, keeping local copy only",
			zap.String("filename", filename),
			zap.Error(err))
		url = ""
	}

	ids := make([]uint, 0, len(selected))
	for _, q := range selected {
		ids = append(ids, q.ID)
	}
	record := &model.GeneratedQuestionPaper{
		Title:                  header.Title,
		SubjectID:              req.SubjectID,
		UnitIDs:                datatypes.JSONSlice[uint](req.UnitIDs),
		TopicIDs:               datatypes.JSONSlice[uint](req.TopicIDs),
		TotalMarks:             req.TotalMarks,
		SelectedMarks:          paper.SumMarks(selected),
		DurationMinutes:        header.DurationMinutes,
		DifficultyDistribution: datatypes.NewJSONType(dist),
		QuestionIDs:            datatypes.JSONSlice[uint](ids),
		PageCount:              rendered.PageCount,
		Filename:               filename,
		FilePath:               path,
		FileURL:                url,
	}
	if err := s.paperRepo.Create(record); err != nil {
		return nil, fmt.Errorf("record paper: %w", err)
	}

	logger.Log.Info("Question paper generated",
		zap.Uint("paperId", record.ID),
		zap.String("filename", filename),
		zap.Int("questions", len(selected)),
		zap.Int("selectedMarks", record.SelectedMarks),
		zap.Int("totalMarks", req.TotalMarks),
		zap.Int("pages", rendered.PageCount))

	return &GeneratePaperResult{
		Paper:     record,
		Filename:  filename,
		FilePath:  path,
		Questions: selected,
		Skipped:   rendered.Skipped,
	}, nil
}

func (s *QuestionPaperService) header(subject *model.Subject, req GeneratePaperRequest, opts PaperOptions) (paper.Header, error) {
	h := paper.Header{
		Title:           req.Title,
		Subject:         subject.Name,
		TotalMarks:      req.TotalMarks,
		DurationMinutes: req.DurationMinutes,
		GeneratedAt:     time.Now(),
	}
	if h.Title == "" {
		h.Title = subject.Name + " Question Paper"
	}
	if h.DurationMinutes <= 0 {
		h.DurationMinutes = opts.DurationMinutes
	}

	units, err := s.taxonomyRepo.FindUnits(req.UnitIDs)
	if err != nil {
		return h, fmt.Errorf("load units: %w", err)
	}
	for _, u := range units {
		h.Units = append(h.Units, u.Name)
	}
	topics, err := s.taxonomyRepo.FindTopics(req.TopicIDs)
	if err != nil {
		return h, fmt.Errorf("load topics: %w", err)
	}
	for _, t := range topics {
		h.Topics = append(h.Topics, t.Name)
	}
	return h, nil
}

func (s *QuestionPaperService) GetPaper(id uint) (*model.GeneratedQuestionPaper, error) {
	p, err := s.paperRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaperNotFound
	}
	return p, err
}

// DownloadPath returns the local file of a generated paper, or its storage URL when
// the local copy is gone.
func (s *QuestionPaperService) DownloadPath(id uint) (localPath, url string, err error) {
	p, err := s.GetPaper(id)
	if err != nil {
		return "", "", err
	}
	if _, statErr := os.Stat(p.FilePath); statErr == nil {
		return p.FilePath, p.FileURL, nil
	}
	if p.FileURL == "" {
		return "", "", ErrPaperNotFound
	}
	return "", p.FileURL, nil
}
