package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"qbank_backend/internal/categorizer"
	"qbank_backend/internal/extractor"
	"qbank_backend/internal/model"
	"qbank_backend/internal/repository"
	"qbank_backend/pkg/jobstore"
	"qbank_backend/pkg/logger"
	"qbank_backend/pkg/monitoring"
	"qbank_backend/pkg/tracing"
	"qbank_backend/pkg/workqueue"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// progress bands of a job
const (
	progressStarted      = 10
	progressExtractStart = 30
	progressExtractEnd   = 90
	progressSaveEnd      = 99
)

const defaultMaxMessageLength = 200

// ExtractionOptions is the policy a job runs with. A job keeps the options it started with.
type ExtractionOptions struct {
	Extractor            extractor.Options
	CategorizerThreshold float64
	ImageDir             string
	MaxMessageLength     int
}

// QuestionStore is the slice of the question repository the extraction job writes through.
type QuestionStore interface {
	Create(question *model.Question) error
	ListByDocument(documentID uint) ([]model.Question, error)
	UpdateCategorization(id uint, unitID, topicID *uint, unitConfidence, topicConfidence float64) error
	DeleteByDocument(documentID uint) error
}

type ExtractionService struct {
	docRepo      *repository.QuestionDocumentRepository
	questions    QuestionStore
	taxonomyRepo *repository.TaxonomyRepository
	store        jobstore.Store
	queue        *workqueue.Queue
	opener       extractor.Opener

	mu   sync.RWMutex
	opts ExtractionOptions
}

func NewExtractionService(
	docRepo *repository.QuestionDocumentRepository,
	questions QuestionStore,
	taxonomyRepo *repository.TaxonomyRepository,
	store jobstore.Store,
	queue *workqueue.Queue,
	opener extractor.Opener,
	opts ExtractionOptions,
) *ExtractionService {
	if opener == nil {
		opener = extractor.PDFOpener{}
	}
	return &ExtractionService{
		docRepo:      docRepo,
		questions:    questions,
		taxonomyRepo: taxonomyRepo,
		store:        store,
		queue:        queue,
		opener:       opener,
		opts:         opts,
	}
}

// SetOptions replaces the policy used by jobs started from now on.
func (s *ExtractionService) SetOptions(opts ExtractionOptions) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

func (s *ExtractionService) Options() ExtractionOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

func jobKey(documentID uint) string {
	return "document:" + strconv.FormatUint(uint64(documentID), 10)
}

func inProgress(status string) bool {
	switch status {
	case model.ExtractionProcessing, model.ExtractionExtracting, model.ExtractionSaving:
		return true
	}
	return false
}

// StartExtraction queues the extraction job of a document and returns immediately.
// Failed documents may be extracted again; completed ones may not.
func (s *ExtractionService) StartExtraction(ctx context.Context, documentID uint) error {
	doc, err := s.docRepo.FindByID(documentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return err
	}
	if doc.ExtractionStatus == model.ExtractionCompleted {
		return ErrAlreadyExtracted
	}

	key := jobKey(documentID)
	if s.queue.InFlight(key) {
		return ErrExtractionInProgress
	}
	if inProgress(doc.ExtractionStatus) {
		logger.Log.Warn("Restarting extraction left unfinished by a previous run",
			zap.Uint("documentId", documentID),
			zap.String("status", doc.ExtractionStatus))
	}

	// replace the terminal snapshot of an earlier run
	_, err = s.store.Update(ctx, documentID, func(snap *jobstore.Snapshot) {
		if snap.Status == "" || snap.Terminal() {
			*snap = jobstore.Snapshot{DocumentID: documentID}
			snap.Advance(jobstore.StatusPending, 0, "Queued for extraction")
		}
	})
	if err != nil {
		logger.Log.Warn("Failed to record queued status", zap.Uint("documentId", documentID), zap.Error(err))
	}

	err = s.queue.Submit(key, func(jobCtx context.Context) {
		s.run(jobCtx, documentID)
	})
	if err != nil && !errors.Is(err, workqueue.ErrDuplicate) {
		if derr := s.store.Delete(ctx, documentID); derr != nil {
			logger.Log.Warn("Failed to clear queued status", zap.Uint("documentId", documentID), zap.Error(derr))
		}
	}
	switch {
	case errors.Is(err, workqueue.ErrDuplicate):
		return ErrExtractionInProgress
	case errors.Is(err, workqueue.ErrQueueFull), errors.Is(err, workqueue.ErrClosed):
		return ErrExtractionBusy
	case err != nil:
		return err
	}

	logger.Log.Info("Extraction queued", zap.Uint("documentId", documentID))
	return nil
}

// GetStatus returns the live snapshot, or one rebuilt from the document row when the
// store has none (e.g. after a restart or TTL expiry).
func (s *ExtractionService) GetStatus(ctx context.Context, documentID uint) (jobstore.Snapshot, error) {
	snap, ok, err := s.store.Get(ctx, documentID)
	if err != nil {
		logger.Log.Warn("Status store read failed, using database", zap.Uint("documentId", documentID), zap.Error(err))
	}
	if ok {
		return snap, nil
	}

	doc, err := s.docRepo.FindByID(documentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jobstore.Snapshot{}, ErrDocumentNotFound
	}
	if err != nil {
		return jobstore.Snapshot{}, err
	}
	return snapshotFromDocument(doc), nil
}

func snapshotFromDocument(doc *model.QuestionDocument) jobstore.Snapshot {
	return jobstore.Snapshot{
		DocumentID:     doc.ID,
		Status:         doc.ExtractionStatus,
		Progress:       doc.ExtractionProgress,
		Message:        doc.ExtractionMessage,
		TotalQuestions: doc.TotalQuestions,
		TotalPages:     doc.TotalPages,
		ProcessedPages: doc.ProcessedPages,
		StartedAt:      doc.StartedAt,
		ProcessedAt:    doc.ProcessedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

// job is the state of one running extraction. Only its own goroutine touches it.
type job struct {
	svc        *ExtractionService
	documentID uint
	opts       ExtractionOptions
	snap       jobstore.Snapshot
}

// advance applies status and progress, then writes the snapshot to the store and the
// document row. Write failures are logged; the job carries on.
func (j *job) advance(ctx context.Context, status string, progress int, message string) {
	j.snap.Advance(status, progress, message)
	j.flush(ctx)
}

func (j *job) flush(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := j.svc.store.Set(ctx, j.snap); err != nil {
		logger.Log.Warn("Failed to write extraction status",
			zap.Uint("documentId", j.documentID),
			zap.String("status", j.snap.Status),
			zap.Error(err))
	}

	totalQuestions := j.snap.TotalQuestions
	totalPages := j.snap.TotalPages
	processedPages := j.snap.ProcessedPages
	err := j.svc.docRepo.UpdateExtraction(j.documentID, repository.ExtractionUpdate{
		Status:         j.snap.Status,
		Progress:       j.snap.Progress,
		Message:        j.snap.Message,
		TotalQuestions: &totalQuestions,
		TotalPages:     &totalPages,
		ProcessedPages: &processedPages,
		StartedAt:      j.snap.StartedAt,
		ProcessedAt:    j.snap.ProcessedAt,
	})
	if err != nil {
		logger.Log.Warn("Failed to persist extraction status",
			zap.Uint("documentId", j.documentID),
			zap.Error(err))
	}
}

func (s *ExtractionService) run(ctx context.Context, documentID uint) {
	started := time.Now()
	j := &job{
		svc:        s,
		documentID: documentID,
		opts:       s.Options(),
		snap:       jobstore.Snapshot{DocumentID: documentID, StartedAt: &started},
	}

	ctx, span := tracing.StartSpan(ctx, "extraction.document",
		attribute.Int64("document.id", int64(documentID)))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
		}
		status := jobstore.StatusCompleted
		if err != nil {
			status = jobstore.StatusFailed
			j.fail(ctx, err)
		}
		monitoring.ObserveExtraction(status, started)
		tracing.EndSpan(span, err)
	}()

	err = j.execute(ctx)
}

func (j *job) fail(ctx context.Context, err error) {
	logger.Log.Error("Extraction failed",
		zap.Uint("documentId", j.documentID),
		zap.Int("processedPages", j.snap.ProcessedPages),
		zap.Int("totalPages", j.snap.TotalPages),
		zap.Error(err))
	j.advance(ctx, jobstore.StatusFailed, 100, truncateMessage(err.Error(), j.opts.MaxMessageLength))
}

func truncateMessage(msg string, limit int) string {
	if limit <= 0 {
		limit = defaultMaxMessageLength
	}
	if utf8.RuneCountInString(msg) <= limit {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:limit])
}

func (j *job) execute(ctx context.Context) error {
	svc := j.svc
	j.advance(ctx, jobstore.StatusProcessing, progressStarted, "Opening document")

	doc, err := svc.docRepo.FindByID(j.documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	// a retry replaces the questions of the failed run; completed documents never get here
	if err := svc.questions.DeleteByDocument(j.documentID); err != nil {
		return fmt.Errorf("clear previous questions: %w", err)
	}

	src, err := svc.opener.Open(doc.FilePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(doc.FilePath), err)
	}
	defer src.Close()

	pages := src.NumPages()
	if pages <= 0 {
		return extractor.ErrNoPages
	}
	j.snap.TotalPages = pages
	j.advance(ctx, jobstore.StatusExtracting, progressExtractStart, fmt.Sprintf("Extracting %d pages", pages))

	pending, err := j.extractPages(ctx, src, pages)
	if err != nil {
		return err
	}
	monitoring.QuestionsExtracted.WithLabelValues("extracted").Add(float64(len(pending)))

	units := j.loadTaxonomy(doc.SubjectID)
	saved := j.save(ctx, pending, units)

	now := time.Now()
	j.snap.TotalQuestions = saved
	j.snap.ProcessedAt = &now
	j.advance(ctx, jobstore.StatusCompleted, 100,
		fmt.Sprintf("Extracted %d questions from %d pages", saved, pages))

	logger.Log.Info("Extraction completed",
		zap.Uint("documentId", j.documentID),
		zap.Int("pages", pages),
		zap.Int("extracted", len(pending)),
		zap.Int("saved", saved),
		zap.Duration("elapsed", now.Sub(*j.snap.StartedAt)))
	return nil
}

// extractPages runs pages through one segmenter in order, so section headers carry
// over. A page whose text cannot be read counts as empty.
func (j *job) extractPages(ctx context.Context, src extractor.Document, pages int) ([]model.Question, error) {
	segmenter := extractor.NewSegmenter(j.opts.Extractor)
	classifier := extractor.NewClassifier(j.opts.Extractor)
	imageDir := filepath.Join(j.opts.ImageDir, fmt.Sprintf("document_%d", j.documentID))

	var pending []model.Question
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction cancelled after %d of %d pages: %w", page-1, pages, err)
		}

		_, span := tracing.StartSpan(ctx, "extraction.page", attribute.Int("page", page))

		text, err := src.PageText(page)
		if err != nil {
			logger.Log.Warn("Failed to read page text",
				zap.Uint("documentId", j.documentID),
				zap.Int("page", page),
				zap.Error(err))
			text = ""
		}

		spans := segmenter.SegmentPage(page, text)

		var images []extractor.ExtractedImage
		if len(spans) > 0 {
			images, err = src.PageImages(page, imageDir)
			if err != nil {
				logger.Log.Warn("Failed to extract page images",
					zap.Uint("documentId", j.documentID),
					zap.Int("page", page),
					zap.Error(err))
				images = nil
			}
		}

		for _, sp := range spans {
			pending = append(pending, buildQuestion(j.documentID, sp, classifier.Classify(sp.Text), images))
		}
		span.SetAttributes(attribute.Int("spans", len(spans)), attribute.Int("images", len(images)))
		span.End()

		j.snap.ProcessedPages = page
		progress := progressExtractStart + page*(progressExtractEnd-progressExtractStart)/pages
		j.advance(ctx, jobstore.StatusExtracting, progress, fmt.Sprintf("Processed page %d of %d", page, pages))
	}
	return pending, nil
}

// buildQuestion turns a span into a question row. Every image of the page is attached
// to every question on it.
func buildQuestion(documentID uint, sp extractor.Span, cls extractor.Classification, images []extractor.ExtractedImage) model.Question {
	q := model.Question{
		DocumentID:      documentID,
		QuestionNumber:  sp.Label,
		QuestionText:    sp.Text,
		PageNumber:      sp.PageNumber,
		Section:         sp.Section,
		QuestionType:    cls.QuestionType,
		DifficultyLevel: cls.Difficulty,
		Marks:           cls.Marks,
		HasFormula:      cls.HasFormula,
		HasDiagram:      cls.HasDiagram,
	}
	if len(sp.Options) > 0 {
		q.Metadata = datatypes.JSONMap{"options": sp.Options}
	}
	if len(images) > 0 {
		q.HasImage = true
		paths := make([]string, 0, len(images))
		for _, img := range images {
			paths = append(paths, img.Path)
		}
		q.ImagePaths = datatypes.JSONSlice[string](paths)
	}
	return q
}

// loadTaxonomy returns the subject tree in categorizer form. A failed load only
// disables categorization.
func (j *job) loadTaxonomy(subjectID uint) []categorizer.Unit {
	units, err := j.svc.taxonomyRepo.ListUnitsWithTopics(subjectID)
	if err != nil {
		logger.Log.Warn("Failed to load taxonomy, questions stay uncategorized",
			zap.Uint("documentId", j.documentID),
			zap.Uint("subjectId", subjectID),
			zap.Error(err))
		return nil
	}
	return toCategorizerUnits(units)
}

func toCategorizerUnits(units []model.Unit) []categorizer.Unit {
	out := make([]categorizer.Unit, 0, len(units))
	for _, u := range units {
		cu := categorizer.Unit{Node: categorizer.Node{ID: u.ID, Name: u.Name, Description: u.Description}}
		for _, t := range u.Topics {
			cu.Topics = append(cu.Topics, categorizer.Node{ID: t.ID, Name: t.Name, Description: t.Description})
		}
		out = append(out, cu)
	}
	return out
}

func applyCategorization(q *model.Question, res categorizer.Result) {
	q.UnitID, q.TopicID = nil, nil
	q.UnitConfidence, q.TopicConfidence = 0, 0
	if res.Unit != nil {
		id := res.Unit.ID
		q.UnitID = &id
		q.UnitConfidence = res.Unit.Score
	}
	if res.Topic != nil {
		id := res.Topic.ID
		q.TopicID = &id
		q.TopicConfidence = res.Topic.Score
	}
}

// save writes questions one by one. A failed row is logged and skipped.
func (j *job) save(ctx context.Context, pending []model.Question, units []categorizer.Unit) int {
	cat := categorizer.New(j.opts.CategorizerThreshold)
	total := len(pending)
	j.advance(ctx, jobstore.StatusSaving, progressExtractEnd, fmt.Sprintf("Saving %d questions", total))

	saved := 0
	for i := range pending {
		q := &pending[i]
		applyCategorization(q, cat.Categorize(q.QuestionText, units))

		if err := j.svc.questions.Create(q); err != nil {
			monitoring.QuestionsExtracted.WithLabelValues("failed").Inc()
			logger.Log.Warn("Failed to save question",
				zap.Uint("documentId", j.documentID),
				zap.Int("page", q.PageNumber),
				zap.String("questionNumber", q.QuestionNumber),
				zap.Error(err))
			continue
		}
		saved++
		monitoring.QuestionsExtracted.WithLabelValues("saved").Inc()

		j.snap.TotalQuestions = saved
		progress := progressExtractEnd + (i+1)*(progressSaveEnd-progressExtractEnd)/total
		j.advance(ctx, jobstore.StatusSaving, progress, fmt.Sprintf("Saved %d of %d questions", saved, total))
	}
	return saved
}

// RecategorizeResult counts the assignments made by Recategorize.
type RecategorizeResult struct {
	Questions      int `json:"questions"`
	UnitsAssigned  int `json:"unitsAssigned"`
	TopicsAssigned int `json:"topicsAssigned"`
}

// Recategorize re-runs the categorizer over a document's questions against the current
// taxonomy. Only the unit and topic columns change.
func (s *ExtractionService) Recategorize(ctx context.Context, documentID uint) (*RecategorizeResult, error) {
	doc, err := s.docRepo.FindByID(documentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.queue.InFlight(jobKey(documentID)) {
		return nil, ErrExtractionInProgress
	}

	units, err := s.taxonomyRepo.ListUnitsWithTopics(doc.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	questions, err := s.questions.ListByDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	_, span := tracing.StartSpan(ctx, "extraction.recategorize",
		attribute.Int64("document.id", int64(documentID)),
		attribute.Int("questions", len(questions)))
	defer span.End()

	cat := categorizer.New(s.Options().CategorizerThreshold)
	tree := toCategorizerUnits(units)
	res := &RecategorizeResult{Questions: len(questions)}
	for i := range questions {
		q := &questions[i]
		applyCategorization(q, cat.Categorize(q.QuestionText, tree))
		if err := s.questions.UpdateCategorization(q.ID, q.UnitID, q.TopicID, q.UnitConfidence, q.TopicConfidence); err != nil {
			return res, fmt.Errorf("update question %d: %w", q.ID, err)
		}
		if q.UnitID != nil {
			res.UnitsAssigned++
		}
		if q.TopicID != nil {
			res.TopicsAssigned++
		}
	}

	logger.Log.Info("Questions recategorized",
		zap.Uint("documentId", documentID),
		zap.Int("questions", res.Questions),
		zap.Int("units", res.UnitsAssigned),
		zap.Int("topics", res.TopicsAssigned))
	return res, nil
}

// IsRunning reports whether a job for the document is queued or running.
func (s *ExtractionService) IsRunning(documentID uint) bool {
	return s.queue.InFlight(jobKey(documentID))
}

// Forget drops the live snapshot of a document.
func (s *ExtractionService) Forget(ctx context.Context, documentID uint) error {
	return s.store.Delete(ctx, documentID)
}
