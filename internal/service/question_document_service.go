package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"qbank_backend/internal/model"
	"qbank_backend/internal/repository"
	"qbank_backend/internal/util"
	"qbank_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadDocumentInput describes an uploaded question document.
type UploadDocumentInput struct {
	Title            string
	SubjectID        uint
	DocumentType     string
	AcademicYear     string
	Semester         string
	OriginalFilename string
	Size             int64
	Content          io.Reader
}

var documentTypes = map[string]bool{
	model.DocumentTypeQuestionBank:  true,
	model.DocumentTypePreviousPaper: true,
	model.DocumentTypeSamplePaper:   true,
	model.DocumentTypeAssignment:    true,
}

type QuestionDocumentService struct {
	docRepo      *repository.QuestionDocumentRepository
	questionRepo *repository.QuestionRepository
	taxonomyRepo *repository.TaxonomyRepository
	files        StorageProvider
	extraction   *ExtractionService
	imageDir     string
}

// NewQuestionDocumentService keeps uploaded PDFs on local disk under files, where the
// extractor can open them.
func NewQuestionDocumentService(
	docRepo *repository.QuestionDocumentRepository,
	questionRepo *repository.QuestionRepository,
	taxonomyRepo *repository.TaxonomyRepository,
	files StorageProvider,
	extraction *ExtractionService,
	imageDir string,
) *QuestionDocumentService {
	return &QuestionDocumentService{
		docRepo:      docRepo,
		questionRepo: questionRepo,
		taxonomyRepo: taxonomyRepo,
		files:        files,
		extraction:   extraction,
		imageDir:     imageDir,
	}
}

func (s *QuestionDocumentService) Upload(ctx context.Context, in UploadDocumentInput) (*model.QuestionDocument, error) {
	if !util.IsPDF(in.OriginalFilename) {
		return nil, ErrInvalidDocument
	}
	if in.DocumentType == "" {
		in.DocumentType = model.DocumentTypeQuestionBank
	}
	if !documentTypes[in.DocumentType] {
		return nil, fmt.Errorf("%w %q", ErrInvalidDocumentType, in.DocumentType)
	}
	if _, err := s.taxonomyRepo.FindSubject(in.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	original := util.SafeBaseName(in.OriginalFilename)
	filename := model.GenerateUUID()[:8] + "_" + original
	key := DocumentKey(filename)
	if _, err := s.files.Upload(ctx, key, in.Content, in.Size, util.MimePDF); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	path, _ := s.files.LocalPath(key)

	title := in.Title
	if title == "" {
		title = original
	}
	doc := &model.QuestionDocument{
		Title:            title,
		Filename:         filename,
		OriginalFilename: in.OriginalFilename,
		FilePath:         path,
		FileSize:         in.Size,
		SubjectID:        in.SubjectID,
		DocumentType:     in.DocumentType,
		AcademicYear:     in.AcademicYear,
		Semester:         in.Semester,
		Status:           model.ReviewPending,
		ExtractionStatus: model.ExtractionPending,
	}
	if err := s.docRepo.Create(doc); err != nil {
		s.files.Delete(ctx, key)
		return nil, err
	}

	logger.Log.Info("Question document uploaded",
		zap.Uint("documentId", doc.ID),
		zap.Uint("subjectId", doc.SubjectID),
		zap.String("filename", filename),
		zap.Int64("size", in.Size))
	return doc, nil
}

func (s *QuestionDocumentService) Get(id uint) (*model.QuestionDocument, error) {
	doc, err := s.docRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

func (s *QuestionDocumentService) List(f repository.DocumentFilter) ([]model.QuestionDocument, int64, error) {
	return s.docRepo.List(f)
}

func (s *QuestionDocumentService) Questions(id uint) ([]model.Question, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByDocument(id)
}

// Review sets the review status. Only approved documents feed paper generation.
func (s *QuestionDocumentService) Review(id uint, status string) (*model.QuestionDocument, error) {
	switch status {
	case model.ReviewApproved, model.ReviewRejected, model.ReviewPending:
	default:
		return nil, ErrInvalidReviewStatus
	}
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	if err := s.docRepo.UpdateReview(id, status, time.Now()); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete removes the document, its questions, the stored PDF and extracted images.
func (s *QuestionDocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.Get(id)
	if err != nil {
		return err
	}
	if s.extraction.IsRunning(id) {
		return ErrExtractionInProgress
	}
	if err := s.docRepo.Delete(id); err != nil {
		return err
	}

	if err := s.files.Delete(ctx, DocumentKey(doc.Filename)); err != nil {
		logger.Log.Warn("Failed to remove document file", zap.Uint("documentId", id), zap.Error(err))
	}
	if s.imageDir != "" {
		dir := filepath.Join(s.imageDir, fmt.Sprintf("document_%d", id))
		if err := os.RemoveAll(dir); err != nil {
			logger.Log.Warn("Failed to remove extracted images", zap.Uint("documentId", id), zap.Error(err))
		}
	}
	if err := s.extraction.Forget(ctx, id); err != nil {
		logger.Log.Warn("Failed to drop extraction status", zap.Uint("documentId", id), zap.Error(err))
	}

	logger.Log.Info("Question document deleted", zap.Uint("documentId", id))
	return nil
}
