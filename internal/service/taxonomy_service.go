package service

import (
	"errors"
	"strings"

	"qbank_backend/internal/model"
	"qbank_backend/internal/repository"

	"gorm.io/gorm"
)

var ErrNameRequired = errors.New("name is required")

// TaxonomyService maintains the subject, unit and topic tree the categorizer matches against.
type TaxonomyService struct {
	repo *repository.TaxonomyRepository
}

func NewTaxonomyService(repo *repository.TaxonomyRepository) *TaxonomyService {
	return &TaxonomyService{repo: repo}
}

func (s *TaxonomyService) CreateSubject(name, code, description string) (*model.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	subject := &model.Subject{Name: name, Code: strings.TrimSpace(code), Description: description}
	if err := s.repo.CreateSubject(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *TaxonomyService) CreateUnit(subjectID uint, name, description string, order int) (*model.Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.repo.FindSubject(subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	unit := &model.Unit{SubjectID: subjectID, Name: name, Description: description, Order: order}
	if err := s.repo.CreateUnit(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *TaxonomyService) CreateTopic(unitID uint, name, description string) (*model.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.repo.FindUnit(unitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	topic := &model.Topic{UnitID: unitID, Name: name, Description: description}
	if err := s.repo.CreateTopic(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *TaxonomyService) ListSubjects() ([]model.Subject, error) {
	return s.repo.ListSubjects()
}

// Tree returns the subject with its units and their topics.
func (s *TaxonomyService) Tree(subjectID uint) (*model.Subject, error) {
	subject, err := s.repo.FindSubject(subjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	units, err := s.repo.ListUnitsWithTopics(subjectID)
	if err != nil {
		return nil, err
	}
	subject.Units = units
	return subject, nil
}
