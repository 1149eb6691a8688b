// Package testutil provides fixtures shared by repository, service and controller tests.
package testutil

import (
	"path/filepath"
	"testing"

	"qbank_backend/internal/model"
	"qbank_backend/pkg/database"

	"gorm.io/gorm"
)

// NewDB returns a migrated sqlite database in a per-test temp directory.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "qbank.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Taxonomy is a small data structures subject with two units and four topics.
type Taxonomy struct {
	Subject model.Subject
	Units   []model.Unit
	Topics  []model.Topic
}

func SeedTaxonomy(t *testing.T, db *gorm.DB) Taxonomy {
	t.Helper()
	tx := Taxonomy{Subject: model.Subject{Name: "Data Structures", Code: "CS201"}}
	mustCreate(t, db, &tx.Subject)

	units := []model.Unit{
		{SubjectID: tx.Subject.ID, Name: "Linear Structures", Description: "stacks queues and linked lists", Order: 1},
		{SubjectID: tx.Subject.ID, Name: "Trees and Graphs", Description: "binary trees graph traversal and search", Order: 2},
	}
	for i := range units {
		mustCreate(t, db, &units[i])
	}
	tx.Units = units

	topics := []model.Topic{
		{UnitID: units[0].ID, Name: "Stacks", Description: "push pop and last in first out order"},
		{UnitID: units[0].ID, Name: "Queues", Description: "enqueue dequeue and circular buffers"},
		{UnitID: units[1].ID, Name: "Binary Trees", Description: "inorder preorder postorder traversal"},
		{UnitID: units[1].ID, Name: "Graph Search", Description: "breadth first and depth first search"},
	}
	for i := range topics {
		mustCreate(t, db, &topics[i])
	}
	tx.Topics = topics
	return tx
}

// SeedDocument stores a fully extracted document of subjectID with the given review status and questions.
func SeedDocument(t *testing.T, db *gorm.DB, subjectID uint, status string, questions ...model.Question) model.QuestionDocument {
	t.Helper()
	doc := model.QuestionDocument{
		Title:            "Seeded paper",
		Filename:         "seeded.pdf",
		FilePath:         "uploads/seeded.pdf",
		SubjectID:        subjectID,
		Status:           status,
		ExtractionStatus: model.ExtractionCompleted,
	}
	mustCreate(t, db, &doc)
	for i := range questions {
		questions[i].DocumentID = doc.ID
		mustCreate(t, db, &questions[i])
	}
	doc.Questions = questions
	return doc
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
