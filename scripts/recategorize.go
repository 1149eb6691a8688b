// Re-runs the categorizer over extracted questions after the taxonomy changed.
//
// Usage: go run scripts/recategorize.go [-subject 3] [-document 12]

package main

import (
	"context"
	"flag"
	"log"

	"qbank_backend/internal/app"
	"qbank_backend/internal/config"
	"qbank_backend/internal/model"
	"qbank_backend/internal/repository"
	"qbank_backend/internal/service"
	"qbank_backend/pkg/database"
	"qbank_backend/pkg/jobstore"
	"qbank_backend/pkg/logger"
	"qbank_backend/pkg/workqueue"
)

func main() {
	subjectID := flag.Uint("subject", 0, "only documents of this subject")
	documentID := flag.Uint("document", 0, "only this document")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	docRepo := repository.NewQuestionDocumentRepository(db)
	extraction := service.NewExtractionService(
		docRepo,
		repository.NewQuestionRepository(db),
		repository.NewTaxonomyRepository(db),
		jobstore.NewMemoryStore(),
		workqueue.New(1, 1),
		nil,
		app.ExtractionOptions(cfg),
	)

	ids := []uint{uint(*documentID)}
	if *documentID == 0 {
		ids = nil
		for page := 1; ; page++ {
			docs, _, err := docRepo.List(repository.DocumentFilter{
				SubjectID:        uint(*subjectID),
				ExtractionStatus: model.ExtractionCompleted,
				Page:             page,
				PageSize:         100,
			})
			if err != nil {
				log.Fatalf("Failed to list documents: %v", err)
			}
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			if len(docs) < 100 {
				break
			}
		}
	}

	var questions, units, topics int
	for _, id := range ids {
		res, err := extraction.Recategorize(context.Background(), id)
		if err != nil {
			log.Printf("document %d: %v", id, err)
			continue
		}
		questions += res.Questions
		units += res.UnitsAssigned
		topics += res.TopicsAssigned
	}
	log.Printf("Recategorized %d documents: %d questions, %d with a unit, %d with a topic",
		len(ids), questions, units, topics)
}
