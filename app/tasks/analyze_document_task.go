package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/classifier"
	"github.com/bondlens/bondlens/app/database"
)

type AnalyzeDocumentTask struct {
	Task
	Document        database.Document
	CredibilityTier int
	analyzer        *analyzer.Analyzer
	documentRepo    database.DocumentRepository
	assessmentRepo  database.AssessmentRepository
}

func NewAnalyzeDocumentTask(doc database.Document, credibilityTier int, a *analyzer.Analyzer,
	documentRepo database.DocumentRepository, assessmentRepo database.AssessmentRepository) *AnalyzeDocumentTask {
	return &AnalyzeDocumentTask{
		Task:            NewTask(TaskTypeAnalyzeDocument, doc.ID),
		Document:        doc,
		CredibilityTier: credibilityTier,
		analyzer:        a,
		documentRepo:    documentRepo,
		assessmentRepo:  assessmentRepo,
	}
}

func (t *AnalyzeDocumentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	doc := classifier.Document{
		ID:          t.Document.ID,
		SourceID:    t.Document.SourceID,
		Title:       t.Document.Title,
		RawText:     t.Document.RawText,
		PublishedAt: t.Document.PublishedAt,
		ReadCount:   t.Document.ReadCount,
	}

	assessment, err := t.analyzer.Run(ctx, doc, t.CredibilityTier)
	if err != nil {
		// Task-level retry only makes sense for interrupted work. A rejection
		// already consumed the analyzer's stricter second attempt; persist it
		// as the document's final disposition.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, analyzer.ErrRejectedAssessment) {
			return fmt.Errorf("failed to analyze document: %w", err)
		}
	}

	if storeErr := t.store(assessment); storeErr != nil {
		return storeErr
	}

	slog.Info("Task completed",
		"type", "AnalyzeDocument",
		"document", t.Document.ID,
		"duration", t.GetDuration(),
		"status", assessment.Status,
		"direction", assessment.Direction)

	return nil
}

func (t *AnalyzeDocumentTask) store(assessment analyzer.ArticleAssessment) error {
	err := t.assessmentRepo.UpsertAssessment(database.Assessment{
		ID:            uuid.NewString(),
		DocumentID:    assessment.DocumentID,
		SourceID:      assessment.SourceID,
		SchemaVersion: assessment.SchemaVersion,
		Scores:        assessment.Scores,
		Direction:     assessment.Direction,
		Theses:        assessment.Theses,
		Weight:        assessment.Weight,
		Status:        assessment.Status,
		RejectReason:  assessment.RejectReason,
		PublishedAt:   assessment.PublishedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to store assessment: %w", err)
	}

	status := database.DocumentStatusAnalyzed
	if assessment.Status == analyzer.StatusRejected {
		status = database.DocumentStatusRejected
	}

	if err := t.documentRepo.UpdateDocumentStatus(t.Document.ID, status, assessment.RejectReason); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	return nil
}
