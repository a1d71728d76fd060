package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/database"
	"github.com/bondlens/bondlens/app/synthesizer"
)

type SynthesizeWindowTask struct {
	Task
	WindowStart    time.Time
	WindowEnd      time.Time
	Trigger        string
	synthesizer    *synthesizer.Synthesizer
	documentRepo   database.DocumentRepository
	assessmentRepo database.AssessmentRepository
	consensusRepo  database.ConsensusRepository
}

func NewSynthesizeWindowTask(windowStart, windowEnd time.Time, trigger string, s *synthesizer.Synthesizer,
	documentRepo database.DocumentRepository, assessmentRepo database.AssessmentRepository,
	consensusRepo database.ConsensusRepository) *SynthesizeWindowTask {
	return &SynthesizeWindowTask{
		Task:           NewTask(TaskTypeSynthesizeWindow, windowStart.Format("2006-01-02")),
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		Trigger:        trigger,
		synthesizer:    s,
		documentRepo:   documentRepo,
		assessmentRepo: assessmentRepo,
		consensusRepo:  consensusRepo,
	}
}

func (t *SynthesizeWindowTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	pending, err := t.documentRepo.GetPendingCount(t.WindowStart, t.WindowEnd)
	if err != nil {
		return fmt.Errorf("failed to get pending count: %w", err)
	}
	if pending > 0 {
		slog.Debug("Window has pending documents, deferring synthesis",
			"window", t.GetSubject(), "pending", pending)
		return nil
	}

	statusCounts, err := t.documentRepo.GetStatusCountsInWindow(t.WindowStart, t.WindowEnd)
	if err != nil {
		return fmt.Errorf("failed to get window status counts: %w", err)
	}
	documentCount := 0
	for _, count := range statusCounts {
		documentCount += count
	}

	rows, err := t.assessmentRepo.GetValidAssessmentsInWindow(t.WindowStart, t.WindowEnd)
	if err != nil {
		return fmt.Errorf("failed to get assessments: %w", err)
	}

	assessments := make([]analyzer.ArticleAssessment, len(rows))
	for i, row := range rows {
		assessments[i] = analyzer.ArticleAssessment{
			DocumentID:    row.DocumentID,
			SourceID:      row.SourceID,
			SchemaVersion: row.SchemaVersion,
			Scores:        row.Scores,
			Direction:     row.Direction,
			Theses:        row.Theses,
			Weight:        row.Weight,
			Status:        row.Status,
			PublishedAt:   row.PublishedAt,
		}
	}

	result, err := t.synthesizer.Run(assessments)
	if errors.Is(err, synthesizer.ErrEmptyWindow) {
		slog.Info("Window has no valid assessments, skipping synthesis", "window", t.GetSubject())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to synthesize window: %w", err)
	}

	run, err := t.buildRun(result, statusCounts, documentCount)
	if err != nil {
		return err
	}

	if err := t.consensusRepo.InsertRun(run); err != nil {
		return fmt.Errorf("failed to store consensus run: %w", err)
	}

	slog.Info("Task completed",
		"type", "SynthesizeWindow",
		"window", t.GetSubject(),
		"duration", t.GetDuration(),
		"trigger", t.Trigger,
		"assessments", result.AssessmentCount,
		"direction", result.Direction,
		"contested", result.Contested)

	return nil
}

func (t *SynthesizeWindowTask) buildRun(result *synthesizer.ConsensusResult, statusCounts map[string]int, documentCount int) (database.ConsensusRun, error) {
	tally, err := json.Marshal(result.Tally)
	if err != nil {
		return database.ConsensusRun{}, fmt.Errorf("failed to encode tally: %w", err)
	}
	dimensions, err := json.Marshal(result.Dimensions)
	if err != nil {
		return database.ConsensusRun{}, fmt.Errorf("failed to encode dimensions: %w", err)
	}
	themes, err := json.Marshal(result.Themes)
	if err != nil {
		return database.ConsensusRun{}, fmt.Errorf("failed to encode themes: %w", err)
	}
	outliers, err := json.Marshal(result.Outliers)
	if err != nil {
		return database.ConsensusRun{}, fmt.Errorf("failed to encode outliers: %w", err)
	}

	return database.ConsensusRun{
		ID:              uuid.NewString(),
		WindowStart:     t.WindowStart,
		WindowEnd:       t.WindowEnd,
		Direction:       result.Direction,
		Contested:       result.Contested,
		Tally:           tally,
		Dimensions:      dimensions,
		Themes:          themes,
		Outliers:        outliers,
		AssessmentCount: result.AssessmentCount,
		TotalWeight:     result.TotalWeight,
		DocumentCount:   documentCount,
		ExcludedCount:   documentCount - result.AssessmentCount,

		RejectedCount:     statusCounts[database.DocumentStatusRejected],
		DuplicateCount:    statusCounts[database.DocumentStatusDuplicate],
		UnclassifiedCount: statusCounts[database.DocumentStatusUnclassified],
		OutOfScopeCount:   statusCounts[database.DocumentStatusOutOfScope],

		Trigger: t.Trigger,
	}, nil
}
