package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/classifier"
	"github.com/bondlens/bondlens/app/database"
	"github.com/bondlens/bondlens/app/sources"
	"github.com/bondlens/bondlens/app/synthesizer"
	"github.com/bondlens/bondlens/app/tasks"
)

func NewHandler(configCache *sources.ConfigCache, cls *classifier.Classifier, a *analyzer.Analyzer,
	s *synthesizer.Synthesizer, documentRepo database.DocumentRepository,
	assessmentRepo database.AssessmentRepository, consensusRepo database.ConsensusRepository,
	scheduler tasks.TaskSchedulerInterface, windowHours int) *Handler {
	return &Handler{
		configCache:    configCache,
		classifier:     cls,
		analyzer:       a,
		synthesizer:    s,
		documentRepo:   documentRepo,
		assessmentRepo: assessmentRepo,
		consensusRepo:  consensusRepo,
		scheduler:      scheduler,
		windowHours:    windowHours,
	}
}

// IngestDocuments accepts a batch of commentary documents. Each document gets
// an individual disposition; one bad document never fails the batch.
func (h *Handler) IngestDocuments(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents in request"})
		return
	}

	results := make([]IngestResult, 0, len(req.Documents))
	accepted := 0

	for _, in := range req.Documents {
		result := h.ingestOne(in)
		if result.Disposition == DispositionAccepted {
			accepted++
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"results":  results,
		"total":    len(results),
		"accepted": accepted,
	})
}

func (h *Handler) ingestOne(in IngestDocument) IngestResult {
	doc := classifier.Document{
		ID:               uuid.NewString(),
		SourceID:         in.SourceID,
		Title:            in.Title,
		RawText:          in.Text,
		PublishedAt:      in.PublishedAt,
		DeclaredCategory: in.DeclaredCategory,
		ReadCount:        in.ReadCount,
	}

	verdict, err := h.classifier.Run(doc, h.configCache.CategoryHint(in.SourceID))
	if err != nil {
		if errors.Is(err, classifier.ErrMalformedDocument) {
			return IngestResult{Disposition: DispositionMalformed, Reason: err.Error()}
		}
		slog.Error("Classification error", "source", in.SourceID, "error", err)
		return IngestResult{Disposition: DispositionMalformed, Reason: "classification failed"}
	}

	row := database.Document{
		ID:               doc.ID,
		SourceID:         doc.SourceID,
		Title:            doc.Title,
		RawText:          doc.RawText,
		Category:         verdict.Category,
		DeclaredCategory: doc.DeclaredCategory,
		Fingerprint:      verdict.Fingerprint,
		ReadCount:        doc.ReadCount,
		PublishedAt:      doc.PublishedAt,
	}

	result := IngestResult{ID: doc.ID, Category: verdict.Category}

	switch {
	case verdict.Duplicate:
		dupOf := verdict.DuplicateOf
		row.Status = database.DocumentStatusDuplicate
		row.StatusReason = "duplicate of " + dupOf
		row.DuplicateOf = &dupOf
		result.Disposition = DispositionDuplicate
		result.DuplicateOf = &dupOf
	case verdict.Category == classifier.CategoryUnclassified:
		row.Status = database.DocumentStatusUnclassified
		row.StatusReason = verdict.Reason
		result.Disposition = DispositionUnclassified
		result.Reason = verdict.Reason
	case verdict.Category != classifier.CategoryFixedIncome:
		row.Status = database.DocumentStatusOutOfScope
		row.StatusReason = "category " + verdict.Category + " is outside analysis scope"
		result.Disposition = DispositionOutOfScope
		result.Reason = row.StatusReason
	default:
		row.Status = database.DocumentStatusPending
		result.Disposition = DispositionAccepted
	}

	if err := h.documentRepo.InsertDocument(row); err != nil {
		// The fingerprint was admitted to the index before the store; release
		// it so a resubmission is not reported duplicate-of a document that
		// was never persisted.
		if !verdict.Duplicate {
			h.classifier.Forget(doc.ID)
		}
		slog.Error("Database error", "operation", "insert_document", "document", doc.ID, "error", err)
		return IngestResult{Disposition: DispositionMalformed, Reason: "storage failed"}
	}

	if result.Disposition == DispositionAccepted {
		task := tasks.NewAnalyzeDocumentTask(row, h.configCache.Tier(in.SourceID), h.analyzer,
			h.documentRepo, h.assessmentRepo)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Error("Failed to enqueue AnalyzeDocumentTask", "document", doc.ID, "error", err)
		}
	}

	return result
}

// GetWindowConsensus returns the latest consensus run for a window.
func (h *Handler) GetWindowConsensus(c *gin.Context) {
	start, ok := h.parseWindow(c)
	if !ok {
		return
	}

	run, err := h.consensusRepo.GetLatestRun(start)
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_run", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Window has no consensus run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_start":     run.WindowStart,
		"window_end":       run.WindowEnd,
		"direction":        run.Direction,
		"contested":        run.Contested,
		"tally":            json.RawMessage(run.Tally),
		"dimensions":       json.RawMessage(run.Dimensions),
		"themes":           json.RawMessage(run.Themes),
		"outliers":         json.RawMessage(run.Outliers),
		"assessment_count": run.AssessmentCount,
		"total_weight":     run.TotalWeight,
		"document_count":   run.DocumentCount,
		"excluded_count":   run.ExcludedCount,
		"excluded": gin.H{
			"rejected":     run.RejectedCount,
			"duplicate":    run.DuplicateCount,
			"unclassified": run.UnclassifiedCount,
			"out_of_scope": run.OutOfScopeCount,
		},
		"triggered_by": run.Trigger,
		"created_at":   run.CreatedAt,
	})
}

// GetWindowRuns returns a window's full consensus run history, newest first.
// Runs are append-only; the history shows how the consensus moved as late
// documents arrived.
func (h *Handler) GetWindowRuns(c *gin.Context) {
	start, ok := h.parseWindow(c)
	if !ok {
		return
	}

	runs, err := h.consensusRepo.GetRuns(start)
	if err != nil {
		slog.Error("Database error", "operation", "get_runs", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		out = append(out, gin.H{
			"id":               run.ID,
			"direction":        run.Direction,
			"contested":        run.Contested,
			"assessment_count": run.AssessmentCount,
			"document_count":   run.DocumentCount,
			"excluded_count":   run.ExcludedCount,
			"triggered_by":     run.Trigger,
			"created_at":       run.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  out,
		"total": len(out),
	})
}

// GetWindowDocuments returns every document of a window with its disposition,
// duplicates and rejects included, so exclusions stay auditable.
func (h *Handler) GetWindowDocuments(c *gin.Context) {
	start, ok := h.parseWindow(c)
	if !ok {
		return
	}
	end := start.Add(time.Duration(h.windowHours) * time.Hour)

	documents, err := h.documentRepo.GetDocumentsInWindow(start, end)
	if err != nil {
		slog.Error("Database error", "operation", "get_documents", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(documents))
	for _, doc := range documents {
		out = append(out, gin.H{
			"id":            doc.ID,
			"source_id":     doc.SourceID,
			"title":         doc.Title,
			"category":      doc.Category,
			"status":        doc.Status,
			"status_reason": doc.StatusReason,
			"duplicate_of":  doc.DuplicateOf,
			"published_at":  doc.PublishedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": out,
		"total":     len(out),
	})
}

// GetDocument returns one document together with its assessment, if analysis
// produced one.
func (h *Handler) GetDocument(c *gin.Context) {
	id := c.Param("id")

	doc, err := h.documentRepo.GetDocument(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_document", "document", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	response := gin.H{
		"id":                doc.ID,
		"source_id":         doc.SourceID,
		"title":             doc.Title,
		"category":          doc.Category,
		"declared_category": doc.DeclaredCategory,
		"status":            doc.Status,
		"status_reason":     doc.StatusReason,
		"duplicate_of":      doc.DuplicateOf,
		"read_count":        doc.ReadCount,
		"published_at":      doc.PublishedAt,
		"created_at":        doc.CreatedAt,
	}

	assessment, err := h.assessmentRepo.GetAssessment(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_assessment", "document", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if assessment != nil {
		response["assessment"] = gin.H{
			"schema_version": assessment.SchemaVersion,
			"scores":         assessment.Scores,
			"direction":      assessment.Direction,
			"theses":         assessment.Theses,
			"weight":         assessment.Weight,
			"status":         assessment.Status,
			"reject_reason":  assessment.RejectReason,
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetWindowAssessments returns every assessment of a window, rejected ones
// included so their dispositions stay auditable.
func (h *Handler) GetWindowAssessments(c *gin.Context) {
	start, ok := h.parseWindow(c)
	if !ok {
		return
	}
	end := start.Add(time.Duration(h.windowHours) * time.Hour)

	assessments, err := h.assessmentRepo.GetAssessmentsInWindow(start, end)
	if err != nil {
		slog.Error("Database error", "operation", "get_assessments", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(assessments))
	for _, a := range assessments {
		out = append(out, gin.H{
			"document_id":    a.DocumentID,
			"source_id":      a.SourceID,
			"schema_version": a.SchemaVersion,
			"scores":         a.Scores,
			"direction":      a.Direction,
			"theses":         a.Theses,
			"weight":         a.Weight,
			"status":         a.Status,
			"reject_reason":  a.RejectReason,
			"published_at":   a.PublishedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": out,
		"total":       len(out),
	})
}

// SynthesizeWindow forces a consensus run for a window. Returns 409 while the
// window still has pending documents and 422 when it has nothing to
// synthesize.
func (h *Handler) SynthesizeWindow(c *gin.Context) {
	start, ok := h.parseWindow(c)
	if !ok {
		return
	}
	end := start.Add(time.Duration(h.windowHours) * time.Hour)

	pending, err := h.documentRepo.GetPendingCount(start, end)
	if err != nil {
		slog.Error("Database error", "operation", "get_pending_count", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if pending > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Window has pending documents",
			"pending": pending,
		})
		return
	}

	documentCount, err := h.documentRepo.GetDocumentCountInWindow(start, end)
	if err != nil {
		slog.Error("Database error", "operation", "get_document_count", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if documentCount == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Window has no documents"})
		return
	}

	// An empty valid-assessment set is a final answer, not work to enqueue:
	// every in-window document was rejected, duplicated or out of scope.
	valid, err := h.assessmentRepo.GetValidAssessmentsInWindow(start, end)
	if err != nil {
		slog.Error("Database error", "operation", "get_valid_assessments", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(valid) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "Window has no valid assessments",
			"documents": documentCount,
		})
		return
	}

	task := tasks.NewSynthesizeWindowTask(start, end, database.RunTriggerManual, h.synthesizer,
		h.documentRepo, h.assessmentRepo, h.consensusRepo)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue SynthesizeWindowTask", "window", c.Param("date"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue synthesis task"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"window":  start.Format("2006-01-02"),
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if stats, err := h.documentRepo.GetDocumentStats(); err == nil {
		health["documents"] = stats.Total
	}

	health["loaded_sources"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.documentRepo.GetDocumentStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_document_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := gin.H{
		"documents": gin.H{
			"total":        stats.Total,
			"pending":      stats.Pending,
			"analyzed":     stats.Analyzed,
			"rejected":     stats.Rejected,
			"duplicate":    stats.Duplicate,
			"unclassified": stats.Unclassified,
			"out_of_scope": stats.OutOfScope,
		},
		"sources": h.configCache.GetConfigCount(),
	}

	if count, err := h.assessmentRepo.GetAssessmentCount(); err == nil {
		response["assessments"] = count
	}
	if count, err := h.consensusRepo.GetRunCount(); err == nil {
		response["consensus_runs"] = count
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) parseWindow(c *gin.Context) (time.Time, bool) {
	date := c.Param("date")
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}

	start, _ := synthesizer.WindowBounds(day, h.windowHours)
	return start, true
}
