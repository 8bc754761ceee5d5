package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/internal/cache"
	"github.com/JustJay7/highcourt-fetcher/internal/config"
	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/internal/scraper"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sessions hands out the caller's browser session for a workflow
type Sessions interface {
	Acquire(ctx context.Context, sessionID string, kind scraper.Kind) (*scraper.Session, func(), error)
}

// Handlers holds all HTTP handlers
type Handlers struct {
	db         *gorm.DB
	reconciler *database.Reconciler
	queries    *database.QueryLogStore
	cache      cache.Cache
	sessions   Sessions
	logger     *logger.Logger
	cfg        *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, cache cache.Cache, sessions Sessions, logger *logger.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		db:         db,
		reconciler: database.NewReconciler(db),
		queries:    database.NewQueryLogStore(db),
		cache:      cache,
		sessions:   sessions,
		logger:     logger,
		cfg:        cfg,
	}
}

type fetchCaseRequest struct {
	CaseType     string `json:"caseType" binding:"required"`
	CaseNumber   string `json:"caseNumber" binding:"required"`
	Year         string `json:"year" binding:"required"`
	CaptchaText  string `json:"captchaText" binding:"required"`
	CaseTypeText string `json:"caseTypeText" binding:"required"`
}

type fetchCauseListRequest struct {
	HighCourt        string `json:"highCourt"`
	CauseBench       string `json:"causeBench"`
	CauseDate        string `json:"causeDate" binding:"required"`
	CauseCaptchaText string `json:"causeCaptchaText" binding:"required"`
}

// acquire locks the caller's session for kind, writing the error response
// when that fails
func (h *Handlers) acquire(c *gin.Context, kind scraper.Kind) (*scraper.Session, func(), bool) {
	s, release, err := h.sessions.Acquire(c.Request.Context(), sessionID(c), kind)
	if err != nil {
		h.respondError(c, err)
		return nil, nil, false
	}
	return s, release, true
}

// CaseCourts lists the high courts
func (h *Handlers) CaseCourts(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCase)
	if !ok {
		return
	}
	defer release()

	courts, err := s.Case.Courts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courts)
}

// CaseBenches lists the benches of a court
func (h *Handlers) CaseBenches(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCase)
	if !ok {
		return
	}
	defer release()

	benches, err := s.Case.Benches(c.Request.Context(), c.Param("courtId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, benches)
}

// CaseTypes lists the case types of a bench
func (h *Handlers) CaseTypes(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCase)
	if !ok {
		return
	}
	defer release()

	types, err := s.Case.CaseTypes(c.Request.Context(), c.Param("benchId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// CaseCaptcha returns a fresh CAPTCHA for the case-status form
func (h *Handlers) CaseCaptcha(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCase)
	if !ok {
		return
	}
	defer release()

	png, err := s.Case.Captcha(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_base64": scraper.EncodeImage(png)})
}

// FetchCase submits a case search and stores the result
func (h *Handlers) FetchCase(c *gin.Context) {
	var req fetchCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	entry := &database.QueryLog{
		QueryType:  database.QueryTypeCaseStatus,
		CaseType:   req.CaseTypeText,
		CaseNumber: req.CaseNumber,
		FilingYear: req.Year,
		QueryTime:  time.Now(),
		IPAddress:  c.ClientIP(),
	}

	ctx := c.Request.Context()
	s, release, err := h.sessions.Acquire(ctx, sessionID(c), scraper.KindCase)
	if err != nil {
		h.auditFailure(ctx, entry, err)
		h.respondError(c, err)
		return
	}
	defer release()

	res, err := s.Case.FetchCase(ctx, scraper.CaseQuery{
		CaseTypeID:   req.CaseType,
		CaseTypeText: req.CaseTypeText,
		CaseNumber:   req.CaseNumber,
		Year:         req.Year,
		Captcha:      req.CaptchaText,
	})
	if err != nil {
		h.auditFailure(ctx, entry, err)
		h.respondError(c, err)
		return
	}

	entry.Outcome = res.Outcome.String()
	if res.Outcome != scraper.OutcomeSuccess {
		entry.ErrorMessage = res.Outcome.Message()
		h.audit(ctx, entry)
		c.JSON(http.StatusOK, gin.H{"result": res.Outcome.Message(), "success": false})
		return
	}

	stored, err := h.reconciler.ReconcileCase(ctx, res.Record)
	if err != nil {
		h.auditFailure(ctx, entry, err)
		h.respondError(c, err)
		return
	}
	if err := h.cache.Set(stored.CNRNumber, stored); err != nil {
		h.logger.Warn("Failed to cache case", "cnr", stored.CNRNumber, "error", err)
	}

	entry.Success = true
	h.audit(ctx, entry)

	h.logger.Info("Case stored", "cnr", stored.CNRNumber, "case", res.FullCaseNumber)
	c.JSON(http.StatusOK, res.Record)
}

// CauseCourts lists the high courts for cause lists
func (h *Handlers) CauseCourts(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCauseList)
	if !ok {
		return
	}
	defer release()

	courts, err := s.CauseList.Courts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, courts)
}

// CauseBenches lists the benches of a court for cause lists
func (h *Handlers) CauseBenches(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCauseList)
	if !ok {
		return
	}
	defer release()

	benches, err := s.CauseList.Benches(c.Request.Context(), c.Param("courtId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, benches)
}

// CauseSelectBench picks the bench whose cause lists will be fetched
func (h *Handlers) CauseSelectBench(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCauseList)
	if !ok {
		return
	}
	defer release()

	if err := s.CauseList.SelectBench(c.Request.Context(), c.Param("benchId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": true})
}

// CauseCaptcha returns a fresh CAPTCHA for the cause-list form
func (h *Handlers) CauseCaptcha(c *gin.Context) {
	s, release, ok := h.acquire(c, scraper.KindCauseList)
	if !ok {
		return
	}
	defer release()

	png, err := s.CauseList.Captcha(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_base64": scraper.EncodeImage(png)})
}

// FetchCauseList submits a cause-list search and stores the rows
func (h *Handlers) FetchCauseList(c *gin.Context) {
	var req fetchCauseListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.CauseDate))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "causeDate must be YYYY-MM-DD",
		})
		return
	}

	entry := &database.QueryLog{
		QueryType: database.QueryTypeCauseList,
		CourtID:   req.HighCourt,
		BenchID:   req.CauseBench,
		CauseDate: date.Format("2006-01-02"),
		QueryTime: time.Now(),
		IPAddress: c.ClientIP(),
	}

	ctx := c.Request.Context()
	s, release, err := h.sessions.Acquire(ctx, sessionID(c), scraper.KindCauseList)
	if err != nil {
		h.auditFailure(ctx, entry, err)
		h.respondError(c, err)
		return
	}
	defer release()

	res, err := s.CauseList.FetchCauseList(ctx, scraper.CauseListQuery{
		CourtID: req.HighCourt,
		BenchID: req.CauseBench,
		Date:    date,
		Captcha: req.CauseCaptchaText,
	})
	if err != nil {
		h.auditFailure(ctx, entry, err)
		h.respondError(c, err)
		return
	}

	entry.Outcome = res.Outcome.String()
	if res.Outcome != scraper.OutcomeSuccess {
		entry.ErrorMessage = res.Outcome.Message()
		h.audit(ctx, entry)
		c.JSON(http.StatusOK, gin.H{"result": res.Outcome.Message(), "success": false})
		return
	}

	n, err := h.reconciler.UpsertCauseList(ctx, res.List)
	if err != nil {
		h.auditFailure(ctx, entry, err)
		h.respondError(c, err)
		return
	}

	entry.Success = true
	h.audit(ctx, entry)

	h.logger.Info("Cause list stored", "date", entry.CauseDate, "bench", res.List.BenchID, "rows", n)
	c.JSON(http.StatusOK, res.List.Rows)
}

func (h *Handlers) audit(ctx context.Context, entry *database.QueryLog) {
	// the caller may have gone away; the audit row is still written
	if err := h.queries.Record(context.WithoutCancel(ctx), entry); err != nil {
		h.logger.Warn("Failed to record query", "type", entry.QueryType, "error", err)
	}
}

func (h *Handlers) auditFailure(ctx context.Context, entry *database.QueryLog, err error) {
	entry.Outcome = "Error"
	entry.ErrorMessage = err.Error()
	h.audit(ctx, entry)
}

// respondError maps request-path errors to HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		h.logger.Warn("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func statusFor(err error) int {
	var extractErr *scraper.ExtractionError
	switch {
	case browser.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, scraper.ErrSessionBusy), errors.Is(err, scraper.ErrStepOutOfOrder):
		return http.StatusConflict
	case errors.Is(err, scraper.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.As(err, &extractErr), errors.Is(err, scraper.ErrRowNotFound), errors.Is(err, database.ErrMissingCNR):
		return http.StatusBadGateway
	case errors.Is(err, database.ErrCaseNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
