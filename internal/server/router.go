package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/archivara/backend/internal/moderation"
	"github.com/archivara/backend/internal/papers"
	"github.com/archivara/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDContextKey = "archivara_user_id"

var (
	errMissingTokenManager      = errors.New("token manager dependency required")
	errMissingUsersService      = errors.New("users service dependency required")
	errMissingPapersService     = errors.New("papers service dependency required")
	errMissingModerationService = errors.New("moderation service dependency required")
	errInvalidAuthorization     = errors.New("authorization header missing or invalid")
)

// TokenManager validates session tokens for protected routes.
type TokenManager interface {
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP layer to the services behind it.
type Dependencies struct {
	TokenManager      TokenManager
	UsersService      *users.Service
	PapersService     *papers.Service
	ModerationService *moderation.Service
	Logger            *zap.Logger
}

// NewHTTPHandler builds the portal's HTTP surface. Reads are public;
// anything that mutates moderation state requires a bearer token.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.PapersService == nil {
		return nil, errMissingPapersService
	}
	if deps.ModerationService == nil {
		return nil, errMissingModerationService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:     deps.TokenManager,
		users:      deps.UsersService,
		papers:     deps.PapersService,
		moderation: deps.ModerationService,
		logger:     logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/feed", handler.handleFeed)
	router.GET("/papers", handler.handleListPapers)
	router.GET("/papers/:id", handler.handleGetPaper)
	router.GET("/papers/:id/moderation-status", handler.handleModerationStatus)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/papers/submit", handler.handleSubmitPaper)
	protected.POST("/papers/:id/vote", handler.handleVote)
	protected.POST("/papers/:id/flag", handler.handleFlag)
	protected.GET("/papers/:id/my-vote", handler.handleMyVote)
	protected.POST("/papers/:id/reprocess", handler.handleReprocess)
	protected.GET("/cooldown", handler.handleCooldown)

	return router, nil
}

type httpHandler struct {
	tokens     TokenManager
	users      *users.Service
	papers     *papers.Service
	moderation *moderation.Service
	logger     *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type submitRequestPayload struct {
	Title            string         `json:"title"`
	Abstract         string         `json:"abstract"`
	PDFURL           string         `json:"pdf_url"`
	PDFHash          string         `json:"pdf_hash"`
	CodeURL          string         `json:"code_url"`
	DataURL          string         `json:"data_url"`
	Categories       []string       `json:"categories"`
	Tags             []string       `json:"tags"`
	GenerationMethod string         `json:"generation_method"`
	Meta             map[string]any `json:"metadata"`
	DocumentBase64   string         `json:"document_base64"`
}

type rejectionResponsePayload struct {
	Error  string                `json:"error"`
	Issues []string              `json:"issues"`
	Checks papers.BaselineChecks `json:"checks"`
}

func (h *httpHandler) handleSubmitPaper(c *gin.Context) {
	submitter, ok := h.requestUser(c)
	if !ok {
		return
	}

	var request submitRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if strings.TrimSpace(request.Title) == "" || strings.TrimSpace(request.Abstract) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title_and_abstract_required"})
		return
	}

	var document []byte
	if request.DocumentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(request.DocumentBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_document_encoding"})
			return
		}
		document = decoded
	}

	decision, err := h.moderation.CheckCooldown(c.Request.Context(), submitter)
	if err != nil {
		h.logger.Error("cooldown check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cooldown_check_failed"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "submission_cooldown",
			"wait_seconds": int64(decision.Wait.Seconds()),
			"reason":       decision.Reason,
		})
		return
	}

	draft := papers.Draft{
		Title:            request.Title,
		Abstract:         request.Abstract,
		PDFURL:           request.PDFURL,
		PDFHash:          request.PDFHash,
		CodeURL:          request.CodeURL,
		DataURL:          request.DataURL,
		Categories:       request.Categories,
		Tags:             request.Tags,
		GenerationMethod: request.GenerationMethod,
		Meta:             request.Meta,
	}

	paper, err := h.moderation.ProcessNewSubmission(c.Request.Context(), draft, submitter, document)
	if err != nil {
		var rejection *moderation.RejectionError
		if errors.As(err, &rejection) {
			c.JSON(http.StatusUnprocessableEntity, rejectionResponsePayload{
				Error:  "submission_rejected",
				Issues: rejection.Result.Issues,
				Checks: rejection.Result.Checks,
			})
			return
		}
		h.logger.Error("submission processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission_failed"})
		return
	}

	c.JSON(http.StatusCreated, paperPayloadFrom(paper))
}

type voteRequestPayload struct {
	Value int `json:"value"`
}

func (h *httpHandler) handleVote(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	paperID := c.Param("id")

	var request voteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	outcome, err := h.moderation.Vote(c.Request.Context(), paperID, userID, request.Value)
	if err != nil {
		switch {
		case errors.Is(err, papers.ErrInvalidVote):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_vote_value"})
		case errors.Is(err, papers.ErrPaperNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
		default:
			h.logger.Error("vote failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "vote_failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paper_id":        outcome.Paper.ID,
		"upvotes":         outcome.Paper.CommunityUpvotes,
		"downvotes":       outcome.Paper.CommunityDownvotes,
		"net_votes":       outcome.NetVotes,
		"visibility_tier": outcome.Paper.VisibilityTier,
	})
}

type flagRequestPayload struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

func (h *httpHandler) handleFlag(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	paperID := c.Param("id")

	var request flagRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	reason, err := papers.ParseFlagReason(request.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_flag_reason"})
		return
	}

	outcome, err := h.moderation.Flag(c.Request.Context(), paperID, userID, reason, request.Details)
	if err != nil {
		switch {
		case errors.Is(err, papers.ErrPaperNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
		case errors.Is(err, moderation.ErrAlreadyFlagged):
			c.JSON(http.StatusConflict, gin.H{"error": "already_flagged"})
		default:
			h.logger.Error("flag failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "flag_failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paper_id":        outcome.Paper.ID,
		"flag_count":      outcome.Paper.FlagCount,
		"needs_review":    outcome.Paper.NeedsReview,
		"visibility_tier": outcome.Paper.VisibilityTier,
	})
}

func (h *httpHandler) handleMyVote(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	paperID := c.Param("id")

	vote, err := h.papers.GetVote(c.Request.Context(), paperID, userID)
	if err != nil {
		h.logger.Error("vote lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "vote_lookup_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"paper_id": paperID, "value": vote.Value})
}

func (h *httpHandler) handleReprocess(c *gin.Context) {
	caller, ok := h.requestUser(c)
	if !ok {
		return
	}
	if !caller.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin_required"})
		return
	}

	paper, err := h.moderation.Reprocess(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		if errors.Is(err, papers.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		h.logger.Error("reprocess failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reprocess_failed"})
		return
	}

	c.JSON(http.StatusOK, paperPayloadFrom(paper))
}

func (h *httpHandler) handleCooldown(c *gin.Context) {
	caller, ok := h.requestUser(c)
	if !ok {
		return
	}

	decision, err := h.moderation.CheckCooldown(c.Request.Context(), caller)
	if err != nil {
		h.logger.Error("cooldown check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cooldown_check_failed"})
		return
	}

	payload := gin.H{"allowed": decision.Allowed}
	if !decision.Allowed {
		payload["wait_seconds"] = int64(decision.Wait.Seconds())
		payload["reason"] = decision.Reason
	}
	c.JSON(http.StatusOK, payload)
}

func (h *httpHandler) handleGetPaper(c *gin.Context) {
	paper, err := h.papers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, papers.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		h.logger.Error("paper lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "paper_lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, paperPayloadFrom(paper))
}

func (h *httpHandler) handleListPapers(c *gin.Context) {
	page, size := queryPagination(c)
	result, err := h.papers.List(c.Request.Context(), c.Query("submitter_id"), page, size)
	if err != nil {
		h.logger.Error("paper list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "paper_list_failed"})
		return
	}
	c.JSON(http.StatusOK, pagePayloadFrom(result))
}

func (h *httpHandler) handleFeed(c *gin.Context) {
	query := papers.FeedQuery{ExcludeFlagged: c.Query("exclude_flagged") == "true"}
	query.Page, query.Size = queryPagination(c)

	if rawTier := c.Query("tier"); rawTier != "" {
		tier, err := papers.ParseTier(rawTier)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tier"})
			return
		}
		query.Tier = tier
	}
	if rawScore := c.Query("min_score"); rawScore != "" {
		minScore, err := strconv.Atoi(rawScore)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_min_score"})
			return
		}
		query.MinScore = &minScore
	}

	result, err := h.papers.Feed(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, papers.ErrInvalidTier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tier"})
			return
		}
		h.logger.Error("feed query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed_failed"})
		return
	}
	c.JSON(http.StatusOK, pagePayloadFrom(result))
}

func (h *httpHandler) handleModerationStatus(c *gin.Context) {
	paper, err := h.papers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, papers.ErrPaperNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper_not_found"})
			return
		}
		h.logger.Error("paper lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "paper_lookup_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paper_id":        paper.ID,
		"baseline_status": paper.BaselineStatus,
		"baseline_checks": paper.BaselineChecks,
		"quality_score":   paper.QualityScore,
		"red_flags":       paper.RedFlags,
		"needs_review":    paper.NeedsReview,
		"visibility_tier": paper.VisibilityTier,
		"flag_count":      paper.FlagCount,
		"upvotes":         paper.CommunityUpvotes,
		"downvotes":       paper.CommunityDownvotes,
	})
}

// requestUser resolves the authenticated account; a valid token for a
// deleted account is unauthorized.
func (h *httpHandler) requestUser(c *gin.Context) (users.User, bool) {
	userID := c.GetString(userIDContextKey)
	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown_account"})
			return users.User{}, false
		}
		h.logger.Error("user lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user_lookup_failed"})
		return users.User{}, false
	}
	return user, true
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

type paperPayload struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Abstract         string                `json:"abstract"`
	PDFURL           string                `json:"pdf_url,omitempty"`
	CodeURL          string                `json:"code_url,omitempty"`
	DataURL          string                `json:"data_url,omitempty"`
	Categories       []string              `json:"categories,omitempty"`
	Tags             []string              `json:"tags,omitempty"`
	GenerationMethod string                `json:"generation_method,omitempty"`
	Meta             map[string]any        `json:"metadata,omitempty"`
	SubmitterID      string                `json:"submitter_id"`
	BaselineStatus   papers.BaselineStatus `json:"baseline_status"`
	QualityScore     int                   `json:"quality_score"`
	RedFlags         []string              `json:"red_flags,omitempty"`
	NeedsReview      bool                  `json:"needs_review"`
	Upvotes          int                   `json:"upvotes"`
	Downvotes        int                   `json:"downvotes"`
	FlagCount        int                   `json:"flag_count"`
	VisibilityTier   papers.VisibilityTier `json:"visibility_tier"`
	CreatedAt        time.Time             `json:"created_at"`
}

func paperPayloadFrom(paper papers.Paper) paperPayload {
	return paperPayload{
		ID:               paper.ID,
		Title:            paper.Title,
		Abstract:         paper.Abstract,
		PDFURL:           paper.PDFURL,
		CodeURL:          paper.CodeURL,
		DataURL:          paper.DataURL,
		Categories:       paper.Categories,
		Tags:             paper.Tags,
		GenerationMethod: paper.GenerationMethod,
		Meta:             paper.Meta,
		SubmitterID:      paper.SubmitterID,
		BaselineStatus:   paper.BaselineStatus,
		QualityScore:     paper.QualityScore,
		RedFlags:         paper.RedFlags,
		NeedsReview:      paper.NeedsReview,
		Upvotes:          paper.CommunityUpvotes,
		Downvotes:        paper.CommunityDownvotes,
		FlagCount:        paper.FlagCount,
		VisibilityTier:   paper.VisibilityTier,
		CreatedAt:        paper.CreatedAt,
	}
}

type pagePayload struct {
	Items []paperPayload `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

func pagePayloadFrom(page papers.Page) pagePayload {
	items := make([]paperPayload, 0, len(page.Items))
	for _, paper := range page.Items {
		items = append(items, paperPayloadFrom(paper))
	}
	return pagePayload{Items: items, Total: page.Total, Page: page.Page, Size: page.Size}
}

func queryPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
