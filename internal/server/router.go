package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/trickz/backend/internal/media"
	"github.com/MarcoPoloResearchLab/trickz/backend/internal/posts"
	"github.com/MarcoPoloResearchLab/trickz/backend/internal/snapshot"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
)

const defaultTagStatsLimit = 10

var errMissingPostsService = errors.New("posts service dependency required")

// Dependencies wires the HTTP surface to the core services.
type Dependencies struct {
	PostsService *posts.Service
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewHTTPHandler builds the gin router serving the rendering front end.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.PostsService == nil {
		return nil, errMissingPostsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		store:    deps.PostsService,
		logger:   logger,
		clock:    clock,
		collator: posts.NewCollator(),
	}

	api := router.Group("/api")
	api.GET("/posts", handler.handleQueryPosts)
	api.POST("/posts", handler.handleAddPost)
	api.GET("/posts/:id", handler.handleGetPost)
	api.PUT("/posts/:id", handler.handlePutPost)
	api.DELETE("/posts/:id", handler.handleDeletePost)
	api.GET("/tags", handler.handleTagNames)
	api.GET("/tags/stats", handler.handleTagStats)
	api.GET("/settings/:key", handler.handleGetSetting)
	api.PUT("/settings/:key", handler.handleSetSetting)
	api.GET("/export", handler.handleExport)
	api.POST("/import", handler.handleImport)
	api.GET("/media/resolve", handler.handleResolveMedia)

	return router, nil
}

type httpHandler struct {
	store    *posts.Service
	logger   *zap.Logger
	clock    func() time.Time
	collator *collate.Collator
}

func (h *httpHandler) handleQueryPosts(c *gin.Context) {
	filter := posts.NormalizeFilter(posts.Filter{
		Category:     c.Query("category"),
		Type:         c.Query("type"),
		Subtype:      c.Query("subtype"),
		Map:          c.Query("map"),
		MapOther:     c.Query("mapOther"),
		Side:         c.Query("side"),
		FavoriteMode: c.Query("favoriteMode"),
		Tags:         c.Query("tags"),
		Search:       c.Query("search"),
	})

	matched, err := h.store.QueryPosts(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("post query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	posts.SortPosts(matched, c.DefaultQuery("sort", posts.SortModified), h.collator)
	if matched == nil {
		matched = []posts.Post{}
	}
	c.JSON(http.StatusOK, matched)
}

func (h *httpHandler) handleAddPost(c *gin.Context) {
	var post posts.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	deriveVideoID(&post)

	stored, err := h.store.AddPost(c.Request.Context(), post)
	if err != nil {
		h.logger.Error("post add failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add_failed"})
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *httpHandler) handleGetPost(c *gin.Context) {
	post, err := h.store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("post lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *httpHandler) handlePutPost(c *gin.Context) {
	var post posts.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	post.ID = c.Param("id")
	deriveVideoID(&post)

	stored, err := h.store.PutPost(c.Request.Context(), post)
	if err != nil {
		h.logger.Error("post put failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "put_failed"})
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *httpHandler) handleDeletePost(c *gin.Context) {
	if err := h.store.DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("post delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleTagNames(c *gin.Context) {
	names, err := h.store.AllTagNames(c.Request.Context())
	if err != nil {
		h.logger.Error("tag listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tags_failed"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, names)
}

func (h *httpHandler) handleTagStats(c *gin.Context) {
	limit := defaultTagStatsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}

	stats, err := h.store.TagStats(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("tag stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tag_stats_failed"})
		return
	}
	if stats == nil {
		stats = []posts.TagStat{}
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleGetSetting(c *gin.Context) {
	value, found, err := h.store.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.logger.Error("setting lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setting_failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.Data(http.StatusOK, "application/json", value)
}

func (h *httpHandler) handleSetSetting(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.store.SetSetting(c.Request.Context(), c.Param("key"), json.RawMessage(body)); err != nil {
		h.logger.Error("setting save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setting_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleExport(c *gin.Context) {
	now := h.clock()
	envelope, err := snapshot.Export(c.Request.Context(), h.store, now)
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+snapshot.FileName(now)+`"`)
	c.JSON(http.StatusOK, envelope)
}

func (h *httpHandler) handleImport(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	force := isTruthy(c.Query("force"))
	report, err := snapshot.Import(c.Request.Context(), h.store, payload, snapshot.ImportOptions{
		Strategy: c.DefaultQuery("strategy", snapshot.StrategyMerge),
		Confirm:  func(string) bool { return force },
	})
	if err != nil {
		var confirmation *snapshot.ConfirmationError
		switch {
		case errors.As(err, &confirmation):
			c.JSON(http.StatusConflict, gin.H{"error": "confirmation_required", "reason": confirmation.Reason})
		case errors.Is(err, snapshot.ErrMalformedPayload), errors.Is(err, snapshot.ErrUnknownStrategy):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		default:
			h.logger.Error("import failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "import_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

type mediaResolution struct {
	YoutubeID  string `json:"youtubeId"`
	EmbedURL   string `json:"embedUrl"`
	ThumbURL   string `json:"thumbUrl"`
	MedalSrc   string `json:"medalSrc"`
	StartSecs  int    `json:"startSeconds"`
	Recognized bool   `json:"recognized"`
}

// handleResolveMedia lets the front end resolve pasted video references
// without reimplementing URL parsing.
func (h *httpHandler) handleResolveMedia(c *gin.Context) {
	input := c.Query("input")
	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))

	resolution := mediaResolution{
		YoutubeID: media.YoutubeID(input),
		MedalSrc:  media.MedalSrc(input),
		StartSecs: start,
	}
	if resolution.YoutubeID != "" {
		resolution.EmbedURL = media.YoutubeEmbedURL(input, start)
		resolution.ThumbURL = media.YoutubeThumbURL(input)
	}
	resolution.Recognized = resolution.YoutubeID != "" || resolution.MedalSrc != ""
	c.JSON(http.StatusOK, resolution)
}

// deriveVideoID mirrors the editor behavior: whenever a URL (or raw id) is
// supplied, the stored id is recomputed from it.
func deriveVideoID(post *posts.Post) {
	if strings.TrimSpace(post.YoutubeURL) != "" {
		post.YoutubeID = media.YoutubeID(post.YoutubeURL)
	}
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
