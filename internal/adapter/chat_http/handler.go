package chat_http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"chat-orchestrator/internal/domain"
	"chat-orchestrator/internal/usecase"
)

// Identity headers set by the auth proxy in front of the service.
const (
	headerUserID     = "X-User-Id"
	headerUserName   = "X-User-Name"
	headerUserGroups = "X-User-Groups"
)

// ProfileDirectory is the read side of the profile store the API exposes.
type ProfileDirectory interface {
	ListVisible(ctx context.Context, user domain.UserContext) []domain.ProfileDefinition
	Reload()
}

// BlobArchiver stores the original bytes of an uploaded document.
type BlobArchiver interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Pinger reports backing-store liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	orchestrator *usecase.Orchestrator
	profiles     ProfileDirectory
	history      domain.HistoryRecorder
	indexer      *usecase.IndexUserDocumentUsecase
	docs         domain.UserDocumentRepository
	blobs        BlobArchiver
	db           Pinger
	logger       *slog.Logger
}

func NewHandler(
	orchestrator *usecase.Orchestrator,
	profiles ProfileDirectory,
	history domain.HistoryRecorder,
	indexer *usecase.IndexUserDocumentUsecase,
	docs domain.UserDocumentRepository,
	blobs BlobArchiver,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		profiles:     profiles,
		history:      history,
		indexer:      indexer,
		docs:         docs,
		blobs:        blobs,
		db:           db,
		logger:       logger,
	}
}

// Register wires all routes onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)

	api := e.Group("/api")
	api.POST("/chat/streaming", h.ChatStreaming)
	api.POST("/chat", h.Chat)
	api.GET("/profiles", h.ListProfiles)
	api.POST("/profiles/reload", h.ReloadProfiles)
	api.GET("/chat/history", h.HistoryRecent)
	api.GET("/chat/history-v2", h.HistoryPage)
	api.GET("/chat/history/:chatID", h.HistoryByChat)
	api.POST("/chat/rating", h.RateTurn)
	api.POST("/documents", h.UploadDocument)
	api.GET("/documents", h.ListDocuments)
}

func (h *Handler) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Ready(ctx echo.Context) error {
	if h.db != nil {
		if err := h.db.Ping(ctx.Request().Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// ChatStreaming runs one turn and streams chunks as NDJSON. Profile and
// configuration errors are returned as statuses before the stream starts;
// anything later arrives in-band on the terminal chunk.
func (h *Handler) ChatStreaming(ctx echo.Context) error {
	var req domain.ChatRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	user := userFromHeaders(ctx)
	reqCtx := ctx.Request().Context()

	stream, err := h.orchestrator.Stream(reqCtx, user, req)
	if err != nil {
		return h.chatError(ctx, err)
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(resp)
	for chunk := range stream {
		if err := enc.Encode(chunk); err != nil {
			h.logger.Warn("stream write failed",
				slog.String("chat_id", req.ChatID),
				slog.Any("error", err))
			return nil
		}
		resp.Flush()
	}
	return nil
}

// Chat runs one turn to completion and returns only the final result.
func (h *Handler) Chat(ctx echo.Context) error {
	var req domain.ChatRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	result, err := h.orchestrator.ReplySync(ctx.Request().Context(), userFromHeaders(ctx), req)
	if err != nil {
		return h.chatError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

type profileView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Approach        string   `json:"approach"`
	SampleQuestions []string `json:"sample_questions,omitempty"`
	AllowFileUpload bool     `json:"allow_file_upload"`
}

func (h *Handler) ListProfiles(ctx echo.Context) error {
	visible := h.profiles.ListVisible(ctx.Request().Context(), userFromHeaders(ctx))

	views := make([]profileView, 0, len(visible))
	for _, p := range visible {
		views = append(views, profileView{
			ID:              p.ID,
			Name:            p.Name,
			Description:     p.Description,
			Approach:        string(p.Approach),
			SampleQuestions: p.SampleQuestions,
			AllowFileUpload: p.AllowFileUpload,
		})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"profiles": views})
}

func (h *Handler) ReloadProfiles(ctx echo.Context) error {
	h.profiles.Reload()
	return ctx.JSON(http.StatusAccepted, map[string]string{"status": "reload scheduled"})
}

func (h *Handler) HistoryRecent(ctx echo.Context) error {
	user := userFromHeaders(ctx)
	limit := queryInt(ctx, "limit", 20)

	entries, err := h.history.ListRecent(ctx.Request().Context(), user.ID, limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"entries": entryViews(entries)})
}

func (h *Handler) HistoryPage(ctx echo.Context) error {
	user := userFromHeaders(ctx)
	offset := queryInt(ctx, "offset", 0)
	limit := queryInt(ctx, "limit", 20)

	page, err := h.history.ListPage(ctx.Request().Context(), user.ID, offset, limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"entries": entryViews(page.Entries),
		"total":   page.Total,
		"offset":  page.Offset,
		"limit":   page.Limit,
	})
}

func (h *Handler) HistoryByChat(ctx echo.Context) error {
	user := userFromHeaders(ctx)
	chatID := ctx.Param("chatID")

	entries, err := h.history.ListByChat(ctx.Request().Context(), user.ID, chatID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"entries": entryViews(entries)})
}

type rateRequest struct {
	MessageID string `json:"message_id"`
	Rating    int    `json:"rating"`
	Feedback  string `json:"feedback,omitempty"`
}

func (h *Handler) RateTurn(ctx echo.Context) error {
	var req rateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.MessageID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing message_id"})
	}

	user := userFromHeaders(ctx)
	if err := h.history.Rate(ctx.Request().Context(), user.ID, req.MessageID, req.Rating, req.Feedback); err != nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "rated"})
}

type uploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	IndexName   string `json:"index_name,omitempty"`
	DataBase64  string `json:"data_base64"`
}

// UploadDocument archives the original bytes and queues the document for
// background indexing. The response carries the job id; indexing is async.
func (h *Handler) UploadDocument(ctx echo.Context) error {
	var req uploadRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.FileName == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing file_name"})
	}
	body, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil || len(body) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing or invalid data_base64"})
	}

	user := userFromHeaders(ctx)
	reqCtx := ctx.Request().Context()

	if h.blobs != nil {
		blobName := user.ID + "/" + req.FileName
		if _, err := h.blobs.Put(reqCtx, blobName, req.ContentType, body); err != nil {
			h.logger.Warn("blob archive failed",
				slog.String("file_name", req.FileName),
				slog.Any("error", err))
		}
	}

	jobID, err := h.indexer.Enqueue(reqCtx, usecase.IndexDocumentInput{
		OwnerID:     user.ID,
		IndexName:   req.IndexName,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Body:        string(body),
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{"job_id": jobID.String(), "status": "queued"})
}

type documentView struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	Indexed     bool      `json:"indexed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) ListDocuments(ctx echo.Context) error {
	user := userFromHeaders(ctx)

	docs, err := h.docs.ListByOwner(ctx.Request().Context(), user.ID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	views := make([]documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, documentView{
			ID:          d.ID.String(),
			FileName:    d.FileName,
			ContentType: d.ContentType,
			Indexed:     d.CurrentVersionID != nil,
			UpdatedAt:   d.UpdatedAt,
		})
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{"documents": views})
}

func (h *Handler) chatError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "profile not found"})
	case errors.Is(err, domain.ErrProfileAccessDenied):
		return ctx.JSON(http.StatusForbidden, map[string]string{"error": "access denied"})
	case errors.Is(err, domain.ErrApproachNotConfigured):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func userFromHeaders(ctx echo.Context) domain.UserContext {
	req := ctx.Request()
	user := domain.UserContext{
		ID:   req.Header.Get(headerUserID),
		Name: req.Header.Get(headerUserName),
	}
	if user.ID == "" {
		user.ID = "anonymous"
	}
	if raw := req.Header.Get(headerUserGroups); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				user.Groups = append(user.Groups, g)
			}
		}
	}
	return user
}

func queryInt(ctx echo.Context, name string, fallback int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

type historyEntryView struct {
	ID        string                           `json:"id"`
	ChatID    string                           `json:"chat_id"`
	MessageID string                           `json:"message_id"`
	Profile   string                           `json:"profile"`
	Prompt    string                           `json:"prompt"`
	Answer    string                           `json:"answer"`
	Citations []domain.SupportingContentRecord `json:"citations,omitempty"`
	Rating    *int                             `json:"rating,omitempty"`
	CreatedAt time.Time                        `json:"created_at"`
}

func entryViews(entries []domain.ChatHistoryEntry) []historyEntryView {
	views := make([]historyEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, historyEntryView{
			ID:        e.ID.String(),
			ChatID:    e.ChatID,
			MessageID: e.MessageID,
			Profile:   e.Profile,
			Prompt:    e.Prompt,
			Answer:    e.Answer,
			Citations: e.Citations,
			Rating:    e.Rating,
			CreatedAt: e.CreatedAt,
		})
	}
	return views
}
