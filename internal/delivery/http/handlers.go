package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/service"
	"github.com/rs/zerolog"
)

type Handlers struct {
	service *service.NotificationService
	logger  zerolog.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *service.NotificationService, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger.With().Str("layer", "http_handler").Logger(),
	}
}

// RegisterRoutes sets up the ingestion routing surface, per spec.md §6.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.POST("/notification/send", h.Send)
	router.GET("/notification/:id", h.GetByID)
}

// Send handles POST /notification/send.
func (h *Handlers) Send(c *gin.Context) {
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, gwerrors.InvalidDataField("request body is not valid JSON"))
		return
	}

	notification, err := h.service.Send(c.Request.Context(), service.SendRequest{
		UserID:        req.UserID,
		Recipient:     req.Recipient,
		RecipientType: req.RecipientType,
		Sender:        req.Sender,
		Channel:       model.Channel(req.Channel),
		TemplateID:    req.TemplateID,
		Payload:       req.Payload,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateNotificationResponse{
		ID:     notification.ID,
		Status: "queued",
	})
}

// GetByID handles GET /notification/:id.
func (h *Handlers) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, gwerrors.InvalidDataField("id must be a valid UUID"))
		return
	}

	notification, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Messages: []string{"notification not found"}})
			return
		}
		h.respondError(c, err)
		return
	}

	var templateID *string
	if notification.TemplateID != nil {
		s := notification.TemplateID.String()
		templateID = &s
	}

	c.JSON(http.StatusOK, NotificationView{
		ID:         notification.ID,
		UserID:     notification.UserID,
		Recipient:  notification.Recipient,
		Channel:    string(notification.Channel),
		TemplateID: templateID,
		Status:     string(notification.Status),
		CreatedAt:  notification.CreatedAt,
		UpdatedAt:  notification.UpdatedAt,
	})
}

// respondError maps every ingestion error onto spec.md §4.1's flat 500
// {messages: […]} envelope. The core's error surface for send() is
// deliberately undifferentiated by HTTP status (InvalidDataField,
// DatabaseError, MissingEnvError, RedisQueuePushError all map to 500); the
// message text is what distinguishes them for operators reading logs.
func (h *Handlers) respondError(c *gin.Context, err error) {
	h.logger.Error().Err(err).Msg("request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Messages: []string{err.Error()}})
}
