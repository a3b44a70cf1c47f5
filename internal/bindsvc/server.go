// Package bindsvc implements the UTM partner binding webhook service. The
// CRM calls it when a deal or lead appears; the service reads the entity's
// UTM term, resolves it as a partner code, and idempotently binds the
// partner to the entity.
package bindsvc

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/partnerdesk/partnerbot/internal/bitrix"
)

// CRM is the slice of the Bitrix client the binding flow needs.
type CRM interface {
	EntityUTMTerm(ctx context.Context, kind bitrix.EntityKind, id int64) (string, error)
	ResolvePartner(ctx context.Context, code string) (*bitrix.PartnerRef, error)
	BindPartner(ctx context.Context, kind bitrix.EntityKind, id int64, ref bitrix.PartnerRef) (bitrix.BindResult, error)
}

// bindResponse is the structured answer for every webhook call. Lookup and
// bind failures are reported here with success=false; HTTP status stays 200
// unless the payload itself was unparseable.
type bindResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	EntityType  string `json:"entity_type,omitempty"`
	EntityID    string `json:"entity_id,omitempty"`
	PartnerType string `json:"partner_type,omitempty"`
	PartnerID   string `json:"partner_id,omitempty"`
}

// Server handles the binding webhook endpoints.
type Server struct {
	crm CRM
	log *slog.Logger
}

// NewServer creates a webhook server over the given CRM client.
func NewServer(crm CRM, log *slog.Logger) *Server {
	return &Server{crm: crm, log: log.With("component", "bindsvc")}
}

// Handler builds the HTTP routing for the service.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/", s.handleHealth)
	engine.POST("/webhook", s.handleWebhook)

	return engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.InfoContext(c.Request.Context(), "Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	req, err := parseBindRequest(c.Request)
	if err != nil {
		s.log.WarnContext(ctx, "Unparseable webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, bindResponse{Success: false, Message: "invalid payload"})
		return
	}

	resp := bindResponse{
		EntityType: string(req.Kind),
		EntityID:   strconv.FormatInt(req.ID, 10),
	}

	utm, err := s.crm.EntityUTMTerm(ctx, req.Kind, req.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "UTM term lookup failed", "entity_type", req.Kind, "entity_id", req.ID, "error", err)
		resp.Message = "crm lookup failed"
		c.JSON(http.StatusOK, resp)
		return
	}
	if utm == "" {
		s.log.InfoContext(ctx, "Entity carries no UTM term", "entity_type", req.Kind, "entity_id", req.ID)
		resp.Message = "no utm_term"
		c.JSON(http.StatusOK, resp)
		return
	}

	ref, err := s.crm.ResolvePartner(ctx, utm)
	if err != nil {
		s.log.ErrorContext(ctx, "Partner resolution failed", "utm_term", utm, "error", err)
		resp.Message = "partner lookup failed"
		c.JSON(http.StatusOK, resp)
		return
	}
	if ref == nil {
		s.log.InfoContext(ctx, "No partner matches UTM term", "utm_term", utm)
		resp.Message = "partner not found"
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.PartnerType = string(ref.Kind)
	resp.PartnerID = strconv.FormatInt(ref.ID, 10)

	result, err := s.crm.BindPartner(ctx, req.Kind, req.ID, *ref)
	if err != nil {
		s.log.ErrorContext(ctx, "Partner bind failed",
			"entity_type", req.Kind, "entity_id", req.ID, "partner_id", ref.ID, "error", err)
		resp.Message = "bind failed"
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Success = true
	if result == bitrix.BindAlreadyBound {
		resp.Message = "partner already bound"
	} else {
		resp.Message = "partner bound"
	}

	s.log.InfoContext(ctx, "Webhook processed",
		"entity_type", req.Kind, "entity_id", req.ID,
		"partner_type", ref.Kind, "partner_id", ref.ID, "result", resp.Message)
	c.JSON(http.StatusOK, resp)
}
