package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oxhollow/ferrite/internal/service"
	"github.com/oxhollow/ferrite/internal/store"
	"github.com/labstack/echo/v4"
)

func SetupAgentRoutes(g *echo.Group, agentService service.AgentServicer) {
	h := NewAgentHandler(agentService)
	agentsGroup := g.Group("/api/agents", IsAuthenticated)
	agentsGroup.GET("", h.GetAgents)
	agentsGroup.POST("", h.PostAgent, RoleMiddleware(store.Admin))
	agentsGroup.GET("/:agent_id", h.GetAgent)
	agentsGroup.PATCH("/:agent_id", h.PatchAgent, RoleMiddleware(store.Admin))
	agentsGroup.DELETE("/:agent_id", h.DeleteAgent, RoleMiddleware(store.Admin))
	agentsGroup.POST("/:agent_id/test-connection", h.PostTestAgentConnection)
}

type AgentHandler struct {
	agentService service.AgentServicer
}

func NewAgentHandler(
	agentService service.AgentServicer,
) *AgentHandler {
	return &AgentHandler{agentService}
}

func (h *AgentHandler) GetAgents(c echo.Context) error {
	agents, err := h.agentService.ListAgents(c.Request().Context())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newError(c, err,
			http.StatusInternalServerError,
			"something went wrong listing agents",
		)
	}

	return c.JSON(http.StatusOK, agents)
}

func (h *AgentHandler) PostAgent(c echo.Context) error {
	ap := new(AgentParams)
	if err := c.Bind(ap); err != nil {
		return newError(c, err,
			http.StatusBadRequest, "invalid agent data",
		)
	}

	ap.Name = strings.TrimSpace(ap.Name)
	ap.Hostname = strings.TrimSpace(ap.Hostname)
	ap.Workspace = strings.TrimSpace(ap.Workspace)
	ap.Description = strings.TrimSpace(ap.Description)

	a, err := h.agentService.CreateAgent(
		c.Request().Context(),
		ap.AgentCredentialID,
		ap.Name,
		ap.Hostname,
		ap.Workspace,
		ap.Description,
		ap.OSType,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return newError(
				c,
				err,
				http.StatusConflict,
				fmt.Sprintf("An agent with the name %s already exists", ap.Name),
			)
		}
		return newError(c, err, http.StatusInternalServerError, "unable to create agent")
	}

	return c.JSON(http.StatusCreated, a)
}

func (h *AgentHandler) GetAgent(c echo.Context) error {
	ap := new(AgentParams)
	if err := c.Bind(ap); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid agent data")
	}

	a, err := h.agentService.GetAgentByID(c.Request().Context(), ap.AgentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "agent not found")
		}
		return newError(c, err,
			http.StatusInternalServerError,
			"something went wrong getting agent data",
		)
	}

	return c.JSON(http.StatusOK, a)
}

func (h *AgentHandler) PatchAgent(c echo.Context) error {
	ap := new(AgentParams)
	if err := c.Bind(ap); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid agent data")
	}

	ap.Name = strings.TrimSpace(ap.Name)
	ap.Hostname = strings.TrimSpace(ap.Hostname)
	ap.Workspace = strings.TrimSpace(ap.Workspace)
	ap.Description = strings.TrimSpace(ap.Description)

	if err := h.agentService.UpdateAgent(
		c.Request().Context(),
		ap.AgentID,
		ap.AgentCredentialID,
		ap.Name,
		ap.Hostname,
		ap.Workspace,
		ap.Description,
		ap.OSType,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "agent not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to update agent")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AgentHandler) DeleteAgent(c echo.Context) error {
	ap := new(AgentParams)
	if err := c.Bind(ap); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid agent data")
	}

	if err := h.agentService.DeleteAgent(
		c.Request().Context(), ap.AgentID,
	); err != nil {
		if isForeignKeyConstraintError(err) {
			return newError(c, err,
				http.StatusConflict,
				"agent is still in use by a workflow",
			)
		}
		return newError(c, err, http.StatusInternalServerError, "unable to delete agent")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AgentHandler) PostTestAgentConnection(c echo.Context) error {
	ap := new(AgentParams)
	if err := c.Bind(ap); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid agent data")
	}

	if err := h.agentService.TestAgentConnection(
		c.Request().Context(), ap.AgentID,
	); err != nil {
		return newError(c, err, http.StatusBadGateway, "unable to connect to agent")
	}

	return c.NoContent(http.StatusNoContent)
}
