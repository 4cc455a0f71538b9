package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/oxhollow/ferrite/internal/depend"
	"github.com/oxhollow/ferrite/internal/store"
	"github.com/labstack/echo/v4"
)

func SetupProviderRoutes(g *echo.Group, registry *depend.Registry) {
	h := NewProviderHandler(registry)
	providersGroup := g.Group("/api/providers", IsAuthenticated)
	providersGroup.POST("", h.PostProvider, RoleMiddleware(store.Admin))
	providersGroup.GET("/:key", h.GetProvider)
	providersGroup.DELETE("/:key", h.DeleteProvider, RoleMiddleware(store.Admin))
	providersGroup.GET("/:key/check", h.GetCheckDependency)
	providersGroup.GET("/:key/dependents", h.GetDependents)
	providersGroup.POST("/:key/dependents", h.PostDependent, RoleMiddleware(store.Admin))
	providersGroup.DELETE(
		"/:key/dependents/:dependent_key", h.DeleteDependent, RoleMiddleware(store.Admin),
	)
}

type ProviderHandler struct {
	registry *depend.Registry
}

func NewProviderHandler(registry *depend.Registry) *ProviderHandler {
	return &ProviderHandler{registry}
}

func (h *ProviderHandler) PostProvider(c echo.Context) error {
	pp := new(ProviderParams)
	if err := c.Bind(pp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid provider data")
	}

	version, err := depend.ParseVersion(pp.Version)
	if err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid provider version")
	}

	provider := depend.Provider{
		Key:         pp.Key,
		DisplayName: pp.DisplayName,
		Version:     version,
	}
	if err := h.registry.Register(c.Request().Context(), provider); err != nil {
		if isUniqueConstraintError(err) {
			return newError(c, err,
				http.StatusConflict,
				fmt.Sprintf("A provider with the key %s already exists", pp.Key),
			)
		}
		return newError(c, err, http.StatusInternalServerError, "unable to register provider")
	}

	return c.JSON(http.StatusCreated, provider)
}

func (h *ProviderHandler) GetProvider(c echo.Context) error {
	pp := new(ProviderParams)
	if err := c.Bind(pp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid provider data")
	}

	p, err := h.registry.GetProvider(c.Request().Context(), pp.Key)
	if err != nil {
		if errors.Is(err, depend.ErrNotFound) {
			return newError(c, err, http.StatusNotFound, "provider not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to read provider")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"key":          p.Key,
		"display_name": p.DisplayName,
		"version":      p.Version.String(),
	})
}

func (h *ProviderHandler) DeleteProvider(c echo.Context) error {
	pp := new(ProviderParams)
	if err := c.Bind(pp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid provider data")
	}

	dependents, err := h.registry.CheckDependents(c.Request().Context(), pp.Key, nil)
	if err != nil {
		return newError(c, err, http.StatusInternalServerError, "unable to check dependents")
	}
	if len(dependents) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"message":    "provider still has registered dependents",
			"dependents": dependents,
		})
	}

	if err := h.registry.Unregister(c.Request().Context(), pp.Key); err != nil {
		if errors.Is(err, depend.ErrNotFound) {
			return newError(c, err, http.StatusNotFound, "provider not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to unregister provider")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ProviderHandler) GetCheckDependency(c echo.Context) error {
	cp := new(CheckDependencyParams)
	if err := c.Bind(cp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid dependency data")
	}

	var minVersion, maxVersion *depend.Version
	if cp.MinVersion != nil {
		v, err := depend.ParseVersion(*cp.MinVersion)
		if err != nil {
			return newError(c, err, http.StatusBadRequest, "invalid minimum version")
		}
		minVersion = &v
	}
	if cp.MaxVersion != nil {
		v, err := depend.ParseVersion(*cp.MaxVersion)
		if err != nil {
			return newError(c, err, http.StatusBadRequest, "invalid maximum version")
		}
		maxVersion = &v
	}

	missing := []depend.Dependency{}
	err := h.registry.CheckDependency(
		c.Request().Context(),
		cp.Key,
		minVersion, maxVersion,
		depend.Attributes(cp.Attributes),
		&missing,
	)
	if err != nil && !errors.Is(err, depend.ErrNotFound) {
		return newError(c, err, http.StatusInternalServerError, "unable to check dependency")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"satisfied": err == nil,
		"missing":   missing,
	})
}

func (h *ProviderHandler) GetDependents(c echo.Context) error {
	pp := new(ProviderParams)
	if err := c.Bind(pp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid provider data")
	}

	dependents, err := h.registry.CheckDependents(c.Request().Context(), pp.Key, nil)
	if err != nil {
		return newError(c, err, http.StatusInternalServerError, "unable to list dependents")
	}

	return c.JSON(http.StatusOK, dependents)
}

func (h *ProviderHandler) PostDependent(c echo.Context) error {
	dp := new(DependentParams)
	if err := c.Bind(dp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid dependent data")
	}

	if err := h.registry.RegisterDependent(
		c.Request().Context(), dp.ProviderKey, dp.DependentKey, dp.Name,
	); err != nil {
		if errors.Is(err, depend.ErrNotFound) {
			return newError(c, err, http.StatusNotFound, "provider not found")
		}
		if isUniqueConstraintError(err) {
			return newError(c, err, http.StatusConflict, "dependent is already registered")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to register dependent")
	}

	return c.NoContent(http.StatusCreated)
}

func (h *ProviderHandler) DeleteDependent(c echo.Context) error {
	dp := new(DependentParams)
	if err := c.Bind(dp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid dependent data")
	}

	if err := h.registry.UnregisterDependent(
		c.Request().Context(), dp.ProviderKey, dp.DependentKey,
	); err != nil {
		if errors.Is(err, depend.ErrNotFound) {
			return newError(c, err, http.StatusNotFound, "dependent not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to unregister dependent")
	}

	return c.NoContent(http.StatusNoContent)
}
