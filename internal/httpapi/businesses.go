package httpapi

import (
	"net/http"

	"call-assistant/internal/businesses"

	"github.com/gin-gonic/gin"
)

func (h Handlers) CreateBusiness(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req businesses.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Businesses.Create(c.Request.Context(), who, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h Handlers) ListBusinesses(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Businesses.List(c.Request.Context(), who)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []businesses.Business{}
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) GetBusiness(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	b, err := h.Businesses.Get(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h Handlers) UpdateBusiness(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req businesses.UpdateInput
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Businesses.Update(c.Request.Context(), who, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DeactivateBusiness is a soft delete; history stays queryable.
func (h Handlers) DeactivateBusiness(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	b, err := h.Businesses.Deactivate(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
