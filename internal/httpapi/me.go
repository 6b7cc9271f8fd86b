package httpapi

import (
	"net/http"

	"call-assistant/internal/apiconfig"
	"call-assistant/internal/audit"
	"call-assistant/internal/businesses"
	"call-assistant/internal/calls"
	"call-assistant/internal/numbers"
	"call-assistant/internal/reporting"
	"call-assistant/internal/settings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCallsPage = 50
	maxCallsPage     = 200
)

/* ===================== BUSINESS ===================== */

func (h Handlers) MyBusiness(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b)
}

// CreateMyBusiness is POST /businesses scoped to the caller.
func (h Handlers) CreateMyBusiness(c *gin.Context) {
	h.CreateBusiness(c)
}

func (h Handlers) UpdateMyBusiness(c *gin.Context) {
	who, b, ok := h.business(c)
	if !ok {
		return
	}
	var req businesses.UpdateInput
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.Businesses.Update(c.Request.Context(), who, b.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

/* ===================== AI CONFIG ===================== */

func (h Handlers) GetAPIConfig(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	cfg, err := h.APIConfigs.Get(c.Request.Context(), b.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg.Masked())
}

func (h Handlers) CreateAPIConfig(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	var req apiconfig.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.APIConfigs.Create(c.Request.Context(), b.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg.Masked())
}

func (h Handlers) UpdateAPIConfig(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	var req apiconfig.UpdateInput
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.APIConfigs.Update(c.Request.Context(), b.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg.Masked())
}

/* ===================== PHONE NUMBERS ===================== */

func (h Handlers) ListNumbers(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	list, err := h.Numbers.List(c.Request.Context(), b.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []numbers.PhoneNumber{}
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) SearchNumbers(c *gin.Context) {
	if _, _, ok := h.business(c); !ok {
		return
	}
	var req numbers.SearchInput
	if err := c.ShouldBindQuery(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	found, err := h.Numbers.Search(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h Handlers) PurchaseNumber(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	var req numbers.PurchaseInput
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.Numbers.Purchase(c.Request.Context(), b.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h Handlers) ReleaseNumber(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	if _, err := h.Numbers.Release(c.Request.Context(), b.ID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Phone number released successfully"})
}

/* ===================== CALLS ===================== */

func (h Handlers) Dashboard(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	r, err := reporting.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	out, err := h.Reporting.Dashboard(c.Request.Context(), b, r)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListCalls(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	r, err := reporting.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := queryInt(c, "limit", defaultCallsPage, maxCallsPage)
	if err != nil {
		fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0, 0)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := h.Calls.List(c.Request.Context(), b.ID, calls.ListFilter{From: r.From, To: r.To, Limit: limit, Offset: offset})
	if err != nil {
		fail(c, err)
		return
	}
	if list == nil {
		list = []calls.Call{}
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) CallEvents(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	events, err := h.Calls.Events(c.Request.Context(), b.ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	c.JSON(http.StatusOK, events)
}

/* ===================== SETTINGS ===================== */

// GetSettings creates the defaults on first read.
func (h Handlers) GetSettings(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	st, err := h.Settings.Get(c.Request.Context(), b.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Masked())
}

func (h Handlers) CreateSettings(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	var req settings.Input
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.Settings.Create(c.Request.Context(), b.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st.Masked())
}

func (h Handlers) UpdateSettings(c *gin.Context) {
	_, b, ok := h.business(c)
	if !ok {
		return
	}
	var req settings.Input
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.Settings.Update(c.Request.Context(), b.ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Masked())
}
