package httpapi

import (
	"net/http"

	"call-assistant/internal/invites"

	"github.com/gin-gonic/gin"
)

func (h Handlers) CreateInvite(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req invites.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.Invites.Create(c.Request.Context(), who.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Invitation sent successfully",
		"id":         inv.ID,
		"email":      inv.Email,
		"role":       inv.Role,
		"expires_at": inv.ExpiresAt,
	})
}

// ListInvites never exposes tokens; they only travel by email.
func (h Handlers) ListInvites(c *gin.Context) {
	list, err := h.Invites.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]invites.Invite, 0, len(list))
	for _, inv := range list {
		inv.Token = ""
		out = append(out, inv)
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ValidateInvite(c *gin.Context) {
	inv, err := h.Invites.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": inv.Email, "role": inv.Role, "expires_at": inv.ExpiresAt})
}

func (h Handlers) CancelInvite(c *gin.Context) {
	if _, err := h.Invites.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invite cancelled successfully"})
}

func (h Handlers) Statistics(c *gin.Context) {
	st, err := h.Reporting.Statistics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
