// Search history HTTP handlers.
//
//   - POST /api/user/saveSearch   (bearer; personal history, newest 20 kept)
//   - POST /api/user/guestSearch  (anonymous; shared guest log, newest 100 kept)
//   - GET  /api/user/history      (bearer; oldest first)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// SaveSearchRequest is the JSON payload for recording a search.
type SaveSearchRequest struct {
	Query string `json:"query" example:"คอนโดใกล้ BTS"`
}

// SuccessResponse is the bare success body.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// HistoryResponse wraps a user's search history.
type HistoryResponse struct {
	Success bool                  `json:"success" example:"true"`
	History []domain.SearchRecord `json:"history"`
}

// SaveSearch godoc
// @ID          saveSearch
// @Summary     Record a search for the current identity
// @Description Appends the query to the identity's history, keeping only the newest entries.
// @Tags        History
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.SaveSearchRequest  true  "Search query"
// @Success     200   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Empty or oversized query"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/saveSearch [post]
func (h *Handlers) SaveSearch(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	h.record(c, u)
}

// GuestSearch godoc
// @ID          guestSearch
// @Summary     Record an anonymous search
// @Description Appends the query to the shared guest log, keeping only the newest entries.
// @Tags        History
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SaveSearchRequest  true  "Search query"
// @Success     200   {object}  handlers.SuccessResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Empty or oversized query"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/guestSearch [post]
func (h *Handlers) GuestSearch(c *gin.Context) {
	h.record(c, nil)
}

func (h *Handlers) record(c *gin.Context, identity *domain.User) {
	var req SaveSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.history.For(identity).Record(c.Request.Context(), req.Query); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, SuccessResponse{Success: true})
}

// ListHistory godoc
// @ID          listHistory
// @Summary     Search history of the current identity
// @Tags        History
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.HistoryResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/history [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	items, err := h.history.History(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{Success: true, History: items})
}
