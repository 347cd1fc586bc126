// Favorites HTTP handlers.
//
// All routes require a bearer token:
//   - POST   /api/user/favorite/add                (rejects duplicates with 409)
//   - DELETE /api/user/favorite/remove             (idempotent)
//   - GET    /api/user/favorite/list               (ETag support)
//   - GET    /api/user/favorite/check/{propertyId}
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// FavoriteRequest names the property to add or remove.
type FavoriteRequest struct {
	PropertyID string `json:"propertyId" example:"prop-1042"`
}

// FavoritesResponse lists the identity's favorites, oldest first.
type FavoritesResponse struct {
	Success   bool              `json:"success" example:"true"`
	Favorites []domain.Favorite `json:"favorites"`
}

// CheckFavoriteResponse reports whether a property is favorited.
type CheckFavoriteResponse struct {
	Success    bool `json:"success"    example:"true"`
	IsFavorite bool `json:"isFavorite" example:"false"`
}

// AddFavorite godoc
// @ID          addFavorite
// @Summary     Add a favorite
// @Description Saves a property for the current identity. Adding the same property twice fails with 409.
// @Tags        Favorites
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.FavoriteRequest  true  "Property to save"
// @Success     200   {object}  handlers.MessageResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing property id"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     409   {object}  handlers.ErrorResponse  "Already a favorite"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/favorite/add [post]
func (h *Handlers) AddFavorite(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if _, err := h.favorites.Add(c.Request.Context(), u.ID, req.PropertyID); err != nil {
		writeError(c, err)
		return
	}
	okMessage(c, "added to favorites")
}

// RemoveFavorite godoc
// @ID          removeFavorite
// @Summary     Remove a favorite
// @Description Removes a property from the current identity's favorites. Removing an absent property succeeds.
// @Tags        Favorites
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body        body      handlers.FavoriteRequest  false  "Property to remove"
// @Param       propertyId  query     string                    false  "Property to remove (alternative to body)"
// @Success     200         {object}  handlers.MessageResponse
// @Failure     400         {object}  handlers.ErrorResponse  "Missing property id"
// @Failure     401         {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500         {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/favorite/remove [delete]
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	// The id comes from ?propertyId= or, when absent, the JSON body.
	propertyID := c.Query("propertyId")
	if propertyID == "" && c.Request.ContentLength != 0 {
		var req FavoriteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		propertyID = req.PropertyID
	}
	if err := h.favorites.Remove(c.Request.Context(), u.ID, propertyID); err != nil {
		writeError(c, err)
		return
	}
	okMessage(c, "removed from favorites")
}

// ListFavorites godoc
// @ID          listFavorites
// @Summary     List favorites
// @Description Returns the current identity's favorites. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Favorites
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"fav:abc:3:1700000000\")
// @Success     200  {object} handlers.FavoritesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/user/favorite/list [get]
func (h *Handlers) ListFavorites(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, latest, err := h.favorites.Stats(ctx, u.ID); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"fav:%s:%d:%d"`, u.ID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.favorites.List(ctx, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, FavoritesResponse{Success: true, Favorites: items})
}

// CheckFavorite godoc
// @ID          checkFavorite
// @Summary     Check a favorite
// @Tags        Favorites
// @Produce     json
// @Security    BearerAuth
// @Param       propertyId  path      string  true  "Property id"  example(prop-1042)
// @Success     200         {object}  handlers.CheckFavoriteResponse
// @Failure     400         {object}  handlers.ErrorResponse  "Invalid property id"
// @Failure     401         {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500         {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/user/favorite/check/{propertyId} [get]
func (h *Handlers) CheckFavorite(c *gin.Context) {
	u, authed := currentUser(c)
	if !authed {
		return
	}
	exists, err := h.favorites.Check(c.Request.Context(), u.ID, c.Param("propertyId"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, CheckFavoriteResponse{Success: true, IsFavorite: exists})
}
