package handlers

import (
	"net/http"
	"strconv"

	"recircle-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

var partnerNGOs = []NGO{
	{
		ID:          1,
		Name:        "Green Earth Foundation",
		Description: "Working to promote sustainable recycling practices and environmental conservation across communities.",
		Image:       "https://images.unsplash.com/photo-1532996122724-e3c354a0b15b?ixlib=rb-1.2.1&auto=format&fit=crop&w=800&q=80",
		Website:     "https://example.org/green-earth",
	},
	{
		ID:          2,
		Name:        "Recycle Together",
		Description: "Connecting recyclers with local communities to maximize the impact of recycling efforts.",
		Image:       "https://images.unsplash.com/photo-1542601906990-b4d3fb778b09?ixlib=rb-1.2.1&auto=format&fit=crop&w=800&q=80",
		Website:     "https://example.org/recycle-together",
	},
	{
		ID:          3,
		Name:        "Clean Future Initiative",
		Description: "Dedicated to creating a cleaner future through innovative recycling programs and education.",
		Image:       "https://images.unsplash.com/photo-1528190336454-13cd56b45b5a?ixlib=rb-1.2.1&auto=format&fit=crop&w=800&q=80",
		Website:     "https://example.org/clean-future",
	},
}

// NGOHandler serves the static partner directory
type NGOHandler struct {
	ngos []NGO
}

func NewNGOHandler() *NGOHandler {
	return &NGOHandler{ngos: partnerNGOs}
}

// ListNGOs handles GET /api/ngo
// @Summary      List partner NGOs
// @Tags         ngo
// @Produce      json
// @Success      200  {array}  NGO
// @Router       /ngo [get]
func (h *NGOHandler) ListNGOs(c *gin.Context) {
	c.JSON(http.StatusOK, h.ngos)
}

// GetNGO handles GET /api/ngo/:id
// @Summary      Get a partner NGO
// @Tags         ngo
// @Produce      json
// @Param        id   path      int  true  "NGO ID"
// @Success      200  {object}  NGO
// @Failure      404  {object}  errors.StandardError
// @Router       /ngo/{id} [get]
func (h *NGOHandler) GetNGO(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err == nil {
		for _, ngo := range h.ngos {
			if ngo.ID == id {
				c.JSON(http.StatusOK, ngo)
				return
			}
		}
	}
	c.Error(errors.NewResourceNotFound("NGO", c.Param("id")))
	c.Abort()
}
