package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// ActivityStore defines reads over the activity feed.
type ActivityStore interface {
	GetEvents(userID uint, limit, offset int) ([]entities.ActivityEvent, int64, error)
}

type ActivityController struct {
	store ActivityStore
}

func NewActivityController(store ActivityStore) *ActivityController {
	return &ActivityController{store: store}
}

// ListEvents returns the user's activity feed with pagination.
// GET /api/activity
func (ac *ActivityController) ListEvents(c *gin.Context) {
	limit, offset := parsePagination(c)

	events, total, err := ac.store.GetEvents(GetUserID(c), limit, offset)
	if err != nil {
		respondInternalError(c, err, "list activity")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
