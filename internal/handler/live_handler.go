package handler

import (
	"context"
	"io"

	"solis/internal/livesync"
	"solis/internal/logger"
	"solis/internal/middleware"
	"solis/internal/model"
	"solis/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Feeds are the live collections served over server-sent events.
type Feeds struct {
	Tasks       *livesync.Feed[model.Task]
	Documents   *livesync.Feed[model.Document]
	Users       *livesync.Feed[model.User]
	Reports     *livesync.Feed[model.Report]
	Submissions *livesync.Feed[model.FormSubmission]
}

// Sources answer the authoritative queries behind each live view.
type Sources struct {
	Tasks interface {
		LiveQuery(actor *model.User, f service.TaskFilter) livesync.Query[model.Task]
	}
	Documents interface {
		List(ctx context.Context, department string) ([]model.Document, error)
	}
	Users interface {
		List(ctx context.Context, department string, activeOnly bool) ([]model.User, error)
	}
	Reports interface {
		List(ctx context.Context, department, reportType string) ([]model.Report, error)
	}
	Submissions interface {
		ListSubmissions(ctx context.Context, actor *model.User, formID uuid.UUID) ([]model.FormSubmission, error)
	}
}

type LiveHandler struct {
	feeds   Feeds
	sources Sources
	log     *logger.Logger
}

func NewLiveHandler(feeds Feeds, sources Sources, log *logger.Logger) *LiveHandler {
	return &LiveHandler{feeds: feeds, sources: sources, log: log.Named("live")}
}

// Tasks godoc
// @Summary      Live task view
// @Description  Server-sent events: a "snapshot" event with the full visible task set on every change, an "error" event when the view fails.
// @Tags         Live
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        view query string false "Client view id"
// @Param        listId query string false "List ID"
// @Param        status query string false "Status"
// @Param        department query string false "Department"
// @Param        assignee query string false "Assignee ID"
// @Router       /live/tasks [get]
func (h *LiveHandler) Tasks(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	var q taskListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	stream(c, h.log, h.feeds.Tasks, h.sources.Tasks.LiveQuery(user, q.filter()))
}

func (h *LiveHandler) Documents(c *gin.Context) {
	dept := c.Query("department")
	stream(c, h.log, h.feeds.Documents, livesync.Query[model.Document]{
		Key: "department=" + dept,
		Fetch: func(ctx context.Context) ([]model.Document, error) {
			return h.sources.Documents.List(ctx, dept)
		},
		Match: func(d model.Document) bool {
			return dept == "" || d.Department == dept
		},
	})
}

func (h *LiveHandler) Users(c *gin.Context) {
	dept := c.Query("department")
	activeOnly := c.Query("active") == "true"
	stream(c, h.log, h.feeds.Users, livesync.Query[model.User]{
		Key: "department=" + dept + " active=" + c.Query("active"),
		Fetch: func(ctx context.Context) ([]model.User, error) {
			return h.sources.Users.List(ctx, dept, activeOnly)
		},
		Match: func(u model.User) bool {
			return (dept == "" || u.Department == dept) && (!activeOnly || u.IsActive)
		},
	})
}

func (h *LiveHandler) Reports(c *gin.Context) {
	dept, reportType := c.Query("department"), c.Query("type")
	stream(c, h.log, h.feeds.Reports, livesync.Query[model.Report]{
		Key: "department=" + dept + " type=" + reportType,
		Fetch: func(ctx context.Context) ([]model.Report, error) {
			return h.sources.Reports.List(ctx, dept, reportType)
		},
		Match: func(r model.Report) bool {
			return (dept == "" || r.Department == dept) && (reportType == "" || r.Type == reportType)
		},
	})
}

// Submissions streams the answers arriving for one form.
func (h *LiveHandler) Submissions(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	formID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stream(c, h.log, h.feeds.Submissions, livesync.Query[model.FormSubmission]{
		Key: "form=" + formID.String(),
		Fetch: func(ctx context.Context) ([]model.FormSubmission, error) {
			return h.sources.Submissions.ListSubmissions(ctx, user, formID)
		},
		Match: func(s model.FormSubmission) bool {
			return s.FormID == formID
		},
	})
}

// viewID identifies the client view a live request belongs to. A session has
// at most one subscription per view and collection.
func viewID(c *gin.Context) string {
	session := c.ClientIP()
	if id, ok := middleware.CurrentIdentity(c); ok {
		session = id.SessionID
	}
	return session + ":" + c.DefaultQuery("view", c.FullPath())
}

func stream[T any](c *gin.Context, log *logger.Logger, feed *livesync.Feed[T], q livesync.Query[T]) {
	sub, err := feed.Subscribe(c.Request.Context(), viewID(c), q)
	if err != nil {
		respondError(c, log, err, "Failed to open live view")
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(io.Writer) bool {
		items, ok := <-sub.Updates()
		if !ok {
			if err := sub.Err(); err != nil {
				log.Warn().Err(err).Str("collection", feed.Name()).Str("view", sub.ViewID()).Str("query", q.Key).Msg("live view ended")
				c.SSEvent("error", ErrorResponse{Error: "Live view ended, reload to retry"})
			}
			return false
		}
		c.SSEvent("snapshot", items)
		return true
	})
}
