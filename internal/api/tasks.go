package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskflow/internal/engine"
	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

const maxMultipartMemory = 32 << 20

// handleListTasks serves GET /api/tasks?project=&assignee=&status=&due_from=&due_to=&limit=
func (s *Server) handleListTasks(c *gin.Context) {
	filter := store.TaskFilter{
		ProjectID: c.Query("project"),
		Assignee:  c.Query("assignee"),
	}
	for _, st := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, ir.Status(st))
	}
	var err error
	if filter.DueFrom, err = queryDate(c, "due_from"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.DueTo, err = queryDate(c, "due_to"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	tasks, err := s.engine.ListTasks(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
		"count":   len(tasks),
	})
}

// handleCreateTask accepts a JSON task, or a multipart form with the task
// JSON in the "task" field and files under "files".
func (s *Server) handleCreateTask(c *gin.Context) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		s.createWithAttachments(c)
		return
	}

	var draft ir.Task
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := s.engine.CreateTask(c.Request.Context(), actorFrom(c), draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, t)
}

func (s *Server) createWithAttachments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	raw := form.Value["task"]
	if len(raw) != 1 {
		badRequest(c, "multipart form requires exactly one task field")
		return
	}
	var draft ir.Task
	if err := json.Unmarshal([]byte(raw[0]), &draft); err != nil {
		badRequest(c, "task: "+err.Error())
		return
	}

	files := make([]engine.AttachmentUpload, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		upload, err := readUpload(fh)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		files = append(files, upload)
	}

	res, err := s.engine.CreateTaskWithAttachments(c.Request.Context(), actorFrom(c), draft, files)
	if err != nil {
		s.fail(c, err)
		return
	}
	created(c, res)
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.engine.GetTask(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, t)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var patch engine.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := s.engine.UpdateTask(c.Request.Context(), actorFrom(c), c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, t)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.engine.DeleteTask(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "task deleted",
	})
}

func queryDate(c *gin.Context, key string) (*ir.Date, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	d, err := ir.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func readUpload(fh *multipart.FileHeader) (engine.AttachmentUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return engine.AttachmentUpload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return engine.AttachmentUpload{}, err
	}
	return engine.AttachmentUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
