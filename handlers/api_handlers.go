package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"rollcall-roster/models"
	"rollcall-roster/service"
)

// classParam is the repeatable query parameter used to filter students
const classParam = "class"

// APIHandler holds the dependencies for API handlers, like the loaded roster
type APIHandler struct {
	Roster *service.Roster
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(roster *service.Roster) *APIHandler {
	return &APIHandler{
		Roster: roster,
	}
}

// Register mounts the roster routes on r
func (h *APIHandler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("", h.GetStudents)
		api.GET("/classes", h.GetClasses)
		api.GET("/ping", h.Ping)
	}
}

// --- Student Handlers ---

// GetStudents handles GET /api
//
//	/api                   -> every student
//	/api?class=8I          -> students in 8I
//	/api?class=8I&class=2M -> students in 8I or 2M
//
// Students are returned in the order they were loaded.
func (h *APIHandler) GetStudents(c *gin.Context) {
	filter := service.AllClasses()
	if classes, ok := c.GetQueryArray(classParam); ok {
		filter = service.OnlyClasses(classes...)
	}

	c.JSON(http.StatusOK, models.StudentsResponse{
		Students: h.Roster.Query(filter),
	})
}

// --- Class Handlers ---

// GetClasses handles GET /api/classes
func (h *APIHandler) GetClasses(c *gin.Context) {
	c.JSON(http.StatusOK, models.ClassesResponse{Classes: h.Roster.Classes()})
}

// --- Ping Handler ---

// Ping handles GET /api/ping
func (h *APIHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "Pong!",
		"students": h.Roster.Len(),
	})
}
