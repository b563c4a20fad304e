package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tuition-server-go/models"
	"tuition-server-go/roster"
	"tuition-server-go/tracker"
)

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Service *tracker.Service
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(service *tracker.Service) *APIHandler {
	return &APIHandler{
		Service: service,
	}
}

// detached keeps a remote push running after the client goes away.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// respondError maps service errors onto status codes. A SyncError means the local
// change was saved, so it is reported alongside a success body by the callers.
func respondError(c *gin.Context, op string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, tracker.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
	default:
		log.Printf("Error in %s handler: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
	}
}

// syncOutcome splits a flow error into a fatal error and a reportable sync failure.
func syncOutcome(err error) (fatal error, syncErr string) {
	var se *tracker.SyncError
	if errors.As(err, &se) {
		log.Printf("Remote sync failed after local save: %v", se)
		return nil, se.Error()
	}
	return err, ""
}

// --- Read Handlers ---

// GetData handles GET /api/data. The admin password is never returned.
func (h *APIHandler) GetData(c *gin.Context) {
	data := h.Service.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"sheets":    data.Sheets,
		"fees":      data.Fees,
		"sheetLink": data.SheetLink,
	})
}

// GetStats handles GET /api/stats
func (h *APIHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Stats())
}

// GetStudentsByClass handles GET /api/classes/:className/students
func (h *APIHandler) GetStudentsByClass(c *gin.Context) {
	students, err := h.Service.Students(c.Param("className"), c.Query("search"))
	if err != nil {
		respondError(c, "retrieve students", err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// --- Auth ---

type verifyRequest struct {
	Password string `json:"password"`
}

// VerifyPassword handles POST /api/auth/verify
func (h *APIHandler) VerifyPassword(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := h.Service.Authorize(req.Password); err != nil {
		respondError(c, "verify password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}

// --- Attendance ---

type presenceMark struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Present     bool   `json:"present"`
}

type attendanceRequest struct {
	Marks []presenceMark `json:"marks" binding:"dive"`
	Sync  bool           `json:"sync"`
}

// RecordAttendance handles POST /api/classes/:className/attendance
func (h *APIHandler) RecordAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	presence := make(map[string]bool, len(req.Marks))
	for _, m := range req.Marks {
		presence[models.StudentKey(m.Name, m.PhoneNumber)] = m.Present
	}

	res, err := h.Service.RecordAttendance(detached(c), c.Param("className"), presence, req.Sync)
	err, syncErr := syncOutcome(err)
	if err != nil {
		respondError(c, "record attendance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"className": res.ClassName,
		"fee":       res.Fee,
		"students":  res.Students,
		"synced":    res.Synced,
		"syncError": syncErr,
	})
}

// --- Import Handlers ---

// ImportStudents handles POST /api/import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Printf("Error getting form file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()
	push, _ := strconv.ParseBool(c.PostForm("sync"))

	log.Printf("Received roster upload: %s", header.Filename)

	rows, err := roster.ReadExcel(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read spreadsheet: " + err.Error()})
		return
	}

	res, err := h.Service.ImportRoster(detached(c), rows, push)
	err, syncErr := syncOutcome(err)
	if err != nil {
		respondError(c, "import students", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": res.Imported,
		"perClass":      res.PerClass,
		"synced":        res.Synced,
		"syncError":     syncErr,
	})
}

// DownloadTemplate handles GET /api/import/template
func (h *APIHandler) DownloadTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="Mau_Danh_Sach_Hoc_Sinh.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := roster.WriteTemplate(c.Writer); err != nil {
		log.Printf("Error writing template: %v", err)
	}
}

type addStudentRequest struct {
	Name        string `json:"name" binding:"required"`
	Class       string `json:"class" binding:"required"`
	School      string `json:"school"`
	PhoneNumber string `json:"phoneNumber"`
	Note        string `json:"note"`
	SubGroup    string `json:"subGroup"`
	Sync        bool   `json:"sync"`
}

// AddStudent handles POST /api/students
func (h *APIHandler) AddStudent(c *gin.Context) {
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and class are required"})
		return
	}
	row := roster.Row{
		Name:        req.Name,
		Class:       req.Class,
		School:      req.School,
		PhoneNumber: req.PhoneNumber,
		Note:        req.Note,
		SubGroup:    req.SubGroup,
	}

	st, synced, err := h.Service.AddStudent(detached(c), row, req.Sync)
	err, syncErr := syncOutcome(err)
	if err != nil {
		respondError(c, "add student", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": st, "synced": synced, "syncError": syncErr})
}

// ClearStudents handles DELETE /api/students
func (h *APIHandler) ClearStudents(c *gin.Context) {
	if err := h.Service.ClearStudents(c.Request.Context()); err != nil {
		respondError(c, "clear students", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All students cleared"})
}

// --- Settings & Sync ---

type settingsRequest struct {
	Password  string             `json:"password"`
	Fees      []models.FeeConfig `json:"fees"`
	SheetLink string             `json:"sheetLink"`
	Sync      bool               `json:"sync"`
}

// SaveSettings handles PUT /api/settings
func (h *APIHandler) SaveSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	synced, err := h.Service.SaveSettings(detached(c), tracker.Settings{
		Password:  req.Password,
		Fees:      req.Fees,
		SheetLink: req.SheetLink,
	}, req.Sync)
	err, syncErr := syncOutcome(err)
	if err != nil {
		respondError(c, "save settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings saved", "synced": synced, "syncError": syncErr})
}

// PullFromRemote handles POST /api/sync/pull
func (h *APIHandler) PullFromRemote(c *gin.Context) {
	data, err := h.Service.PullFromRemote(c.Request.Context())
	if err != nil {
		log.Printf("Error pulling from remote: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load data from remote: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sheets":    data.Sheets,
		"fees":      data.Fees,
		"sheetLink": data.SheetLink,
	})
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
