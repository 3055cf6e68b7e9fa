package ui

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"vizora/ai"
	"vizora/app"
	"vizora/domain/chart"
	"vizora/domain/core"
	"vizora/domain/dataset"
	"vizora/domain/goal"
	"vizora/internal/errors"
	"vizora/internal/report"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type personasRequest struct {
	Summary *dataset.DatasetSummary `json:"summary"`
	N       int                     `json:"n"`
}

type goalsRequest struct {
	Summary *dataset.DatasetSummary `json:"summary"`
	Persona goal.Persona            `json:"persona"`
	N       int                     `json:"n"`
}

type chartSpecRequest struct {
	FileID   string `json:"file_id"`
	Question string `json:"question"`
}

type exportRequest struct {
	FileID    string        `json:"file_id"`
	ChartSpec chart.RawSpec `json:"chart_spec"`
}

// handleAnalyze uploads a file and runs the full pipeline on it.
func (s *Server) handleAnalyze(c *gin.Context) {
	name, body, err := s.openUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	nPersonas, err := formInt(c, "n_personas")
	if err != nil {
		respondError(c, err)
		return
	}
	nGoals, err := formInt(c, "n_goals")
	if err != nil {
		respondError(c, err)
		return
	}

	bundle, err := s.analysis.Upload(c.Request.Context(), name, body, c.PostForm("instruction"), nPersonas, nGoals)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// handleQuery re-runs an instruction against a registered upload.
func (s *Server) handleQuery(c *gin.Context) {
	id, err := parseFileID(c.PostForm("file_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	bundle, err := s.analysis.Query(c.Request.Context(), id, c.PostForm("instruction"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (s *Server) handleSummarize(c *gin.Context) {
	method, err := ai.ParseSummaryMethod(c.PostForm("method"))
	if err != nil {
		respondError(c, err)
		return
	}
	name, body, err := s.openUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	summary, err := s.analysis.Summarize(c.Request.Context(), name, body, method)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "filename": name})
}

func (s *Server) handlePersonas(c *gin.Context) {
	var req personasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	if req.Summary == nil {
		respondError(c, errors.InvalidInput("summary is required"))
		return
	}
	personas, err := s.analysis.Personas(c.Request.Context(), req.Summary, req.N)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": personas})
}

func (s *Server) handleGoals(c *gin.Context) {
	var req goalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	if req.Summary == nil {
		respondError(c, errors.InvalidInput("summary is required"))
		return
	}
	goals, err := s.analysis.Goals(c.Request.Context(), req.Summary, req.Persona, req.N)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// handleChartSpec answers with the validated spec or the reason there is
// none. A rejected spec is still a 200: the failure is part of the data.
func (s *Server) handleChartSpec(c *gin.Context) {
	var req chartSpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	id, err := parseFileID(req.FileID)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := s.analysis.ChartSpec(c.Request.Context(), id, strings.TrimSpace(req.Question))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chart_spec": result})
}

func (s *Server) handleExtractColumns(c *gin.Context) {
	name, body, err := s.openUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	columns, err := s.analysis.ExtractColumns(name, body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns, "filename": name})
}

func (s *Server) handleFiles(c *gin.Context) {
	files, err := s.analysis.Files(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if files == nil {
		files = []dataset.UploadInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// handleExport returns an xlsx workbook with the processed chart data.
func (s *Server) handleExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	id, err := parseFileID(req.FileID)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(req.ChartSpec) == 0 {
		respondError(c, errors.InvalidInput("chart_spec is required"))
		return
	}

	var buf bytes.Buffer
	if err := s.analysis.Export(c.Request.Context(), id, req.ChartSpec, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="chart.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// handleReport renders a previously returned bundle as HTML.
func (s *Server) handleReport(c *gin.Context) {
	var bundle app.AnalysisBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	page, err := report.HTML(&bundle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// openUpload returns the multipart "file" field.
func (s *Server) openUpload(c *gin.Context) (string, io.ReadCloser, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, errors.InvalidInput("file is required")
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to read upload")
	}
	return header.Filename, f, nil
}

func formInt(c *gin.Context, key string) (int, error) {
	v := strings.TrimSpace(c.PostForm(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidInput(key + " must be a non-negative integer")
	}
	return n, nil
}

func parseFileID(s string) (core.FileID, error) {
	id, err := core.ParseFileID(s)
	if err != nil {
		return "", errors.InvalidInput(err.Error())
	}
	return id, nil
}

// respondError writes {"error", "code"} with the status for the error's code.
func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	code := errors.GetCode(err)
	if !errors.IsAppError(err) {
		code = errors.CodeInternalError
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
