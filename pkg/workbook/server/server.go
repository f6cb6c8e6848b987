// Package server is a file-backed implementation of the workbook
// persistence service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/workbook-go/pkg/workbook/config"
	"github.com/ukaji3/workbook-go/pkg/workbook/merge"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

// MaxUploadSize bounds an import-excel request body.
const MaxUploadSize = 10 << 20

// Server represents the HTTP server
type Server struct {
	config config.ServerConfig
	files  *FileStore
	hub    *Hub
	mux    *http.ServeMux
	log    *slog.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a server storing projects under cfg.DataDir.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		files:  NewFileStore(cfg.DataDir),
		mux:    http.NewServeMux(),
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.log)
	s.hub.now = s.now

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	const project = "/data/api/project/{id}"
	s.mux.HandleFunc("POST "+project+"/workbook/save", s.handleSave)
	s.mux.HandleFunc("GET "+project+"/workbook/load", s.handleLoad)
	s.mux.HandleFunc("POST "+project+"/import-excel", s.handleImport)
	s.mux.HandleFunc("POST "+project+"/merge-tables", s.handleMerge)
	s.mux.HandleFunc("GET "+project+"/events", s.handleEvents)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Files returns the project file store.
func (s *Server) Files() *FileStore {
	return s.files
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not touch hijacked connections.
	srv.RegisterOnShutdown(s.hub.Close)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("persistence server listening", "addr", srv.Addr, "data_dir", s.config.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}

	var wb models.Workbook
	if err := json.NewDecoder(r.Body).Decode(&wb); err != nil {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "请求数据格式错误: " + err.Error()})
		return
	}
	if msg := validateWorkbook(&wb); msg != "" {
		s.reply(w, http.StatusBadRequest, models.Response{Message: msg})
		return
	}
	wb.Normalize(models.DefaultWorkbookName)

	path, err := s.files.Save(id, wb)
	if err != nil {
		s.log.Error("save workbook", "project", id, "error", err)
		s.reply(w, http.StatusInternalServerError, models.Response{Message: "保存工作簿失败: " + err.Error()})
		return
	}

	s.log.Info("workbook saved", "project", id, "path", path, "sheets", len(wb.Sheets))
	s.hub.Publish(id, models.EventWorkbookSaved, wb.Name)
	s.reply(w, http.StatusOK, models.Response{
		Success:    true,
		Message:    "工作簿数据保存成功",
		TableCount: len(wb.Sheets),
		SavedAt:    s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}

	wb, err := s.files.Load(id)
	if errors.Is(err, ErrNoWorkbook) {
		s.reply(w, http.StatusOK, models.Response{Success: true, Message: "未找到工作簿文件"})
		return
	}
	if err != nil {
		s.log.Error("load workbook", "project", id, "error", err)
		s.reply(w, http.StatusInternalServerError, models.Response{Message: "加载工作簿失败: " + err.Error()})
		return
	}

	s.reply(w, http.StatusOK, models.Response{
		Success:      true,
		Message:      "工作簿数据加载成功",
		WorkbookData: &wb,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "没有上传文件"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "没有选择文件"})
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "只支持.xlsx/.xls格式"})
		return
	}
	if header.Size > MaxUploadSize {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "文件大小不能超过10MB"})
		return
	}

	path, err := s.files.Import(id, file)
	if errors.Is(err, ErrInvalidWorkbook) {
		s.log.Warn("import excel rejected", "project", id, "file", header.Filename, "error", err)
		s.reply(w, http.StatusBadRequest, models.Response{Message: "无法解析Excel文件，请上传有效的.xlsx文件"})
		return
	}
	if err != nil {
		s.log.Error("import excel", "project", id, "error", err)
		s.reply(w, http.StatusInternalServerError, models.Response{Message: "文件导入失败: " + err.Error()})
		return
	}

	s.log.Info("excel imported", "project", id, "file", header.Filename, "path", path)
	s.hub.Publish(id, models.EventWorkbookImported, header.Filename)
	s.reply(w, http.StatusOK, models.Response{Success: true, Message: "文件导入成功", FilePath: path})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}

	var req models.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "请求数据不能为空"})
		return
	}

	var result *merge.Result
	wb, err := s.files.Update(id, func(wb *models.Workbook) error {
		var err error
		result, err = merge.Execute(wb, req)
		return err
	})

	var verr *merge.ValidationError
	switch {
	case errors.As(err, &verr):
		s.log.Warn("merge refused", "project", id, "problems", verr.Problems)
		s.reply(w, http.StatusBadRequest, models.Response{Message: verr.Error()})
		return
	case errors.Is(err, ErrNoWorkbook):
		s.reply(w, http.StatusNotFound, models.Response{Message: "当前项目没有工作簿数据"})
		return
	case err != nil:
		s.log.Error("merge tables", "project", id, "error", err)
		s.reply(w, http.StatusInternalServerError, models.Response{Message: "数据合并失败: " + err.Error()})
		return
	}

	s.log.Info("tables merged", "project", id, "result", result.String())
	s.hub.Publish(id, models.EventWorkbookMerged, result.String())
	s.reply(w, http.StatusOK, models.Response{Success: true, Msg: "数据合并成功", WorkbookData: &wb})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, id)
}

func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.reply(w, http.StatusBadRequest, models.Response{Message: "无法获取有效的项目ID"})
		return 0, false
	}
	return id, true
}

func (s *Server) reply(w http.ResponseWriter, status int, resp models.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("write response", "error", err)
	}
}

// validateWorkbook checks the fields a save must carry.
func validateWorkbook(wb *models.Workbook) string {
	if strings.TrimSpace(wb.Name) == "" {
		return "缺少必要字段: workbook_name"
	}
	if wb.Sheets == nil {
		return "缺少必要字段: sheets"
	}
	if len(wb.Sheets) == 0 {
		return "工作簿至少需要保留一个表格"
	}
	for i := range wb.Sheets {
		if strings.TrimSpace(wb.Sheets[i].Name) == "" {
			return fmt.Sprintf("第%d个sheet缺少name字段", i+1)
		}
	}
	return ""
}
