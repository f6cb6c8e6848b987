// Package session ties the workbook store and the merge planner to the
// persistence service. It is the single controller a presentation layer
// drives; every failure ends in a notification.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/merge"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

// MaxImportSize is the largest Excel upload accepted.
const MaxImportSize = 10 << 20

var (
	// ErrBusy is returned when a request is started while another is outstanding.
	ErrBusy = errors.New("another request is in flight")
	// ErrNothingToSave indicates a save of a workbook without sheets.
	ErrNothingToSave = errors.New("no workbook data to save")
	// ErrNothingToExport indicates an export of a workbook without sheets.
	ErrNothingToExport = errors.New("no workbook data to export")
	// ErrFileType indicates an import of a file that is not .xlsx or .xls.
	ErrFileType = errors.New("only .xlsx and .xls files can be imported")
	// ErrFileTooLarge indicates an import above MaxImportSize.
	ErrFileTooLarge = errors.New("import file exceeds 10MB")
)

// Backend is the persistence service. *client.Client implements it.
type Backend interface {
	Save(ctx context.Context, wb models.Workbook) (*models.Response, error)
	Load(ctx context.Context) (*models.Workbook, error)
	Merge(ctx context.Context, req models.MergeRequest) (*models.Response, error)
	ImportExcel(ctx context.Context, filename string, r io.Reader) (*models.Response, error)
}

// Session owns one Store and one Planner. Local edits are synchronous;
// requests to the backend are guarded so that at most one is outstanding.
// Edits must not run concurrently with each other.
type Session struct {
	store    *workbook.Store
	planner  *merge.Planner
	backend  Backend
	notifier Notifier
	log      *slog.Logger
	inFlight atomic.Bool
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	notifier Notifier
	logger   *slog.Logger
	planner  []merge.Option
}

// WithNotifier sets the notification sink. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(o *sessionOptions) { o.notifier = n }
}

// WithLogger sets the logger shared by the session, store and planner.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) { o.logger = l }
}

// WithPlannerOptions passes options through to the merge planner.
func WithPlannerOptions(opts ...merge.Option) Option {
	return func(o *sessionOptions) { o.planner = append(o.planner, opts...) }
}

// New creates a session with an empty workbook.
func New(backend Backend, opts ...Option) *Session {
	o := sessionOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}

	store := workbook.NewStore(workbook.Options{Logger: o.logger})
	plannerOpts := append([]merge.Option{merge.WithLogger(o.logger)}, o.planner...)
	return &Session{
		store:    store,
		planner:  merge.NewPlanner(store, plannerOpts...),
		backend:  backend,
		notifier: o.notifier,
		log:      o.logger,
	}
}

// Store returns the session's workbook store.
func (s *Session) Store() *workbook.Store {
	return s.store
}

// Planner returns the session's merge planner.
func (s *Session) Planner() *merge.Planner {
	return s.planner
}

// Busy reports whether a request is outstanding.
func (s *Session) Busy() bool {
	return s.inFlight.Load()
}

// Edit runs fn against the store and reports a refusal as a warning.
func (s *Session) Edit(fn func(*workbook.Store) error) error {
	return s.report(fn(s.store))
}

// Plan runs fn against the planner and reports a refusal as a warning.
func (s *Session) Plan(fn func(*merge.Planner) error) error {
	return s.report(fn(s.planner))
}

// Reload replaces the workbook with the stored one. When the service has
// no workbook, or the load fails, the store is reset to an empty workbook.
func (s *Session) Reload(ctx context.Context) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	s.notify(LevelInfo, "正在加载工作簿数据...")
	if err := s.reload(ctx); err != nil {
		s.notify(LevelError, "加载工作簿数据失败: "+Message(err))
		return err
	}
	if !s.store.HasData() {
		s.notify(LevelInfo, "当前项目没有工作簿数据，请创建新表格开始使用")
		return nil
	}
	s.notify(LevelSuccess, "工作簿数据已成功加载！")
	return nil
}

func (s *Session) reload(ctx context.Context) error {
	wb, err := s.backend.Load(ctx)
	if err != nil {
		s.store.Reset()
		return err
	}
	if wb == nil {
		s.store.Reset()
		return nil
	}
	return s.store.Load(*wb)
}

// Save uploads the workbook and then reloads it from the service.
func (s *Session) Save(ctx context.Context) error {
	if !s.store.HasData() {
		return s.report(ErrNothingToSave)
	}

	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	wb, err := s.store.Snapshot()
	if err != nil {
		return s.fail("保存失败", err)
	}

	s.notify(LevelInfo, "正在保存工作簿数据...")
	if _, err := s.backend.Save(ctx, wb); err != nil {
		return s.fail("保存失败", err)
	}
	s.notify(LevelSuccess, "工作簿数据已成功保存到服务器！")

	if err := s.reload(ctx); err != nil {
		return s.fail("加载工作簿数据失败", err)
	}
	return nil
}

// OpenMerge starts the merge wizard.
func (s *Session) OpenMerge() error {
	return s.report(s.planner.Open())
}

// SubmitMerge sends the configured merge. On success the wizard closes and
// the workbook is replaced with the returned data, or reloaded when the
// response carries none. On failure the planner returns to column
// configuration with its selections intact.
func (s *Session) SubmitMerge(ctx context.Context) (*models.Response, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := s.planner.BeginSubmit()
	if err != nil {
		return nil, s.report(err)
	}

	s.notify(LevelInfo, "正在处理数据合并...")
	resp, err := s.backend.Merge(ctx, req)
	if ferr := s.planner.Finish(err); ferr != nil {
		s.log.Error("merge planner finish", "error", ferr)
	}
	if err != nil {
		return nil, s.fail("数据合并失败", err)
	}

	s.log.Info("merge submitted",
		slog.String("target", req.TargetTableName),
		slog.Int("sources", len(req.SourceTableNames)),
		slog.Bool("new_table", req.CreateNewTable))

	if resp.WorkbookData != nil {
		wb := *resp.WorkbookData
		if wb.Name == "" {
			wb.Name = models.MergedWorkbookName
		}
		err = s.store.Load(wb)
	} else {
		err = s.reload(ctx)
	}
	if err != nil {
		s.notify(LevelWarning, "数据合并成功，但加载更新数据时出现问题")
		return resp, nil
	}

	s.notify(LevelSuccess, "数据合并成功")
	return resp, nil
}

// ImportExcel uploads an Excel document and reloads the workbook from it.
func (s *Session) ImportExcel(ctx context.Context, filename string, r io.Reader) (*models.Response, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		return nil, s.report(ErrFileType)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return nil, s.fail("导入失败", err)
	}
	if len(data) > MaxImportSize {
		return nil, s.report(ErrFileTooLarge)
	}

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	s.notify(LevelInfo, "正在上传Excel文件...")
	resp, err := s.backend.ImportExcel(ctx, filepath.Base(filename), bytes.NewReader(data))
	if err != nil {
		return nil, s.fail("导入失败", err)
	}
	if err := s.reload(ctx); err != nil {
		return nil, s.fail("加载工作簿数据失败", err)
	}

	s.notify(LevelSuccess, fmt.Sprintf("Excel数据导入成功！共%d个表格", s.store.SheetCount()))
	return resp, nil
}

// ExportExcel writes the workbook to w as an .xlsx document.
func (s *Session) ExportExcel(w io.Writer) error {
	if !s.store.HasData() {
		return s.report(ErrNothingToExport)
	}
	wb, err := s.store.Snapshot()
	if err == nil {
		err = xlsx.Write(w, wb)
	}
	if err != nil {
		return s.fail("导出失败", err)
	}
	s.notify(LevelSuccess, "工作簿数据已成功导出为Excel文件！")
	return nil
}

func (s *Session) acquire() (func(), error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, s.report(ErrBusy)
	}
	return func() { s.inFlight.Store(false) }, nil
}

// report notifies a refusal as a warning, or any other error as an error.
func (s *Session) report(err error) error {
	if err == nil {
		return nil
	}
	if isWarning(err) {
		s.notify(LevelWarning, Message(err))
	} else {
		s.notify(LevelError, Message(err))
	}
	return err
}

func (s *Session) fail(prefix string, err error) error {
	s.log.Error(prefix, "error", err)
	s.notify(LevelError, prefix+": "+Message(err))
	return err
}

func (s *Session) notify(level Level, message string) {
	s.notifier.Notify(level, message)
}
