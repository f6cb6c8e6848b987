package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/client"
	"github.com/ukaji3/workbook-go/pkg/workbook/config"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
	"github.com/ukaji3/workbook-go/pkg/workbook/xlsx"
)

func newTestServer(t *testing.T) (*Server, *client.Client) {
	t.Helper()
	log := workbook.DiscardLogger()
	s := New(config.ServerConfig{DataDir: t.TempDir()}, WithLogger(log))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, client.New(ts.URL+"/data", 5, client.WithLogger(log))
}

func fixture() models.Workbook {
	return models.Workbook{
		Name: "sales",
		Sheets: []models.Sheet{
			{
				Name:    "orders",
				Columns: []models.Column{{ID: 0, Name: "id"}, {ID: 1, Name: "qty"}},
				Rows:    []models.Row{{0: "1", 1: "5"}, {0: "2", 1: "7"}},
			},
			{
				Name:    "customers",
				Columns: []models.Column{{ID: 0, Name: "id"}, {ID: 1, Name: "name"}},
				Rows:    []models.Row{{0: "2", 1: "bob"}},
			},
		},
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestSaveThenLoad(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	wb, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, wb, "fresh project has no workbook")

	resp, err := c.Save(ctx, fixture())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TableCount)
	assert.NotEmpty(t, resp.SavedAt)

	path, err := s.Files().Latest(5)
	require.NoError(t, err)
	assert.Equal(t, "sales.xlsx", filepath.Base(path))

	wb, err = c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, wb)
	assert.Equal(t, "sales", wb.Name)
	assert.Equal(t, []string{"orders", "customers"}, wb.SheetNames())
	assert.Equal(t, []string{"2", "7"}, wb.Sheets[0].Values(1))
}

func TestSaveValidation(t *testing.T) {
	_, c := newTestServer(t)

	_, err := c.Save(context.Background(), models.Workbook{Sheets: []models.Sheet{models.NewSheet("S")}})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "workbook_name")
}

func TestBadProjectID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/api/project/abc/workbook/load", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMergeTables(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	_, err := c.Save(ctx, fixture())
	require.NoError(t, err)

	req := models.MergeRequest{
		TargetTableName:  "orders",
		SourceTableNames: []string{"customers"},
		MatchColumns:     []string{"id"},
		MergeColumns:     []models.MergeColumnGroup{{TableName: "customers", Columns: []string{"name"}}},
	}
	resp, err := c.Merge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "数据合并成功", resp.Text())
	require.NotNil(t, resp.WorkbookData)
	orders := resp.WorkbookData.Sheets[0]
	assert.Equal(t, []string{"id", "qty", "customers_name"}, orders.ColumnNames())
	assert.Equal(t, []string{"1", "5", ""}, orders.Values(0))
	assert.Equal(t, []string{"2", "7", "bob"}, orders.Values(1))

	wb, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders.ColumnNames(), wb.Sheets[0].ColumnNames(), "merge is persisted")

	req.MatchColumns = []string{"missing"}
	_, err = c.Merge(ctx, req)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "missing")
}

func TestMergeWithoutWorkbook(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Merge(context.Background(), models.MergeRequest{TargetTableName: "a"})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestImportExcel(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.ImportExcel(ctx, "notes.txt", bytes.NewReader([]byte("x")))
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "只支持.xlsx/.xls格式", apiErr.Message)

	var buf bytes.Buffer
	require.NoError(t, xlsx.Write(&buf, fixture()))
	resp, err := c.ImportExcel(ctx, "upload.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Files().ProjectDir(5), ImportFileName), resp.FilePath)

	wb, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "workbook_data", wb.Name)
	assert.Len(t, wb.Sheets, 2)
}

func TestImportRejectsUnreadableDocument(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.Save(ctx, fixture())
	require.NoError(t, err)

	_, err = c.ImportExcel(ctx, "legacy.xls", bytes.NewReader([]byte("not an ooxml document")))
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NoFileExists(t, filepath.Join(s.Files().ProjectDir(5), ImportFileName))

	wb, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sales", wb.Name)
}

func TestLatestPicksNewestFile(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	_, err := fs.Latest(1)
	assert.ErrorIs(t, err, ErrNoWorkbook)

	old, err := fs.Save(1, fixture())
	require.NoError(t, err)
	wb := fixture()
	wb.Name = "newer"
	newer, err := fs.Save(1, wb)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	got, err := fs.Latest(1)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sales", "sales"},
		{"  a/b  ", "a_b"},
		{"", models.DefaultWorkbookName},
		{"..", models.DefaultWorkbookName},
	}
	for _, tt := range tests {
		if got := fileName(tt.input); got != tt.expected {
			t.Errorf("fileName(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestEventsStream(t *testing.T) {
	s, c := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan models.Event, 4)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- c.Watch(ctx, func(ev models.Event) { events <- ev })
	}()

	require.Eventually(t, func() bool { return s.Hub().Subscribers(5) == 1 }, 2*time.Second, 10*time.Millisecond)
	_, err := c.Save(ctx, fixture())
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, models.EventWorkbookSaved, ev.Type)
		assert.Equal(t, 5, ev.ProjectID)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "sales", ev.Message)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	cancel()
	assert.NoError(t, <-watchErr)
}

func TestHubCloseEndsStreams(t *testing.T) {
	s, c := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- c.Watch(ctx, func(models.Event) {})
	}()
	require.Eventually(t, func() bool { return s.Hub().Subscribers(5) == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Hub().Close()
	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("stream still open after hub close")
	}
	assert.Eventually(t, func() bool { return s.Hub().Subscribers(5) == 0 }, 2*time.Second, 10*time.Millisecond)
}
