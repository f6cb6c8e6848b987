package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/workbook-go/pkg/workbook"
	"github.com/ukaji3/workbook-go/pkg/workbook/config"
	"github.com/ukaji3/workbook-go/pkg/workbook/models"
)

func quietClient(endpoint string) *Client {
	return New(endpoint, 7, WithLogger(workbook.DiscardLogger()))
}

func TestBaseURL(t *testing.T) {
	c := FromConfig(config.ClientConfig{Endpoint: "http://host/data/", ProjectID: 3})
	assert.Equal(t, "http://host/data/api/project/3", c.BaseURL())
	assert.Equal(t, "ws://host/data/api/project/3/events", c.EventsURL())
}

func TestSaveSendsWorkbook(t *testing.T) {
	var got models.Workbook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/project/7/workbook/save", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"message":"saved","table_count":1}`))
	}))
	defer srv.Close()

	wb := models.Workbook{Name: "book", Sheets: []models.Sheet{models.NewSheet("S")}}
	resp, err := quietClient(srv.URL).Save(context.Background(), wb)
	require.NoError(t, err)
	assert.Equal(t, "saved", resp.Text())
	assert.Equal(t, 1, resp.TableCount)
	assert.Equal(t, "book", got.Name)
	require.Len(t, got.Sheets, 1)
	assert.Equal(t, []string{"列1", "列2"}, got.Sheets[0].ColumnNames())
}

func TestLoad(t *testing.T) {
	body := `{"success":true,"workbook_data":{"workbook_name":"w","sheets":[{"name":"S","columns":[{"id":0,"name":"n"}],"rows":[{"0":12}]}]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/project/7/workbook/load", r.URL.Path)
		io.WriteString(w, body)
	}))
	defer srv.Close()

	wb, err := quietClient(srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, wb)
	assert.Equal(t, "12", wb.Sheets[0].Rows[0][0])
}

func TestLoadNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	wb, err := quietClient(srv.URL).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, wb)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		message  string
		rejected bool
	}{
		{"rejected with msg", http.StatusOK, `{"success":false,"msg":"no table"}`, "no table", true},
		{"rejected with message", http.StatusOK, `{"success":false,"message":"bad"}`, "bad", true},
		{"http error envelope", http.StatusBadRequest, `{"success":false,"message":"only xlsx"}`, "only xlsx", false},
		{"http error text", http.StatusBadGateway, "upstream down", "upstream down", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := quietClient(srv.URL).Merge(context.Background(), models.MergeRequest{})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, "merge", apiErr.Op)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.rejected, apiErr.Rejected())
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := quietClient(srv.URL).Load(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestImportExcel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/project/7/import-excel", r.URL.Path)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "book.xlsx", header.Filename)
		assert.Equal(t, "payload", string(data))
		io.WriteString(w, `{"success":true,"message":"ok","filepath":"7/workbook_data.xlsx"}`)
	}))
	defer srv.Close()

	resp, err := quietClient(srv.URL).ImportExcel(context.Background(), "book.xlsx", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "7/workbook_data.xlsx", resp.FilePath)
}

func TestWatch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/project/7/events", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(models.Event{ID: "1", Type: models.EventWorkbookSaved, ProjectID: 7})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []models.Event
	err := quietClient(srv.URL).Watch(ctx, func(ev models.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventWorkbookSaved, events[0].Type)
}
