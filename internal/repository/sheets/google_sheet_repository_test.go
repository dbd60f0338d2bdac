package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *GoogleSheetRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	repo, err := newRepository(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	require.NoError(t, err)
	return repo
}

func TestAppendRows_PostsAllRowsInOneCall(t *testing.T) {
	var calls int
	var body struct {
		Values [][]interface{} `json:"values"`
	}
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, ":append"), r.URL.Path)
		assert.Contains(t, r.URL.Path, "/spreadsheets/sheet-1/values/")
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"Seasons!A2:C3"}}`))
	})

	err := repo.AppendRows(context.Background(), "Seasons!A:C", [][]interface{}{{"a", 1}, {"b", 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, body.Values, 2)
}

func TestAppendRows_NothingToWrite(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})
	require.NoError(t, repo.AppendRows(context.Background(), "Seasons!A:C", nil))
	assert.ErrorIs(t, repo.AppendRows(context.Background(), "", [][]interface{}{{"a"}}), errEmptyRange)
}

func TestReadRange(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"range":"Seasons!A:B","values":[["2024-11-01","s1"],["2024-11-02","s2"]]}`))
	})

	rows, err := repo.ReadRange(context.Background(), "Seasons!A:B")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "s2", rows[1][1])
}

func TestReadRange_APIError(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
	})

	_, err := repo.ReadRange(context.Background(), "Seasons!A:B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Seasons!A:B")
}
