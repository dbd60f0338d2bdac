package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/metrics"
	"github.com/mamadbah2/herd/internal/quota"
	"github.com/mamadbah2/herd/internal/repository/memory"
	"github.com/mamadbah2/herd/internal/server/handlers"
	"github.com/mamadbah2/herd/internal/service/herd"
)

const owner = "owner-1"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, tracker quota.Tracker) *httptest.Server {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.SeedAnimals(
		models.Animal{ID: "cow-204", OwnerID: owner, Tag: "204", Sex: models.SexFemale, Status: models.StatusActive},
	))
	require.NoError(t, store.SeedSeasons(models.BreedingSeason{
		ID: "s1", OwnerID: owner, Name: "Estacao 2024",
		StartDate: day(2023, 12, 1), EndDate: day(2024, 3, 31), ExposedCowIDs: []string{"cow-204"},
	}))

	prom := metrics.NewPrometheus("herd")
	svc := herd.NewService(store, herd.Options{
		OwnerID: owner,
		Quota:   tracker,
		Metrics: prom,
		Now:     func() time.Time { return day(2024, 2, 1) },
	})
	require.NoError(t, svc.Load(context.Background()))

	srv := httptest.NewServer(New(handlers.NewHerdHandler(svc, 30, nil), prom.Handler(), nil))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `herd_resyncs_total{result="ok"} 1`)
}

func TestCoverageLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, srv, http.MethodPost, "/seasons/s1/coverages",
		`{"cowBrinco":"204","date":"2024-01-10T00:00:00Z","type":"monta_natural","bullName":"Touro A"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var cov models.CoverageRecord
	require.NoError(t, json.Unmarshal(body, &cov))
	assert.Equal(t, "cow-204", cov.CowID)

	resp, body = do(t, srv, http.MethodPost, "/seasons/s1/coverages/"+cov.ID+"/diagnosis", `{"result":"positivo"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &cov))
	assert.Equal(t, models.DiagnosisPositive, cov.PregnancyResult)

	resp, body = do(t, srv, http.MethodGet, "/animals/cow-204", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dam models.Animal
	require.NoError(t, json.Unmarshal(body, &dam))
	require.Len(t, dam.Pregnancies, 1)
	assert.Equal(t, cov.ID, dam.Pregnancies[0].ID)

	resp, body = do(t, srv, http.MethodGet, "/seasons/s1/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"awaitingCalving":1`)

	resp, body = do(t, srv, http.MethodPost, "/seasons/s1/verify", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var result models.SweepResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.Pending)

	resp, _ = do(t, srv, http.MethodDelete, "/seasons/s1/coverages/"+cov.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, quota.NewMemoryTracker(1))

	resp, _ := do(t, srv, http.MethodGet, "/animals/ghost", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/seasons/ghost/coverages", `{"cowBrinco":"204","date":"2024-01-10T00:00:00Z"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/animals", `{"brinco":"X","sexo":"outro"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/animals", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/sweeps", `{"toleranceDays":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/seasons/s1/coverages", `{"cowBrinco":"204","date":"2024-01-10T00:00:00Z"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, string(body))
}
