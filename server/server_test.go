package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Antonite/gobang_rl/gobang"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// cellEvaluator scores each action by its index.
type cellEvaluator struct {
	err error
}

func (e cellEvaluator) QValues(state []float64) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	q := make([]float64, len(state)/gobang.Channels)
	for i := range q {
		q[i] = float64(i)
	}
	return q, nil
}

func get(t *testing.T, s *Server, path, id string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	s.Routes(mux)

	target := path
	if id != "" {
		target += "?id=" + url.QueryEscape(id)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestBoard(t *testing.T) {
	s := New(cellEvaluator{}, 3)
	rec := get(t, s, "/board", "3:1:x........")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp BoardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, gobang.InProgress.String(), resp.Status)
	require.Equal(t, 1, resp.Player)
	require.Equal(t, 3, resp.Size)
	require.Equal(t, []int{0, -1, -1, -1, -1, -1, -1, -1, -1}, resp.Cells)
}

func TestMovesSortedByScore(t *testing.T) {
	s := New(cellEvaluator{}, 3)
	rec := get(t, s, "/moves", "3:1:x...o...x")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []MovesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 6)

	cells := make([]int, len(resp))
	for i, m := range resp {
		cells[i] = m.Cell
		require.Equal(t, float64(m.Cell), m.Score)
		require.Equal(t, m.Cell/3, m.Row)
		require.Equal(t, m.Cell%3, m.Col)

		b, err := gobang.Parse(m.Id)
		require.NoError(t, err)
		require.Equal(t, 1, b.At(m.Cell))
		require.Equal(t, 0, b.Player())
	}
	require.Equal(t, []int{7, 6, 5, 3, 2, 1}, cells)
}

func TestMovesOnFinishedBoard(t *testing.T) {
	s := New(cellEvaluator{}, 5)
	rec := get(t, s, "/moves", "5:1:xxxxxoooo................")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestBadRequests(t *testing.T) {
	s := New(cellEvaluator{}, 3)
	for _, path := range []string{"/board", "/moves"} {
		require.Equal(t, http.StatusBadRequest, get(t, s, path, "").Code)
		require.Equal(t, http.StatusBadRequest, get(t, s, path, "garbage").Code)
		require.Equal(t, http.StatusBadRequest, get(t, s, path, "2:0:....").Code)
	}
}

func TestEvaluatorFailure(t *testing.T) {
	s := New(cellEvaluator{err: errors.New("boom")}, 3)
	rec := get(t, s, "/moves", "3:0:.........")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
