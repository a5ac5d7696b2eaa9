package server

import (
	"net/http"

	"github.com/Antonite/gobang_rl/gobang"
	"github.com/pkg/errors"
)

type BoardResponse struct {
	Status string
	Player int
	Size   int
	Cells  []int
}

func (s *Server) GetBoardHandler(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is a required param", http.StatusBadRequest)
		return
	}

	b, err := s.parse(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cells := make([]int, b.Size()*b.Size())
	for i := range cells {
		cells[i] = b.At(i)
	}

	s.writeJSON(w, &BoardResponse{
		Status: b.Status.String(),
		Player: b.Player(),
		Size:   b.Size(),
		Cells:  cells,
	})
}

// parse accepts only boards of the size the evaluator was trained on.
func (s *Server) parse(id string) (*gobang.Board, error) {
	b, err := gobang.Parse(id)
	if err != nil {
		return nil, err
	}
	if b.Size() != s.size {
		return nil, errors.Wrapf(gobang.ErrInvalidSize, "expected %d, got %d", s.size, b.Size())
	}
	return b, nil
}
