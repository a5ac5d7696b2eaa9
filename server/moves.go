package server

import (
	"net/http"
	"sort"

	"github.com/Antonite/gobang_rl/gobang"
	"github.com/pkg/errors"
)

type MovesResponse struct {
	Id    string
	Cell  int
	Row   int
	Col   int
	Score float64
}

func (s *Server) GetMovesHandler(w http.ResponseWriter, r *http.Request) {
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

	moves, err := s.getMoves(b)
	if err != nil {
		s.log.WithError(err).WithField("id", id).Error("failed to score moves")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, moves)
}

func (s *Server) getMoves(b *gobang.Board) ([]*MovesResponse, error) {
	mresponse := []*MovesResponse{}

	scores, err := s.eval.QValues(b.Encode(b.Player()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to evaluate %s", b)
	}

	for _, m := range b.ValidMoves() {
		nb, err := b.Move(m)
		if err != nil {
			return nil, err
		}

		mresponse = append(mresponse, &MovesResponse{
			Id:    nb.String(),
			Cell:  m,
			Row:   m / b.Size(),
			Col:   m % b.Size(),
			Score: scores[m],
		})
	}

	sort.SliceStable(mresponse, func(i, j int) bool {
		return mresponse[i].Score > mresponse[j].Score
	})
	return mresponse, nil
}
