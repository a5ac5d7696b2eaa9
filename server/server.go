// Package server exposes a trained learner over HTTP for board inspection.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Evaluator scores every action for an encoded state.
type Evaluator interface {
	QValues(state []float64) ([]float64, error)
}

type Server struct {
	eval Evaluator
	size int
	log  *logrus.Entry
}

// New serves boards of the given size scored by eval.
func New(eval Evaluator, size int) *Server {
	return &Server{
		eval: eval,
		size: size,
		log:  logrus.WithField("component", "server"),
	}
}

// Routes registers the API handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/board", s.GetBoardHandler)
	mux.HandleFunc("/moves", s.GetMovesHandler)
}

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS,POST,PUT")
	w.Header().Set("Access-Control-Allow-Headers", "Access-Control-Allow-Headers, Origin,Accept, X-Requested-With, Content-Type, Access-Control-Request-Method, Access-Control-Request-Headers")
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		s.log.WithError(err).Warn("failed to write response")
	}
}
