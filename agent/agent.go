// Package agent plays self-play episodes of Gobang, feeding experience to a learner.
package agent

import (
	"math/rand/v2"

	"github.com/Antonite/gobang_rl/gobang"
	"github.com/Antonite/gobang_rl/qdeepneuro"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	WinReward  float64 = 1
	LossReward float64 = -1
)

// Learner is the part of the DQN learner an episode needs.
type Learner interface {
	Act(state []float64, valid []int) (int, error)
	Remember(state []float64, action int, reward float64, nextState []float64, terminal bool) error
	Train() (float64, bool)
	Epsilon() float64
}

// Opponent chooses replies for the side the learner is not playing.
type Opponent interface {
	Move(board *gobang.Board) (int, error)
}

// RandomOpponent plays a uniformly random legal move.
type RandomOpponent struct {
	rng *rand.Rand
}

func NewRandomOpponent(rng *rand.Rand) *RandomOpponent {
	return &RandomOpponent{rng: rng}
}

func (o *RandomOpponent) Move(board *gobang.Board) (int, error) {
	moves := board.ValidMoves()
	if len(moves) == 0 {
		return -1, qdeepneuro.ErrNoValidMoves
	}
	return moves[o.rng.IntN(len(moves))], nil
}

type Result struct {
	Status      gobang.GameStatus
	LearnerSide int
	LearnerWon  bool
	Moves       int
	Transitions int
	TrainSteps  int
	MeanLoss    float64
	Epsilon     float64
}

type Agent struct {
	learner    Learner
	opponent   Opponent
	size       int
	trainEvery int
	rng        *rand.Rand
	log        *logrus.Entry
}

type Option func(*Agent)

func WithOpponent(o Opponent) Option {
	return func(a *Agent) {
		a.opponent = o
	}
}

// WithTrainEvery sets how many recorded transitions pass between training steps.
func WithTrainEvery(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.trainEvery = n
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(a *Agent) {
		a.rng = rand.New(rand.NewPCG(seed, 0))
	}
}

func New(learner Learner, size int, opts ...Option) *Agent {
	a := &Agent{
		learner:    learner,
		size:       size,
		trainEvery: 1,
		rng:        rand.New(rand.NewPCG(1, 0)),
		log:        logrus.WithField("component", "agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.opponent == nil {
		a.opponent = NewRandomOpponent(rand.New(rand.NewPCG(a.rng.Uint64(), a.rng.Uint64())))
	}

	return a
}

// Play runs one episode to the end. The learner's side is drawn at random; a transition is
// recorded once the opponent has replied, so next states are always the learner's turn.
func (a *Agent) Play() (*Result, error) {
	board, err := gobang.New(a.size)
	if err != nil {
		return nil, err
	}

	res := &Result{LearnerSide: a.rng.IntN(2)}
	var lossSum float64

	if res.LearnerSide == 1 {
		if board, err = a.reply(board); err != nil {
			return nil, err
		}
		res.Moves++
	}

	for board.Status == gobang.InProgress {
		state := board.Encode(res.LearnerSide)
		action, err := a.learner.Act(state, board.ValidMoves())
		if err != nil {
			return nil, errors.Wrapf(err, "learner failed to act on %s", board)
		}

		next, err := board.Move(action)
		if err != nil {
			return nil, errors.Wrapf(err, "learner chose %d on %s", action, board)
		}
		res.Moves++

		if next.Status == gobang.InProgress {
			if next, err = a.reply(next); err != nil {
				return nil, err
			}
			res.Moves++
		}

		reward := 0.0
		switch next.Winner() {
		case res.LearnerSide:
			reward = WinReward
		case 1 - res.LearnerSide:
			reward = LossReward
		}

		terminal := next.Status != gobang.InProgress
		if err := a.learner.Remember(state, action, reward, next.Encode(res.LearnerSide), terminal); err != nil {
			return nil, err
		}
		res.Transitions++

		if res.Transitions%a.trainEvery == 0 {
			if loss, ok := a.learner.Train(); ok {
				lossSum += loss
				res.TrainSteps++
			}
		}

		board = next
	}

	res.Status = board.Status
	res.LearnerWon = board.Winner() == res.LearnerSide
	res.Epsilon = a.learner.Epsilon()
	if res.TrainSteps > 0 {
		res.MeanLoss = lossSum / float64(res.TrainSteps)
	}

	a.log.WithFields(logrus.Fields{
		"status":      res.Status,
		"moves":       res.Moves,
		"transitions": res.Transitions,
		"loss":        res.MeanLoss,
	}).Debug("episode finished")

	return res, nil
}

func (a *Agent) reply(board *gobang.Board) (*gobang.Board, error) {
	move, err := a.opponent.Move(board)
	if err != nil {
		return nil, errors.Wrapf(err, "opponent failed to move on %s", board)
	}

	nb, err := board.Move(move)
	if err != nil {
		return nil, errors.Wrapf(err, "opponent chose %d on %s", move, board)
	}
	return nb, nil
}
