// Package gobang implements the board rules used by the trainer: an N×N grid where
// two players alternate placing stones and five in a row wins.
package gobang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type GameStatus int

const (
	InProgress GameStatus = iota
	Player1Won
	Player2Won
	Tie
)

const (
	// WinLength is the number of stones in a line needed to win.
	WinLength int = 5
	// Channels is the number of planes produced by Encode.
	Channels int = 3

	empty  byte = '.'
	stone1 byte = 'x'
	stone2 byte = 'o'
)

var (
	ErrOccupied    = errors.New("cell is occupied")
	ErrOutOfRange  = errors.New("cell is out of range")
	ErrGameOver    = errors.New("game is over")
	ErrInvalidSize = errors.New("invalid board size")
	ErrMalformed   = errors.New("malformed board id")
)

func (s GameStatus) String() string {
	switch s {
	case InProgress:
		return "in progress"
	case Player1Won:
		return "player 1 won"
	case Player2Won:
		return "player 2 won"
	case Tie:
		return "tie"
	}
	return "unknown"
}

// Board is immutable; Move returns a new board.
type Board struct {
	Status GameStatus
	size   int
	player int
	cells  []byte
	stones int
}

func New(size int) (*Board, error) {
	if size < 1 {
		return nil, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}

	cells := make([]byte, size*size)
	for i := range cells {
		cells[i] = empty
	}

	return &Board{size: size, cells: cells}, nil
}

// Parse restores a board from the form produced by String: "size:player:cells".
func Parse(id string) (*Board, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 {
		return nil, errors.Wrapf(ErrMalformed, "%q", id)
	}

	size, err := strconv.Atoi(parts[0])
	if err != nil || size < 1 {
		return nil, errors.Wrapf(ErrMalformed, "size in %q", id)
	}

	player, err := strconv.Atoi(parts[1])
	if err != nil || (player != 0 && player != 1) {
		return nil, errors.Wrapf(ErrMalformed, "player in %q", id)
	}

	if len(parts[2]) != size*size {
		return nil, errors.Wrapf(ErrMalformed, "expected %d cells, got %d", size*size, len(parts[2]))
	}

	b := &Board{size: size, player: player, cells: []byte(parts[2])}
	for i, c := range b.cells {
		switch c {
		case empty:
		case stone1, stone2:
			b.stones++
		default:
			return nil, errors.Wrapf(ErrMalformed, "cell %d is %q", i, c)
		}
	}

	b.Status = b.evaluate()
	return b, nil
}

func (b *Board) String() string {
	return fmt.Sprintf("%d:%d:%s", b.size, b.player, string(b.cells))
}

func (b *Board) Size() int {
	return b.size
}

// Player returns the player to move, 0 or 1.
func (b *Board) Player() int {
	return b.player
}

// At returns the owner of a cell: 0 or 1, or -1 when empty.
func (b *Board) At(cell int) int {
	switch b.cells[cell] {
	case stone1:
		return 0
	case stone2:
		return 1
	}
	return -1
}

// Winner returns the winning player or -1.
func (b *Board) Winner() int {
	switch b.Status {
	case Player1Won:
		return 0
	case Player2Won:
		return 1
	}
	return -1
}

func (b *Board) ValidMoves() []int {
	if b.Status != InProgress {
		return nil
	}

	moves := make([]int, 0, len(b.cells)-b.stones)
	for i, c := range b.cells {
		if c == empty {
			moves = append(moves, i)
		}
	}
	return moves
}

func (b *Board) Move(cell int) (*Board, error) {
	if b.Status != InProgress {
		return nil, ErrGameOver
	}
	if cell < 0 || cell >= len(b.cells) {
		return nil, errors.Wrapf(ErrOutOfRange, "cell %d", cell)
	}
	if b.cells[cell] != empty {
		return nil, errors.Wrapf(ErrOccupied, "cell %d", cell)
	}

	nb := &Board{
		size:   b.size,
		player: 1 - b.player,
		cells:  make([]byte, len(b.cells)),
		stones: b.stones + 1,
	}
	copy(nb.cells, b.cells)
	nb.cells[cell] = stoneOf(b.player)

	if nb.line(cell) {
		if b.player == 0 {
			nb.Status = Player1Won
		} else {
			nb.Status = Player2Won
		}
	} else if nb.stones == len(nb.cells) {
		nb.Status = Tie
	}

	return nb, nil
}

// Encode returns the board as size·size·Channels floats, channel-minor, seen from perspective:
// plane 0 holds perspective's stones, plane 1 the opponent's, plane 2 the empty cells.
func (b *Board) Encode(perspective int) []float64 {
	out := make([]float64, len(b.cells)*Channels)
	own := stoneOf(perspective)
	for i, c := range b.cells {
		switch c {
		case empty:
			out[i*Channels+2] = 1
		case own:
			out[i*Channels] = 1
		default:
			out[i*Channels+1] = 1
		}
	}
	return out
}

func (b *Board) evaluate() GameStatus {
	for i, c := range b.cells {
		if c != empty && b.line(i) {
			if c == stone1 {
				return Player1Won
			}
			return Player2Won
		}
	}
	if b.stones == len(b.cells) {
		return Tie
	}
	return InProgress
}

// line reports whether the stone at cell is part of WinLength or more in a row.
func (b *Board) line(cell int) bool {
	c := b.cells[cell]
	row, col := cell/b.size, cell%b.size
	for _, d := range [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}} {
		count := 1 + b.run(row, col, d[0], d[1], c) + b.run(row, col, -d[0], -d[1], c)
		if count >= WinLength {
			return true
		}
	}
	return false
}

func (b *Board) run(row, col, dr, dc int, c byte) int {
	n := 0
	for {
		row, col = row+dr, col+dc
		if row < 0 || col < 0 || row >= b.size || col >= b.size || b.cells[row*b.size+col] != c {
			return n
		}
		n++
	}
}

func stoneOf(player int) byte {
	if player == 0 {
		return stone1
	}
	return stone2
}
