package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Antonite/gobang_rl/config"
	"github.com/Antonite/gobang_rl/gobang"
	"github.com/Antonite/gobang_rl/qdeepneuro"
	"github.com/Antonite/gobang_rl/storage"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	var player = flag.Int("player", 0, "[0,1]")
	flag.Parse()
	if *player != 0 && *player != 1 {
		flag.Usage()
		return
	}

	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logrus.SetLevel(cfg.LogLevel)

	store, err := cfg.Store()
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize storage")
	}
	defer store.Close()

	l, err := qdeepneuro.NewLearner(cfg.Learner)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build learner")
	}
	if err := l.Load(store, cfg.Training.CheckpointName); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logrus.WithError(err).Fatal("failed to load checkpoint")
	}

	out := termenv.NewOutput(os.Stdout)
	fmt.Printf("starting gobang client for player: %v\n", *player)

	board, err := gobang.New(cfg.Learner.BoardSize)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create board")
	}

	input := bufio.NewScanner(os.Stdin)
	for board.Status == gobang.InProgress {
		fmt.Println(render(out, board))

		var move int
		if board.Player() == *player {
			fmt.Println("Your turn. Enter row and column...")
			if move, err = readMove(input, board); err != nil {
				fmt.Println(err)
				return
			}
		} else {
			move, err = l.Exploit(board.Encode(board.Player()), board.ValidMoves())
			if err != nil {
				logrus.WithError(err).Fatal("AI failed to move")
			}
			fmt.Printf("AI chose: %v %v\n", move/board.Size(), move%board.Size())
		}

		if board, err = board.Move(move); err != nil {
			logrus.WithError(err).Fatal("failed to apply move")
		}
	}

	fmt.Println(render(out, board))
	switch board.Winner() {
	case *player:
		fmt.Println(out.String("You won").Bold())
	case 1 - *player:
		fmt.Println(out.String("AI won").Bold())
	default:
		fmt.Println("Tie")
	}
}

func readMove(input *bufio.Scanner, board *gobang.Board) (int, error) {
	for input.Scan() {
		fields := strings.Fields(input.Text())
		if len(fields) != 2 {
			fmt.Println("bad input, try again")
			continue
		}
		row, err1 := strconv.Atoi(fields[0])
		col, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || row < 0 || col < 0 || row >= board.Size() || col >= board.Size() {
			fmt.Println("bad input, try again")
			continue
		}

		move := row*board.Size() + col
		if _, err := board.Move(move); err != nil {
			fmt.Println(err)
			continue
		}
		return move, nil
	}
	return -1, errors.New("input closed")
}

func render(out *termenv.Output, board *gobang.Board) string {
	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < board.Size(); c++ {
		fmt.Fprintf(&sb, "%2d", c)
	}
	sb.WriteByte('\n')

	for r := 0; r < board.Size(); r++ {
		fmt.Fprintf(&sb, "%2d ", r)
		for c := 0; c < board.Size(); c++ {
			switch board.At(r*board.Size() + c) {
			case 0:
				sb.WriteString(out.String(" x").Foreground(out.Color("1")).String())
			case 1:
				sb.WriteString(out.String(" o").Foreground(out.Color("4")).String())
			default:
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
