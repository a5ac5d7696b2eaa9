package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Antonite/gobang_rl/agent"
	"github.com/Antonite/gobang_rl/config"
	"github.com/Antonite/gobang_rl/qdeepneuro"
	"github.com/Antonite/gobang_rl/report"
	"github.com/Antonite/gobang_rl/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.WithField("board", cfg.Learner.BoardSize).Info("starting gobang deep q RL")

	store, err := cfg.Store()
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize storage")
	}
	defer store.Close()

	l, err := qdeepneuro.NewLearner(cfg.Learner)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build learner")
	}

	name := cfg.Training.CheckpointName
	switch err := l.Load(store, name); {
	case err == nil:
		logrus.WithFields(logrus.Fields{"checkpoint": name, "epsilon": l.Epsilon()}).Info("resumed from checkpoint")
	case errors.Is(err, storage.ErrNotFound):
		logrus.WithField("checkpoint", name).Info("no checkpoint, starting fresh")
	default:
		logrus.WithError(err).Fatal("failed to load checkpoint")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := report.NewRecorder(100)
	if err := train(ctx, cfg, l, store, rec); err != nil {
		logrus.WithError(err).Error("training stopped")
	}

	if err := l.Save(store, name); err != nil {
		logrus.WithError(err).Error("failed to save final checkpoint")
	}
	if err := rec.WriteFile(cfg.Training.ReportPath); err != nil {
		logrus.WithError(err).Error("failed to write report")
		os.Exit(1)
	}
	logrus.WithFields(logrus.Fields{"episodes": rec.Len(), "report": cfg.Training.ReportPath}).Info("done")
}

// train plays episodes until the configured count is reached or ctx is cancelled. Zero episodes runs until cancelled.
func train(ctx context.Context, cfg *config.Config, l *qdeepneuro.Learner, store storage.Store, rec *report.Recorder) error {
	t := cfg.Training
	a := agent.New(l, cfg.Learner.BoardSize,
		agent.WithTrainEvery(t.TrainEvery),
		agent.WithSeed(cfg.Learner.Seed),
	)

	for ep := 1; t.Episodes == 0 || ep <= t.Episodes; ep++ {
		if ctx.Err() != nil {
			logrus.Info("interrupted")
			return nil
		}

		res, err := a.Play()
		if err != nil {
			return err
		}
		rec.Add(report.Episode{Loss: res.MeanLoss, Epsilon: res.Epsilon, Won: res.LearnerWon, Moves: res.Moves})

		if ep%t.TargetSyncEvery == 0 {
			if err := l.UpdateTarget(); err != nil {
				return err
			}
		}

		if ep%t.CheckpointEvery == 0 {
			if err := l.Save(store, t.CheckpointName); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"episode":  ep,
				"epsilon":  res.Epsilon,
				"loss":     res.MeanLoss,
				"win_rate": rec.WinRate(rec.Len() - 1),
			}).Info("checkpoint saved")
		}
	}
	return nil
}
