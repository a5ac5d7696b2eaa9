package main

import (
	"net/http"

	"github.com/Antonite/gobang_rl/config"
	"github.com/Antonite/gobang_rl/qdeepneuro"
	"github.com/Antonite/gobang_rl/server"
	"github.com/Antonite/gobang_rl/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logrus.SetLevel(cfg.LogLevel)

	store, err := cfg.Store()
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize storage")
	}

	l, err := qdeepneuro.NewLearner(cfg.Learner)
	if err != nil {
		logrus.WithError(err).Fatal("failed to build learner")
	}
	if err := l.Load(store, cfg.Training.CheckpointName); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logrus.WithError(err).Fatal("failed to load checkpoint")
		}
		logrus.Warn("no checkpoint found, serving an untrained network")
	}
	store.Close()

	mux := http.NewServeMux()
	server.New(l, cfg.Learner.BoardSize).Routes(mux)

	logrus.WithField("addr", cfg.Addr).Info("server started")
	logrus.Fatal(http.ListenAndServe(cfg.Addr, mux))
}
