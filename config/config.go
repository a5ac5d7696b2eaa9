// Package config assembles runtime settings from defaults, an optional .env file and GOBANG_* variables.
package config

import (
	"os"
	"strconv"

	"github.com/Antonite/gobang_rl/gobang"
	"github.com/Antonite/gobang_rl/qdeepneuro"
	"github.com/Antonite/gobang_rl/storage"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	BackendFile      = "file"
	BackendCouchbase = "couchbase"
)

type Training struct {
	Episodes        int
	TrainEvery      int
	TargetSyncEvery int
	CheckpointEvery int
	CheckpointName  string
	ReportPath      string
}

type Storage struct {
	Backend string
	Dir     string
	Host    string
	User    string
	Pass    string
	Bucket  string
}

type Config struct {
	Learner  qdeepneuro.Config
	Training Training
	Storage  Storage
	Addr     string
	LogLevel logrus.Level
}

func Default() *Config {
	learner := qdeepneuro.DefaultConfig()
	learner.Channels = gobang.Channels

	return &Config{
		Learner: learner,
		Training: Training{
			Episodes:        1000,
			TrainEvery:      1,
			TargetSyncEvery: 10,
			CheckpointEvery: 100,
			CheckpointName:  "gobang_dqn.ckpt",
			ReportPath:      "charts/training.html",
		},
		Storage: Storage{
			Backend: BackendFile,
			Dir:     storage.DefaultDir,
			Host:    "localhost",
			Bucket:  "gobang",
		},
		Addr:     ":8081",
		LogLevel: logrus.InfoLevel,
	}
}

// Load reads the .env file at path when it exists, then applies GOBANG_* environment variables over the defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}

	c := Default()
	e := &env{}

	e.int("GOBANG_BOARD_SIZE", &c.Learner.BoardSize)
	e.int("GOBANG_MEMORY_SIZE", &c.Learner.MemorySize)
	e.int("GOBANG_BATCH_SIZE", &c.Learner.BatchSize)
	e.int("GOBANG_HIDDEN_SIZE", &c.Learner.HiddenSize)
	e.float("GOBANG_GAMMA", &c.Learner.Gamma)
	e.float("GOBANG_EPSILON", &c.Learner.Epsilon)
	e.float("GOBANG_EPSILON_MIN", &c.Learner.EpsilonMin)
	e.float("GOBANG_EPSILON_DECAY", &c.Learner.EpsilonDecay)
	e.float("GOBANG_LEARNING_RATE", &c.Learner.LearningRate)
	e.uint("GOBANG_SEED", &c.Learner.Seed)

	e.int("GOBANG_EPISODES", &c.Training.Episodes)
	e.int("GOBANG_TRAIN_EVERY", &c.Training.TrainEvery)
	e.int("GOBANG_TARGET_SYNC_EVERY", &c.Training.TargetSyncEvery)
	e.int("GOBANG_CHECKPOINT_EVERY", &c.Training.CheckpointEvery)
	e.string("GOBANG_CHECKPOINT_NAME", &c.Training.CheckpointName)
	e.string("GOBANG_REPORT_PATH", &c.Training.ReportPath)

	e.string("GOBANG_STORAGE", &c.Storage.Backend)
	e.string("GOBANG_CHECKPOINT_DIR", &c.Storage.Dir)
	e.string("GOBANG_COUCHBASE_HOST", &c.Storage.Host)
	e.string("GOBANG_COUCHBASE_USER", &c.Storage.User)
	e.string("GOBANG_COUCHBASE_PASS", &c.Storage.Pass)
	e.string("GOBANG_COUCHBASE_BUCKET", &c.Storage.Bucket)

	e.string("GOBANG_ADDR", &c.Addr)
	e.level("GOBANG_LOG_LEVEL", &c.LogLevel)

	if e.err != nil {
		return nil, e.err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if err := c.Learner.Validate(); err != nil {
		return err
	}

	t := c.Training
	if t.Episodes < 0 || t.TrainEvery < 1 || t.TargetSyncEvery < 1 || t.CheckpointEvery < 1 {
		return errors.Errorf("invalid training cadence: episodes %d, train every %d, target sync every %d, checkpoint every %d",
			t.Episodes, t.TrainEvery, t.TargetSyncEvery, t.CheckpointEvery)
	}
	if t.CheckpointName == "" {
		return errors.New("checkpoint name is empty")
	}

	switch c.Storage.Backend {
	case BackendFile, BackendCouchbase:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Store opens the configured checkpoint store.
func (c *Config) Store() (storage.Store, error) {
	if c.Storage.Backend == BackendCouchbase {
		return storage.NewCouchbase(c.Storage.Host, c.Storage.User, c.Storage.Pass, c.Storage.Bucket)
	}
	return storage.NewFileStore(c.Storage.Dir), nil
}

// env parses variables and keeps the first error.
type env struct {
	err error
}

func (e *env) lookup(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func (e *env) string(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *env) int(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.err = errors.Wrapf(err, "%s", key)
			return
		}
		*dst = n
	}
}

func (e *env) uint(key string, dst *uint64) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.err = errors.Wrapf(err, "%s", key)
			return
		}
		*dst = n
	}
}

func (e *env) float(key string, dst *float64) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.err = errors.Wrapf(err, "%s", key)
			return
		}
		*dst = f
	}
}

func (e *env) level(key string, dst *logrus.Level) {
	if v, ok := e.lookup(key); ok {
		l, err := logrus.ParseLevel(v)
		if err != nil {
			e.err = errors.Wrapf(err, "%s", key)
			return
		}
		*dst = l
	}
}
