package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Antonite/gobang_rl/gobang"
	"github.com/Antonite/gobang_rl/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, 15, c.Learner.BoardSize)
	require.Equal(t, gobang.Channels, c.Learner.Channels)
	require.Equal(t, 10000, c.Learner.MemorySize)
	require.Equal(t, 64, c.Learner.BatchSize)
	require.Equal(t, 0.99, c.Learner.Gamma)
	require.Equal(t, 1.0, c.Learner.Epsilon)
	require.Equal(t, 0.01, c.Learner.EpsilonMin)
	require.Equal(t, 0.995, c.Learner.EpsilonDecay)
	require.Equal(t, 0.001, c.Learner.LearningRate)
	require.Equal(t, BackendFile, c.Storage.Backend)
	require.Equal(t, storage.DefaultDir, c.Storage.Dir)
	require.Equal(t, logrus.InfoLevel, c.LogLevel)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GOBANG_BOARD_SIZE", "9")
	t.Setenv("GOBANG_EPSILON_DECAY", "0.9")
	t.Setenv("GOBANG_SEED", "42")
	t.Setenv("GOBANG_TARGET_SYNC_EVERY", "3")
	t.Setenv("GOBANG_LOG_LEVEL", "debug")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9, c.Learner.BoardSize)
	require.Equal(t, 0.9, c.Learner.EpsilonDecay)
	require.Equal(t, uint64(42), c.Learner.Seed)
	require.Equal(t, 3, c.Training.TargetSyncEvery)
	require.Equal(t, logrus.DebugLevel, c.LogLevel)
}

func TestDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOBANG_BATCH_SIZE=16\nGOBANG_CHECKPOINT_NAME=small.ckpt\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("GOBANG_BATCH_SIZE")
		os.Unsetenv("GOBANG_CHECKPOINT_NAME")
	})

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 16, c.Learner.BatchSize)
	require.Equal(t, "small.ckpt", c.Training.CheckpointName)
}

func TestInvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		"GOBANG_BATCH_SIZE":    "many",
		"GOBANG_GAMMA":         "1.5",
		"GOBANG_STORAGE":       "tape",
		"GOBANG_TRAIN_EVERY":   "0",
		"GOBANG_LOG_LEVEL":     "loud",
		"GOBANG_EPSILON_DECAY": "0",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestFileStoreBackend(t *testing.T) {
	c := Default()
	c.Storage.Dir = t.TempDir()

	s, err := c.Store()
	require.NoError(t, err)
	require.IsType(t, &storage.FileStore{}, s)
}
