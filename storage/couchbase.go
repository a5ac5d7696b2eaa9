package storage

import (
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix  = "checkpoint::"
	maxRetries = 20
)

// Couchbase keeps checkpoints as raw binary documents in a bucket's default collection.
type Couchbase struct {
	cluster    *gocb.Cluster
	collection *gocb.Collection
	transcoder gocb.Transcoder
	log        *logrus.Entry
}

func NewCouchbase(host, user, pass, bucketName string) (*Couchbase, error) {
	cluster, err := gocb.Connect(
		host,
		gocb.ClusterOptions{
			Username:             user,
			Password:             pass,
			CircuitBreakerConfig: gocb.CircuitBreakerConfig{Disabled: true},
		})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", host)
	}

	bucket := cluster.Bucket(bucketName)
	err = bucket.WaitUntilReady(5*time.Second, nil)
	if err != nil {
		cluster.Close(nil)
		return nil, errors.Wrapf(err, "bucket %s not ready", bucketName)
	}

	return &Couchbase{
		cluster:    cluster,
		collection: bucket.DefaultCollection(),
		transcoder: gocb.NewRawBinaryTranscoder(),
		log:        logrus.WithFields(logrus.Fields{"component": "storage", "bucket": bucketName}),
	}, nil
}

func (s *Couchbase) Save(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}

	retries := 1
	for {
		_, err := s.collection.Upsert(documentKey(name), data, &gocb.UpsertOptions{Transcoder: s.transcoder})
		if err == nil {
			return nil
		}

		retries++
		if retries > maxRetries {
			return errors.Wrapf(err, "failed to upsert %s", name)
		}
		s.log.WithError(err).WithField("retry", retries).Warn("upsert failed")
		time.Sleep(backoff(retries))
	}
}

func (s *Couchbase) Load(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	retries := 1
	var r *gocb.GetResult
	for {
		var err error
		r, err = s.collection.Get(documentKey(name), &gocb.GetOptions{Transcoder: s.transcoder})
		if err == nil {
			break
		}
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "%s", name)
		}

		retries++
		if retries > maxRetries {
			return nil, errors.Wrapf(err, "failed to get %s", name)
		}
		s.log.WithError(err).WithField("retry", retries).Warn("get failed")
		time.Sleep(backoff(retries))
	}

	var data []byte
	if err := r.Content(&data); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return data, nil
}

func (s *Couchbase) Close() error {
	return s.cluster.Close(nil)
}

func documentKey(name string) string {
	return keyPrefix + name
}

func backoff(retries int) time.Duration {
	return time.Millisecond * 100 * time.Duration(retries)
}
