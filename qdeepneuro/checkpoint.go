package qdeepneuro

import (
	"encoding/json"
	"math"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// BlobStore persists named checkpoint blobs.
type BlobStore interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
}

// Matrix is the serialised form of a dense matrix, row-major.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type OptimizerBundle struct {
	Step   int               `json:"step"`
	First  map[string]Matrix `json:"first"`
	Second map[string]Matrix `json:"second"`
}

// Bundle is everything needed to resume training: online parameters, optimizer state and epsilon.
type Bundle struct {
	ID             string            `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	ModelState     map[string]Matrix `json:"model_state"`
	OptimizerState OptimizerBundle   `json:"optimizer_state"`
	Epsilon        float64           `json:"epsilon"`
}

func (l *Learner) ExportState() *Bundle {
	opt := l.network.OptimizerState()
	return &Bundle{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		ModelState: toMatrices(l.network.Parameters()),
		OptimizerState: OptimizerBundle{
			Step:   opt.Step,
			First:  toMatrices(opt.First),
			Second: toMatrices(opt.Second),
		},
		Epsilon: l.policy.Epsilon,
	}
}

// ImportState restores a bundle and resyncs the target network. The bundle is fully
// validated first; on error the learner is left untouched.
func (l *Learner) ImportState(b *Bundle) error {
	if b == nil {
		return errors.Wrap(ErrCorruptCheckpoint, "nil bundle")
	}

	params, err := fromMatrices(b.ModelState)
	if err != nil {
		return errors.Wrap(err, "model state")
	}
	first, err := fromMatrices(b.OptimizerState.First)
	if err != nil {
		return errors.Wrap(err, "optimizer first moment")
	}
	second, err := fromMatrices(b.OptimizerState.Second)
	if err != nil {
		return errors.Wrap(err, "optimizer second moment")
	}
	opt := OptimizerState{Step: b.OptimizerState.Step, First: first, Second: second}

	if err := checkShapes(l.network.Parameters(), params); err != nil {
		return errors.Wrap(err, "model state")
	}
	if err := checkOptimizerShapes(l.network.OptimizerState(), opt); err != nil {
		return err
	}
	if math.IsNaN(b.Epsilon) || b.Epsilon < 0 || b.Epsilon > 1 {
		return errors.Wrapf(ErrCorruptCheckpoint, "epsilon %v not in [0,1]", b.Epsilon)
	}

	if err := l.network.SetParameters(params); err != nil {
		return err
	}
	if err := l.network.SetOptimizerState(opt); err != nil {
		return err
	}
	// Epsilon never sits below the configured floor, even if the checkpoint predates it.
	l.policy.Epsilon = math.Max(l.policy.EpsilonMin, b.Epsilon)

	l.log.WithField("checkpoint", b.ID).Info("restored learner state")
	return l.UpdateTarget()
}

// Save writes the learner's state under name.
func (l *Learner) Save(store BlobStore, name string) error {
	data, err := Encode(l.ExportState())
	if err != nil {
		return err
	}
	if err := store.Save(name, data); err != nil {
		return errors.Wrapf(err, "failed to save checkpoint %s", name)
	}

	l.log.WithField("name", name).Info("saved checkpoint")
	return nil
}

// Load reads the checkpoint stored under name and imports it.
func (l *Learner) Load(store BlobStore, name string) error {
	data, err := store.Load(name)
	if err != nil {
		return errors.Wrapf(err, "failed to load checkpoint %s", name)
	}

	b, err := Decode(data)
	if err != nil {
		return errors.Wrapf(err, "checkpoint %s", name)
	}
	return l.ImportState(b)
}

// Encode serialises a bundle as snappy-compressed JSON.
func Encode(b *Bundle) ([]byte, error) {
	if err := checkFinite(b); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal checkpoint")
	}
	return snappy.Encode(nil, raw), nil
}

func Decode(data []byte) (*Bundle, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptCheckpoint, "decompress: %v", err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrapf(ErrCorruptCheckpoint, "unmarshal: %v", err)
	}
	return &b, nil
}

// checkFinite reports the first NaN or infinite value, which JSON cannot represent.
func checkFinite(b *Bundle) error {
	groups := []struct {
		name string
		ms   map[string]Matrix
	}{
		{"model state", b.ModelState},
		{"optimizer first moment", b.OptimizerState.First},
		{"optimizer second moment", b.OptimizerState.Second},
	}
	for _, g := range groups {
		for name, m := range g.ms {
			for i, v := range m.Data {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return errors.Wrapf(ErrNonFinite, "%s %s[%d] is %v", g.name, name, i, v)
				}
			}
		}
	}
	return nil
}

func toMatrices(p Parameters) map[string]Matrix {
	out := make(map[string]Matrix, len(p))
	for name, m := range p {
		r, c := m.Dims()
		data := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			data = append(data, m.RawRowView(i)...)
		}
		out[name] = Matrix{Rows: r, Cols: c, Data: data}
	}
	return out
}

func fromMatrices(ms map[string]Matrix) (Parameters, error) {
	p := make(Parameters, len(ms))
	for name, m := range ms {
		if m.Rows < 1 || m.Cols < 1 || len(m.Data) != m.Rows*m.Cols {
			return nil, errors.Wrapf(ErrCorruptCheckpoint, "parameter %s: %dx%d with %d values", name, m.Rows, m.Cols, len(m.Data))
		}
		data := make([]float64, len(m.Data))
		copy(data, m.Data)
		p[name] = mat.NewDense(m.Rows, m.Cols, data)
	}
	return p, nil
}
