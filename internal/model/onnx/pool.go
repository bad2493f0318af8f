package onnx

import (
	"context"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ModelSpec describes one ONNX model with a single float32 input and a
// single float32 output.
type ModelSpec struct {
	Path        string
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
}

// slot is one inference session with its bound tensors. A slot is used by
// one caller at a time.
type slot struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func newSlot(spec ModelSpec, threads int) (*slot, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	if threads > 0 {
		if err := options.SetIntraOpNumThreads(threads); err != nil {
			input.Destroy()
			output.Destroy()
			return nil, errors.Wrap(err, "set intra-op threads")
		}
	}

	session, err := ort.NewAdvancedSession(
		spec.Path,
		[]string{spec.InputName},
		[]string{spec.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "load model %s", spec.Path)
	}

	return &slot{session: session, input: input, output: output}, nil
}

func (s *slot) destroy() {
	s.session.Destroy()
	s.input.Destroy()
	s.output.Destroy()
}

// pool holds a fixed number of slots for one model. ONNX Runtime sessions
// bound to fixed tensors are not reentrant, so every inference checks a slot
// out of the pool and returns it afterwards. With one slot, inference on the
// model is fully serialised.
type pool struct {
	name  string
	slots chan *slot
	all   []*slot
}

func newPool(name string, spec ModelSpec, size, threads int) (*pool, error) {
	if size < 1 {
		size = 1
	}
	p := &pool{name: name, slots: make(chan *slot, size)}
	for i := 0; i < size; i++ {
		s, err := newSlot(spec, threads)
		if err != nil {
			p.close()
			return nil, errors.Wrapf(err, "%s session %d", name, i)
		}
		p.all = append(p.all, s)
		p.slots <- s
	}
	return p, nil
}

// run waits for a free slot, lets fill write the input tensor, runs the
// model and hands the output tensor to read. Neither callback may keep the
// slices it is given.
func (p *pool) run(ctx context.Context, fill func(input []float32), read func(output []float32) error) error {
	var s *slot
	select {
	case s = <-p.slots:
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for %s session", p.name)
	}
	defer func() { p.slots <- s }()

	fill(s.input.GetData())
	if err := s.session.Run(); err != nil {
		return errors.Wrapf(err, "%s inference", p.name)
	}
	return read(s.output.GetData())
}

func (p *pool) close() {
	for _, s := range p.all {
		s.destroy()
	}
	p.all = nil
}
