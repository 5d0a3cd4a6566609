package camera

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
)

// Still is a frame's payload copied out of driver memory.
type Still struct {
	RequestID  string
	Data       []byte
	Dimensions videoframe.Dimensions
	Format     videoframe.Format
	Timestamp  time.Time
}

type FrameHandler func(Still)

type Result struct {
	Still Still
	Err   error
}

// Request is a single "take one picture now". It resolves exactly
// once, with either a still or an error.
type Request struct {
	id     string
	once   sync.Once
	done   chan struct{}
	result Result
}

func newRequest() *Request {
	return &Request{id: uuid.NewString(), done: make(chan struct{})}
}

func (r *Request) ID() string {
	return r.id
}

func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result blocks until the request has resolved.
func (r *Request) Result() (Still, error) {
	<-r.done
	return r.result.Still, r.result.Err
}

func (r *Request) Wait(ctx context.Context) (Still, error) {
	select {
	case <-r.done:
		return r.result.Still, r.result.Err
	case <-ctx.Done():
		return Still{}, ctx.Err()
	}
}

func (r *Request) resolve(result Result) {
	r.once.Do(func() {
		r.result = result
		close(r.done)
	})
}
