package steps

import (
	"io"
)

// FragmentStream is the reply of a chat request as a pull-based sequence of text
// fragments. Recv returns fragments in arrival order and io.EOF once the remote side
// signals completion. A stream cannot be restarted.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// SliceStream replays a fixed list of fragments, optionally failing after them.
type SliceStream struct {
	fragments []string
	err       error
	idx       int
	closed    bool
}

var _ FragmentStream = &SliceStream{}

// NewSliceStream returns a stream that yields fragments and then err. A nil err
// ends the stream with io.EOF.
func NewSliceStream(fragments []string, err error) *SliceStream {
	return &SliceStream{
		fragments: fragments,
		err:       err,
	}
}

func (s *SliceStream) Recv() (string, error) {
	if s.closed {
		return "", io.EOF
	}
	if s.idx < len(s.fragments) {
		f := s.fragments[s.idx]
		s.idx++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Collect drains stream and returns the concatenated text. The stream is closed on
// return.
func Collect(stream FragmentStream) (string, error) {
	defer func() {
		_ = stream.Close()
	}()

	ret := ""
	for {
		f, err := stream.Recv()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return ret, err
		}
		ret += f
	}
}
