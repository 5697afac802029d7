package openai

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"llmarena/internal/core"
)

const maxSSELine = 1 << 20

// chatStream turns an upstream chat completions SSE body into fragments.
type chatStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	wrap    func(error) error
	done    bool
}

func newChatStream(body io.ReadCloser, wrap func(error) error) *chatStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &chatStream{body: body, scanner: scanner, wrap: wrap}
}

func (s *chatStream) Recv() (core.Fragment, error) {
	if s.done {
		return core.Fragment{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		// blank separators and ": keep-alive" comments
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if data == "[DONE]" {
			s.done = true
			return core.Fragment{Final: true}, nil
		}
		if msg := gjson.Get(data, "error.message"); msg.Exists() {
			s.done = true
			return core.Fragment{}, s.wrap(errors.New(msg.String()))
		}

		text := gjson.Get(data, "choices.0.delta.content").String()
		if text == "" {
			continue
		}
		return core.Fragment{Text: text}, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return core.Fragment{}, s.wrap(err)
	}
	// upstream closed without [DONE]
	return core.Fragment{Final: true}, nil
}

func (s *chatStream) Close() error {
	s.done = true
	return s.body.Close()
}

// singleStream yields one text fragment, then the final marker.
type singleStream struct {
	pending []core.Fragment
}

func newSingleStream(text string) *singleStream {
	var frags []core.Fragment
	if text != "" {
		frags = append(frags, core.Fragment{Text: text})
	}
	return &singleStream{pending: append(frags, core.Fragment{Final: true})}
}

func (s *singleStream) Recv() (core.Fragment, error) {
	if len(s.pending) == 0 {
		return core.Fragment{}, io.EOF
	}
	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

func (s *singleStream) Close() error {
	s.pending = nil
	return nil
}
