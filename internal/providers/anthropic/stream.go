package anthropic

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"llmarena/internal/core"
)

const maxSSELine = 1 << 20

// anthropicStreamEvent represents a streaming event from Anthropic
type anthropicStreamEvent struct {
	Type  string          `json:"type"`
	Delta *anthropicDelta `json:"delta,omitempty"`
	Error *anthropicError `json:"error,omitempty"`
}

// anthropicDelta represents a delta in streaming response
type anthropicDelta struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// messageStream turns a Messages API event stream into fragments.
type messageStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	wrap    func(error) error
	done    bool
}

func newMessageStream(body io.ReadCloser, wrap func(error) error) *messageStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &messageStream{body: body, scanner: scanner, wrap: wrap}
}

func (s *messageStream) Recv() (core.Fragment, error) {
	if s.done {
		return core.Fragment{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		// event: lines repeat the type carried in data
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				return core.Fragment{Text: event.Delta.Text}, nil
			}
		case "message_stop":
			s.done = true
			return core.Fragment{Final: true}, nil
		case "error":
			s.done = true
			msg := "stream error"
			if event.Error != nil && event.Error.Message != "" {
				msg = event.Error.Message
			}
			return core.Fragment{}, s.wrap(errors.New(msg))
		}
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return core.Fragment{}, s.wrap(err)
	}
	return core.Fragment{Final: true}, nil
}

func (s *messageStream) Close() error {
	s.done = true
	return s.body.Close()
}
