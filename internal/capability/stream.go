package capability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"pkt.systems/pslog"

	"pkt.systems/roomlink/schema"
)

var errMissingEventName = errors.New("capture event missing name")

// captureStream reads the helper's JSONL event output. Each line is one
// capture event keyed by name; undecodable lines are logged and skipped
// so one bad line does not end the stream.
type captureStream struct {
	reader *bufio.Reader
	log    pslog.Logger
}

func newCaptureStream(r io.Reader, log pslog.Logger) *captureStream {
	return &captureStream{reader: bufio.NewReader(r), log: log}
}

func (s *captureStream) Next() (schema.CaptureEvent, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return schema.CaptureEvent{}, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return schema.CaptureEvent{}, err
			}
			continue
		}
		event, decodeErr := decodeCaptureLine(line)
		if decodeErr != nil {
			if s.log != nil {
				s.log.Warn("skipping undecodable capture line", "err", decodeErr)
			}
			if err != nil {
				return schema.CaptureEvent{}, err
			}
			continue
		}
		return event, nil
	}
}

func decodeCaptureLine(line []byte) (schema.CaptureEvent, error) {
	var event schema.CaptureEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return schema.CaptureEvent{}, err
	}
	if event.Name == "" {
		return schema.CaptureEvent{}, errMissingEventName
	}
	return event, nil
}
