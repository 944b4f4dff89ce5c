package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// JSONWriter writes every event in structured JSON mode, one per line. The
// topic travels as the "topic" extension attribute.
type JSONWriter struct {
	lock sync.Mutex
	enc  *json.Encoder
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

func (s *JSONWriter) Write(_ context.Context, topic string, e cloudevents.Event) error {
	if topic != "" {
		e.SetExtension(topicExtension, topic)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.enc.Encode(e)
}

func (s *JSONWriter) Close(_ context.Context) error {
	return nil
}
