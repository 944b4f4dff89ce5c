package events

const (
	// StatSampleKind is the event type of one polled counter value.
	StatSampleKind string = "io.kubev2v.vsphere-inspector.stat.sample"
	defaultTopic   string = "vsphere-inspector.samples"
	defaultSource  string = "vsphere-inspector"

	topicExtension = "topic"
)

type ProducerOptions func(e *EventProducer)

// WithOutputTopic sets the topic handed to the writer with every event.
func WithOutputTopic(topic string) ProducerOptions {
	return func(e *EventProducer) {
		e.topic = topic
	}
}

// WithSource sets the source attribute of every event, usually the vCenter
// the samples were read from.
func WithSource(source string) ProducerOptions {
	return func(e *EventProducer) {
		e.source = source
	}
}
