package messaging

import "sort"

// Transport adapters convert the native message shape of a broker client
// into a Message. They only move data around; matching semantics are the
// same for every transport.

// KafkaHeader is a record header. Kafka header values are raw bytes,
// often JSON encoded strings.
type KafkaHeader struct {
	Key   string
	Value []byte
}

// KafkaRecord is a consumed Kafka record.
type KafkaRecord struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []KafkaHeader
}

// FromKafka converts a record. Later headers with the same key win.
func FromKafka(r KafkaRecord) *Message {
	headers := make(map[string]any, len(r.Headers)+2)
	for _, h := range r.Headers {
		headers[h.Key] = h.Value
	}
	headers["kafka_receivedTopic"] = r.Topic
	if r.Key != nil {
		headers["kafka_receivedMessageKey"] = r.Key
	}
	return NewMessage(r.Topic, r.Value, headers)
}

// ToKafka converts an output message into a record for its destination.
func ToKafka(m *Message) KafkaRecord {
	rec := KafkaRecord{Topic: m.Destination, Value: m.Bytes()}
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.Headers = append(rec.Headers, KafkaHeader{Key: k, Value: []byte(m.HeaderString(k))})
	}
	return rec
}

// AMQPDelivery is a message delivered by an AMQP broker.
type AMQPDelivery struct {
	Exchange    string
	RoutingKey  string
	ContentType string
	MessageID   string
	Headers     map[string]any
	Body        []byte
}

// FromAMQP converts a delivery. The destination is the exchange; the
// routing key and the message properties become headers.
func FromAMQP(d AMQPDelivery) *Message {
	headers := make(map[string]any, len(d.Headers)+3)
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers["amqp_receivedRoutingKey"] = d.RoutingKey
	if d.ContentType != "" {
		headers[HeaderContentType] = d.ContentType
	}
	if d.MessageID != "" {
		headers["amqp_messageId"] = d.MessageID
	}
	return NewMessage(d.Exchange, d.Body, headers)
}

// StreamMessage is a message of a binder based streaming abstraction,
// where payloads may already be deserialized.
type StreamMessage struct {
	Destination string
	Headers     map[string]any
	Payload     any
}

// FromStream converts a stream message. The payload is kept as is.
func FromStream(s StreamMessage) *Message {
	headers := make(map[string]any, len(s.Headers))
	for k, v := range s.Headers {
		headers[k] = v
	}
	return NewMessage(s.Destination, s.Payload, headers)
}

// CamelExchange is the inbound side of an integration route.
type CamelExchange struct {
	Endpoint   string
	Headers    map[string]any
	Properties map[string]any
	Body       any
}

// FromCamel converts an exchange. Exchange properties are visible as
// headers unless a header of the same name exists.
func FromCamel(e CamelExchange) *Message {
	headers := make(map[string]any, len(e.Headers)+len(e.Properties))
	for k, v := range e.Properties {
		headers[k] = v
	}
	for k, v := range e.Headers {
		headers[k] = v
	}
	return NewMessage(e.Endpoint, e.Body, headers)
}
