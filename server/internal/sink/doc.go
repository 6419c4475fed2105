// Package sink publishes simulation output to external systems.
//
// A Shipper sits between the scheduler subscription and a Publisher. It holds
// a small drop-oldest buffer so a slow or unreachable broker never stalls the
// simulation, and retries failed publishes with jittered exponential backoff.
//
// Two publishers are provided:
//
//   - KafkaPublisher writes JSON messages keyed by line id to a metrics topic
//     and, optionally, a notifications topic.
//   - MQTTPublisher writes JSON payloads to per-line topics under a prefix.
package sink
