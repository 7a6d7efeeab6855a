// Package events publishes domain events and SMS requests to Kafka.
//
// Without brokers configured, LogPublisher records that a message would
// have been sent so the rest of the service runs unchanged.
package events
