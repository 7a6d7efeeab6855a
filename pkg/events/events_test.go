package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/observability"
)

// fakeWriter is a test writer that records messages written.
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type publishCounts map[string][]error

func (c publishCounts) RecordPublish(topic string, err error) {
	c[topic] = append(c[topic], err)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	counts := publishCounts{}
	p := NewKafkaPublisherWithWriter(fw, "tenancy.events", counts)

	rel := models.Relation{
		ID: "r1", OrganizationID: "org-1", BranchID: "br-1", UserID: "u2",
		Role: models.RoleMember, RelationType: models.RelationTypeInvitationToUser,
	}
	require.NoError(t, PublishRelation(context.Background(), p, NewRelationEvent(TypeRelationInvited, rel, "u1")))

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "org-1", string(fw.msgs[0].Key))

	var got RelationEvent
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, TypeRelationInvited, got.Type)
	assert.Equal(t, "u1", got.ActorID)
	assert.Equal(t, models.RelationTypeInvitationToUser, got.RelationType)
	assert.Equal(t, []error{nil}, counts["tenancy.events"])

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	counts := publishCounts{}
	p := NewKafkaPublisherWithWriter(fw, "tenancy.sms", counts)

	err := p.Publish(context.Background(), "k", map[string]string{"a": "b"})
	assert.ErrorContains(t, err, "broker unavailable")
	require.Len(t, counts["tenancy.sms"], 1)
	assert.Error(t, counts["tenancy.sms"][0])
}

func TestKafkaPublisher_MarshalError(t *testing.T) {
	p := NewKafkaPublisherWithWriter(&fakeWriter{}, "t", nil)
	assert.Error(t, p.Publish(context.Background(), "k", make(chan int)))
}

func TestPublisherSMSNotifier(t *testing.T) {
	fw := &fakeWriter{}
	n := NewPublisherSMSNotifier(NewKafkaPublisherWithWriter(fw, "tenancy.sms", nil))

	require.NoError(t, n.SendSMS(context.Background(), "+15550001", "Your new password: abc"))

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "+15550001", string(fw.msgs[0].Key))
	var msg SMSMessage
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &msg))
	assert.Equal(t, "Your new password: abc", msg.Text)
}

func TestLogPublisher_DoesNotLogPayload(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher("tenancy.sms", observability.NewLogger(observability.InfoLevel, &buf))

	require.NoError(t, p.Publish(context.Background(), "+15550001", SMSMessage{Text: "secret-password"}))
	assert.Contains(t, buf.String(), "tenancy.sms")
	assert.NotContains(t, buf.String(), "secret-password")
}
