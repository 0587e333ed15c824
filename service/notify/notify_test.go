package notify

import (
	"context"
	"encoding/json"
	"testing"

	"SMProject/service/kafka"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivered struct {
	user, event string
	data        any
}

type fakeSink struct {
	got []delivered
}

func (f *fakeSink) NotifyUser(identity, event string, data any) bool {
	f.got = append(f.got, delivered{identity, event, data})
	return true
}

func TestLocalNotify(t *testing.T) {
	sink := &fakeSink{}
	n, err := New("m1", EventApplicationSubmitted, map[string]string{"projectId": "p1"})
	require.NoError(t, err)

	require.NoError(t, NewLocal(sink).Notify(context.Background(), n))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "m1", sink.got[0].user)
	assert.Equal(t, EventApplicationSubmitted, sink.got[0].event)
	assert.JSONEq(t, `{"projectId":"p1"}`, string(sink.got[0].data.(json.RawMessage)))

	assert.Error(t, NewLocal(sink).Notify(context.Background(), Notification{Event: "x"}))
}

func TestKafkaRoundTrip(t *testing.T) {
	var sent []byte
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		sent = val
		return nil
	})

	n, err := New("c1", EventApplicationStatusUpdated, map[string]string{"status": "accepted"})
	require.NoError(t, err)
	require.NoError(t, NewKafka(kafka.NewProducer(sp), "smc.notifications").Notify(context.Background(), n))
	require.NotEmpty(t, sent)

	sink := &fakeSink{}
	r := kafka.NewRouter()
	r.RegisterHandler("smc.notifications", Handler(sink))
	require.NoError(t, r.Handle(&sarama.ConsumerMessage{Topic: "smc.notifications", Value: sent}))

	require.Len(t, sink.got, 1)
	assert.Equal(t, "c1", sink.got[0].user)
	assert.Equal(t, EventApplicationStatusUpdated, sink.got[0].event)
	assert.JSONEq(t, `{"status":"accepted"}`, string(sink.got[0].data.(json.RawMessage)))
}

func TestHandlerRejectsGarbage(t *testing.T) {
	h := Handler(&fakeSink{})
	assert.Error(t, h("t", nil, []byte("nope")))
	assert.Error(t, h("t", nil, []byte(`{"event":"x"}`)))
}
