package event

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	var testCases = []struct {
		description string
		operator    string
		entity      string
		expect      string
	}{
		{description: "operator wins", operator: "op1", entity: "e1", expect: "operator:op1"},
		{description: "entity", entity: "e1", expect: "entity:e1"},
		{description: "public", expect: ChannelPublic},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, Channel(testCase.operator, testCase.entity), testCase.description)
	}
}

func TestService_PublishListen(t *testing.T) {
	srv, err := New(VendorMemory, WithLogger(hclog.NewNullLogger()))
	require.NoError(t, err)
	defer srv.Close()

	received := make(chan *Event[Notification], 2)
	require.NoError(t, SetListenerOf[Notification](srv, func(e *Event[Notification]) {
		received <- e
	}))
	publisher, err := PublisherOf[Notification](srv)
	require.NoError(t, err)

	notification := Notification{ProcessID: "p1", From: "NEW", To: "READY", Channel: ChannelPublic}
	require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{ProcessID: "p1", EventType: EventTypeTransition}, notification)))

	select {
	case e := <-received:
		assert.Equal(t, notification, e.Data)
		assert.Equal(t, EventTypeTransition, e.Context.EventType)
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestNew_UnsupportedVendor(t *testing.T) {
	_, err := New("fs")
	assert.Error(t, err)
}
