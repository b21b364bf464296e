package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestComputeChecksumStable(t *testing.T) {
	a := &Snapshot{Payload: bson.M{"name": "Court A", "capacity": 4, "indoor": true}}
	b := &Snapshot{Payload: bson.M{"indoor": true, "capacity": 4, "name": "Court A"}}

	assert.NotEmpty(t, a.ComputeChecksum())
	assert.Equal(t, a.ComputeChecksum(), b.ComputeChecksum(), "key order must not change the digest")

	c := &Snapshot{Payload: bson.M{"name": "Court B", "capacity": 4, "indoor": true}}
	assert.NotEqual(t, a.ComputeChecksum(), c.ComputeChecksum())
}

func TestComputeChecksumEmptyPayload(t *testing.T) {
	assert.Empty(t, (&Snapshot{}).ComputeChecksum())
	var nilSnap *Snapshot
	assert.Empty(t, nilSnap.ComputeChecksum())
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, SystemExporta.Valid())
	assert.False(t, ExternalSystem("mystery").Valid())

	assert.True(t, EntityBooking.Valid())
	assert.False(t, InternalEntityType("widget").Valid())

	assert.True(t, ActionDeleted.Valid())
	assert.False(t, WebhookAction("exploded").Valid())
}
