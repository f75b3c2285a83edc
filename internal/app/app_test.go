package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/config"
)

func TestOptionalCollaboratorsAreUntypedNil(t *testing.T) {
	cfg := &config.Config{}
	clients := &aws.AWSClients{}

	assert.Nil(t, Outbox(cfg, clients))
	// a typed nil inside the interface would make the dispatcher call through it
	assert.True(t, Alerter(cfg, clients) == nil)
}

func TestOptionalCollaboratorsEnabled(t *testing.T) {
	cfg := &config.Config{FulfillmentTable: "fulfillment", AlertsEnabled: true, MetricsNamespace: "Shop"}
	clients := &aws.AWSClients{}

	store := Outbox(cfg, clients)
	if assert.NotNil(t, store) {
		assert.Equal(t, "fulfillment", store.TableName())
	}
	assert.NotNil(t, Alerter(cfg, clients))
}
