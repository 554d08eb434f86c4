package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naijamall/naijamall-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/naijamall/topics/orders", topicResourceName("naijamall", "orders"))
	assert.Equal(t, "projects/other/topics/x", topicResourceName("naijamall", "projects/other/topics/x"))
	assert.Empty(t, topicResourceName("", "orders"))
	assert.Empty(t, topicResourceName("naijamall", "  "))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: " orders ", PaymentsTopic: ""})
	assert.Equal(t, []string{"orders"}, names)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}

func TestClientOptionsUseCredentialsFile(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{ProjectID: "naijamall"}))
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "naijamall"}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errNoTopics)
}
