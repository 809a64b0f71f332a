//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	api "github.com/oshokin/wellness-node/internal/api/grpc/actuator"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	_, ok := metadata.FromOutgoingContext(ctx)
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_callContextActor attaches the actor as metadata.
func TestClient_callContextActor(t *testing.T) {
	t.Parallel()

	c := new(Client)
	WithActor(Actor{Hostname: "bathroom", Username: "o.shokin"})(c)

	ctx, cancel := c.callContext(context.Background())
	defer cancel()

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	require.Equal(t, []string{"o.shokin@bathroom"}, md.Get(api.MetadataActor))
}

// TestClose_Nil tolerates clients that never connected.
func TestClose_Nil(t *testing.T) {
	t.Parallel()

	var c *Client

	require.NoError(t, c.Close())
	require.NoError(t, new(Client).Close())
}
