// Package storetest holds the behavior every cmdflow.Store backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/meikuraledutech/cmdflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewPayload builds a small, savable command graph named name for serverID.
func NewPayload(t *testing.T, serverID, name string) *cmdflow.Payload {
	t.Helper()
	g := cmdflow.New()
	require.NoError(t, g.UpdateNodeData(g.Trigger().ID, map[string]any{
		"name":        name,
		"description": "Command " + name,
	}))
	_, err := g.AddBlock("option.user", cmdflow.Position{X: 10, Y: 10})
	require.NoError(t, err)
	act, err := g.AddBlock("action.send_message", cmdflow.Position{X: 200, Y: 10})
	require.NoError(t, err)
	g.Connect(g.Trigger().ID, act.ID, "", "")
	return cmdflow.Serialize(g, serverID)
}

// Run verifies that store adheres to the cmdflow.Store contract.
// Each run uses fresh server IDs, so it can target a shared database.
func Run(t *testing.T, store cmdflow.Store) {
	ctx := context.Background()
	server := "server-" + uuid.NewString()
	other := "server-" + uuid.NewString()

	t.Run("Create and Get", func(t *testing.T) {
		p := NewPayload(t, server, "alpha")
		id, err := store.Create(ctx, p)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := store.Get(ctx, server, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alpha", got.Name)
		assert.Equal(t, "Command alpha", got.Description)
		assert.Equal(t, server, got.ServerID)
		assert.Equal(t, cmdflow.Deserialize(p).Nodes(), cmdflow.Deserialize(got).Nodes())
		assert.ElementsMatch(t, p.Edges, got.Edges)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		got, err := store.Get(ctx, server, uuid.NewString())
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Get From Another Server", func(t *testing.T) {
		id, err := store.Create(ctx, NewPayload(t, server, "scoped"))
		require.NoError(t, err)

		got, err := store.Get(ctx, other, id)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Create Duplicate Name", func(t *testing.T) {
		_, err := store.Create(ctx, NewPayload(t, server, "dup"))
		require.NoError(t, err)

		_, err = store.Create(ctx, NewPayload(t, server, "dup"))
		assert.ErrorIs(t, err, cmdflow.ErrCommandExists)

		_, err = store.Create(ctx, NewPayload(t, other, "dup"))
		assert.NoError(t, err, "names are unique per server only")
	})

	t.Run("Update", func(t *testing.T) {
		id, err := store.Create(ctx, NewPayload(t, server, "beta"))
		require.NoError(t, err)

		p := NewPayload(t, server, "gamma")
		p.Description = "Renamed"
		require.NoError(t, store.Update(ctx, id, p))

		got, err := store.Get(ctx, server, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "gamma", got.Name)
		assert.Equal(t, "Renamed", got.Description)

		_, err = store.Create(ctx, NewPayload(t, server, "beta"))
		assert.NoError(t, err, "old name is released")
	})

	t.Run("Update Into Taken Name", func(t *testing.T) {
		_, err := store.Create(ctx, NewPayload(t, server, "taken"))
		require.NoError(t, err)
		id, err := store.Create(ctx, NewPayload(t, server, "free"))
		require.NoError(t, err)

		err = store.Update(ctx, id, NewPayload(t, server, "taken"))
		assert.ErrorIs(t, err, cmdflow.ErrCommandExists)

		got, err := store.Get(ctx, server, id)
		require.NoError(t, err)
		assert.Equal(t, "free", got.Name)
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		err := store.Update(ctx, uuid.NewString(), NewPayload(t, server, "ghost"))
		assert.ErrorIs(t, err, cmdflow.ErrCommandNotFound)
	})

	t.Run("List", func(t *testing.T) {
		listServer := "server-" + uuid.NewString()
		for _, name := range []string{"zeta", "eta", "theta"} {
			_, err := store.Create(ctx, NewPayload(t, listServer, name))
			require.NoError(t, err)
		}

		list, err := store.List(ctx, listServer)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "eta", list[0].Name)
		assert.Equal(t, "theta", list[1].Name)
		assert.Equal(t, "zeta", list[2].Name)
		for _, s := range list {
			assert.Equal(t, listServer, s.ServerID)
			assert.Equal(t, "Command "+s.Name, s.Description)
			assert.NotEmpty(t, s.ID)
		}

		empty, err := store.List(ctx, "server-"+uuid.NewString())
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("Delete", func(t *testing.T) {
		id, err := store.Create(ctx, NewPayload(t, server, "doomed"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, server, id))
		got, err := store.Get(ctx, server, id)
		assert.NoError(t, err)
		assert.Nil(t, got)

		assert.NoError(t, store.Delete(ctx, server, id), "deleting twice is fine")

		_, err = store.Create(ctx, NewPayload(t, server, "doomed"))
		assert.NoError(t, err, "name is released")
	})
}
