package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialSQLiteStore(t *testing.T) {
	t.Run("success - credential is stored and read back", func(t *testing.T) {
		// arrange
		username := fmt.Sprintf("builder%d", time.Now().UnixNano())

		// act
		c, createErr := credentialStore.CreateCredential(
			context.Background(), username, "build agent", "encryptedhash")
		read, readErr := credentialStore.ReadCredentialByID(context.Background(), c.CredentialID)

		// assert
		assert.NoError(t, createErr)
		assert.NoError(t, readErr)
		assert.Equal(t, username, read.Username)
		assert.Equal(t, "build agent", read.Description)
		assert.Equal(t, "encryptedhash", read.SSHPrivateKeyHash)
	})
	t.Run("success - credential updates", func(t *testing.T) {
		// arrange
		c, err := credentialStore.CreateCredential(
			context.Background(), "olduser", "old", "hash")
		assert.NoError(t, err)

		// act
		updateErr := credentialStore.UpdateCredential(
			context.Background(), c.CredentialID, "newuser", "new")
		read, readErr := credentialStore.ReadCredentialByID(context.Background(), c.CredentialID)

		// assert
		assert.NoError(t, updateErr)
		assert.NoError(t, readErr)
		assert.Equal(t, "newuser", read.Username)
		assert.Equal(t, "new", read.Description)
	})
	t.Run("failure - deleting a credential used by an agent", func(t *testing.T) {
		// arrange
		c, err := credentialStore.CreateCredential(
			context.Background(), "inuse", "", "hash")
		assert.NoError(t, err)
		_, err = agentStore.CreateAgent(
			context.Background(), c.CredentialID,
			fmt.Sprintf("agent-%d", time.Now().UnixNano()),
			"host", "jobs", "", "unix")
		assert.NoError(t, err)

		// act
		deleteErr := credentialStore.DeleteCredential(context.Background(), c.CredentialID)

		// assert
		assert.Error(t, deleteErr)
	})
}

func TestAgentSQLiteStore(t *testing.T) {
	t.Run("success - controller agent has no credential", func(t *testing.T) {
		// act
		a, err := agentStore.CreateControllerAgent(context.Background())

		// assert
		assert.NoError(t, err)
		assert.NotNil(t, a)
		assert.Nil(t, a.AgentCredentialID)
		assert.Equal(t, "localhost", a.Hostname)
	})
	t.Run("success - agent is read back", func(t *testing.T) {
		// arrange
		c, err := credentialStore.CreateCredential(
			context.Background(), "reader", "", "hash")
		assert.NoError(t, err)
		a, err := agentStore.CreateAgent(
			context.Background(), c.CredentialID,
			"build agent", "build-02.internal", "jobs", "fast box", "unix")
		assert.NoError(t, err)

		// act
		read, readErr := agentStore.ReadAgentByID(context.Background(), a.AgentID)

		// assert
		assert.NoError(t, readErr)
		assert.Equal(t, a.AgentID, read.AgentID)
		assert.NotNil(t, read.AgentCredentialID)
		assert.Equal(t, c.CredentialID, *read.AgentCredentialID)
		assert.Equal(t, "build-02.internal", read.Hostname)
	})
	t.Run("failure - agent is not found", func(t *testing.T) {
		// act
		read, err := agentStore.ReadAgentByID(context.Background(), 987654)

		// assert
		assert.Error(t, err)
		assert.True(t, errors.Is(err, sql.ErrNoRows))
		assert.Nil(t, read)
	})
}
