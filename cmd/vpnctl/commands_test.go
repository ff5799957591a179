//go:build !integration

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"vpn-subscription/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	root := rootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"hash-password", "s3cret"})

	require.NoError(t, root.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestLedgerList_RejectsUnknownStatus(t *testing.T) {
	root := rootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"ledger", "list", "--status", "open"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestPrintLedger(t *testing.T) {
	var out bytes.Buffer
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := printLedger(&out, []*model.RollbackEntry{{
		ID: "01HX", Operation: "add_client", SubscriberID: "u1", ServerID: "de-1",
		ClientID: "c-1", Status: model.RollbackStatusPending, CreatedAt: at, RollbackError: "panel down",
	}})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "2026-03-01T10:00:00Z")
	assert.Contains(t, lines[1], "panel down")
}
