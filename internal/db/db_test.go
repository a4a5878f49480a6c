package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transaction-desk/internal/recordstore"
)

func TestMigrationsEmbedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	all := ""
	for _, m := range migrations {
		all += m
	}
	for _, table := range []string{"transactions", "parties", "transaction_documents"} {
		assert.Contains(t, all, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestConnect_EmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}

func TestParseRecordID(t *testing.T) {
	_, err := parseRecordID("attach document", "rec42")
	var storeErr *recordstore.RecordStoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "attach document", storeErr.Op)

	id, err := parseRecordID("attach document", "0b5f3a34-5a8e-4a4e-9d87-6f0f3f7d2c11")
	require.NoError(t, err)
	assert.Equal(t, "0b5f3a34-5a8e-4a4e-9d87-6f0f3f7d2c11", id.String())
}

func TestInvalidRecordIDFailsBeforeQuery(t *testing.T) {
	// a DB without a pool must never be touched when the id is invalid
	db := &DB{}
	err := db.AttachDocument(context.Background(), "not-a-uuid", "Sheet", "a.pdf", []byte("x"))
	assert.Error(t, err)

	err = db.LinkDocumentURL(context.Background(), "not-a-uuid", "https://example.com/a.pdf")
	assert.Error(t, err)
}
