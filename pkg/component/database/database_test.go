package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/sentinel-rag/pkg/options/database"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	opts := options.NewOptions()
	opts.DSN = ":memory:"

	db, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer Close(db)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpen_InvalidOptions(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.Error(t, err)

	opts := options.NewOptions()
	opts.Driver = "oracle"
	_, err = Open(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
