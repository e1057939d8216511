package utils

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte("k"), 32)

	sealed, err := Encrypt(key, []byte(`{"name":"Jane"}`))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "Jane")

	plain, err := Decrypt(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Jane"}`, string(plain))

	_, err = Decrypt(bytes.Repeat([]byte("x"), 32), sealed)
	assert.Error(t, err)
}

func TestEncryptRejectsShortKey(t *testing.T) {
	_, err := Encrypt([]byte("short"), []byte("data"))

	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestAccessToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateAccessToken(secret, 42, time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	_, err = ParseAccessToken([]byte("other-secret"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateAccessToken(secret, 42, -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("testpassword123")
	require.NoError(t, err)

	assert.True(t, CheckPassword("testpassword123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestMasking(t *testing.T) {
	prev := IsProduction
	defer func() { IsProduction = prev }()

	IsProduction = false
	assert.Equal(t, "Jane Smith", MaskName("Jane Smith"))

	IsProduction = true
	assert.Equal(t, "J. S.", MaskName("Jane Smith"))
	assert.Equal(t, "contact ***@***.***", MaskString("contact admin@kfpms.org"))
	assert.Equal(t, "***", MaskID("1234"))
}

func TestWithTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM funds").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = WithTransaction(context.Background(), db, func(tx *sql.Tx) error {
			_, err := tx.Exec("DELETE FROM funds WHERE id = 1")
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = WithTransaction(context.Background(), db, func(tx *sql.Tx) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports commit failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err = WithTransaction(context.Background(), db, func(tx *sql.Tx) error { return nil })

		assert.ErrorContains(t, err, "commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
