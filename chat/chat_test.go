package chat

import (
	"testing"

	"chat-service/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Contact{},
		&model.Message{},
		&model.Group{},
		&model.GroupMessage{},
	))
	return db
}

func testUser(t *testing.T, db *gorm.DB, name, email string) *model.User {
	t.Helper()

	user := &model.User{Name: name, Email: email, Password: "x", Role: "user"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// testPair creates two users and their mutual contact records.
func testPair(t *testing.T, db *gorm.DB, contacts *Contacts) (*model.User, *model.User) {
	t.Helper()

	alice := testUser(t, db, "alice", "alice@example.com")
	bob := testUser(t, db, "bob", "bob@example.com")
	_, created, err := contacts.Add(alice.ID, bob.Email)
	require.NoError(t, err)
	require.True(t, created)
	return alice, bob
}
