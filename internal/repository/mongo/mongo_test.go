package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/sakif/healthchat/internal/repository"
)

func TestFieldFromDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want string
	}{
		{
			"collated username index",
			`E11000 duplicate key error collection: healthcare_db.users index: username_unique_ci dup key: { username: "alice" }`,
			repository.FieldUsername,
		},
		{
			"fallback username index",
			`E11000 duplicate key error collection: healthcare_db.users index: username_unique dup key: { username: "alice" }`,
			repository.FieldUsername,
		},
		{
			"partial email index",
			`E11000 duplicate key error collection: healthcare_db.users index: email_unique_partial dup key: { email: "a@b.c" }`,
			repository.FieldEmail,
		},
		{
			"legacy email index",
			`E11000 duplicate key error collection: healthcare_db.users index: email_1 dup key: { email: null }`,
			repository.FieldEmail,
		},
		{
			"user id index",
			`E11000 duplicate key error collection: healthcare_db.users index: user_id_unique dup key: { user_id: "u-1" }`,
			repository.FieldUserID,
		},
		{
			"session token index",
			`E11000 duplicate key error collection: healthcare_db.sessions index: token_unique dup key: { token: "x" }`,
			repository.FieldToken,
		},
		{
			"primary key",
			`E11000 duplicate key error collection: healthcare_db.chat_logs index: _id_ dup key: { _id: "log-1" }`,
			"_id_",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fieldFromDuplicateKey(tc.msg))
		})
	}
}

func TestExactFold(t *testing.T) {
	r := exactFold("a.b+c")
	assert.Equal(t, `^a\.b\+c$`, r.Pattern)
	assert.Equal(t, "i", r.Options)
}

func TestIndexInfo_BlocksMissingEmails(t *testing.T) {
	emailKey := bson.D{{Key: "email", Value: int32(1)}}

	cases := []struct {
		name string
		idx  IndexInfo
		want bool
	}{
		{"plain unique email index", IndexInfo{Name: "email_1", Key: emailKey, Unique: true}, true},
		{"partial unique email index", IndexInfo{Name: indexEmail, Key: emailKey, Unique: true, PartialFilter: emailPartialFilter}, false},
		{"sparse unique email index", IndexInfo{Name: "email_1", Key: emailKey, Unique: true, Sparse: true}, false},
		{"non-unique email index", IndexInfo{Name: "email_1", Key: emailKey}, false},
		{"username index", IndexInfo{Name: indexUsername, Key: bson.D{{Key: "username", Value: int32(1)}}, Unique: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.idx.BlocksMissingEmails())
		})
	}
}
