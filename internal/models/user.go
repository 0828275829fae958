package models

import (
	"crypto/md5"
	"encoding/hex"
)

// User represents an application user. Users are registered on demand the
// first time an email is seen; emails is the unique-indexed lookup field.
type User struct {
	Key    string   `bson:"key" json:"key"`
	Name   string   `bson:"name" json:"name"`
	Emails []string `bson:"emails" json:"emails,omitempty"`
	Avatar string   `bson:"avatar" json:"avatar"`
}

// DefaultUserName is assigned until the user picks a display name.
const DefaultUserName = "A New User :)"

// AvatarHash returns the md5 hex digest of an email, used as the avatar id.
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(email))
	return hex.EncodeToString(sum[:])
}

// ClientView serializes the user for other clients: emails are restricted.
func (u *User) ClientView() map[string]interface{} {
	return map[string]interface{}{
		"key":    u.Key,
		"name":   u.Name,
		"avatar": u.Avatar,
	}
}

// PrimaryEmail returns the first registered email, or "" for a user record
// with no emails (should not happen for persisted users).
func (u *User) PrimaryEmail() string {
	if len(u.Emails) == 0 {
		return ""
	}
	return u.Emails[0]
}
