package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_SUBSCRIPTION = "subs"
	UUID_PREFIX_PAYMENT      = "pay"
	UUID_PREFIX_NOTIFICATION = "notif"
	UUID_PREFIX_REQUEST      = "req"
)

// GenerateUUID returns a lowercase ULID. ULIDs sort lexicographically by
// creation time, which keeps index pages warm on append-heavy tables.
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a ULID prefixed with the entity short code,
// e.g. "subs_01h6x...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
