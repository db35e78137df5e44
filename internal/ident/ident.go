// Package ident assigns and resolves the opaque keys that identify remote
// folders and messages to the rest of the sync system, and holds the
// in-memory index of the remote tree.
//
// Keys live in two namespaces: folder keys are a deterministic 128-bit hash
// of the remote path, message keys combine the remote UID with the owning
// folder's key. Remote numeric identifiers never leak past this package.
package ident

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key prefixes separate the two namespaces.
const (
	folderPrefix  = "F"
	messagePrefix = "M"
	messageSep    = "#"
)

// folderSpace is the fixed UUIDv5 namespace for folder path hashing.
// Changing it invalidates every issued folder key.
var folderSpace = uuid.MustParse("8d9889ae-3b34-4cb2-a898-f4a0a9c7d6b2")

// FolderKey derives the opaque key for a remote folder path. Deterministic
// and collision-resistant: a SHA-1 based UUIDv5 over the raw path.
func FolderKey(path string) string {
	u := uuid.NewSHA1(folderSpace, []byte(path))
	return folderPrefix + strings.ReplaceAll(u.String(), "-", "")
}

// MessageKey derives the opaque key for a message within a folder.
func MessageKey(uid uint32, folderID string) string {
	return fmt.Sprintf("%s%d%s%s", messagePrefix, uid, messageSep, folderID)
}

// IsFolderKey reports whether id belongs to the folder namespace.
func IsFolderKey(id string) bool {
	return strings.HasPrefix(id, folderPrefix)
}

// IsMessageKey reports whether id belongs to the message namespace.
func IsMessageKey(id string) bool {
	return strings.HasPrefix(id, messagePrefix)
}

// SplitMessageKey recovers the remote UID and folder key from a message key.
func SplitMessageKey(id string) (uid uint32, folderID string, ok bool) {
	if !IsMessageKey(id) {
		return 0, "", false
	}
	body := id[len(messagePrefix):]
	i := strings.Index(body, messageSep)
	if i < 0 {
		return 0, "", false
	}
	n, err := strconv.ParseUint(body[:i], 10, 32)
	if err != nil {
		return 0, "", false
	}
	folderID = body[i+len(messageSep):]
	if !IsFolderKey(folderID) {
		return 0, "", false
	}
	return uint32(n), folderID, true
}
