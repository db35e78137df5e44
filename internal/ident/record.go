package ident

import "strings"

// BoxFlags mirror the remote folder attributes reported by the mailbox
// listing.
type BoxFlags uint16

const (
	BoxNoInferiors BoxFlags = 1 << iota // folder may not contain children
	BoxNoSelect                         // container only, not openable
	BoxMarked
	BoxUnmarked
	BoxHasChildren
	BoxHasNoChildren
)

// Attr carries the capability and special-role bits of a record.
type Attr uint32

const (
	AttrRead Attr = 1 << iota
	AttrWrite
	AttrEdit
	AttrDel

	AttrInbox
	AttrSent
	AttrDrafts
	AttrTrash
	AttrSpam
	AttrUser
)

// AttrBoxAll masks every special-role bit.
const AttrBoxAll = AttrInbox | AttrSent | AttrDrafts | AttrTrash | AttrSpam | AttrUser

var attrNames = []struct {
	bit  Attr
	name string
}{
	{AttrRead, "Read"}, {AttrWrite, "Write"}, {AttrEdit, "Edit"}, {AttrDel, "Del"},
	{AttrInbox, "Inbox"}, {AttrSent, "Sent"}, {AttrDrafts, "Drafts"},
	{AttrTrash, "Trash"}, {AttrSpam, "Spam"}, {AttrUser, "User"},
}

// String lists the set bits, for diagnostics.
func (a Attr) String() string {
	var parts []string
	for _, n := range attrNames {
		if a&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if parts == nil {
		return "None"
	}
	return strings.Join(parts, "|")
}

// RoleForName classifies a folder by its display name, used when no
// preference path claims it.
func RoleForName(name string) Attr {
	switch strings.ToLower(name) {
	case "inbox":
		return AttrInbox
	case "sent", "sent items", "sent messages":
		return AttrSent
	case "drafts":
		return AttrDrafts
	case "trash", "deleted items", "deleted messages":
		return AttrTrash
	case "junk", "spam", "junk e-mail":
		return AttrSpam
	default:
		return AttrUser
	}
}

// FolderRecord is one mailbox node of the remote tree.
type FolderRecord struct {
	ID        string
	ParentID  string // "" for root-level folders
	Name      string // display name, last path segment, UTF-8
	Path      string // remote path as the transport reports it
	Delimiter string
	Flags     BoxFlags
	Attr      Attr
	Loaded    bool // child messages fetched
}

// MessageRecord is one message within exactly one folder. Messages are
// immutable on the remote side; edits are modeled as delete plus re-add.
type MessageRecord struct {
	ID       string
	FolderID string
	UID      uint32
	Flags    string // comma-joined subset of Seen,Answered,Flagged,Deleted,Draft
	Attr     Attr
}
