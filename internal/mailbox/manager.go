// Package mailbox reconciles the remote folder listing into the identity
// index: tree building, subscription filtering, special-role detection and
// lazy per-folder message loading.
package mailbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/utf7"
	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/internal/ident"
	"github.com/syncgw/mail-bundle/internal/transport"
)

// SpecialFolders carries the preferred remote paths of the special folders.
// A non-empty path claims the role regardless of the folder's name.
type SpecialFolders struct {
	Trash  string
	Drafts string
	Sent   string
	Spam   string
}

func (s SpecialFolders) roleFor(path string) (ident.Attr, bool) {
	switch {
	case s.Trash != "" && strings.EqualFold(path, s.Trash):
		return ident.AttrTrash, true
	case s.Drafts != "" && strings.EqualFold(path, s.Drafts):
		return ident.AttrDrafts, true
	case s.Sent != "" && strings.EqualFold(path, s.Sent):
		return ident.AttrSent, true
	case s.Spam != "" && strings.EqualFold(path, s.Spam):
		return ident.AttrSpam, true
	}
	return 0, false
}

// Manager owns the folder tree held in the identity index.
type Manager struct {
	mbx     transport.Mailbox
	idx     *ident.Index
	special SpecialFolders
	log     *logrus.Logger

	flattened bool
	inboxID   string
}

func NewManager(mbx transport.Mailbox, idx *ident.Index, special SpecialFolders, log *logrus.Logger) *Manager {
	return &Manager{mbx: mbx, idx: idx, special: special, log: log}
}

// Flattened reports whether the tree was forced flat because the inbox
// cannot hold children.
func (m *Manager) Flattened() bool { return m.flattened }

// InboxID returns the identity of the inbox, or "" before Rebuild.
func (m *Manager) InboxID() string { return m.inboxID }

// DecodeName converts a raw (modified UTF-7) mailbox name segment to UTF-8.
// Undecodable names are kept raw.
func DecodeName(s string) string {
	d, err := utf7.Encoding.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return d
}

// EncodePath converts a UTF-8 path to the raw form the protocol expects.
func EncodePath(s string) string {
	e, err := utf7.Encoding.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return e
}

// Rebuild drops the index and reconstructs the folder tree from the remote
// listing. Double listings of the same remote path are dropped, folders are
// filtered down to the subscribed set (the inbox is always kept) and
// classified: preference paths claim the special roles first, display names
// second. When the inbox reports that it cannot hold children, top-level
// folders are reparented directly under it; nested folders keep their
// path-derived parent.
func (m *Manager) Rebuild(ctx context.Context) error {
	listing, err := m.mbx.ListFolders(ctx, "*")
	if err != nil {
		return fmt.Errorf("list folders: %w", err)
	}
	subs, err := m.mbx.ListSubscribed(ctx, "*")
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	m.idx.Invalidate()
	m.flattened = false
	m.inboxID = ""

	paths := make(map[string]struct{}, len(listing))
	for _, f := range listing {
		paths[f.Name] = struct{}{}
	}

	// The inbox decides the tree shape, so it is located first.
	var inboxPath string
	for _, f := range listing {
		if isInboxPath(f.Name, f.Delimiter) {
			inboxPath = f.Name
			m.inboxID = ident.FolderKey(f.Name)
			m.flattened = ParseBoxFlags(f.Attributes)&ident.BoxNoInferiors != 0
			break
		}
	}

	seen := make(map[string]struct{}, len(listing))
	for _, f := range listing {
		key := strings.ToLower(f.Name)
		if _, dup := seen[key]; dup {
			m.log.WithField("path", f.Name).Debug("duplicate folder listing, skipped")
			continue
		}
		isInbox := f.Name == inboxPath
		if !isInbox && !subscribedTo(subs, f.Name) {
			continue
		}
		seen[key] = struct{}{}
		name := DecodeName(lastSegment(f.Name, f.Delimiter))

		role, claimed := m.special.roleFor(f.Name)
		if !claimed {
			if isInbox {
				role = ident.AttrInbox
			} else {
				role = ident.RoleForName(name)
			}
		}
		attr := ident.AttrRead | ident.AttrWrite | role
		if role == ident.AttrUser {
			attr |= ident.AttrEdit | ident.AttrDel
		}

		rec := &ident.FolderRecord{
			ID:        ident.FolderKey(f.Name),
			Name:      name,
			Path:      f.Name,
			Delimiter: f.Delimiter,
			Flags:     ParseBoxFlags(f.Attributes),
			Attr:      attr,
		}
		if !isInbox {
			rec.ParentID = parentID(f.Name, f.Delimiter, paths)
			if m.flattened && rec.ParentID == "" {
				rec.ParentID = m.inboxID
			}
		}
		m.idx.PutFolder(rec)
	}

	m.log.WithFields(logrus.Fields{
		"folders":   len(m.idx.Folders()),
		"flattened": m.flattened,
	}).Info("folder tree rebuilt")
	return nil
}

// LoadMessages fetches the message list of one folder and commits it to the
// index. The commit is all or nothing: on any fetch error the index keeps
// its previous state and the folder stays unloaded.
func (m *Manager) LoadMessages(ctx context.Context, folderID string) error {
	rec, ok := m.idx.Folder(folderID)
	if !ok {
		return fmt.Errorf("load messages: unknown folder %q", folderID)
	}
	if rec.Flags&ident.BoxNoSelect != 0 {
		rec.Loaded = true
		return nil
	}
	if err := m.mbx.Open(ctx, rec.Path, true); err != nil {
		return fmt.Errorf("open %q: %w", rec.Path, err)
	}
	ovs, err := m.mbx.Overviews(ctx)
	if err != nil {
		return fmt.Errorf("list %q: %w", rec.Path, err)
	}
	staged := make([]*ident.MessageRecord, 0, len(ovs))
	for _, ov := range ovs {
		staged = append(staged, &ident.MessageRecord{
			ID:       ident.MessageKey(ov.UID, folderID),
			FolderID: folderID,
			UID:      ov.UID,
			Flags:    ConvertFlags(ov.Flags),
			Attr:     ident.AttrRead | ident.AttrWrite | ident.AttrEdit | ident.AttrDel,
		})
	}
	for _, msg := range staged {
		m.idx.PutMessage(msg)
	}
	rec.Loaded = true
	m.log.WithFields(logrus.Fields{"folder": rec.Name, "messages": len(staged)}).
		Debug("folder messages loaded")
	return nil
}

// EnsureLoaded loads a folder's messages on first touch.
func (m *Manager) EnsureLoaded(ctx context.Context, folderID string) error {
	if rec, ok := m.idx.Folder(folderID); ok && rec.Loaded {
		return nil
	}
	return m.LoadMessages(ctx, folderID)
}

func isInboxPath(path, delim string) bool {
	return strings.EqualFold(lastSegment(path, delim), "inbox") ||
		strings.EqualFold(path, "inbox")
}

func lastSegment(path, delim string) string {
	if delim == "" {
		return path
	}
	segs := strings.Split(path, delim)
	return segs[len(segs)-1]
}

// parentID resolves the parent folder key from the path, but only when the
// parent actually appears in the listing.
func parentID(path, delim string, paths map[string]struct{}) string {
	if delim == "" {
		return ""
	}
	i := strings.LastIndex(path, delim)
	if i <= 0 {
		return ""
	}
	parent := path[:i]
	if _, ok := paths[parent]; !ok {
		return ""
	}
	return ident.FolderKey(parent)
}

// subscribedTo applies a loose, case-insensitive subscription match: a
// folder counts as subscribed when any subscription entry contains its path.
func subscribedTo(subs []transport.FolderInfo, path string) bool {
	lower := strings.ToLower(path)
	for _, s := range subs {
		if strings.Contains(strings.ToLower(s.Name), lower) {
			return true
		}
	}
	return false
}
