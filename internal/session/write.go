package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/syncgw/mail-bundle/internal/ident"
	"github.com/syncgw/mail-bundle/internal/mailbox"
	"github.com/syncgw/mail-bundle/pkg/document"
)

// Add creates a new record from doc and returns its id. A group document
// becomes a subscribed remote folder; a data document is composed and
// appended into its group (the inbox when none is given).
func (s *Session) Add(ctx context.Context, doc *document.Document) (string, error) {
	if err := s.ensureBuilt(ctx); err != nil {
		return "", err
	}
	if doc.Type == document.TypeGroup {
		return s.addFolder(ctx, doc)
	}
	return s.addMessage(ctx, doc)
}

func (s *Session) addFolder(ctx context.Context, doc *document.Document) (string, error) {
	name, _ := doc.Get(document.TagGroupName)
	if name == "" {
		return "", fmt.Errorf("add folder: no name")
	}
	parentID := doc.ExtGroup
	if parentID == "" {
		parentID = s.tree.InboxID()
	}
	parent, ok := s.idx.Folder(parentID)
	if !ok {
		return "", fmt.Errorf("parent %q: %w", parentID, ErrNotFound)
	}

	// A flattened tree cannot nest below the inbox; new folders are
	// created at the root and presented under the inbox.
	var path string
	switch {
	case s.tree.Flattened():
		path = mailbox.EncodePath(name)
		parentID = s.tree.InboxID()
	case parent.Delimiter != "":
		path = parent.Path + parent.Delimiter + mailbox.EncodePath(name)
	default:
		path = mailbox.EncodePath(name)
	}

	if err := s.mbx.CreateFolder(ctx, path); err != nil {
		return "", err
	}
	if err := s.mbx.Subscribe(ctx, path); err != nil {
		s.log.WithError(err).Warn("new folder created but not subscribed")
	}

	rec := &ident.FolderRecord{
		ID:        ident.FolderKey(path),
		ParentID:  parentID,
		Name:      name,
		Path:      path,
		Delimiter: parent.Delimiter,
		Attr: ident.AttrRead | ident.AttrWrite | ident.AttrEdit |
			ident.AttrDel | ident.AttrUser,
		Loaded: true,
	}
	s.idx.PutFolder(rec)
	return rec.ID, nil
}

func (s *Session) addMessage(ctx context.Context, doc *document.Document) (string, error) {
	folderID := doc.ExtGroup
	if folderID == "" {
		folderID = s.tree.InboxID()
	}
	folder, ok := s.idx.Folder(folderID)
	if !ok {
		return "", fmt.Errorf("group %q: %w", folderID, ErrNotFound)
	}
	if folder.Attr&ident.AttrWrite == 0 {
		return "", fmt.Errorf("group %q: %w", folder.Name, ErrReadOnly)
	}
	raw, _, err := s.comp.Compose(doc)
	if err != nil {
		return "", err
	}
	status, _ := doc.Get(document.TagStatus)
	uid, err := s.mbx.Append(ctx, folder.Path, raw, mailbox.WireFlags(status))
	if err != nil {
		return "", err
	}
	id := ident.MessageKey(uid, folderID)
	s.idx.PutMessage(&ident.MessageRecord{
		ID:       id,
		FolderID: folderID,
		UID:      uid,
		Flags:    status,
		Attr:     ident.AttrRead | ident.AttrWrite | ident.AttrEdit | ident.AttrDel,
	})
	s.raw.Add(id, raw)
	return id, nil
}

// Update rewrites an existing record from doc and returns its id, which
// changes: a folder rename moves its path, and messages are immutable on
// the remote side, so an update is a delete plus re-add.
func (s *Session) Update(ctx context.Context, doc *document.Document) (string, error) {
	if err := s.ensureBuilt(ctx); err != nil {
		return "", err
	}
	id := doc.ExtID
	switch {
	case ident.IsFolderKey(id):
		return s.renameFolder(ctx, id, doc)
	case ident.IsMessageKey(id):
		return s.rewriteMessage(ctx, id, doc)
	}
	return "", fmt.Errorf("id %q: %w", id, ErrNotFound)
}

func (s *Session) renameFolder(ctx context.Context, id string, doc *document.Document) (string, error) {
	rec, ok := s.idx.Folder(id)
	if !ok {
		return "", fmt.Errorf("folder %q: %w", id, ErrNotFound)
	}
	if rec.Attr&ident.AttrEdit == 0 {
		return "", fmt.Errorf("folder %q: %w", rec.Name, ErrReadOnly)
	}
	name, _ := doc.Get(document.TagGroupName)
	if name == "" || name == rec.Name {
		return id, nil
	}

	newPath := mailbox.EncodePath(name)
	if rec.Delimiter != "" {
		if i := strings.LastIndex(rec.Path, rec.Delimiter); i > 0 {
			newPath = rec.Path[:i] + rec.Delimiter + mailbox.EncodePath(name)
		}
	}
	if err := s.mbx.RenameFolder(ctx, rec.Path, newPath); err != nil {
		return "", err
	}
	if err := s.mbx.Subscribe(ctx, newPath); err != nil {
		s.log.WithError(err).Warn("renamed folder not re-subscribed")
	}
	// Child paths moved with the rename, so every derived key below this
	// folder is stale. Rebuild rather than patch.
	if err := s.Refresh(ctx); err != nil {
		return "", err
	}
	return ident.FolderKey(newPath), nil
}

func (s *Session) rewriteMessage(ctx context.Context, id string, doc *document.Document) (string, error) {
	uid, folderID, ok := ident.SplitMessageKey(id)
	if !ok {
		return "", fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if err := s.tree.EnsureLoaded(ctx, folderID); err != nil {
		return "", err
	}
	rec, ok := s.idx.Message(id)
	if !ok {
		return "", fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if rec.Attr&ident.AttrEdit == 0 {
		return "", fmt.Errorf("message %q: %w", id, ErrReadOnly)
	}
	folder, ok := s.idx.Folder(folderID)
	if !ok {
		return "", fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
	}

	raw, _, err := s.comp.Compose(doc)
	if err != nil {
		return "", err
	}
	status, _ := doc.Get(document.TagStatus)
	newUID, err := s.mbx.Append(ctx, folder.Path, raw, mailbox.WireFlags(status))
	if err != nil {
		return "", err
	}
	if err := s.dropMessage(ctx, folder.Path, uid); err != nil {
		return "", err
	}
	s.idx.RemoveMessage(id)
	s.raw.Remove(id)

	newID := ident.MessageKey(newUID, folderID)
	s.idx.PutMessage(&ident.MessageRecord{
		ID:       newID,
		FolderID: folderID,
		UID:      newUID,
		Flags:    status,
		Attr:     rec.Attr,
	})
	s.raw.Add(newID, raw)
	return newID, nil
}

// Delete removes a record. The inbox is protected; other folders need the
// delete capability and go children first, depth before breadth, so the
// remote side never holds an orphaned subtree.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.ensureBuilt(ctx); err != nil {
		return err
	}
	switch {
	case ident.IsFolderKey(id):
		rec, ok := s.idx.Folder(id)
		if !ok {
			return fmt.Errorf("folder %q: %w", id, ErrNotFound)
		}
		if rec.Attr&ident.AttrInbox != 0 {
			return fmt.Errorf("folder %q: %w", rec.Name, ErrProtected)
		}
		if rec.Attr&ident.AttrDel == 0 {
			return fmt.Errorf("folder %q: %w", rec.Name, ErrReadOnly)
		}
		return s.deleteFolderTree(ctx, rec)
	case ident.IsMessageKey(id):
		return s.deleteMessage(ctx, id)
	}
	return fmt.Errorf("id %q: %w", id, ErrNotFound)
}

func (s *Session) deleteFolderTree(ctx context.Context, rec *ident.FolderRecord) error {
	for _, child := range s.idx.Children(rec.ID) {
		if err := s.deleteFolderTree(ctx, child); err != nil {
			return err
		}
	}
	if err := s.mbx.DeleteFolder(ctx, rec.Path); err != nil {
		return err
	}
	for _, m := range s.idx.MessagesIn(rec.ID) {
		s.idx.RemoveMessage(m.ID)
		s.raw.Remove(m.ID)
	}
	s.idx.RemoveFolder(rec.ID)
	return nil
}

func (s *Session) deleteMessage(ctx context.Context, id string) error {
	uid, folderID, ok := ident.SplitMessageKey(id)
	if !ok {
		return fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if err := s.tree.EnsureLoaded(ctx, folderID); err != nil {
		return err
	}
	rec, ok := s.idx.Message(id)
	if !ok {
		return fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if rec.Attr&ident.AttrDel == 0 {
		return fmt.Errorf("message %q: %w", id, ErrReadOnly)
	}
	folder, ok := s.idx.Folder(folderID)
	if !ok {
		return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
	}
	if err := s.dropMessage(ctx, folder.Path, uid); err != nil {
		return err
	}
	s.idx.RemoveMessage(id)
	s.raw.Remove(id)
	return nil
}

// dropMessage flags one message deleted and expunges the folder.
func (s *Session) dropMessage(ctx context.Context, path string, uid uint32) error {
	if err := s.mbx.Open(ctx, path, false); err != nil {
		return err
	}
	if err := s.mbx.DeleteMessage(ctx, uid); err != nil {
		return err
	}
	return s.mbx.Expunge(ctx)
}
