// Package session orchestrates the mapping core: it owns the transports,
// the identity index and the codecs, and exposes the record-level
// operations the sync engine drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/internal/attach"
	"github.com/syncgw/mail-bundle/internal/fieldmap"
	"github.com/syncgw/mail-bundle/internal/ident"
	"github.com/syncgw/mail-bundle/internal/mailbox"
	"github.com/syncgw/mail-bundle/internal/mimemsg"
	"github.com/syncgw/mail-bundle/internal/transport"
	"github.com/syncgw/mail-bundle/pkg/document"
)

// Policy errors. Transport failures pass through wrapped; these are the
// rejections decided locally, before any remote call.
var (
	ErrNotFound  = errors.New("record not found")
	ErrReadOnly  = errors.New("record is read-only")
	ErrProtected = errors.New("record is protected")
)

// rawCacheSize bounds the raw-message cache. Messages are immutable, so
// entries never go stale; the bound only caps memory.
const rawCacheSize = 64

// Session is a single serialized connection-scoped view of one account.
// Not safe for concurrent use.
type Session struct {
	mbx    transport.Mailbox
	sender transport.Sender
	idx    *ident.Index
	tree   *mailbox.Manager
	mapper *fieldmap.Mapper
	dec    *mimemsg.Decomposer
	comp   *mimemsg.Composer
	store  attach.Store
	raw    *lru.Cache[string, []byte]
	log    *logrus.Logger

	built bool
}

// New assembles a session. account is the mailbox owner's address, used
// as the default From when a document carries none.
func New(mbx transport.Mailbox, sender transport.Sender, store attach.Store,
	special mailbox.SpecialFolders, account mail.Address, log *logrus.Logger) (*Session, error) {
	raw, err := lru.New[string, []byte](rawCacheSize)
	if err != nil {
		return nil, err
	}
	idx := ident.NewIndex()
	mapper := fieldmap.NewMapper(log)
	return &Session{
		mbx:    mbx,
		sender: sender,
		idx:    idx,
		tree:   mailbox.NewManager(mbx, idx, special, log),
		mapper: mapper,
		dec:    mimemsg.NewDecomposer(store, log),
		comp:   mimemsg.NewComposer(store, mapper, account, log),
		store:  store,
		raw:    raw,
		log:    log,
	}, nil
}

// Close releases the mailbox transport. The sender dials per delivery and
// holds nothing.
func (s *Session) Close() error {
	return s.mbx.Close()
}

// Refresh drops every cached view of the remote side and rebuilds the
// folder tree. Message lists reload lazily afterwards.
func (s *Session) Refresh(ctx context.Context) error {
	s.raw.Purge()
	if err := s.tree.Rebuild(ctx); err != nil {
		return err
	}
	s.built = true
	return nil
}

func (s *Session) ensureBuilt(ctx context.Context) error {
	if s.built {
		return nil
	}
	return s.Refresh(ctx)
}

// Groups returns the folder tree as group documents, in listing order.
func (s *Session) Groups(ctx context.Context) ([]*document.Document, error) {
	if err := s.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	var out []*document.Document
	for _, f := range s.idx.Folders() {
		out = append(out, s.groupDocument(f))
	}
	return out, nil
}

// Records lists the record ids inside one group: child group ids first,
// then message ids in UID order. An empty groupID means the base group
// (the inbox).
func (s *Session) Records(ctx context.Context, groupID string) ([]string, error) {
	if err := s.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	if groupID == "" {
		groupID = s.tree.InboxID()
		if groupID == "" {
			return nil, nil
		}
	}
	if _, ok := s.idx.Folder(groupID); !ok {
		return nil, fmt.Errorf("group %q: %w", groupID, ErrNotFound)
	}
	if err := s.tree.EnsureLoaded(ctx, groupID); err != nil {
		return nil, err
	}
	var out []string
	for _, f := range s.idx.Children(groupID) {
		out = append(out, f.ID)
	}
	for _, m := range s.idx.MessagesIn(groupID) {
		out = append(out, m.ID)
	}
	return out, nil
}

// Fetch materializes one record as a document: a group document for a
// folder id, a fully decomposed message document for a message id.
func (s *Session) Fetch(ctx context.Context, id string) (*document.Document, error) {
	if err := s.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	switch {
	case ident.IsFolderKey(id):
		f, ok := s.idx.Folder(id)
		if !ok {
			return nil, fmt.Errorf("folder %q: %w", id, ErrNotFound)
		}
		return s.groupDocument(f), nil
	case ident.IsMessageKey(id):
		return s.fetchMessage(ctx, id)
	}
	return nil, fmt.Errorf("id %q: %w", id, ErrNotFound)
}

func (s *Session) fetchMessage(ctx context.Context, id string) (*document.Document, error) {
	uid, folderID, ok := ident.SplitMessageKey(id)
	if !ok {
		return nil, fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if err := s.tree.EnsureLoaded(ctx, folderID); err != nil {
		return nil, err
	}
	rec, ok := s.idx.Message(id)
	if !ok {
		return nil, fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	raw, err := s.fetchRaw(ctx, id, folderID, uid)
	if err != nil {
		return nil, err
	}
	doc, err := s.convert(raw, rec.Flags)
	if err != nil {
		return nil, err
	}
	doc.ExtID = id
	doc.ExtGroup = folderID
	return doc, nil
}

func (s *Session) fetchRaw(ctx context.Context, id, folderID string, uid uint32) ([]byte, error) {
	if raw, ok := s.raw.Get(id); ok {
		return raw, nil
	}
	folder, ok := s.idx.Folder(folderID)
	if !ok {
		return nil, fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
	}
	if err := s.mbx.Open(ctx, folder.Path, true); err != nil {
		return nil, err
	}
	raw, err := s.mbx.FetchRaw(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.raw.Add(id, raw)
	return raw, nil
}

// convert parses a raw message and runs the full inbound pipeline: header
// mapping, body and attachment decomposition, derived fields.
func (s *Session) convert(raw []byte, flags string) (*document.Document, error) {
	env, err := mimemsg.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	doc := document.New(document.TypeData)
	s.mapper.ToDocument(env, flags, doc)
	if err := s.dec.Decompose(env, doc); err != nil {
		return nil, err
	}
	s.mapper.Derive(doc)
	return doc, nil
}

func (s *Session) groupDocument(f *ident.FolderRecord) *document.Document {
	doc := document.New(document.TypeGroup)
	doc.ExtID = f.ID
	doc.ExtGroup = f.ParentID
	doc.Add(document.TagGroupName, f.Name)
	doc.Add(document.TagAttribute, strconv.FormatUint(uint64(f.Attr), 10))
	return doc
}
