package session

import (
	"context"
	"fmt"

	"github.com/syncgw/mail-bundle/internal/ident"
	"github.com/syncgw/mail-bundle/pkg/document"
)

// Send composes doc and delivers it. The wire copy is archived first:
// into the sent folder when save is set, otherwise into the trash folder
// where it is removed again after a successful delivery. The returned
// document is the inbound view of what actually went out, with its id set
// when a copy was kept.
func (s *Session) Send(ctx context.Context, save bool, doc *document.Document) (*document.Document, error) {
	if err := s.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	raw, out, err := s.comp.Compose(doc)
	if err != nil {
		return nil, err
	}

	role := ident.AttrTrash
	if save {
		role = ident.AttrSent
	}
	target := s.idx.FolderByAttr(role)
	if target == nil {
		target = s.idx.FolderByAttr(ident.AttrInbox)
	}

	var (
		uid      uint32
		archived bool
	)
	if target != nil {
		uid, err = s.mbx.Append(ctx, target.Path, raw, []string{"\\Seen"})
		if err != nil {
			return nil, fmt.Errorf("archive copy: %w", err)
		}
		archived = true
	}

	to := make([]string, 0, len(out.Recipients()))
	for _, a := range out.Recipients() {
		to = append(to, a.Address)
	}
	if err := s.sender.Send(ctx, out.From.Address, to, raw); err != nil {
		return nil, err
	}

	if archived && !save {
		if derr := s.dropMessage(ctx, target.Path, uid); derr != nil {
			s.log.WithError(derr).Warn("sent copy not removed from trash")
		}
		archived = false
	}

	sent, err := s.convert(raw, "Seen")
	if err != nil {
		return nil, err
	}
	if archived {
		id := ident.MessageKey(uid, target.ID)
		s.idx.PutMessage(&ident.MessageRecord{
			ID:       id,
			FolderID: target.ID,
			UID:      uid,
			Flags:    "Seen",
			Attr:     ident.AttrRead | ident.AttrWrite | ident.AttrEdit | ident.AttrDel,
		})
		s.raw.Add(id, raw)
		sent.ExtID = id
		sent.ExtGroup = target.ID
	}
	return sent, nil
}
