package mimemsg

import (
	"bytes"
	"fmt"
	"net/mail"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/internal/attach"
	"github.com/syncgw/mail-bundle/internal/fieldmap"
	"github.com/syncgw/mail-bundle/pkg/document"
)

// Composer rebuilds a sendable MIME message from a document. The account's
// own address fills the From slot when the document carries none (or only
// the dummy placeholder).
type Composer struct {
	store       attach.Store
	mapper      *fieldmap.Mapper
	defaultFrom mail.Address
	log         *logrus.Logger
}

func NewComposer(store attach.Store, mapper *fieldmap.Mapper, defaultFrom mail.Address, log *logrus.Logger) *Composer {
	return &Composer{store: store, mapper: mapper, defaultFrom: defaultFrom, log: log}
}

// Compose serializes doc into wire form and returns the bytes together with
// the staged header set (the caller needs the recipient list for delivery).
// The HTML body is primary with a plain-text alternative; a missing plain
// body is derived from the HTML one. Attachment bodies are read back from
// the store; parts with a content id become inline parts.
func (c *Composer) Compose(doc *document.Document) ([]byte, *fieldmap.OutboundMessage, error) {
	out := c.mapper.FromDocument(doc)
	if out.From == nil {
		out.From = &c.defaultFrom
	}
	if len(out.Recipients()) == 0 {
		return nil, nil, fmt.Errorf("compose: no recipients")
	}

	b := enmime.Builder().
		From(out.From.Name, out.From.Address).
		Subject(out.Subject).
		Date(out.Date).
		ToAddrs(deref(out.To)).
		CCAddrs(deref(out.CC)).
		BCCAddrs(deref(out.BCC))
	if out.Sender != nil {
		b = b.Header("Sender", fieldmap.FormatAddress(out.Sender))
	}
	if len(out.ReplyTo) > 0 {
		b = b.ReplyTo(out.ReplyTo[0].Name, out.ReplyTo[0].Address)
	}
	if out.MessageID != "" {
		b = b.Header("Message-Id", "<"+stripAngle(out.MessageID)+">")
	}
	if out.Priority != 3 {
		b = b.Header("X-Priority", fieldmap.PriorityText(out.Priority))
	}

	plain := bodyOf(doc, document.BodyPlain)
	html := bodyOf(doc, document.BodyHTML)
	if html != "" {
		b = b.HTML([]byte(html))
		if plain == "" {
			txt, err := html2text.FromString(html)
			if err != nil {
				c.log.WithError(err).Warn("no text alternative, sending html only")
			} else {
				plain = txt
			}
		}
	}
	if plain != "" {
		b = b.Text([]byte(plain))
	}

	var attErr error
	for _, f := range doc.Fields {
		if f.Tag != document.TagAttach {
			continue
		}
		ref := f.ChildValue(document.TagAttachRef)
		data, mimeType, err := c.store.Read(ref)
		if err != nil {
			attErr = fmt.Errorf("attachment %q: %w", ref, err)
			break
		}
		name := f.ChildValue(document.TagAttachName)
		if cid := f.ChildValue(document.TagAttachContentID); cid != "" {
			b = b.AddInline(data, mimeType, name, cid)
		} else {
			b = b.AddAttachment(data, mimeType, name)
		}
	}
	if attErr != nil {
		return nil, nil, attErr
	}

	part, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("compose: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), out, nil
}

func bodyOf(doc *document.Document, kind string) string {
	for _, f := range doc.Fields {
		if f.Tag == document.TagBody && f.Attr(document.AttrBodyType) == kind {
			return f.Value
		}
	}
	return ""
}

func deref(in []*mail.Address) []mail.Address {
	out := make([]mail.Address, 0, len(in))
	for _, a := range in {
		out = append(out, *a)
	}
	return out
}
