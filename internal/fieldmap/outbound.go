package fieldmap

import (
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/pkg/document"
)

// DummySender is the placeholder address some clients stamp on drafts. It is
// never sent on the wire; composition replaces it with the account default.
const DummySender = "x@x.invalid"

// OutboundMessage is the header staging area between a document and a wire
// message. Address slots hold parsed addresses so the composer can render
// them without re-parsing.
type OutboundMessage struct {
	From    *mail.Address
	Sender  *mail.Address
	ReplyTo []*mail.Address
	To      []*mail.Address
	CC      []*mail.Address
	BCC     []*mail.Address

	Subject   string
	Date      time.Time
	MessageID string
	Priority  int

	CodePage int
	Charset  string
}

// Recipients returns all delivery addresses (To, CC, BCC) in order.
func (o *OutboundMessage) Recipients() []*mail.Address {
	out := make([]*mail.Address, 0, len(o.To)+len(o.CC)+len(o.BCC))
	out = append(out, o.To...)
	out = append(out, o.CC...)
	return append(out, o.BCC...)
}

// FromDocument walks the mapping table in reverse direction and stages the
// document's header fields for composition. Fields the table marks OutNone
// never reach the wire. A dummy sender address is dropped here; the composer
// substitutes the account default.
func (m *Mapper) FromDocument(doc *document.Document) *OutboundMessage {
	out := &OutboundMessage{Priority: 3, CodePage: CodePageUTF8, Charset: "utf-8"}

	cur := doc.NewCursor()
	for _, e := range Table {
		if e.Out == OutNone {
			continue
		}
		cur.Restore(nil)
		switch e.Out {
		case OutSubject:
			out.Subject, _ = doc.Get(e.Tag)
		case OutMessageID:
			out.MessageID, _ = doc.Get(e.Tag)
		case OutDate:
			if v, ok := doc.Get(e.Tag); ok {
				if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
					out.Date = time.Unix(sec, 0).UTC()
				} else {
					m.logger.WithField("value", v).Warn("unparsable creation time, using now")
				}
			}
			if out.Date.IsZero() {
				out.Date = time.Now().UTC()
			}
		case OutPriority:
			if v, ok := doc.Get(e.Tag); ok {
				if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 5 {
					out.Priority = n
				}
			}
		default:
			addrs := m.addressField(cur, e.Tag)
			switch e.Out {
			case OutTo:
				out.To = addrs
			case OutCC:
				out.CC = addrs
			case OutBCC:
				out.BCC = addrs
			case OutReplyTo:
				out.ReplyTo = addrs
			case OutFrom:
				if len(addrs) > 0 {
					out.From = addrs[0]
				}
			case OutSender:
				if len(addrs) > 0 {
					out.Sender = addrs[0]
				}
			}
		}
	}

	if out.From != nil && strings.EqualFold(out.From.Address, DummySender) {
		out.From = nil
	}
	if out.Sender != nil && strings.EqualFold(out.Sender.Address, DummySender) {
		out.Sender = nil
	}

	if v, ok := doc.Get(document.TagInternetCPID); ok {
		out.CodePage, out.Charset = resolveCharset(v)
	}
	return out
}

// addressField collects every occurrence of an address tag via the cursor
// and parses each value, which may itself be an address list.
func (m *Mapper) addressField(cur *document.Cursor, tag string) []*mail.Address {
	var out []*mail.Address
	for f := cur.Seek(tag); f != nil; f = cur.Seek(tag) {
		v := strings.TrimSpace(f.Value)
		if v == "" {
			continue
		}
		addrs, err := mail.ParseAddressList(v)
		if err != nil {
			m.logger.WithFields(logrus.Fields{"tag": tag, "value": v}).
				WithError(err).Warn("unparsable address, skipped")
			continue
		}
		out = append(out, addrs...)
	}
	return out
}

// resolveCharset turns a stored code page id into the charset used for body
// encoding. Some stored documents carry a code page value with header text
// glued on ("iso-8859-1content-transfer-encoding"); only the leading digits
// count, and anything unknown falls back to utf-8.
func resolveCharset(v string) (int, string) {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end > 0 {
		if cp, err := strconv.Atoi(v[:end]); err == nil {
			if cs, ok := CodePageToCharset(cp); ok {
				return cp, cs
			}
		}
	} else if cp, ok := CharsetToCodePage(v); ok {
		// Tolerate a charset name in place of the numeric id.
		if cs, okc := CodePageToCharset(cp); okc {
			return cp, cs
		}
	} else if strings.HasPrefix(strings.ToLower(v), "iso-8859-1") {
		return CodePageLatin1, "iso-8859-1"
	}
	return CodePageUTF8, "utf-8"
}
