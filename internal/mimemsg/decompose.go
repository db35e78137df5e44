package mimemsg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogs/chardet"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/internal/attach"
	"github.com/syncgw/mail-bundle/internal/fieldmap"
	"github.com/syncgw/mail-bundle/pkg/document"
)

// Decomposer flattens a parsed MIME message into document fields, handing
// attachment bodies to the store.
type Decomposer struct {
	store attach.Store
	log   *logrus.Logger
	det   *chardet.Detector
}

func NewDecomposer(store attach.Store, log *logrus.Logger) *Decomposer {
	return &Decomposer{store: store, log: log, det: chardet.NewTextDetector()}
}

// Decompose walks the part tree and adds body and attachment fields to doc.
// A part with a file name is always an attachment, whatever its media type.
// Multiple text parts of the same kind are joined: plain fragments with a
// blank line, HTML fragments with a double line break. An embedded
// message/rfc822 part is carried verbatim inside the HTML body.
func (d *Decomposer) Decompose(env *enmime.Envelope, doc *document.Document) error {
	var plain, html []string
	var declaredCP int

	noteCharset := func(p *enmime.Part) {
		if declaredCP != 0 || p.Charset == "" {
			return
		}
		if cp, ok := fieldmap.CharsetToCodePage(p.Charset); ok {
			declaredCP = cp
		}
	}

	var walk func(p *enmime.Part) error
	walk = func(p *enmime.Part) error {
		if p == nil {
			return nil
		}
		switch {
		case p.FileName != "":
			if err := d.addAttachment(p, doc); err != nil {
				return err
			}
		case strings.HasPrefix(p.ContentType, "multipart/"):
			// container, content lives in the children
		case p.ContentType == "text/plain":
			noteCharset(p)
			plain = append(plain, d.partText(p))
		case p.ContentType == "text/html":
			noteCharset(p)
			html = append(html, d.partText(p))
		case p.ContentType == "message/rfc822":
			html = append(html, string(p.Content))
		default:
			d.log.WithField("contentType", p.ContentType).
				Debug("unmapped part without file name, dropped")
		}
		if err := walk(p.FirstChild); err != nil {
			return err
		}
		return walk(p.NextSibling)
	}
	if err := walk(env.Root); err != nil {
		return err
	}

	plainBody := strings.Join(plain, "\n\n")
	htmlBody := strings.Join(html, "<br><br>")

	native := document.BodyPlain
	if htmlBody != "" {
		native = document.BodyHTML
		doc.AddWith(document.TagBody, htmlBody,
			map[string]string{document.AttrBodyType: document.BodyHTML})
		if plainBody == "" {
			if txt, err := html2text.FromString(htmlBody); err == nil {
				plainBody = txt
			} else {
				d.log.WithError(err).Warn("html body not convertible to text")
			}
		}
	}
	if plainBody != "" {
		doc.AddWith(document.TagBody, plainBody,
			map[string]string{document.AttrBodyType: document.BodyPlain})
	}
	doc.Update(document.TagBodyType, native)

	// The first textual part's declared charset wins. UTF-8 bodies are
	// refined to the ASCII code page when they carry no 8-bit byte.
	cpid := fieldmap.CodePageUTF8
	switch {
	case declaredCP != 0 && declaredCP != fieldmap.CodePageUTF8:
		cpid = declaredCP
	case !has8bit([]byte(plainBody)) && !has8bit([]byte(htmlBody)):
		cpid = fieldmap.CodePageASCII
	}
	doc.Update(document.TagInternetCPID, strconv.Itoa(cpid))
	return nil
}

// partText returns the decoded text of a part. Parts with a known charset
// arrive already decoded; for the rest the charset is detected from the
// bytes and decoding retried.
func (d *Decomposer) partText(p *enmime.Part) string {
	if p.Charset != "" || !has8bit(p.Content) {
		return string(p.Content)
	}
	res, err := d.det.DetectBest(p.Content)
	if err != nil {
		d.log.WithError(err).Warn("charset detection failed, keeping raw bytes")
		return string(p.Content)
	}
	enc := fieldmap.EncodingFor(res.Charset)
	if enc == nil {
		return string(p.Content)
	}
	decoded, err := enc.NewDecoder().Bytes(p.Content)
	if err != nil {
		d.log.WithFields(logrus.Fields{"charset": res.Charset}).
			WithError(err).Warn("charset decode failed, keeping raw bytes")
		return string(p.Content)
	}
	return string(decoded)
}

func (d *Decomposer) addAttachment(p *enmime.Part, doc *document.Document) error {
	ref, err := d.store.Create(p.Content, p.ContentType, "base64")
	if err != nil {
		return fmt.Errorf("store attachment %q: %w", p.FileName, err)
	}
	f := doc.Add(document.TagAttach, "")
	f.AddChild(document.TagAttachName, p.FileName)
	f.AddChild(document.TagAttachRef, ref)
	f.AddChild(document.TagAttachMethod, "1")
	f.AddChild(document.TagAttachSize, strconv.Itoa(len(p.Content)))
	if cid := stripAngle(p.ContentID); cid != "" {
		f.AddChild(document.TagAttachContentID, cid)
	}
	return nil
}
