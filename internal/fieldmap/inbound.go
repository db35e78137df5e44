package fieldmap

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/internal/convidx"
	"github.com/syncgw/mail-bundle/pkg/document"
)

// Mapper runs the table-driven translation in both directions.
type Mapper struct {
	logger *logrus.Logger
}

// NewMapper creates a mapper.
func NewMapper(logger *logrus.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// FormatAddress renders an address the way the document model stores it:
// `"Name"<addr>` when a display name exists, the bare address otherwise.
func FormatAddress(a *mail.Address) string {
	if a.Name != "" {
		return fmt.Sprintf("%q<%s>", a.Name, a.Address)
	}
	return a.Address
}

// truncateDate cuts the free text some agents append after the timezone
// offset ("Mon, 19 Jul 2021 19:13:48 +0200; ; ", "... +0800 (UTC+8)"):
// everything past the digits following the offset sign is dropped.
func truncateDate(v string) string {
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	for i := len(v) - 5; i >= 0; i-- {
		if (v[i] != '+' && v[i] != '-') ||
			!isDigit(v[i+1]) || !isDigit(v[i+2]) || !isDigit(v[i+3]) || !isDigit(v[i+4]) {
			continue
		}
		p := i + 1
		for p < len(v) && isDigit(v[p]) {
			p++
		}
		return strings.TrimSpace(v[:p])
	}
	return strings.TrimSpace(v)
}

// ToDocument maps the headers of a parsed message into document fields.
// flags is the comma-joined internal flag string of the message record.
// Headers neither mapped nor ignorable are reported as diagnostics, never
// as errors.
func (m *Mapper) ToDocument(env *enmime.Envelope, flags string, doc *document.Document) {
	remaining := make(map[string]struct{})
	for _, k := range env.GetHeaderKeys() {
		remaining[strings.ToLower(k)] = struct{}{}
	}

	for _, e := range Table {
		if _, ok := remaining[e.Header]; !ok {
			continue
		}

		switch e.Kind {
		case KindAddress:
			addrs, err := env.AddressList(e.Header)
			if err != nil {
				m.logger.WithError(err).WithField("header", e.Header).
					Warn("Unparsable address header")
				break
			}
			for _, a := range addrs {
				doc.Add(e.Tag, FormatAddress(a))
			}

		case KindString:
			doc.Add(e.Tag, env.GetHeader(e.Header))

		case KindDate:
			raw := truncateDate(env.GetHeader(e.Header))
			t, err := mail.ParseDate(raw)
			if err != nil {
				m.logger.WithError(err).WithField("date", raw).
					Warn("Unparsable date header")
				break
			}
			doc.Add(e.Tag, strconv.FormatInt(t.Unix(), 10))

		case KindPriority:
			v := env.GetHeader(e.Header)
			for level, text := range prioText {
				if v == text {
					doc.Add(e.Tag, strconv.Itoa(level))
					break
				}
			}
		}

		delete(remaining, e.Header)
	}

	if flags != "" {
		doc.Add(document.TagStatus, flags)
		doc.Add(document.TagIsDraft, boolField(strings.Contains(flags, "Draft")))
		doc.Add(document.TagIsRead, boolField(strings.Contains(flags, "Seen")))
	} else {
		doc.Add(document.TagIsRead, "0")
	}

	m.reportUnused(remaining)
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// reportUnused drops the ignorable remainder and logs whatever is left.
func (m *Mapper) reportUnused(remaining map[string]struct{}) {
	for k := range remaining {
		if strings.HasPrefix(k, "x-") {
			continue
		}
		if _, ok := ignoredHeaders[k]; ok {
			continue
		}
		m.logger.WithField("header", k).Warn("Unused header field")
	}
}

// Derive synthesizes the fields every message document carries even when
// no header supplied them: content class, code page, importance,
// conversation id and conversation index.
func (m *Mapper) Derive(doc *document.Document) {
	doc.Add(document.TagContentClass, "urn:content-classes:message")
	doc.Add(document.TagMessageClass, "IPM.Note")

	if !doc.Has(document.TagInternetCPID) {
		doc.Add(document.TagInternetCPID, strconv.Itoa(CodePageUTF8))
	}
	if !doc.Has(document.TagImportance) {
		doc.Add(document.TagImportance, "3")
	}

	convID, ok := doc.Get(document.TagConversationID)
	if !ok || convID == "" {
		subject, _ := doc.Get(document.TagSummary)
		sum := md5.Sum([]byte(subject))
		convID = hex.EncodeToString(sum[:])[:16]
		doc.Update(document.TagConversationID, convID)
	}

	if !doc.Has(document.TagConversationIndex) {
		var created int64
		if v, ok := doc.Get(document.TagCreated); ok {
			created, _ = strconv.ParseInt(v, 10, 64)
		}
		doc.Add(document.TagConversationIndex, convidx.Encode(convidx.Index{
			Timestamp: convidx.FromUnix(created),
			GUID:      ThreadGUID(convID),
		}))
	}
}

// ThreadGUID derives the stable 16-byte thread GUID for a conversation id.
func ThreadGUID(convID string) uuid.UUID {
	return uuid.UUID(md5.Sum([]byte(convID)))
}
