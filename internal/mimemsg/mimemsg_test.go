package mimemsg

import (
	"io"
	"net/mail"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncgw/mail-bundle/internal/attach"
	"github.com/syncgw/mail-bundle/internal/fieldmap"
	"github.com/syncgw/mail-bundle/pkg/document"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const multipartMessage = "From: alice@example.com\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: mixed\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=OUTER\r\n" +
	"\r\n" +
	"--OUTER\r\n" +
	"Content-Type: multipart/alternative; boundary=INNER\r\n" +
	"\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"plain body\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>html body</p>\r\n" +
	"--INNER--\r\n" +
	"--OUTER\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQ=\r\n" +
	"--OUTER\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Disposition: inline; filename=\"logo.png\"\r\n" +
	"Content-ID: <logo@example.com>\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"iVBORw0KGgo=\r\n" +
	"--OUTER--\r\n"

func decomposed(t *testing.T, raw string) (*document.Document, *attach.MemoryStore) {
	t.Helper()
	env, err := Parse([]byte(raw))
	require.NoError(t, err)
	store := attach.NewMemoryStore()
	doc := document.New(document.TypeData)
	require.NoError(t, NewDecomposer(store, testLogger()).Decompose(env, doc))
	return doc, store
}

func attachments(doc *document.Document) []*document.Field {
	var out []*document.Field
	for _, f := range doc.Fields {
		if f.Tag == document.TagAttach {
			out = append(out, f)
		}
	}
	return out
}

func TestDecomposeSeparatesBodiesAndAttachments(t *testing.T) {
	doc, store := decomposed(t, multipartMessage)

	atts := attachments(doc)
	require.Len(t, atts, 2)
	assert.Equal(t, "report.pdf", atts[0].ChildValue(document.TagAttachName))
	assert.Equal(t, "", atts[0].ChildValue(document.TagAttachContentID))
	assert.Equal(t, "logo.png", atts[1].ChildValue(document.TagAttachName))
	assert.Equal(t, "logo@example.com", atts[1].ChildValue(document.TagAttachContentID))

	data, mimeType, err := store.Read(atts[0].ChildValue(document.TagAttachRef))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Equal(t, "%PDF-1.4", string(data))

	assert.Equal(t, "<p>html body</p>", bodyOf(doc, document.BodyHTML))
	assert.Equal(t, "plain body", bodyOf(doc, document.BodyPlain))

	bt, _ := doc.Get(document.TagBodyType)
	assert.Equal(t, document.BodyHTML, bt)
}

func TestDecomposeTextWithFileNameIsAttachment(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: log\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=B\r\n" +
		"\r\n" +
		"--B\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"the body\r\n" +
		"--B\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Disposition: attachment; filename=\"build.log\"\r\n" +
		"\r\n" +
		"log line\r\n" +
		"--B--\r\n"

	doc, _ := decomposed(t, raw)
	atts := attachments(doc)
	require.Len(t, atts, 1)
	assert.Equal(t, "build.log", atts[0].ChildValue(document.TagAttachName))
	assert.Equal(t, "the body", bodyOf(doc, document.BodyPlain))
}

func TestDecomposePlainOnlyMessage(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: plain\r\n" +
		"\r\n" +
		"just text\r\n"

	doc, _ := decomposed(t, raw)
	assert.Equal(t, "just text", bodyOf(doc, document.BodyPlain))
	assert.Empty(t, bodyOf(doc, document.BodyHTML))

	bt, _ := doc.Get(document.TagBodyType)
	assert.Equal(t, document.BodyPlain, bt)

	cpid, _ := doc.Get(document.TagInternetCPID)
	assert.Equal(t, "20127", cpid, "pure ascii downgrades the code page")
}

func TestDecomposeEightBitBodyKeepsUTF8(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: utf8\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: 8bit\r\n" +
		"\r\n" +
		"grüße\r\n"

	doc, _ := decomposed(t, raw)
	cpid, _ := doc.Get(document.TagInternetCPID)
	assert.Equal(t, "65001", cpid)
}

func TestDecomposeRecordsDeclaredCodePage(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: latin1\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"gr=FC=DFe\r\n"

	doc, _ := decomposed(t, raw)
	assert.Equal(t, "grüße", bodyOf(doc, document.BodyPlain))
	cpid, _ := doc.Get(document.TagInternetCPID)
	assert.Equal(t, "28591", cpid, "declared charset of the first text part wins")
}

func TestDecomposeHTMLOnlyDerivesTextAlternative(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: html\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>Hello <b>there</b></p></body></html>\r\n"

	doc, _ := decomposed(t, raw)
	assert.Contains(t, bodyOf(doc, document.BodyHTML), "<p>Hello")
	plain := bodyOf(doc, document.BodyPlain)
	require.NotEmpty(t, plain)
	assert.Contains(t, plain, "Hello")
	assert.NotContains(t, plain, "<p>")
}

func TestStripAngle(t *testing.T) {
	assert.Equal(t, "id@x", stripAngle("<id@x>"))
	assert.Equal(t, "id@x", stripAngle("id@x"))
	assert.Equal(t, "", stripAngle(""))
}

func TestComposeRoundTrip(t *testing.T) {
	doc, store := decomposed(t, multipartMessage)
	doc.Add(document.TagSummary, "mixed")
	doc.Add(document.TagMailFrom, "alice@example.com")
	doc.Add(document.TagMailTo, "bob@example.com")
	doc.Add(document.TagCreated, "1626714828")

	comp := NewComposer(store, fieldmap.NewMapper(testLogger()),
		mail.Address{Address: "default@example.com"}, testLogger())
	raw, out, err := comp.Compose(doc)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "alice@example.com", out.From.Address)

	env, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "mixed", env.GetHeader("Subject"))
	assert.Contains(t, env.HTML, "html body")
	assert.Contains(t, env.Text, "plain body")

	names := make([]string, 0, 2)
	for _, p := range env.Attachments {
		names = append(names, p.FileName)
	}
	for _, p := range env.Inlines {
		names = append(names, p.FileName)
	}
	for _, p := range env.OtherParts {
		names = append(names, p.FileName)
	}
	assert.ElementsMatch(t, []string{"report.pdf", "logo.png"}, names)
}

func TestComposeUsesDefaultFromForDummySender(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagSummary, "draft")
	doc.Add(document.TagMailFrom, fieldmap.DummySender)
	doc.Add(document.TagMailTo, "bob@example.com")
	doc.AddWith(document.TagBody, "hello",
		map[string]string{document.AttrBodyType: document.BodyPlain})

	comp := NewComposer(attach.NewMemoryStore(), fieldmap.NewMapper(testLogger()),
		mail.Address{Address: "me@example.com"}, testLogger())
	raw, out, err := comp.Compose(doc)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", out.From.Address)

	env, err := Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, env.GetHeader("From"), "me@example.com")
}

func TestComposeRejectsMissingRecipients(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagSummary, "nobody")

	comp := NewComposer(attach.NewMemoryStore(), fieldmap.NewMapper(testLogger()),
		mail.Address{Address: "me@example.com"}, testLogger())
	_, _, err := comp.Compose(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}

func TestComposeDerivesTextAlternative(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagSummary, "html only")
	doc.Add(document.TagMailTo, "bob@example.com")
	doc.AddWith(document.TagBody, "<p>rich content</p>",
		map[string]string{document.AttrBodyType: document.BodyHTML})

	comp := NewComposer(attach.NewMemoryStore(), fieldmap.NewMapper(testLogger()),
		mail.Address{Address: "me@example.com"}, testLogger())
	raw, _, err := comp.Compose(doc)
	require.NoError(t, err)

	env, err := Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, env.Text, "rich content")
	assert.Contains(t, env.HTML, "<p>rich content</p>")
}

func TestHas8bit(t *testing.T) {
	assert.False(t, has8bit([]byte("plain ascii")))
	assert.True(t, has8bit([]byte("grüße")))
}
