package fieldmap

import (
	"io"
	"net/mail"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncgw/mail-bundle/internal/convidx"
	"github.com/syncgw/mail-bundle/pkg/document"
)

func testMapper() *Mapper {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMapper(logger)
}

func parseMessage(t *testing.T, raw string) *enmime.Envelope {
	t.Helper()
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	require.NoError(t, err)
	return env
}

const sampleMessage = "From: \"Alice Example\" <alice@example.com>\r\n" +
	"To: bob@example.com, \"Carol\" <carol@example.com>\r\n" +
	"Cc: dave@example.com\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Mon, 19 Jul 2021 19:13:48 +0200 (UTC+2)\r\n" +
	"Message-Id: <m1@example.com>\r\n" +
	"X-Priority: 1 (Highest)\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Body here.\r\n"

func TestToDocumentMapsHeaders(t *testing.T) {
	doc := document.New(document.TypeData)
	testMapper().ToDocument(parseMessage(t, sampleMessage), "Seen", doc)

	subject, _ := doc.Get(document.TagSummary)
	assert.Equal(t, "Quarterly report", subject)

	assert.Equal(t, []string{"bob@example.com", `"Carol"<carol@example.com>`},
		doc.Values(document.TagMailTo))
	assert.Equal(t, []string{"dave@example.com"}, doc.Values(document.TagMailCc))
	assert.Equal(t, []string{`"Alice Example"<alice@example.com>`},
		doc.Values(document.TagMailFrom))

	want := time.Date(2021, 7, 19, 19, 13, 48, 0, time.FixedZone("", 2*3600)).Unix()
	created, _ := doc.Get(document.TagCreated)
	assert.Equal(t, time.Unix(want, 0).Unix(), mustUnix(t, created))

	prio, _ := doc.Get(document.TagImportance)
	assert.Equal(t, "1", prio)

	id, _ := doc.Get(document.TagMessageID)
	assert.Equal(t, "<m1@example.com>", id)
}

func mustUnix(t *testing.T, v string) int64 {
	t.Helper()
	sec, err := strconv.ParseInt(v, 10, 64)
	require.NoError(t, err)
	return sec
}

func TestToDocumentFlags(t *testing.T) {
	doc := document.New(document.TypeData)
	testMapper().ToDocument(parseMessage(t, sampleMessage), "Seen,Draft", doc)

	status, _ := doc.Get(document.TagStatus)
	assert.Equal(t, "Seen,Draft", status)
	read, _ := doc.Get(document.TagIsRead)
	assert.Equal(t, "1", read)
	draft, _ := doc.Get(document.TagIsDraft)
	assert.Equal(t, "1", draft)
}

func TestToDocumentNoFlagsMeansUnread(t *testing.T) {
	doc := document.New(document.TypeData)
	testMapper().ToDocument(parseMessage(t, sampleMessage), "", doc)

	read, _ := doc.Get(document.TagIsRead)
	assert.Equal(t, "0", read)
	assert.False(t, doc.Has(document.TagIsDraft))
}

func TestTruncateDate(t *testing.T) {
	cases := map[string]string{
		"Mon, 19 Jul 2021 19:13:48 +0200":          "Mon, 19 Jul 2021 19:13:48 +0200",
		"Mon, 19 Jul 2021 19:13:48 +0800 (UTC+8)":  "Mon, 19 Jul 2021 19:13:48 +0800",
		"Mon, 19 Jul 2021 19:13:48 +0200; ; ":      "Mon, 19 Jul 2021 19:13:48 +0200",
		"Mon, 19 Jul 2021 19:13:48 -0500 (GMT-5)":  "Mon, 19 Jul 2021 19:13:48 -0500",
		"19 Jul 2021 19:13:48 GMT":                 "19 Jul 2021 19:13:48 GMT",
	}
	for in, want := range cases {
		assert.Equal(t, want, truncateDate(in), "input %q", in)
	}
}

func TestDeriveDefaults(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagSummary, "Quarterly report")
	doc.Add(document.TagCreated, "1626714828")
	testMapper().Derive(doc)

	cc, _ := doc.Get(document.TagContentClass)
	assert.Equal(t, "urn:content-classes:message", cc)
	mc, _ := doc.Get(document.TagMessageClass)
	assert.Equal(t, "IPM.Note", mc)
	cpid, _ := doc.Get(document.TagInternetCPID)
	assert.Equal(t, "65001", cpid)
	imp, _ := doc.Get(document.TagImportance)
	assert.Equal(t, "3", imp)

	convID, _ := doc.Get(document.TagConversationID)
	require.Len(t, convID, 16)

	token, _ := doc.Get(document.TagConversationIndex)
	require.NotEmpty(t, token)
	idx := convidx.Decode(token)
	assert.Equal(t, ThreadGUID(convID), idx.GUID)
	assert.Equal(t, int64(1626714828), convidx.ToUnix(idx.Timestamp))
}

func TestDeriveKeepsExistingValues(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagImportance, "2")
	doc.Add(document.TagInternetCPID, "20127")
	doc.Add(document.TagConversationID, "deadbeefdeadbeef")
	testMapper().Derive(doc)

	imp, _ := doc.Get(document.TagImportance)
	assert.Equal(t, "2", imp)
	cpid, _ := doc.Get(document.TagInternetCPID)
	assert.Equal(t, "20127", cpid)
	convID, _ := doc.Get(document.TagConversationID)
	assert.Equal(t, "deadbeefdeadbeef", convID)
}

func TestDeriveConversationIDDeterministic(t *testing.T) {
	one := document.New(document.TypeData)
	one.Add(document.TagSummary, "same subject")
	two := document.New(document.TypeData)
	two.Add(document.TagSummary, "same subject")

	m := testMapper()
	m.Derive(one)
	m.Derive(two)

	a, _ := one.Get(document.TagConversationID)
	b, _ := two.Get(document.TagConversationID)
	assert.Equal(t, a, b)
}

func TestFromDocumentStagesHeaders(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagSummary, "Re: offer")
	doc.Add(document.TagMailTo, "bob@example.com")
	doc.Add(document.TagMailTo, `"Carol"<carol@example.com>`)
	doc.Add(document.TagMailCc, "dave@example.com")
	doc.Add(document.TagMailFrom, `"Alice"<alice@example.com>`)
	doc.Add(document.TagCreated, "1626714828")
	doc.Add(document.TagImportance, "2")
	doc.Add(document.TagMessageID, "<m2@example.com>")

	out := testMapper().FromDocument(doc)
	assert.Equal(t, "Re: offer", out.Subject)
	require.Len(t, out.To, 2)
	assert.Equal(t, "bob@example.com", out.To[0].Address)
	assert.Equal(t, "Carol", out.To[1].Name)
	require.Len(t, out.CC, 1)
	require.NotNil(t, out.From)
	assert.Equal(t, "alice@example.com", out.From.Address)
	assert.Equal(t, int64(1626714828), out.Date.Unix())
	assert.Equal(t, 2, out.Priority)
	assert.Equal(t, "<m2@example.com>", out.MessageID)

	rec := out.Recipients()
	require.Len(t, rec, 3)
	assert.Equal(t, "dave@example.com", rec[2].Address)
}

func TestFromDocumentClearsDummySender(t *testing.T) {
	doc := document.New(document.TypeData)
	doc.Add(document.TagMailTo, "bob@example.com")
	doc.Add(document.TagMailFrom, DummySender)

	out := testMapper().FromDocument(doc)
	assert.Nil(t, out.From)
}

func TestFromDocumentDefaults(t *testing.T) {
	out := testMapper().FromDocument(document.New(document.TypeData))
	assert.Equal(t, 3, out.Priority)
	assert.Equal(t, CodePageUTF8, out.CodePage)
	assert.False(t, out.Date.IsZero())
}

func TestResolveCharset(t *testing.T) {
	cases := []struct {
		in      string
		cp      int
		charset string
	}{
		{"65001", CodePageUTF8, "utf-8"},
		{"20127", CodePageASCII, "us-ascii"},
		{"28591", CodePageLatin1, "iso-8859-1"},
		{"utf-8", CodePageUTF8, "utf-8"},
		{"iso-8859-1content-transfer-encoding", CodePageLatin1, "iso-8859-1"},
		{"garbage", CodePageUTF8, "utf-8"},
		{"99999", CodePageUTF8, "utf-8"},
	}
	for _, c := range cases {
		cp, cs := resolveCharset(c.in)
		assert.Equal(t, c.cp, cp, "input %q", c.in)
		assert.Equal(t, c.charset, cs, "input %q", c.in)
	}
}

func TestCodePageMappingInverse(t *testing.T) {
	for name, cp := range charsetToCP {
		back, ok := CodePageToCharset(cp)
		require.True(t, ok, "code page %d", cp)
		// Aliases collapse (ascii -> us-ascii, gbk -> gb2312); the
		// canonical name must still map to the same code page.
		cp2, ok := CharsetToCodePage(back)
		require.True(t, ok, "charset %q", back)
		assert.Equal(t, cp, cp2, "alias %q", name)
	}
}

func TestPriorityText(t *testing.T) {
	assert.Equal(t, "1 (Highest)", PriorityText(1))
	assert.Equal(t, "3 (Normal)", PriorityText(3))
	assert.Empty(t, PriorityText(9))
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "bob@example.com",
		FormatAddress(&mail.Address{Address: "bob@example.com"}))
	assert.Equal(t, `"Bob B"<bob@example.com>`,
		FormatAddress(&mail.Address{Name: "Bob B", Address: "bob@example.com"}))
}
