// Package fieldmap translates between transport-level message headers and
// internal document fields, in both directions, driven by a static mapping
// table.
package fieldmap

import "github.com/syncgw/mail-bundle/pkg/document"

// Kind selects the translation branch for one mapped header.
type Kind int

const (
	KindAddress  Kind = iota // zero or more mail addresses
	KindString               // scalar string, charset-decoded
	KindDate                 // RFC 5322 date
	KindPriority             // fixed 5-level priority enum
	KindFlags                // message status flags, not header-borne
)

// Target names the outbound destination of a mapped field. A closed enum
// dispatched by switch; there is no dynamic setter lookup.
type Target int

const (
	OutNone Target = iota
	OutSubject
	OutTo
	OutCC
	OutBCC
	OutFrom
	OutSender
	OutReplyTo
	OutDate
	OutPriority
	OutMessageID
)

// Entry maps one transport header to an internal field.
type Entry struct {
	Header string // lower-case header name
	Kind   Kind
	Tag    string // internal field tag
	Out    Target
}

// Table is the full header mapping in evaluation order.
var Table = []Entry{
	{"subject", KindString, document.TagSummary, OutSubject},
	{"to", KindAddress, document.TagMailTo, OutTo},
	{"date", KindDate, document.TagCreated, OutDate},
	{"message-id", KindString, document.TagMessageID, OutMessageID},
	{"cc", KindAddress, document.TagMailCc, OutCC},
	{"from", KindAddress, document.TagMailFrom, OutFrom},
	{"from-address", KindAddress, document.TagMailFrom, OutNone},
	{"reply-to", KindAddress, document.TagMailReplyTo, OutReplyTo},
	{"replyto", KindAddress, document.TagMailReplyTo, OutNone},
	{"thread-topic", KindString, document.TagThreadTopic, OutNone},
	{"x-priority", KindPriority, document.TagImportance, OutPriority},
	{"thread-index", KindString, document.TagConversationID, OutNone},
	{"x-sender", KindAddress, document.TagMailSender, OutNone},
	{"sender", KindAddress, document.TagMailSender, OutSender},
	{"bcc", KindAddress, document.TagMailBcc, OutBCC},

	{"flags", KindFlags, document.TagStatus, OutNone},
}

// Tags returns the internal field tags the engine can populate from
// headers, in table order.
func Tags() []string {
	var out []string
	for _, e := range Table {
		out = append(out, e.Tag)
	}
	return out
}

// PriorityText returns the wire form of a priority level, or "" for
// levels outside the 5-level enum.
func PriorityText(n int) string {
	return prioText[n]
}

// prioText is the wire form of the 5-level priority enum.
var prioText = map[int]string{
	1: "1 (Highest)",
	2: "2 (High)",
	3: "3 (Normal)",
	4: "4 (Low)",
	5: "5 (Lowest)",
}

// ignoredHeaders are envelope, trace, routing and similar headers that are
// dropped without a diagnostic (RFC 2076 and commonly observed vendor
// headers). Vendor "x-" headers are dropped by prefix instead.
var ignoredHeaders = map[string]struct{}{
	"return-path": {}, "received": {}, "path": {},
	"dl-expansion-history-indication": {}, "mime-version": {},
	"control": {}, "also-control": {}, "original-encoded-information-types": {},
	"alternate-recipient": {}, "disclose-recipients": {}, "content-disposition": {},
	"approved": {}, "for-handling": {}, "for-comment": {}, "newsgroups": {},
	"apparently-to": {}, "distribution": {}, "fax": {}, "telefax": {},
	"phone": {}, "mail-system-version": {}, "mailer": {}, "originating-client": {},
	"folloup-to": {}, "errors-to": {}, "return-receipt-to": {},
	"prevent-nondelivery-report": {}, "generate-delivery-report": {},
	"content-return": {}, "x400-content-return": {}, "content-id": {},
	"content-base": {}, "content-location": {}, "in-reply-to": {},
	"references": {}, "see-also": {}, "obsoletes": {}, "supersedes": {},
	"article-updates": {}, "article-names": {}, "keywords": {}, "comments": {},
	"content-description": {}, "organization": {}, "organisation": {},
	"summary": {}, "content-identifier": {}, "delivery-date": {}, "expires": {},
	"expiry-date": {}, "reply-by": {}, "priority": {}, "precendence": {},
	"importance": {}, "sensitivity": {}, "incomplete-copy": {}, "language": {},
	"content-language": {}, "content-length": {}, "lines": {}, "conversion": {},
	"content-conversion": {}, "content-type": {}, "content-sgml-entity": {},
	"content-transfer-encoding": {}, "message-type": {}, "encoding": {},
	"resent-reply-to": {}, "resent-from": {}, "resent-sender": {},
	"resent-date": {}, "resent-to": {}, "resent-cc": {}, "resent-bcc": {},
	"resent-message-id": {}, "content-md5": {}, "xref": {}, "fcc": {},
	"auto-forwarded": {}, "discarded-x400-ipms-extensions": {},
	"discarded-x400-mts-extensions": {}, "status": {},

	"from-name": {}, "bounces-to": {}, "accept-language": {},
	"acceptlanguage": {}, "auto-submitted": {}, "user-agent": {},
	"authentication-results": {}, "dkim-signature": {}, "dkim-filter": {},
	"delivered-to": {}, "deferred-delivery": {}, "mail-followup-to": {},
	"disposition-notification-to": {}, "received-spf": {},
	"domainkey-signature": {}, "tenantheader": {}, "arc-seal": {},
	"affinity": {}, "mail id": {}, "arc-message-signature": {},
	"arc-authentication-results": {}, "amq-delivery-message-id": {},
	"list-unsubscribe-post": {}, "feedback-id": {}, "pp-correlation-id": {},
	"origin-messageid": {}, "list-id": {}, "list-help": {},
	"llist-help-link": {}, "list-unsubscribe": {}, "mkatechnicalid": {},
	"messagemaxretry": {}, "messageretryperiod": {},
	"messagewebvalidityduration": {}, "messagevalidityduration": {},
	"spamdiagnosticoutput": {}, "spamdiagnosticmetadata": {},
	"savedfromemail": {}, "require-recipient-valid-since": {},
	"precedence": {}, "ironport-sdr": {}, "ironport-hdrordr": {},
	"msip_labels": {}, "sdm-mailfrom": {}, "list-help-link": {},
}
