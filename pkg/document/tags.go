package document

// Field tags shared between the mapping engine, the MIME codecs and the
// session layer. Values follow the internal record vocabulary of the
// synchronization engine.
const (
	TagSummary           = "Summary"           // subject line
	TagMailTo            = "MailTo"            // primary recipients, repeated
	TagMailCc            = "MailCc"            // informational recipients, repeated
	TagMailBcc           = "MailBcc"           // undisclosed recipients, repeated
	TagMailFrom          = "MailFrom"          // author
	TagMailSender        = "MailSender"        // submitting agent
	TagMailReplyTo       = "MailReplyTo"       // reply target, repeated
	TagCreated           = "Created"           // message date, unix seconds
	TagMessageID         = "MessageId"
	TagThreadTopic       = "ThreadTopic"
	TagImportance        = "Importance"
	TagConversationID    = "ConversationId"
	TagConversationIndex = "ConversationIndex" // base64 thread-index token
	TagStatus            = "Status"            // comma-joined message flags
	TagIsRead            = "Read"
	TagIsDraft           = "IsDraft"
	TagBody              = "Body"     // body fragment, X-TYP attr selects kind
	TagBodyType          = "BodyType" // native body type of the message
	TagInternetCPID      = "InternetCPID"
	TagContentClass      = "ContentClass"
	TagMessageClass      = "MessageClass"
	TagGroupName         = "GroupName" // folder display name
	TagAttribute         = "Attribute" // folder capability bits, decimal

	TagAttach          = "Attachment"
	TagAttachName      = "DisplayName"
	TagAttachRef       = "FileReference"
	TagAttachMethod    = "Method"
	TagAttachSize      = "EstimatedDataSize"
	TagAttachContentID = "ContentId"
)

// AttrBodyType is the attribute distinguishing body fragment kinds.
const AttrBodyType = "X-TYP"

// Body fragment kinds carried in the AttrBodyType attribute.
const (
	BodyPlain = "1"
	BodyHTML  = "2"
)
