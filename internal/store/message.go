package store

// MessageStatus is the delivery lifecycle of a one-to-one message.
type MessageStatus string

const (
	MessageStatusSending      MessageStatus = "sending"
	MessageStatusSent         MessageStatus = "sent"
	MessageStatusFailedToSend MessageStatus = "failedToSend"
)

// Message is a one-to-one message. Sender and receiver are logical references
// by external identity; the schema deliberately carries no foreign key to
// contacts because messages may arrive before the contact they reference.
type Message struct {
	Id        int64         `gorm:"column:id;primaryKey;autoIncrement"`
	Sender    []byte        `gorm:"column:sender;not null"`
	Receiver  []byte        `gorm:"column:receiver;not null"`
	Payload   []byte        `gorm:"column:payload;not null"`
	Status    MessageStatus `gorm:"column:status;not null"`
	Unread    bool          `gorm:"column:unread;not null"`
	Timestamp int64         `gorm:"column:timestamp;not null;index:idx_messages_timestamp"`
	UniqueID  []byte        `gorm:"column:unique_id"`
	Report    []byte        `gorm:"column:report"`
	RoundURL  *string       `gorm:"column:round_url"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "messages"
}

func (m Message) primaryKey() int64 {
	return m.Id
}

type messageRequestKind int

const (
	messageRequestAll messageRequestKind = iota + 1
	messageRequestSending
	messageRequestUnread
	messageRequestWithChat
)

// MessageRequest is the closed vocabulary of one-to-one message queries.
type MessageRequest struct {
	kind   messageRequestKind
	userID []byte
}

// MessagesAll matches every message in timestamp order.
func MessagesAll() MessageRequest {
	return MessageRequest{kind: messageRequestAll}
}

// MessagesSending matches messages still pending send. Exact status match;
// there is no combined in-flight bucket for messages.
func MessagesSending() MessageRequest {
	return MessageRequest{kind: messageRequestSending}
}

// MessagesUnread matches messages not yet read.
func MessagesUnread() MessageRequest {
	return MessageRequest{kind: messageRequestUnread}
}

// MessagesWithChat matches the conversation with the given peer, i.e. every
// message the peer sent or received, in timestamp order.
func MessagesWithChat(userID []byte) MessageRequest {
	return MessageRequest{kind: messageRequestWithChat, userID: userID}
}

func (Message) compileRequest(r MessageRequest) query {
	switch r.kind {
	case messageRequestAll:
		return query{order: "timestamp ASC"}
	case messageRequestSending:
		return query{where: "status = ?", args: []any{MessageStatusSending}}
	case messageRequestUnread:
		return query{where: "unread = ?", args: []any{true}}
	case messageRequestWithChat:
		return query{
			where: "sender = ? OR receiver = ?",
			args:  []any{r.userID, r.userID},
			order: "timestamp ASC",
		}
	}
	panic("store: zero MessageRequest, use a Messages* constructor")
}
