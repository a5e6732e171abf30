package store

// GroupMessageStatus is the delivery lifecycle of a group message. It extends
// the one-to-one lifecycle with a received state.
type GroupMessageStatus string

const (
	GroupMessageStatusSending      GroupMessageStatus = "sending"
	GroupMessageStatusSent         GroupMessageStatus = "sent"
	GroupMessageStatusFailedToSend GroupMessageStatus = "failedToSend"
	GroupMessageStatusReceived     GroupMessageStatus = "received"
)

// GroupMessage mirrors Message but is scoped to a group rather than a peer
// pair. GroupID is a logical reference, resolved at query time.
type GroupMessage struct {
	Id        int64              `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID   []byte             `gorm:"column:group_id;not null;index:idx_group_messages_group_id"`
	Sender    []byte             `gorm:"column:sender;not null"`
	Payload   []byte             `gorm:"column:payload;not null"`
	Status    GroupMessageStatus `gorm:"column:status;not null"`
	Unread    bool               `gorm:"column:unread;not null"`
	Timestamp int64              `gorm:"column:timestamp;not null;index:idx_group_messages_timestamp"`
	UniqueID  []byte             `gorm:"column:unique_id"`
	RoundURL  *string            `gorm:"column:round_url"`
}

// TableName provides the explicit table binding for GORM.
func (GroupMessage) TableName() string {
	return "group_messages"
}

func (m GroupMessage) primaryKey() int64 {
	return m.Id
}

type groupMessageRequestKind int

const (
	groupMessageRequestAll groupMessageRequestKind = iota + 1
	groupMessageRequestSending
	groupMessageRequestUnread
	groupMessageRequestWithGroupID
)

// GroupMessageRequest is the closed vocabulary of group message queries.
type GroupMessageRequest struct {
	kind    groupMessageRequestKind
	groupID []byte
}

// GroupMessagesAll matches every group message in timestamp order.
func GroupMessagesAll() GroupMessageRequest {
	return GroupMessageRequest{kind: groupMessageRequestAll}
}

// GroupMessagesSending matches group messages still pending send.
func GroupMessagesSending() GroupMessageRequest {
	return GroupMessageRequest{kind: groupMessageRequestSending}
}

// GroupMessagesUnread matches group messages not yet read.
func GroupMessagesUnread() GroupMessageRequest {
	return GroupMessageRequest{kind: groupMessageRequestUnread}
}

// GroupMessagesWithGroupID matches one group's messages in timestamp order.
func GroupMessagesWithGroupID(groupID []byte) GroupMessageRequest {
	return GroupMessageRequest{kind: groupMessageRequestWithGroupID, groupID: groupID}
}

func (GroupMessage) compileRequest(r GroupMessageRequest) query {
	switch r.kind {
	case groupMessageRequestAll:
		return query{order: "timestamp ASC"}
	case groupMessageRequestSending:
		return query{where: "status = ?", args: []any{GroupMessageStatusSending}}
	case groupMessageRequestUnread:
		return query{where: "unread = ?", args: []any{true}}
	case groupMessageRequestWithGroupID:
		return query{where: "group_id = ?", args: []any{r.groupID}, order: "timestamp ASC"}
	}
	panic("store: zero GroupMessageRequest, use a GroupMessages* constructor")
}
