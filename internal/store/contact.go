package store

// ContactAuthStatus tracks the relationship lifecycle with a contact. The
// store persists whatever status the messaging layer supplies; transition
// legality is enforced upstream.
type ContactAuthStatus string

const (
	ContactAuthStatusStranger               ContactAuthStatus = "stranger"
	ContactAuthStatusRequesting             ContactAuthStatus = "requesting"
	ContactAuthStatusRequested              ContactAuthStatus = "requested"
	ContactAuthStatusConfirming             ContactAuthStatus = "confirming"
	ContactAuthStatusRequestFailed          ContactAuthStatus = "requestFailed"
	ContactAuthStatusConfirmationFailed     ContactAuthStatus = "confirmationFailed"
	ContactAuthStatusVerified               ContactAuthStatus = "verified"
	ContactAuthStatusVerificationInProgress ContactAuthStatus = "verificationInProgress"
	ContactAuthStatusVerificationFailed     ContactAuthStatus = "verificationFailed"
	ContactAuthStatusFriend                 ContactAuthStatus = "friend"
	ContactAuthStatusHidden                 ContactAuthStatus = "hidden"
)

// Contact models a known peer. UserID is the stable external identity;
// Marshaled is the peer's serialized identity card, stored verbatim and never
// interpreted here.
type Contact struct {
	Id               int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           []byte            `gorm:"column:user_id;uniqueIndex:idx_contacts_user_id;not null"`
	Username         string            `gorm:"column:username;not null"`
	Nickname         *string           `gorm:"column:nickname"`
	Email            *string           `gorm:"column:email"`
	Phone            *string           `gorm:"column:phone"`
	Photo            []byte            `gorm:"column:photo"`
	AuthStatus       ContactAuthStatus `gorm:"column:auth_status;not null"`
	Marshaled        []byte            `gorm:"column:marshaled;not null"`
	IsRecent         bool              `gorm:"column:is_recent;not null"`
	CreatedAtSeconds int64             `gorm:"column:created_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Contact) TableName() string {
	return "contacts"
}

func (c Contact) primaryKey() int64 {
	return c.Id
}

func (c *Contact) stampCreatedAt(seconds int64) {
	if c.CreatedAtSeconds == 0 {
		c.CreatedAtSeconds = seconds
	}
}

type contactRequestKind int

const (
	contactRequestAll contactRequestKind = iota + 1
	contactRequestRecent
	contactRequestVerificationInProgress
	contactRequestFailed
	contactRequestRequested
	contactRequestReceived
	contactRequestFriends
	contactRequestWithUserID
	contactRequestWithUserIDs
	contactRequestWithUsernamePrefix
)

// ContactRequest is the closed vocabulary of contact queries. Values are
// constructed through the Contacts* functions and carry no behaviour.
type ContactRequest struct {
	kind           contactRequestKind
	userID         []byte
	userIDs        [][]byte
	usernamePrefix string
}

// ContactsAll matches every contact, oldest first.
func ContactsAll() ContactRequest {
	return ContactRequest{kind: contactRequestAll}
}

// ContactsRecent matches contacts flagged as recent.
func ContactsRecent() ContactRequest {
	return ContactRequest{kind: contactRequestRecent}
}

// ContactsVerificationInProgress matches contacts mid-verification.
func ContactsVerificationInProgress() ContactRequest {
	return ContactRequest{kind: contactRequestVerificationInProgress}
}

// ContactsFailed matches contacts whose request or confirmation failed.
func ContactsFailed() ContactRequest {
	return ContactRequest{kind: contactRequestFailed}
}

// ContactsRequested matches contacts with an outbound request in flight or
// delivered.
func ContactsRequested() ContactRequest {
	return ContactRequest{kind: contactRequestRequested}
}

// ContactsReceived matches contacts that arrived through an inbound request,
// in any of the post-receipt states.
func ContactsReceived() ContactRequest {
	return ContactRequest{kind: contactRequestReceived}
}

// ContactsFriends matches established friends.
func ContactsFriends() ContactRequest {
	return ContactRequest{kind: contactRequestFriends}
}

// ContactsWithUserID matches the single contact with the given external
// identity.
func ContactsWithUserID(userID []byte) ContactRequest {
	return ContactRequest{kind: contactRequestWithUserID, userID: userID}
}

// ContactsWithUserIDs matches contacts whose external identity is in the set.
func ContactsWithUserIDs(userIDs [][]byte) ContactRequest {
	return ContactRequest{kind: contactRequestWithUserIDs, userIDs: userIDs}
}

// ContactsWithUsernamePrefix matches contacts whose username starts with the
// given prefix. Exact lookup goes through ContactsWithUserID.
func ContactsWithUsernamePrefix(prefix string) ContactRequest {
	return ContactRequest{kind: contactRequestWithUsernamePrefix, usernamePrefix: prefix}
}

func (Contact) compileRequest(r ContactRequest) query {
	switch r.kind {
	case contactRequestAll:
		return query{order: "created_at_s ASC"}
	case contactRequestRecent:
		return query{where: "is_recent = ?", args: []any{true}}
	case contactRequestVerificationInProgress:
		return query{where: "auth_status = ?", args: []any{ContactAuthStatusVerificationInProgress}}
	case contactRequestFailed:
		return query{
			where: "auth_status IN ?",
			args: []any{[]ContactAuthStatus{
				ContactAuthStatusRequestFailed,
				ContactAuthStatusConfirmationFailed,
			}},
		}
	case contactRequestRequested:
		return query{
			where: "auth_status IN ?",
			args: []any{[]ContactAuthStatus{
				ContactAuthStatusRequested,
				ContactAuthStatusRequesting,
			}},
		}
	case contactRequestReceived:
		return query{
			where: "auth_status IN ?",
			args: []any{[]ContactAuthStatus{
				ContactAuthStatusHidden,
				ContactAuthStatusVerified,
				ContactAuthStatusVerificationFailed,
				ContactAuthStatusVerificationInProgress,
			}},
		}
	case contactRequestFriends:
		return query{where: "auth_status = ?", args: []any{ContactAuthStatusFriend}}
	case contactRequestWithUserID:
		return query{where: "user_id = ?", args: []any{r.userID}}
	case contactRequestWithUserIDs:
		return query{where: "user_id IN ?", args: []any{r.userIDs}}
	case contactRequestWithUsernamePrefix:
		return query{where: "username LIKE ?", args: []any{r.usernamePrefix + "%"}}
	}
	panic("store: zero ContactRequest, use a Contacts* constructor")
}
