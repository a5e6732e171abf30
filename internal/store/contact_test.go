package store

import (
	"testing"
)

func TestContactRequestStatusBuckets(t *testing.T) {
	manager := newTestManager(t)

	statuses := []ContactAuthStatus{
		ContactAuthStatusRequestFailed,
		ContactAuthStatusConfirmationFailed,
		ContactAuthStatusFriend,
		ContactAuthStatusRequested,
		ContactAuthStatusRequesting,
		ContactAuthStatusVerified,
		ContactAuthStatusVerificationInProgress,
		ContactAuthStatusVerificationFailed,
		ContactAuthStatusHidden,
		ContactAuthStatusStranger,
	}
	for i, status := range statuses {
		mustSave(t, manager, testContact(byte(i), status))
	}

	tests := []struct {
		name     string
		request  ContactRequest
		expected map[ContactAuthStatus]bool
	}{
		{
			name:    "failed",
			request: ContactsFailed(),
			expected: map[ContactAuthStatus]bool{
				ContactAuthStatusRequestFailed:      true,
				ContactAuthStatusConfirmationFailed: true,
			},
		},
		{
			name:    "requested",
			request: ContactsRequested(),
			expected: map[ContactAuthStatus]bool{
				ContactAuthStatusRequested:  true,
				ContactAuthStatusRequesting: true,
			},
		},
		{
			name:    "received",
			request: ContactsReceived(),
			expected: map[ContactAuthStatus]bool{
				ContactAuthStatusHidden:                 true,
				ContactAuthStatusVerified:               true,
				ContactAuthStatusVerificationFailed:     true,
				ContactAuthStatusVerificationInProgress: true,
			},
		},
		{
			name:    "friends",
			request: ContactsFriends(),
			expected: map[ContactAuthStatus]bool{
				ContactAuthStatusFriend: true,
			},
		},
		{
			name:    "verification-in-progress",
			request: ContactsVerificationInProgress(),
			expected: map[ContactAuthStatus]bool{
				ContactAuthStatusVerificationInProgress: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contacts, err := Fetch[Contact](t.Context(), manager, tt.request)
			if err != nil {
				t.Fatalf("unexpected fetch error: %v", err)
			}
			if len(contacts) != len(tt.expected) {
				t.Fatalf("expected %d contacts, got %d", len(tt.expected), len(contacts))
			}
			for _, contact := range contacts {
				if !tt.expected[contact.AuthStatus] {
					t.Fatalf("unexpected status %s in bucket", contact.AuthStatus)
				}
			}
		})
	}
}

func TestContactsWithUsernamePrefixMatchesPrefixOnly(t *testing.T) {
	manager := newTestManager(t)

	names := []string{"annika", "anton", "bert"}
	for i, name := range names {
		contact := testContact(byte(i), ContactAuthStatusFriend)
		contact.Username = name
		mustSave(t, manager, contact)
	}

	contacts, err := Fetch[Contact](t.Context(), manager, ContactsWithUsernamePrefix("an"))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected two prefix matches, got %d", len(contacts))
	}
	for _, contact := range contacts {
		if contact.Username == "bert" {
			t.Fatalf("prefix match must exclude bert")
		}
	}
}

func TestContactsWithUserIDs(t *testing.T) {
	manager := newTestManager(t)

	first := mustSave(t, manager, testContact(0x01, ContactAuthStatusFriend))
	second := mustSave(t, manager, testContact(0x02, ContactAuthStatusFriend))
	mustSave(t, manager, testContact(0x03, ContactAuthStatusFriend))

	contacts, err := Fetch[Contact](t.Context(), manager, ContactsWithUserIDs([][]byte{first.UserID, second.UserID}))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected two matches, got %d", len(contacts))
	}
}

func TestContactsRecent(t *testing.T) {
	manager := newTestManager(t)

	recent := testContact(0x01, ContactAuthStatusFriend)
	recent.IsRecent = true
	mustSave(t, manager, recent)
	mustSave(t, manager, testContact(0x02, ContactAuthStatusFriend))

	contacts, err := Fetch[Contact](t.Context(), manager, ContactsRecent())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(contacts) != 1 || !contacts[0].IsRecent {
		t.Fatalf("expected exactly the recent contact, got %#v", contacts)
	}
}

func TestMessagesWithChatMatchesEitherDirection(t *testing.T) {
	manager := newTestManager(t)

	peer := []byte{0x0A}
	local := []byte{0x0B}
	other := []byte{0x0C}

	mustSave(t, manager, Message{Sender: peer, Receiver: local, Payload: []byte("in"), Status: MessageStatusSent, Timestamp: 2})
	mustSave(t, manager, Message{Sender: local, Receiver: peer, Payload: []byte("out"), Status: MessageStatusSent, Timestamp: 1})
	mustSave(t, manager, Message{Sender: other, Receiver: local, Payload: []byte("noise"), Status: MessageStatusSent, Timestamp: 3})

	messages, err := Fetch[Message](t.Context(), manager, MessagesWithChat(peer))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected the two peer messages, got %d", len(messages))
	}
	if messages[0].Timestamp != 1 || messages[1].Timestamp != 2 {
		t.Fatalf("expected ascending timestamp order, got %d then %d", messages[0].Timestamp, messages[1].Timestamp)
	}
}

func TestGroupMembersStrangers(t *testing.T) {
	manager := newTestManager(t)

	group := mustSave(t, manager, testGroup(0x10, GroupAuthStatusParticipating))
	mustSave(t, manager, GroupMember{UserID: []byte{1}, GroupID: group.GroupID, Username: "known", Status: GroupMemberStatusUsernameSet})
	mustSave(t, manager, GroupMember{UserID: []byte{2}, GroupID: group.GroupID, Username: "", Status: GroupMemberStatusPendingUsername})

	strangers, err := Fetch[GroupMember](t.Context(), manager, GroupMembersStrangers())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(strangers) != 1 || strangers[0].Status != GroupMemberStatusPendingUsername {
		t.Fatalf("expected exactly the pending-username member, got %#v", strangers)
	}
}
