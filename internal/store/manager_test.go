package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestSaveAssignsIdentifierAndRoundTrips(t *testing.T) {
	manager := newTestManager(t)

	nickname := "Cap"
	saved := mustSave(t, manager, Contact{
		UserID:     []byte{0x01},
		Username:   "alice",
		Nickname:   &nickname,
		AuthStatus: ContactAuthStatusFriend,
		Marshaled:  []byte{0xCA, 0xFE},
		IsRecent:   true,
	})
	if saved.Id == 0 {
		t.Fatalf("expected an identifier to be assigned")
	}
	if saved.CreatedAtSeconds != testClockSeconds {
		t.Fatalf("expected creation timestamp %d, got %d", testClockSeconds, saved.CreatedAtSeconds)
	}

	fetched, err := FetchByID[Contact](t.Context(), manager, saved.Id)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if fetched == nil {
		t.Fatalf("expected the saved contact to be found")
	}
	if !reflect.DeepEqual(saved, *fetched) {
		t.Fatalf("fetched contact differs from saved: %#v vs %#v", *fetched, saved)
	}
}

func TestFetchByIDReturnsNilForUnknownIdentifier(t *testing.T) {
	manager := newTestManager(t)

	fetched, err := FetchByID[Contact](t.Context(), manager, 42)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected no contact, got %#v", fetched)
	}
}

func TestSaveExistingUpdatesInPlace(t *testing.T) {
	manager := newTestManager(t)

	saved := mustSave(t, manager, testContact(0x01, ContactAuthStatusRequesting))
	saved.AuthStatus = ContactAuthStatusFriend
	again := mustSave(t, manager, saved)
	if again.Id != saved.Id {
		t.Fatalf("identifier changed on re-save: %d vs %d", again.Id, saved.Id)
	}

	all, err := Fetch[Contact](t.Context(), manager, ContactsAll())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one row after re-save, got %d", len(all))
	}
	if all[0].AuthStatus != ContactAuthStatusFriend {
		t.Fatalf("expected updated status, got %s", all[0].AuthStatus)
	}
}

func TestSaveRejectsDuplicateUserID(t *testing.T) {
	manager := newTestManager(t)

	mustSave(t, manager, testContact(0x01, ContactAuthStatusFriend))

	duplicate := testContact(0x01, ContactAuthStatusStranger)
	if _, err := Save(t.Context(), manager, duplicate); err == nil {
		t.Fatalf("expected a constraint error for the duplicate user id")
	}

	all, err := Fetch[Contact](t.Context(), manager, ContactsAll())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single row, got %d", len(all))
	}
}

func TestUpdateRequiresIdentifier(t *testing.T) {
	manager := newTestManager(t)

	err := Update(t.Context(), manager, testContact(0x01, ContactAuthStatusFriend))
	if !errors.Is(err, ErrMissingIdentifier) {
		t.Fatalf("expected ErrMissingIdentifier, got %v", err)
	}
}

func TestUpdateFailsWhenRowMissing(t *testing.T) {
	manager := newTestManager(t)

	ghost := testContact(0x01, ContactAuthStatusFriend)
	ghost.Id = 99
	err := Update(t.Context(), manager, ghost)
	if !errors.Is(err, ErrNoSuchRow) {
		t.Fatalf("expected ErrNoSuchRow, got %v", err)
	}

	all, err := Fetch[Contact](t.Context(), manager, ContactsAll())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("update must never insert, found %d rows", len(all))
	}
}

func TestDeleteGroupCascadesMembers(t *testing.T) {
	manager := newTestManager(t)

	group := mustSave(t, manager, testGroup(0x10, GroupAuthStatusParticipating))
	for i := byte(0); i < 3; i++ {
		mustSave(t, manager, GroupMember{
			UserID:   []byte{i},
			GroupID:  group.GroupID,
			Username: "member",
			Status:   GroupMemberStatusUsernameSet,
		})
	}

	if err := Delete(t.Context(), manager, group); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	members, err := Fetch[GroupMember](t.Context(), manager, GroupMembersWithGroupID(group.GroupID))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected the cascade to remove all members, found %d", len(members))
	}
}

func TestSaveGroupWithMembersDefersForeignKeyToCommit(t *testing.T) {
	manager := newTestManager(t)

	// Age the connection past its first transactions; the deferral must hold
	// on every transaction, not just the first one after opening.
	for i := byte(0); i < 3; i++ {
		mustSave(t, manager, testContact(i, ContactAuthStatusFriend))
	}

	group := testGroup(0x10, GroupAuthStatusParticipating)
	members := []GroupMember{
		{UserID: []byte{1}, Username: "a", Status: GroupMemberStatusUsernameSet},
		{UserID: []byte{2}, Username: "b", Status: GroupMemberStatusUsernameSet},
		{UserID: []byte{3}, Username: "c", Status: GroupMemberStatusPendingUsername},
	}

	savedGroup, savedMembers, err := manager.SaveGroupWithMembers(t.Context(), group, members)
	if err != nil {
		t.Fatalf("unexpected batch save error: %v", err)
	}
	if savedGroup.Id == 0 {
		t.Fatalf("expected the group to receive an identifier")
	}
	for _, member := range savedMembers {
		if member.Id == 0 {
			t.Fatalf("expected every member to receive an identifier")
		}
	}

	stored, err := Fetch[GroupMember](t.Context(), manager, GroupMembersWithGroupID(savedGroup.GroupID))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected all three members to be stored, got %d", len(stored))
	}
}

func TestSaveGroupWithMembersRollsBackTogether(t *testing.T) {
	manager := newTestManager(t)

	existing := mustSave(t, manager, testGroup(0x10, GroupAuthStatusParticipating))

	duplicate := testGroup(0x10, GroupAuthStatusParticipating)
	members := []GroupMember{
		{UserID: []byte{9}, Username: "m", Status: GroupMemberStatusUsernameSet},
	}
	if _, _, err := manager.SaveGroupWithMembers(t.Context(), duplicate, members); err == nil {
		t.Fatalf("expected the duplicate group id to fail the batch")
	}

	stored, err := Fetch[GroupMember](t.Context(), manager, GroupMembersWithGroupID(existing.GroupID))
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected the member insert to roll back, found %d rows", len(stored))
	}
}

func TestUpdateWhereScopesToRequest(t *testing.T) {
	manager := newTestManager(t)

	for i := byte(0); i < 5; i++ {
		mustSave(t, manager, Message{
			Sender:    []byte{i},
			Receiver:  []byte{0xFF},
			Payload:   []byte("hello"),
			Status:    MessageStatusSending,
			Timestamp: int64(i),
		})
	}
	sent := mustSave(t, manager, Message{
		Sender:    []byte{0x09},
		Receiver:  []byte{0xFF},
		Payload:   []byte("done"),
		Status:    MessageStatusSent,
		Timestamp: 100,
	})

	affected, err := UpdateWhere[Message](t.Context(), manager, MessagesSending(), map[string]any{
		"status": MessageStatusFailedToSend,
	})
	if err != nil {
		t.Fatalf("unexpected bulk update error: %v", err)
	}
	if affected != 5 {
		t.Fatalf("expected 5 rows updated, got %d", affected)
	}

	still, err := FetchByID[Message](t.Context(), manager, sent.Id)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if still.Status != MessageStatusSent {
		t.Fatalf("bulk update touched an out-of-scope row: %s", still.Status)
	}

	sending, err := Fetch[Message](t.Context(), manager, MessagesSending())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(sending) != 0 {
		t.Fatalf("expected no sending messages left, got %d", len(sending))
	}
}

func TestDeleteWhereRemovesMatchingRows(t *testing.T) {
	manager := newTestManager(t)

	mustSave(t, manager, FileTransfer{TID: []byte{1}, Contact: []byte{0x01}, FileName: "a.png", FileType: "image", IsIncoming: true})
	mustSave(t, manager, FileTransfer{TID: []byte{2}, Contact: []byte{0x01}, FileName: "b.png", FileType: "image", IsIncoming: true})
	kept := mustSave(t, manager, FileTransfer{TID: []byte{3}, Contact: []byte{0x02}, FileName: "c.pdf", FileType: "document", IsIncoming: false})

	affected, err := DeleteWhere[FileTransfer](t.Context(), manager, FileTransfersIncoming())
	if err != nil {
		t.Fatalf("unexpected bulk delete error: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", affected)
	}

	remaining, err := Fetch[FileTransfer](t.Context(), manager, FileTransfersAll())
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Id != kept.Id {
		t.Fatalf("expected only the outgoing transfer to remain, got %#v", remaining)
	}
}

func TestNewManagerRequiresDatabase(t *testing.T) {
	if _, err := NewManager(ManagerConfig{}); err == nil {
		t.Fatalf("expected an error without a database handle")
	}
}
