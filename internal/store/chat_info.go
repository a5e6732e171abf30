package store

import (
	"context"
	"fmt"
)

// SingleChatInfo is the computed, never-persisted join of a contact with the
// most recent message exchanged with that contact. LastMessage is nil for
// contacts with no conversation yet.
type SingleChatInfo struct {
	Contact     Contact
	LastMessage *Message
}

// GroupChatInfo is the computed join of a participating group with its most
// recent message and its current member list.
type GroupChatInfo struct {
	Group       Group
	LastMessage *GroupMessage
	Members     []GroupMember
}

type singleChatInfoRequestKind int

const (
	singleChatInfoRequestAll singleChatInfoRequestKind = iota + 1
	singleChatInfoRequestWithActivity
)

// SingleChatInfoRequest is the closed vocabulary of single-chat view queries.
type SingleChatInfoRequest struct {
	kind singleChatInfoRequestKind
}

// SingleChatInfosAll includes contacts with no messages, last message first
// and messageless contacts trailing.
func SingleChatInfosAll() SingleChatInfoRequest {
	return SingleChatInfoRequest{kind: singleChatInfoRequestAll}
}

// SingleChatInfosWithActivity restricts the view to conversations that have
// at least one message.
func SingleChatInfosWithActivity() SingleChatInfoRequest {
	return SingleChatInfoRequest{kind: singleChatInfoRequestWithActivity}
}

type groupChatInfoRequestKind int

const (
	groupChatInfoRequestAll groupChatInfoRequestKind = iota + 1
	groupChatInfoRequestWithGroupID
)

// GroupChatInfoRequest is the closed vocabulary of group-chat view queries.
// Both kinds cover participating groups only.
type GroupChatInfoRequest struct {
	kind    groupChatInfoRequestKind
	groupID []byte
}

// GroupChatInfosAll lists every participating group, last message first.
func GroupChatInfosAll() GroupChatInfoRequest {
	return GroupChatInfoRequest{kind: groupChatInfoRequestAll}
}

// GroupChatInfosWithGroupID restricts the view to one group.
func GroupChatInfosWithGroupID(groupID []byte) GroupChatInfoRequest {
	return GroupChatInfoRequest{kind: groupChatInfoRequestWithGroupID, groupID: groupID}
}

// latestRowPair carries the outcome of the latest-message-per-key join: the
// base row identifier plus the identifier of its newest message, if any.
type latestRowPair struct {
	BaseID    int64  `gorm:"column:base_row_id"`
	MessageID *int64 `gorm:"column:message_row_id"`
}

// The single-chat derived table keeps, per contact, the newest message whose
// sender or receiver is that contact. Ties on timestamp fall to the highest
// row id. SQLite sorts NULLs low, so messageless contacts trail on DESC.
const singleChatInfoSQL = `
SELECT c.id AS base_row_id, m.id AS message_row_id
FROM contacts c
LEFT JOIN messages m ON m.id = (
	SELECT m2.id FROM messages m2
	WHERE m2.sender = c.user_id OR m2.receiver = c.user_id
	ORDER BY m2.timestamp DESC, m2.id DESC
	LIMIT 1
)
%s
ORDER BY m.timestamp DESC, c.id ASC`

const groupChatInfoSQL = `
SELECT g.id AS base_row_id, gm.id AS message_row_id
FROM groups g
LEFT JOIN group_messages gm ON gm.id = (
	SELECT g2.id FROM group_messages g2
	WHERE g2.group_id = g.group_id
	ORDER BY g2.timestamp DESC, g2.id DESC
	LIMIT 1
)
WHERE g.auth_status = ?%s
ORDER BY gm.timestamp DESC, g.id ASC`

const (
	opFetchSingleChatInfos   = "store.fetch_single_chat_infos"
	opFetchGroupChatInfos    = "store.fetch_group_chat_infos"
	opObserveSingleChatInfos = "store.observe_single_chat_infos"
	opObserveGroupChatInfos  = "store.observe_group_chat_infos"
)

// FetchSingleChatInfos computes the single-chat view once.
func (m *Manager) FetchSingleChatInfos(ctx context.Context, request SingleChatInfoRequest) ([]SingleChatInfo, error) {
	infos, err := m.runSingleChatInfos(ctx, request)
	if err != nil {
		m.logError(opFetchSingleChatInfos, reasonQueryFailed, err)
		return nil, newStoreError(opFetchSingleChatInfos, reasonQueryFailed, err)
	}
	return infos, nil
}

// ObserveSingleChatInfos streams the single-chat view, re-evaluating whenever
// a contact or message write commits.
func (m *Manager) ObserveSingleChatInfos(ctx context.Context, request SingleChatInfoRequest) (<-chan []SingleChatInfo, context.CancelFunc, error) {
	tables := []string{Contact{}.TableName(), Message{}.TableName()}
	return observeQuery(ctx, m, opObserveSingleChatInfos, tables, func(runCtx context.Context) ([]SingleChatInfo, error) {
		return m.runSingleChatInfos(runCtx, request)
	})
}

// FetchGroupChatInfos computes the group-chat view once.
func (m *Manager) FetchGroupChatInfos(ctx context.Context, request GroupChatInfoRequest) ([]GroupChatInfo, error) {
	infos, err := m.runGroupChatInfos(ctx, request)
	if err != nil {
		m.logError(opFetchGroupChatInfos, reasonQueryFailed, err)
		return nil, newStoreError(opFetchGroupChatInfos, reasonQueryFailed, err)
	}
	return infos, nil
}

// ObserveGroupChatInfos streams the group-chat view, re-evaluating whenever a
// group, membership or group-message write commits.
func (m *Manager) ObserveGroupChatInfos(ctx context.Context, request GroupChatInfoRequest) (<-chan []GroupChatInfo, context.CancelFunc, error) {
	tables := []string{Group{}.TableName(), GroupMember{}.TableName(), GroupMessage{}.TableName()}
	return observeQuery(ctx, m, opObserveGroupChatInfos, tables, func(runCtx context.Context) ([]GroupChatInfo, error) {
		return m.runGroupChatInfos(runCtx, request)
	})
}

// FetchContactsWithUserID is the point lookup used to resolve a push
// notification's source identity into a chat.
func (m *Manager) FetchContactsWithUserID(ctx context.Context, userID []byte) ([]Contact, error) {
	return Fetch[Contact](ctx, m, ContactsWithUserID(userID))
}

// FetchGroupInfoWithGroupID resolves one group identifier into its chat view,
// or nil when the group is unknown or not participating.
func (m *Manager) FetchGroupInfoWithGroupID(ctx context.Context, groupID []byte) (*GroupChatInfo, error) {
	infos, err := m.FetchGroupChatInfos(ctx, GroupChatInfosWithGroupID(groupID))
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, nil
	}
	return &infos[0], nil
}

func (m *Manager) runSingleChatInfos(ctx context.Context, request SingleChatInfoRequest) ([]SingleChatInfo, error) {
	filter := ""
	switch request.kind {
	case singleChatInfoRequestAll:
	case singleChatInfoRequestWithActivity:
		filter = "WHERE m.id IS NOT NULL"
	default:
		panic("store: zero SingleChatInfoRequest, use a SingleChatInfos* constructor")
	}

	var pairs []latestRowPair
	if err := m.db.WithContext(ctx).Raw(fmt.Sprintf(singleChatInfoSQL, filter)).Scan(&pairs).Error; err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return []SingleChatInfo{}, nil
	}

	contacts, err := rowsByID[Contact](ctx, m, baseIDs(pairs))
	if err != nil {
		return nil, err
	}
	messages, err := rowsByID[Message](ctx, m, messageIDs(pairs))
	if err != nil {
		return nil, err
	}

	infos := make([]SingleChatInfo, 0, len(pairs))
	for _, pair := range pairs {
		contact, ok := contacts[pair.BaseID]
		if !ok {
			continue
		}
		info := SingleChatInfo{Contact: contact}
		if pair.MessageID != nil {
			if message, ok := messages[*pair.MessageID]; ok {
				info.LastMessage = &message
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (m *Manager) runGroupChatInfos(ctx context.Context, request GroupChatInfoRequest) ([]GroupChatInfo, error) {
	filter := ""
	args := []any{GroupAuthStatusParticipating}
	switch request.kind {
	case groupChatInfoRequestAll:
	case groupChatInfoRequestWithGroupID:
		filter = " AND g.group_id = ?"
		args = append(args, request.groupID)
	default:
		panic("store: zero GroupChatInfoRequest, use a GroupChatInfos* constructor")
	}

	var pairs []latestRowPair
	if err := m.db.WithContext(ctx).Raw(fmt.Sprintf(groupChatInfoSQL, filter), args...).Scan(&pairs).Error; err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return []GroupChatInfo{}, nil
	}

	groups, err := rowsByID[Group](ctx, m, baseIDs(pairs))
	if err != nil {
		return nil, err
	}
	messages, err := rowsByID[GroupMessage](ctx, m, messageIDs(pairs))
	if err != nil {
		return nil, err
	}

	groupIDs := make([][]byte, 0, len(groups))
	for _, group := range groups {
		groupIDs = append(groupIDs, group.GroupID)
	}
	var members []GroupMember
	if err := m.db.WithContext(ctx).
		Where("group_id IN ?", groupIDs).
		Order("username ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	membersByGroup := make(map[string][]GroupMember, len(groups))
	for _, member := range members {
		key := string(member.GroupID)
		membersByGroup[key] = append(membersByGroup[key], member)
	}

	infos := make([]GroupChatInfo, 0, len(pairs))
	for _, pair := range pairs {
		group, ok := groups[pair.BaseID]
		if !ok {
			continue
		}
		info := GroupChatInfo{
			Group:   group,
			Members: membersByGroup[string(group.GroupID)],
		}
		if pair.MessageID != nil {
			if message, ok := messages[*pair.MessageID]; ok {
				info.LastMessage = &message
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// rowsByID bulk-loads entities keyed by row identifier for view assembly.
func rowsByID[E Entity](ctx context.Context, m *Manager, ids []int64) (map[int64]E, error) {
	result := make(map[int64]E, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []E
	if err := m.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.primaryKey()] = row
	}
	return result, nil
}

func baseIDs(pairs []latestRowPair) []int64 {
	ids := make([]int64, 0, len(pairs))
	for _, pair := range pairs {
		ids = append(ids, pair.BaseID)
	}
	return ids
}

func messageIDs(pairs []latestRowPair) []int64 {
	ids := make([]int64, 0, len(pairs))
	for _, pair := range pairs {
		if pair.MessageID != nil {
			ids = append(ids, *pair.MessageID)
		}
	}
	return ids
}
