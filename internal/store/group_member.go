package store

// GroupMemberStatus indicates whether a member's username has been resolved
// from the network yet.
type GroupMemberStatus string

const (
	GroupMemberStatusUsernameSet     GroupMemberStatus = "usernameSet"
	GroupMemberStatusPendingUsername GroupMemberStatus = "pendingUsername"
)

// GroupMember is one membership row. GroupID references groups(group_id) and
// cascades on group deletion; the foreign key is deferred so a group and its
// members can be inserted in one transaction in either order.
//
// There is intentionally no unique index on (group_id, user_id): the source
// system tolerates duplicate membership rows and leaves avoiding them to the
// caller.
type GroupMember struct {
	Id       int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID   []byte            `gorm:"column:user_id;not null"`
	GroupID  []byte            `gorm:"column:group_id;not null;index:idx_group_members_group_id"`
	Username string            `gorm:"column:username;not null"`
	Status   GroupMemberStatus `gorm:"column:status;not null"`
	Photo    []byte            `gorm:"column:photo"`
}

// TableName provides the explicit table binding for GORM.
func (GroupMember) TableName() string {
	return "group_members"
}

func (m GroupMember) primaryKey() int64 {
	return m.Id
}

type groupMemberRequestKind int

const (
	groupMemberRequestAll groupMemberRequestKind = iota + 1
	groupMemberRequestStrangers
	groupMemberRequestWithGroupID
)

// GroupMemberRequest is the closed vocabulary of membership queries.
type GroupMemberRequest struct {
	kind    groupMemberRequestKind
	groupID []byte
}

// GroupMembersAll matches every membership row.
func GroupMembersAll() GroupMemberRequest {
	return GroupMemberRequest{kind: groupMemberRequestAll}
}

// GroupMembersStrangers matches members whose username is still unresolved.
func GroupMembersStrangers() GroupMemberRequest {
	return GroupMemberRequest{kind: groupMemberRequestStrangers}
}

// GroupMembersWithGroupID matches the member list of one group.
func GroupMembersWithGroupID(groupID []byte) GroupMemberRequest {
	return GroupMemberRequest{kind: groupMemberRequestWithGroupID, groupID: groupID}
}

func (GroupMember) compileRequest(r GroupMemberRequest) query {
	switch r.kind {
	case groupMemberRequestAll:
		return query{}
	case groupMemberRequestStrangers:
		return query{where: "status = ?", args: []any{GroupMemberStatusPendingUsername}}
	case groupMemberRequestWithGroupID:
		return query{where: "group_id = ?", args: []any{r.groupID}, order: "username ASC"}
	}
	panic("store: zero GroupMemberRequest, use a GroupMembers* constructor")
}
