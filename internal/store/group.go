package store

// GroupAuthStatus is the membership lifecycle of a group on this device.
type GroupAuthStatus string

const (
	GroupAuthStatusPending       GroupAuthStatus = "pending"
	GroupAuthStatusHidden        GroupAuthStatus = "hidden"
	GroupAuthStatusParticipating GroupAuthStatus = "participating"
)

// Group models a group chat. Serialize is the opaque serialized group state
// from the messaging layer. Accepted is a legacy flag kept for stores written
// before AuthStatus existed; setup backfills AuthStatus from it.
type Group struct {
	Id         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID    []byte          `gorm:"column:group_id;uniqueIndex:idx_groups_group_id;not null"`
	Leader     []byte          `gorm:"column:leader;not null"`
	Name       string          `gorm:"column:name;not null"`
	Serialize  []byte          `gorm:"column:serialize;not null"`
	Accepted   bool            `gorm:"column:accepted;not null"`
	AuthStatus GroupAuthStatus `gorm:"column:auth_status;not null"`

	// Members exists for the schema-level cascade; it is not loaded on fetch.
	Members []GroupMember `gorm:"foreignKey:GroupID;references:GroupID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Group) TableName() string {
	return "groups"
}

func (g Group) primaryKey() int64 {
	return g.Id
}

func (Group) cascadeTables() []string {
	return []string{GroupMember{}.TableName()}
}

type groupRequestKind int

const (
	groupRequestAll groupRequestKind = iota + 1
	groupRequestParticipating
	groupRequestPending
	groupRequestWithGroupID
)

// GroupRequest is the closed vocabulary of group queries.
type GroupRequest struct {
	kind    groupRequestKind
	groupID []byte
}

// GroupsAll matches every group.
func GroupsAll() GroupRequest {
	return GroupRequest{kind: groupRequestAll}
}

// GroupsParticipating matches groups the user takes part in.
func GroupsParticipating() GroupRequest {
	return GroupRequest{kind: groupRequestParticipating}
}

// GroupsPending matches groups awaiting a join decision.
func GroupsPending() GroupRequest {
	return GroupRequest{kind: groupRequestPending}
}

// GroupsWithGroupID matches the single group with the given identifier.
func GroupsWithGroupID(groupID []byte) GroupRequest {
	return GroupRequest{kind: groupRequestWithGroupID, groupID: groupID}
}

func (Group) compileRequest(r GroupRequest) query {
	switch r.kind {
	case groupRequestAll:
		return query{order: "name ASC"}
	case groupRequestParticipating:
		return query{where: "auth_status = ?", args: []any{GroupAuthStatusParticipating}}
	case groupRequestPending:
		return query{where: "auth_status = ?", args: []any{GroupAuthStatusPending}}
	case groupRequestWithGroupID:
		return query{where: "group_id = ?", args: []any{r.groupID}}
	}
	panic("store: zero GroupRequest, use a Groups* constructor")
}
