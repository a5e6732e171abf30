// Package store implements the relational persistence and live-query engine
// backing the messaging client: six entity types, a closed per-entity request
// vocabulary, a generic storage manager, and the chat-info composite views.
package store

// Entity is implemented by every persisted record type. The identifier is
// zero before the first successful save and immutable afterwards.
type Entity interface {
	TableName() string
	primaryKey() int64
}

// Model couples an entity with its request vocabulary. Each entity compiles
// its own requests; the compiler is total over the request's closed kind set.
type Model[R any] interface {
	Entity
	compileRequest(R) query
}

// cascading is implemented by entities whose deletion removes dependent rows
// through a schema-level cascade. The observer registry needs the dependent
// tables so their subscriptions re-evaluate too.
type cascading interface {
	cascadeTables() []string
}

// createdStamped is implemented by entities that carry a creation timestamp
// assigned by the manager on first insert.
type createdStamped interface {
	stampCreatedAt(int64)
}
