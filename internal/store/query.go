package store

import "gorm.io/gorm"

// query is the executable form of a request: a conjunctive predicate over the
// entity's columns plus an optional ordering. Requests are pure data; this is
// the only thing a compiler may produce from one.
type query struct {
	where string
	args  []any
	order string
}

// apply scopes a read statement to the compiled predicate and ordering.
func (q query) apply(db *gorm.DB) *gorm.DB {
	if q.where != "" {
		db = db.Where(q.where, q.args...)
	}
	if q.order != "" {
		db = db.Order(q.order)
	}
	return db
}

// applyWrite scopes a bulk write statement. An empty predicate means the
// request targets the whole table, which gorm refuses without an explicit
// opt-in.
func (q query) applyWrite(db *gorm.DB) *gorm.DB {
	if q.where == "" {
		return db.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	return db.Where(q.where, q.args...)
}
