package core

// DBOrdering is one requested sort criterion. Repositories map Field to
// an actual column through their own whitelists.
type DBOrdering struct {
	Field     string
	Ascending bool
}
