package retriever

import "errors"

// ErrEmptyQuery is returned when a search is attempted with a blank
// query. It is the only error Search can return; every downstream
// failure degrades to a fallback result instead.
var ErrEmptyQuery = errors.New("retriever: empty query")
