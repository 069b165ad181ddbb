package badger

import "fmt"

// Key prefix for annotation values.
const annotationPrefix = "annrec"

// makeAnnotationKey builds the key for one document's span list. The
// namespace components are separated by NUL so composite keys cannot
// collide across namespaces.
func makeAnnotationKey(model, collection, field, docID string) []byte {
	return fmt.Appendf(nil, "%s\x00%s\x00%s\x00%s\x00%s", annotationPrefix, model, collection, field, docID)
}
