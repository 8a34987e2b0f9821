package skyframe

import "fmt"

// ErrNotSerializable is returned from every generic codec hook of a type
// that must never be persisted.
var ErrNotSerializable = fmt.Errorf("not serializable")

// NotSerializable marks types that must never cross a generic persistence
// boundary. The target pattern phase entry types carry it because they hold
// labels whose meaning depends on process-local package-loading state; a
// persisted copy would be semantically empty in another process. Persistence
// layers must check for this marker before encoding, and the marked types
// additionally reject the stdlib json and gob codecs at encode time so a
// missed check fails loudly instead of writing a corrupt snapshot.
type NotSerializable interface {
	// NotSerializable is a marker method.
	NotSerializable()
}

// IsSerializable reports whether v may be handed to a generic codec.
func IsSerializable(v any) bool {
	_, forbidden := v.(NotSerializable)
	return !forbidden
}

func notSerializableError(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotSerializable)
}
