package common

// Kind is the type of a creative artifact.
type Kind string

const (
	KindCharacter   Kind = "character"
	KindEnvironment Kind = "environment"
	KindProp        Kind = "prop"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindCharacter, KindEnvironment, KindProp}

var kindFields = map[Kind][]string{
	KindCharacter:   {"age", "role", "appearance", "personality", "backstory", "motivation", "abilities"},
	KindEnvironment: {"setting", "climate", "atmosphere", "landmarks", "inhabitants", "history"},
	KindProp:        {"category", "appearance", "material", "origin", "powers", "significance"},
}

// ParseKind accepts the singular ("character") or plural ("characters") form.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "character", "characters":
		return KindCharacter, true
	case "environment", "environments":
		return KindEnvironment, true
	case "prop", "props":
		return KindProp, true
	}
	return "", false
}

// Plural is the route segment for k.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Fields returns the free-text fields a creation of kind k may carry,
// besides name and summary.
func (k Kind) Fields() []string {
	return kindFields[k]
}

// HasField reports whether name is a whitelisted field of k.
func (k Kind) HasField(name string) bool {
	for _, f := range kindFields[k] {
		if f == name {
			return true
		}
	}
	return false
}
