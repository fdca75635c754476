package types

import "strings"

// DefaultTag is implied when a model reference carries no explicit tag.
const DefaultTag = "latest"

// ModelRef is a parsed daemon model reference such as "llama3.2:3b".
type ModelRef struct {
	// Model name without tag.
	// example: llama3.2
	Name string `json:"name" example:"llama3.2"`
	// Tag (size, quantization or "latest").
	// example: 3b
	Tag string `json:"tag" example:"3b"`
}

// ParseModelRef splits name[:tag]. A colon inside a registry host
// ("host:5000/name") is not treated as a tag separator.
func ParseModelRef(s string) ModelRef {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 || strings.Contains(s[i+1:], "/") {
		return ModelRef{Name: s, Tag: DefaultTag}
	}
	tag := s[i+1:]
	if tag == "" {
		tag = DefaultTag
	}
	return ModelRef{Name: s[:i], Tag: tag}
}

// String renders the reference in name:tag form.
func (r ModelRef) String() string {
	if r.Tag == "" {
		return r.Name
	}
	return r.Name + ":" + r.Tag
}
