package creations

import (
	"strings"
	"unicode/utf8"

	"storyforge.app/api/internal/common"
)

// normalize trims and checks in against the limits of kind, in place.
func normalize(kind common.Kind, in *Input) error {
	in.Name = common.NormalizeSpace(in.Name)
	if in.Name == "" {
		return common.Invalid("name is required")
	}
	if utf8.RuneCountInString(in.Name) > MaxNameLength {
		return common.Invalid("name must be at most %d characters", MaxNameLength)
	}

	in.Summary = strings.TrimSpace(in.Summary)
	if utf8.RuneCountInString(in.Summary) > MaxSummaryLength {
		return common.Invalid("summary must be at most %d characters", MaxSummaryLength)
	}

	fields := make(map[string]string, len(in.Fields))
	for k, v := range in.Fields {
		if !kind.HasField(k) {
			return common.Invalid("unknown %s field %q", kind, k)
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if utf8.RuneCountInString(v) > MaxFieldLength {
			return common.Invalid("field %q must be at most %d characters", k, MaxFieldLength)
		}
		fields[k] = v
	}
	in.Fields = fields

	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if len(in.ImageURL) > MaxImageURL && !strings.HasPrefix(in.ImageURL, "data:") {
		return common.Invalid("imageUrl is too long")
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return err
	}
	in.Tags = tags
	return nil
}

// normalizeTags lowercases, trims and dedups tags, keeping their order.
func normalizeTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		t = strings.ToLower(common.NormalizeSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, common.Invalid("tag %q is longer than %d characters", t, MaxTagLength)
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > MaxTags {
		return nil, common.Invalid("at most %d tags are allowed", MaxTags)
	}
	return tags, nil
}

// apply merges p onto c and returns the resulting input.
func apply(c *Creation, p *Patch) Input {
	in := Input{
		Name:     c.Name,
		Summary:  c.Summary,
		Fields:   make(map[string]string, len(c.Fields)+len(p.Fields)),
		ImageURL: c.ImageURL,
		Tags:     c.Tags,
	}
	for k, v := range c.Fields {
		in.Fields[k] = v
	}
	for k, v := range p.Fields {
		in.Fields[k] = v
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Summary != nil {
		in.Summary = *p.Summary
	}
	if p.ImageURL != nil {
		in.ImageURL = *p.ImageURL
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	return in
}
