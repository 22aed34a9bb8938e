package extract

import (
	"strings"

	"sift_server/core/port/out"
)

// WalkParts traverses the part tree in pre-order and collects the non-empty
// text fragments. Attachment and image branches are skipped; a message with
// no body and no parts yields an empty slice.
func WalkParts(root *out.RawPart) []string {
	if root == nil {
		return nil
	}

	var fragments []string

	// Direct content on this node
	if root.HasData() {
		if text := ExtractPart(root); text != "" {
			fragments = append(fragments, text)
		}
	}

	for _, part := range root.Parts {
		// Skip attachments and images: their payloads are binary
		if strings.HasPrefix(part.MimeType, "image/") || part.Filename != "" {
			continue
		}

		if len(part.Parts) > 0 {
			fragments = append(fragments, WalkParts(part)...)
			continue
		}

		if text := ExtractPart(part); text != "" {
			fragments = append(fragments, text)
		}
	}

	return fragments
}
