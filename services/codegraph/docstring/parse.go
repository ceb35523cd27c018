// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docstring

import (
	"regexp"
	"strings"
)

// Sections is a Google-style docstring split into its parts.
type Sections struct {
	Summary    string            `json:"summary,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Returns    string            `json:"returns,omitempty"`
	Raises     string            `json:"raises,omitempty"`
	Note       string            `json:"note,omitempty"`
	Example    string            `json:"example,omitempty"`
}

// IsZero reports whether no section carries content.
func (s *Sections) IsZero() bool {
	return s.Summary == "" && len(s.Parameters) == 0 && s.Returns == "" &&
		s.Raises == "" && s.Note == "" && s.Example == ""
}

// sectionHeading matches a section header line such as "Args:" or "Returns:".
var sectionHeading = regexp.MustCompile(`^\s*([A-Za-z]+):\s*$`)

// paramLine matches "name: description" and "name (type): description".
var paramLine = regexp.MustCompile(`^\s*(\w+)\s*(?:\(([^)]*)\))?\s*:\s*(.*)$`)

// Parse splits a raw docstring into sections.
//
// Description:
//
//	Text before the first recognized heading becomes the summary. Args,
//	Returns, Raises, Note, and Example headings (with common synonyms)
//	open sections; unrecognized headings are folded into the preceding
//	section's text. Args lines are parsed into name/description pairs.
func Parse(raw string) *Sections {
	out := &Sections{}
	if strings.TrimSpace(raw) == "" {
		return out
	}

	current := "summary"
	var parts = map[string][]string{}

	for _, line := range strings.Split(raw, "\n") {
		if m := sectionHeading.FindStringSubmatch(line); m != nil {
			switch strings.ToLower(m[1]) {
			case "args", "arguments", "parameters":
				current = "parameters"
				continue
			case "returns", "return", "yields":
				current = "returns"
				continue
			case "raises", "throws":
				current = "raises"
				continue
			case "note", "notes":
				current = "note"
				continue
			case "example", "examples", "usage":
				current = "example"
				continue
			}
		}
		parts[current] = append(parts[current], line)
	}

	join := func(key string) string {
		return strings.TrimSpace(strings.Join(parts[key], "\n"))
	}

	out.Summary = join("summary")
	out.Returns = join("returns")
	out.Raises = join("raises")
	out.Note = join("note")
	out.Example = join("example")

	if lines, ok := parts["parameters"]; ok {
		out.Parameters = parseParameters(lines)
	}

	return out
}

// parseParameters extracts name/description pairs from an Args block.
// Continuation lines are appended to the previous parameter.
func parseParameters(lines []string) map[string]string {
	params := make(map[string]string)
	var last string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := paramLine.FindStringSubmatch(line); m != nil {
			name := m[1]
			desc := strings.TrimSpace(m[3])
			if m[2] != "" {
				desc = strings.TrimSpace(m[2]) + ": " + desc
			}
			params[name] = desc
			last = name
			continue
		}
		if last != "" {
			params[last] = strings.TrimSpace(params[last] + " " + strings.TrimSpace(line))
		}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
