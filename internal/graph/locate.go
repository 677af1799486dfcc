package graph

import (
	"bytes"

	"fortio.org/safecast"

	"flatns/internal/source"
)

// section records the byte positions of one [[...]] table in the raw
// fixture so diagnostics can point into it. The TOML decoder drops
// positions, so they are recovered by a line scan over the same bytes.
type section struct {
	header source.Span
	values map[string]source.Span // key -> span of its quoted value
}

type locator struct {
	packages []section
	classes  []section
	members  []section
}

// newLocator scans content once and indexes every [[package]],
// [[class]] and [[member]] section in order of appearance. The scan is
// deliberately shallow: it only needs `key = "value"` lines, which is
// all the fixture format uses.
func newLocator(fileID source.FileID, content []byte) *locator {
	loc := &locator{}
	var cur *section

	off := uint32(0)
	for len(content) > 0 {
		line := content
		if nl := bytes.IndexByte(content, '\n'); nl >= 0 {
			line = content[:nl]
			content = content[nl+1:]
		} else {
			content = nil
		}
		lineLen, err := safecast.Conv[uint32](len(line))
		if err != nil {
			break
		}

		trimmed := bytes.TrimSpace(line)
		switch {
		case bytes.HasPrefix(trimmed, []byte("[[")):
			indent, _ := safecast.Conv[uint32](len(line) - len(bytes.TrimLeft(line, " \t")))
			sec := section{
				header: source.Span{File: fileID, Start: off + indent, End: off + lineLen},
				values: make(map[string]source.Span),
			}
			switch string(trimmed) {
			case "[[package]]":
				loc.packages = append(loc.packages, sec)
				cur = &loc.packages[len(loc.packages)-1]
			case "[[class]]":
				loc.classes = append(loc.classes, sec)
				cur = &loc.classes[len(loc.classes)-1]
			case "[[member]]":
				loc.members = append(loc.members, sec)
				cur = &loc.members[len(loc.members)-1]
			default:
				cur = nil
			}

		case cur != nil:
			if key, sp, ok := quotedValue(fileID, off, line); ok {
				if _, seen := cur.values[key]; !seen {
					cur.values[key] = sp
				}
			}
		}

		off += lineLen + 1
	}
	return loc
}

// quotedValue extracts the key of a `key = "value"` line and the span
// of the value text between the quotes.
func quotedValue(fileID source.FileID, lineStart uint32, line []byte) (string, source.Span, bool) {
	eq := bytes.IndexByte(line, '=')
	if eq < 0 {
		return "", source.Span{}, false
	}
	key := string(bytes.TrimSpace(line[:eq]))
	if key == "" || key[0] == '#' {
		return "", source.Span{}, false
	}
	open := bytes.IndexByte(line[eq:], '"')
	if open < 0 {
		return "", source.Span{}, false
	}
	open += eq
	closing := bytes.LastIndexByte(line, '"')
	if closing <= open {
		return "", source.Span{}, false
	}
	start, err := safecast.Conv[uint32](open + 1)
	if err != nil {
		return "", source.Span{}, false
	}
	end, err := safecast.Conv[uint32](closing)
	if err != nil {
		return "", source.Span{}, false
	}
	return key, source.Span{File: fileID, Start: lineStart + start, End: lineStart + end}, true
}

func spanIn(secs []section, idx int, key string) source.Span {
	if idx < 0 || idx >= len(secs) {
		return source.Span{}
	}
	if sp, ok := secs[idx].values[key]; ok {
		return sp
	}
	return secs[idx].header
}
