// Package changelog prints the release notes an update just carried a
// device across. The notes live as "## vX.Y.Z" sections in the working
// copy's CHANGELOG.md; a missing document is a silent no-op since the
// report is cosmetic.
package changelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mccannical/printerd/internal/version"
)

// FileName is the release-notes document inside the working copy.
const FileName = "CHANGELOG.md"

type section struct {
	ver  version.Descriptor
	body []string
}

// Report writes the release-note sections covering the move from prev
// to curr. With an empty or non-semantic prev (first install, or coming
// off a development head) only the most recent entry is printed;
// otherwise every entry strictly newer than prev up to and including
// curr appears, oldest first.
func Report(w io.Writer, dir string, prev, curr version.Descriptor) error {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		// Missing or unreadable notes: nothing to report.
		return nil
	}
	defer f.Close()

	sections := parse(f)
	picked := slice(sections, prev, curr)
	for _, s := range picked {
		for _, line := range s.body {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func slice(sections []section, prev, curr version.Descriptor) []section {
	if len(sections) == 0 {
		return nil
	}

	// Oldest first, so the operator reads the story forward.
	sort.SliceStable(sections, func(i, j int) bool {
		cmp, _ := sections[i].ver.Compare(sections[j].ver)
		return cmp < 0
	})

	if prev.IsZero() || !prev.IsSemantic() {
		return sections[len(sections)-1:]
	}

	var out []section
	for _, s := range sections {
		if cmp, ok := s.ver.Compare(prev); !ok || cmp <= 0 {
			continue
		}
		if curr.IsSemantic() {
			if cmp, ok := s.ver.Compare(curr); ok && cmp > 0 {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// parse splits the document into version sections. A section starts at
// a "## <version>" heading whose first token parses as semantic;
// headings that do not (e.g. "## Unreleased") are skipped along with
// their content.
func parse(r io.Reader) []section {
	var sections []section
	var cur *section

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "## ") {
			if cur != nil {
				sections = append(sections, *cur)
				cur = nil
			}
			if v := headingVersion(line); v.IsSemantic() {
				cur = &section{ver: v, body: []string{line}}
			}
			continue
		}
		if cur != nil {
			cur.body = append(cur.body, line)
		}
	}
	if cur != nil {
		sections = append(sections, *cur)
	}
	return sections
}

func headingVersion(line string) version.Descriptor {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "## "))
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return version.Descriptor{}
	}
	token := strings.Trim(fields[0], "[]:")
	return version.Parse(token)
}
