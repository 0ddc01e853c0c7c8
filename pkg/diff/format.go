package diff

import (
	"fmt"
	"io"
	"strings"
)

// FormatUnified renders fd as a unified diff:
//
//	diff --lit a/path b/path
//	--- a/path
//	+++ b/path
//	@@ -1,3 +1,4 @@
//	 context
//	-old line
//	+new line
func FormatUnified(fd *FileDiff, context int) string {
	var b strings.Builder
	WriteUnified(&b, fd, context)
	return b.String()
}

// WriteUnified writes the unified rendering of fd to w.
func WriteUnified(w io.Writer, fd *FileDiff, context int) error {
	if fd.Empty() {
		return nil
	}
	oldName, newName := "a/"+fd.Path, "b/"+fd.Path
	if _, err := fmt.Fprintf(w, "diff --lit %s %s\n", oldName, newName); err != nil {
		return err
	}
	switch fd.Status {
	case Added:
		fmt.Fprintln(w, "new file")
		oldName = "/dev/null"
	case Deleted:
		fmt.Fprintln(w, "deleted file")
		newName = "/dev/null"
	}
	if fd.Binary {
		_, err := fmt.Fprintf(w, "Binary files %s and %s differ\n", oldName, newName)
		return err
	}

	fmt.Fprintf(w, "--- %s\n+++ %s\n", oldName, newName)
	for _, h := range Hunks(fd.Ops, context) {
		fmt.Fprintf(w, "@@ -%s +%s @@\n", hunkRange(h.OldStart, h.OldLines), hunkRange(h.NewStart, h.NewLines))
		for _, op := range h.Ops {
			if _, err := fmt.Fprintf(w, "%s%s\n", op.Type, op.Line); err != nil {
				return err
			}
		}
	}
	return nil
}

func hunkRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
