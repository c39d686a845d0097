// Package archivepath implements the on-disk naming scheme for the WAL
// archive stream and the pure retention-range algorithm the expiration
// engine drives: which segments remain reachable for point-in-time
// recovery after a round of backup removal, and which timeline-history
// files become obsolete as a result.
package archivepath

import (
	"fmt"
	"sort"
	"strings"
)

// Segment is a 24-hex-character WAL segment name, e.g.
// "000000010000000000000002": an 8-hex timeline id followed by a 16-hex
// log/segment pair.
type Segment string

// Valid reports whether s has the 24-hex-character shape of a WAL segment
// name.
func (s Segment) Valid() bool {
	if len(s) != 24 {
		return false
	}
	for _, r := range s {
		if !isHex(r) {
			return false
		}
	}
	return true
}

// Timeline returns the 8-hex-character timeline id s was written under.
func (s Segment) Timeline() string {
	if len(s) < 8 {
		return ""
	}
	return string(s[:8])
}

// Major returns the first 16 hex characters: the directory name segment
// files are stored under.
func (s Segment) Major() string {
	if len(s) < 16 {
		return string(s)
	}
	return string(s[:16])
}

// Less reports chronological order; fixed-width hex segment names compare
// correctly under plain lexical comparison.
func (s Segment) Less(other Segment) bool {
	return string(s) < string(other)
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// SegmentFileName builds the on-disk name of a stored segment file:
// "<24-hex>-<sha1>[.ext]".
func SegmentFileName(seg Segment, sha1, ext string) string {
	name := fmt.Sprintf("%s-%s", seg, sha1)
	if ext != "" {
		name += "." + ext
	}
	return name
}

// ParseSegmentFileName extracts the Segment prefix from a stored segment
// file name.
func ParseSegmentFileName(name string) (Segment, bool) {
	if len(name) < 24 {
		return "", false
	}
	seg := Segment(name[:24])
	if !seg.Valid() {
		return "", false
	}
	if len(name) == 24 {
		return seg, false
	}
	if name[24] != '-' {
		return "", false
	}
	return seg, true
}

// HistoryFileName builds the name of a timeline-history file.
func HistoryFileName(timelineHex string) string {
	return timelineHex + ".history"
}

// ParseHistoryFileName extracts the 8-hex timeline id from a history file
// name, e.g. "00000002.history" -> "00000002".
func ParseHistoryFileName(name string) (string, bool) {
	const suffix = ".history"
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(name, suffix)
	if len(id) != 8 {
		return "", false
	}
	for _, r := range id {
		if !isHex(r) {
			return "", false
		}
	}
	return id, true
}

// BackupRange is one eligible backup's archive range on an archiveId,
// ordered by ArchiveStart. ArchiveStart/ArchiveStop are "" when the backup
// record omits them.
type BackupRange struct {
	Label        string
	ArchiveStart Segment
	ArchiveStop  Segment
}

// KeptRange is one retained window of WAL on an archiveId. Timeline
// restricts the gap extension (GapUntil) to segments sharing that
// timeline; Stop == "" means unbounded (the most recent eligible backup's
// range).
type KeptRange struct {
	Label    string
	Timeline string
	Start    Segment
	Stop     Segment
	GapUntil Segment
}

// Contains reports whether seg falls within r: inside [Start, Stop]
// unconditionally, or in the (Stop, GapUntil) gap provided seg shares
// Timeline with Start.
func (r KeptRange) Contains(seg Segment) bool {
	if seg.Less(r.Start) {
		return false
	}
	if r.Stop == "" {
		return true
	}
	if !r.Stop.Less(seg) {
		return true // Start <= seg <= Stop
	}
	if r.GapUntil != "" && r.Timeline != "" && seg.Timeline() == r.Timeline && seg.Less(r.GapUntil) {
		return true
	}
	return false
}

// Retain computes the keep-ranges for one archiveId's eligible backups,
// ordered ascending by ArchiveStart. Backups with no ArchiveStart must
// already be excluded by the caller: such a backup defers to the
// preceding backup's range without expanding it, so it contributes
// nothing here.
//
// The last backup in eligible keeps everything from its ArchiveStart
// onward. Every earlier backup b_i keeps [b_i.ArchiveStart,
// b_i.ArchiveStop] plus any WAL in the gap up to (but excluding) its
// successor's ArchiveStart that shares b_i.ArchiveStart's timeline —
// preserving the ability to play through a timeline switch.
func Retain(eligible []BackupRange) []KeptRange {
	if len(eligible) == 0 {
		return nil
	}

	sorted := make([]BackupRange, len(eligible))
	copy(sorted, eligible)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ArchiveStart.Less(sorted[j].ArchiveStart) })

	out := make([]KeptRange, 0, len(sorted))
	for i, b := range sorted {
		if i == len(sorted)-1 {
			out = append(out, KeptRange{Label: b.Label, Start: b.ArchiveStart})
			continue
		}

		next := sorted[i+1]
		out = append(out, KeptRange{
			Label:    b.Label,
			Timeline: b.ArchiveStart.Timeline(),
			Start:    b.ArchiveStart,
			Stop:     b.ArchiveStop,
			GapUntil: next.ArchiveStart,
		})
	}

	return out
}

// Kept reports whether seg is retained by any of ranges.
func Kept(ranges []KeptRange, seg Segment) bool {
	for _, r := range ranges {
		if r.Contains(seg) {
			return true
		}
	}
	return false
}

// GreatestStartTimeline returns the largest timeline id referenced by any
// of starts, and false if starts is empty.
func GreatestStartTimeline(starts []Segment) (string, bool) {
	best := ""
	found := false
	for _, s := range starts {
		if s == "" {
			continue
		}
		tl := s.Timeline()
		if !found || tl > best {
			best = tl
			found = true
		}
	}
	return best, found
}

// HistoryFilesToRemove returns, from present (timeline-history filenames
// under one archiveId), those whose timeline id is strictly less than the
// greatest timeline id referenced by any surviving backup's ArchiveStart
// on that archiveId.
func HistoryFilesToRemove(present []string, survivingStarts []Segment) []string {
	greatest, ok := GreatestStartTimeline(survivingStarts)
	if !ok {
		return nil
	}

	var remove []string
	for _, name := range present {
		id, isHistory := ParseHistoryFileName(name)
		if !isHistory {
			continue
		}
		if id < greatest {
			remove = append(remove, name)
		}
	}
	sort.Strings(remove)
	return remove
}
