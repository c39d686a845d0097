package expire

import (
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
)

// dependencyClosure returns target and every label whose prior chain
// transitively reaches target, sorted ascending.
func dependencyClosure(catalog *backupinfo.Catalog, target string) []string {
	closure := map[string]bool{target: true}

	for {
		changed := false
		for _, r := range catalog.Current() {
			if closure[r.Label] {
				continue
			}
			if r.Prior != "" && closure[r.Prior] {
				closure[r.Label] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	out := make([]string, 0, len(closure))
	for l := range closure {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// newestLabel returns the chronologically last surviving label, or "".
func newestLabel(catalog *backupinfo.Catalog) string {
	current := catalog.Current()
	if len(current) == 0 {
		return ""
	}
	return current[len(current)-1].Label
}

// newestSurvivingLabel returns the chronologically last label not in
// excluded, without mutating catalog — used to preview the post-removal
// "latest" pointer under dry-run, where the catalog itself is left intact.
func newestSurvivingLabel(catalog *backupinfo.Catalog, excluded map[string]bool) string {
	current := catalog.Current()
	for i := len(current) - 1; i >= 0; i-- {
		if !excluded[current[i].Label] {
			return current[i].Label
		}
	}
	return ""
}

// labelsOfType returns surviving labels of the given type, ascending.
func labelsOfType(catalog *backupinfo.Catalog, t label.Type) []string {
	var out []string
	for _, r := range catalog.Current() {
		if r.Type == t {
			out = append(out, r.Label)
		}
	}
	sort.Strings(out)
	return out
}

// lastFullUnderCurrentHistory reports whether target is the only full
// backup cataloged under the catalog's current historyId.
func lastFullUnderCurrentHistory(catalog *backupinfo.Catalog, target string) (bool, error) {
	rec, err := catalog.Find(target)
	if err != nil {
		return false, err
	}
	if rec.Type != label.Full {
		return false, nil
	}

	current, err := catalog.History.Current()
	if err != nil {
		return false, err
	}
	if rec.HistoryID != current.HistoryID {
		return false, nil
	}

	for _, r := range catalog.Current() {
		if r.Label != target && r.Type == label.Full && r.HistoryID == current.HistoryID {
			return false, nil
		}
	}
	return true, nil
}
