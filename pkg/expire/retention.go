package expire

import (
	"fmt"
	"sort"

	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/config"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
	"github.com/cuemby/pgbackrest-repo/pkg/log"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

const daySeconds = int64(86400)

// adHocExpire implements phase 2: if cfg.Set names a label, validate it,
// reject removing the sole full of the current history, and mark its
// full dependency closure. A missing label logs a warning and marks
// nothing.
func adHocExpire(catalog *backupinfo.Catalog, setLabel string, result *Result) (map[string]bool, error) {
	if setLabel == "" {
		return nil, nil
	}

	if err := label.Validate(setLabel); err != nil {
		return nil, err
	}

	if _, err := catalog.Find(setLabel); err != nil {
		msg := fmt.Sprintf("backup %q does not exist", setLabel)
		result.Warnings = append(result.Warnings, msg)
		log.WithComponent("expire").Warn().Msg(msg)
		return nil, nil
	}

	isLast, err := lastFullUnderCurrentHistory(catalog, setLabel)
	if err != nil {
		return nil, err
	}
	if isLast {
		return nil, rerrors.NewBackupSetInvalidError(
			fmt.Sprintf("%q is the only full backup remaining under the current history and cannot be expired", setLabel))
	}

	if newestLabel(catalog) == setLabel {
		msg := fmt.Sprintf("expiring the newest backup %q may impact the ability to perform point-in-time recovery", setLabel)
		result.Warnings = append(result.Warnings, msg)
		log.WithComponent("expire").Warn().Msg(msg)
	}

	closure := dependencyClosure(catalog, setLabel)
	marked := make(map[string]bool, len(closure))
	for _, l := range closure {
		marked[l] = true
	}
	return marked, nil
}

// fullRetention implements phase 3, marking the oldest fulls (and their
// dependents) beyond the configured retention.
func fullRetention(catalog *backupinfo.Catalog, cfg *config.RetentionConfig, now int64, marked map[string]bool) {
	if cfg.RetentionFull <= 0 {
		return
	}

	fulls := labelsOfType(catalog, label.Full)
	if len(fulls) == 0 {
		return
	}

	switch cfg.RetentionFullType {
	case config.FullTypeTime:
		fullRetentionTime(catalog, cfg, now, fulls, marked)
	default:
		fullRetentionCount(catalog, cfg, fulls, marked)
	}
}

func fullRetentionCount(catalog *backupinfo.Catalog, cfg *config.RetentionConfig, fulls []string, marked map[string]bool) {
	n := len(fulls) - cfg.RetentionFull
	if n <= 0 {
		return
	}

	expLog := log.WithComponent("expire")
	for _, l := range fulls[:n] {
		closure := dependencyClosure(catalog, l)
		for _, dep := range closure {
			marked[dep] = true
		}
		if len(closure) > 1 {
			expLog.Info().Msg("expire full backup set: " + l)
		} else {
			expLog.Info().Msg("expire full backup: " + l)
		}
	}
}

func fullRetentionTime(catalog *backupinfo.Catalog, cfg *config.RetentionConfig, now int64, fulls []string, marked map[string]bool) {
	newest := fulls[len(fulls)-1]
	cutoff := now - int64(cfg.RetentionFull)*daySeconds

	expLog := log.WithComponent("expire")
	for _, l := range fulls {
		if l == newest {
			continue // the newest full-or-later backup must remain regardless
		}
		rec, err := catalog.Find(l)
		if err != nil || rec.TimestampStop >= cutoff {
			continue
		}

		for _, dep := range dependencyClosure(catalog, l) {
			marked[dep] = true
		}
		expLog.Info().Msg("expire time-based backup " + l)
	}
}

// diffRetention implements phase 4: among surviving, not-yet-marked
// backups, the oldest diffs (and fulls counted as diffs, for the count
// only) beyond retentionDiff are marked — except a full, which is never
// itself removed by this phase.
func diffRetention(catalog *backupinfo.Catalog, cfg *config.RetentionConfig, marked map[string]bool) {
	if cfg.RetentionDiff <= 0 {
		return
	}

	var diffs []string
	for _, r := range catalog.Current() {
		if marked[r.Label] {
			continue
		}
		if r.Type == label.Full || r.Type == label.Diff {
			diffs = append(diffs, r.Label)
		}
	}
	sort.Strings(diffs)

	n := len(diffs) - cfg.RetentionDiff
	if n <= 0 {
		return
	}

	expLog := log.WithComponent("expire")
	for _, l := range diffs[:n] {
		rec, err := catalog.Find(l)
		if err != nil || rec.Type == label.Full {
			continue // gone, or a full: fulls count toward the total but are never expired here
		}
		for _, dep := range dependencyClosure(catalog, l) {
			marked[dep] = true
		}
		expLog.Info().Msg("expire diff backup set: " + l)
	}
}

