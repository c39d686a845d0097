package manifest

// defaultExcludes lists PostgreSQL data-directory entries that must never
// be copied into a backup, regardless of user-supplied excludes.
var defaultExcludes = []string{
	"pg_dynshmem",
	"pg_notify",
	"pg_replslot",
	"pg_serial",
	"pg_snapshots",
	"pg_stat_tmp",
	"pg_subtrans",
	"pgsql_tmp",
	"postmaster.pid",
	"postmaster.opts",
	"backup_label",
	"backup_label.old",
	"recovery.conf",
	"recovery.signal",
	"standby.signal",
}

func buildExcludeSet(extra []string) map[string]bool {
	set := make(map[string]bool, len(defaultExcludes)+len(extra))
	for _, e := range defaultExcludes {
		set[e] = true
	}
	for _, e := range extra {
		set[e] = true
	}
	return set
}
