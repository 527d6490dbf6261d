package migraterun

const (
	WorkflowName = "migration_run"
	ActivityTick = "migration_run_tick"
)
