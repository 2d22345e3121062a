/*
Package config loads the Steward node configuration and keeps the sync up
interval live.

The file is YAML and unknown keys are rejected. Most fields are read once
at start-up. sync_up_job_interval_seconds is the exception: the Watcher
reloads the file when it changes on disk and pushes the new value into an
IntSetting, whose subscribers receive (old, new) pairs. The coordinator
subscribes once and restarts its recurrence with the new period.

Interval values outside [0, 86400] are treated as zero, which disables the
sync up job; they never fail the reload. A file that does not parse or
validate is ignored and the previous config stays in effect.

	cfg, err := config.Load(path)
	interval := config.NewIntSetting("sync_up_job_interval_seconds", seconds)
	watcher := config.NewWatcher(path, cfg)
	watcher.BindInterval(interval)
	go watcher.Run(ctx)
*/
package config
