/*
Package schedule implements the recurrence rules attached to job descriptors.

Two variants exist, matching what the external job scheduler understands:

  - Interval: fires every Period units (Minutes, Hours, Days) starting at
    StartTime. Overlapping executions are prevented by the external
    scheduler, not here.
  - Cron: a standard five-field expression (or a descriptor such as
    "@hourly") evaluated in a named timezone, parsed with robfig/cron.

Schedules are immutable values once attached to a descriptor. Next is a
pure function of its argument.

# Wire Format

Each schedule is an object with exactly one key naming the variant:

	{"interval": {"start_time": 1700000000000, "period": 5, "unit": "Minutes"}}
	{"cron": {"expression": "0 0-23/2 * * *", "timezone": "Europe/Berlin"}}

start_time is epoch milliseconds. Parse rejects unknown fields so that
schema drift between writers and readers surfaces immediately.
*/
package schedule
