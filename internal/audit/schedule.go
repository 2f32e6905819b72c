package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oprt/sentinel/internal/schedcli"
)

const (
	scheduledWithResultTemplateConstant  = "scheduled (activates %s, last run %s, last result %s)"
	scheduledTaskMessageTemplateConstant = "scheduled (activates %s, last run %s)"
	scheduledNoMetadataTemplateConstant  = "scheduled (activates %s)"
	roleAbsentMessageTemplateConstant    = "no %s task scheduled"
	neverRanDisplayConstant              = "never"
	scheduleResourceTemplateConstant     = "scheduler:%s"
)

// ScheduleInspector audits the external scheduler for pipeline timer units.
type ScheduleInspector struct {
	Client SchedulerClient
	Clock  Clock
}

// Check enumerates timers whose unit name carries the project marker and
// partitions them into the hourly and daily roles.
//
// Every matched timer is OK with its activation target, last run, and last
// service result when the scheduler reports one. An
// empty role is WARN, never ERROR: a scheduling misconfiguration does not
// invalidate the pipeline's current data health. A query failure is treated
// as an empty listing, so it degrades to the same two role WARNs.
func (inspector ScheduleInspector) Check(executionContext context.Context, resource Resource) []Finding {
	producedAt := inspector.Clock.Now().UTC()

	schedulerTasks, listError := inspector.Client.ListTimers(executionContext)
	if listError != nil {
		schedulerTasks = nil
	}

	projectTasks := filterProjectTasks(schedulerTasks, resource.Locator)
	hourlyTasks := filterRoleTasks(projectTasks, SchedulerHourlyMarkers)
	dailyTasks := filterRoleTasks(projectTasks, SchedulerDailyMarkers)

	var findings []Finding
	findings = append(findings, roleFindings(SchedulerRoleHourly, hourlyTasks, producedAt)...)
	findings = append(findings, roleFindings(SchedulerRoleDaily, dailyTasks, producedAt)...)
	return findings
}

func roleFindings(roleName string, roleTasks []schedcli.SchedulerTask, producedAt time.Time) []Finding {
	if len(roleTasks) == 0 {
		return []Finding{{
			Level:      FindingLevelWarn,
			ResourceID: fmt.Sprintf(scheduleResourceTemplateConstant, roleName),
			Message:    fmt.Sprintf(roleAbsentMessageTemplateConstant, roleName),
			ProducedAt: producedAt,
		}}
	}

	findings := make([]Finding, 0, len(roleTasks))
	for _, roleTask := range roleTasks {
		findings = append(findings, Finding{
			Level:      FindingLevelOK,
			ResourceID: roleTask.UnitName,
			Message:    describeTask(roleTask),
			ProducedAt: producedAt,
		})
	}
	return findings
}

func describeTask(schedulerTask schedcli.SchedulerTask) string {
	if schedulerTask.LastRun.IsZero() && schedulerTask.NextRun.IsZero() && len(schedulerTask.LastResult) == 0 {
		return fmt.Sprintf(scheduledNoMetadataTemplateConstant, schedulerTask.ActivatedUnit)
	}

	lastRunDisplay := neverRanDisplayConstant
	if !schedulerTask.LastRun.IsZero() {
		lastRunDisplay = schedulerTask.LastRun.UTC().Format(time.RFC3339)
	}
	if len(schedulerTask.LastResult) > 0 {
		return fmt.Sprintf(scheduledWithResultTemplateConstant, schedulerTask.ActivatedUnit, lastRunDisplay, schedulerTask.LastResult)
	}
	return fmt.Sprintf(scheduledTaskMessageTemplateConstant, schedulerTask.ActivatedUnit, lastRunDisplay)
}

func filterProjectTasks(schedulerTasks []schedcli.SchedulerTask, projectMarker string) []schedcli.SchedulerTask {
	var projectTasks []schedcli.SchedulerTask
	for _, schedulerTask := range schedulerTasks {
		if strings.Contains(strings.ToLower(schedulerTask.UnitName), strings.ToLower(projectMarker)) {
			projectTasks = append(projectTasks, schedulerTask)
		}
	}
	return projectTasks
}

func filterRoleTasks(projectTasks []schedcli.SchedulerTask, roleMarkers []string) []schedcli.SchedulerTask {
	var roleTasks []schedcli.SchedulerTask
	for _, projectTask := range projectTasks {
		loweredName := strings.ToLower(projectTask.UnitName)
		for _, roleMarker := range roleMarkers {
			if strings.Contains(loweredName, roleMarker) {
				roleTasks = append(roleTasks, projectTask)
				break
			}
		}
	}
	return roleTasks
}
