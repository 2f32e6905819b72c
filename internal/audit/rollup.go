package audit

// ComputeStatus reduces a finding set to the aggregate pipeline status.
//
// Any ERROR makes the pipeline NEEDS_FIXES, otherwise any WARN makes it
// DEGRADED, otherwise it is READY. The reduction is order-independent, so
// the status is always recomputable from the persisted findings.
func ComputeStatus(findings []Finding) PipelineStatus {
	sawWarning := false
	for _, finding := range findings {
		switch finding.Level {
		case FindingLevelError:
			return PipelineStatusNeedsFixes
		case FindingLevelWarn:
			sawWarning = true
		}
	}
	if sawWarning {
		return PipelineStatusDegraded
	}
	return PipelineStatusReady
}
