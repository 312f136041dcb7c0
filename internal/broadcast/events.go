// Event names carried on the bus. The set mirrors what the web client listens
// for, one constant per state transition.
package broadcast

const (
	EventNewClause              = "new_clause"
	EventClausePublished        = "clause_published"
	EventClauseRejected         = "clause_rejected"
	EventClauseUnpublished      = "clause_unpublished"
	EventClauseStatusChanged    = "clause_status_changed"
	EventNewAmendment           = "new_amendment"
	EventAmendmentPublished     = "amendment_published"
	EventAmendmentRejected      = "amendment_rejected"
	EventAmendmentStatusChanged = "amendment_status_changed"
	EventAmendmentUnpublished   = "amendment_unpublished"
	EventAmendmentUnderDebate   = "amendment_under_debate"
	EventAmendmentResolved      = "amendment_resolved"
	EventAmendmentDeleted       = "amendment_deleted"
	EventAmendmentsCleared      = "amendments_cleared"
	EventDebateContentUpdate    = "debate_content_update"
	EventNewMessage             = "new_message"
	EventAddedToGroup           = "added_to_group"
	EventUpdateContent          = "update_content"
)
