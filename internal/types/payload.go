package types

// CreatePayload is the JSON body of a create-operation outbox row. LocalID
// is the placeholder identifier already visible in the cache (either a
// "pending" marker or, in local-only mode, a LOCAL-<n> identifier that
// never changes).
type CreatePayload struct {
	LocalID          string            `json:"local_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Priority         int               `json:"priority"`
	IssueType        IssueType         `json:"issue_type,omitempty"`
	Assignee         string            `json:"assignee,omitempty"`
	ParentLocalID    string            `json:"parent_local_id,omitempty"`
	DeferredRelations []DeferredRelation `json:"deferred_relations,omitempty"`
}

// DeferredRelation is a relation recorded at create time whose Remote
// counterpart doesn't exist yet; the worker creates it after `create`
// resolves the real identifier.
type DeferredRelation struct {
	OtherLocalID string  `json:"other_local_id"`
	Type         DepType `json:"type"`
	Inverse      bool    `json:"inverse"` // true if OtherLocalID is the "from" side
}

// UpdatePayload is the JSON body of an update-operation outbox row. Only
// non-nil fields are applied.
type UpdatePayload struct {
	IssueID     string  `json:"issue_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	Unassign    bool    `json:"unassign,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
}

// ClosePayload is the JSON body of a close- or delete-operation outbox
// row (the two share a shape: just the target issue and an optional
// reason).
type ClosePayload struct {
	IssueID string `json:"issue_id"`
	Reason  string `json:"reason,omitempty"`
}

// RelationPayload is the JSON body of create_relation/delete_relation rows.
type RelationPayload struct {
	IssueID     string  `json:"issue_id"`
	DependsOnID string  `json:"depends_on_id"`
	Type        DepType `json:"type"`
}
