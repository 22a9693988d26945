package ir

import "time"

// Status is a task lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusOnHold     Status = "on_hold"
	StatusCompleted  Status = "completed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusReview,
	StatusOnHold,
	StatusCompleted,
	StatusApproved,
	StatusRejected,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Done reports whether the status satisfies a prerequisite.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusApproved
}

// Priority ranks tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Visibility controls who may see a task.
type Visibility string

const (
	VisibilityTeam    Visibility = "team"
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityTeam, VisibilityPrivate, VisibilityPublic:
		return true
	}
	return false
}

// Frequency is the recurrence period of a recurring task.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// Advance moves d forward by one period of f.
// Monthly and quarterly periods clamp to the last day of the target month.
func (f Frequency) Advance(d Date) Date {
	switch f {
	case FrequencyDaily:
		return d.AddDays(1)
	case FrequencyWeekly:
		return d.AddDays(7)
	case FrequencyBiweekly:
		return d.AddDays(14)
	case FrequencyMonthly:
		return d.AddMonths(1)
	case FrequencyQuarterly:
		return d.AddMonths(3)
	default:
		return d
	}
}

// Action names a history entry kind.
type Action string

const (
	ActionCreated             Action = "created"
	ActionUpdated             Action = "updated"
	ActionStatusChanged       Action = "status_changed"
	ActionDelegated           Action = "delegated"
	ActionCommented           Action = "commented"
	ActionTimeLogged          Action = "time_logged"
	ActionPrerequisiteAdded   Action = "prerequisite_added"
	ActionPrerequisiteRemoved Action = "prerequisite_removed"
	ActionLinked              Action = "linked"
	ActionLinkRemoved         Action = "link_removed"
	ActionAttachmentAdded     Action = "attachment_added"
)

// EdgeKind is the type of a relationship between two tasks.
type EdgeKind string

const (
	// EdgePrerequisite is directed: From must finish before To.
	EdgePrerequisite EdgeKind = "prerequisite"
	// EdgeLinked is symmetric and implies no ordering.
	EdgeLinked EdgeKind = "linked"
)

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	return k == EdgePrerequisite || k == EdgeLinked
}

// Actor identifies who performs an operation and in which organization.
// It is passed explicitly on every call; nothing reads it from process state.
type Actor struct {
	MemberID       string `json:"member_id"`
	OrganizationID string `json:"organization_id"`
}

// SystemMemberID is the actor recorded for engine-initiated changes.
const SystemMemberID = "system"

// Task is a unit of work.
type Task struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id,omitempty"`

	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	Visibility  Visibility `json:"visibility"`

	StartDate   *Date      `json:"start_date,omitempty"`
	DueDate     *Date      `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`

	EstimatedHours      float64 `json:"estimated_hours"`
	BudgetHours         float64 `json:"budget_hours"`
	TimeSpent           float64 `json:"time_spent"`
	TimeTrackingEnabled bool    `json:"time_tracking_enabled"`
	IsBillable          bool    `json:"is_billable"`
	ClientReference     string  `json:"client_reference,omitempty"`

	IsRecurring        bool      `json:"is_recurring"`
	RecurringFrequency Frequency `json:"recurring_frequency,omitempty"`
	RecurringEndsOn    *Date     `json:"recurring_ends_on,omitempty"`
	RecurrenceParentID string    `json:"recurrence_parent_id,omitempty"`

	AssignedTo string   `json:"assigned_to,omitempty"`
	Assignees  []string `json:"assignees"`
	Approvers  []string `json:"approvers"`
	Watchers   []string `json:"watchers"`

	// Relationship views, loaded from the edge table.
	Prerequisites []string `json:"prerequisites"`
	Dependents    []string `json:"dependents"`
	Linked        []string `json:"linked"`

	DelegatedBy     string     `json:"delegated_by,omitempty"`
	DelegationDate  *time.Time `json:"delegation_date,omitempty"`
	DelegationNotes string     `json:"delegation_notes,omitempty"`

	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectionDate   *time.Time `json:"rejection_date,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	ApprovedBy   string     `json:"approved_by,omitempty"`
	ApprovalDate *time.Time `json:"approval_date,omitempty"`

	AcceptanceCriteria string   `json:"acceptance_criteria,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	Tags               []string `json:"tags"`

	// Version is the optimistic concurrency revision, incremented on every write.
	Version int64 `json:"version"`
}

// RemainingBudget returns budget minus time spent. Negative means over budget.
func (t *Task) RemainingBudget() float64 {
	return t.BudgetHours - t.TimeSpent
}

// Project groups tasks. Its statistics are always derived, never stored.
type Project struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	Priority       Priority  `json:"priority"`
	StartDate      *Date     `json:"start_date,omitempty"`
	EndDate        *Date     `json:"end_date,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TeamMember is referenced, never owned, by tasks.
type TeamMember struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Title          string    `json:"title,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TimeEntry is an immutable record of effort logged against a task.
type TimeEntry struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Actor       string    `json:"actor"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryEntry is an immutable audit record of one action on a task.
type HistoryEntry struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Seq         int64     `json:"seq"`
	Actor       string    `json:"actor"`
	Action      Action    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	PrevHash    string    `json:"prev_hash,omitempty"`
	Hash        string    `json:"hash"`
}

// Comment belongs to a task's conversation, which is separate from history.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Actor     string    `json:"actor"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is an opaque blob keyed by task.
// Data is only populated by downloads.
type Attachment struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
	Data        []byte    `json:"-"`
}

// Edge is a stored relationship between two tasks.
type Edge struct {
	Kind EdgeKind `json:"kind"`
	From string   `json:"from"`
	To   string   `json:"to"`
}
