package webhook

const (
	EventTypeOrganization = "organization"

	ActionMemberAdded   = "member_added"
	ActionMemberInvited = "member_invited"
	ActionMemberRemoved = "member_removed"
)

// DispatchKey selects the handler for a stored event.
type DispatchKey struct {
	EventType string
	Action    string
}

func (k DispatchKey) String() string {
	if k.Action == "" {
		return k.EventType
	}
	return k.EventType + "." + k.Action
}

// Account is the user reference carried by membership and inviter objects.
type Account struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// OrganizationPayload is the subset of an organization event body the
// handlers read.
type OrganizationPayload struct {
	Action     string               `json:"action"`
	Membership *Membership          `json:"membership"`
	Invitation *InvitationReference `json:"invitation"`
}

type Membership struct {
	Role  string   `json:"role"`
	State string   `json:"state"`
	User  *Account `json:"user"`
}

type InvitationReference struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	Login     string   `json:"login"`
	Role      string   `json:"role"`
	CreatedAt string   `json:"created_at"`
	Inviter   *Account `json:"inviter"`
}

// Result aggregates one processing run.
type Result struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}
