package lifecycle

import "fmt"

// Role is the kind of party acting on a plan.
type Role string

const (
	RoleClient Role = "client"
	RoleCoach  Role = "coach"
	RoleSystem Role = "system"
)

// Actor is passed explicitly into every mutating call.
type Actor struct {
	ID   string
	Role Role
}

// Validate rejects anonymous or unknown actors.
func (a Actor) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("actor id is required")
	}
	switch a.Role {
	case RoleClient, RoleCoach, RoleSystem:
		return nil
	}
	return fmt.Errorf("unknown actor role %q", a.Role)
}

// IsCoach reports whether the actor may make coach-only changes.
func (a Actor) IsCoach() bool { return a.Role == RoleCoach }
